package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	_ "modernc.org/sqlite"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
)

// SQLiteRecorder stores analyses in the analyses table of a SQLite database.
type SQLiteRecorder struct {
	db    *sql.DB
	mu    sync.Mutex
	clock infra.Clock
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
// Missing parent directories are created.
func OpenSQLite(path string, clock infra.Clock) (*SQLiteRecorder, error) {
	if clock == nil {
		clock = infra.SystemClock
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, clock: clock}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("component", "history").Str("path", path).Msg("sqlite history opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol         TEXT NOT NULL,
			as_of          INTEGER NOT NULL,
			score          REAL,
			recommendation TEXT NOT NULL,
			payload        TEXT NOT NULL,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_symbol ON analyses(symbol, created_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Append stores res. Symbols are stored upper-case. An undefined score is
// stored as NULL.
func (r *SQLiteRecorder) Append(ctx context.Context, res models.AnalysisResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	var score sql.NullFloat64
	if v, ok := res.Score.Get(); ok {
		score = sql.NullFloat64{Float64: v, Valid: true}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO analyses
		(symbol, as_of, score, recommendation, payload, created_at)
		VALUES (?,?,?,?,?,?)`,
		strings.ToUpper(res.Symbol), res.AsOf.Unix(), score,
		string(res.Recommendation), string(payload), r.clock.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// Latest returns up to limit entries for symbol, newest first.
func (r *SQLiteRecorder) Latest(ctx context.Context, symbol string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT id, symbol, as_of, score, recommendation, payload, created_at
		FROM analyses WHERE symbol = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			asOf      int64
			createdAt int64
			score     sql.NullFloat64
			rec       string
			payload   string
		)
		if err := rows.Scan(&e.ID, &e.Symbol, &asOf, &score, &rec, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		e.AsOf = time.Unix(asOf, 0).UTC()
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		e.Recommendation = models.Recommendation(rec)
		if score.Valid {
			e.Score = models.Of(score.Float64)
		}
		if err := json.Unmarshal([]byte(payload), &e.Result); err != nil {
			return nil, fmt.Errorf("decode analysis %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	log.Info().Str("component", "history").Msg("closing sqlite history")
	return r.db.Close()
}
