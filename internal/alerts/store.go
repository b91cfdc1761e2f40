package alerts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/stockscore/pkg/models"
)

// Book is the persisted set of active and triggered alerts.
type Book struct {
	Active  []models.Alert `yaml:"active"`
	History []models.Alert `yaml:"history"`
}

// FileStore keeps a Book in a YAML file. Every mutation is written back
// before the call returns. It is safe for concurrent use within a process.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store for path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() (Book, error) {
	var b Book
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return b, fmt.Errorf("read alert book: %w", err)
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("parse alert book %s: %w", s.path, err)
	}
	return b, nil
}

func (s *FileStore) save(b Book) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode alert book: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create alert dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write alert book: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Add validates a and appends it to the active list.
func (s *FileStore) Add(a models.Alert) error {
	if err := Validate(a); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return err
	}
	b.Active = append(b.Active, a)
	return s.save(b)
}

// Active returns the active alerts, optionally filtered by symbol.
func (s *FileStore) Active(symbol string) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}
	if symbol == "" {
		return b.Active, nil
	}
	var out []models.Alert
	for _, a := range b.Active {
		if a.Symbol == symbol {
			out = append(out, a)
		}
	}
	return out, nil
}

// History returns triggered alerts, most recent first.
func (s *FileStore) History() ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(b.History, func(i, j int) bool {
		return triggeredAt(b.History[i]).After(triggeredAt(b.History[j]))
	})
	return b.History, nil
}

func triggeredAt(a models.Alert) time.Time {
	if a.TriggeredAt == nil {
		return time.Time{}
	}
	return *a.TriggeredAt
}

// Remove deletes an active alert by ID.
func (s *FileStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return err
	}
	for i, a := range b.Active {
		if a.ID == id {
			b.Active = append(b.Active[:i], b.Active[i+1:]...)
			return s.save(b)
		}
	}
	return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
}

// Symbols returns the distinct symbols with active alerts, sorted.
func (s *FileStore) Symbols() ([]string, error) {
	active, err := s.Active("")
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, a := range active {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			out = append(out, a.Symbol)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Check evaluates the active alerts of symbol against obs. Alerts that fire
// move to the history and are returned as events.
func (s *FileStore) Check(symbol string, obs Observation, now time.Time) ([]models.AlertEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}

	var events []models.AlertEvent
	remaining := b.Active[:0]
	for _, a := range b.Active {
		if a.Symbol != symbol {
			remaining = append(remaining, a)
			continue
		}
		fired, observed := Evaluate(a, obs)
		if !fired {
			remaining = append(remaining, a)
			continue
		}
		at := now
		a.TriggeredAt = &at
		a.Observed = observed
		b.History = append(b.History, a)
		events = append(events, models.AlertEvent{Alert: a, Observed: observed, Timestamp: now})
	}
	if len(events) == 0 {
		return nil, nil
	}
	b.Active = remaining
	return events, s.save(b)
}
