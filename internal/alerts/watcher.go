package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
)

// DefaultSchedule checks alerts every five minutes.
const DefaultSchedule = "@every 5m"

// Observer produces the latest observation of a symbol.
type Observer interface {
	Observe(ctx context.Context, symbol string) (Observation, error)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, symbol string) (Observation, error)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, symbol string) (Observation, error) {
	return f(ctx, symbol)
}

// Watcher evaluates the alert book on a cron schedule and publishes the
// events that fire to its subscribers.
type Watcher struct {
	store    *FileStore
	observer Observer
	clock    infra.Clock
	cron     *cron.Cron

	mu   sync.RWMutex
	subs []func(models.AlertEvent)
	ctx  context.Context
}

// NewWatcher creates a stopped watcher.
func NewWatcher(store *FileStore, observer Observer, clock infra.Clock) *Watcher {
	if clock == nil {
		clock = infra.SystemClock
	}
	return &Watcher{
		store:    store,
		observer: observer,
		clock:    clock,
		cron:     cron.New(),
		ctx:      context.Background(),
	}
}

// Subscribe registers fn for every event. fn must not block.
func (w *Watcher) Subscribe(fn func(models.AlertEvent)) {
	w.mu.Lock()
	w.subs = append(w.subs, fn)
	w.mu.Unlock()
}

// Start schedules RunOnce with a standard cron spec or descriptor
// ("@every 5m", "*/10 9-16 * * 1-5") and starts the scheduler. The
// runs use ctx.
func (w *Watcher) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	if _, err := w.cron.AddFunc(schedule, w.tick); err != nil {
		return fmt.Errorf("register alert schedule %q: %w", schedule, err)
	}
	w.cron.Start()
	log.Info().Str("component", "alerts").Str("schedule", schedule).Msg("alert watcher started")
	return nil
}

// Stop stops the scheduler and waits for a running check to finish.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
	log.Info().Str("component", "alerts").Msg("alert watcher stopped")
}

func (w *Watcher) tick() {
	w.mu.RLock()
	ctx := w.ctx
	w.mu.RUnlock()

	events, err := w.RunOnce(ctx)
	if err != nil {
		log.Error().Str("component", "alerts").Err(err).Msg("alert check failed")
		return
	}
	log.Debug().Str("component", "alerts").Int("fired", len(events)).Msg("alert check complete")
}

// RunOnce checks every symbol with active alerts once. A failed
// observation skips that symbol; the joined errors are returned with the
// events that did fire.
func (w *Watcher) RunOnce(ctx context.Context) ([]models.AlertEvent, error) {
	symbols, err := w.store.Symbols()
	if err != nil {
		return nil, err
	}

	var (
		events []models.AlertEvent
		errs   []error
	)
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		obs, err := w.observer.Observe(ctx, sym)
		if err != nil {
			errs = append(errs, fmt.Errorf("observe %s: %w", sym, err))
			continue
		}
		fired, err := w.store.Check(sym, obs, w.clock.Now())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, ev := range fired {
			log.Info().Str("component", "alerts").Str("symbol", sym).
				Str("type", string(ev.Alert.Type)).Str("condition", string(ev.Alert.Condition)).
				Float64("target", ev.Alert.Target).Float64("observed", ev.Observed).Msg("alert triggered")
			w.publish(ev)
		}
		events = append(events, fired...)
	}
	return events, errors.Join(errs...)
}

func (w *Watcher) publish(ev models.AlertEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, fn := range w.subs {
		fn(ev)
	}
}
