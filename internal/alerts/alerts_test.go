package alerts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
)

var t0 = time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

func TestNewNormalizesAndValidates(t *testing.T) {
	a, err := New(" aapl ", "PRICE", "Above", 200, t0)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, models.AlertPrice, a.Type)
	assert.Equal(t, models.ConditionAbove, a.Condition)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, t0, a.CreatedAt)

	b, err := New("AAPL", models.AlertPrice, models.ConditionAbove, 200, t0)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		alert   models.Alert
		wantErr bool
	}{
		{"price above", models.Alert{Symbol: "A", Type: models.AlertPrice, Condition: models.ConditionAbove}, false},
		{"price below", models.Alert{Symbol: "A", Type: models.AlertPrice, Condition: models.ConditionBelow}, false},
		{"price crossover", models.Alert{Symbol: "A", Type: models.AlertPrice, Condition: models.ConditionCrossover}, true},
		{"volume above", models.Alert{Symbol: "A", Type: models.AlertVolume, Condition: models.ConditionAbove, Target: 1e6}, false},
		{"volume below", models.Alert{Symbol: "A", Type: models.AlertVolume, Condition: models.ConditionBelow}, true},
		{"rsi in range", models.Alert{Symbol: "A", Type: models.AlertRSI, Condition: models.ConditionBelow, Target: 30}, false},
		{"rsi out of range", models.Alert{Symbol: "A", Type: models.AlertRSI, Condition: models.ConditionAbove, Target: 120}, true},
		{"macd crossunder", models.Alert{Symbol: "A", Type: models.AlertMACD, Condition: models.ConditionCrossunder}, false},
		{"macd above", models.Alert{Symbol: "A", Type: models.AlertMACD, Condition: models.ConditionAbove}, true},
		{"unknown type", models.Alert{Symbol: "A", Type: "gamma", Condition: models.ConditionAbove}, true},
		{"missing symbol", models.Alert{Type: models.AlertPrice, Condition: models.ConditionAbove}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.alert)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAlert)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	obs := Observation{Price: 150, Volume: 2_000_000, RSI: models.Of(72), MACDHist: models.Of(-0.4)}
	alert := func(typ models.AlertType, cond models.AlertCondition, target float64) models.Alert {
		return models.Alert{Symbol: "A", Type: typ, Condition: cond, Target: target}
	}

	tests := []struct {
		name     string
		alert    models.Alert
		obs      Observation
		fired    bool
		observed float64
	}{
		{"price above fires", alert(models.AlertPrice, models.ConditionAbove, 140), obs, true, 150},
		{"price equal does not fire", alert(models.AlertPrice, models.ConditionAbove, 150), obs, false, 150},
		{"price below", alert(models.AlertPrice, models.ConditionBelow, 160), obs, true, 150},
		{"volume above", alert(models.AlertVolume, models.ConditionAbove, 1e6), obs, true, 2e6},
		{"rsi above", alert(models.AlertRSI, models.ConditionAbove, 70), obs, true, 72},
		{"rsi below", alert(models.AlertRSI, models.ConditionBelow, 30), obs, false, 72},
		{"rsi undefined", alert(models.AlertRSI, models.ConditionAbove, 0), Observation{}, false, 0},
		{"macd crossunder", alert(models.AlertMACD, models.ConditionCrossunder, 0), obs, true, -0.4},
		{"macd crossover", alert(models.AlertMACD, models.ConditionCrossover, 0), obs, false, -0.4},
		{"macd undefined", alert(models.AlertMACD, models.ConditionCrossover, 0), Observation{}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fired, observed := Evaluate(tt.alert, tt.obs)
			assert.Equal(t, tt.fired, fired)
			assert.InDelta(t, tt.observed, observed, 1e-9)
		})
	}
}

func TestObserve(t *testing.T) {
	series := models.Series{{Timestamp: t0, Close: 10, Volume: 500}}
	res := models.AnalysisResult{
		LastClose:  10,
		Indicators: models.IndicatorSnapshot{RSI: models.Of(55), MACDHist: models.Of(0.2)},
	}
	obs := Observe(series, res)
	assert.Equal(t, 10.0, obs.Price)
	assert.EqualValues(t, 500, obs.Volume)
	assert.Equal(t, models.Of(55), obs.RSI)
	assert.Equal(t, models.Of(0.2), obs.MACDHist)
}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "nested", "alerts.yaml"))
}

func mustAlert(t *testing.T, symbol string, typ models.AlertType, cond models.AlertCondition, target float64) models.Alert {
	t.Helper()
	a, err := New(symbol, typ, cond, target, t0)
	require.NoError(t, err)
	return a
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := newStore(t)

	empty, err := s.Active("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	a := mustAlert(t, "MSFT", models.AlertPrice, models.ConditionAbove, 400)
	b := mustAlert(t, "AAPL", models.AlertRSI, models.ConditionBelow, 30)
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	reopened := NewFileStore(s.Path())
	all, err := reopened.Active("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.True(t, all[0].CreatedAt.Equal(t0))

	msft, err := reopened.Active("MSFT")
	require.NoError(t, err)
	require.Len(t, msft, 1)

	symbols, err := reopened.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestFileStoreAddRejectsInvalid(t *testing.T) {
	s := newStore(t)
	err := s.Add(models.Alert{Symbol: "A", Type: models.AlertVolume, Condition: models.ConditionBelow})
	assert.ErrorIs(t, err, ErrInvalidAlert)
}

func TestFileStoreRemove(t *testing.T) {
	s := newStore(t)
	a := mustAlert(t, "MSFT", models.AlertPrice, models.ConditionAbove, 400)
	require.NoError(t, s.Add(a))

	require.NoError(t, s.Remove(a.ID))
	active, err := s.Active("")
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, s.Remove(a.ID), ErrAlertNotFound)
}

func TestFileStoreCheckMovesToHistory(t *testing.T) {
	s := newStore(t)
	hit := mustAlert(t, "AAPL", models.AlertPrice, models.ConditionAbove, 100)
	miss := mustAlert(t, "AAPL", models.AlertPrice, models.ConditionBelow, 50)
	other := mustAlert(t, "MSFT", models.AlertPrice, models.ConditionAbove, 1)
	for _, a := range []models.Alert{hit, miss, other} {
		require.NoError(t, s.Add(a))
	}

	now := t0.Add(time.Hour)
	events, err := s.Check("AAPL", Observation{Price: 120}, now)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, hit.ID, events[0].Alert.ID)
	assert.Equal(t, 120.0, events[0].Observed)
	assert.Equal(t, now, events[0].Timestamp)

	active, err := s.Active("")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, miss.ID, active[0].ID)
	assert.Equal(t, other.ID, active[1].ID)

	history, err := s.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].TriggeredAt)
	assert.True(t, history[0].TriggeredAt.Equal(now))
	assert.Equal(t, 120.0, history[0].Observed)

	// Nothing fires on a second pass at the same price.
	events, err = s.Check("AAPL", Observation{Price: 120}, now)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFileStoreHistoryMostRecentFirst(t *testing.T) {
	s := newStore(t)
	first := mustAlert(t, "A", models.AlertPrice, models.ConditionAbove, 1)
	second := mustAlert(t, "B", models.AlertPrice, models.ConditionAbove, 1)
	require.NoError(t, s.Add(first))
	require.NoError(t, s.Add(second))

	_, err := s.Check("A", Observation{Price: 2}, t0)
	require.NoError(t, err)
	_, err = s.Check("B", Observation{Price: 2}, t0.Add(time.Minute))
	require.NoError(t, err)

	history, err := s.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestWatcherRunOnce(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Add(mustAlert(t, "AAPL", models.AlertPrice, models.ConditionAbove, 100)))
	require.NoError(t, s.Add(mustAlert(t, "MSFT", models.AlertVolume, models.ConditionAbove, 10)))
	require.NoError(t, s.Add(mustAlert(t, "BAD", models.AlertPrice, models.ConditionAbove, 1)))

	var observed []string
	obs := ObserverFunc(func(_ context.Context, symbol string) (Observation, error) {
		observed = append(observed, symbol)
		switch symbol {
		case "AAPL":
			return Observation{Price: 101}, nil
		case "MSFT":
			return Observation{Volume: 5}, nil
		}
		return Observation{}, errors.New("no data")
	})

	now := t0.Add(2 * time.Hour)
	w := NewWatcher(s, obs, infra.ClockFunc(func() time.Time { return now }))
	var published []models.AlertEvent
	w.Subscribe(func(ev models.AlertEvent) { published = append(published, ev) })

	events, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observe BAD")
	assert.Equal(t, []string{"AAPL", "BAD", "MSFT"}, observed)

	require.Len(t, events, 1)
	assert.Equal(t, "AAPL", events[0].Alert.Symbol)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, events, published)

	active, err := s.Active("")
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestWatcherRunOnceCanceled(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Add(mustAlert(t, "AAPL", models.AlertPrice, models.ConditionAbove, 100)))

	called := false
	w := NewWatcher(s, ObserverFunc(func(context.Context, string) (Observation, error) {
		called = true
		return Observation{}, nil
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWatcherStartRejectsBadSchedule(t *testing.T) {
	w := NewWatcher(newStore(t), ObserverFunc(func(context.Context, string) (Observation, error) {
		return Observation{}, nil
	}), nil)
	assert.Error(t, w.Start(context.Background(), "not a schedule"))

	require.NoError(t, w.Start(context.Background(), ""))
	w.Stop()
}
