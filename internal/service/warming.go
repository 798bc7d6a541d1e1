package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/openveg/directory-service/internal/metrics"
)

// WarmRoutine is one named warming step. Run returns the number of
// cache entries it populated.
type WarmRoutine struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// WarmResult reports the outcome of one WarmAll pass.
type WarmResult struct {
	ItemsWarmed int           `json:"items_warmed"`
	Duration    time.Duration `json:"duration"`
	Errors      []string      `json:"errors"`
	Skipped     bool          `json:"skipped"`
}

// CacheWarmer runs the registered routines on demand and on a timer.
// A run already in progress makes a new request no-op immediately,
// never queue: redundant concurrent warming only loads the store.
type CacheWarmer struct {
	routines   []WarmRoutine
	inProgress atomic.Bool
	log        zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCacheWarmer creates a warmer over the given routines.
func NewCacheWarmer(routines []WarmRoutine, log zerolog.Logger) *CacheWarmer {
	return &CacheWarmer{
		routines: routines,
		log:      log.With().Str("component", "cache_warmer").Logger(),
	}
}

// WarmAll runs every routine in order. A routine failure is recorded
// and does not abort the remaining routines; partial success is
// expected. When a run is already in progress the call returns
// immediately with Skipped set.
func (w *CacheWarmer) WarmAll(ctx context.Context) WarmResult {
	if !w.inProgress.CompareAndSwap(false, true) {
		w.log.Debug().Msg("warming already in progress, skipping")
		metrics.RecordWarmingRun("skipped")
		return WarmResult{Skipped: true}
	}
	defer w.inProgress.Store(false)

	start := time.Now()
	result := WarmResult{Errors: []string{}}

	for _, routine := range w.routines {
		items, err := w.runRoutine(ctx, routine)
		if err != nil {
			w.log.Warn().Err(err).Str("routine", routine.Name).Msg("warming routine failed")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", routine.Name, err))
			continue
		}
		result.ItemsWarmed += items
	}

	result.Duration = time.Since(start)
	if len(result.Errors) > 0 {
		metrics.RecordWarmingRun("partial")
	} else {
		metrics.RecordWarmingRun("success")
	}
	w.log.Info().
		Int("items_warmed", result.ItemsWarmed).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("cache warming complete")
	return result
}

// runRoutine isolates a routine's panic as an error so one bad routine
// cannot take down the pass.
func (w *CacheWarmer) runRoutine(ctx context.Context, routine WarmRoutine) (items int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return routine.Run(ctx)
}

// StartAutoWarming warms once immediately, then on every interval tick
// until StopAutoWarming. Calling it while running restarts the timer.
func (w *CacheWarmer) StartAutoWarming(interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	go func() {
		w.WarmAll(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.WarmAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	w.log.Info().Dur("interval", interval).Msg("auto warming started")
}

// StopAutoWarming cancels the warming timer. Idempotent.
func (w *CacheWarmer) StopAutoWarming() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
		w.log.Info().Msg("auto warming stopped")
	}
}
