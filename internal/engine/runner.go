package engine

import (
	"context"
	"sync"
	"time"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/logger"
	"quant-desk/internal/types"
)

// Runner drives an Engine on a fixed interval. Stop cancels the loop and
// the cycle in flight.
type Runner struct {
	eng      interfaces.Engine
	interval time.Duration
	eod      interfaces.EodSummarizer
	onResult func(types.CycleResult)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type RunnerOption func(*Runner)

// WithEOD checks for a due end-of-day report after every cycle.
func WithEOD(s interfaces.EodSummarizer) RunnerOption {
	return func(r *Runner) { r.eod = s }
}

// WithResultHook is called with every completed cycle result.
func WithResultHook(fn func(types.CycleResult)) RunnerOption {
	return func(r *Runner) { r.onResult = fn }
}

func NewRunner(eng interfaces.Engine, interval time.Duration, opts ...RunnerOption) *Runner {
	r := &Runner{eng: eng, interval: interval}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start launches the loop under parent. It reports false if already running.
func (r *Runner) Start(parent context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
	return true
}

// Stop cancels the loop and waits for the in-flight cycle to unwind.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return false
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	return true
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.step(ctx)
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "Decision loop stopped")
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) step(ctx context.Context) {
	res, err := r.eng.Cycle(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Cycle failed", err)
		return
	}
	if !res.Cancelled && r.onResult != nil {
		r.onResult(res)
	}
	if r.eod != nil {
		if ok, day := r.eod.ShouldRunNow(); ok {
			if _, err := r.eod.SummarizeDay(day); err != nil {
				logger.ErrorWithErr(ctx, "EOD summary failed", err)
			}
		}
	}
}
