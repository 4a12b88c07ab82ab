package tick

import (
	"context"
	"sync"
	"time"

	"github.com/gitforged/server/internal/logger"
)

// Runner drives a tick function on two cadences. It is optional: deployments
// that trigger ticks externally (cron hitting the tick endpoint) don't start
// one.
type Runner struct {
	fastInterval time.Duration
	fullInterval time.Duration
	run          func(ctx context.Context, cadence Cadence) error

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewRunner creates a runner calling run on the given intervals.
func NewRunner(fastInterval, fullInterval time.Duration, run func(ctx context.Context, cadence Cadence) error) *Runner {
	return &Runner{
		fastInterval: fastInterval,
		fullInterval: fullInterval,
		run:          run,
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start begins the tick loop in a background goroutine.
func (r *Runner) Start() {
	go r.loop()
}

// Stop stops the tick loop and waits for the current tick to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	<-r.done
}

func (r *Runner) loop() {
	defer close(r.done)

	fast := time.NewTicker(r.fastInterval)
	defer fast.Stop()
	full := time.NewTicker(r.fullInterval)
	defer full.Stop()

	for {
		select {
		case <-fast.C:
			r.tick(Fast)
		case <-full.C:
			r.tick(Full)
		case <-r.stopChan:
			return
		}
	}
}

func (r *Runner) tick(cadence Cadence) {
	if err := r.run(context.Background(), cadence); err != nil {
		logger.Error("Tick failed", "cadence", string(cadence), "error", err)
	}
}
