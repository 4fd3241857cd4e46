/*
scheduler.go - Periodic capacity-matrix backfill

PURPOSE:
  Every (member, quarter) pair must have a capacity record. The Planner
  keeps the matrix dense when members and quarters are created through it;
  this scheduler repairs gaps left by anything else (imports, manual SQL,
  older databases) by seeding the default capacity.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Never overwrites an existing record, including an explicit zero

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewCapacityScheduler(planner, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - planning/planner.go: BackfillMemberCapacities
*/
package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/warp/capacity-planner/planning"
)

// CapacityScheduler handles automated capacity-matrix backfill.
type CapacityScheduler struct {
	Planner       *planning.Planner
	CheckInterval time.Duration
	Enabled       bool

	log     *zap.Logger
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun atomic.Int64 // unix nanos
}

// NewCapacityScheduler creates a new scheduler.
func NewCapacityScheduler(planner *planning.Planner, log *zap.Logger) *CapacityScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CapacityScheduler{
		Planner:       planner,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log.Named("scheduler"),
	}
}

// Start begins the scheduler.
func (cs *CapacityScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.log.Info("disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.stop = make(chan struct{})
	cs.wg.Add(1)
	go cs.run()

	cs.log.Info("started", zap.Duration("interval", cs.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (cs *CapacityScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.ticker = nil
		cs.log.Info("stopped")
	}
}

func (cs *CapacityScheduler) run() {
	defer cs.wg.Done()

	cs.RunNow(context.Background())

	for {
		select {
		case <-cs.ticker.C:
			cs.RunNow(context.Background())
		case <-cs.stop:
			return
		}
	}
}

// RunNow triggers an immediate check and returns the number of records seeded.
func (cs *CapacityScheduler) RunNow(ctx context.Context) int {
	n, err := cs.Planner.BackfillMemberCapacities(ctx)
	if err != nil {
		cs.log.Error("backfill failed", zap.Error(err))
		return 0
	}
	cs.lastRun.Store(time.Now().UnixNano())
	if n > 0 {
		cs.log.Info("backfill completed", zap.Int("seeded", n))
	}
	return n
}

// NextRunTime returns when the next scheduled check will occur.
func (cs *CapacityScheduler) NextRunTime() time.Time {
	last := cs.lastRun.Load()
	if last == 0 {
		return time.Now()
	}
	return time.Unix(0, last).Add(cs.CheckInterval)
}
