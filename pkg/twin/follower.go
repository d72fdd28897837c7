package twin

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/gwillem/rover/pkg/robot"
	"github.com/gwillem/rover/pkg/telemetry"
)

// Positioner moves a set of motors to normalized positions. *Arm implements it.
type Positioner interface {
	WritePositions(ctx context.Context, positions map[MotorName]float64) error
}

// Follower is a store observer that moves the twin whenever the rover arm changes.
// Observe never blocks; Run does the bus writes.
type Follower struct {
	target Positioner
	logger *zap.Logger

	mu     sync.Mutex
	last   robot.Arm
	writes chan map[MotorName]float64
	errors int
}

// NewFollower creates a follower that writes to target.
func NewFollower(target Positioner, logger *zap.Logger) *Follower {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Follower{
		target: target,
		logger: logger,
		writes: make(chan map[MotorName]float64, 1),
	}
}

// Observe is meant to be passed to telemetry.Store.Subscribe.
func (f *Follower) Observe(u telemetry.Update) {
	arm := u.State.Arm
	if !arm.Complete() {
		return
	}

	f.mu.Lock()
	if f.last != nil && f.last.Equal(arm) {
		f.mu.Unlock()
		return
	}
	f.last = arm.Clone()
	f.mu.Unlock()

	targets := Targets(arm)
	if len(targets) == 0 {
		return
	}
	f.queue(targets)
}

// queue keeps only the newest targets when the bus falls behind.
func (f *Follower) queue(targets map[MotorName]float64) {
	select {
	case f.writes <- targets:
	default:
		select {
		case <-f.writes:
		default:
		}
		select {
		case f.writes <- targets:
		default:
		}
	}
}

// Run writes queued targets until ctx is done. Write errors are logged and the
// twin keeps following.
func (f *Follower) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case targets := <-f.writes:
			if err := f.target.WritePositions(ctx, targets); err != nil {
				f.mu.Lock()
				f.errors++
				f.mu.Unlock()
				f.logger.Warn("Twin write failed", zap.Error(err))
			}
		}
	}
}

// Errors returns how many writes have failed.
func (f *Follower) Errors() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors
}
