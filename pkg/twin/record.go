package twin

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Ranges tracks the raw positions seen per motor while an arm is moved by hand.
type Ranges struct {
	Current map[MotorName]int
	Min     map[MotorName]int
	Max     map[MotorName]int
}

func newRanges() *Ranges {
	return &Ranges{
		Current: make(map[MotorName]int),
		Min:     make(map[MotorName]int),
		Max:     make(map[MotorName]int),
	}
}

// Observe records pos for name, widening its range when needed.
func (r *Ranges) Observe(name MotorName, pos int) {
	r.Current[name] = pos
	if lo, ok := r.Min[name]; !ok || pos < lo {
		r.Min[name] = pos
	}
	if hi, ok := r.Max[name]; !ok || pos > hi {
		r.Max[name] = pos
	}
}

// Span returns the width of the recorded range for name.
func (r *Ranges) Span(name MotorName) int {
	return r.Max[name] - r.Min[name]
}

// Calibration builds a calibration from the recorded ranges. Servo IDs follow
// motor order.
func (r *Ranges) Calibration() Calibration {
	cal := make(Calibration, len(r.Min))
	for i, name := range AllMotors() {
		if _, ok := r.Min[name]; !ok {
			continue
		}
		cal[name] = MotorCalibration{
			ID:       i + 1,
			RangeMin: r.Min[name],
			RangeMax: r.Max[name],
		}
	}
	return cal
}

// Recorder samples a limp SO-101 arm to record its range of motion.
type Recorder struct {
	bus    *feetech.Bus
	servos map[MotorName]*feetech.Servo
	ranges *Ranges
}

// OpenRecorder connects to the arm on port and disables torque so it can be moved freely.
func OpenRecorder(ctx context.Context, port string) (*Recorder, error) {
	bus, err := openBus(port)
	if err != nil {
		return nil, err
	}

	scanCtx, cancel := context.WithTimeout(ctx, probeWindow)
	found, err := bus.Scan(scanCtx, 1, servoCount)
	cancel()
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan %s: %w", port, err)
	}

	ids := make([]int, 0, len(found))
	byID := make(map[int]feetech.FoundServo, len(found))
	for _, s := range found {
		ids = append(ids, s.ID)
		byID[s.ID] = s
	}
	if !isSOArm(ids) {
		bus.Close()
		return nil, fmt.Errorf("not an SO-101 arm on %s (expected %d servos with IDs 1-%d)", port, servoCount, servoCount)
	}

	r := &Recorder{
		bus:    bus,
		servos: make(map[MotorName]*feetech.Servo, servoCount),
		ranges: newRanges(),
	}
	for i, name := range AllMotors() {
		s := byID[i+1]
		servo := feetech.NewServo(bus, s.ID, s.Model)
		if err := servo.Disable(ctx); err != nil {
			bus.Close()
			return nil, fmt.Errorf("disable %s: %w", name, err)
		}
		r.servos[name] = servo
	}
	if err := r.Sample(ctx); err != nil {
		bus.Close()
		return nil, err
	}
	return r, nil
}

// Sample reads every servo once. Motors that fail to respond keep their last reading.
func (r *Recorder) Sample(ctx context.Context) error {
	var failed int
	for _, name := range AllMotors() {
		pos, err := r.servos[name].Position(ctx)
		if err != nil {
			failed++
			continue
		}
		r.ranges.Observe(name, pos)
	}
	if failed == len(r.servos) {
		return fmt.Errorf("no servo responded")
	}
	return nil
}

// Ranges returns the ranges recorded so far.
func (r *Recorder) Ranges() *Ranges {
	return r.ranges
}

// Close closes the bus.
func (r *Recorder) Close() error {
	return r.bus.Close()
}
