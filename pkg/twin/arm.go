package twin

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

const (
	baudRate    = 1_000_000
	busTimeout  = 100 * time.Millisecond
	servoCount  = 6
	probeWindow = 2 * time.Second
)

// Arm is the local SO-101 arm that mirrors the rover.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// OpenArm opens the servo bus on port and prepares the calibrated servos.
func OpenArm(port string, cal Calibration) (*Arm, error) {
	bus, err := openBus(port)
	if err != nil {
		return nil, err
	}

	return &Arm{
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, cal.MotorIDs()...),
		calibration: cal,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos so the twin can be moved by hand.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// WritePositions writes normalized target positions to the motors.
// Motors without calibration are ignored.
func (a *Arm) WritePositions(ctx context.Context, positions map[MotorName]float64) error {
	raw := make(feetech.PositionMap, len(positions))
	for name, norm := range positions {
		cal, ok := a.calibration[name]
		if !ok {
			continue
		}
		raw[cal.ID] = cal.Denormalize(norm)
	}
	if len(raw) == 0 {
		return nil
	}

	if err := a.group.SetPositions(ctx, raw); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// Probe checks that port carries an SO-101 arm (six servos with IDs 1-6).
func Probe(ctx context.Context, port string) error {
	ctx, cancel := context.WithTimeout(ctx, probeWindow)
	defer cancel()

	bus, err := openBus(port)
	if err != nil {
		return err
	}
	defer bus.Close()

	servos, err := bus.Scan(ctx, 1, servoCount)
	if err != nil {
		return fmt.Errorf("scan %s: %w", port, err)
	}

	ids := make([]int, 0, len(servos))
	for _, s := range servos {
		ids = append(ids, s.ID)
	}
	if !isSOArm(ids) {
		return fmt.Errorf("not an SO-101 arm on %s (expected %d servos with IDs 1-%d, found %v)",
			port, servoCount, servoCount, ids)
	}
	return nil
}

func openBus(port string) (*feetech.Bus, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  busTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", port, err)
	}
	return bus, nil
}

func isSOArm(ids []int) bool {
	if len(ids) != servoCount {
		return false
	}

	seen := make(map[int]bool)
	for _, id := range ids {
		seen[id] = true
	}
	for i := 1; i <= servoCount; i++ {
		if !seen[i] {
			return false
		}
	}
	return true
}
