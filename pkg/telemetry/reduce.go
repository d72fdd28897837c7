// Package telemetry folds decoded packets into rover state and keeps that state,
// together with the packet log, available to observers.
package telemetry

import (
	"errors"
	"fmt"

	"github.com/gwillem/rover/pkg/packet"
	"github.com/gwillem/rover/pkg/robot"
)

var ErrUnsupportedCommand = errors.New("unsupported command")

// StepFunc computes the next state from the previous one.
type StepFunc func(prev robot.State) (robot.State, error)

// Reduce returns the state that results from applying cmd to prev.
// prev is never modified; fields cmd does not target are carried over as is.
func Reduce(prev robot.State, cmd packet.Command) (robot.State, error) {
	switch c := cmd.(type) {
	case packet.DriveCommand:
		return robot.State{
			Drive: robot.Drive{Right: c.Right(), Left: c.Left()},
			Arm:   prev.Arm,
		}, nil
	case packet.ArmCommand:
		return robot.State{
			Drive: prev.Drive,
			Arm:   c.Joints(),
		}, nil
	default:
		return prev, fmt.Errorf("%w: %T", ErrUnsupportedCommand, cmd)
	}
}

// DecodeAndReduce returns the step that decodes raw with d and reduces the result.
func DecodeAndReduce(d packet.Decoder, raw string) StepFunc {
	return func(prev robot.State) (robot.State, error) {
		cmd, err := d.Decode(raw)
		if err != nil {
			return prev, err
		}
		return Reduce(prev, cmd)
	}
}
