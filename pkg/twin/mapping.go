// Package twin mirrors the rover arm onto a local SO-101 arm, so an operator
// can watch the rover's arm pose on a physical model next to the ground station.
package twin

import (
	"math"

	"github.com/gwillem/rover/pkg/robot"
)

// MotorName identifies a motor in the twin arm.
type MotorName string

// Motor names for the SO-101 arm, matching servo IDs 1-6.
const (
	ShoulderPan  MotorName = "shoulder_pan"
	ShoulderLift MotorName = "shoulder_lift"
	ElbowFlex    MotorName = "elbow_flex"
	WristFlex    MotorName = "wrist_flex"
	WristRoll    MotorName = "wrist_roll"
	Gripper      MotorName = "gripper"
)

// AllMotors returns all motor names in servo ID order.
func AllMotors() []MotorName {
	return []MotorName{ShoulderPan, ShoulderLift, ElbowFlex, WristFlex, WristRoll, Gripper}
}

const (
	pwmNeutral = 128.0
	pwmSpan    = 127.5 // distance from neutral to either end of 0..255
)

// directJoints are rover joints that drive one twin motor each.
var directJoints = map[robot.JointName]MotorName{
	robot.Shoulder: ShoulderPan,
	robot.Gantry:   ShoulderLift,
	robot.Elbow:    ElbowFlex,
	robot.Claw:     Gripper,
}

// Targets converts rover arm PWM values into normalized twin positions in [-100, 100].
//
// The rover wrist is differential: both wrist motors turning the same way roll
// the claw, turning opposite ways flexes it. Joints with NaN values are skipped.
func Targets(arm robot.Arm) map[MotorName]float64 {
	targets := make(map[MotorName]float64, len(AllMotors()))
	for joint, motor := range directJoints {
		v, ok := arm[joint]
		if !ok || math.IsNaN(v) {
			continue
		}
		targets[motor] = deviation(v)
	}

	right, okR := arm[robot.WristRight]
	left, okL := arm[robot.WristLeft]
	if okR && okL && !math.IsNaN(right) && !math.IsNaN(left) {
		r, l := deviation(right), deviation(left)
		targets[WristRoll] = (r + l) / 2
		targets[WristFlex] = (r - l) / 2
	}
	return targets
}

// deviation maps a PWM value to [-100, 100] around neutral.
func deviation(pwm float64) float64 {
	return clamp((pwm-pwmNeutral)/pwmSpan*100, -100, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
