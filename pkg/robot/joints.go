// Package robot describes the rover state reported over the telemetry link.
package robot

// JointName identifies a joint in the rover arm.
type JointName string

// Joint names for the rover arm, keyed the way the ground station displays them.
const (
	Elbow      JointName = "elbow"
	WristRight JointName = "wristRight"
	WristLeft  JointName = "wristLeft"
	Claw       JointName = "claw"
	Gantry     JointName = "gantry"
	Shoulder   JointName = "shoulder"
)

// WheelsPerSide is the number of drive wheels on each side of the rover.
const WheelsPerSide = 3

// AllJoints returns all joint names in wire order (the order of the fields in an arm packet).
func AllJoints() []JointName {
	return []JointName{
		Elbow,
		WristRight,
		WristLeft,
		Claw,
		Gantry,
		Shoulder,
	}
}
