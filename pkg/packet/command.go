// Package packet decodes the underscore-delimited telemetry packets sent by the rover.
//
// Two packet types exist on the wire:
//
//	D_<r1>_<r2>_<r3>_<l1>_<l2>_<l3>                         drive, right wheels first
//	A_<elbow>_<wristR>_<wristL>_<claw>_<gantry>_<shoulder>  arm
//
// Decoding is pure: the same input always yields the same command or error.
package packet

import "github.com/gwillem/rover/pkg/robot"

const (
	TagDrive = "D"
	TagArm   = "A"

	// Separator splits the tag and value fields of a packet.
	Separator = "_"

	// FieldCount is the number of value fields in drive and arm packets.
	FieldCount = 6
)

// Command is a decoded packet. It is implemented by DriveCommand and ArmCommand only.
type Command interface {
	Tag() string
	command()
}

// DriveCommand carries wheel values in wire order: three right wheels, then three left wheels.
type DriveCommand struct {
	Values [FieldCount]float64
}

func (DriveCommand) Tag() string { return TagDrive }
func (DriveCommand) command()    {}

// Right returns the right wheel values.
func (c DriveCommand) Right() []float64 {
	return []float64{c.Values[0], c.Values[1], c.Values[2]}
}

// Left returns the left wheel values.
func (c DriveCommand) Left() []float64 {
	return []float64{c.Values[3], c.Values[4], c.Values[5]}
}

// ArmCommand carries joint values in the order of robot.AllJoints.
// Values may be NaN when the packet was decoded with ArmFill.
type ArmCommand struct {
	Values [FieldCount]float64
}

func (ArmCommand) Tag() string { return TagArm }
func (ArmCommand) command()    {}

// Joints returns the values keyed by joint name.
func (c ArmCommand) Joints() robot.Arm {
	arm := make(robot.Arm, FieldCount)
	for i, name := range robot.AllJoints() {
		arm[name] = c.Values[i]
	}
	return arm
}
