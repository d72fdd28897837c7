// Package fakerover plays a scripted rover over a websocket, for exercising the
// ground station without hardware.
package fakerover

import (
	"time"

	"github.com/gwillem/rover/pkg/packet"
	"github.com/gwillem/rover/pkg/robot"
)

// PWM levels used by the rover controls. 128 is neutral.
const (
	Reverse = 0.0
	Neutral = 128.0
	Forward = 255.0
)

// Frame is a full set of drive and arm values.
type Frame struct {
	Right [robot.WheelsPerSide]float64
	Left  [robot.WheelsPerSide]float64
	Arm   robot.Arm
}

// Maneuver holds a frame for a while.
type Maneuver struct {
	Name     string
	Frame    Frame
	Duration time.Duration
}

func wheels(v float64) [robot.WheelsPerSide]float64 {
	return [robot.WheelsPerSide]float64{v, v, v}
}

func neutralArm() robot.Arm {
	arm := robot.Arm{}
	for _, name := range robot.AllJoints() {
		arm[name] = Neutral
	}
	return arm
}

func armWith(overrides robot.Arm) robot.Arm {
	arm := neutralArm()
	for name, v := range overrides {
		arm[name] = v
	}
	return arm
}

func drive(right, left float64) Frame {
	return Frame{Right: wheels(right), Left: wheels(left), Arm: neutralArm()}
}

func arm(overrides robot.Arm) Frame {
	return Frame{Right: wheels(Neutral), Left: wheels(Neutral), Arm: armWith(overrides)}
}

// DefaultScript drives the rover through every control the ground station knows about.
func DefaultScript() []Maneuver {
	step := 2 * time.Second
	return []Maneuver{
		{"idle", drive(Neutral, Neutral), step},
		{"forward", drive(Forward, Forward), step},
		{"reverse", drive(Reverse, Reverse), step},
		{"turn left", drive(Forward, Reverse), step},
		{"turn right", drive(Reverse, Forward), step},
		{"gantry up", arm(robot.Arm{robot.Gantry: Forward}), step},
		{"gantry down", arm(robot.Arm{robot.Gantry: Reverse}), step},
		{"open claw", arm(robot.Arm{robot.Claw: Forward}), step},
		{"close claw", arm(robot.Arm{robot.Claw: Reverse}), step},
		{"elbow up", arm(robot.Arm{robot.Elbow: Forward}), step},
		{"wrist clockwise", arm(robot.Arm{robot.WristRight: Forward}), step},
		{"wrist counterclockwise", arm(robot.Arm{robot.WristLeft: Forward}), step},
		{"claw up", arm(robot.Arm{robot.WristRight: Forward, robot.WristLeft: Reverse}), step},
		{"shoulder clockwise", arm(robot.Arm{robot.Shoulder: Forward}), step},
		{"shoulder counterclockwise", arm(robot.Arm{robot.Shoulder: Reverse}), step},
	}
}

// noisePackets are sent in rotation when noise is enabled.
var noisePackets = []string{
	"D_1_2_3_4_5",
	"X_1_2",
	"D_128_128_128_128_128_oops",
	"ping",
}

// Generator turns a script into packets, one tick at a time. Like the rover
// controls, it only sends a packet when the values it carries change.
type Generator struct {
	script     []Maneuver
	hz         int
	noiseEvery int

	tick      int
	lastDrive string
	lastArm   string
	noise     int
}

// NewGenerator creates a generator ticking at hz. noiseEvery > 0 adds an invalid
// packet every noiseEvery ticks.
func NewGenerator(script []Maneuver, hz, noiseEvery int) *Generator {
	if hz <= 0 {
		hz = 30
	}
	return &Generator{script: script, hz: hz, noiseEvery: noiseEvery}
}

// Maneuver returns the maneuver for the current tick, or the zero Maneuver
// for an empty script.
func (g *Generator) Maneuver() Maneuver {
	if len(g.script) == 0 {
		return Maneuver{}
	}
	return g.script[g.index()]
}

func (g *Generator) index() int {
	var total int
	ticks := make([]int, len(g.script))
	for i, m := range g.script {
		n := int(m.Duration * time.Duration(g.hz) / time.Second)
		if n < 1 {
			n = 1
		}
		ticks[i] = n
		total += n
	}

	at := g.tick % total
	for i, n := range ticks {
		if at < n {
			return i
		}
		at -= n
	}
	return len(g.script) - 1
}

// Step advances one tick and returns the packets to send for it.
func (g *Generator) Step() []string {
	if len(g.script) == 0 {
		return nil
	}
	frame := g.Maneuver().Frame
	g.tick++

	var out []string
	if p := packet.EncodeDrive(frame.Right, frame.Left); p != g.lastDrive {
		g.lastDrive = p
		out = append(out, p)
	}
	if p := packet.EncodeArm(frame.Arm); p != g.lastArm {
		g.lastArm = p
		out = append(out, p)
	}
	if g.noiseEvery > 0 && g.tick%g.noiseEvery == 0 {
		out = append(out, noisePackets[g.noise%len(noisePackets)])
		g.noise++
	}
	return out
}
