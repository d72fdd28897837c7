package robot

import "math"

// Drive holds the last reported wheel values for each side.
// Both slices are empty until the first drive update and hold
// exactly WheelsPerSide values afterwards.
type Drive struct {
	Left  []float64 `json:"left"`
	Right []float64 `json:"right"`
}

// Arm maps each joint to its last reported value. It is either empty
// or holds all joints.
type Arm map[JointName]float64

// State is a snapshot of rover telemetry.
type State struct {
	Drive Drive `json:"drive"`
	Arm   Arm   `json:"arm"`
}

// NewState returns the state before any telemetry has arrived.
func NewState() State {
	return State{
		Drive: Drive{Left: []float64{}, Right: []float64{}},
		Arm:   Arm{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{
		Drive: s.Drive.Clone(),
		Arm:   s.Arm.Clone(),
	}
}

// Clone returns a deep copy of d.
func (d Drive) Clone() Drive {
	return Drive{
		Left:  append([]float64{}, d.Left...),
		Right: append([]float64{}, d.Right...),
	}
}

// Initialized returns true once both sides carry a full set of wheel values.
func (d Drive) Initialized() bool {
	return len(d.Left) == WheelsPerSide && len(d.Right) == WheelsPerSide
}

// Clone returns a deep copy of a. A nil arm clones to an empty one.
func (a Arm) Clone() Arm {
	out := make(Arm, len(a))
	for name, v := range a {
		out[name] = v
	}
	return out
}

// Complete returns true if every joint has a value.
func (a Arm) Complete() bool {
	for _, name := range AllJoints() {
		if _, ok := a[name]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether a and b hold the same joint values.
// NaN values compare equal to each other.
func (a Arm) Equal(b Arm) bool {
	if len(a) != len(b) {
		return false
	}
	for name, v := range a {
		w, ok := b[name]
		if !ok {
			return false
		}
		if v != w && !(math.IsNaN(v) && math.IsNaN(w)) {
			return false
		}
	}
	return true
}
