package twin

import "testing"

func TestRanges_Observe(t *testing.T) {
	r := newRanges()
	for _, pos := range []int{2048, 1500, 3000, 2100} {
		r.Observe(ShoulderPan, pos)
	}

	if r.Current[ShoulderPan] != 2100 {
		t.Errorf("Current = %d, want 2100", r.Current[ShoulderPan])
	}
	if r.Min[ShoulderPan] != 1500 || r.Max[ShoulderPan] != 3000 {
		t.Errorf("range = [%d, %d], want [1500, 3000]", r.Min[ShoulderPan], r.Max[ShoulderPan])
	}
	if got := r.Span(ShoulderPan); got != 1500 {
		t.Errorf("Span = %d, want 1500", got)
	}
}

func TestRanges_Calibration(t *testing.T) {
	r := newRanges()
	for i, name := range AllMotors() {
		r.Observe(name, 1000+i)
		r.Observe(name, 3000+i)
	}

	cal := r.Calibration()
	if err := cal.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cal[Gripper].ID != 6 {
		t.Errorf("gripper ID = %d, want 6", cal[Gripper].ID)
	}
	if cal[ElbowFlex].RangeMin != 1002 || cal[ElbowFlex].RangeMax != 3002 {
		t.Errorf("elbow range = [%d, %d]", cal[ElbowFlex].RangeMin, cal[ElbowFlex].RangeMax)
	}
}

func TestRanges_CalibrationSkipsUnseenMotors(t *testing.T) {
	r := newRanges()
	r.Observe(WristRoll, 10)

	cal := r.Calibration()
	if len(cal) != 1 {
		t.Fatalf("len = %d, want 1", len(cal))
	}
	if cal[WristRoll].ID != 5 {
		t.Errorf("wrist_roll ID = %d, want 5", cal[WristRoll].ID)
	}
	if err := cal.Validate(); err == nil {
		t.Error("Validate() should reject a partial, zero-width calibration")
	}
}
