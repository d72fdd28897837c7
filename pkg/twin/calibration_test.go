package twin

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fullCalibration() Calibration {
	cal := Calibration{}
	for i, name := range AllMotors() {
		cal[name] = MotorCalibration{ID: i + 1, RangeMin: 1000, RangeMax: 3000}
	}
	return cal
}

func TestMotorCalibration_Normalize(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, -100.0}, // min -> -100
		{3000, 100.0},  // max -> 100
		{2000, 0.0},    // mid -> 0
		{1500, -50.0},
		{2500, 50.0},
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestMotorCalibration_Denormalize(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		norm     float64
		expected int
	}{
		{-100.0, 1000},
		{100.0, 3000},
		{0.0, 2000},
		{-50.0, 1500},
		{50.0, 2500},
		{150.0, 3000},  // clamped
		{-400.0, 1000}, // clamped
	}

	for _, tt := range tests {
		got := cal.Denormalize(tt.norm)
		if got != tt.expected {
			t.Errorf("Denormalize(%f) = %d, want %d", tt.norm, got, tt.expected)
		}
	}
}

func TestMotorCalibration_RoundTrip(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 823,
		RangeMax: 3540,
	}

	for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 100 {
		norm := cal.Normalize(raw)
		back := cal.Denormalize(norm)
		if math.Abs(float64(back-raw)) > 1 {
			t.Errorf("Round-trip failed: %d -> %f -> %d", raw, norm, back)
		}
	}
}

func TestCalibration_MotorIDs(t *testing.T) {
	ids := fullCalibration().MotorIDs()
	expected := []int{1, 2, 3, 4, 5, 6}

	if len(ids) != len(expected) {
		t.Fatalf("MotorIDs returned %d IDs, want %d", len(ids), len(expected))
	}
	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("MotorIDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestCalibration_Validate(t *testing.T) {
	if err := fullCalibration().Validate(); err != nil {
		t.Errorf("full calibration rejected: %v", err)
	}

	missing := fullCalibration()
	delete(missing, Gripper)
	if err := missing.Validate(); err == nil || !strings.Contains(err.Error(), "gripper") {
		t.Errorf("Validate() = %v, want missing gripper", err)
	}

	empty := fullCalibration()
	empty[WristRoll] = MotorCalibration{ID: 5, RangeMin: 2000, RangeMax: 2000}
	if err := empty.Validate(); err == nil {
		t.Error("empty range should be rejected")
	}
}

func TestLoadCalibration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "twin.json")
	data := `{
  "shoulder_pan":  {"id": 1, "drive_mode": 0, "homing_offset": 12, "range_min": 800, "range_max": 3300},
  "shoulder_lift": {"id": 2, "drive_mode": 0, "homing_offset": 0, "range_min": 900, "range_max": 3100},
  "elbow_flex":    {"id": 3, "drive_mode": 0, "homing_offset": 0, "range_min": 850, "range_max": 3050},
  "wrist_flex":    {"id": 4, "drive_mode": 0, "homing_offset": 0, "range_min": 870, "range_max": 3150},
  "wrist_roll":    {"id": 5, "drive_mode": 0, "homing_offset": 0, "range_min": 100, "range_max": 4000},
  "gripper":       {"id": 6, "drive_mode": 0, "homing_offset": 0, "range_min": 2000, "range_max": 3400}
}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cal, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	if got := cal[ShoulderPan].HomingOffset; got != 12 {
		t.Errorf("shoulder_pan homing_offset = %d, want 12", got)
	}
	if got := cal[Gripper].RangeMin; got != 2000 {
		t.Errorf("gripper range_min = %d, want 2000", got)
	}

	if _, err := LoadCalibration(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestCalibration_SaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twin.json")
	want := fullCalibration()
	if err := want.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	got, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	for _, name := range AllMotors() {
		if got[name] != want[name] {
			t.Errorf("%s = %+v, want %+v", name, got[name], want[name])
		}
	}
}

func TestIsSOArm(t *testing.T) {
	tests := []struct {
		ids  []int
		want bool
	}{
		{[]int{1, 2, 3, 4, 5, 6}, true},
		{[]int{6, 5, 4, 3, 2, 1}, true},
		{[]int{1, 2, 3, 4, 5}, false},
		{[]int{1, 2, 3, 4, 5, 7}, false},
		{[]int{1, 1, 2, 3, 4, 5}, false},
	}
	for _, tt := range tests {
		if got := isSOArm(tt.ids); got != tt.want {
			t.Errorf("isSOArm(%v) = %v, want %v", tt.ids, got, tt.want)
		}
	}
}
