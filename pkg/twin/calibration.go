package twin

import (
	"encoding/json"
	"fmt"
	"os"
)

// MotorCalibration holds calibration data for a single motor.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
// The file format is the one LeRobot writes.
type Calibration map[MotorName]MotorCalibration

// LoadCalibration loads and validates calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cal, nil
}

// Validate checks that every motor is calibrated with a usable range.
func (c Calibration) Validate() error {
	for _, name := range AllMotors() {
		mc, ok := c[name]
		if !ok {
			return fmt.Errorf("motor %s is not calibrated", name)
		}
		if mc.RangeMax <= mc.RangeMin {
			return fmt.Errorf("motor %s has an empty range [%d, %d]", name, mc.RangeMin, mc.RangeMax)
		}
	}
	return nil
}

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value to a raw servo position.
// Values outside [-100, 100] are clamped so the twin never leaves its calibrated range.
func (c MotorCalibration) Denormalize(norm float64) int {
	norm = clamp(norm, -100, 100)
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// MotorIDs returns the servo IDs for all motors in the calibration, in servo order.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// SaveTo writes the calibration as indented JSON.
func (c Calibration) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
