package packet

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ArmPolicy decides what happens to arm fields that are missing or not numeric.
type ArmPolicy int

const (
	// ArmFill replaces missing or non-numeric arm fields with NaN and accepts the packet.
	ArmFill ArmPolicy = iota
	// ArmStrict rejects the whole packet with ErrMalformedArm.
	ArmStrict
)

func (p ArmPolicy) String() string {
	switch p {
	case ArmFill:
		return "fill"
	case ArmStrict:
		return "strict"
	default:
		return fmt.Sprintf("ArmPolicy(%d)", int(p))
	}
}

// Decoder turns raw packets into commands. The zero value uses ArmFill.
type Decoder struct {
	ArmPolicy ArmPolicy
}

var defaultDecoder Decoder

// Decode decodes raw with the default decoder.
func Decode(raw string) (Command, error) {
	return defaultDecoder.Decode(raw)
}

// Decode splits raw on the separator and decodes it by tag.
// Errors are always *DecodeError.
func (d Decoder) Decode(raw string) (Command, error) {
	tag, values, found := strings.Cut(raw, Separator)

	var fields []string
	if found {
		fields = strings.Split(values, Separator)
	}

	switch tag {
	case TagDrive:
		return decodeDrive(raw, fields)
	case TagArm:
		return d.decodeArm(raw, fields)
	default:
		return nil, &DecodeError{Raw: raw, Err: ErrUnknownCommand}
	}
}

func decodeDrive(raw string, fields []string) (Command, error) {
	if len(fields) != FieldCount {
		return nil, &DecodeError{
			Raw:    raw,
			Err:    ErrMalformedDrive,
			Detail: fmt.Sprintf("want %d fields, got %d", FieldCount, len(fields)),
		}
	}

	var cmd DriveCommand
	for i, field := range fields {
		v, err := parseField(field)
		if err != nil {
			return nil, &DecodeError{
				Raw:    raw,
				Err:    ErrMalformedDrive,
				Detail: fmt.Sprintf("field %d: %v", i+1, err),
			}
		}
		cmd.Values[i] = v
	}
	return cmd, nil
}

func (d Decoder) decodeArm(raw string, fields []string) (Command, error) {
	if d.ArmPolicy == ArmStrict && len(fields) != FieldCount {
		return nil, &DecodeError{
			Raw:    raw,
			Err:    ErrMalformedArm,
			Detail: fmt.Sprintf("want %d fields, got %d", FieldCount, len(fields)),
		}
	}

	var cmd ArmCommand
	for i := range cmd.Values {
		if i >= len(fields) {
			cmd.Values[i] = math.NaN()
			continue
		}
		v, err := parseField(fields[i])
		if err != nil {
			if d.ArmPolicy == ArmStrict {
				return nil, &DecodeError{
					Raw:    raw,
					Err:    ErrMalformedArm,
					Detail: fmt.Sprintf("field %d: %v", i+1, err),
				}
			}
			v = math.NaN()
		}
		cmd.Values[i] = v
	}
	return cmd, nil
}

// parseField parses a finite decimal number.
func parseField(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}
