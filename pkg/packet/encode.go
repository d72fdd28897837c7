package packet

import (
	"math"
	"strconv"
	"strings"

	"github.com/gwillem/rover/pkg/robot"
)

// EncodeDrive builds a drive packet. Right wheels go first on the wire.
func EncodeDrive(right, left [robot.WheelsPerSide]float64) string {
	fields := make([]float64, 0, FieldCount)
	fields = append(fields, right[:]...)
	fields = append(fields, left[:]...)
	return encode(TagDrive, fields)
}

// EncodeArm builds an arm packet from the joints in wire order.
// Missing joints are encoded as NaN.
func EncodeArm(arm robot.Arm) string {
	fields := make([]float64, 0, FieldCount)
	for _, name := range robot.AllJoints() {
		v, ok := arm[name]
		if !ok {
			fields = append(fields, math.NaN())
			continue
		}
		fields = append(fields, v)
	}
	return encode(TagArm, fields)
}

func encode(tag string, fields []float64) string {
	var sb strings.Builder
	sb.WriteString(tag)
	for _, v := range fields {
		sb.WriteString(Separator)
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return sb.String()
}
