package packet

import (
	"testing"

	"github.com/gwillem/rover/pkg/robot"
)

func TestEncodeDrive(t *testing.T) {
	got := EncodeDrive([3]float64{255, 255, 255}, [3]float64{0, 0, 0})
	if want := "D_255_255_255_0_0_0"; got != want {
		t.Errorf("EncodeDrive = %q, want %q", got, want)
	}
}

func TestEncodeArm(t *testing.T) {
	arm := robot.Arm{
		robot.Shoulder:   1,
		robot.WristRight: 2,
		robot.WristLeft:  3,
		robot.Claw:       4,
		robot.Gantry:     5,
		robot.Elbow:      6.5,
	}
	got := EncodeArm(arm)
	if want := "A_6.5_2_3_4_5_1"; got != want {
		t.Errorf("EncodeArm = %q, want %q", got, want)
	}
}

func TestEncode_DecodesBack(t *testing.T) {
	raw := EncodeDrive([3]float64{1, 2, 3}, [3]float64{4, 5, 6})
	cmd, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode(%q): %v", raw, err)
	}
	drive := cmd.(DriveCommand)
	if drive.Right()[0] != 1 || drive.Left()[2] != 6 {
		t.Errorf("encoded drive decoded to %v", drive.Values)
	}

	raw = EncodeArm(robot.Arm{robot.Elbow: 9})
	cmd, err = Decode(raw)
	if err != nil {
		t.Fatalf("Decode(%q): %v", raw, err)
	}
	if got := cmd.(ArmCommand).Values[0]; got != 9 {
		t.Errorf("elbow = %v, want 9", got)
	}
}
