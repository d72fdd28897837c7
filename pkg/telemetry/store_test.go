package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/rover/pkg/packet"
	"github.com/gwillem/rover/pkg/robot"
)

func ingest(s *Store, raw string) error {
	return s.Ingest(raw, DecodeAndReduce(packet.Decoder{}, raw))
}

func texts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestStore_Initial(t *testing.T) {
	s := NewStore()

	assert.Equal(t, robot.NewState(), s.State())
	assert.Empty(t, s.Log())
	assert.NoError(t, s.LastError())
	assert.Equal(t, Stats{}, s.Stats())
}

func TestStore_DriveScenario(t *testing.T) {
	s := NewStore()

	require.NoError(t, ingest(s, "D_1_2_3_4_5_6"))

	state := s.State()
	assert.Equal(t, []float64{1, 2, 3}, state.Drive.Right)
	assert.Equal(t, []float64{4, 5, 6}, state.Drive.Left)
	assert.Empty(t, state.Arm)
	assert.Equal(t, []string{"D_1_2_3_4_5_6"}, texts(s.Log()))
}

func TestStore_ArmScenario(t *testing.T) {
	s := NewStore()

	require.NoError(t, ingest(s, "A_10_20_30_40_50_60"))

	assert.Equal(t, robot.Arm{
		robot.Elbow:      10,
		robot.WristRight: 20,
		robot.WristLeft:  30,
		robot.Claw:       40,
		robot.Gantry:     50,
		robot.Shoulder:   60,
	}, s.State().Arm)
}

func TestStore_UnknownCommandScenario(t *testing.T) {
	s := NewStore()
	require.NoError(t, ingest(s, "D_1_2_3_4_5_6"))
	before := s.State()

	err := ingest(s, "Z_9")
	require.ErrorIs(t, err, packet.ErrUnknownCommand)

	assert.Equal(t, before, s.State())
	assert.ErrorIs(t, s.LastError(), packet.ErrUnknownCommand)

	log := s.Log()
	require.Len(t, log, 3)
	assert.Equal(t, KindPacket, log[1].Kind)
	assert.Equal(t, "Z_9", log[1].Text)
	assert.Equal(t, KindError, log[2].Kind)
	assert.Contains(t, log[2].Text, "unknown command")
	assert.Equal(t, Stats{Packets: 2, Errors: 1}, s.Stats())
}

func TestStore_MalformedDriveLeavesState(t *testing.T) {
	s := NewStore()
	require.NoError(t, ingest(s, "D_1_2_3_4_5_6"))
	before := s.State()

	for _, raw := range []string{"D_1_2_3_4_5", "D_1_2_3_4_5_6_7"} {
		assert.ErrorIs(t, ingest(s, raw), packet.ErrMalformedDrive)
		assert.Equal(t, before, s.State())
	}
}

func TestStore_LastErrorPersistsUntilCleared(t *testing.T) {
	s := NewStore()
	_ = ingest(s, "Z_9")
	require.NoError(t, ingest(s, "D_1_2_3_4_5_6"))

	assert.Error(t, s.LastError(), "a good packet does not clear the last error")

	s.ClearError()
	assert.NoError(t, s.LastError())
}

func TestStore_Event(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")

	s.Event("connection error: boom", boom)
	s.Event("connection closed", nil)

	assert.Equal(t, boom, s.LastError())
	log := s.Log()
	require.Len(t, log, 2)
	assert.Equal(t, KindEvent, log[0].Kind)
	assert.Equal(t, "connection closed", log[1].Text)
}

func TestStore_SubscribeNotifiesEveryCycle(t *testing.T) {
	s := NewStore()

	var updates []Update
	cancel := s.Subscribe(func(u Update) { updates = append(updates, u) })

	_ = ingest(s, "D_1_2_3_4_5_6")
	_ = ingest(s, "Z_9")
	s.Event("connection closed", nil)

	require.Len(t, updates, 3)
	assert.Equal(t, []string{"D_1_2_3_4_5_6"}, texts(updates[0].Entries))
	assert.Equal(t, []float64{1, 2, 3}, updates[0].State.Drive.Right)
	assert.Len(t, updates[1].Entries, 2)
	assert.ErrorIs(t, updates[1].LastError, packet.ErrUnknownCommand)
	assert.Equal(t, []string{"connection closed"}, texts(updates[2].Entries))

	cancel()
	cancel()
	_ = ingest(s, "D_1_2_3_4_5_6")
	assert.Len(t, updates, 3, "no updates after cancel")
}

func TestStore_SubscribersInOrder(t *testing.T) {
	s := NewStore()

	var order []string
	s.Subscribe(func(Update) { order = append(order, "first") })
	s.Subscribe(func(Update) { order = append(order, "second") })

	_ = ingest(s, "A_1_2_3_4_5_6")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestStore_ObserverCannotMutateState(t *testing.T) {
	s := NewStore()
	s.Subscribe(func(u Update) {
		if len(u.State.Drive.Right) > 0 {
			u.State.Drive.Right[0] = -1
		}
		u.State.Arm[robot.Claw] = -1
	})

	_ = ingest(s, "D_1_2_3_4_5_6")

	state := s.State()
	assert.Equal(t, 1.0, state.Drive.Right[0])
	assert.NotContains(t, state.Arm, robot.Claw)
}

func TestStore_LogCapacityEvictsOldest(t *testing.T) {
	s := NewStore(WithLogCapacity(3))

	for i := 0; i < 5; i++ {
		_ = ingest(s, fmt.Sprintf("D_%d_0_0_0_0_0", i))
	}

	assert.Equal(t, []string{
		"D_2_0_0_0_0_0",
		"D_3_0_0_0_0_0",
		"D_4_0_0_0_0_0",
	}, texts(s.Log()))
	assert.Equal(t, []string{"D_4_0_0_0_0_0"}, texts(s.Tail(1)))
	assert.Equal(t, uint64(5), s.Log()[2].Seq)
}

func TestStore_UnboundedByDefault(t *testing.T) {
	s := NewStore()
	for i := 0; i < 1000; i++ {
		_ = ingest(s, "D_1_2_3_4_5_6")
	}
	assert.Len(t, s.Log(), 1000)
}

func TestStore_EntryTimestamps(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return at }))

	_ = ingest(s, "D_1_2_3_4_5_6")

	e := s.Log()[0]
	assert.Equal(t, at, e.Time)
	assert.Equal(t, "[12:30:00] D_1_2_3_4_5_6", e.String())
}

func TestStore_Watch(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Watch(ctx)

	_ = ingest(s, "D_1_1_1_1_1_1")
	_ = ingest(s, "D_2_2_2_2_2_2")

	select {
	case u := <-ch:
		assert.Equal(t, []float64{2, 2, 2}, u.State.Drive.Right, "watch keeps only the latest update")
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// writes after the watcher is gone must not block
	_ = ingest(s, "D_3_3_3_3_3_3")
}

func TestStore_SetLink(t *testing.T) {
	s := NewStore()
	var got Link
	s.Subscribe(func(u Update) { got = u.Link })

	s.SetLink("abc", "open")

	assert.Equal(t, Link{Session: "abc", Status: "open"}, s.Link())
	assert.Equal(t, s.Link(), got)
}

func TestStore_Snapshot(t *testing.T) {
	s := NewStore()
	require.NoError(t, ingest(s, "D_1_2_3_4_5_6"))
	require.Error(t, ingest(s, "X_1"))
	s.SetLink("abc", "open")

	snap := s.Snapshot()
	assert.Equal(t, []float64{4, 5, 6}, snap.State.Drive.Left)
	assert.Equal(t, Stats{Packets: 2, Errors: 1}, snap.Stats)
	assert.ErrorIs(t, snap.LastError, packet.ErrUnknownCommand)
	assert.Equal(t, "abc", snap.Link.Session)
	assert.Empty(t, snap.Entries)

	snap.State.Drive.Left[0] = 99
	assert.Equal(t, 4.0, s.State().Drive.Left[0])
}
