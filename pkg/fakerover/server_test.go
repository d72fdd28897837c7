package fakerover

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/rover/pkg/link"
	"github.com/gwillem/rover/pkg/telemetry"
)

func TestServer_FeedsGroundStation(t *testing.T) {
	srv := httptest.NewServer(NewServer(Config{Hz: 200, NoiseEvery: 5}, nil))
	defer srv.Close()

	store := telemetry.NewStore()
	m := link.NewManager(link.Config{Address: srv.URL}, link.WebsocketDialer{}, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		s := store.State()
		return s.Drive.Initialized() && s.Arm.Complete() && store.Stats().Errors > 0
	}, 3*time.Second, 5*time.Millisecond)

	assert.Equal(t, link.StatusOpen, m.Status(), "noise does not close the session")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestServer_Batch(t *testing.T) {
	srv := httptest.NewServer(NewServer(Config{Hz: 200, Batch: true}, nil))
	defer srv.Close()

	store := telemetry.NewStore()
	m := link.NewManager(link.Config{Address: srv.URL}, link.WebsocketDialer{}, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.Eventually(t, func() bool {
		s := store.State()
		return s.Drive.Initialized() && s.Arm.Complete()
	}, 3*time.Second, 5*time.Millisecond)
	assert.NoError(t, store.LastError())
}

func TestNewServer_ClampsHz(t *testing.T) {
	tests := []struct {
		hz, want int
	}{
		{0, defaultHz},
		{-5, defaultHz},
		{60, 60},
		{2_000_000_000, MaxHz},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewServer(Config{Hz: tt.hz}, nil).cfg.Hz, "Hz %d", tt.hz)
	}
}
