package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gwillem/rover/pkg/link"
	"github.com/gwillem/rover/pkg/packet"
	"github.com/gwillem/rover/pkg/robot"
	"github.com/gwillem/rover/pkg/telemetry"
	"github.com/gwillem/rover/pkg/twin"
)

const dialTimeout = 5 * time.Second

// station is the receive path: the store plus the manager feeding it.
type station struct {
	store   *telemetry.Store
	manager *link.Manager
}

func linkConfig(cfg *robot.Config) link.Config {
	policy := packet.ArmFill
	if cfg.StrictArm {
		policy = packet.ArmStrict
	}
	return link.Config{
		Address: cfg.Address,
		Decoder: packet.Decoder{ArmPolicy: policy},
		Reconnect: link.Reconnect{
			MaxRetries:     cfg.Reconnect.MaxRetries,
			InitialBackoff: time.Duration(cfg.Reconnect.InitialBackoff),
			MaxBackoff:     time.Duration(cfg.Reconnect.MaxBackoff),
		},
	}
}

func newStation(cfg *robot.Config, logger *zap.Logger) *station {
	store := telemetry.NewStore(
		telemetry.WithLogCapacity(cfg.LogCapacity),
		telemetry.WithLogger(logger.Named("store")),
	)
	manager := link.NewManager(
		linkConfig(cfg),
		link.WebsocketDialer{HandshakeTimeout: dialTimeout},
		store,
		link.WithLogger(logger.Named("link")),
	)
	return &station{store: store, manager: manager}
}

// startTwin connects the configured twin arm and makes it follow the store.
// The returned function stops following and releases the arm.
func startTwin(ctx context.Context, cfg robot.TwinConfig, store *telemetry.Store, logger *zap.Logger) (func(), error) {
	cal, err := twin.LoadCalibration(cfg.Calibration)
	if err != nil {
		return nil, err
	}
	arm, err := twin.OpenArm(cfg.Port, cal)
	if err != nil {
		return nil, fmt.Errorf("open twin: %w", err)
	}
	if err := arm.Enable(ctx); err != nil {
		arm.Close()
		return nil, fmt.Errorf("enable twin: %w", err)
	}

	logger = logger.Named("twin")
	follower := twin.NewFollower(arm, logger)
	unsubscribe := store.Subscribe(follower.Observe)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		follower.Run(ctx)
	}()
	logger.Info("Twin following", zap.String("port", cfg.Port))

	return func() {
		unsubscribe()
		cancel()
		<-done
		if err := arm.Disable(context.Background()); err != nil {
			logger.Warn("Disable twin", zap.Error(err))
		}
		arm.Close()
	}, nil
}
