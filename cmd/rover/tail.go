package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/gwillem/rover/pkg/robot"
	"github.com/gwillem/rover/pkg/telemetry"
)

type TailCommand struct {
	Packets bool `long:"packets" description:"Log every raw packet, not only state changes"`
	NoTwin  bool `long:"no-twin" description:"Do not drive the configured twin arm"`
}

func (c *TailCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := newStation(cfg, logger)
	st.store.Subscribe(func(u telemetry.Update) {
		logUpdate(logger, u, c.Packets)
	})

	if cfg.Twin.Enabled() && !c.NoTwin {
		stopTwin, err := startTwin(ctx, cfg.Twin, st.store, logger)
		if err != nil {
			return err
		}
		defer stopTwin()
	}

	logger.Info("Tailing rover", zap.String("address", cfg.Address))
	err = st.manager.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	stats := st.store.Stats()
	logger.Info("Stopped",
		zap.String("status", st.manager.Status().String()),
		zap.Uint64("packets", stats.Packets),
		zap.Uint64("errors", stats.Errors))
	return err
}

// logUpdate writes one store update as log lines. Rejected packets and
// connection events are always logged; accepted packets log the resulting
// state, and with packets set also the raw text.
func logUpdate(logger *zap.Logger, u telemetry.Update, packets bool) {
	rejected := false
	for _, e := range u.Entries {
		if e.Kind == telemetry.KindError {
			rejected = true
		}
	}

	for _, e := range u.Entries {
		switch e.Kind {
		case telemetry.KindPacket:
			if packets {
				logger.Info("Packet", zap.Uint64("seq", e.Seq), zap.String("raw", e.Text))
			}
		case telemetry.KindError:
			logger.Warn("Rejected packet", zap.Uint64("seq", e.Seq), zap.Error(u.LastError))
		case telemetry.KindEvent:
			logger.Info("Link", zap.String("event", e.Text), zap.String("session", u.Link.Session))
		}
	}

	if len(u.Entries) > 0 && u.Entries[0].Kind == telemetry.KindPacket && !rejected {
		logger.Info("State", stateFields(u.State)...)
	}
}

func stateFields(s robot.State) []zap.Field {
	fields := []zap.Field{
		zap.Float64s("right", s.Drive.Right),
		zap.Float64s("left", s.Drive.Left),
	}
	for _, name := range robot.AllJoints() {
		if v, ok := s.Arm[name]; ok {
			fields = append(fields, zap.Float64(string(name), v))
		}
	}
	return fields
}
