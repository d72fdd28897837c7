package fakerover

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = time.Second
	defaultHz = 30
	MaxHz     = 1000
)

// Config holds configuration for the fake rover.
type Config struct {
	Hz         int        // ticks per second, at most MaxHz
	NoiseEvery int        // send an invalid packet every N ticks; 0 disables
	Batch      bool       // send all packets of a tick in one newline-separated message
	Script     []Maneuver // defaults to DefaultScript
}

// Server streams the script to every websocket client that connects.
type Server struct {
	cfg      Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a fake rover.
func NewServer(cfg Config, logger *zap.Logger) *Server {
	if cfg.Hz <= 0 {
		cfg.Hz = defaultHz
	}
	if cfg.Hz > MaxHz {
		cfg.Hz = MaxHz
	}
	if len(cfg.Script) == 0 {
		cfg.Script = DefaultScript()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and streams packets until the client leaves.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.Close()

	logger := s.logger.With(zap.String("remote", r.RemoteAddr))
	logger.Info("Client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reading is required to process close frames from the client.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := s.stream(ctx, conn, logger); err != nil {
		logger.Info("Client disconnected", zap.Error(err))
		return
	}

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "rover shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	logger.Info("Client disconnected")
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn, logger *zap.Logger) error {
	gen := NewGenerator(s.cfg.Script, s.cfg.Hz, s.cfg.NoiseEvery)

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.Hz))
	defer ticker.Stop()

	current := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if m := gen.Maneuver(); m.Name != current {
			current = m.Name
			logger.Debug("Maneuver", zap.String("name", m.Name))
		}

		packets := gen.Step()
		if len(packets) == 0 {
			continue
		}
		if s.cfg.Batch {
			packets = []string{strings.Join(packets, "\n")}
		}
		for _, p := range packets {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(p)); err != nil {
				return err
			}
		}
	}
}
