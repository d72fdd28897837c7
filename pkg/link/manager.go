package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gwillem/rover/pkg/packet"
	"github.com/gwillem/rover/pkg/telemetry"
)

// Dialer opens the socket to the rover.
type Dialer interface {
	Dial(ctx context.Context, address string) (Conn, error)
}

// Reconnect bounds the retries after a session fails. MaxRetries 0 disables them.
type Reconnect struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Config holds configuration for the manager.
type Config struct {
	Address   string
	Decoder   packet.Decoder
	Reconnect Reconnect
}

// Manager runs sessions against the rover, one at a time.
type Manager struct {
	cfg    Config
	dialer Dialer
	store  *telemetry.Store
	logger *zap.Logger

	mu      sync.Mutex
	current *Session
	running bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager that dials cfg.Address and reports into store.
func NewManager(cfg Config, dialer Dialer, store *telemetry.Store, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		dialer: dialer,
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the latest session, or nil before Run starts one.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Status returns the status of the latest session.
func (m *Manager) Status() Status {
	if s := m.Current(); s != nil {
		return s.Status()
	}
	return StatusConnecting
}

// Run connects and processes packets until the session closes, fails beyond
// the retry budget, or ctx is done. An orderly close returns nil; cancellation
// returns ctx.Err(). The socket is released on every path.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	retries := 0
	backoff := m.cfg.Reconnect.InitialBackoff

	for {
		opened, err := m.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		if opened {
			retries = 0
			backoff = m.cfg.Reconnect.InitialBackoff
		}
		if retries >= m.cfg.Reconnect.MaxRetries {
			return err
		}
		retries++

		m.logger.Info("Reconnecting",
			zap.Duration("backoff", backoff),
			zap.Int("attempt", retries),
			zap.Int("max_retries", m.cfg.Reconnect.MaxRetries))
		m.store.Event(fmt.Sprintf("reconnecting in %s (attempt %d of %d)",
			backoff, retries, m.cfg.Reconnect.MaxRetries), nil)

		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, m.cfg.Reconnect.MaxBackoff)
	}
}

// runSession runs a single session to its end. opened reports whether the
// session got past connecting; err is nil for an orderly close.
func (m *Manager) runSession(ctx context.Context) (opened bool, err error) {
	sess := NewSession(m.store, m.cfg.Decoder, m.logger)
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	defer sess.Close()
	stop := context.AfterFunc(ctx, func() { sess.Close() })
	defer stop()

	m.logger.Info("Connecting", zap.String("address", m.cfg.Address), zap.String("session", sess.ID()))

	conn, err := m.dialer.Dial(ctx, m.cfg.Address)
	if err != nil {
		if ctx.Err() != nil {
			sess.HandleClose()
			return false, nil
		}
		sess.HandleError(err)
		return false, err
	}
	sess.Attach(conn)
	sess.HandleOpen()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if sess.TornDown() || isOrderlyClose(err) {
				sess.HandleClose()
				return true, nil
			}
			sess.HandleError(err)
			return true, err
		}
		if err := sess.HandleMessage(data); err != nil {
			return true, err
		}
	}
}

func isOrderlyClose(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived)
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max || next <= 0 {
		return max
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
