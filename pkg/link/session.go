// Package link owns the connection to the rover and feeds received packets
// through the decoder and reducer into a telemetry store.
package link

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gwillem/rover/pkg/packet"
	"github.com/gwillem/rover/pkg/telemetry"
)

// Status is the lifecycle state of a session.
type Status int

const (
	StatusConnecting Status = iota
	StatusOpen
	StatusClosed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal returns true for states a session never leaves.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusFailed
}

var (
	ErrNotOpen        = errors.New("session not open")
	ErrAlreadyRunning = errors.New("manager already running")
)

const (
	closedEntry     = "connection closed"
	errorEntryLabel = "connection error"
)

// Conn is the receiving side of a socket. *websocket.Conn implements it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Session is one instance of the connection. It starts out connecting and ends
// closed or failed; events that arrive after that are ignored.
//
// Event handlers are meant to be called from a single goroutine, in the order
// the transport delivers events. Close may be called from anywhere.
type Session struct {
	id      string
	store   *telemetry.Store
	decoder packet.Decoder
	logger  *zap.Logger

	mu       sync.Mutex
	status   Status
	history  []Status
	conn     Conn
	tornDown bool

	closeOnce sync.Once
	closeErr  error
}

// NewSession returns a connecting session that reports into store.
func NewSession(store *telemetry.Store, decoder packet.Decoder, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	s := &Session{
		id:      id,
		store:   store,
		decoder: decoder,
		logger:  logger.With(zap.String("session", id)),
		status:  StatusConnecting,
		history: []Status{StatusConnecting},
	}
	store.SetLink(id, StatusConnecting.String())
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// History returns every state the session has been in, in order.
func (s *Session) History() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Status{}, s.history...)
}

// TornDown returns true once Close has been called.
func (s *Session) TornDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tornDown
}

// Attach hands the socket to the session. If the session was already torn
// down, conn is closed right away.
func (s *Session) Attach(conn Conn) {
	s.mu.Lock()
	s.conn = conn
	tornDown := s.tornDown
	s.mu.Unlock()

	if tornDown {
		s.closeConn()
	}
}

// HandleOpen moves a connecting session to open. It returns false if the
// session was not connecting.
func (s *Session) HandleOpen() bool {
	if !s.transition(StatusOpen, StatusConnecting) {
		return false
	}
	s.logger.Info("Connection established")
	s.store.ClearError()
	return true
}

// HandleMessage processes every packet in data, one per line. Decode and
// reduce errors are recorded in the store and do not end the session.
func (s *Session) HandleMessage(data []byte) error {
	if s.Status() != StatusOpen {
		return ErrNotOpen
	}

	for _, line := range splitPackets(data) {
		s.store.Ingest(line, telemetry.DecodeAndReduce(s.decoder, line))
	}
	return nil
}

// HandleError fails the session. It returns false if the session had already ended.
func (s *Session) HandleError(err error) bool {
	if !s.transition(StatusFailed, StatusConnecting, StatusOpen) {
		return false
	}
	s.logger.Warn("Connection failed", zap.Error(err))
	s.store.Event(fmt.Sprintf("%s: %v", errorEntryLabel, err), err)
	return true
}

// HandleClose closes the session. It returns false if the session had already ended.
func (s *Session) HandleClose() bool {
	if !s.transition(StatusClosed, StatusConnecting, StatusOpen) {
		return false
	}
	s.logger.Info("Connection closed")
	s.store.Event(closedEntry, nil)
	return true
}

// Close tears the session down and releases the socket. The socket is closed
// exactly once no matter how often Close is called.
func (s *Session) Close() error {
	s.mu.Lock()
	s.tornDown = true
	s.mu.Unlock()
	return s.closeConn()
}

func (s *Session) closeConn() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}

	s.closeOnce.Do(func() {
		s.closeErr = conn.Close()
	})
	return s.closeErr
}

func (s *Session) transition(to Status, from ...Status) bool {
	s.mu.Lock()
	allowed := false
	for _, f := range from {
		if s.status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		s.mu.Unlock()
		return false
	}
	s.status = to
	s.history = append(s.history, to)
	s.mu.Unlock()

	s.store.SetLink(s.id, to.String())
	return true
}

// splitPackets returns the packets in a message. A message without a newline
// is one packet, even when empty. In a multi-line batch blank lines are skipped;
// a batch with nothing but blank lines counts as one empty packet.
func splitPackets(data []byte) []string {
	if !bytes.ContainsRune(data, '\n') {
		return []string{string(data)}
	}
	lines := strings.Split(string(data), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}
