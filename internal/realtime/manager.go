// Package realtime maintains the push channel that delivers notifications to
// an authenticated portal session. The channel recovers from unexpected
// closes with a fixed-interval reconnect; one malformed frame never kills it.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"portalcore/internal/platform/metrics"
)

// State enumerates the channel lifecycle.
type State int

const (
	// StateClosed is both the initial state and the terminal one after
	// explicit teardown.
	StateClosed State = iota
	// StateConnecting means a dial is in flight.
	StateConnecting
	// StateOpen means frames are flowing.
	StateOpen
	// StateReconnecting means the connection dropped and a single
	// reconnect attempt is scheduled.
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Message is one decoded inbound frame.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ErrTornDown is returned by Connect after explicit teardown.
var ErrTornDown = errors.New("realtime channel torn down")

// Options configures a Manager. Callbacks are invoked from the manager's
// goroutines and must not block.
type Options struct {
	URL string
	// RequestHeader carries the bearer token for the handshake.
	RequestHeader http.Header
	// ReconnectInterval is the fixed delay before the single reconnect
	// attempt scheduled after an unexpected close. Zero disables
	// reconnection. The interval is constant per instance; backoff here
	// would delay notifications for no benefit.
	ReconnectInterval time.Duration
	OnConnect         func()
	OnDisconnect      func()
	OnMessage         func(Message)
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	Dialer            *websocket.Dialer
}

// Manager owns the channel state. Safe for concurrent use.
type Manager struct {
	opts Options

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	reconnectTimer *time.Timer
	lastMessage    *Message
	tornDown       bool

	writeMu sync.Mutex
}

func New(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Manager{opts: opts}
}

// Connect dials the endpoint and starts the read loop. On dial failure a
// reconnect is scheduled under the same rules as an unexpected close.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.tornDown {
		m.mu.Unlock()
		return ErrTornDown
	}
	m.state = StateConnecting
	m.mu.Unlock()

	conn, resp, err := m.opts.Dialer.DialContext(ctx, m.opts.URL, m.opts.RequestHeader)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		m.opts.Logger.Warn("realtime dial failed", "url", m.opts.URL, "error", err)
		m.mu.Lock()
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.tornDown {
		m.mu.Unlock()
		conn.Close()
		return ErrTornDown
	}
	m.conn = conn
	m.state = StateOpen
	m.cancelReconnectLocked()
	m.mu.Unlock()

	m.opts.Logger.Info("realtime channel open", "url", m.opts.URL)
	if m.opts.OnConnect != nil {
		m.opts.OnConnect()
	}

	go m.readLoop(conn)
	return nil
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(conn)
			return
		}

		var msg Message
		if decodeErr := json.Unmarshal(raw, &msg); decodeErr != nil || msg.Type == "" {
			// Drop the frame, keep the channel. The sender's bug must
			// not take down everyone's notifications.
			m.opts.Logger.Warn("dropping malformed realtime frame", "error", decodeErr)
			if m.opts.Metrics != nil {
				m.opts.Metrics.RealtimeDropped.Inc()
			}
			continue
		}

		m.mu.Lock()
		m.lastMessage = &msg
		m.mu.Unlock()

		if m.opts.Metrics != nil {
			m.opts.Metrics.RealtimeMessages.Inc()
		}
		if m.opts.OnMessage != nil {
			m.opts.OnMessage(msg)
		}
	}
}

// handleClose runs when the read loop dies. Stale loops from a superseded
// connection are ignored.
func (m *Manager) handleClose(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	tornDown := m.tornDown
	if tornDown {
		m.state = StateClosed
	} else {
		m.scheduleReconnectLocked()
	}
	m.mu.Unlock()

	conn.Close()
	if !tornDown {
		m.opts.Logger.Warn("realtime channel disconnected")
		if m.opts.OnDisconnect != nil {
			m.opts.OnDisconnect()
		}
	}
}

// scheduleReconnectLocked arms the single reconnect timer. A timer that is
// already pending is left alone so an unexpected close never stacks attempts.
func (m *Manager) scheduleReconnectLocked() {
	if m.tornDown || m.opts.ReconnectInterval <= 0 {
		m.state = StateClosed
		return
	}
	m.state = StateReconnecting
	if m.reconnectTimer != nil {
		return
	}
	m.reconnectTimer = time.AfterFunc(m.opts.ReconnectInterval, m.reconnect)
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	m.reconnectTimer = nil
	if m.tornDown {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if m.opts.Metrics != nil {
		m.opts.Metrics.RealtimeReconnects.Inc()
	}
	m.opts.Logger.Info("realtime channel reconnecting")
	_ = m.Connect(context.Background())
}

// Close tears the channel down for good: the pending reconnect timer is
// cancelled, the socket is closed, and no further attempts occur.
func (m *Manager) Close() {
	m.mu.Lock()
	m.tornDown = true
	m.cancelReconnectLocked()
	conn := m.conn
	m.conn = nil
	m.state = StateClosed
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Send writes v as a JSON frame. When the channel is not open the message is
// silently dropped — notifications are fire-and-forget, never queued.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen && conn != nil
	m.mu.Unlock()

	if !open {
		return nil
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// State returns the current channel state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastMessage returns the most recent decoded frame, or nil. Frames
// overwrite; nothing is queued.
func (m *Manager) LastMessage() *Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastMessage == nil {
		return nil
	}
	msg := *m.lastMessage
	return &msg
}
