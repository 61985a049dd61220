package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager owns the single transport session. It is constructed explicitly
// and passed by reference into every consumer; there is no package-level
// singleton.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	// frames is the stable output channel; it survives reconnects and is
	// never closed. The router consumes it.
	frames chan RawFrame

	mu     sync.Mutex
	state  State
	cl     *client
	token  string
	userID int64
	manual bool // set by Disconnect, suppresses auto-reconnect
	closed bool
	gen    int // session generation; stale goroutines compare and bail

	lisMu   sync.Mutex
	lis     map[int]func(StatusChange)
	nextLis int
}

// NewManager creates a new connection Manager.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		frames: make(chan RawFrame, cfg.FrameBufferSize),
		lis:    make(map[int]func(StatusChange)),
	}
}

// Connect establishes the session, presenting the bearer token at handshake
// time. It returns once the handshake completes, or an error if it is
// refused. Calling while already connecting or connected is a no-op.
func (m *Manager) Connect(ctx context.Context, token string, userID int64) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	m.token = token
	m.userID = userID
	m.manual = false
	m.gen++
	gen := m.gen
	change := m.setStateLocked(StateConnecting, nil)
	m.mu.Unlock()
	m.notify(change)

	cl := newClient(m.cfg.clientConfig(), m.logger)
	if err := cl.connect(ctx, token); err != nil {
		m.mu.Lock()
		var change StatusChange
		if m.gen == gen {
			change = m.setStateLocked(StateDisconnected, err)
		}
		m.mu.Unlock()
		m.notify(change)
		return fmt.Errorf("%w: %w", ErrHandshakeRefused, err)
	}

	m.mu.Lock()
	if m.gen != gen {
		// Disconnected or closed while dialing
		m.mu.Unlock()
		cl.close()
		return ErrNotConnected
	}
	m.cl = cl
	change = m.setStateLocked(StateConnected, nil)
	m.mu.Unlock()
	m.notify(change)

	go m.supervise(cl, gen)
	return nil
}

// Reconnect re-establishes the session with the credentials from the last
// Connect. It is the explicit retry path after StateFailed; the attempt
// counter starts fresh.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	token, userID := m.token, m.userID
	m.mu.Unlock()
	m.logger.Info("manual reconnect")
	return m.Connect(ctx, token, userID)
}

// Disconnect tears down the session and suppresses the auto-reconnect path.
// Always safe to call multiple times.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manual = true
	m.gen++
	cl := m.cl
	m.cl = nil
	var change StatusChange
	if m.state != StateDisconnected {
		change = m.setStateLocked(StateDisconnected, nil)
	}
	m.mu.Unlock()

	if cl != nil {
		cl.close()
	}
	m.notify(change)
}

// Close disconnects and permanently shuts the manager down (logout).
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.Disconnect()
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// UserID returns the user id presented at the last Connect.
func (m *Manager) UserID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Frames returns the inbound frame channel consumed by the router. The
// channel is stable across reconnects and is never closed.
func (m *Manager) Frames() <-chan RawFrame {
	return m.frames
}

// OnStatusChange registers a listener for state transitions and returns its
// unsubscribe function. Listeners are invoked synchronously in registration
// order and must not block.
func (m *Manager) OnStatusChange(fn func(StatusChange)) func() {
	m.lisMu.Lock()
	id := m.nextLis
	m.nextLis++
	m.lis[id] = fn
	m.lisMu.Unlock()

	return func() {
		m.lisMu.Lock()
		delete(m.lis, id)
		m.lisMu.Unlock()
	}
}

// SendCommand marshals and writes a command on the live session. Sends are
// fire-and-forget: there is no acknowledgment wait, and no queueing while
// disconnected.
func (m *Manager) SendCommand(cmd Command) error {
	m.mu.Lock()
	cl := m.cl
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || cl == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return cl.send(data)
}

// setStateLocked transitions the state and returns the change to emit.
// Caller holds m.mu. A zero-valued change is ignored by notify.
func (m *Manager) setStateLocked(s State, err error) StatusChange {
	old := m.state
	m.state = s
	m.logger.Debug("connection state", "old", old.String(), "new", s.String())
	return StatusChange{Old: old, New: s, Err: err}
}

func (m *Manager) notify(change StatusChange) {
	if change.Old == change.New {
		return
	}
	m.lisMu.Lock()
	fns := make([]func(StatusChange), 0, len(m.lis))
	for _, fn := range m.lis {
		fns = append(fns, fn)
	}
	m.lisMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

// supervise forwards frames from one session and triggers reconnection when
// the session dies unexpectedly.
func (m *Manager) supervise(cl *client, gen int) {
	for {
		select {
		case f := <-cl.frames:
			select {
			case m.frames <- f:
			default:
				m.logger.Warn("manager frame buffer full, dropping frame")
			}

		case err := <-cl.errs:
			m.mu.Lock()
			if m.gen != gen || m.manual || m.closed {
				m.mu.Unlock()
				return
			}
			m.cl = nil
			m.gen++
			newGen := m.gen
			change := m.setStateLocked(StateConnecting, err)
			m.mu.Unlock()

			m.logger.Warn("session lost, reconnecting", "error", err)
			cl.close()
			m.notify(change)

			go m.reconnectLoop(newGen)
			return

		case <-cl.done:
			return
		}
	}
}

// reconnectLoop retries the handshake with a delay that grows linearly with
// the attempt count. After MaxReconnectAttempts consecutive failures it
// gives up and moves to StateFailed; only an explicit Reconnect resumes.
func (m *Manager) reconnectLoop(gen int) {
	for attempt := 1; attempt <= m.cfg.MaxReconnectAttempts; attempt++ {
		wait := time.Duration(attempt) * m.cfg.ReconnectBaseDelay
		m.logger.Info("scheduling reconnect attempt",
			"attempt", attempt,
			"max", m.cfg.MaxReconnectAttempts,
			"wait", wait,
		)
		time.Sleep(wait)

		m.mu.Lock()
		if m.gen != gen || m.manual || m.closed {
			m.mu.Unlock()
			return
		}
		token := m.token
		m.mu.Unlock()

		cl := newClient(m.cfg.clientConfig(), m.logger)
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
		err := cl.connect(ctx, token)
		cancel()
		if err != nil {
			m.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
			continue
		}

		m.mu.Lock()
		if m.gen != gen || m.manual || m.closed {
			m.mu.Unlock()
			cl.close()
			return
		}
		m.cl = cl
		change := m.setStateLocked(StateConnected, nil)
		m.mu.Unlock()
		m.notify(change)

		m.logger.Info("reconnected", "attempt", attempt)
		go m.supervise(cl, gen)
		return
	}

	m.mu.Lock()
	var change StatusChange
	if m.gen == gen && !m.manual && !m.closed {
		change = m.setStateLocked(StateFailed, ErrRetriesExhausted)
	}
	m.mu.Unlock()
	m.notify(change)
	m.logger.Error("reconnect attempts exhausted", "attempts", m.cfg.MaxReconnectAttempts)
}
