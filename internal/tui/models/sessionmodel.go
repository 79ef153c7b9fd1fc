package models

import (
	"context"

	"github.com/allbin/scanprov/internal/session"
	"github.com/allbin/scanprov/internal/syncutil"
)

// ConnectedMsg reports the outcome of negotiation.
type ConnectedMsg struct {
	Session *session.Session
	Error   error
}

// TaskDoneMsg reports a finished console action.
type TaskDoneMsg struct {
	Task  string
	Error error
}

// DisconnectedMsg is sent once the session has been torn down.
type DisconnectedMsg struct {
	Error error
}

// SessionModel is the console state shared between the tea model and the
// goroutines doing device work.
type SessionModel struct {
	portPath  string
	variantID string

	mu      syncutil.RWMutex
	session *session.Session
	state   session.State
	err     error
	ready   bool
	busy    string

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSessionModel(portPath, variantID string) *SessionModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionModel{
		portPath:  portPath,
		variantID: variantID,
		state:     session.StateIdle,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (m *SessionModel) PortPath() string  { return m.portPath }
func (m *SessionModel) VariantID() string { return m.variantID }

func (m *SessionModel) Session() *session.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *SessionModel) SetSession(s *session.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
}

func (m *SessionModel) State() session.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *SessionModel) SetState(s session.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *SessionModel) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *SessionModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *SessionModel) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (m *SessionModel) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// Begin marks task as running. It fails while another task runs or
// before a session exists.
func (m *SessionModel) Begin(task string) (*session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.busy != "" {
		return nil, false
	}
	m.busy = task
	return m.session, true
}

// End clears the running task.
func (m *SessionModel) End() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = ""
}

func (m *SessionModel) Busy() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.busy
}

func (m *SessionModel) Context() context.Context {
	return m.ctx
}

// Cleanup cancels running work and disconnects the session, if any.
func (m *SessionModel) Cleanup(ctx context.Context) error {
	m.cancel()

	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Disconnect(ctx)
}
