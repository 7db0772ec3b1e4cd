// Package auth keeps a usable identity while the backend is unreachable.
// The session lives in the local metadata store, so a cashier who signed
// in before the outage can keep working after a restart.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stapos/stapos/internal/common"
	"github.com/stapos/stapos/internal/logging"
	"github.com/stapos/stapos/internal/remote"
	"github.com/stapos/stapos/internal/store"
)

const sessionKey = "session"

// Events passed to state-change listeners.
const (
	EventSignedIn  = "SIGNED_IN"
	EventSignedOut = "SIGNED_OUT"
)

// Listener receives auth state transitions.
type Listener func(event string, session *remote.Session)

// Manager is the local stand-in for the remote identity service.
type Manager struct {
	st  *store.Store
	log logging.Logger

	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	listeners map[int]Listener
	nextSub   int
}

func NewManager(st *store.Store, log logging.Logger) *Manager {
	return &Manager{
		st:        st,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
		listeners: make(map[int]Listener),
	}
}

// GetSession returns the persisted session, or nil when nobody is signed in.
func (m *Manager) GetSession(ctx context.Context) (*remote.Session, error) {
	raw, err := m.st.GetMeta(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var s remote.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &s, nil
}

// SaveSession persists a session obtained elsewhere, typically from the
// backend while it was still reachable.
func (m *Manager) SaveSession(ctx context.Context, s *remote.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := m.st.SetMeta(ctx, sessionKey, raw); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// SignIn resolves the email against cached profiles. The password is not
// checked here: only the backend holds authoritative credentials, and the
// cached hash may be stale. Physical access to the terminal is the gate.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*remote.Session, error) {
	recs, err := m.st.QueryByIndex(ctx, "user_profiles", "email", email)
	if err != nil {
		return nil, fmt.Errorf("looking up profile: %w", err)
	}
	if len(recs) == 0 {
		return nil, common.ErrInvalidCredentials
	}
	s := &remote.Session{User: recs[0]}
	if err := m.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	m.log.Info(ctx, "signed in locally", "email", email)
	m.emit(EventSignedIn, s)
	return s, nil
}

// SignUp creates a provisional account that exists only in the session
// slot. No profile record is written and nothing is queued for the
// backend. A terminal that needs the account to outlive the session
// registers it against the backend once one is reachable.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*remote.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	s := &remote.Session{User: store.Record{
		"id":            m.newID(),
		"email":         email,
		"password_hash": string(hash),
		"created_at":    common.FormatTimestamp(m.now()),
	}}
	if err := m.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	m.log.Info(ctx, "signed up locally", "email", email)
	m.emit(EventSignedIn, s)
	return s, nil
}

func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.st.DeleteMeta(ctx, sessionKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	m.emit(EventSignedOut, nil)
	return nil
}

// UpdateUser merges the patch into the signed-in user. A plain "password"
// field is hashed before it is stored.
func (m *Manager) UpdateUser(ctx context.Context, patch store.Record) (*remote.Session, error) {
	s, err := m.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, common.ErrNoSession
	}
	patch = patch.Clone()
	if pw, ok := patch["password"].(string); ok {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		delete(patch, "password")
		patch["password_hash"] = string(hash)
	}
	s.User.Merge(patch)
	if err := m.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// OnAuthStateChange registers a listener and replays the current state to
// it shortly after registration. The returned function unsubscribes.
func (m *Manager) OnAuthStateChange(ctx context.Context, fn Listener) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = fn
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
		s, err := m.GetSession(ctx)
		if err != nil {
			m.log.Warn(ctx, "state replay failed", "error", err)
			return
		}
		if s != nil {
			fn(EventSignedIn, s)
		} else {
			fn(EventSignedOut, nil)
		}
	}()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) emit(event string, s *remote.Session) {
	m.mu.Lock()
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(event, s)
	}
}
