// Package session owns the authenticated identity for one client session:
// who is signed in, whether a sign-in is in flight, and the persisted slot
// that lets the identity survive restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// State is the lifecycle position of a Manager.
type State int

const (
	StateRestoring State = iota
	StateUnauthenticated
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

var (
	// ErrInvalidCredentials covers role, email and password mismatches
	// alike; callers get no hint which part failed.
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	// ErrEmptyField rejects blank email or password before any lookup.
	ErrEmptyField = errors.New("session: email and password are required")
	// ErrLoginInProgress rejects a duplicate login while one is suspended.
	ErrLoginInProgress = errors.New("session: login already in progress")
)

// Manager is the session state machine. It starts in StateRestoring and
// stays alive for the process lifetime; there is no terminal state.
//
// Slot writes happen only on successful login and on logout; a failed
// login never touches the store.
type Manager struct {
	store      Store
	dir        Directory
	slotKey    string
	loginDelay time.Duration

	mu      sync.Mutex
	state   State
	current *Identity
	loading bool
}

// NewManager wires a Manager to its slot. loginDelay simulates the upstream
// round trip on login; zero disables it (tests).
func NewManager(store Store, dir Directory, slotKey string, loginDelay time.Duration) *Manager {
	return &Manager{
		store:      store,
		dir:        dir,
		slotKey:    slotKey,
		loginDelay: loginDelay,
		state:      StateRestoring,
		loading:    true,
	}
}

// Restore reads the persisted slot once at startup. An absent slot leaves
// the manager unauthenticated; a malformed one is cleared and treated the
// same way rather than propagating a parse error. Loading is false once
// Restore returns, whatever the outcome.
func (m *Manager) Restore(ctx context.Context) error {
	defer m.setLoading(false)

	raw, err := m.store.Get(ctx, m.slotKey)
	if errors.Is(err, ErrNotFound) {
		m.setState(StateUnauthenticated, nil)
		return nil
	}
	if err != nil {
		m.setState(StateUnauthenticated, nil)
		return fmt.Errorf("read session slot: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil || id.Validate() != nil {
		// Corrupted slot: drop it instead of carrying it forward.
		_ = m.store.Delete(ctx, m.slotKey)
		m.setState(StateUnauthenticated, nil)
		return nil
	}

	m.setState(StateAuthenticated, &id)
	return nil
}

// Login authenticates email+password against the claimed role's directory
// entry. The call suspends for the configured latency and honors ctx
// cancellation. Success adopts the identity and persists it; any failure
// leaves the session unauthenticated and the slot untouched.
func (m *Manager) Login(ctx context.Context, email, password string, role Role) (*Identity, error) {
	if email == "" || password == "" {
		return nil, ErrEmptyField
	}

	m.mu.Lock()
	if m.state == StateAuthenticating {
		m.mu.Unlock()
		return nil, ErrLoginInProgress
	}
	m.state = StateAuthenticating
	m.current = nil
	m.loading = true
	m.mu.Unlock()

	id, err := m.authenticate(ctx, email, password, role)
	if err != nil {
		m.setState(StateUnauthenticated, nil)
		m.setLoading(false)
		return nil, err
	}

	m.setState(StateAuthenticated, id)
	m.setLoading(false)
	out := *id
	return &out, nil
}

func (m *Manager) authenticate(ctx context.Context, email, password string, role Role) (*Identity, error) {
	if m.loginDelay > 0 {
		select {
		case <-time.After(m.loginDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	cred, err := m.dir.Lookup(ctx, role)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if cred.Email != email {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	id := cred.Identity
	if err := id.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("encode identity: %w", err)
	}
	// Adopt the identity only once it is persisted, so memory and slot
	// never disagree.
	if err := m.store.Set(ctx, m.slotKey, raw); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return &id, nil
}

// Logout unconditionally clears the identity and erases the slot. It has no
// failure mode; a store error is swallowed because the in-memory session is
// already gone.
func (m *Manager) Logout(ctx context.Context) {
	m.setState(StateUnauthenticated, nil)
	_ = m.store.Delete(ctx, m.slotKey)
}

// Current returns a copy of the signed-in identity, or nil.
func (m *Manager) Current() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	out := *m.current
	return &out
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

// Loading is true from construction until the first Restore completes, and
// again while a login is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *Manager) setState(s State, id *Identity) {
	m.mu.Lock()
	m.state = s
	m.current = id
	m.mu.Unlock()
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}
