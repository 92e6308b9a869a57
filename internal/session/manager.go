package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Manager maps session ids to their holders and persists every write.
type Manager struct {
	store       Store
	logoutDelay time.Duration

	mu       sync.Mutex
	holders  map[string]*Holder
	pending  map[string]*time.Timer
	onLogout []func(id string)
}

func NewManager(store Store, logoutDelay time.Duration) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		store:       store,
		logoutDelay: logoutDelay,
		holders:     make(map[string]*Holder),
		pending:     make(map[string]*time.Timer),
	}
}

// Open starts a new session from backend tokens.
func (m *Manager) Open(ctx context.Context, accessToken, refreshToken string) (Snapshot, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return Snapshot{}, &domain.ValidationError{Field: KeyAccessToken, Message: "access token is required"}
	}

	holder := NewHolder(Snapshot{ID: uuid.NewString()})
	snap := holder.SetTokens(accessToken, strings.TrimSpace(refreshToken))
	if err := m.store.Save(ctx, snap); err != nil {
		return Snapshot{}, fmt.Errorf("save session: %w", err)
	}

	m.mu.Lock()
	m.holders[snap.ID] = holder
	m.mu.Unlock()

	return snap, nil
}

// Get returns the holder for id, loading it from the store when needed.
func (m *Manager) Get(ctx context.Context, id string) (*Holder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	holder, ok := m.holders[id]
	m.mu.Unlock()
	if ok {
		return holder, nil
	}

	snap, found, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found || !snap.Active() {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.holders[id]; ok {
		return existing, nil
	}
	holder = NewHolder(snap)
	m.holders[id] = holder
	return holder, nil
}

// SwitchDivision changes the selected division of a session.
func (m *Manager) SwitchDivision(ctx context.Context, id string, division domain.Division) (Snapshot, error) {
	holder, err := m.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	snap := holder.SwitchDivision(division)
	if err := m.store.Save(ctx, snap); err != nil {
		return Snapshot{}, fmt.Errorf("save session: %w", err)
	}
	log.Info().Str("session", id).Str("division", division.ID).Uint64("version", snap.Version).Msg("division switched")
	return snap, nil
}

// OnLogout registers fn to run after a session is logged out, including
// automatic logouts.
func (m *Manager) OnLogout(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// Logout clears the session and removes it from the store.
func (m *Manager) Logout(ctx context.Context, id string) error {
	m.mu.Lock()
	holder, ok := m.holders[id]
	delete(m.holders, id)
	if t, scheduled := m.pending[id]; scheduled {
		t.Stop()
		delete(m.pending, id)
	}
	hooks := append([]func(string){}, m.onLogout...)
	m.mu.Unlock()

	if ok {
		holder.Clear()
	}
	for _, fn := range hooks {
		fn(id)
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// HandleError schedules an automatic logout when err says the backend rejected
// the session token or the token has already expired. It reports whether a
// logout was scheduled.
func (m *Manager) HandleError(id string, err error) bool {
	if id == "" || !(domain.IsSessionError(err) || errors.Is(err, ErrTokenExpired)) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, scheduled := m.pending[id]; scheduled {
		return true
	}

	log.Warn().Str("session", id).Dur("delay", m.logoutDelay).Msg("session rejected by backend, logging out")
	m.pending[id] = time.AfterFunc(m.logoutDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Logout(ctx, id); err != nil {
			log.Error().Err(err).Str("session", id).Msg("automatic logout failed")
		}
	})
	return true
}

// Close stops pending logout timers.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.pending {
		t.Stop()
		delete(m.pending, id)
	}
}
