// Package credstore holds the current credential pair and cached user profile.
// It owns no business logic; the session controller and the request pipeline
// are its only writers.
package credstore

import (
	"errors"
	"sync"

	"storefront/internal/model"
)

// ErrNoSession is returned when updating credentials that were never stored.
var ErrNoSession = errors.New("no active session")

// State is the persisted session: both halves present, or neither.
type State struct {
	Credentials *model.CredentialPair `yaml:"credentials,omitempty"`
	Profile     *model.UserProfile    `yaml:"profile,omitempty"`
}

// Active reports whether the state describes an authenticated session.
func (s *State) Active() bool {
	return s != nil && s.Credentials != nil && s.Credentials.Access != "" && s.Profile != nil
}

// Store abstracts the durable key-value area used for session state.
type Store interface {
	// Load returns the current state. A store with nothing saved returns an empty State.
	Load() (*State, error)

	// Save replaces credentials and profile together.
	Save(pair model.CredentialPair, profile model.UserProfile) error

	// SetAccess replaces the access token, keeping the refresh token.
	SetAccess(access string) error

	// SetProfile replaces the cached profile wholesale.
	SetProfile(profile model.UserProfile) error

	// Clear removes everything.
	Clear() error
}

// MemoryStore keeps state in process memory. Used by tests and one-shot commands.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.copy(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(pair model.CredentialPair, profile model.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{Credentials: &pair, Profile: &profile}
	return nil
}

// SetAccess implements Store.
func (m *MemoryStore) SetAccess(access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.setAccess(access)
}

// SetProfile implements Store.
func (m *MemoryStore) SetProfile(profile model.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Credentials == nil {
		return ErrNoSession
	}
	m.state.Profile = &profile
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
	return nil
}

func (s *State) copy() *State {
	out := &State{}
	if s.Credentials != nil {
		c := *s.Credentials
		out.Credentials = &c
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	return out
}

func (s *State) setAccess(access string) error {
	if s.Credentials == nil {
		return ErrNoSession
	}
	s.Credentials.Access = access
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
