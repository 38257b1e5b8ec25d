package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/renameio"
	"gopkg.in/yaml.v3"

	"storefront/internal/model"
)

const (
	stateFileName = "session.yaml"
	lockFileName  = "session.lock"
)

// FileStore persists session state as YAML under a state directory.
// Writes are atomic (rename over the old file) and serialized across
// processes with an advisory lock file.
type FileStore struct {
	mu       sync.Mutex
	path     string
	lockPath string
}

// NewFileStore creates the state directory if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &FileStore{
		path:     filepath.Join(dir, stateFileName),
		lockPath: filepath.Join(dir, lockFileName),
	}, nil
}

// Path returns the state file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load implements Store.
func (f *FileStore) Load() (*State, error) {
	var out *State
	err := f.withLock(func() error {
		state, err := f.read()
		out = state
		return err
	})
	return out, err
}

// Save implements Store.
func (f *FileStore) Save(pair model.CredentialPair, profile model.UserProfile) error {
	return f.withLock(func() error {
		return f.write(&State{Credentials: &pair, Profile: &profile})
	})
}

// SetAccess implements Store.
func (f *FileStore) SetAccess(access string) error {
	return f.withLock(func() error {
		state, err := f.read()
		if err != nil {
			return err
		}
		if err := state.setAccess(access); err != nil {
			return err
		}
		return f.write(state)
	})
}

// SetProfile implements Store.
func (f *FileStore) SetProfile(profile model.UserProfile) error {
	return f.withLock(func() error {
		state, err := f.read()
		if err != nil {
			return err
		}
		if state.Credentials == nil {
			return ErrNoSession
		}
		state.Profile = &profile
		return f.write(state)
	})
}

// Clear implements Store.
func (f *FileStore) Clear() error {
	return f.withLock(func() error {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing session file: %w", err)
		}
		return nil
	})
}

func (f *FileStore) withLock(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	lock := flock.New(f.lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking session file: %w", err)
	}
	defer lock.Unlock()

	return fn()
}

func (f *FileStore) read() (*State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return &state, nil
}

func (f *FileStore) write(state *State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := renameio.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}
