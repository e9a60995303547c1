// Package session is the process-scoped credential store. The credential is
// read once at Open, written atomically on login and removed entirely on
// logout; components receive the store by injection, never as a global.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/platefront/platefront/internal/model"
)

// Fixed storage keys. The file is all-or-nothing: either every key is
// present or the file does not exist.
const (
	keyToken    = "token"
	keyUsername = "username"
	keyUserID   = "userId"
	keyIsAdmin  = "isAdmin"
)

// Store holds the current session credential and its durable copy.
type Store struct {
	mu   sync.Mutex
	path string
	cred *model.Credential
}

// Open reads the credential file at path, if present. A missing file means
// a logged-out session; a corrupt file is an error.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read session file: %w", err)
	}

	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("cannot parse session file: %w", err)
	}

	userID, err := uuid.Parse(fields[keyUserID])
	if err != nil {
		return nil, fmt.Errorf("invalid user id in session file: %w", err)
	}

	s.cred = &model.Credential{
		Token:    fields[keyToken],
		Username: fields[keyUsername],
		UserID:   userID,
		IsAdmin:  fields[keyIsAdmin] == "true",
	}
	return s, nil
}

// Credential returns the current credential and whether one is present.
func (s *Store) Credential() (model.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return model.Credential{}, false
	}
	return *s.cred, true
}

// SetCredential stores cred in memory and on disk. The write is atomic so a
// crash never leaves a partial session.
func (s *Store) SetCredential(cred model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := map[string]string{
		keyToken:    cred.Token,
		keyUsername: cred.Username,
		keyUserID:   cred.UserID.String(),
		keyIsAdmin:  "false",
	}
	if cred.IsAdmin {
		fields[keyIsAdmin] = "true"
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("cannot marshal session: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("cannot create session dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("cannot write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("cannot commit session file: %w", err)
	}

	s.cred = &cred
	return nil
}

// Clear removes the credential from memory and disk, all keys at once.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = nil
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot remove session file: %w", err)
	}
	return nil
}
