// Package credstore owns the persisted credential pair: the bearer token and
// the cached user profile. It is the only component that touches the stored
// bytes; everything else goes through it.
package credstore

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Storage keys, one per half of the credential pair.
const (
	tokenKey   = "trawells.auth.token"
	profileKey = "trawells.auth.profile"
)

// UserProfile mirrors the token claims plus locally-known fields the token
// does not carry. Address and MobileNumber stay empty until the user edits
// them in the profile screen.
type UserProfile struct {
	UserID       int64  `json:"user_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	DepartmentID int64  `json:"department_id"`
	RoleName     string `json:"role"`
	RoleID       int64  `json:"role_id"`
	ManagerID    int64  `json:"manager_id,omitempty"`
	Address      string `json:"address,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

// envelope wraps every stored value so that a value decrypted with the wrong
// key, or scribbled over by another program, is detectable as garbage.
type envelope struct {
	V string `json:"v"`
}

// Store persists and retrieves the credential pair through a pluggable
// backend, optionally obfuscating values and attaching a per-item expiry.
type Store struct {
	mu      sync.Mutex
	backend Backend
	cipher  *Cipher
	itemTTL time.Duration
}

// Option configures Store behavior.
type Option func(*Store)

// WithCipher applies the obfuscation layer uniformly to stored values.
func WithCipher(c *Cipher) Option {
	return func(s *Store) { s.cipher = c }
}

// WithItemTTL attaches an expiration to every stored item. Reads past the
// expiry behave as absent.
func WithItemTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.itemTTL = ttl
		}
	}
}

// New builds a store over the given backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetToken persists the bearer token.
func (s *Store) SetToken(tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(tokenKey, tok)
}

// Token returns the stored bearer token, or false when absent, expired, or
// unreadable.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(tokenKey)
}

// RemoveToken deletes the stored token.
func (s *Store) RemoveToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend.Delete(tokenKey)
}

// SetUserProfile persists the cached profile.
func (s *Store) SetUserProfile(p UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "credstore: encode profile")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(profileKey, string(data))
}

// UserProfile returns the cached profile, or false when absent, expired, or
// unreadable.
func (s *Store) UserProfile() (UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.read(profileKey)
	if !ok {
		return UserProfile{}, false
	}
	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.backend.Delete(profileKey)
		return UserProfile{}, false
	}
	return p, true
}

// RemoveUserProfile deletes the cached profile.
func (s *Store) RemoveUserProfile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend.Delete(profileKey)
}

// ClearAll removes both halves of the credential pair under one lock, so no
// caller observes a state where one exists and the other does not.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend.Delete(tokenKey)
	s.backend.Delete(profileKey)
}

func (s *Store) write(key, value string) error {
	data, err := json.Marshal(envelope{V: value})
	if err != nil {
		return errors.Wrap(err, "credstore: encode value")
	}
	out := string(data)
	if s.cipher != nil {
		out, err = s.cipher.Seal(out)
		if err != nil {
			return err
		}
	}
	return s.backend.Set(key, out, s.itemTTL)
}

// read resolves a stored value. Anything that fails to decrypt or decode is
// treated as absent and lazily removed, never surfaced as an error.
func (s *Store) read(key string) (string, bool) {
	raw, ok := s.backend.Get(key)
	if !ok {
		return "", false
	}
	if s.cipher != nil {
		opened, err := s.cipher.Open(raw)
		if err != nil {
			s.backend.Delete(key)
			return "", false
		}
		raw = opened
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.V == "" {
		s.backend.Delete(key)
		return "", false
	}
	return env.V, true
}
