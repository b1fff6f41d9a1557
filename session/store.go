package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jrsteele09/pigmy-admin/credentials"
	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var _ oauth2.TokenSource = (*Store)(nil)

// Store owns one Session. It is the only writer of that session: Login,
// Renew, UpdateAgentCount and Expire are the defined transitions, and every
// reader gets a copy.
type Store struct {
	mu      sync.RWMutex
	key     string
	current Session
	storage credentials.Storage
}

// NewStore creates an empty store whose credentials persist under key.
// storage may be nil, in which case nothing is persisted.
func NewStore(key string, storage credentials.Storage) *Store {
	return &Store{key: key, storage: storage}
}

// Key identifies the store's persisted credentials.
func (s *Store) Key() string {
	return s.key
}

// Current returns a copy of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Login replaces the session with a freshly authenticated one and persists it.
func (s *Store) Login(ctx context.Context, token string, user json.RawMessage, userType string) error {
	if token == "" || len(user) == 0 || string(user) == "null" {
		return errors.Wrapf(errors.ErrInvalidInput, "[session Login] token and user are both required")
	}

	next := Session{Token: token, User: append(json.RawMessage(nil), user...), UserType: userType}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// Renew swaps the credential of an authenticated session.
func (s *Store) Renew(ctx context.Context, token string) error {
	if token == "" {
		return errors.Wrapf(errors.ErrInvalidInput, "[session Renew] token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.Authenticated() {
		return errors.Wrapf(errors.ErrNotLoggedIn, "[session Renew]")
	}
	next := s.current.clone()
	next.Token = token
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// UpdateAgentCount records the organization's current agent count on the user.
func (s *Store) UpdateAgentCount(ctx context.Context, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.Authenticated() {
		return nil
	}

	var user map[string]any
	if err := json.Unmarshal(s.current.User, &user); err != nil {
		return errors.Wrapf(err, "[session UpdateAgentCount] decode user")
	}
	user["currentAgentCount"] = count
	encoded, err := json.Marshal(user)
	if err != nil {
		return errors.Wrapf(err, "[session UpdateAgentCount] encode user")
	}

	next := s.current.clone()
	next.User = encoded
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// Expire clears persisted credentials and then the session. It reports
// true only for the call that moved the store from authenticated to
// unauthenticated, so callers can run one-shot side effects on it.
func (s *Store) Expire(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storage != nil {
		if err := s.storage.Clear(ctx, s.key); err != nil {
			log.Warn().Err(err).Msg("Failed to clear persisted credentials")
		}
	}
	if !s.current.Authenticated() {
		return false
	}
	s.current = Session{}
	return true
}

// Restore loads a persisted session. It reports false when nothing usable
// was stored; a record missing either token or user is discarded.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.storage == nil {
		return false, nil
	}
	record, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, errors.ErrCredentialsNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "[session Restore]")
	}
	if record.Token == "" || len(record.User) == 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{Token: record.Token, User: record.User, UserType: record.UserType}
	return true, nil
}

// Token implements oauth2.TokenSource. It fails with ErrNotLoggedIn when no
// credential is held.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.Authenticated() {
		return nil, errors.ErrNotLoggedIn
	}
	return &oauth2.Token{
		AccessToken: s.current.Token,
		TokenType:   "Bearer",
		Expiry:      expiryOf(s.current.Token),
	}, nil
}

// ExpiresAt is the credential's expiry, zero when unknown.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return expiryOf(s.current.Token)
}

func (s *Store) persist(ctx context.Context, next Session) error {
	if s.storage == nil {
		return nil
	}
	if err := s.storage.Set(ctx, s.key, credentials.Record{
		Token:     next.Token,
		User:      next.User,
		UserType:  next.UserType,
		Timestamp: NowTimeFunc(),
	}); err != nil {
		return errors.Wrapf(err, "[session persist]")
	}
	return nil
}
