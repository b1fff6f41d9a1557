package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jrsteele09/pigmy-admin/credentials"
	"github.com/jrsteele09/pigmy-admin/internal/errors"
)

var _ credentials.Storage = (*Store)(nil)

// Store is an in-memory credential store scoped to the process lifetime.
type Store struct {
	mu      sync.RWMutex
	records map[string]credentials.Record // sessionKey -> record
}

func New() *Store {
	return &Store{
		records: make(map[string]credentials.Record),
	}
}

func (s *Store) Set(_ context.Context, key string, record credentials.Record) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy the user bytes so callers can't mutate the stored record
	record.User = append(json.RawMessage(nil), record.User...)
	s.records[key] = record
	return nil
}

func (s *Store) Get(_ context.Context, key string) (credentials.Record, error) {
	if key == "" {
		return credentials.Record{}, fmt.Errorf("key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	if !ok {
		return credentials.Record{}, errors.ErrCredentialsNotFound
	}
	record.User = append(json.RawMessage(nil), record.User...)
	return record, nil
}

func (s *Store) Clear(_ context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key) // Already gone is not an error
	return nil
}
