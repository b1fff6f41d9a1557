package credentials

import (
	"context"
	"encoding/json"
	"time"
)

// Record is the credential persisted for one login session.
type Record struct {
	Token     string          `json:"token"`
	User      json.RawMessage `json:"user"`
	UserType  string          `json:"userType"`
	Timestamp time.Time       `json:"timestamp"`
}

// Storage persists credentials keyed by login session.
// Get returns errors.ErrCredentialsNotFound when nothing is stored for key.
type Storage interface {
	Set(ctx context.Context, key string, record Record) error
	Get(ctx context.Context, key string) (Record, error)
	Clear(ctx context.Context, key string) error
}
