package loginsession

import (
	"time"

	"github.com/jrsteele09/pigmy-admin/patsanstha"
	"github.com/jrsteele09/pigmy-admin/session"
)

// Session is one browser's login: the credential store and the API client
// bound to it.
type Session struct {
	ID    string
	Store *session.Store
	API   *patsanstha.API

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the login has outlived its maximum age.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type Repo interface {
	Upsert(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
}
