package session

import (
	"encoding/json"

	"github.com/jrsteele09/pigmy-admin/models"
)

// Session is the credential and identity established by login.
// Token is non-empty if and only if User is non-nil.
type Session struct {
	User     json.RawMessage `json:"user"`
	Token    string          `json:"token"`
	UserType string          `json:"userType"`
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Is reports whether the session is authenticated as userType.
func (s Session) Is(userType string) bool {
	return s.Authenticated() && s.UserType == userType
}

// Profile decodes the user object into the organization profile.
func (s Session) Profile() (models.Organization, error) {
	var org models.Organization
	if len(s.User) == 0 {
		return org, nil
	}
	err := json.Unmarshal(s.User, &org)
	return org, err
}

func (s Session) clone() Session {
	s.User = append(json.RawMessage(nil), s.User...)
	return s
}
