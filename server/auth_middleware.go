package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"github.com/jrsteele09/pigmy-admin/models"
	"github.com/jrsteele09/pigmy-admin/server/loginsession"
	"github.com/jrsteele09/pigmy-admin/session"
	"github.com/rs/zerolog/log"
)

type contextKey string

const contextKeyLoginSession contextKey = "login_session"

// RequireSession is middleware for dashboard routes. It admits only a
// login session holding a patsanstha credential, and injects the session
// store and API into the request context.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionID := loginSessionIDFrom(r)
			if sessionID == "" {
				redirectSuccess(w, r, RouteLogin)
				return
			}

			ls, err := s.loginSession(r.Context(), sessionID)
			if err != nil {
				if !errors.Is(err, errors.ErrSessionNotFound) && !errors.Is(err, errors.ErrSessionExpired) {
					log.Err(err).Str("session", sessionID).Msg("Failed to load login session")
				}
				redirectExpired(w, r)
				return
			}

			switch err := admitDashboard(ls.Store.Current()); {
			case errors.Is(err, errors.ErrNotLoggedIn):
				s.endLoginSession(r.Context(), ls)
				redirectExpired(w, r)
				return
			case err != nil:
				log.Warn().Err(err).Str("session", sessionID).Msg("Dashboard refused")
				redirectWithError(w, r, RouteLogin, "Access denied for this account type")
				return
			}

			ctx := session.WithStore(r.Context(), ls.Store)
			ctx = context.WithValue(ctx, contextKeyLoginSession, ls)
			next(w, r.WithContext(ctx))
		}
	}
}

// loginSessionFrom returns the login session injected by RequireSession.
func loginSessionFrom(ctx context.Context) (loginsession.Session, bool) {
	ls, ok := ctx.Value(contextKeyLoginSession).(loginsession.Session)
	return ls, ok
}

// isLoggedIn reports whether the request belongs to a live patsanstha login.
func (s *Server) isLoggedIn(r *http.Request) bool {
	ls, err := s.loginSession(r.Context(), loginSessionIDFrom(r))
	return err == nil && admitDashboard(ls.Store.Current()) == nil
}

// admitDashboard checks that current is a live patsanstha login.
func admitDashboard(current session.Session) error {
	if !current.Authenticated() {
		return errors.ErrNotLoggedIn
	}
	if !current.Is(models.UserTypePatsanstha) {
		return errors.Wrapf(errors.ErrWrongUserType, "[Server admitDashboard] user type %q", current.UserType)
	}
	return nil
}
