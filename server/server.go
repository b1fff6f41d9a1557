package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/pigmy-admin/cache"
	"github.com/jrsteele09/pigmy-admin/credentials"
	"github.com/jrsteele09/pigmy-admin/internal/config"
	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"github.com/jrsteele09/pigmy-admin/patsanstha"
	"github.com/jrsteele09/pigmy-admin/server/loginsession"
	"github.com/jrsteele09/pigmy-admin/session"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type Server struct {
	env           string // Environment (e.g., "DEV", "PROD")
	mux           *http.ServeMux
	routes        []string
	config        config.Config
	credentials   credentials.Storage
	loginSessions loginsession.Repo
	views         *viewTemplates
	httpClient    *http.Client
}

// Option customises a Server.
type Option func(*Server)

// WithHTTPClient sets the client used for backend calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.httpClient = c }
}

func New(config config.Config, storage credentials.Storage, loginSessionRepo loginsession.Repo, opts ...Option) (*Server, error) {
	views, err := parseViewTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		mux:           http.NewServeMux(),
		config:        config,
		credentials:   storage,
		loginSessions: loginSessionRepo,
		views:         views,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// newLoginSession builds the credential store, API client and cache for
// one browser login.
func (s *Server) newLoginSession(sessionID string) loginsession.Session {
	store := session.NewStore(sessionID, s.credentials)
	client := patsanstha.NewClient(s.config.GetAPIBaseURL(), store, patsanstha.Options{
		RequestTimeout:     s.config.GetRequestTimeout(),
		RenewOnAuthFailure: s.config.GetRenewOnAuthFailure(),
		HTTPClient:         s.httpClient,
		OnSessionExpired: func(context.Context) {
			// The browser is sent back to the login page on its next request
			if err := s.loginSessions.Delete(sessionID); err != nil {
				log.Err(err).Str("session", sessionID).Msg("Failed to drop expired login session")
			}
		},
	})

	now := NowTimeFunc()
	return loginsession.Session{
		ID:        sessionID,
		Store:     store,
		API:       patsanstha.NewAPI(client, cache.New(s.config.GetCacheTTL())),
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.GetMaxSessionAge()),
	}
}

// loginSession finds the login session for sessionID. A session this
// process has not seen is rebuilt from persisted credentials, so logins
// survive a restart.
func (s *Server) loginSession(ctx context.Context, sessionID string) (loginsession.Session, error) {
	if sessionID == "" {
		return loginsession.Session{}, errors.ErrSessionNotFound
	}

	ls, err := s.loginSessions.Get(sessionID)
	if err == nil {
		if ls.Expired(NowTimeFunc()) {
			s.endLoginSession(ctx, ls)
			return loginsession.Session{}, errors.ErrSessionExpired
		}
		return ls, nil
	}
	if !errors.Is(err, errors.ErrSessionNotFound) {
		return loginsession.Session{}, err
	}

	ls = s.newLoginSession(sessionID)
	restored, err := ls.Store.Restore(ctx)
	if err != nil {
		return loginsession.Session{}, errors.Wrapf(err, "[Server loginSession] restore")
	}
	if !restored {
		return loginsession.Session{}, errors.ErrSessionNotFound
	}
	if err := s.loginSessions.Upsert(sessionID, ls); err != nil {
		return loginsession.Session{}, errors.Wrapf(err, "[Server loginSession] upsert")
	}
	log.Info().Str("session", sessionID).Msg("Login session restored from storage")
	return ls, nil
}

// endLoginSession clears the session's credentials and forgets it.
func (s *Server) endLoginSession(ctx context.Context, ls loginsession.Session) {
	ls.Store.Expire(ctx)
	if err := s.loginSessions.Delete(ls.ID); err != nil {
		log.Err(err).Str("session", ls.ID).Msg("Failed to delete login session")
	}
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
