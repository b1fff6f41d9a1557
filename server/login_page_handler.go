package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"github.com/jrsteele09/pigmy-admin/patsanstha"
	"github.com/rs/zerolog/log"
)

const msgSessionExpired = "Your session has expired. Please login again."

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName      string
	Error        string
	Notice       string
	MobileNumber string // Preserve mobile number on error
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.isLoggedIn(r) {
			redirectSuccess(w, r, RouteDashboard)
			return
		}

		query := r.URL.Query()
		data := LoginPageData{
			AppName:      s.config.GetAppName(),
			Error:        query.Get(QueryError),
			MobileNumber: query.Get("mobilenumber"),
		}
		if query.Get(QueryExpired) == "true" {
			data.Notice = msgSessionExpired
		}

		s.views.renderLogin(w, data)
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		mobileNumber := strings.TrimSpace(r.FormValue("mobilenumber"))
		password := r.FormValue("password")

		// A fresh login always starts a fresh login session
		if previous := loginSessionIDFrom(r); previous != "" {
			if ls, err := s.loginSessions.Get(previous); err == nil {
				s.endLoginSession(r.Context(), ls)
			}
		}

		ls := s.newLoginSession(uuid.NewString())
		result, err := ls.API.Login(r.Context(), mobileNumber, password)
		if err != nil {
			log.Info().Err(err).Msg("Login failed")
			s.renderLoginError(w, r, loginErrorMessage(err), mobileNumber)
			return
		}

		if err := s.loginSessions.Upsert(ls.ID, ls); err != nil {
			log.Err(err).Msg("Failed to save login session")
			ls.Store.Expire(r.Context())
			s.renderLoginError(w, r, "Login failed. Please try again.", mobileNumber)
			return
		}

		s.SetLoginSessionCookie(w, ls.ID, r, int(s.config.GetMaxSessionAge().Seconds()))
		s.SetAuthTokenCookie(w, result.Token)
		redirectWithFlash(w, r, RouteDashboard, result.Message)
	}
}

// LogoutHandler ends the login session. Logout always succeeds locally.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID := loginSessionIDFrom(r); sessionID != "" {
			if ls, err := s.loginSession(r.Context(), sessionID); err == nil {
				ls.API.Logout(r.Context())
				s.endLoginSession(r.Context(), ls)
			}
		}

		expireAllCookies(w, r)
		redirectSuccess(w, r, RouteLogin)
	}
}

// FallbackHandler sends every unmatched path to the dashboard when logged
// in and to the login page otherwise.
func (s *Server) FallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.isLoggedIn(r) {
			redirectSuccess(w, r, RouteDashboard)
			return
		}
		redirectSuccess(w, r, RouteLogin)
	}
}

// renderLoginError redirects to login page with an error message
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, errorMsg, mobileNumber string) {
	redirectURL := withQuery(RouteLogin, QueryError, errorMsg)
	if mobileNumber != "" {
		redirectURL = withQuery(redirectURL, "mobilenumber", mobileNumber)
	}
	redirectSuccess(w, r, redirectURL)
}

func loginErrorMessage(err error) string {
	var apiErr *patsanstha.Error
	var validationErr *patsanstha.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &apiErr):
		return apiErr.Message
	}
	return "Login failed. Please try again."
}
