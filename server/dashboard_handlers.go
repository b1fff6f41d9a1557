package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"github.com/jrsteele09/pigmy-admin/models"
	"github.com/jrsteele09/pigmy-admin/patsanstha"
	"github.com/jrsteele09/pigmy-admin/session"
	"github.com/rs/zerolog/log"
)

// dashboardPage is the data behind every dashboard render.
type dashboardPage struct {
	AppName    string
	Shell      Shell
	Nav        []NavLink
	MenuToggle string
	Org        models.Organization
	ExpiresAt  string
	Success    string
	Error      string
	ViewError  *viewError
	View       any
}

// viewError is the inline banner a section shows when its data failed to
// load. Only transient failures offer a retry.
type viewError struct {
	Message   string
	RetryHref string
}

// DashboardHandler renders the shell with the requested section. Each
// section loads its own data; a failure only affects that section.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls, ok := loginSessionFrom(r.Context())
		if !ok {
			redirectSuccess(w, r, RouteLogin)
			return
		}

		query := r.URL.Query()
		shell := Shell{Active: ParseSection(r.PathValue("section")), MenuOpen: query.Get("menu") == "open"}
		page := s.newDashboardPage(session.FromContext(r.Context()), shell, query)

		view, err := s.loadSection(r.Context(), ls.API, shell.Active, query)
		if err != nil {
			switch {
			case errors.Is(err, patsanstha.ErrAuth):
				redirectExpired(w, r)
				return
			case errors.Is(err, context.Canceled):
				return // The browser went away
			}
			log.Warn().Err(err).Str("section", string(shell.Active)).Msg("Failed to load dashboard section")
			page.ViewError = &viewError{Message: err.Error()}
			var apiErr *patsanstha.Error
			if errors.As(err, &apiErr) && apiErr.Retryable() {
				page.ViewError.RetryHref = retryHref(r)
			}
		}
		page.View = view

		s.views.renderDashboard(w, page)
	}
}

func (s *Server) newDashboardPage(store *session.Store, shell Shell, query url.Values) *dashboardPage {
	org, err := store.Current().Profile()
	if err != nil {
		log.Warn().Err(err).Str("session", store.Key()).Msg("Stored profile is unreadable")
	}
	page := &dashboardPage{
		AppName:    s.config.GetAppName(),
		Shell:      shell,
		Nav:        shell.Links(),
		MenuToggle: shell.ToggleMenu().Href(),
		Org:        org,
		Success:    query.Get(QuerySuccess),
		Error:      query.Get(QueryError),
	}
	if exp := store.ExpiresAt(); !exp.IsZero() {
		page.ExpiresAt = relativeTime(exp)
	}
	return page
}

func (s *Server) loadSection(ctx context.Context, api *patsanstha.API, section Section, query url.Values) (any, error) {
	switch section {
	case SectionAgents:
		return loadAgentsView(ctx, api, query)
	case SectionTransactions:
		return loadTransactionsView(ctx, api, query)
	case SectionSettings:
		return loadSettingsView(ctx, api, query)
	}
	return loadOverviewView(ctx, api)
}

// retryHref reloads the current view without the one-shot flash messages.
func retryHref(r *http.Request) string {
	query := r.URL.Query()
	query.Del(QuerySuccess)
	query.Del(QueryError)
	if len(query) == 0 {
		return r.URL.Path
	}
	return r.URL.Path + "?" + query.Encode()
}

// handleMutationError sends the browser back to back with the failure as a
// flash message, or to the login page when the session ended.
func handleMutationError(w http.ResponseWriter, r *http.Request, err error, back string) {
	switch {
	case errors.Is(err, patsanstha.ErrAuth):
		redirectExpired(w, r)
	case errors.Is(err, context.Canceled):
		// The browser went away
	default:
		redirectWithError(w, r, back, err.Error())
	}
}
