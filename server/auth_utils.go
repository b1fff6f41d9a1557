package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// loggedInSessionID is the name of the cookie used for dashboard session authentication
	loggedInSessionID = "loggedInSessionId"
	// authTokenCookieName mirrors the credential for same-site consumers; the dashboard never reads it
	authTokenCookieName = "auth_token"
	authTokenMaxAge     = 24 * time.Hour
)

func (s *Server) SetLoginSessionCookie(w http.ResponseWriter, sessionID string, r *http.Request, maxAge int) {
	isSecure := getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     loggedInSessionID,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// SetAuthTokenCookie writes the credential mirror cookie.
func (s *Server) SetAuthTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookieName,
		Value:    token,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(authTokenMaxAge.Seconds()),
	})
}

// expireAllCookies expires every cookie the request carried.
func expireAllCookies(w http.ResponseWriter, r *http.Request) {
	for _, c := range r.Cookies() {
		http.SetCookie(w, &http.Cookie{
			Name:    c.Name,
			Value:   "",
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Unix(0, 0),
		})
	}
}

func loginSessionIDFrom(r *http.Request) string {
	cookie, err := r.Cookie(loggedInSessionID)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	redirectSuccess(w, r, withQuery(path, QueryError, errorMsg))
}

// redirectWithFlash redirects with a success message for the next page to show
func redirectWithFlash(w http.ResponseWriter, r *http.Request, path, message string) {
	redirectSuccess(w, r, withQuery(path, QuerySuccess, message))
}

// redirectExpired sends the browser back to login after its session ended.
func redirectExpired(w http.ResponseWriter, r *http.Request) {
	expireAllCookies(w, r)
	redirectSuccess(w, r, withQuery(RouteLogin, QueryExpired, "true"))
}

func withQuery(path, key, value string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
