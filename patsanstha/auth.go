package patsanstha

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/pigmy-admin/models"
	"github.com/rs/zerolog/log"
)

// loginResponse accepts both shapes the backend has used for credentials:
// top level {token, user|patsanstha} and {data: {accessToken, patsanstha}}.
type loginResponse struct {
	Message     string          `json:"message"`
	Token       string          `json:"token"`
	AccessToken string          `json:"accessToken"`
	User        json.RawMessage `json:"user"`
	Patsanstha  json.RawMessage `json:"patsanstha"`
	Data        *struct {
		Token       string          `json:"token"`
		AccessToken string          `json:"accessToken"`
		User        json.RawMessage `json:"user"`
		Patsanstha  json.RawMessage `json:"patsanstha"`
	} `json:"data"`
}

func (r loginResponse) credential() (string, json.RawMessage) {
	token := firstString(r.Token, r.AccessToken)
	user := firstRaw(r.User, r.Patsanstha)
	if r.Data != nil {
		token = firstString(token, r.Data.AccessToken, r.Data.Token)
		user = firstRaw(user, r.Data.Patsanstha, r.Data.User)
	}
	return token, user
}

// LoginResult is what a successful login established.
type LoginResult struct {
	Message string
	Token   string
	User    json.RawMessage
}

// Login exchanges a mobile number and password for a session. The call is
// made without a credential; on success the session store is replaced and
// persisted.
func (a *API) Login(ctx context.Context, mobileNumber, password string) (*LoginResult, error) {
	if err := a.validator.ValidateLoginCredentials(mobileNumber, password); err != nil {
		return nil, err
	}

	store := a.client.Store()
	// Drop any stale credential so the login call goes out unauthenticated
	store.Expire(ctx)
	a.cache.Invalidate("")

	var resp loginResponse
	body := map[string]string{"mobilenumber": mobileNumber, "password": password}
	if err := a.client.Call(ctx, EndpointLogin, RequestOptions{Method: http.MethodPost, Body: body}, &resp); err != nil {
		return nil, err
	}

	token, user := resp.credential()
	if token == "" || len(user) == 0 {
		return nil, &Error{Kind: KindServer, Status: http.StatusOK, Message: messageOr(resp.Message, "Login failed: no credential returned")}
	}
	if err := store.Login(ctx, token, user, models.UserTypePatsanstha); err != nil {
		return nil, err
	}
	log.Info().Str("session", store.Key()).Msg("Patsanstha logged in")
	return &LoginResult{Message: resp.Message, Token: token, User: user}, nil
}

// Logout ends the session. The server-side logout is best effort: the local
// session and its persisted credentials are always cleared.
func (a *API) Logout(ctx context.Context) {
	store := a.client.Store()
	if store.Current().Authenticated() {
		if err := a.client.Call(ctx, EndpointLogout, RequestOptions{Method: http.MethodPost}, nil); err != nil {
			log.Info().Err(err).Str("session", store.Key()).Msg("Server logout failed")
		}
	}
	store.Expire(ctx)
	a.cache.Invalidate("")
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstRaw(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}
