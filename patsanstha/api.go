package patsanstha

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jrsteele09/pigmy-admin/cache"
	"github.com/jrsteele09/pigmy-admin/models"
	"github.com/rs/zerolog/log"
)

// Envelope is the backend's standard response wrapper.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// API exposes the backend's endpoints as typed calls. Reads go through a
// short-lived cache; mutations invalidate what they change.
type API struct {
	client    *Client
	cache     *cache.Cache
	validator *Validator
}

// NewAPI wraps client. A nil cache disables caching.
func NewAPI(client *Client, c *cache.Cache) *API {
	return &API{client: client, cache: c, validator: NewValidator()}
}

func (a *API) Client() *Client {
	return a.client
}

// ViewData fetches the organization with its agents.
func (a *API) ViewData(ctx context.Context) (*models.Organization, error) {
	return cachedGet[*models.Organization](ctx, a, EndpointViewData, nil)
}

// AdminMessage fetches the broadcast message; HasMessage is false when none is set.
func (a *API) AdminMessage(ctx context.Context) (*models.AdminMessage, error) {
	return cachedGet[*models.AdminMessage](ctx, a, EndpointAdminMessage, nil)
}

// CollectionStatus fetches the per-agent summary for date (YYYY-MM-DD), or
// for the backend's default day when date is empty.
func (a *API) CollectionStatus(ctx context.Context, date string) (*models.CollectionStatus, error) {
	return cachedGet[*models.CollectionStatus](ctx, a, EndpointCollectionStatus, optionalQuery("date", date))
}

// Transactions fetches customer transactions narrowed by filter.
func (a *API) Transactions(ctx context.Context, filter models.TransactionFilter) (*models.TransactionList, error) {
	query := optionalQuery("agentno", filter.AgentNo, "agentId", filter.AgentID, "date", filter.Date)
	return cachedGet[*models.TransactionList](ctx, a, EndpointTransactions, query)
}

// AddAgent creates an agent and returns the backend's message.
func (a *API) AddAgent(ctx context.Context, input models.AgentInput) (string, error) {
	if err := a.validator.ValidateAgentInput(input); err != nil {
		return "", err
	}
	var resp Envelope[any]
	if err := a.client.Call(ctx, EndpointAddAgent, RequestOptions{Method: http.MethodPost, Body: input}, &resp); err != nil {
		return "", err
	}
	a.agentsChanged(ctx)
	return messageOr(resp.Message, "Agent added successfully"), nil
}

// EditAgent updates an agent's name, mobile number and optionally password.
func (a *API) EditAgent(ctx context.Context, agentNo string, update models.AgentUpdate) (string, error) {
	if err := a.validator.ValidateAgentUpdate(agentNo, update); err != nil {
		return "", err
	}
	var resp Envelope[any]
	if err := a.client.Call(ctx, agentPath(EndpointEditAgent, agentNo), RequestOptions{Method: http.MethodPut, Body: update}, &resp); err != nil {
		return "", err
	}
	a.invalidateAgentData()
	return messageOr(resp.Message, "Agent updated successfully"), nil
}

// DeleteAgent removes an agent. A failure carries the backend's message unaltered.
func (a *API) DeleteAgent(ctx context.Context, agentNo string) (string, error) {
	var resp Envelope[any]
	if err := a.client.Call(ctx, agentPath(EndpointDeleteAgent, agentNo), RequestOptions{Method: http.MethodDelete}, &resp); err != nil {
		return "", err
	}
	a.agentsChanged(ctx)
	return messageOr(resp.Message, fmt.Sprintf("Agent %s deleted successfully", agentNo)), nil
}

// UploadAgentFile submits a daily collection file. The upload guard runs
// first, so a rejected file never reaches the network.
func (a *API) UploadAgentFile(ctx context.Context, agentNo, filename string, size int64, content io.Reader) (string, error) {
	if err := a.validator.ValidateUpload(filename, size); err != nil {
		return "", err
	}
	var resp Envelope[any]
	if err := a.client.Upload(ctx, agentPath(EndpointUploadFile, agentNo), filename, io.LimitReader(content, size), &resp); err != nil {
		return "", err
	}
	a.invalidateAgentData()
	return messageOr(resp.Message, fmt.Sprintf("File uploaded successfully for Agent %s", agentNo)), nil
}

// DownloadCollection fetches the generated collection file for an agent.
func (a *API) DownloadCollection(ctx context.Context, agentNo, date string) (DownloadedFile, error) {
	file, err := a.client.Download(ctx, agentPath(EndpointDownloadCollection, agentNo), optionalQuery("date", date))
	if err != nil {
		return DownloadedFile{}, err
	}
	// Downloading flips the agent's downloaded flag
	a.cache.Invalidate(EndpointCollectionStatus)
	return file, nil
}

func (a *API) invalidateAgentData() {
	a.cache.Invalidate(EndpointViewData, EndpointCollectionStatus, EndpointTransactions)
}

// agentsChanged invalidates agent data and records the new agent count on
// the session. A failed refresh is logged; the mutation already succeeded.
func (a *API) agentsChanged(ctx context.Context) {
	a.invalidateAgentData()
	org, err := a.ViewData(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to refresh agent count")
		return
	}
	if err := a.client.Store().UpdateAgentCount(ctx, len(org.Agents)); err != nil {
		log.Warn().Err(err).Msg("Failed to record agent count")
	}
}

func cachedGet[T any](ctx context.Context, a *API, endpoint string, query url.Values) (T, error) {
	return cache.Fetch(ctx, a.cache, cache.Key(endpoint, query.Encode()), func(ctx context.Context) (T, error) {
		var resp Envelope[T]
		err := a.client.Call(ctx, endpoint, RequestOptions{Query: query}, &resp)
		return resp.Data, err
	})
}

func messageOr(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
