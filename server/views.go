package server

import (
	"context"
	"net/url"
	"strings"

	"github.com/jrsteele09/pigmy-admin/internal/config"
	"github.com/jrsteele09/pigmy-admin/internal/utils"
	"github.com/jrsteele09/pigmy-admin/models"
	"github.com/jrsteele09/pigmy-admin/patsanstha"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

type OverviewView struct {
	Org          *models.Organization
	Stats        models.Stats
	AdminMessage *models.AdminMessage
}

func loadOverviewView(ctx context.Context, api *patsanstha.API) (*OverviewView, error) {
	var view OverviewView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		org, err := api.ViewData(gctx)
		view.Org = org
		return err
	})
	g.Go(func() error {
		// The broadcast is optional; a failure only hides the banner
		msg, err := api.AdminMessage(gctx)
		if err != nil {
			log.Debug().Err(err).Msg("Admin message unavailable")
			return nil
		}
		view.AdminMessage = msg
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	view.Org = utils.NonNil(view.Org)
	view.Stats = view.Org.Stats()
	return &view, nil
}

// AgentRow joins an agent with its collection status for the day.
type AgentRow struct {
	Agent      models.Agent
	Collection *models.AgentCollectionInfo
}

type AgentsView struct {
	Date      string
	Status    *models.CollectionStatus
	Rows      []AgentRow
	Stats     models.Stats
	AtLimit   bool
	MaxUpload int64
}

func loadAgentsView(ctx context.Context, api *patsanstha.API, query url.Values) (*AgentsView, error) {
	view := AgentsView{
		Date:      query.Get("date"),
		MaxUpload: config.MaxUploadBytes,
	}
	if view.Date == "" {
		view.Date = NowTimeFunc().Format(dateLayout)
	}

	var org *models.Organization
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		org, err = api.ViewData(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		view.Status, err = api.CollectionStatus(gctx, view.Date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	org = utils.NonNil(org)

	for _, agent := range org.Agents {
		view.Rows = append(view.Rows, AgentRow{Agent: agent, Collection: view.Status.ForAgent(agent.AgentNo)})
	}
	view.Stats = org.Stats()
	view.AtLimit = org.AtAgentLimit()
	return &view, nil
}

// CollectionRow is a daily collection with its totals.
type CollectionRow struct {
	Collection models.DailyCollection
	Summary    models.CollectionSummary
}

type TransactionsView struct {
	Filter       models.TransactionFilter
	Search       string
	Agents       []models.Agent
	Transactions []models.Transaction
	Collections  []CollectionRow
	Total        models.CollectionSummary
}

func loadTransactionsView(ctx context.Context, api *patsanstha.API, query url.Values) (*TransactionsView, error) {
	view := TransactionsView{
		Filter: models.TransactionFilter{
			AgentNo: strings.TrimSpace(query.Get("agentno")),
			AgentID: strings.TrimSpace(query.Get("agentId")),
			Date:    strings.TrimSpace(query.Get("date")),
		},
		Search: strings.TrimSpace(query.Get("search")),
	}

	var org *models.Organization
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		org, err = api.ViewData(gctx)
		return err
	})
	g.Go(func() error {
		list, err := api.Transactions(gctx, view.Filter)
		if err != nil || list == nil {
			return err
		}
		view.Transactions = list.Transactions
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	org = utils.NonNil(org)

	view.Agents = org.Agents
	for _, c := range models.FilterCollectionsByCustomer(org, view.Search) {
		summary := c.Summary()
		view.Collections = append(view.Collections, CollectionRow{Collection: c, Summary: summary})
		view.Total.TotalCollected += summary.TotalCollected
		view.Total.CompletedTransactions += summary.CompletedTransactions
		view.Total.TotalTransactions += summary.TotalTransactions
	}
	return &view, nil
}

type SettingsView struct {
	Org     *models.Organization
	Stats   models.Stats
	AtLimit bool
	Editing *models.Agent
}

func loadSettingsView(ctx context.Context, api *patsanstha.API, query url.Values) (*SettingsView, error) {
	org, err := api.ViewData(ctx)
	if err != nil {
		return nil, err
	}
	org = utils.NonNil(org)
	view := SettingsView{Org: org, Stats: org.Stats(), AtLimit: org.AtAgentLimit()}
	if agentNo := query.Get("edit"); agentNo != "" {
		for i := range org.Agents {
			if org.Agents[i].AgentNo == agentNo {
				view.Editing = &org.Agents[i]
				break
			}
		}
	}
	return &view, nil
}
