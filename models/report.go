package models

import (
	"sort"
	"strings"
	"time"
)

// Stats are the overview counters shown on the dashboard.
type Stats struct {
	TotalAgents    int
	AgentLimit     int
	AvailableSlots int
}

// Stats derives the overview counters for the organization.
func (o *Organization) Stats() Stats {
	if o == nil {
		return Stats{}
	}
	total := len(o.Agents)
	available := o.NoOfAgent - total
	if available < 0 {
		available = 0
	}
	return Stats{TotalAgents: total, AgentLimit: o.NoOfAgent, AvailableSlots: available}
}

// AtAgentLimit reports whether no more agents can be added.
func (o *Organization) AtAgentLimit() bool {
	return o != nil && o.NoOfAgent > 0 && len(o.Agents) >= o.NoOfAgent
}

// CollectionSummary totals a daily collection.
type CollectionSummary struct {
	TotalCollected        float64
	CompletedTransactions int
	TotalTransactions     int
}

// Summary totals the collection's transactions; a transaction counts as
// completed when it collected a positive amount.
func (c DailyCollection) Summary() CollectionSummary {
	var s CollectionSummary
	for _, t := range c.Transactions {
		s.TotalCollected += t.CollAmt
		if t.CollAmt > 0 {
			s.CompletedTransactions++
		}
	}
	s.TotalTransactions = len(c.Transactions)
	return s
}

// FilterCollectionsByCustomer flattens every agent's daily collections,
// keeping only transactions whose customer name contains searchTerm
// (case-insensitive). Collections left without transactions are dropped
// unless searchTerm is blank. The result is ordered newest first.
func FilterCollectionsByCustomer(org *Organization, searchTerm string) []DailyCollection {
	if org == nil {
		return nil
	}
	term := strings.ToLower(strings.TrimSpace(searchTerm))

	var collections []DailyCollection
	for _, agent := range org.Agents {
		for _, collection := range agent.DailyCollections {
			transactions := collection.Transactions
			if term != "" {
				transactions = nil
				for _, t := range collection.Transactions {
					if strings.Contains(strings.ToLower(t.Name), term) {
						transactions = append(transactions, t)
					}
				}
				if len(transactions) == 0 {
					continue
				}
			}
			collection.Transactions = transactions
			collection.AgentName = agent.AgentName
			collection.AgentNo = agent.AgentNo
			collections = append(collections, collection)
		}
	}

	sort.SliceStable(collections, func(i, j int) bool {
		return collectionDate(collections[i].Date).After(collectionDate(collections[j].Date))
	})
	return collections
}

func collectionDate(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
