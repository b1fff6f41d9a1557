package models

// UserTypePatsanstha is the only user type allowed into the dashboard.
const UserTypePatsanstha = "patsanstha"

// Organization is the logged in Patsanstha as returned by login and view-data.
type Organization struct {
	ID                string  `json:"_id,omitempty"`
	PatName           string  `json:"patname,omitempty"`
	FullName          string  `json:"fullname,omitempty"`
	MobileNumber      string  `json:"mobilenumber,omitempty"`
	ContactNo         string  `json:"contactno,omitempty"`
	Address           string  `json:"address,omitempty"`
	Status            string  `json:"status,omitempty"`
	NoOfAgent         int     `json:"noOfAgent,omitempty"`         // Agent limit for the organization
	CurrentAgentCount int     `json:"currentAgentCount,omitempty"` // Maintained locally after agent add/delete
	Agents            []Agent `json:"agents,omitempty"`
}

// Agent is a field collection worker, unique by AgentNo within an organization.
type Agent struct {
	AgentNo          string            `json:"agentno"`
	AgentName        string            `json:"agentname"`
	MobileNumber     string            `json:"mobileNumber,omitempty"`
	Customers        []Customer        `json:"customers,omitempty"`
	DailyCollections []DailyCollection `json:"dailyCollections,omitempty"`
}

type Customer struct {
	AccountNo    string  `json:"accountNo,omitempty"`
	Name         string  `json:"name,omitempty"`
	MobileNumber string  `json:"mobileNumber,omitempty"`
	Balance      float64 `json:"balance,omitempty"`
}

// DailyCollection is one agent's set of transactions for a single day.
type DailyCollection struct {
	Date         string        `json:"date"`
	Submitted    bool          `json:"submitted"`
	Transactions []Transaction `json:"transactions,omitempty"`

	// Populated when collections are flattened across agents
	AgentName string `json:"agentName,omitempty"`
	AgentNo   string `json:"agentNo,omitempty"`
}

// Transaction is a single customer line item.
type Transaction struct {
	AgentID      string  `json:"agentId,omitempty"`
	AgentNo      string  `json:"agentno,omitempty"`
	AccountNo    string  `json:"accountNo,omitempty"`
	Name         string  `json:"name,omitempty"`
	MobileNumber string  `json:"mobileNumber,omitempty"`
	CollAmt      float64 `json:"collAmt"`
	PrevBalance  float64 `json:"prevBalance,omitempty"`
	Date         string  `json:"date,omitempty"`
	Time         string  `json:"time,omitempty"`
}

// TransactionList is the payload of the transactions endpoint.
type TransactionList struct {
	Transactions []Transaction `json:"transactions"`
}

// AgentCollectionInfo summarises one agent's submission for a day.
type AgentCollectionInfo struct {
	AgentNo           string  `json:"agentno"`
	AgentName         string  `json:"agentname,omitempty"`
	HasData           bool    `json:"hasData"`
	Submitted         bool    `json:"submitted"`
	SubmittedAt       string  `json:"submittedAt,omitempty"`
	Downloaded        bool    `json:"downloaded"`
	TotalAmount       float64 `json:"totalAmount"`
	TotalTransactions int     `json:"totalTransactions"`
}

// CollectionStatus is the per-day summary across all agents.
type CollectionStatus struct {
	Date               string                `json:"date,omitempty"`
	TotalAgents        int                   `json:"totalAgents"`
	SubmittedAgents    int                   `json:"submittedAgents"`
	DownloadableAgents int                   `json:"downloadableAgents"`
	Agents             []AgentCollectionInfo `json:"agents"`
}

// ForAgent returns the collection info for agentNo, or nil when the agent has none.
func (cs *CollectionStatus) ForAgent(agentNo string) *AgentCollectionInfo {
	if cs == nil {
		return nil
	}
	for i := range cs.Agents {
		if cs.Agents[i].AgentNo == agentNo {
			return &cs.Agents[i]
		}
	}
	return nil
}

// AdminMessage is a broadcast from the platform administrator.
type AdminMessage struct {
	HasMessage       bool   `json:"hasMessage"`
	Message          string `json:"message,omitempty"`
	MessageUpdatedAt string `json:"messageUpdatedAt,omitempty"`
}

// AgentInput is the payload for creating an agent.
type AgentInput struct {
	AgentName    string `json:"agentname"`
	AgentNo      string `json:"agentno"`
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
}

// AgentUpdate is the payload for editing an agent. An empty password leaves it unchanged.
type AgentUpdate struct {
	AgentName    string `json:"agentname"`
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password,omitempty"`
}

// TransactionFilter narrows the transactions endpoint.
type TransactionFilter struct {
	AgentNo string
	AgentID string
	Date    string
}
