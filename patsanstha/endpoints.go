package patsanstha

import "net/url"

// Backend endpoints, relative to the API base URL.
const (
	EndpointLogin              = "/patsanstha/login"
	EndpointLogout             = "/patsanstha/logout"
	EndpointRefreshToken       = "/patsanstha/refresh-token"
	EndpointViewData           = "/patsanstha/view-data"
	EndpointAddAgent           = "/patsanstha/add-agent"
	EndpointEditAgent          = "/patsanstha/edit-agent/"
	EndpointDeleteAgent        = "/patsanstha/delete-agent/"
	EndpointAdminMessage       = "/patsanstha/admin-message"
	EndpointUploadFile         = "/patsanstha/upload-file/"
	EndpointCollectionStatus   = "/patsanstha/collection-status"
	EndpointDownloadCollection = "/patsanstha/download-collection/"
	EndpointTransactions       = "/patsanstha/transactions"
)

// agentPath appends an escaped agent number to a per-agent endpoint.
func agentPath(endpoint, agentNo string) string {
	return endpoint + url.PathEscape(agentNo)
}

// optionalQuery builds a query from name/value pairs, skipping empty values.
func optionalQuery(pairs ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			q.Set(pairs[i], pairs[i+1])
		}
	}
	return q
}
