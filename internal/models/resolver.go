package models

// ResolveRequest is posted to the query-resolution webhook.
type ResolveRequest struct {
	SearchQueryMessage string `json:"search_query_message"`
	SessionID          string `json:"session_id"`
	PendingURL         string `json:"pending_url,omitempty"`
}

// RunData is the opaque descriptor of an external scrape run. Beyond
// the identifier and the human-viewable link, its contents are not
// interpreted here.
type RunData struct {
	RunID  string `json:"run_id"`
	RunURL string `json:"run_url"`
	Status string `json:"status,omitempty"`
}

// ResolveResponse holds the mutually-exclusive outcomes of a resolver
// call. The first non-empty field wins, in declaration order.
type ResolveResponse struct {
	ErrorMessage string   `json:"error_message,omitempty"`
	EmptyArea    bool     `json:"empty_area,omitempty"`
	SearchURL    string   `json:"search_url,omitempty"`
	RunData      *RunData `json:"run_data,omitempty"`
	AIMessage    string   `json:"ai_message,omitempty"`
}

// ScrapeRequest is posted to the scrape-result webhook.
type ScrapeRequest struct {
	RunData   *RunData `json:"run_data"`
	SessionID string   `json:"session_id"`
}

// ScrapeResult is the first element of the scrape webhook's response
// array: either a batch of raw listings or an error payload.
type ScrapeResult struct {
	Homes []RawListing `json:"homes,omitempty"`
	Error *ScrapeError `json:"error,omitempty"`
}

type ScrapeError struct {
	Message string `json:"message"`
}
