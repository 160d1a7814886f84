package dto

import "encoding/json"

// BulkImportRequest keeps links raw so a non-array value can be told apart from a broken body
type BulkImportRequest struct {
	Links json.RawMessage `json:"links"`
}

// BulkLinkItem is one spreadsheet row. The short URL comes from the sheet.
type BulkLinkItem struct {
	Email       string `json:"email"`
	Program     string `json:"program"`
	Channel     string `json:"channel"`
	Platform    string `json:"platform"`
	Placement   string `json:"placement"`
	Code        string `json:"code,omitempty"`
	Domain      string `json:"domain,omitempty"`
	CBA         string `json:"cba,omitempty"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	FullURL     string `json:"full_url"`
	ShortURL    string `json:"short_url"`
}

type BulkImportError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type BulkImportResult struct {
	Email       string `json:"email"`
	ID          string `json:"id"`
	ShortURL    string `json:"short_url"`
	TrackingURL string `json:"tracking_url"`
	Status      string `json:"status"`
}

// BulkImportResponse is returned with 200 even when some items failed
type BulkImportResponse struct {
	Success   bool               `json:"success"`
	Processed int                `json:"processed"`
	Errors    []BulkImportError  `json:"errors"`
	Results   []BulkImportResult `json:"results"`
}

type BulkFixError struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Error string `json:"error"`
}

type BulkFixResult struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Status       string `json:"status"` // fixed, already_tracking
	ShortURL     string `json:"short_url,omitempty"`
	OldShortURL  string `json:"old_short_url,omitempty"`
	NewShortURL  string `json:"new_short_url,omitempty"`
	TrackingFlow string `json:"tracking_flow,omitempty"`
}

type BulkFixSummary struct {
	TotalLinks      int `json:"total_links"`
	Fixed           int `json:"fixed"`
	AlreadyTracking int `json:"already_tracking"`
	Failed          int `json:"failed"`
}

type BulkFixResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Processed int             `json:"processed"`
	Errors    []BulkFixError  `json:"errors"`
	Results   []BulkFixResult `json:"results"`
	Summary   BulkFixSummary  `json:"summary"`
}
