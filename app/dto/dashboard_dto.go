package dto

// ListUTMLinksRequest carries dashboard filters from the query string. "all" or empty means unfiltered.
type ListUTMLinksRequest struct {
	Search   string `query:"search" validate:"omitempty,max=255"`
	Program  string `query:"program" validate:"omitempty,max=100"`
	Channel  string `query:"channel" validate:"omitempty,max=100"`
	Platform string `query:"platform" validate:"omitempty,max=100"`
	Source   string `query:"source" validate:"omitempty,oneof=all individual bulk"`
	Status   string `query:"status" validate:"omitempty,oneof=all provisioning complete"`
	OrderBy  string `query:"order_by" validate:"omitempty,oneof=newest oldest clicks"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type ListUTMLinksResponse struct {
	Items      []UTMLinkDTO   `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
