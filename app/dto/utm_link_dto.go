package dto

// CreateUTMLinkRequest represents the UTM builder form submission
type CreateUTMLinkRequest struct {
	Email       string  `json:"email" validate:"omitempty,email,max=255"`
	Program     string  `json:"program" validate:"required,max=100"`
	Channel     string  `json:"channel" validate:"required,max=100"`
	Platform    string  `json:"platform" validate:"required,max=100"`
	Placement   string  `json:"placement" validate:"required,max=100"`
	LandingPage string  `json:"landing_page" validate:"required,url,max=2048"`
	Domain      *string `json:"domain,omitempty" validate:"omitempty,max=100,excludesall= /?#"`
	CBA         *string `json:"cba,omitempty" validate:"omitempty,max=100"`
	Code        *string `json:"code,omitempty" validate:"omitempty,max=100"`
}

// CreateUTMLinkResponse represents the outcome of link provisioning.
// Status stays provisioning when the second write did not land.
type CreateUTMLinkResponse struct {
	ID          string `json:"id"`
	FullURL     string `json:"full_url"`
	ShortURL    string `json:"short_url"`
	TrackingURL string `json:"tracking_url"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	Status      string `json:"status"`
}

// UTMLinkDTO represents a link record as shown on the dashboard
type UTMLinkDTO struct {
	ID           string  `json:"id"`
	Program      string  `json:"program"`
	Channel      string  `json:"channel"`
	Platform     string  `json:"platform"`
	Placement    string  `json:"placement"`
	Code         *string `json:"code,omitempty"`
	Domain       *string `json:"domain,omitempty"`
	CBA          *string `json:"cba,omitempty"`
	UTMSource    string  `json:"utm_source"`
	UTMMedium    string  `json:"utm_medium"`
	UTMCampaign  string  `json:"utm_campaign"`
	FullURL      string  `json:"full_url"`
	ShortURL     string  `json:"short_url"`
	TrackingURL  string  `json:"tracking_url"`
	Clicks       int64   `json:"clicks"`
	UniqueClicks int64   `json:"unique_clicks"`
	UserID       *string `json:"user_id,omitempty"`
	Email        string  `json:"email"`
	Source       string  `json:"source"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// UTMLinkDetailResponse adds click log figures to a single record
type UTMLinkDetailResponse struct {
	UTMLinkDTO
	LoggedVisitors int64 `json:"logged_visitors"`
}

// CatalogResponse exposes the builder's selection tables
type CatalogResponse struct {
	Programs     []string                       `json:"programs"`
	Channels     []string                       `json:"channels"`
	Platforms    []string                       `json:"platforms"`
	ChannelKeys  map[string]string              `json:"channel_keys"`
	PlatformKeys map[string]string              `json:"platform_keys"`
	Placements   map[string][]string            `json:"placements"`
	LandingPages map[string]map[string][]string `json:"landing_pages"`
}
