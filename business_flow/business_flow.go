// Package businessflow contains the business logic for the application.
package businessflow

import (
	"strings"
	"time"

	"github.com/amirphl/utm-tracker/app/dto"
	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/utils"
)

// ClientMetadata holds client information used for click identity and logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information.
// Blank values are recorded as "unknown" so every visitor has an identity.
// Oversized values are truncated to fit the click log's unique index.
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	ipAddress = utils.TruncateUTF8(strings.TrimSpace(ipAddress), utils.MaxClientIPLength)
	userAgent = utils.TruncateUTF8(strings.TrimSpace(userAgent), utils.MaxUserAgentLength)
	if ipAddress == "" {
		ipAddress = utils.UnknownClientValue
	}
	if userAgent == "" {
		userAgent = utils.UnknownClientValue
	}
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToUTMLinkDTO converts a link record for the dashboard. email overrides the stored one when set.
func ToUTMLinkDTO(link *models.UTMLink, email string) dto.UTMLinkDTO {
	out := dto.UTMLinkDTO{
		ID:           link.ID.String(),
		Program:      link.Program,
		Channel:      link.Channel,
		Platform:     link.Platform,
		Placement:    link.Placement,
		Code:         link.Code,
		Domain:       link.Domain,
		CBA:          link.CBA,
		UTMSource:    link.UTMSource,
		UTMMedium:    link.UTMMedium,
		UTMCampaign:  link.UTMCampaign,
		FullURL:      link.FullURL,
		ShortURL:     link.ShortURL,
		TrackingURL:  link.TrackingURL,
		Clicks:       link.Clicks,
		UniqueClicks: link.UniqueClicks,
		Email:        utils.Deref(link.Email),
		Source:       string(link.Source),
		Status:       string(link.ProvisioningStatus),
		CreatedAt:    link.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    link.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if link.UserID != nil {
		id := link.UserID.String()
		out.UserID = &id
	}
	if email != "" {
		out.Email = email
	}
	return out
}
