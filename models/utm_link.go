package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UTMLinkSource tells how a link record entered the system
type UTMLinkSource string

const (
	UTMLinkSourceIndividual UTMLinkSource = "individual"
	UTMLinkSourceBulk       UTMLinkSource = "bulk"
)

// ProvisioningStatus tracks the two-phase creation of a link record
type ProvisioningStatus string

const (
	ProvisioningStatusProvisioning ProvisioningStatus = "provisioning"
	ProvisioningStatusComplete     ProvisioningStatus = "complete"
)

// UTMLink represents a UTM-tagged destination together with its short and tracking URLs.
// Rows are inserted with an empty tracking URL and patched once the ID is known,
// so readers may observe status provisioning.
type UTMLink struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Program     string    `gorm:"size:100;not null;index:idx_utm_links_program" json:"program"`
	Channel     string    `gorm:"size:100;not null;index:idx_utm_links_channel" json:"channel"`
	Platform    string    `gorm:"size:100;not null;index:idx_utm_links_platform" json:"platform"`
	Placement   string    `gorm:"size:100;not null" json:"placement"`
	Code        *string   `gorm:"size:100" json:"code,omitempty"`
	Domain      *string   `gorm:"size:100" json:"domain,omitempty"`
	CBA         *string   `gorm:"column:cba;size:100" json:"cba,omitempty"`
	UTMSource   string    `gorm:"column:utm_source;size:255;not null" json:"utm_source"`
	UTMMedium   string    `gorm:"column:utm_medium;size:255;not null" json:"utm_medium"`
	UTMCampaign string    `gorm:"column:utm_campaign;size:255;not null" json:"utm_campaign"`
	FullURL     string    `gorm:"column:full_url;type:text;not null" json:"full_url"`
	ShortURL    string    `gorm:"column:short_url;type:text;not null;default:''" json:"short_url"`
	TrackingURL string    `gorm:"column:tracking_url;type:text;not null;default:''" json:"tracking_url"`

	Clicks       int64 `gorm:"not null;default:0;check:chk_utm_links_clicks_non_negative,clicks >= 0" json:"clicks"`
	UniqueClicks int64 `gorm:"not null;default:0;check:chk_utm_links_unique_clicks_bounded,unique_clicks >= 0 AND unique_clicks <= clicks" json:"unique_clicks"`

	UserID *uuid.UUID `gorm:"type:uuid;index:idx_utm_links_user_id" json:"user_id,omitempty"`
	Email  *string    `gorm:"size:255;index:idx_utm_links_email" json:"email,omitempty"`

	Source             UTMLinkSource      `gorm:"size:20;not null;default:'individual';index:idx_utm_links_source" json:"source"`
	ProvisioningStatus ProvisioningStatus `gorm:"size:20;not null;default:'provisioning';index:idx_utm_links_provisioning_status" json:"provisioning_status"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_utm_links_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for UTMLink
func (UTMLink) TableName() string { return "utm_links" }

// BeforeCreate assigns an ID when the caller did not
func (l *UTMLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Source == "" {
		l.Source = UTMLinkSourceIndividual
	}
	if l.ProvisioningStatus == "" {
		l.ProvisioningStatus = ProvisioningStatusProvisioning
	}
	return nil
}

// IsComplete reports whether both write phases have landed
func (l *UTMLink) IsComplete() bool {
	return l.ProvisioningStatus == ProvisioningStatusComplete
}

// UTMLinkFilter provides filter fields for repository queries.
// Search matches full_url, email and utm_campaign case-insensitively.
type UTMLinkFilter struct {
	ID                 *uuid.UUID
	UserID             *uuid.UUID
	Program            *string
	Channel            *string
	Platform           *string
	Source             *UTMLinkSource
	ProvisioningStatus *ProvisioningStatus
	Search             *string
	CreatedAfter       *time.Time
	CreatedBefore      *time.Time
}
