package models

import (
	"time"

	"github.com/google/uuid"
)

// ClickLog records the first visit of a (link, ip, user agent) triple.
// The composite unique index is what makes a visit count as unique.
type ClickLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UTMLinkID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_click_logs_link_ip_ua,priority:1" json:"utm_link_id"`
	IPAddress string    `gorm:"size:64;not null;uniqueIndex:uk_click_logs_link_ip_ua,priority:2" json:"ip_address"`
	UserAgent string    `gorm:"type:text;not null;uniqueIndex:uk_click_logs_link_ip_ua,priority:3" json:"user_agent"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_click_logs_created_at" json:"created_at"`
}

// TableName returns the table name for ClickLog
func (ClickLog) TableName() string { return "click_logs" }
