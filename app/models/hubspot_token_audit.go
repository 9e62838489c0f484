package models

import "time"

const (
	TokenAuditEventRefreshed = "refreshed"
	TokenAuditEventExchanged = "exchanged"
)

// HubspotTokenAudit records every token refresh/exchange against a portal.
type HubspotTokenAudit struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	PortalID  string     `gorm:"type:varchar(50);index" json:"portal_id"`
	Event     string     `gorm:"type:varchar(50)" json:"event"`
	ExpiresAt *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName pins the historical table name.
func (HubspotTokenAudit) TableName() string {
	return "hubspot_token_audits"
}
