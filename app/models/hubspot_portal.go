package models

import "time"

const (
	HubspotAuthModeOAuth      = "oauth"
	HubspotAuthModePrivateApp = "private_app"

	// HubspotDefaultRoleProperty is the contact property written when a
	// portal has no custom mapping configured.
	HubspotDefaultRoleProperty = "tradiehq_roles"
)

// HubspotPortal is one connected CRM tenant. The encrypted token columns,
// when present, are authoritative; the plaintext columns exist for portals
// connected before token encryption was introduced.
type HubspotPortal struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	PortalID              string     `gorm:"type:varchar(50);uniqueIndex" json:"portal_id"`
	AuthMode              string     `gorm:"type:varchar(20);default:'oauth'" json:"auth_mode" validate:"oneof=oauth private_app"`
	AccessToken           string     `gorm:"type:text" json:"-"`
	RefreshToken          string     `gorm:"type:text" json:"-"`
	EncryptedAccessToken  string     `gorm:"type:text" json:"-"`
	EncryptedRefreshToken string     `gorm:"type:text" json:"-"`
	ExpiresAt             *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	Scopes                string     `gorm:"type:text" json:"scopes,omitempty"`
	RolePropertyName      string     `gorm:"type:varchar(100);default:''" json:"role_property_name,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName pins the historical table name.
func (HubspotPortal) TableName() string {
	return "hubspot_portals"
}

// IsOAuth reports whether this portal refreshes tokens via the OAuth flow.
func (p *HubspotPortal) IsOAuth() bool {
	return p.AuthMode != HubspotAuthModePrivateApp
}

// TokenExpired reports whether the stored access token has passed expiry.
func (p *HubspotPortal) TokenExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// RoleProperty returns the contact property name used for the role list,
// falling back to the default when the portal has no custom mapping.
func (p *HubspotPortal) RoleProperty() string {
	if p.RolePropertyName != "" {
		return p.RolePropertyName
	}
	return HubspotDefaultRoleProperty
}
