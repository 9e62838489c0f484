package models

import "time"

// HubspotSyncQueue is one pending unit of outbound CRM sync work for a user.
// Rows are deleted on success or on promotion to the dead-letter table.
type HubspotSyncQueue struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Attempts  int        `gorm:"not null;default:0" json:"attempts"`
	NextRunAt *time.Time `gorm:"type:timestamp;default:null;index" json:"next_run_at,omitempty"`
	LastError string     `gorm:"type:text" json:"last_error,omitempty"`
	LockedAt  *time.Time `gorm:"type:timestamp;default:null;index" json:"-"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName pins the historical table name.
func (HubspotSyncQueue) TableName() string {
	return "hubspot_sync_queue"
}

// IsEligible reports whether the item may run at the given time.
func (q *HubspotSyncQueue) IsEligible(now time.Time) bool {
	return q.NextRunAt == nil || !q.NextRunAt.After(now)
}
