package models

import "time"

// HubspotDeadLetter is a terminal failure record for a sync-queue item that
// exhausted its retry attempts. Rows are append-only; the only way back into
// the active queue is an operator-driven requeue.
type HubspotDeadLetter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	QueueID   uint      `gorm:"not null;index" json:"queue_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Error     string    `gorm:"type:text" json:"error"`
	Attempts  int       `gorm:"not null" json:"attempts"`
	Payload   string    `gorm:"type:json" json:"payload"` // snapshot of the queue row at failure time
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName pins the historical table name.
func (HubspotDeadLetter) TableName() string {
	return "hubspot_dlq"
}
