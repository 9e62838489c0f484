package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MilestoneStatusOpen      = "open"
	MilestoneStatusPending   = "pending"
	MilestoneStatusCompleted = "completed"
	MilestoneStatusVerified  = "verified"
)

// Milestone is one payable unit of a job. It moves open -> pending ->
// completed on the request/pay path; verified is set by client-side
// verification flows outside the payment engine.
type Milestone struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	JobID           uint           `gorm:"not null;index" json:"job_id"`
	Job             Job            `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Title           string         `gorm:"type:varchar(200)" json:"title" validate:"required,max=200"`
	Amount          float64        `gorm:"type:decimal(10,2);not null" json:"amount" validate:"gt=0"`
	Status          string         `gorm:"type:varchar(50);default:'open';index" json:"status"`
	TradieID        *uint          `gorm:"index" json:"tradie_id,omitempty"`
	PaymentIntentID *string        `gorm:"type:varchar(100);default:null" json:"payment_intent_id,omitempty"`
	RequestedAt     *time.Time     `gorm:"type:timestamp;default:null" json:"requested_at,omitempty"`
	CompletedAt     *time.Time     `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasTradie reports whether a tradie has been assigned to this milestone.
func (m *Milestone) HasTradie() bool {
	return m.TradieID != nil && *m.TradieID != 0
}

// IsPayable reports whether the milestone is still waiting on a client payment.
func (m *Milestone) IsPayable() bool {
	return m.Status == MilestoneStatusOpen || m.Status == MilestoneStatusPending
}
