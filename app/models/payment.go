package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Payment is one payment-provider transaction tied to exactly one milestone.
// CommissionFee is always computed server-side, never client-supplied.
type Payment struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Reference       string         `gorm:"type:varchar(36);uniqueIndex" json:"reference"`
	MilestoneID     uint           `gorm:"not null;index" json:"milestone_id"`
	Milestone       Milestone      `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
	ClientID        uint           `gorm:"not null;index" json:"client_id"`
	Amount          float64        `gorm:"type:decimal(10,2);not null" json:"amount"`
	CommissionFee   float64        `gorm:"type:decimal(10,2);not null" json:"commission_fee"`
	PaymentIntentID string         `gorm:"type:varchar(100);index" json:"payment_intent_id"`
	Status          string         `gorm:"type:varchar(50);default:'pending'" json:"status"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsCompleted reports whether the provider has confirmed this payment.
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}
