package models

import (
	"time"

	"gorm.io/gorm"
)

const BadgeMilestoneCompleted = "milestone_completed"

// Badge is an achievement awarded to a tradie, e.g. on milestone completion.
type Badge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Kind        string    `gorm:"type:varchar(50);not null" json:"kind"`
	ReferenceID uint      `json:"reference_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AwardBadge creates a badge for a user. Callers treat failures as
// best-effort and must not abort their own flow on error.
func AwardBadge(db *gorm.DB, userID uint, kind string, referenceID uint) error {
	badge := Badge{
		UserID:      userID,
		Kind:        kind,
		ReferenceID: referenceID,
	}

	return db.Create(&badge).Error
}
