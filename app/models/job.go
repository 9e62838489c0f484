package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	JobStatusOpen       = "open"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusDisputed   = "disputed"
)

// Job is a posted piece of work owned by a client and optionally assigned to
// a tradie. Milestones hang off a job and inherit its region for commission.
type Job struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ClientID  uint           `gorm:"not null;index" json:"client_id"`
	Client    User           `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	TradieID  *uint          `gorm:"index" json:"tradie_id,omitempty"`
	Title     string         `gorm:"type:varchar(200)" json:"title" validate:"required,max=200"`
	Region    string         `gorm:"type:varchar(50);default:'Metro'" json:"region" validate:"oneof=Metro Regional"`
	Status    string         `gorm:"type:varchar(50);default:'open'" json:"status"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsOwnedBy reports whether the given user is the paying client of this job.
func (j *Job) IsOwnedBy(userID uint) bool {
	return j.ClientID == userID
}

// IsAssignedTo reports whether the given user is the assigned tradie.
func (j *Job) IsAssignedTo(userID uint) bool {
	return j.TradieID != nil && *j.TradieID == userID
}
