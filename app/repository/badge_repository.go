package repository

import (
	"github.com/tradiehq/TradieHQ/app/models"
	"gorm.io/gorm"
)

// badgeRepository implements the BadgeRepository interface
type badgeRepository struct {
	db *gorm.DB
}

// NewBadgeRepository creates a new badge repository instance
func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

// GetByUserID retrieves all badges awarded to a user
func (r *badgeRepository) GetByUserID(userID uint) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.Where("user_id = ?", userID).Order("id DESC").Find(&badges).Error
	return badges, err
}
