package repository

import (
	"github.com/tradiehq/TradieHQ/app/models"
	"gorm.io/gorm"
)

// milestoneRepository implements the MilestoneRepository interface
type milestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new milestone repository instance
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &milestoneRepository{db: db}
}

// Create creates a new milestone in the database
func (r *milestoneRepository) Create(milestone *models.Milestone) error {
	return r.db.Create(milestone).Error
}

// GetByID retrieves a milestone with its parent job preloaded
func (r *milestoneRepository) GetByID(id uint) (*models.Milestone, error) {
	var milestone models.Milestone
	err := r.db.Preload("Job").First(&milestone, id).Error
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

// GetByJobID retrieves all milestones of a job
func (r *milestoneRepository) GetByJobID(jobID uint) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := r.db.Where("job_id = ?", jobID).Order("id").Find(&milestones).Error
	return milestones, err
}

// Update updates an existing milestone
func (r *milestoneRepository) Update(milestone *models.Milestone) error {
	return r.db.Save(milestone).Error
}

// Delete soft-deletes a milestone by its ID
func (r *milestoneRepository) Delete(id uint) error {
	return r.db.Delete(&models.Milestone{}, id).Error
}
