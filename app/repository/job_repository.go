package repository

import (
	"github.com/tradiehq/TradieHQ/app/models"
	"gorm.io/gorm"
)

// jobRepository implements the JobRepository interface
type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

// Create creates a new job in the database
func (r *jobRepository) Create(job *models.Job) error {
	return r.db.Create(job).Error
}

// GetByID retrieves a job by its ID
func (r *jobRepository) GetByID(id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.First(&job, id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetByClientID retrieves the jobs posted by a client
func (r *jobRepository) GetByClientID(clientID uint, offset, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.Where("client_id = ?", clientID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// GetByTradieID retrieves the jobs assigned to a tradie
func (r *jobRepository) GetByTradieID(tradieID uint, offset, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.Where("tradie_id = ?", tradieID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Update updates an existing job
func (r *jobRepository) Update(job *models.Job) error {
	return r.db.Save(job).Error
}

// Delete soft-deletes a job by its ID
func (r *jobRepository) Delete(id uint) error {
	return r.db.Delete(&models.Job{}, id).Error
}
