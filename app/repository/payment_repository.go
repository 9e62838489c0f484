package repository

import (
	"github.com/tradiehq/TradieHQ/app/models"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment in the database
func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByID retrieves a payment by its ID
func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetLatestByMilestoneID retrieves the most recent payment of a milestone
func (r *paymentRepository) GetLatestByMilestoneID(milestoneID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("milestone_id = ?", milestoneID).Order("id DESC").First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByClientID retrieves the payments made by a client
func (r *paymentRepository) GetByClientID(clientID uint, offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("client_id = ?", clientID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// Update updates an existing payment
func (r *paymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}
