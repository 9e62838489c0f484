package escrow

import (
	"github.com/tradiehq/TradieHQ/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the payment engine.
type Repository interface {
	GetMilestone(id uint) (*models.Milestone, error)
	UpdateMilestone(m *models.Milestone) error
	CreatePayment(p *models.Payment) error
	GetPaymentByMilestone(milestoneID uint) (*models.Payment, error)
	UpdatePayment(p *models.Payment) error
	GetUser(id uint) (*models.User, error)
	AwardBadge(userID uint, kind string, referenceID uint) error
	CreateNotification(userID uint, notificationType, content string, referenceID uint) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an escrow repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetMilestone(id uint) (*models.Milestone, error) {
	var m models.Milestone
	if err := r.db.Preload("Job").First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) UpdateMilestone(m *models.Milestone) error {
	return r.db.Save(m).Error
}

func (r *gormRepository) CreatePayment(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *gormRepository) GetPaymentByMilestone(milestoneID uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("milestone_id = ?", milestoneID).
		Order("id DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) UpdatePayment(p *models.Payment) error {
	return r.db.Save(p).Error
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) AwardBadge(userID uint, kind string, referenceID uint) error {
	return models.AwardBadge(r.db, userID, kind, referenceID)
}

func (r *gormRepository) CreateNotification(userID uint, notificationType, content string, referenceID uint) error {
	return models.CreateNotification(r.db, userID, notificationType, content, referenceID)
}
