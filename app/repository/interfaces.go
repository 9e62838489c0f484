package repository

import (
	"github.com/tradiehq/TradieHQ/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// JobRepository defines the interface for job-related database operations
type JobRepository interface {
	Create(job *models.Job) error
	GetByID(id uint) (*models.Job, error)
	GetByClientID(clientID uint, offset, limit int) ([]models.Job, error)
	GetByTradieID(tradieID uint, offset, limit int) ([]models.Job, error)
	Update(job *models.Job) error
	Delete(id uint) error
}

// MilestoneRepository defines the interface for milestone-related database operations
type MilestoneRepository interface {
	Create(milestone *models.Milestone) error
	GetByID(id uint) (*models.Milestone, error)
	GetByJobID(jobID uint) ([]models.Milestone, error)
	Update(milestone *models.Milestone) error
	Delete(id uint) error
}

// PaymentRepository defines the interface for payment-related database operations
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetLatestByMilestoneID(milestoneID uint) (*models.Payment, error)
	GetByClientID(clientID uint, offset, limit int) ([]models.Payment, error)
	Update(payment *models.Payment) error
}

// BadgeRepository defines the interface for badge-related database operations
type BadgeRepository interface {
	GetByUserID(userID uint) ([]models.Badge, error)
}

// NotificationRepository defines the interface for notification-related database operations
type NotificationRepository interface {
	GetByUserID(userID uint, offset, limit int) ([]models.Notification, error)
	MarkRead(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Job          JobRepository
	Milestone    MilestoneRepository
	Payment      PaymentRepository
	Badge        BadgeRepository
	Notification NotificationRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Job:          NewJobRepository(db),
		Milestone:    NewMilestoneRepository(db),
		Payment:      NewPaymentRepository(db),
		Badge:        NewBadgeRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
