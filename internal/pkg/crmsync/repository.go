package crmsync

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradiehq/TradieHQ/app/models"
)

// lockLease is how long a locked row stays invisible to other workers. A
// worker that crashes mid-processing loses its lease and the row becomes
// lockable again.
const lockLease = 5 * time.Minute

// Repository provides DB operations used by the sync worker and the
// operator-facing DLQ endpoints.
type Repository interface {
	Enqueue(userID uint) error
	LockPending(limit int) ([]models.HubspotSyncQueue, error)
	Unlock(id uint) error
	Delete(id uint) error
	SaveAttempt(row *models.HubspotSyncQueue) error
	MoveToDeadLetter(row *models.HubspotSyncQueue, errText string) error
	FirstPortal() (*models.HubspotPortal, error)
	SavePortalTokens(p *models.HubspotPortal) error
	RecordTokenAudit(portalID, event string, expiresAt *time.Time) error
	GetUser(id uint) (*models.User, error)
	ListDeadLetters(offset, limit int) ([]models.HubspotDeadLetter, error)
	CountDeadLetters() (int64, error)
	RequeueDeadLetter(id uint) error
	ListUserIDs() ([]uint, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a sync repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Enqueue(userID uint) error {
	return r.db.Create(&models.HubspotSyncQueue{UserID: userID}).Error
}

// LockPending atomically claims up to limit eligible rows using a
// skip-locked select plus a lease stamp. Rows whose lease expired are
// reclaimable.
func (r *gormRepository) LockPending(limit int) ([]models.HubspotSyncQueue, error) {
	var rows []models.HubspotSyncQueue
	now := time.Now()
	stale := now.Add(-lockLease)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("locked_at IS NULL OR locked_at < ?", stale).
			Order("id").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(rows))
		for i := range rows {
			ids = append(ids, rows[i].ID)
		}
		if err := tx.Model(&models.HubspotSyncQueue{}).
			Where("id IN ?", ids).
			Update("locked_at", now).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].LockedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) Unlock(id uint) error {
	return r.db.Model(&models.HubspotSyncQueue{}).
		Where("id = ?", id).
		Update("locked_at", nil).Error
}

func (r *gormRepository) Delete(id uint) error {
	return r.db.Delete(&models.HubspotSyncQueue{}, id).Error
}

func (r *gormRepository) SaveAttempt(row *models.HubspotSyncQueue) error {
	return r.db.Model(&models.HubspotSyncQueue{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"attempts":    row.Attempts,
			"next_run_at": row.NextRunAt,
			"last_error":  row.LastError,
			"locked_at":   nil,
		}).Error
}

// MoveToDeadLetter writes the terminal failure record and removes the queue
// row in one transaction.
func (r *gormRepository) MoveToDeadLetter(row *models.HubspotSyncQueue, errText string) error {
	snapshot, err := json.Marshal(row)
	if err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		entry := models.HubspotDeadLetter{
			QueueID:  row.ID,
			UserID:   row.UserID,
			Error:    errText,
			Attempts: row.Attempts,
			Payload:  string(snapshot),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Delete(&models.HubspotSyncQueue{}, row.ID).Error
	})
}

func (r *gormRepository) FirstPortal() (*models.HubspotPortal, error) {
	var p models.HubspotPortal
	if err := r.db.Order("id").First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) SavePortalTokens(p *models.HubspotPortal) error {
	return r.db.Model(&models.HubspotPortal{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"access_token":            p.AccessToken,
			"refresh_token":           p.RefreshToken,
			"encrypted_access_token":  p.EncryptedAccessToken,
			"encrypted_refresh_token": p.EncryptedRefreshToken,
			"expires_at":              p.ExpiresAt,
		}).Error
}

func (r *gormRepository) RecordTokenAudit(portalID, event string, expiresAt *time.Time) error {
	return r.db.Create(&models.HubspotTokenAudit{
		PortalID:  portalID,
		Event:     event,
		ExpiresAt: expiresAt,
	}).Error
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) ListDeadLetters(offset, limit int) ([]models.HubspotDeadLetter, error) {
	var entries []models.HubspotDeadLetter
	err := r.db.Order("id DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

func (r *gormRepository) CountDeadLetters() (int64, error) {
	var count int64
	err := r.db.Model(&models.HubspotDeadLetter{}).Count(&count).Error
	return count, err
}

// RequeueDeadLetter re-inserts a dead-lettered item into the active queue
// with attempts reset to zero. The DLQ entry itself stays, append-only.
func (r *gormRepository) RequeueDeadLetter(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var entry models.HubspotDeadLetter
		if err := tx.First(&entry, id).Error; err != nil {
			return err
		}
		return tx.Create(&models.HubspotSyncQueue{UserID: entry.UserID}).Error
	})
}

func (r *gormRepository) ListUserIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.User{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}
