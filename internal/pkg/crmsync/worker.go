package crmsync

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/tradiehq/TradieHQ/app/models"
	"github.com/tradiehq/TradieHQ/internal/pkg/metrics/counter"
)

const (
	// MaxAttempts is the retry ceiling before an item moves to the DLQ.
	MaxAttempts = 5

	backoffBase    = time.Second
	backoffCeiling = 60 * time.Second
)

// Worker drains the sync queue: it locks a batch of rows, pushes each user
// into the CRM and either deletes the row, reschedules it with backoff, or
// promotes it to the dead-letter table. It never surfaces an error to the
// polling loop.
type Worker struct {
	repo          Repository
	crm           CRMClient
	secret        string
	fallbackToken string

	// recordCounter mirrors per-pass counts into cumulative storage;
	// best-effort, overridable in tests.
	recordCounter func(field string, delta int64)
}

// NewWorker creates a sync worker. secret is the shared token-encryption
// secret; fallbackToken is the static environment-provided CRM token used
// when a portal carries no usable token of its own.
func NewWorker(repo Repository, crm CRMClient, secret, fallbackToken string) *Worker {
	return &Worker{
		repo:          repo,
		crm:           crm,
		secret:        secret,
		fallbackToken: fallbackToken,
		recordCounter: func(field string, delta int64) {
			if err := counter.AddWorkerCounter(field, delta); err != nil {
				log.Debugf("[HubspotSync] Counter update failed: %v", err)
			}
		},
	}
}

// BackoffDelay returns the reschedule delay after the given (already
// incremented) attempt count: min(60s, 1s * 2^attempts).
func BackoffDelay(attempts int) time.Duration {
	if attempts >= 6 {
		return backoffCeiling
	}
	d := backoffBase << uint(attempts)
	if d > backoffCeiling {
		return backoffCeiling
	}
	return d
}

// LockAndProcess runs one worker pass over at most limit queue rows and
// returns the counters for this pass. Safe to call concurrently from
// multiple worker instances; row locking is delegated to the store.
func (w *Worker) LockAndProcess(ctx context.Context, limit int) Metrics {
	var m Metrics

	rows, err := w.repo.LockPending(limit)
	if err != nil {
		log.Errorf("[HubspotSync] Failed to lock queue rows: %v", err)
		m.Errors++
		return m
	}

	now := time.Now()
	for i := range rows {
		row := rows[i]

		if !row.IsEligible(now) {
			// Not due yet; release the lease and pick it up next cycle.
			if err := w.repo.Unlock(row.ID); err != nil {
				log.Errorf("[HubspotSync] Failed to unlock row %d: %v", row.ID, err)
			}
			continue
		}

		m.Processed++
		w.processRow(ctx, &row, &m)
	}

	w.recordCounter(counter.FieldProcessed, int64(m.Processed))
	w.recordCounter(counter.FieldSyncs, int64(m.Syncs))
	w.recordCounter(counter.FieldErrors, int64(m.Errors))
	w.recordCounter(counter.FieldDeadLetter, int64(m.DLQ))
	return m
}

func (w *Worker) processRow(ctx context.Context, row *models.HubspotSyncQueue, m *Metrics) {
	user, err := w.repo.GetUser(row.UserID)
	if err != nil {
		// Lookup failures leave the row untouched for the next cycle.
		log.Errorf("[HubspotSync] Failed to load user %d for row %d: %v", row.UserID, row.ID, err)
		m.Errors++
		if err := w.repo.Unlock(row.ID); err != nil {
			log.Errorf("[HubspotSync] Failed to unlock row %d: %v", row.ID, err)
		}
		return
	}

	portal, err := w.repo.FirstPortal()
	if err != nil {
		log.Errorf("[HubspotSync] Failed to load portal for row %d: %v", row.ID, err)
		m.Errors++
		if err := w.repo.Unlock(row.ID); err != nil {
			log.Errorf("[HubspotSync] Failed to unlock row %d: %v", row.ID, err)
		}
		return
	}

	creds := w.credentialsFor(portal)
	if err := creds.RefreshIfNeeded(ctx, false); err != nil {
		log.Warnf("[HubspotSync] Token refresh failed for portal %s: %v", portal.PortalID, err)
		w.fail(row, err, m)
		return
	}

	if err := w.upsertContact(ctx, portal, creds, user); err != nil {
		log.Warnf("[HubspotSync] Upsert failed for user %d (row %d, attempt %d): %v", user.ID, row.ID, row.Attempts+1, err)
		w.fail(row, err, m)
		return
	}

	if err := w.repo.Delete(row.ID); err != nil {
		log.Errorf("[HubspotSync] Failed to delete synced row %d: %v", row.ID, err)
		m.Errors++
		return
	}
	m.Syncs++
}

// fail increments the attempt counter and either promotes the row to the
// dead-letter table or reschedules it with exponential backoff.
func (w *Worker) fail(row *models.HubspotSyncQueue, cause error, m *Metrics) {
	row.Attempts++
	row.LastError = cause.Error()

	if row.Attempts >= MaxAttempts {
		if err := w.repo.MoveToDeadLetter(row, cause.Error()); err != nil {
			log.Errorf("[HubspotSync] Failed to dead-letter row %d: %v", row.ID, err)
			m.Errors++
			return
		}
		log.Errorf("[HubspotSync] Row %d dead-lettered after %d attempts: %v", row.ID, row.Attempts, cause)
		m.DLQ++
		return
	}

	next := time.Now().Add(BackoffDelay(row.Attempts))
	row.NextRunAt = &next
	if err := w.repo.SaveAttempt(row); err != nil {
		log.Errorf("[HubspotSync] Failed to reschedule row %d: %v", row.ID, err)
	}
	m.Errors++
}

func (w *Worker) credentialsFor(portal *models.HubspotPortal) CredentialProvider {
	if !portal.IsOAuth() {
		token := portal.AccessToken
		if token == "" {
			token = w.fallbackToken
		}
		return &StaticTokenCredentials{Token: token}
	}
	return &OAuthCredentials{
		Portal:        portal,
		Repo:          w.repo,
		Client:        w.crm,
		Secret:        w.secret,
		FallbackToken: w.fallbackToken,
	}
}

// upsertContact pushes one user into the CRM: search by email, then create
// or patch. A 401 triggers one forced refresh and retry in OAuth mode and
// fails immediately in static-token mode; a 429 honors Retry-After once.
func (w *Worker) upsertContact(ctx context.Context, portal *models.HubspotPortal, creds CredentialProvider, user *models.User) error {
	token := creds.ResolveToken()
	if token == "" {
		return errors.New("no hubspot token available")
	}

	contact, err := w.crm.SearchContactByEmail(ctx, token, user.Email)
	if errors.Is(err, ErrUnauthorized) {
		if !creds.CanRefresh() {
			return err
		}
		if rerr := creds.RefreshIfNeeded(ctx, true); rerr != nil {
			return rerr
		}
		token = creds.ResolveToken()
		contact, err = w.crm.SearchContactByEmail(ctx, token, user.Email)
	}

	var rateLimited *RateLimitError
	if errors.As(err, &rateLimited) {
		select {
		case <-time.After(rateLimited.RetryAfter):
		case <-ctx.Done():
			return ctx.Err()
		}
		contact, err = w.crm.SearchContactByEmail(ctx, token, user.Email)
	}
	if err != nil {
		return err
	}

	properties := map[string]string{
		"email":               user.Email,
		"firstname":           user.Name,
		portal.RoleProperty(): user.Role,
	}

	if contact == nil {
		_, err = w.crm.CreateContact(ctx, token, properties)
		return err
	}
	return w.crm.PatchContact(ctx, token, contact.ID, properties)
}
