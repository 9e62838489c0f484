package crmsync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradiehq/TradieHQ/app/models"
)

type fakeRepo struct {
	mu          sync.Mutex
	rows        map[uint]*models.HubspotSyncQueue
	users       map[uint]*models.User
	portal      *models.HubspotPortal
	deadLetters []models.HubspotDeadLetter
	audits      []models.HubspotTokenAudit
	unlocked    []uint
	savedPortal int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rows:  make(map[uint]*models.HubspotSyncQueue),
		users: make(map[uint]*models.User),
	}
}

func (f *fakeRepo) Enqueue(userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueueLocked(userID)
	return nil
}

func (f *fakeRepo) enqueueLocked(userID uint) {
	id := uint(len(f.rows) + 1)
	f.rows[id] = &models.HubspotSyncQueue{ID: id, UserID: userID}
}

func (f *fakeRepo) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeRepo) LockPending(limit int) ([]models.HubspotSyncQueue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.HubspotSyncQueue, 0, limit)
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		out = append(out, *f.rows[id])
	}
	return out, nil
}

func (f *fakeRepo) Unlock(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocked = append(f.unlocked, id)
	return nil
}

func (f *fakeRepo) Delete(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeRepo) SaveAttempt(row *models.HubspotSyncQueue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.rows[row.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Attempts = row.Attempts
	stored.NextRunAt = row.NextRunAt
	stored.LastError = row.LastError
	stored.LockedAt = nil
	return nil
}

func (f *fakeRepo) MoveToDeadLetter(row *models.HubspotSyncQueue, errText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadLetters = append(f.deadLetters, models.HubspotDeadLetter{
		QueueID:  row.ID,
		UserID:   row.UserID,
		Error:    errText,
		Attempts: row.Attempts,
	})
	delete(f.rows, row.ID)
	return nil
}

func (f *fakeRepo) FirstPortal() (*models.HubspotPortal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.portal == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.portal, nil
}

func (f *fakeRepo) SavePortalTokens(p *models.HubspotPortal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedPortal++
	f.portal = p
	return nil
}

func (f *fakeRepo) RecordTokenAudit(portalID, event string, expiresAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, models.HubspotTokenAudit{PortalID: portalID, Event: event, ExpiresAt: expiresAt})
	return nil
}

func (f *fakeRepo) GetUser(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeRepo) ListDeadLetters(offset, limit int) ([]models.HubspotDeadLetter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deadLetters, nil
}

func (f *fakeRepo) CountDeadLetters() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.deadLetters)), nil
}

func (f *fakeRepo) RequeueDeadLetter(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.deadLetters {
		if entry.ID == id {
			f.enqueueLocked(entry.UserID)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListUserIDs() ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeCRM struct {
	searchErrs []error
	contact    *Contact

	createErr   error
	patchErr    error
	refreshResp *TokenResponse
	refreshErr  error

	searchCalls  int
	createCalls  int
	patchCalls   int
	refreshCalls int

	lastToken      string
	lastProperties map[string]string
}

func (f *fakeCRM) SearchContactByEmail(ctx context.Context, token, email string) (*Contact, error) {
	f.searchCalls++
	f.lastToken = token
	if len(f.searchErrs) > 0 {
		err := f.searchErrs[0]
		f.searchErrs = f.searchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.contact, nil
}

func (f *fakeCRM) CreateContact(ctx context.Context, token string, properties map[string]string) (*Contact, error) {
	f.createCalls++
	f.lastToken = token
	f.lastProperties = properties
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &Contact{ID: "new", Properties: properties}, nil
}

func (f *fakeCRM) PatchContact(ctx context.Context, token, contactID string, properties map[string]string) error {
	f.patchCalls++
	f.lastToken = token
	f.lastProperties = properties
	return f.patchErr
}

func (f *fakeCRM) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshResp, nil
}

func newTestWorker(repo Repository, crm CRMClient) *Worker {
	w := NewWorker(repo, crm, "test-secret", "")
	w.recordCounter = func(field string, delta int64) {}
	return w
}

func privateAppPortal(token string) *models.HubspotPortal {
	return &models.HubspotPortal{
		ID:          1,
		PortalID:    "12345",
		AuthMode:    models.HubspotAuthModePrivateApp,
		AccessToken: token,
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	expected := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for attempts := 1; attempts <= 7; attempts++ {
		assert.Equal(t, expected[attempts-1], BackoffDelay(attempts), "attempts=%d", attempts)
	}
}

func TestLockAndProcessCreatesNewContact(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Name: "Dana", Email: "dana@example.com", Role: models.ROLE_TRADIE}
	repo.portal = privateAppPortal("pat-token")
	require.NoError(t, repo.Enqueue(7))

	crm := &fakeCRM{} // search finds nothing
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.Processed)
	assert.Equal(t, 1, m.Syncs)
	assert.Equal(t, 0, m.Errors)
	assert.Equal(t, 1, crm.createCalls)
	assert.Equal(t, 0, crm.patchCalls)
	assert.Equal(t, "pat-token", crm.lastToken)
	assert.Equal(t, "dana@example.com", crm.lastProperties["email"])
	assert.Equal(t, "Dana", crm.lastProperties["firstname"])
	assert.Equal(t, models.ROLE_TRADIE, crm.lastProperties[models.HubspotDefaultRoleProperty])
	assert.Empty(t, repo.rows, "synced row must be deleted")
}

func TestLockAndProcessPatchesExistingContact(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Name: "Dana", Email: "dana@example.com", Role: models.ROLE_CLIENT}
	repo.portal = privateAppPortal("pat-token")
	require.NoError(t, repo.Enqueue(7))

	crm := &fakeCRM{contact: &Contact{ID: "501"}}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.Syncs)
	assert.Equal(t, 0, crm.createCalls)
	assert.Equal(t, 1, crm.patchCalls)
	assert.Empty(t, repo.rows)
}

func TestLockAndProcessSkipsFutureRows(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Email: "dana@example.com"}
	repo.portal = privateAppPortal("pat-token")
	future := time.Now().Add(time.Hour)
	repo.rows[1] = &models.HubspotSyncQueue{ID: 1, UserID: 7, Attempts: 2, NextRunAt: &future}

	crm := &fakeCRM{}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.True(t, m.IsZero())
	assert.Equal(t, 0, crm.searchCalls)
	assert.Equal(t, []uint{1}, repo.unlocked, "ineligible row must release its lease")
	assert.Len(t, repo.rows, 1, "row stays queued")
}

func TestLockAndProcessReschedulesWithBackoff(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Email: "dana@example.com"}
	repo.portal = privateAppPortal("pat-token")
	repo.rows[1] = &models.HubspotSyncQueue{ID: 1, UserID: 7, Attempts: 2}

	crm := &fakeCRM{searchErrs: []error{errors.New("boom")}}
	w := newTestWorker(repo, crm)

	before := time.Now()
	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.Errors)
	assert.Equal(t, 0, m.DLQ)
	row := repo.rows[1]
	require.NotNil(t, row)
	assert.Equal(t, 3, row.Attempts)
	assert.Equal(t, "boom", row.LastError)
	require.NotNil(t, row.NextRunAt)
	// attempts=3 after increment, so the delay is 8s
	assert.WithinDuration(t, before.Add(8*time.Second), *row.NextRunAt, 2*time.Second)
}

func TestLockAndProcessDeadLettersAtMaxAttempts(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Email: "dana@example.com"}
	repo.portal = privateAppPortal("pat-token")
	repo.rows[1] = &models.HubspotSyncQueue{ID: 1, UserID: 7, Attempts: MaxAttempts - 1}

	crm := &fakeCRM{searchErrs: []error{errors.New("still broken")}}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.DLQ)
	assert.Empty(t, repo.rows, "dead-lettered row must leave the queue")
	require.Len(t, repo.deadLetters, 1)
	assert.Equal(t, uint(7), repo.deadLetters[0].UserID)
	assert.Equal(t, MaxAttempts, repo.deadLetters[0].Attempts)
	assert.Equal(t, "still broken", repo.deadLetters[0].Error)
}

func TestStaticTokenUnauthorizedFailsWithoutRefresh(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Email: "dana@example.com"}
	repo.portal = privateAppPortal("revoked-token")
	repo.rows[1] = &models.HubspotSyncQueue{ID: 1, UserID: 7}

	crm := &fakeCRM{searchErrs: []error{ErrUnauthorized}}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.Errors)
	assert.Equal(t, 0, crm.refreshCalls, "static-token mode must not attempt refresh")
	assert.Equal(t, 1, crm.searchCalls, "no retry after a static-token 401")
	assert.Equal(t, 1, repo.rows[1].Attempts)
}

func TestOAuthUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Email: "dana@example.com"}
	repo.portal = &models.HubspotPortal{
		ID:           1,
		PortalID:     "12345",
		AuthMode:     models.HubspotAuthModeOAuth,
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
	}
	repo.rows[1] = &models.HubspotSyncQueue{ID: 1, UserID: 7}

	crm := &fakeCRM{
		searchErrs:  []error{ErrUnauthorized, nil},
		refreshResp: &TokenResponse{AccessToken: "fresh-token", RefreshToken: "refresh-2", ExpiresIn: 1800},
	}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.Syncs)
	assert.Equal(t, 1, crm.refreshCalls)
	assert.Equal(t, 2, crm.searchCalls)
	assert.Equal(t, "fresh-token", crm.lastToken)
	assert.GreaterOrEqual(t, repo.savedPortal, 1, "refreshed tokens must be persisted")
	require.NotEmpty(t, repo.audits)
	assert.Equal(t, models.TokenAuditEventRefreshed, repo.audits[len(repo.audits)-1].Event)
	assert.Empty(t, repo.rows)
}

func TestExpiredOAuthTokenRefreshesBeforeFirstCall(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Email: "dana@example.com"}
	past := time.Now().Add(-time.Minute)
	repo.portal = &models.HubspotPortal{
		ID:           1,
		PortalID:     "12345",
		AuthMode:     models.HubspotAuthModeOAuth,
		AccessToken:  "expired-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    &past,
	}
	repo.rows[1] = &models.HubspotSyncQueue{ID: 1, UserID: 7}

	crm := &fakeCRM{
		refreshResp: &TokenResponse{AccessToken: "fresh-token", RefreshToken: "refresh-2", ExpiresIn: 1800},
	}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.Syncs)
	assert.Equal(t, 1, crm.refreshCalls)
	assert.Equal(t, "fresh-token", crm.lastToken)
}

func TestRateLimitWaitsAndRetriesOnce(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Email: "dana@example.com"}
	repo.portal = privateAppPortal("pat-token")
	repo.rows[1] = &models.HubspotSyncQueue{ID: 1, UserID: 7}

	crm := &fakeCRM{
		searchErrs: []error{&RateLimitError{RetryAfter: time.Millisecond}, nil},
	}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.Syncs)
	assert.Equal(t, 2, crm.searchCalls)
	assert.Empty(t, repo.rows)
}

func TestMissingTokenFailsTheRow(t *testing.T) {
	repo := newFakeRepo()
	repo.users[7] = &models.User{ID: 7, Email: "dana@example.com"}
	repo.portal = privateAppPortal("")
	repo.rows[1] = &models.HubspotSyncQueue{ID: 1, UserID: 7}

	crm := &fakeCRM{}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.Errors)
	assert.Equal(t, 0, crm.searchCalls)
	assert.Equal(t, 1, repo.rows[1].Attempts)
	assert.Contains(t, repo.rows[1].LastError, "no hubspot token")
}

func TestMissingUserLeavesRowUntouched(t *testing.T) {
	repo := newFakeRepo()
	repo.portal = privateAppPortal("pat-token")
	repo.rows[1] = &models.HubspotSyncQueue{ID: 1, UserID: 99}

	crm := &fakeCRM{}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 10)

	assert.Equal(t, 1, m.Errors)
	assert.Equal(t, 0, repo.rows[1].Attempts, "lookup failures must not burn an attempt")
	assert.Equal(t, []uint{1}, repo.unlocked)
}

func TestLockAndProcessHonorsBatchLimit(t *testing.T) {
	repo := newFakeRepo()
	repo.portal = privateAppPortal("pat-token")
	for i := uint(1); i <= 5; i++ {
		repo.users[i] = &models.User{ID: i, Email: "user@example.com"}
		require.NoError(t, repo.Enqueue(i))
	}

	crm := &fakeCRM{contact: &Contact{ID: "1"}}
	w := newTestWorker(repo, crm)

	m := w.LockAndProcess(context.Background(), 2)

	assert.Equal(t, 2, m.Processed)
	assert.Equal(t, 2, m.Syncs)
	assert.Len(t, repo.rows, 3)
}
