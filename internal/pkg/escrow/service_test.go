package escrow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradiehq/TradieHQ/app/models"
	"github.com/tradiehq/TradieHQ/internal/pkg/payments"
)

type fakeRepository struct {
	milestones    map[uint]*models.Milestone
	payments      map[uint]*models.Payment
	users         map[uint]*models.User
	badges        []models.Badge
	notifications []models.Notification
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		milestones: make(map[uint]*models.Milestone),
		payments:   make(map[uint]*models.Payment),
		users:      make(map[uint]*models.User),
	}
}

func (r *fakeRepository) GetMilestone(id uint) (*models.Milestone, error) {
	m, ok := r.milestones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeRepository) UpdateMilestone(m *models.Milestone) error {
	cp := *m
	r.milestones[m.ID] = &cp
	return nil
}

func (r *fakeRepository) CreatePayment(p *models.Payment) error {
	p.ID = uint(len(r.payments) + 1)
	cp := *p
	r.payments[p.MilestoneID] = &cp
	return nil
}

func (r *fakeRepository) GetPaymentByMilestone(milestoneID uint) (*models.Payment, error) {
	p, ok := r.payments[milestoneID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepository) UpdatePayment(p *models.Payment) error {
	cp := *p
	r.payments[p.MilestoneID] = &cp
	return nil
}

func (r *fakeRepository) GetUser(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeRepository) AwardBadge(userID uint, kind string, referenceID uint) error {
	r.badges = append(r.badges, models.Badge{UserID: userID, Kind: kind, ReferenceID: referenceID})
	return nil
}

func (r *fakeRepository) CreateNotification(userID uint, notificationType, content string, referenceID uint) error {
	r.notifications = append(r.notifications, models.Notification{
		UserID: userID, Type: notificationType, Content: content, ReferenceID: referenceID,
	})
	return nil
}

type fakeProvider struct {
	intent         *payments.Intent
	intentErr      error
	createdIntents []payments.CreateIntentParams
	transfers      []payments.TransferParams
}

func (p *fakeProvider) CreateIntent(_ context.Context, params payments.CreateIntentParams) (*payments.Intent, error) {
	if p.intentErr != nil {
		return nil, p.intentErr
	}
	p.createdIntents = append(p.createdIntents, params)
	return p.intent, nil
}

func (p *fakeProvider) GetIntent(_ context.Context, id string) (*payments.Intent, error) {
	if p.intentErr != nil {
		return nil, p.intentErr
	}
	return p.intent, nil
}

func (p *fakeProvider) CreateTransfer(_ context.Context, params payments.TransferParams) (*payments.Transfer, error) {
	p.transfers = append(p.transfers, params)
	return &payments.Transfer{ID: "tr_1", Amount: params.AmountCents, Destination: params.Destination}, nil
}

const (
	clientID = uint(1)
	tradieID = uint(2)
)

func seedMilestone(repo *fakeRepository, region string, withTradie bool, status string) *models.Milestone {
	job := models.Job{ID: 10, ClientID: clientID, Region: region}
	m := &models.Milestone{ID: 42, JobID: job.ID, Job: job, Title: "Frame the deck", Amount: 1000, Status: status}
	if withTradie {
		tid := tradieID
		m.TradieID = &tid
		m.Job.TradieID = &tid
	}
	repo.milestones[m.ID] = m
	repo.users[clientID] = &models.User{ID: clientID, Role: models.ROLE_CLIENT, StripeCustomerID: "cus_1"}
	repo.users[tradieID] = &models.User{ID: tradieID, Role: models.ROLE_TRADIE, StripeAccountID: "acct_1"}
	return m
}

func TestCreatePaymentRejectsMissingTradie(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, false, models.MilestoneStatusPending)
	svc := NewService(repo, &fakeProvider{})

	_, err := svc.CreatePayment(context.Background(), 42, 100, clientID, Options{})
	require.Error(t, err)

	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, KindInvalidState, engineErr.Kind)
	assert.Equal(t, "Milestone does not have an assigned tradie", engineErr.Message)
	assert.Equal(t, 400, engineErr.HTTPStatus())
}

func TestCreatePaymentForcePayEarlyOverridesTradieGuard(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, false, models.MilestoneStatusOpen)
	provider := &fakeProvider{intent: &payments.Intent{
		ID: "pi_1", Status: payments.IntentStatusRequiresConfirmation, ClientSecret: "pi_1_secret",
	}}
	svc := NewService(repo, provider)

	res, err := svc.CreatePayment(context.Background(), 42, 100, clientID, Options{ForcePayEarly: true})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, models.PaymentStatusPending, res.Status)
}

func TestCreatePaymentRejectsNonOwner(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, true, models.MilestoneStatusPending)
	svc := NewService(repo, &fakeProvider{})

	_, err := svc.CreatePayment(context.Background(), 42, 100, uint(99), Options{})
	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, KindUnauthorized, engineErr.Kind)
	assert.Equal(t, 403, engineErr.HTTPStatus())
}

func TestCreatePaymentMissingMilestoneIs404(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, &fakeProvider{})

	_, err := svc.CreatePayment(context.Background(), 7, 100, clientID, Options{})
	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, KindNotFound, engineErr.Kind)
	assert.Equal(t, 404, engineErr.HTTPStatus())
}

func TestCreatePaymentRequiresPaymentMethod(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, true, models.MilestoneStatusPending)
	repo.users[clientID].StripeCustomerID = ""
	svc := NewService(repo, &fakeProvider{})

	_, err := svc.CreatePayment(context.Background(), 42, 100, clientID, Options{})
	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, KindMissingPaymentMethod, engineErr.Kind)
}

func TestCreatePaymentChargesGrossAndRecordsCommission(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, true, models.MilestoneStatusPending)
	provider := &fakeProvider{intent: &payments.Intent{
		ID: "pi_1", Status: payments.IntentStatusRequiresConfirmation, ClientSecret: "pi_1_secret",
	}}
	svc := NewService(repo, provider)

	res, err := svc.CreatePayment(context.Background(), 42, 1000, clientID, Options{})
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", res.ClientSecret)

	// Gross charge is amount + commission: 1000 + 33.30 in cents.
	require.Len(t, provider.createdIntents, 1)
	assert.Equal(t, int64(103330), provider.createdIntents[0].AmountCents)
	assert.Equal(t, "cus_1", provider.createdIntents[0].CustomerID)

	payment := repo.payments[42]
	require.NotNil(t, payment)
	assert.Equal(t, 33.30, payment.CommissionFee)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)

	milestone := repo.milestones[42]
	assert.Equal(t, models.MilestoneStatusPending, milestone.Status)
	require.NotNil(t, milestone.PaymentIntentID)
	assert.Equal(t, "pi_1", *milestone.PaymentIntentID)
}

func TestCreatePaymentSavedMethodImmediateSuccess(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionRegional, true, models.MilestoneStatusPending)
	provider := &fakeProvider{intent: &payments.Intent{
		ID: "pi_2", Status: payments.IntentStatusSucceeded, ClientSecret: "pi_2_secret",
	}}
	svc := NewService(repo, provider)

	res, err := svc.CreatePayment(context.Background(), 42, 1000, clientID, Options{UseSavedMethod: true, SavedMethodID: "pm_1"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, res.Status)

	// Regional commission is capped: 1000 + 25.00 in cents.
	require.Len(t, provider.createdIntents, 1)
	assert.Equal(t, int64(102500), provider.createdIntents[0].AmountCents)
	assert.Equal(t, "pm_1", provider.createdIntents[0].PaymentMethod)
	assert.Equal(t, models.MilestoneStatusCompleted, repo.milestones[42].Status)
}

func TestVerifyAndTransferPaysNetAmount(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, true, models.MilestoneStatusCompleted)
	repo.payments[42] = &models.Payment{
		ID: 1, MilestoneID: 42, ClientID: clientID, Amount: 1000, CommissionFee: 33.30,
		PaymentIntentID: "pi_1", Status: models.PaymentStatusPending,
	}
	provider := &fakeProvider{intent: &payments.Intent{ID: "pi_1", Status: payments.IntentStatusSucceeded}}
	svc := NewService(repo, provider)

	msg, err := svc.VerifyAndTransfer(context.Background(), 42, tradieID)
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	// Net payout is amount - commission: 1000 - 33.30 in cents.
	require.Len(t, provider.transfers, 1)
	assert.Equal(t, int64(96670), provider.transfers[0].AmountCents)
	assert.Equal(t, "acct_1", provider.transfers[0].Destination)
	assert.Equal(t, "milestone-42", provider.transfers[0].TransferGroup)

	assert.Equal(t, models.PaymentStatusCompleted, repo.payments[42].Status)
	milestone := repo.milestones[42]
	assert.Equal(t, models.MilestoneStatusCompleted, milestone.Status)
	assert.NotNil(t, milestone.CompletedAt)

	require.Len(t, repo.badges, 1)
	assert.Equal(t, tradieID, repo.badges[0].UserID)
	require.Len(t, repo.notifications, 1)
	assert.Equal(t, clientID, repo.notifications[0].UserID)
}

func TestVerifyAndTransferRejectsUnpaidIntent(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, true, models.MilestoneStatusPending)
	repo.payments[42] = &models.Payment{
		ID: 1, MilestoneID: 42, ClientID: clientID, Amount: 1000,
		PaymentIntentID: "pi_1", Status: models.PaymentStatusPending,
	}
	provider := &fakeProvider{intent: &payments.Intent{ID: "pi_1", Status: payments.IntentStatusProcessing}}
	svc := NewService(repo, provider)

	_, err := svc.VerifyAndTransfer(context.Background(), 42, tradieID)
	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, KindInvalidState, engineErr.Kind)
	assert.Equal(t, "Payment not completed", engineErr.Message)
	assert.Empty(t, provider.transfers)
}

func TestVerifyAndTransferRequiresPayoutAccount(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, true, models.MilestoneStatusPending)
	repo.users[tradieID].StripeAccountID = ""
	repo.payments[42] = &models.Payment{
		ID: 1, MilestoneID: 42, Amount: 1000, PaymentIntentID: "pi_1",
	}
	svc := NewService(repo, &fakeProvider{})

	_, err := svc.VerifyAndTransfer(context.Background(), 42, tradieID)
	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, "Tradie account not set up", engineErr.Message)
}

func TestVerifyAndTransferRejectsWrongTradie(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, true, models.MilestoneStatusPending)
	svc := NewService(repo, &fakeProvider{})

	_, err := svc.VerifyAndTransfer(context.Background(), 42, uint(99))
	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, KindUnauthorized, engineErr.Kind)
}

func TestRequestPaymentMovesOpenToPending(t *testing.T) {
	repo := newFakeRepository()
	seedMilestone(repo, models.RegionMetro, true, models.MilestoneStatusOpen)
	svc := NewService(repo, &fakeProvider{})

	require.NoError(t, svc.RequestPayment(context.Background(), 42, tradieID))

	milestone := repo.milestones[42]
	assert.Equal(t, models.MilestoneStatusPending, milestone.Status)
	assert.NotNil(t, milestone.RequestedAt)

	err := svc.RequestPayment(context.Background(), 42, tradieID)
	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, KindInvalidState, engineErr.Kind)
}
