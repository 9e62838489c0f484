package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradiehq/TradieHQ/app/models"
	"github.com/tradiehq/TradieHQ/internal/pkg/payments"
)

const currencyAUD = "aud"

// Options carries the optional flags of a payment-creation request.
type Options struct {
	UseSavedMethod bool
	SavedMethodID  string
	ForcePayEarly  bool
}

// CreatePaymentResult is returned to the paying client. ClientSecret is the
// opaque token the payer's browser needs to complete interactive
// confirmation; Status mirrors the provider's immediate intent status.
type CreatePaymentResult struct {
	ClientSecret string
	Status       string
}

// Service mediates client-to-tradie milestone payments through the payment
// provider, enforcing authorization, lifecycle-state and commission rules.
type Service struct {
	repo     Repository
	provider payments.Provider
}

// NewService creates a payment engine from injected collaborators.
func NewService(repo Repository, provider payments.Provider) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB creates a payment engine from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider payments.Provider) *Service {
	return NewService(NewRepository(db), provider)
}

// CreatePayment collects a milestone payment from the owning client. The
// commission is added on top of the milestone amount, so the provider intent
// is for amount+commission while the payout later transfers amount-commission.
//
// Concurrent duplicate calls for the same milestone are not serialized beyond
// the status precondition; a second intent can be created if two requests
// race.
func (s *Service) CreatePayment(ctx context.Context, milestoneID uint, amount float64, payerUserID uint, opts Options) (*CreatePaymentResult, error) {
	milestone, err := s.repo.GetMilestone(milestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Milestone not found")
		}
		log.Errorf("[Escrow] Failed to load milestone %d: %v", milestoneID, err)
		return nil, internalError("Failed to load milestone")
	}

	if !milestone.Job.IsOwnedBy(payerUserID) {
		return nil, unauthorized("You are not the client for this job")
	}

	if !opts.ForcePayEarly {
		if !milestone.HasTradie() {
			return nil, invalidState("Milestone does not have an assigned tradie")
		}
		if milestone.Status == models.MilestoneStatusCompleted || milestone.Status == models.MilestoneStatusVerified {
			return nil, invalidState("Milestone has already been paid")
		}
	}

	payer, err := s.repo.GetUser(payerUserID)
	if err != nil {
		log.Errorf("[Escrow] Failed to load payer %d: %v", payerUserID, err)
		return nil, internalError("Failed to load payer")
	}
	if !payer.HasPaymentMethod() {
		return nil, missingPaymentMethod("No payment method on file")
	}

	commission := Commission(amount, milestone.Job.Region)

	intentParams := payments.CreateIntentParams{
		AmountCents: payments.ToCents(amount + commission),
		Currency:    currencyAUD,
		CustomerID:  payer.StripeCustomerID,
	}
	if opts.UseSavedMethod && opts.SavedMethodID != "" {
		intentParams.PaymentMethod = opts.SavedMethodID
	}

	intent, err := s.provider.CreateIntent(ctx, intentParams)
	if err != nil {
		log.Errorf("[Escrow] Provider intent creation failed for milestone %d: %v", milestoneID, err)
		return nil, internalError("Payment provider request failed")
	}

	status := models.PaymentStatusPending
	if intent.Status == payments.IntentStatusSucceeded {
		status = models.PaymentStatusCompleted
	}

	payment := &models.Payment{
		Reference:       uuid.New().String(),
		MilestoneID:     milestone.ID,
		ClientID:        payerUserID,
		Amount:          amount,
		CommissionFee:   commission,
		PaymentIntentID: intent.ID,
		Status:          status,
	}
	if err := s.repo.CreatePayment(payment); err != nil {
		log.Errorf("[Escrow] Failed to persist payment for milestone %d: %v", milestoneID, err)
		return nil, internalError("Failed to record payment")
	}

	milestone.Status = status
	milestone.PaymentIntentID = &intent.ID
	if err := s.repo.UpdateMilestone(milestone); err != nil {
		log.Errorf("[Escrow] Failed to update milestone %d: %v", milestoneID, err)
		return nil, internalError("Failed to update milestone")
	}

	return &CreatePaymentResult{
		ClientSecret: intent.ClientSecret,
		Status:       status,
	}, nil
}

// VerifyAndTransfer is called by the assigned tradie once the work is done
// and paid. It checks the provider intent succeeded, then transfers the
// milestone amount minus commission to the tradie's connected account.
func (s *Service) VerifyAndTransfer(ctx context.Context, milestoneID uint, verifierUserID uint) (string, error) {
	milestone, err := s.repo.GetMilestone(milestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", notFound("Milestone not found")
		}
		log.Errorf("[Escrow] Failed to load milestone %d: %v", milestoneID, err)
		return "", internalError("Failed to load milestone")
	}

	if !milestone.Job.IsAssignedTo(verifierUserID) {
		return "", unauthorized("You are not the tradie for this job")
	}

	payment, err := s.repo.GetPaymentByMilestone(milestone.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", notFound("Payment not found")
		}
		log.Errorf("[Escrow] Failed to load payment for milestone %d: %v", milestoneID, err)
		return "", internalError("Failed to load payment")
	}

	tradie, err := s.repo.GetUser(verifierUserID)
	if err != nil {
		log.Errorf("[Escrow] Failed to load tradie %d: %v", verifierUserID, err)
		return "", internalError("Failed to load tradie")
	}
	if !tradie.HasPayoutAccount() {
		return "", invalidState("Tradie account not set up")
	}

	intent, err := s.provider.GetIntent(ctx, payment.PaymentIntentID)
	if err != nil {
		log.Errorf("[Escrow] Failed to retrieve intent %s: %v", payment.PaymentIntentID, err)
		return "", internalError("Payment provider request failed")
	}
	if intent.Status != payments.IntentStatusSucceeded {
		return "", invalidState("Payment not completed")
	}

	// Commission is recomputed on the original payment amount, not the gross
	// amount the client was charged.
	commission := Commission(payment.Amount, milestone.Job.Region)
	payout := payment.Amount - commission

	if _, err := s.provider.CreateTransfer(ctx, payments.TransferParams{
		AmountCents:   payments.ToCents(payout),
		Currency:      currencyAUD,
		Destination:   tradie.StripeAccountID,
		TransferGroup: TransferGroup(milestone.ID),
	}); err != nil {
		log.Errorf("[Escrow] Transfer failed for milestone %d: %v", milestoneID, err)
		return "", internalError("Payout transfer failed")
	}

	now := time.Now()
	payment.Status = models.PaymentStatusCompleted
	if err := s.repo.UpdatePayment(payment); err != nil {
		log.Errorf("[Escrow] Failed to update payment %d: %v", payment.ID, err)
		return "", internalError("Failed to update payment")
	}

	milestone.Status = models.MilestoneStatusCompleted
	milestone.CompletedAt = &now
	if err := s.repo.UpdateMilestone(milestone); err != nil {
		log.Errorf("[Escrow] Failed to update milestone %d: %v", milestoneID, err)
		return "", internalError("Failed to update milestone")
	}

	// Badge award is best-effort: a failure must not abort the payout flow.
	if err := s.repo.AwardBadge(verifierUserID, models.BadgeMilestoneCompleted, milestone.ID); err != nil {
		log.Warnf("[Escrow] Badge award failed for user %d: %v", verifierUserID, err)
	}

	content := fmt.Sprintf("Milestone %q has been verified and the payout transferred.", milestone.Title)
	if err := s.repo.CreateNotification(milestone.Job.ClientID, models.NotificationTypePayment, content, milestone.ID); err != nil {
		log.Warnf("[Escrow] Notification failed for user %d: %v", milestone.Job.ClientID, err)
	}

	return "Milestone verified and payout transferred", nil
}

// RequestPayment moves an open milestone to pending on behalf of the
// assigned tradie and stamps the request time.
func (s *Service) RequestPayment(ctx context.Context, milestoneID uint, tradieUserID uint) error {
	_ = ctx
	milestone, err := s.repo.GetMilestone(milestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("Milestone not found")
		}
		log.Errorf("[Escrow] Failed to load milestone %d: %v", milestoneID, err)
		return internalError("Failed to load milestone")
	}

	if !milestone.Job.IsAssignedTo(tradieUserID) {
		return unauthorized("You are not the tradie for this job")
	}
	if milestone.Status != models.MilestoneStatusOpen {
		return invalidState("Milestone payment has already been requested")
	}

	now := time.Now()
	milestone.Status = models.MilestoneStatusPending
	milestone.RequestedAt = &now
	if err := s.repo.UpdateMilestone(milestone); err != nil {
		log.Errorf("[Escrow] Failed to update milestone %d: %v", milestoneID, err)
		return internalError("Failed to update milestone")
	}
	return nil
}

// TransferGroup derives the provider transfer-group tag for a milestone.
func TransferGroup(milestoneID uint) string {
	return fmt.Sprintf("milestone-%d", milestoneID)
}

func internalError(msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg}
}
