package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tradiehq/TradieHQ/app/repository"
	"github.com/tradiehq/TradieHQ/internal/pkg/escrow"
	"github.com/tradiehq/TradieHQ/internal/pkg/usercontext"
)

// PaymentController exposes the milestone payment engine over the API.
type PaymentController struct {
	service *escrow.Service
}

var paymentController *PaymentController

// InitializePaymentController wires the payment controller with its service.
func InitializePaymentController(service *escrow.Service) {
	paymentController = &PaymentController{service: service}
}

// GetPaymentController returns the initialized payment controller.
func GetPaymentController() *PaymentController {
	if paymentController == nil {
		panic("Payment controller not initialized. Call InitializePaymentController first.")
	}
	return paymentController
}

type createPaymentRequest struct {
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	UseSavedMethod bool    `json:"use_saved_method"`
	SavedMethodID  string  `json:"saved_method_id"`
	ForcePayEarly  bool    `json:"force_pay_early"`
}

// HandleCreatePayment collects a payment for a milestone from the owning client.
// POST /api/v1/milestones/:id/payments
func (pc *PaymentController) HandleCreatePayment(c *fiber.Ctx) error {
	milestoneID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid milestone id"})
	}

	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	result, err := pc.service.CreatePayment(c.Context(), milestoneID, req.Amount, usercontext.GetUserID(c), escrow.Options{
		UseSavedMethod: req.UseSavedMethod,
		SavedMethodID:  req.SavedMethodID,
		ForcePayEarly:  req.ForcePayEarly,
	})
	if err != nil {
		return renderEscrowError(c, err)
	}

	return c.JSON(fiber.Map{
		"client_secret": result.ClientSecret,
		"status":        result.Status,
	})
}

// HandleVerifyAndTransfer releases the escrowed funds to the assigned tradie.
// POST /api/v1/milestones/:id/verify
func (pc *PaymentController) HandleVerifyAndTransfer(c *fiber.Ctx) error {
	milestoneID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid milestone id"})
	}

	message, err := pc.service.VerifyAndTransfer(c.Context(), milestoneID, usercontext.GetUserID(c))
	if err != nil {
		return renderEscrowError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": message,
		"status":  "completed",
	})
}

// HandleRequestPayment lets the assigned tradie ask the client to pay.
// POST /api/v1/milestones/:id/request-payment
func (pc *PaymentController) HandleRequestPayment(c *fiber.Ctx) error {
	milestoneID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid milestone id"})
	}

	if err := pc.service.RequestPayment(c.Context(), milestoneID, usercontext.GetUserID(c)); err != nil {
		return renderEscrowError(c, err)
	}

	return c.JSON(fiber.Map{"status": "pending"})
}

// HandleGetMilestonePayment returns the latest payment recorded for a milestone.
// GET /api/v1/milestones/:id/payment
func (pc *PaymentController) HandleGetMilestonePayment(c *fiber.Ctx) error {
	milestoneID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid milestone id"})
	}

	repos := repository.GetGlobalRepositories()

	milestone, err := repos.Milestone.GetByID(milestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Milestone not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load milestone"})
	}

	userID := usercontext.GetUserID(c)
	if !milestone.Job.IsOwnedBy(userID) && !milestone.Job.IsAssignedTo(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "You are not a party to this job"})
	}

	payment, err := repos.Payment.GetLatestByMilestoneID(milestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No payment for this milestone"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load payment"})
	}

	return c.JSON(fiber.Map{
		"id":             payment.ID,
		"reference":      payment.Reference,
		"milestone_id":   payment.MilestoneID,
		"amount":         payment.Amount,
		"commission_fee": payment.CommissionFee,
		"status":         payment.Status,
		"created_at":     payment.CreatedAt.UTC(),
	})
}

// HandleListMyPayments returns the authenticated client's payments.
// GET /api/v1/payments
func (pc *PaymentController) HandleListMyPayments(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	payments, err := repository.GetGlobalRepositories().Payment.GetByClientID(usercontext.GetUserID(c), offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load payments"})
	}

	items := make([]fiber.Map, 0, len(payments))
	for _, p := range payments {
		items = append(items, fiber.Map{
			"id":             p.ID,
			"reference":      p.Reference,
			"milestone_id":   p.MilestoneID,
			"amount":         p.Amount,
			"commission_fee": p.CommissionFee,
			"status":         p.Status,
			"created_at":     p.CreatedAt.UTC(),
		})
	}

	return c.JSON(fiber.Map{"payments": items})
}

// renderEscrowError maps a payment-engine error to its HTTP response.
func renderEscrowError(c *fiber.Ctx, err error) error {
	var e *escrow.Error
	if errors.As(err, &e) {
		return c.Status(e.HTTPStatus()).JSON(fiber.Map{
			"error":   e.Kind.String(),
			"message": e.Message,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "internal_server_error",
		"message": "Payment processing failed",
	})
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
