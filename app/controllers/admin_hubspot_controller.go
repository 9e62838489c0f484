package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/tradiehq/TradieHQ/internal/pkg/crmsync"
	"github.com/tradiehq/TradieHQ/internal/pkg/metrics/counter"
)

// AdminHubspotController exposes operator tooling for the CRM sync queue:
// dead-letter inspection, requeueing, counters and backfill.
type AdminHubspotController struct {
	repo crmsync.Repository
}

var adminHubspotController *AdminHubspotController

// InitializeAdminHubspotController wires the admin hubspot controller.
func InitializeAdminHubspotController(repo crmsync.Repository) {
	adminHubspotController = &AdminHubspotController{repo: repo}
}

// GetAdminHubspotController returns the initialized admin hubspot controller.
func GetAdminHubspotController() *AdminHubspotController {
	if adminHubspotController == nil {
		panic("Admin hubspot controller not initialized. Call InitializeAdminHubspotController first.")
	}
	return adminHubspotController
}

// HandleListDeadLetters lists dead-lettered sync items, newest first.
// GET /admin/hubspot/dlq
func (ac *AdminHubspotController) HandleListDeadLetters(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	entries, err := ac.repo.ListDeadLetters(offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load dead letters"})
	}
	total, err := ac.repo.CountDeadLetters()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count dead letters"})
	}

	return c.JSON(fiber.Map{
		"total":   total,
		"entries": entries,
	})
}

// HandleRequeueDeadLetter puts a dead-lettered item back on the active queue.
// POST /admin/hubspot/dlq/:id/requeue
func (ac *AdminHubspotController) HandleRequeueDeadLetter(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid dead letter id"})
	}

	if err := ac.repo.RequeueDeadLetter(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Dead letter not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to requeue item"})
	}

	return c.JSON(fiber.Map{"status": "requeued"})
}

// HandleGetSyncMetrics returns the cumulative worker counters.
// GET /admin/hubspot/metrics
func (ac *AdminHubspotController) HandleGetSyncMetrics(c *fiber.Ctx) error {
	totals, err := counter.WorkerTotals()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load counters"})
	}
	return c.JSON(totals)
}

// HandleBackfill enqueues every user for a full CRM re-sync.
// POST /admin/hubspot/backfill
func (ac *AdminHubspotController) HandleBackfill(c *fiber.Ctx) error {
	ids, err := ac.repo.ListUserIDs()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list users"})
	}

	enqueued := 0
	for _, id := range ids {
		if err := ac.repo.Enqueue(id); err != nil {
			log.Errorf("backfill: failed to enqueue user %d: %v", id, err)
			continue
		}
		enqueued++
	}

	return c.JSON(fiber.Map{
		"users":    len(ids),
		"enqueued": enqueued,
	})
}

// HandleRunSyncPass triggers one immediate worker pass.
// POST /admin/hubspot/run
func (ac *AdminHubspotController) HandleRunSyncPass(c *fiber.Ctx) error {
	metrics := crmsync.GetManager().RunOnce(c.Context())
	return c.JSON(fiber.Map{
		"processed": metrics.Processed,
		"syncs":     metrics.Syncs,
		"errors":    metrics.Errors,
		"dlq":       metrics.DLQ,
	})
}
