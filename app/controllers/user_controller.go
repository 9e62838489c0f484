package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tradiehq/TradieHQ/app/models"
	"github.com/tradiehq/TradieHQ/app/repository"
	"github.com/tradiehq/TradieHQ/internal/pkg/usercontext"
)

// HandleGetAccount returns account information for the authenticated user.
// GET /api/v1/me
func HandleGetAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repos := repository.GetGlobalRepositories()
	account, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
	}

	badges, err := repos.Badge.GetByUserID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load badges"})
	}

	badgeItems := make([]fiber.Map, 0, len(badges))
	for _, b := range badges {
		badgeItems = append(badgeItems, fiber.Map{
			"kind":         b.Kind,
			"reference_id": b.ReferenceID,
			"awarded_at":   b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"id":            account.ID,
		"name":          account.Name,
		"email":         account.Email,
		"role":          account.Role,
		"region":        account.Region,
		"status":        account.Status,
		"is_admin":      account.Role == models.ROLE_ADMIN,
		"has_payout":    account.HasPayoutAccount(),
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
		"badges":        badgeItems,
	})
}

// HandleListNotifications returns the authenticated user's notifications.
// GET /api/v1/notifications
func HandleListNotifications(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	notifications, err := repository.GetGlobalRepositories().Notification.GetByUserID(usercontext.GetUserID(c), offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load notifications"})
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

// HandleMarkNotificationRead marks one of the user's notifications as read.
// POST /api/v1/notifications/:id/read
func HandleMarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid notification id"})
	}

	if err := repository.GetGlobalRepositories().Notification.MarkRead(id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update notification"})
	}

	return c.JSON(fiber.Map{"status": "read"})
}
