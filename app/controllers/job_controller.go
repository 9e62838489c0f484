package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tradiehq/TradieHQ/app/models"
	"github.com/tradiehq/TradieHQ/app/repository"
	"github.com/tradiehq/TradieHQ/internal/pkg/usercontext"
)

type createJobRequest struct {
	Title  string `json:"title" validate:"required,max=200"`
	Region string `json:"region" validate:"omitempty,oneof=Metro Regional"`
}

type createMilestoneRequest struct {
	Title  string  `json:"title" validate:"required,max=200"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type assignJobRequest struct {
	TradieID uint `json:"tradie_id" validate:"required"`
}

// HandleCreateJob posts a new job owned by the authenticated client.
// POST /api/v1/jobs
func HandleCreateJob(c *fiber.Ctx) error {
	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	region := req.Region
	if region == "" {
		region = models.RegionMetro
	}

	job := &models.Job{
		ClientID: usercontext.GetUserID(c),
		Title:    req.Title,
		Region:   region,
		Status:   models.JobStatusOpen,
	}
	if err := repository.GetGlobalRepositories().Job.Create(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create job"})
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleListMyJobs lists jobs the authenticated user is a party to.
// GET /api/v1/jobs
func HandleListMyJobs(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalRepositories().Job

	var (
		jobs []models.Job
		err  error
	)
	if userCtx.Role == models.ROLE_TRADIE {
		jobs, err = repo.GetByTradieID(userCtx.UserID, offset, limit)
	} else {
		jobs, err = repo.GetByClientID(userCtx.UserID, offset, limit)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load jobs"})
	}

	return c.JSON(fiber.Map{"jobs": jobs})
}

// HandleAssignJob assigns a tradie to the client's job.
// POST /api/v1/jobs/:id/assign
func HandleAssignJob(c *fiber.Ctx) error {
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid job id"})
	}

	var req assignJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	repos := repository.GetGlobalRepositories()
	job, err := repos.Job.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load job"})
	}
	if !job.IsOwnedBy(usercontext.GetUserID(c)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "You are not the client for this job"})
	}

	tradie, err := repos.User.GetByID(req.TradieID)
	if err != nil || tradie.Role != models.ROLE_TRADIE {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Tradie not found"})
	}

	job.TradieID = &tradie.ID
	job.Status = models.JobStatusInProgress
	if err := repos.Job.Update(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to assign job"})
	}

	enqueueCRMSync(tradie.ID)

	return c.JSON(job)
}

// HandleCreateMilestone adds a payable milestone to the client's job.
// POST /api/v1/jobs/:id/milestones
func HandleCreateMilestone(c *fiber.Ctx) error {
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid job id"})
	}

	var req createMilestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	repos := repository.GetGlobalRepositories()
	job, err := repos.Job.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load job"})
	}
	if !job.IsOwnedBy(usercontext.GetUserID(c)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "You are not the client for this job"})
	}

	milestone := &models.Milestone{
		JobID:    job.ID,
		Title:    req.Title,
		Amount:   req.Amount,
		Status:   models.MilestoneStatusOpen,
		TradieID: job.TradieID,
	}
	if err := repos.Milestone.Create(milestone); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create milestone"})
	}

	return c.Status(fiber.StatusCreated).JSON(milestone)
}

// HandleListMilestones lists the milestones of a job.
// GET /api/v1/jobs/:id/milestones
func HandleListMilestones(c *fiber.Ctx) error {
	jobID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid job id"})
	}

	repos := repository.GetGlobalRepositories()
	job, err := repos.Job.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load job"})
	}

	userID := usercontext.GetUserID(c)
	if !job.IsOwnedBy(userID) && !job.IsAssignedTo(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "You are not a party to this job"})
	}

	milestones, err := repos.Milestone.GetByJobID(jobID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load milestones"})
	}

	return c.JSON(fiber.Map{"milestones": milestones})
}
