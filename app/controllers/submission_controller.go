package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ecellhq/launchpad/app/models"
	"github.com/ecellhq/launchpad/app/repository"
	"github.com/ecellhq/launchpad/internal/pkg/leaderboard"
	"github.com/ecellhq/launchpad/internal/pkg/mail"
	"github.com/ecellhq/launchpad/internal/pkg/usercontext"
)

type createSubmissionRequest struct {
	TaskID  uint   `json:"task_id"`
	Content string `json:"content"`
	Link    string `json:"link"`
}

type reviewSubmissionRequest struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

// HandleCreateSubmission records a participant's work for a task. Paid
// categories require a settled access grant.
func HandleCreateSubmission(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createSubmissionRequest
	if err := c.BodyParser(&req); err != nil || req.TaskID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	catRepo := repository.GetGlobalFactory().GetCategoryRepository()
	task, err := catRepo.GetTaskByID(req.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Task not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load task")
	}
	if task.Status != models.TASK_STATUS_ACTIVE {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Task not found")
	}

	cat, err := catRepo.GetByID(task.CategoryID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load category")
	}
	if !cat.IsFree() {
		hasAccess, err := PaymentService().HasAccess(userCtx.UserID, cat.ID)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check access")
		}
		if !hasAccess {
			return jsonError(c, fiber.StatusForbidden, "no_access", "Purchase this category to submit")
		}
	}

	subRepo := repository.GetGlobalFactory().GetSubmissionRepository()
	exists, err := subRepo.ExistsForUserAndTask(userCtx.UserID, task.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check submissions")
	}
	if exists {
		return jsonError(c, fiber.StatusConflict, "already_submitted", "You already submitted for this task")
	}

	submission := models.Submission{
		UserID:     userCtx.UserID,
		TaskID:     task.ID,
		CategoryID: task.CategoryID,
		Content:    strings.TrimSpace(req.Content),
		Link:       strings.TrimSpace(req.Link),
		Status:     models.SUBMISSION_STATUS_PENDING,
	}
	if err := submission.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := subRepo.Create(&submission); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save submission")
	}

	return c.Status(fiber.StatusCreated).JSON(submission)
}

// HandleListMySubmissions lists the caller's submissions
func HandleListMySubmissions(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	submissions, err := repository.GetGlobalFactory().GetSubmissionRepository().ListByUser(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load submissions")
	}
	return c.JSON(fiber.Map{"submissions": submissions})
}

// HandleAdminListSubmissions lists submissions for review (admin)
func HandleAdminListSubmissions(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	status := c.Query("status", models.SUBMISSION_STATUS_PENDING)
	submissions, err := repository.GetGlobalFactory().GetSubmissionRepository().ListByStatus(status, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load submissions")
	}
	return c.JSON(fiber.Map{"submissions": submissions})
}

// HandleAdminReviewSubmission approves or rejects a submission. Approval
// awards the task's points exactly once; a repeated review is rejected.
func HandleAdminReviewSubmission(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid submission id")
	}

	var req reviewSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.Status != models.SUBMISSION_STATUS_APPROVED && req.Status != models.SUBMISSION_STATUS_REJECTED {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Status must be approved or rejected")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	submission, err := repos.Submission.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Submission not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load submission")
	}
	if submission.IsReviewed() {
		return jsonError(c, fiber.StatusConflict, "already_reviewed", "Submission was already reviewed")
	}

	task, err := repos.Category.GetTaskByID(submission.TaskID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load task")
	}

	now := time.Now()
	submission.Status = req.Status
	submission.Feedback = strings.TrimSpace(req.Feedback)
	submission.ReviewedAt = &now
	if req.Status == models.SUBMISSION_STATUS_APPROVED {
		submission.PointsAwarded = task.Points
	}
	if err := repos.Submission.Update(submission); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save review")
	}

	if submission.PointsAwarded > 0 {
		if err := repos.User.AddPoints(submission.UserID, submission.PointsAwarded); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to award points")
		}
		leaderboard.ResetCacheUpdateTimer()
	}

	// Notification is best-effort; the review stands even if mail fails.
	if user, err := repos.User.GetByID(submission.UserID); err == nil {
		go mail.SendSubmissionReviewed(user.Email, task.Title, submission.Status, submission.PointsAwarded, submission.Feedback)
	}

	return c.JSON(submission)
}
