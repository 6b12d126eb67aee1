package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ecellhq/launchpad/app/models"
	"github.com/ecellhq/launchpad/app/repository"
	"github.com/ecellhq/launchpad/internal/pkg/usercontext"
)

// HandleListCategories returns active categories plus the caller's access state
func HandleListCategories(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetCategoryRepository()
	categories, err := repo.ListActive()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load categories")
	}

	userCtx := usercontext.GetUserContext(c)
	out := make([]fiber.Map, 0, len(categories))
	for _, cat := range categories {
		entry := fiber.Map{
			"id":          cat.ID,
			"name":        cat.Name,
			"description": cat.Description,
			"photo":       cat.Photo,
			"price":       cat.Price,
			"is_free":     cat.IsFree(),
		}
		if userCtx.IsLoggedIn {
			hasAccess, err := PaymentService().HasAccess(userCtx.UserID, cat.ID)
			if err == nil {
				entry["has_access"] = hasAccess
			}
		}
		out = append(out, entry)
	}

	return c.JSON(fiber.Map{"categories": out})
}

// HandleGetCategory returns one category with its visible tasks
func HandleGetCategory(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid category id")
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	cat, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Category not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load category")
	}

	userCtx := usercontext.GetUserContext(c)
	if cat.Status != models.CATEGORY_STATUS_ACTIVE && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Category not found")
	}

	tasks, err := repo.ListTasks(cat.ID, userCtx.IsAdmin)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load tasks")
	}

	hasAccess := cat.IsFree()
	if userCtx.IsLoggedIn && !hasAccess {
		hasAccess, _ = PaymentService().HasAccess(userCtx.UserID, cat.ID)
	}

	return c.JSON(fiber.Map{
		"id":          cat.ID,
		"name":        cat.Name,
		"description": cat.Description,
		"photo":       cat.Photo,
		"price":       cat.Price,
		"is_free":     cat.IsFree(),
		"has_access":  hasAccess,
		"tasks":       tasks,
	})
}

// HandleAdminCreateCategory creates a category (admin)
func HandleAdminCreateCategory(c *fiber.Ctx) error {
	var cat models.Category
	if err := c.BodyParser(&cat); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if cat.Status == "" {
		cat.Status = models.CATEGORY_STATUS_DRAFT
	}
	if err := cat.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	if err := repository.GetGlobalFactory().GetCategoryRepository().Create(&cat); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create category")
	}
	return c.Status(fiber.StatusCreated).JSON(cat)
}

// HandleAdminUpdateCategory updates a category (admin)
func HandleAdminUpdateCategory(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid category id")
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	cat, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Category not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load category")
	}

	if err := c.BodyParser(cat); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	cat.ID = id
	if err := cat.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repo.Update(cat); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update category")
	}
	return c.JSON(cat)
}

// HandleAdminDeleteCategory soft-deletes a category (admin)
func HandleAdminDeleteCategory(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid category id")
	}
	if err := repository.GetGlobalFactory().GetCategoryRepository().Delete(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete category")
	}
	return c.JSON(fiber.Map{"message": "category deleted"})
}

// HandleAdminCreateTask adds a task to a category (admin)
func HandleAdminCreateTask(c *fiber.Ctx) error {
	categoryID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid category id")
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	if _, err := repo.GetByID(categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Category not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load category")
	}

	var task models.Task
	if err := c.BodyParser(&task); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	task.CategoryID = categoryID
	if task.Status == "" {
		task.Status = models.TASK_STATUS_ACTIVE
	}
	if err := task.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repo.CreateTask(&task); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create task")
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// HandleAdminUpdateTask updates a task (admin)
func HandleAdminUpdateTask(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid task id")
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	task, err := repo.GetTaskByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Task not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load task")
	}

	if err := c.BodyParser(task); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	task.ID = id
	if err := task.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repo.UpdateTask(task); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update task")
	}
	return c.JSON(task)
}

// HandleAdminDeleteTask removes a task (admin)
func HandleAdminDeleteTask(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid task id")
	}
	if err := repository.GetGlobalFactory().GetCategoryRepository().DeleteTask(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete task")
	}
	return c.JSON(fiber.Map{"message": "task deleted"})
}
