package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"vitacore/internal/models"
	"vitacore/internal/services"
)

// ScheduleHandler handles HTTP requests for daily schedule operations
type ScheduleHandler struct {
	service *services.ScheduleService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(service *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// Get returns the user's schedule for a date, creating it on first access
// GET /api/daily-schedule?date=2026-08-30
func (h *ScheduleHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	date := c.Query("date", time.Now().UTC().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date, expected YYYY-MM-DD",
		})
	}

	schedule, err := h.service.GetSchedule(userID, date)
	if err != nil {
		if errors.Is(err, services.ErrPlanNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No treatment plan found for user",
			})
		}
		log.Printf("❌ Failed to get schedule: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load schedule",
		})
	}

	return c.JSON(schedule)
}

// AddActivity appends a new activity to an existing schedule
// POST /api/daily-schedule
func (h *ScheduleHandler) AddActivity(c *fiber.Ctx) error {
	var req models.AddActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ScheduleID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduleId is required",
		})
	}
	if req.Activity == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "activity is required",
		})
	}
	if err := req.Activity.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	activity, err := h.service.AddActivity(req.ScheduleID, req.Activity)
	if err != nil {
		return h.mapServiceError(c, err, "Failed to add activity")
	}

	return c.Status(fiber.StatusCreated).JSON(activity)
}

// Patch either reorders the schedule or partially updates one activity
// PATCH /api/daily-schedule
func (h *ScheduleHandler) Patch(c *fiber.Ctx) error {
	var req models.PatchScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ScheduleID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduleId is required",
		})
	}

	if req.Reorder {
		if len(req.Activities) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "activities are required for reorder",
			})
		}
		activities, err := h.service.ReorderActivities(req.ScheduleID, req.Activities)
		if err != nil {
			return h.mapServiceError(c, err, "Failed to reorder schedule")
		}
		return c.JSON(fiber.Map{"activities": activities})
	}

	if req.ActivityID == "" || req.Updates == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "activityId and updates are required",
		})
	}
	if err := req.Updates.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	activity, err := h.service.UpdateActivity(req.ScheduleID, req.ActivityID, req.Updates)
	if err != nil {
		return h.mapServiceError(c, err, "Failed to update activity")
	}

	return c.JSON(activity)
}

// DeleteActivity removes one activity from a schedule
// DELETE /api/daily-schedule
func (h *ScheduleHandler) DeleteActivity(c *fiber.Ctx) error {
	var req models.DeleteActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ScheduleID == "" || req.ActivityID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduleId and activityId are required",
		})
	}

	if err := h.service.DeleteActivity(req.ScheduleID, req.ActivityID); err != nil {
		return h.mapServiceError(c, err, "Failed to delete activity")
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *ScheduleHandler) mapServiceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case services.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("❌ %s: %v", fallback, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
