package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"vitacore/internal/models"
	"vitacore/internal/services"
)

// PlanHandler handles HTTP requests for treatment plans
type PlanHandler struct {
	service *services.PlanService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(service *services.PlanService) *PlanHandler {
	return &PlanHandler{service: service}
}

// Get returns the caller's treatment plan
// GET /api/treatment-plan
func (h *PlanHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	plan, err := h.service.GetByUser(userID)
	if err != nil {
		if errors.Is(err, services.ErrPlanNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No treatment plan found",
			})
		}
		log.Printf("❌ Failed to get treatment plan: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load treatment plan",
		})
	}

	return c.JSON(plan)
}

// Upsert creates or replaces the caller's treatment plan
// PUT /api/treatment-plan
func (h *PlanHandler) Upsert(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req models.UpsertPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Condition) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "condition is required",
		})
	}

	plan, err := h.service.Upsert(userID, &req)
	if err != nil {
		log.Printf("❌ Failed to save treatment plan: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save treatment plan",
		})
	}

	return c.JSON(plan)
}
