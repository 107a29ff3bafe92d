package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"vitacore/internal/logging"
	"vitacore/internal/models"
	"vitacore/internal/services"
)

// ActivityLogHandler orchestrates guided activity completion: it drives
// the coach conversation, and once the coach produces a report it writes
// the completion back onto the schedule before closing the session.
type ActivityLogHandler struct {
	completions *services.CompletionService
	schedules   *services.ScheduleService
	redis       *services.RedisService
}

// NewActivityLogHandler creates a new activity log handler
func NewActivityLogHandler(completions *services.CompletionService, schedules *services.ScheduleService, redis *services.RedisService) *ActivityLogHandler {
	return &ActivityLogHandler{
		completions: completions,
		schedules:   schedules,
		redis:       redis,
	}
}

// Handle dispatches on the request action
// POST /api/activity-log  (X-Session-ID required)
func (h *ActivityLogHandler) Handle(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	sessionKey := c.Get("X-Session-ID")
	if sessionKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "X-Session-ID header is required",
		})
	}

	var req models.ActivityLogRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	switch req.Action {
	case "start":
		return h.start(c, userID, sessionKey, &req)
	case "chat":
		return h.chat(c, userID, sessionKey, &req)
	case "end":
		return h.end(c, sessionKey)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "action must be one of: start, chat, end",
		})
	}
}

func (h *ActivityLogHandler) start(c *fiber.Ctx, userID, sessionKey string, req *models.ActivityLogRequest) error {
	if req.ActivityID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "activityId is required to start a session",
		})
	}

	// The activity must exist on one of the user's schedules before a
	// completion conversation can target it.
	_, activity, err := h.schedules.FindActivity(userID, req.ActivityID)
	if err != nil {
		if errors.Is(err, services.ErrActivityNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Activity not found",
			})
		}
		log.Printf("❌ Failed to look up activity %s: %v", req.ActivityID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start session",
		})
	}

	activityType := req.ActivityType
	if activityType == "" {
		activityType = activity.Type
	}

	opening, err := h.completions.Start(c.Context(), sessionKey, userID, req.ActivityID, activityType)
	if err != nil {
		if errors.Is(err, services.ErrSessionActive) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A completion session is already active for this session ID",
			})
		}
		log.Printf("❌ Failed to start completion session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Coach is unavailable, try again later",
		})
	}

	logging.WithSession(sessionKey, req.ActivityID, userID).Info("completion session started")
	return c.JSON(models.ActivityLogResponse{
		Message: opening,
		Success: true,
	})
}

func (h *ActivityLogHandler) chat(c *fiber.Ctx, userID, sessionKey string, req *models.ActivityLogRequest) error {
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required for chat",
		})
	}

	reply, sess, err := h.completions.Chat(c.Context(), sessionKey, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No active session for this session ID",
			})
		}
		log.Printf("❌ Coach turn failed for session %s: %v", sessionKey, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Coach is unavailable, try again later",
		})
	}

	if !reply.IsComplete {
		return c.JSON(models.ActivityLogResponse{
			Message: reply.Message,
			Success: true,
		})
	}

	// The coach produced a final report. Persist the completion onto the
	// activity before releasing the session; if persistence fails the
	// session keeps its report so a retried chat can try again without
	// another coach round-trip.
	if err := h.persistCompletion(sess, reply.Report); err != nil {
		log.Printf("❌ Failed to persist completion for activity %s: %v", sess.ActivityID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Report is ready but could not be saved, please retry",
		})
	}

	if h.redis != nil {
		if err := h.redis.PublishActivityCompleted(c.Context(), sess.UserID, sess.ActivityID, sess.ActivityType); err != nil {
			log.Printf("⚠️ Failed to publish completion event: %v", err)
		}
	}

	h.completions.End(sessionKey)
	logging.WithSession(sessionKey, sess.ActivityID, sess.UserID).Info("completion session finished",
		"effectiveness", reply.Report.Effectiveness)

	return c.JSON(models.ActivityLogResponse{
		Message:    reply.Message,
		Report:     reply.Report,
		IsComplete: true,
		Success:    true,
	})
}

func (h *ActivityLogHandler) persistCompletion(sess *models.CompletionSession, report *models.CompletionReport) error {
	if report == nil {
		// The tool contract allows a completed turn without a report
		return fmt.Errorf("coach reported completion without a report for activity %s", sess.ActivityID)
	}

	scheduleID, _, err := h.schedules.FindActivity(sess.UserID, sess.ActivityID)
	if err != nil {
		return err
	}

	completed := true
	update := &models.ActivityUpdate{
		Completed: &completed,
		ActivityLog: &models.ActivityLogUpdate{
			Notes:           &report.Summary,
			Insights:        &report.Insights,
			Effectiveness:   &report.Effectiveness,
			Recommendations: &report.Recommendations,
		},
	}

	_, err = h.schedules.UpdateActivity(scheduleID, sess.ActivityID, update)
	return err
}

func (h *ActivityLogHandler) end(c *fiber.Ctx, sessionKey string) error {
	h.completions.End(sessionKey)
	return c.JSON(models.ActivityLogResponse{Success: true})
}
