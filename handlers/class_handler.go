package handlers

import (
	"context"

	"github.com/anjiri1684/class_portal/models"
	"github.com/anjiri1684/class_portal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ClassHandler struct {
	lifecycle classLifecycle
	slots     slotFinder
}

type classLifecycle interface {
	Schedule(ctx context.Context, actor services.Actor) (*models.ClassSchedule, error)
	Cancel(ctx context.Context, actor services.Actor, sessionID, reasonID uuid.UUID) (*services.CancelResult, error)
	Reschedule(ctx context.Context, actor services.Actor, sessionID uuid.UUID, req services.RescheduleRequest) (*services.RescheduleResult, error)
	Join(ctx context.Context, actor services.Actor, sessionID uuid.UUID) (string, error)
	Today() string
}

type slotFinder interface {
	Slots(ctx context.Context, instructorID uuid.UUID, date string, excludeSessionID uuid.UUID) []models.AvailabilitySlot
}

func NewClassHandler(lifecycle *services.Lifecycle, slots *services.AvailabilityResolver) *ClassHandler {
	return &ClassHandler{lifecycle: lifecycle, slots: slots}
}

type cancelRequest struct {
	ReasonID string `json:"reason_id" validate:"required,uuid"`
}

type rescheduleRequest struct {
	ReasonID     string `json:"reason_id" validate:"required,uuid"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	IsActive     *bool  `json:"is_active" validate:"required"`
	InstructorID string `json:"instructor_id" validate:"omitempty,uuid"`
}

func (h *ClassHandler) GetSchedule(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	schedule, err := h.lifecycle.Schedule(c.UserContext(), actor)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"today_classes":    sessionViews(schedule.Today, actor),
		"upcoming_classes": sessionViews(schedule.Upcoming, actor),
	})
}

func (h *ClassHandler) CancelClass(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	sessionID, err := uuidParam(c, "sessionId")
	if err != nil {
		return RespondError(c, err)
	}
	var req cancelRequest
	if err := parseBody(c, &req); err != nil {
		return RespondError(c, err)
	}

	result, err := h.lifecycle.Cancel(c.UserContext(), actor, sessionID, uuid.MustParse(req.ReasonID))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": result})
}

func (h *ClassHandler) RescheduleClass(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	sessionID, err := uuidParam(c, "sessionId")
	if err != nil {
		return RespondError(c, err)
	}
	var req rescheduleRequest
	if err := parseBody(c, &req); err != nil {
		return RespondError(c, err)
	}

	in := services.RescheduleRequest{
		ReasonID: uuid.MustParse(req.ReasonID),
		Date:     req.Date,
		Slot: models.AvailabilitySlot{
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			IsActive:  *req.IsActive,
		},
	}
	if req.InstructorID != "" {
		in.InstructorID = uuid.MustParse(req.InstructorID)
	}

	result, err := h.lifecycle.Reschedule(c.UserContext(), actor, sessionID, in)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": result})
}

func (h *ClassHandler) JoinClass(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	sessionID, err := uuidParam(c, "sessionId")
	if err != nil {
		return RespondError(c, err)
	}

	link, err := h.lifecycle.Join(c.UserContext(), actor, sessionID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "meeting_link": link})
}

// GetAvailability lists candidate windows for moving one session. A backend
// failure and an empty day look the same to the caller.
func (h *ClassHandler) GetAvailability(c *fiber.Ctx) error {
	if _, err := actorFrom(c); err != nil {
		return RespondError(c, err)
	}
	instructorID, err := uuidParam(c, "instructorId")
	if err != nil {
		return RespondError(c, err)
	}
	sessionID, err := uuidParam(c, "sessionId")
	if err != nil {
		return RespondError(c, err)
	}
	date := c.Params("date")
	if err := services.ValidateFutureDate(date, h.lifecycle.Today()); err != nil {
		return RespondError(c, err)
	}

	slots := h.slots.Slots(c.UserContext(), instructorID, date, sessionID)
	selectable := 0
	for _, s := range slots {
		if s.IsActive {
			selectable++
		}
	}
	return c.JSON(fiber.Map{"time_slots": slots, "selectable": selectable})
}
