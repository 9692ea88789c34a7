package handlers

import (
	"context"

	"github.com/anjiri1684/class_portal/models"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

type ReasonHandler struct {
	reasons reasonSource
}

type reasonSource interface {
	CancellationReasons(ctx context.Context) ([]models.Reason, error)
	RescheduleReasons(ctx context.Context) ([]models.Reason, error)
}

func NewReasonHandler(reasons reasonSource) *ReasonHandler {
	return &ReasonHandler{reasons: reasons}
}

// GetReasons fetches both catalogs at once. Submissions send a reason id,
// never its display name.
func (h *ReasonHandler) GetReasons(c *fiber.Ctx) error {
	var catalog models.ReasonCatalog
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() error {
		reasons, err := h.reasons.CancellationReasons(ctx)
		catalog.Cancellation = reasons
		return err
	})
	g.Go(func() error {
		reasons, err := h.reasons.RescheduleReasons(ctx)
		catalog.Reschedule = reasons
		return err
	})
	if err := g.Wait(); err != nil {
		return RespondError(c, err)
	}

	if catalog.Cancellation == nil {
		catalog.Cancellation = []models.Reason{}
	}
	if catalog.Reschedule == nil {
		catalog.Reschedule = []models.Reason{}
	}
	return c.JSON(catalog)
}
