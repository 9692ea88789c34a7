package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/anjiri1684/class_portal/middleware"
	"github.com/anjiri1684/class_portal/models"
	"github.com/anjiri1684/class_portal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return fiber.StatusUnprocessableEntity
	case services.KindPermissionDenied:
		return fiber.StatusForbidden
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindConflict:
		return fiber.StatusConflict
	case services.KindTransient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondError renders err in the portal's error envelope.
func RespondError(c *fiber.Ctx, err error) error {
	e := services.AsError(err)
	code := statusFor(e.Kind)
	if code >= fiber.StatusInternalServerError {
		log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
	}
	return c.Status(code).JSON(fiber.Map{
		"status":      "error",
		"kind":        e.Kind,
		"title":       e.Title,
		"description": e.Description,
		"retryable":   e.Retryable(),
		"from_server": e.FromServer,
	})
}

// ErrorHandler is the app-level fallback. Fiber's own errors (unknown route,
// body too large) use the same envelope as everything else.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return RespondError(c, err)
	}
	log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
	return c.Status(fe.Code).JSON(fiber.Map{
		"status":      "error",
		"kind":        "http",
		"title":       fe.Message,
		"description": fe.Message,
		"retryable":   false,
		"from_server": false,
	})
}

// parseBody decodes and validates a request DTO. Both failures come back as
// validation errors so nothing is sent onwards.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return services.Validation("Cannot parse JSON", "The request body is not valid JSON.")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			return services.Validation("Invalid request", "Check these fields: "+strings.Join(fields, ", "))
		}
		return services.Validation("Invalid request", err.Error())
	}
	return nil
}

func actorFrom(c *fiber.Ctx) (services.Actor, error) {
	actor, ok := c.Locals(middleware.ActorKey).(services.Actor)
	if !ok {
		return services.Actor{}, services.PermissionDenied("Not signed in", "Sign in to continue.")
	}
	return actor, nil
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, services.Validation("Invalid "+name, name+" must be a valid UUID.")
	}
	return id, nil
}

func holderParam(c *fiber.Ctx) (models.Holder, error) {
	id, err := uuidParam(c, "holderId")
	if err != nil {
		return models.Holder{}, err
	}
	h := models.Holder{Kind: models.HolderKind(strings.ToLower(c.Params("holderKind"))), ID: id}
	if !h.Valid() {
		return models.Holder{}, services.Validation("Invalid holder", "Holder kind must be family or student.")
	}
	return h, nil
}
