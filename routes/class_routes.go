package routes

import (
	"github.com/anjiri1684/class_portal/handlers"
	"github.com/anjiri1684/class_portal/middleware"
	"github.com/gofiber/fiber/v2"
)

func ClassRoutes(app *fiber.App, secret string, classes *handlers.ClassHandler, reasons *handlers.ReasonHandler) {
	api := app.Group("/api/v1", middleware.Protected(secret), middleware.LoadActor())

	class := api.Group("/classes")
	class.Get("/schedule", classes.GetSchedule)
	class.Post("/:sessionId/cancel", classes.CancelClass)
	class.Post("/:sessionId/reschedule", classes.RescheduleClass)
	class.Post("/:sessionId/join", classes.JoinClass)

	api.Get("/availability/:instructorId/:date/:sessionId", classes.GetAvailability)
	api.Get("/reasons", reasons.GetReasons)
}
