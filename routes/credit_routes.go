package routes

import (
	"github.com/anjiri1684/class_portal/handlers"
	"github.com/anjiri1684/class_portal/middleware"
	"github.com/anjiri1684/class_portal/services"
	"github.com/gofiber/fiber/v2"
)

func CreditRoutes(app *fiber.App, secret string, credits *handlers.CreditHandler) {
	api := app.Group("/api/v1", middleware.Protected(secret), middleware.LoadActor())

	history := api.Group("/student-credit-history")
	history.Post("/purchase", middleware.RoleRequired(services.RoleAdmin, services.RoleParent), credits.PurchaseCredits)
	history.Post("/bonus", middleware.RoleRequired(services.RoleAdmin), credits.GrantBonus)
	history.Get("/:holderKind/:holderId", credits.GetHistory)

	overview := api.Group("/student-credit-overview")
	overview.Get("/:holderKind/:holderId", credits.GetOverview)
	overview.Get("/:holderKind/:holderId/:classTypeId", credits.GetBalance)

	admin := api.Group("/admin/credits", middleware.RoleRequired(services.RoleAdmin))
	admin.Post("/refund/:sessionId", credits.RefundSession)
}
