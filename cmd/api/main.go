package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anjiri1684/class_portal/classapi"
	config "github.com/anjiri1684/class_portal/configs"
	"github.com/anjiri1684/class_portal/database"
	"github.com/anjiri1684/class_portal/handlers"
	"github.com/anjiri1684/class_portal/jobs"
	"github.com/anjiri1684/class_portal/notifications"
	"github.com/anjiri1684/class_portal/routes"
	"github.com/anjiri1684/class_portal/services"
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("🔥 %v", err)
	}

	database.ConnectDB(settings.DatabaseURL, settings.AppEnv)
	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("🔥 Failed to migrate database: %v", err)
	}

	email := notifications.NewBrevoService(settings.BrevoAPIKey, settings.AlertSenderEmail, settings.AlertSenderName)
	alerter := notifications.NewIntegrityAlerter(email, settings.AlertEmail)

	api := classapi.New(settings.ClassAPIBaseURL, settings.ClassAPIToken, settings.ClassAPITimeout)
	reads := services.NewReadModels(api, settings.ScheduleCacheTTL)
	classTypes := services.NewClassTypeCatalog(api, 10*time.Minute)
	ledger := services.NewLedger(database.NewLedgerStore(database.DB), classTypes, alerter, reads)
	slots := services.NewAvailabilityResolver(api)
	lifecycle := services.NewLifecycle(api, reads, slots, ledger, reads)

	c := cron.New()
	if _, err := c.AddJob(settings.ReconcileSchedule, jobs.NewReconciler(api, ledger)); err != nil {
		log.Fatalf("🔥 Invalid RECONCILE_SCHEDULE %q: %v", settings.ReconcileSchedule, err)
	}
	if _, err := c.AddJob(settings.IntegritySchedule, jobs.NewIntegritySweep(ledger)); err != nil {
		log.Fatalf("🔥 Invalid INTEGRITY_SCHEDULE %q: %v", settings.IntegritySchedule, err)
	}
	c.Start()
	log.Println("✅ Cron jobs for credit reconciliation scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:       "Class Portal",
		CaseSensitive: true,
		StrictRouting: true,
		JSONEncoder:   sonic.Marshal,
		JSONDecoder:   sonic.Unmarshal,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  handlers.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PATCH, OPTIONS",
		ExposeHeaders: "Content-Length",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Africa/Nairobi",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.PublicRoutes(app)
	routes.ClassRoutes(app, settings.JWTSecret,
		handlers.NewClassHandler(lifecycle, slots),
		handlers.NewReasonHandler(api))
	routes.CreditRoutes(app, settings.JWTSecret, handlers.NewCreditHandler(ledger, reads))

	go func() {
		log.Printf("✅ Server is running on port %s", settings.Port)
		if err := app.Listen(":" + settings.Port); err != nil {
			log.Fatalf("🔥 Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	<-c.Stop().Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	lifecycle.Wait()
	alerter.Wait()
	log.Println("✅ Shutdown complete")
}
