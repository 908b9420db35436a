package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/academy_billing/configs"
	"github.com/anjiri1684/academy_billing/database"
	"github.com/anjiri1684/academy_billing/handlers"
	"github.com/anjiri1684/academy_billing/jobs"
	"github.com/anjiri1684/academy_billing/notifications"
	"github.com/anjiri1684/academy_billing/routes"
	"github.com/anjiri1684/academy_billing/services"
	"github.com/anjiri1684/academy_billing/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("🔥 Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	alerts := notifications.NewRollbarReporter(config.Config("ROLLBAR_TOKEN"), config.Config("APP_ENV"), config.Config("CODE_VERSION"))
	defer alerts.Close()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	packages := database.NewPackageStore(database.DB)
	dispatcher := notifications.NewDispatcher(
		packages,
		database.NewActivityLogStore(database.DB),
		services.NewBillingService(database.NewBillStore(database.DB)),
		hub,
	)
	reallocations := services.NewReallocationService(database.NewTransactor(database.DB), packages, dispatcher, alerts)

	c := cron.New()
	if _, err := c.AddFunc(config.Config("REALLOCATION_CRON"), jobs.NightlyReallocation(reallocations, time.Hour)); err != nil {
		log.Fatalf("🔥 Invalid REALLOCATION_CRON: %v", err)
	}
	if _, err := c.AddFunc(config.Config("RENOTIFY_CRON"), jobs.RenotifyFinishedPackages(dispatcher, 5*time.Minute)); err != nil {
		log.Fatalf("🔥 Invalid RENOTIFY_CRON: %v", err)
	}
	c.Start()
	log.Println("✅ Cron jobs for reallocation and notifications scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:       "Academy Billing",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  time.Minute,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.PublicRoutes(app)
	routes.AdminRoutes(app, handlers.NewAdminHandler(reallocations, hub))

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		<-c.Stop().Done()
		if err := app.Shutdown(); err != nil {
			log.Printf("🔥 Server shutdown failed: %v", err)
		}
	}()

	port := config.Config("PORT")
	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
