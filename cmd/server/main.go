package main

import (
	"errors"
	"log"

	"parceltrack-backend/internal/auth"
	"parceltrack-backend/internal/catalog"
	"parceltrack-backend/internal/config"
	"parceltrack-backend/internal/database"
	"parceltrack-backend/internal/events"
	"parceltrack-backend/internal/logger"
	"parceltrack-backend/internal/manifest"
	"parceltrack-backend/internal/models"
	"parceltrack-backend/internal/reconcile"
	"parceltrack-backend/internal/registry"
	"parceltrack-backend/internal/shipments"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()

	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("[FATAL] logger: %v", err)
	}
	defer lg.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		lg.Fatal("database connection failed", "error", err)
	}

	var publisher events.Publisher
	if cfg.KafkaBroker != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		lg.Info("domain events go to kafka", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	} else {
		publisher = events.NewLogPublisher(lg)
		lg.Info("domain events go to the log, KAFKA_BROKER is not set")
	}
	emitter := events.NewEmitter(publisher, lg)
	defer emitter.Close()

	registrySvc := registry.NewService(db, lg, emitter)
	manifestSvc := manifest.NewService(db, lg, emitter)
	shipmentSvc := shipments.NewService(db, lg)
	reconcileSvc := reconcile.NewService(db, lg)

	app := fiber.New(fiber.Config{
		AppName: "parceltrack-backend",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code == fiber.StatusInternalServerError {
				lg.Error("unhandled error", "path", c.Path(), "error", err)
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// public
	authGroup := api.Group("/auth")
	authGroup.Post("/register-admin", auth.RegisterAdminHandler(db))
	authGroup.Post("/login", auth.LoginHandler(db, cfg))

	// everything below requires a valid token
	protected := api.Group("", auth.JWTMiddleware(cfg))
	protected.Get("/auth/me", auth.MeHandler(db))

	adminOnly := auth.RequireRole(models.RoleAdmin)
	protected.Post("/auth/users", adminOnly, auth.CreateUserHandler(db))

	// catalog: reads for everyone, writes admin only
	cat := protected.Group("/catalog")
	cat.Get("/providers", catalog.ListProvidersHandler(db))
	cat.Get("/providers/:id", catalog.GetProviderHandler(db))
	cat.Post("/providers", adminOnly, catalog.CreateProviderHandler(db))
	cat.Put("/providers/:id", adminOnly, catalog.UpdateProviderHandler(db))
	cat.Delete("/providers/:id", adminOnly, catalog.DeleteProviderHandler(db))
	cat.Get("/warehouses", catalog.ListWarehousesHandler(db))
	cat.Post("/warehouses", adminOnly, catalog.CreateWarehouseHandler(db))
	cat.Delete("/warehouses/:id", adminOnly, catalog.DeleteWarehouseHandler(db))
	cat.Get("/locations", catalog.ListLocationsHandler(db))
	cat.Post("/locations", adminOnly, catalog.CreateLocationHandler(db))
	cat.Delete("/locations/:id", adminOnly, catalog.DeleteLocationHandler(db))

	// package registry: warehouse operations are admin work
	pkgs := protected.Group("/packages", adminOnly)
	pkgs.Get("", registry.ListPackagesHandler(registrySvc))
	pkgs.Post("/intake", registry.IntakeHandler(registrySvc))
	pkgs.Post("/bulk-transfer", registry.BulkTransferHandler(registrySvc))
	pkgs.Post("/bulk-deliver", registry.BulkDeliverHandler(registrySvc))
	pkgs.Post("/bulk-update", registry.BulkUpdateStatusHandler(registrySvc))
	pkgs.Get("/:ref", registry.GetPackageHandler(registrySvc))
	pkgs.Post("/:ref/transfer", registry.TransferHandler(registrySvc))
	pkgs.Post("/:ref/deliver", registry.DeliverHandler(registrySvc))

	// vms: shipment verification, tenant-scoped via the JWT claims
	vms := protected.Group("/vms")
	vms.Post("/shipments", shipments.CreateShipmentHandler(shipmentSvc))
	vms.Get("/shipments", shipments.ListShipmentsHandler(shipmentSvc))
	vms.Get("/shipments/:id", shipments.GetShipmentHandler(shipmentSvc))
	vms.Put("/shipments/:id/status", shipments.UpdateShipmentStatusHandler(shipmentSvc))
	vms.Post("/shipments/:id/finalize", shipments.FinalizeShipmentHandler(shipmentSvc))
	vms.Delete("/shipments/:id", shipments.DeleteShipmentHandler(shipmentSvc))
	vms.Get("/shipments/:id/comparison", shipments.CompareShipmentHandler(shipmentSvc))
	vms.Get("/shipments/:id/batches", reconcile.ListBatchesHandler(reconcileSvc))
	vms.Post("/pre-alerts", manifest.LoadPreAlertHandler(manifestSvc))
	vms.Post("/pre-routes", manifest.LoadPreRouteHandler(manifestSvc))
	vms.Post("/verification/scan", shipments.VerifyScanHandler(shipmentSvc))
	vms.Post("/classification/batches", reconcile.UploadBatchHandler(reconcileSvc))
	vms.Get("/classification/batches/:id/stats", reconcile.StatsHandler(reconcileSvc))
	vms.Get("/classification/batches/:id/entries", reconcile.ListEntriesHandler(reconcileSvc))
	vms.Post("/classification/batches/:id/finalize", reconcile.FinalizeBatchHandler(reconcileSvc))
	vms.Post("/classification/scan", reconcile.ScanHandler(reconcileSvc))
	vms.Get("/classification/search", reconcile.SearchTrackingHandler(reconcileSvc))

	lg.Info("server starting", "port", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		lg.Fatal("server stopped", "error", err)
	}
}
