package reconcile

import (
	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type UploadBatchRequest struct {
	ShipmentID uint            `json:"shipment_id"`
	Rows       []BatchRowInput `json:"rows"`
}

type ScanRequest struct {
	BatchID        uint   `json:"batch_id"`
	TrackingNumber string `json:"tracking_number"`
}

// POST /api/vms/classification/batches
func UploadBatchHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UploadBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ShipmentID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "shipment_id is required")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		summary, err := svc.UploadBatch(scope, body.ShipmentID, body.Rows, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(summary)
	}
}

// POST /api/vms/classification/scan
func ScanHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ScanRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.BatchID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "batch_id is required")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		result, err := svc.Scan(scope, body.BatchID, body.TrackingNumber, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(result)
	}
}

// GET /api/vms/classification/batches/:id/stats
func StatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid batch id")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		stats, err := svc.Stats(scope, uint(id))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(stats)
	}
}

// POST /api/vms/classification/batches/:id/finalize
func FinalizeBatchHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid batch id")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		batch, err := svc.FinalizeBatch(scope, uint(id), auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(batch)
	}
}

// GET /api/vms/classification/search?tracking=...
func SearchTrackingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tracking := c.Query("tracking")
		if tracking == "" {
			return fiber.NewError(fiber.StatusBadRequest, "tracking query parameter is required")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		hit, err := svc.SearchTracking(scope, tracking)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(hit)
	}
}

// GET /api/vms/shipments/:id/batches
func ListBatchesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid shipment id")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		batches, err := svc.ListBatches(scope, uint(id))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(batches)
	}
}

// GET /api/vms/classification/batches/:id/entries?vehicle=...&scanned=...
func ListEntriesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid batch id")
		}

		filter := EntryFilter{Vehicle: c.Query("vehicle")}
		if raw := c.Query("scanned"); raw != "" {
			scanned := raw == "true" || raw == "1"
			filter.Scanned = &scanned
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		entries, err := svc.ListEntries(scope, uint(id), filter)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(entries)
	}
}
