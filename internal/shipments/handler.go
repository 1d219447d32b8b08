package shipments

import (
	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/auth"
	"parceltrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateShipmentRequest struct {
	ProviderID uint `json:"provider_id"` // ignored for vendor users
}

type UpdateStatusRequest struct {
	Status models.ShipmentStatus `json:"status"`
}

type VerifyScanRequest struct {
	ShipmentID     uint   `json:"shipment_id"`
	TrackingNumber string `json:"tracking_number"`
}

// POST /api/vms/shipments
func CreateShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateShipmentRequest
		if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		shipment, err := svc.Create(scope, body.ProviderID, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(shipment)
	}
}

// GET /api/vms/shipments
func ListShipmentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		shipments, err := svc.List(scope)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(shipments)
	}
}

// GET /api/vms/shipments/:id
func GetShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid shipment id")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		shipment, err := svc.Get(scope, uint(id))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(shipment)
	}
}

// PUT /api/vms/shipments/:id/status
func UpdateShipmentStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid shipment id")
		}
		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		shipment, err := svc.UpdateStatus(scope, uint(id), body.Status)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(shipment)
	}
}

// POST /api/vms/shipments/:id/finalize
func FinalizeShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid shipment id")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		shipment, err := svc.Finalize(scope, uint(id))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(shipment)
	}
}

// DELETE /api/vms/shipments/:id
func DeleteShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid shipment id")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		if err := svc.Delete(scope, uint(id)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "shipment deleted"})
	}
}

// GET /api/vms/shipments/:id/comparison
func CompareShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid shipment id")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		result, err := svc.CompareShipment(scope, uint(id))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(result)
	}
}

// POST /api/vms/verification/scan
func VerifyScanHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body VerifyScanRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ShipmentID == 0 || body.TrackingNumber == "" {
			return fiber.NewError(fiber.StatusBadRequest, "shipment_id and tracking_number are required")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		result, err := svc.VerifyScan(scope, body.ShipmentID, body.TrackingNumber, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(result)
	}
}
