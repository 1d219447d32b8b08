package manifest

import (
	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type LoadPreAlertRequest struct {
	ShipmentID uint               `json:"shipment_id"` // 0 creates a new shipment
	ProviderID uint               `json:"provider_id"` // only needed by admins creating a shipment
	Rows       []PreAlertRowInput `json:"rows"`
}

type LoadPreRouteRequest struct {
	ShipmentID uint               `json:"shipment_id"`
	Rows       []PreRouteRowInput `json:"rows"`
}

// POST /api/vms/pre-alerts
func LoadPreAlertHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoadPreAlertRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		scope, err := auth.ScopeFromCtx(c)
		if err != nil {
			return apperr.ToFiber(err)
		}

		report, err := svc.LoadPreAlert(scope, body.ShipmentID, body.ProviderID, body.Rows, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(report)
	}
}

// POST /api/vms/pre-routes
func LoadPreRouteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoadPreRouteRequest
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

		report, err := svc.LoadPreRoute(scope, body.ShipmentID, body.Rows, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(report)
	}
}
