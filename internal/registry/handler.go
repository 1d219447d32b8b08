package registry

import (
	"strconv"

	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/auth"
	"parceltrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type IntakeRequest struct {
	TrackingNumber  string `json:"tracking_number"`
	ProviderID      uint   `json:"provider_id"`
	LocationID      uint   `json:"location_id"`
	CreateIfMissing bool   `json:"create_if_missing"`
	Note            string `json:"note"`
}

type TransferRequest struct {
	ToProviderID uint   `json:"to_provider_id"`
	ToLocationID uint   `json:"to_location_id"`
	Note         string `json:"note"`
}

type DeliverRequest struct {
	Note string `json:"note"`
}

type BulkTransferRequest struct {
	PackageIDs   []uint `json:"package_ids"`
	ToProviderID uint   `json:"to_provider_id"`
	ToLocationID uint   `json:"to_location_id"`
	Note         string `json:"note"`
}

type BulkDeliverRequest struct {
	PackageIDs []uint `json:"package_ids"`
	Note       string `json:"note"`
}

type BulkUpdateStatusRequest struct {
	PackageIDs []uint                `json:"package_ids"`
	Status     models.PackageStatus  `json:"status"`
	Action     models.MovementAction `json:"action"`
	Note       string                `json:"note"`
}

// POST /api/packages/intake
func IntakeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body IntakeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ProviderID == 0 || body.LocationID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "provider_id and location_id are required")
		}

		pkg, err := svc.Intake(IntakeInput{
			Ref:             body.TrackingNumber,
			ProviderID:      body.ProviderID,
			LocationID:      body.LocationID,
			CreateIfMissing: body.CreateIfMissing,
			Note:            body.Note,
			Actor:           auth.Principal(c),
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(pkg)
	}
}

// POST /api/packages/:ref/transfer
func TransferHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body TransferRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ToProviderID == 0 || body.ToLocationID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "to_provider_id and to_location_id are required")
		}

		pkg, err := svc.Transfer(c.Params("ref"), body.ToProviderID, body.ToLocationID, body.Note, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(pkg)
	}
}

// POST /api/packages/:ref/deliver
func DeliverHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body DeliverRequest
		if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		pkg, err := svc.Deliver(c.Params("ref"), body.Note, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(pkg)
	}
}

// POST /api/packages/bulk-transfer
func BulkTransferHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkTransferRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ToProviderID == 0 || body.ToLocationID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "to_provider_id and to_location_id are required")
		}

		result, err := svc.BulkTransfer(body.PackageIDs, body.ToProviderID, body.ToLocationID, body.Note, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(result)
	}
}

// POST /api/packages/bulk-deliver
func BulkDeliverHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkDeliverRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		result, err := svc.BulkDeliver(body.PackageIDs, body.Note, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(result)
	}
}

// POST /api/packages/bulk-update
func BulkUpdateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkUpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		result, err := svc.BulkUpdateStatus(body.PackageIDs, body.Status, body.Action, body.Note, auth.Principal(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(result)
	}
}

// GET /api/packages/:ref
func GetPackageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pkg, err := svc.GetWithHistory(c.Params("ref"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(pkg)
	}
}

// GET /api/packages
func ListPackagesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := ListFilter{
			Status:   models.PackageStatus(c.Query("status")),
			Tracking: c.Query("tracking"),
		}
		if v := c.Query("provider_id"); v != "" {
			if id, err := strconv.ParseUint(v, 10, 64); err == nil {
				filter.ProviderID = uint(id)
			}
		}
		if v := c.Query("location_id"); v != "" {
			if id, err := strconv.ParseUint(v, 10, 64); err == nil {
				filter.LocationID = uint(id)
			}
		}
		filter.Limit = c.QueryInt("limit", 100)
		filter.Offset = c.QueryInt("offset", 0)

		pkgs, total, err := svc.List(filter)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{
			"total":    total,
			"packages": pkgs,
		})
	}
}
