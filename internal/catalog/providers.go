package catalog

import (
	"strings"

	"parceltrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProviderRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// POST /api/catalog/providers (admin only)
func CreateProviderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProviderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		provider := models.Provider{
			Name:    body.Name,
			Contact: body.Contact,
			Phone:   body.Phone,
			Email:   body.Email,
		}
		if err := db.Create(&provider).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "provider could not be created, name may already exist")
		}
		return c.Status(fiber.StatusCreated).JSON(provider)
	}
}

// GET /api/catalog/providers
func ListProvidersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var providers []models.Provider
		if err := db.Order("name").Find(&providers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list providers")
		}
		return c.JSON(providers)
	}
}

// GET /api/catalog/providers/:id
func GetProviderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid provider id")
		}

		var provider models.Provider
		if err := db.First(&provider, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "provider not found")
		}
		return c.JSON(provider)
	}
}

// PUT /api/catalog/providers/:id (admin only)
func UpdateProviderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid provider id")
		}
		var body ProviderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var provider models.Provider
		if err := db.First(&provider, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "provider not found")
		}

		if name := strings.TrimSpace(body.Name); name != "" {
			provider.Name = name
		}
		provider.Contact = body.Contact
		provider.Phone = body.Phone
		provider.Email = body.Email
		if err := db.Save(&provider).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update provider")
		}
		return c.JSON(provider)
	}
}

// DELETE /api/catalog/providers/:id (admin only)
// Refused while parcels or shipments still reference the provider.
func DeleteProviderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid provider id")
		}

		var provider models.Provider
		if err := db.First(&provider, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "provider not found")
		}

		var parcels int64
		db.Model(&models.Package{}).Where("current_provider_id = ?", id).Count(&parcels)
		if parcels > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "provider still holds parcels")
		}
		var shipments int64
		db.Model(&models.Shipment{}).Where("provider_id = ?", id).Count(&shipments)
		if shipments > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "provider still owns shipments")
		}

		if err := db.Delete(&provider).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete provider")
		}
		return c.JSON(fiber.Map{"message": "provider deleted"})
	}
}
