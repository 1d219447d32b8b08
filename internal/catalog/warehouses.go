package catalog

import (
	"strings"

	"parceltrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type WarehouseRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type LocationRequest struct {
	WarehouseID uint   `json:"warehouse_id"`
	Name        string `json:"name"`
}

// POST /api/catalog/warehouses (admin only)
func CreateWarehouseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body WarehouseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		warehouse := models.Warehouse{Name: body.Name, Address: body.Address}
		if err := db.Create(&warehouse).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create warehouse")
		}
		return c.Status(fiber.StatusCreated).JSON(warehouse)
	}
}

// GET /api/catalog/warehouses
func ListWarehousesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var warehouses []models.Warehouse
		if err := db.Preload("Locations").Order("name").Find(&warehouses).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list warehouses")
		}
		return c.JSON(warehouses)
	}
}

// DELETE /api/catalog/warehouses/:id (admin only)
// Refused while any of its locations still holds parcels.
func DeleteWarehouseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid warehouse id")
		}

		var warehouse models.Warehouse
		if err := db.First(&warehouse, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "warehouse not found")
		}

		var parcels int64
		db.Model(&models.Package{}).
			Joins("JOIN locations ON locations.id = packages.current_location_id").
			Where("locations.warehouse_id = ?", id).
			Count(&parcels)
		if parcels > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "warehouse locations still hold parcels")
		}

		if err := db.Select("Locations").Delete(&warehouse).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete warehouse")
		}
		return c.JSON(fiber.Map{"message": "warehouse deleted"})
	}
}

// POST /api/catalog/locations (admin only)
func CreateLocationHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LocationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" || body.WarehouseID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "warehouse_id and name are required")
		}

		var warehouse models.Warehouse
		if err := db.First(&warehouse, body.WarehouseID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "warehouse not found")
		}

		location := models.Location{WarehouseID: body.WarehouseID, Name: body.Name}
		if err := db.Create(&location).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create location")
		}
		return c.Status(fiber.StatusCreated).JSON(location)
	}
}

// GET /api/catalog/locations
func ListLocationsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Preload("Warehouse").Order("name")
		if wid := c.QueryInt("warehouse_id"); wid > 0 {
			q = q.Where("warehouse_id = ?", wid)
		}
		var locations []models.Location
		if err := q.Find(&locations).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list locations")
		}
		return c.JSON(locations)
	}
}

// DELETE /api/catalog/locations/:id (admin only)
// Refused while parcels still sit at the location.
func DeleteLocationHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location id")
		}

		var location models.Location
		if err := db.First(&location, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "location not found")
		}

		var parcels int64
		db.Model(&models.Package{}).Where("current_location_id = ?", id).Count(&parcels)
		if parcels > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "location still holds parcels")
		}

		if err := db.Delete(&location).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete location")
		}
		return c.JSON(fiber.Map{"message": "location deleted"})
	}
}
