package controllers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"github.com/NkwentiSevian/ConstructionMarket/app/repository"
)

// HandleListCategories returns the active categories for public listing.
// Admins can pass ?all=1 to include inactive ones.
func HandleListCategories(c *fiber.Ctx) error {
	activeOnly := c.Query("all") != "1"

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	categories, err := repo.List(activeOnly)
	if err != nil {
		log.Printf("category list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not load categories",
		})
	}
	return c.JSON(fiber.Map{"categories": categories})
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

// HandleCreateCategory creates a category. Admin only.
func HandleCreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid JSON body",
		})
	}

	category := &models.Category{
		Name:        req.Name,
		Slug:        Slugify(req.Name),
		Description: req.Description,
		Active:      true,
	}
	if req.Active != nil {
		category.Active = *req.Active
	}
	if err := category.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	if err := repo.Create(category); err != nil {
		log.Printf("category create failed: %v", err)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "conflict",
			"message": "could not create category",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// HandleUpdateCategory updates name, description or active flag. Admin only.
func HandleUpdateCategory(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid category id",
		})
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	category, err := repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "not_found",
				"message": "category not found",
			})
		}
		log.Printf("category lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not load category",
		})
	}

	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid JSON body",
		})
	}
	if req.Name != "" {
		category.Name = req.Name
		category.Slug = Slugify(req.Name)
	}
	if req.Description != "" {
		category.Description = req.Description
	}
	if req.Active != nil {
		category.Active = *req.Active
	}
	if err := category.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	if err := repo.Update(category); err != nil {
		log.Printf("category update failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not update category",
		})
	}
	return c.JSON(category)
}

// HandleDeleteCategory removes a category. Admin only.
func HandleDeleteCategory(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid category id",
		})
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	if err := repo.Delete(uint(id)); err != nil {
		log.Printf("category delete failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not delete category",
		})
	}
	return c.JSON(fiber.Map{"deleted": true})
}
