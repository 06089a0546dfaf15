package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"github.com/NkwentiSevian/ConstructionMarket/app/repository"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/entitlements"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/metrics/counter"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/usercontext"
)

type createCompanyRequest struct {
	Name        string `json:"name"`
	CategoryID  *uint  `json:"category_id"`
	Description string `json:"description"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Website     string `json:"website"`
}

// HandleCreateCompany registers a new company for the logged-in user.
func HandleCreateCompany(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid JSON body",
		})
	}

	company := &models.Company{
		OwnerID:     userCtx.UserID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Slug:        Slugify(req.Name),
		Description: req.Description,
		City:        req.City,
		Region:      req.Region,
		Phone:       req.Phone,
		Email:       req.Email,
		Website:     req.Website,
		Status:      models.CompanyStatusPending,
	}
	if err := company.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	repo := repository.GetGlobalFactory().GetCompanyRepository()
	if err := repo.Create(company); err != nil {
		log.Printf("company create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not create company",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(company)
}

// HandleGetCompany returns one company profile and counts the view.
func HandleGetCompany(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid company id",
		})
	}

	repo := repository.GetGlobalFactory().GetCompanyRepository()
	company, err := repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "not_found",
				"message": "company not found",
			})
		}
		log.Printf("company lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not load company",
		})
	}

	// Views are batched in the cache and drained to the database later.
	if err := counter.AddCompanyView(company.ID); err != nil {
		log.Printf("view counter for company %d failed: %v", company.ID, err)
	}

	return c.JSON(fiber.Map{
		"company": company,
		"badge":   entitlements.EffectiveBadge(company, time.Now()),
	})
}

// HandleListCompanies returns a directory page, featured companies first.
func HandleListCompanies(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	repo := repository.GetGlobalFactory().GetCompanyRepository()

	var companies []models.Company
	var err error
	if query := c.Query("q"); query != "" {
		companies, err = repo.Search(query, (page-1)*limit, limit)
	} else {
		companies, err = repo.List((page-1)*limit, limit, uint(c.QueryInt("category", 0)), c.Query("city"))
	}
	if err != nil {
		log.Printf("company listing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "could not list companies",
		})
	}

	now := time.Now()
	results := make([]fiber.Map, 0, len(companies))
	for i := range companies {
		results = append(results, fiber.Map{
			"company": companies[i],
			"badge":   entitlements.EffectiveBadge(&companies[i], now),
		})
	}
	return c.JSON(fiber.Map{
		"companies": results,
		"page":      page,
		"limit":     limit,
	})
}
