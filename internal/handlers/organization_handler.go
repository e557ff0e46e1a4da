package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/openninety/api/internal/analytics"
	apierrors "github.com/openninety/api/internal/errors"
	"github.com/openninety/api/internal/middleware"
	"github.com/openninety/api/internal/models"
	"github.com/openninety/api/internal/services"
	"github.com/shopspring/decimal"
)

// OrganizationHandler handles organization read endpoints.
type OrganizationHandler struct {
	service services.OrganizationService
}

// NewOrganizationHandler creates a new OrganizationHandler instance.
func NewOrganizationHandler(service services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		service: service,
	}
}

// ListOrganizationsRequest represents the query parameters for the list endpoint.
// Sort field and direction are validated by the service layer, which owns the
// whitelist.
type ListOrganizationsRequest struct {
	Search   string `form:"search"`
	SortBy   string `form:"sortBy"`
	SortDir  string `form:"sortDir"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
}

// OrganizationData represents one organization record in API responses.
// NULL prior-year columns render as zeros here; the deltas block carries null
// pairs when the filing had no prior-year figures, which is how callers tell
// a missing prior year from a zero one.
type OrganizationData struct {
	UpdatedAt         time.Time       `json:"updatedAt"`
	FilingDate        *time.Time      `json:"filingDate,omitempty"`
	EIN               string          `json:"ein"`
	Name              string          `json:"name"`
	FormType          string          `json:"formType"`
	Website           string          `json:"website,omitempty"`
	Mission           string          `json:"mission,omitempty"`
	CurrentRevenue    decimal.Decimal `json:"currentRevenue"`
	CurrentExpenses   decimal.Decimal `json:"currentExpenses"`
	CurrentAssets     decimal.Decimal `json:"currentAssets"`
	PreviousRevenue   decimal.Decimal `json:"previousRevenue"`
	PreviousExpenses  decimal.Decimal `json:"previousExpenses"`
	PreviousAssets    decimal.Decimal `json:"previousAssets"`
	CurrentEmployees  int             `json:"currentEmployees"`
	PreviousEmployees int             `json:"previousEmployees"`
	TaxYear           int             `json:"taxYear"`
	ID                int64           `json:"id"`
}

// DeltaPairData represents one year-over-year change as absolute and percent.
type DeltaPairData struct {
	Absolute decimal.Decimal `json:"absolute"`
	Percent  decimal.Decimal `json:"percent"`
}

// DeltasData represents the year-over-year block. The four pairs are null
// together for organizations without prior-year data.
type DeltasData struct {
	Revenue   *DeltaPairData `json:"revenue"`
	Expenses  *DeltaPairData `json:"expenses"`
	Assets    *DeltaPairData `json:"assets"`
	Employees *DeltaPairData `json:"employees"`
}

// OrganizationSummaryData is one row of the list response.
type OrganizationSummaryData struct {
	OrganizationData
	Deltas DeltasData `json:"deltas"`
}

// PaginationData represents the pagination block of list responses.
type PaginationData struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// ListOrganizationsResponse represents the response for the list endpoint.
type ListOrganizationsResponse struct {
	Organizations []OrganizationSummaryData `json:"organizations"`
	Pagination    PaginationData            `json:"pagination"`
}

// PersonnelData represents one compensated officer row in the detail response.
type PersonnelData struct {
	FullName     string          `json:"fullName"`
	Title        string          `json:"title"`
	Compensation decimal.Decimal `json:"compensation"`
	ID           int64           `json:"id"`
}

// ExpenseCategoryData represents one expense line in the detail response.
type ExpenseCategoryData struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	TaxYear  int             `json:"taxYear"`
	ID       int64           `json:"id"`
}

// FinancialHealthData represents the financial health block.
type FinancialHealthData struct {
	NetIncome       decimal.Decimal  `json:"netIncome"`
	ProfitMargin    decimal.Decimal  `json:"profitMargin"`
	AssetGrowthRate *decimal.Decimal `json:"assetGrowthRate"`
}

// AnalyticsData represents the derived metrics block of the detail response.
// StaffingBadge is "N/A" for organizations without prior-year employee data.
type AnalyticsData struct {
	Classification  string              `json:"classification"`
	StaffingBadge   string              `json:"staffingBadge"`
	FinancialHealth FinancialHealthData `json:"financialHealth"`
}

// OrganizationDetailResponse represents the response for the detail endpoint.
type OrganizationDetailResponse struct {
	Organization      OrganizationData      `json:"organization"`
	Deltas            DeltasData            `json:"deltas"`
	Personnel         []PersonnelData       `json:"personnel"`
	ExpenseCategories []ExpenseCategoryData `json:"expenseCategories"`
	Analytics         AnalyticsData         `json:"analytics"`
}

// List handles GET /api/v1/organizations endpoint.
// It returns one page of organizations annotated with year-over-year deltas.
func (h *OrganizationHandler) List(c *gin.Context) {
	log := middleware.GetLogger(c)

	// Bind and validate query parameters
	var req ListOrganizationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		// Check if it's a validation error
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		// Generic bad request for other binding errors
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	if log != nil {
		log.Info("Processing organization list request", map[string]interface{}{
			"search":  req.Search,
			"sort_by": req.SortBy,
			"page":    req.Page,
		})
	}

	// Call service layer
	result, err := h.service.List(c.Request.Context(), services.ListQuery{
		Search:   req.Search,
		SortBy:   req.SortBy,
		SortDir:  req.SortDir,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		// Handle service-level errors
		if errors.Is(err, services.ErrInvalidSortField) ||
			errors.Is(err, services.ErrInvalidSortDir) ||
			errors.Is(err, services.ErrInvalidPageSize) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		// Database or other unexpected errors
		apierrors.InternalServerError(c, "Failed to list organizations", err)
		return
	}

	// Map service results to response DTOs
	rows := make([]OrganizationSummaryData, 0, len(result.Organizations))
	for _, summary := range result.Organizations {
		rows = append(rows, OrganizationSummaryData{
			OrganizationData: mapOrganizationToDTO(summary.Organization),
			Deltas:           mapDeltasToDTO(summary.Deltas),
		})
	}

	c.JSON(http.StatusOK, ListOrganizationsResponse{
		Organizations: rows,
		Pagination: PaginationData{
			Page:       result.Page,
			PageSize:   result.PageSize,
			TotalItems: result.TotalItems,
			TotalPages: result.TotalPages,
		},
	})
}

// GetByEIN handles GET /api/v1/organizations/:ein endpoint.
// It returns the organization record with its personnel, expense categories,
// and derived analytics block.
func (h *OrganizationHandler) GetByEIN(c *gin.Context) {
	log := middleware.GetLogger(c)

	ein := c.Param("ein")

	if log != nil {
		log.Info("Processing organization detail request", map[string]interface{}{
			"ein": ein,
		})
	}

	// Call service layer
	detail, err := h.service.GetByEIN(c.Request.Context(), ein)
	if err != nil {
		// Handle service-level errors
		if errors.Is(err, services.ErrInvalidEIN) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		if errors.Is(err, services.ErrOrganizationNotFound) {
			apierrors.NotFound(c, "No organization found for this EIN")
			return
		}
		// Database or other unexpected errors
		apierrors.InternalServerError(c, "Failed to load organization", err)
		return
	}

	personnel := make([]PersonnelData, 0, len(detail.Personnel))
	for _, p := range detail.Personnel {
		personnel = append(personnel, PersonnelData{
			ID:           p.ID,
			FullName:     p.FullName,
			Title:        p.Title,
			Compensation: p.Compensation,
		})
	}

	expenses := make([]ExpenseCategoryData, 0, len(detail.Expenses))
	for _, e := range detail.Expenses {
		expenses = append(expenses, ExpenseCategoryData{
			ID:       e.ID,
			Category: e.Category,
			Amount:   e.Amount,
			TaxYear:  e.TaxYear,
		})
	}

	// Badge renders as N/A when there is no prior-year employee data
	badge := "N/A"
	if detail.StaffingBadge != nil {
		badge = string(*detail.StaffingBadge)
	}

	response := OrganizationDetailResponse{
		Organization:      mapOrganizationToDTO(detail.Organization),
		Deltas:            mapDeltasToDTO(detail.Deltas),
		Personnel:         personnel,
		ExpenseCategories: expenses,
		Analytics: AnalyticsData{
			Classification: string(detail.Classification),
			StaffingBadge:  badge,
			FinancialHealth: FinancialHealthData{
				NetIncome:       detail.Health.NetIncome,
				ProfitMargin:    detail.Health.ProfitMargin,
				AssetGrowthRate: detail.Health.AssetGrowthRate,
			},
		},
	}

	c.JSON(http.StatusOK, response)
}

// mapOrganizationToDTO converts an Organization model to its response DTO.
// NULL prior-year fields render as zero values; absence is carried by the
// deltas block instead.
func mapOrganizationToDTO(org models.Organization) OrganizationData {
	dto := OrganizationData{
		ID:               org.ID,
		EIN:              org.EIN,
		Name:             org.Name,
		FormType:         string(org.FormType),
		TaxYear:          org.TaxYear,
		FilingDate:       org.FilingDate,
		CurrentRevenue:   org.CurrentRevenue,
		CurrentExpenses:  org.CurrentExpenses,
		CurrentAssets:    org.CurrentAssets,
		CurrentEmployees: org.CurrentEmployees,
		UpdatedAt:        org.UpdatedAt,
	}

	// Handle optional string fields
	if org.Website != nil {
		dto.Website = *org.Website
	}
	if org.Mission != nil {
		dto.Mission = *org.Mission
	}

	if org.PreviousRevenue != nil {
		dto.PreviousRevenue = *org.PreviousRevenue
	}
	if org.PreviousExpenses != nil {
		dto.PreviousExpenses = *org.PreviousExpenses
	}
	if org.PreviousAssets != nil {
		dto.PreviousAssets = *org.PreviousAssets
	}
	if org.PreviousEmployees != nil {
		dto.PreviousEmployees = *org.PreviousEmployees
	}

	return dto
}

// mapDeltasToDTO converts the analytics delta block to its response DTO.
func mapDeltasToDTO(deltas analytics.Deltas) DeltasData {
	return DeltasData{
		Revenue:   mapDeltaPair(deltas.Revenue),
		Expenses:  mapDeltaPair(deltas.Expenses),
		Assets:    mapDeltaPair(deltas.Assets),
		Employees: mapDeltaPair(deltas.Employees),
	}
}

func mapDeltaPair(pair *analytics.DeltaPair) *DeltaPairData {
	if pair == nil {
		return nil
	}
	return &DeltaPairData{
		Absolute: pair.Absolute,
		Percent:  pair.Percent,
	}
}
