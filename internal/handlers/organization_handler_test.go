package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openninety/api/internal/analytics"
	apierrors "github.com/openninety/api/internal/errors"
	"github.com/openninety/api/internal/logger"
	"github.com/openninety/api/internal/middleware"
	"github.com/openninety/api/internal/models"
	"github.com/openninety/api/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrganizationService is a mock implementation of services.OrganizationService.
type MockOrganizationService struct {
	mock.Mock
}

func (m *MockOrganizationService) List(ctx context.Context, query services.ListQuery) (*services.ListResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ListResult), args.Error(1)
}

func (m *MockOrganizationService) GetByEIN(ctx context.Context, ein string) (*services.OrganizationDetail, error) {
	args := m.Called(ctx, ein)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OrganizationDetail), args.Error(1)
}

// setupOrganizationTestRouter creates a test router with middleware and
// organization handlers.
func setupOrganizationTestRouter(handler *OrganizationHandler, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))

	// Register routes
	v1 := router.Group("/api/v1")
	{
		organizations := v1.Group("/organizations")
		{
			organizations.GET("", handler.List)
			organizations.GET("/:ein", handler.GetByEIN)
		}
	}

	return router
}

func decPtr(value int64) *decimal.Decimal {
	d := decimal.NewFromInt(value)
	return &d
}

func intPtr(value int) *int {
	return &value
}

// grownOrganization returns an organization with a full prior-year set so the
// analytics block is fully populated.
func grownOrganization() models.Organization {
	filed := time.Date(2023, 5, 15, 9, 30, 0, 0, time.UTC)
	website := "https://example.org"
	mission := "Community support programs"
	return models.Organization{
		ID:                7,
		EIN:               "123456789",
		Name:              "Helping Hands Foundation",
		FormType:          models.Form990,
		TaxYear:           2022,
		FilingDate:        &filed,
		Website:           &website,
		Mission:           &mission,
		CurrentRevenue:    decimal.NewFromInt(150000),
		CurrentExpenses:   decimal.NewFromInt(90000),
		CurrentAssets:     decimal.NewFromInt(330000),
		CurrentEmployees:  50,
		PreviousRevenue:   decPtr(120000),
		PreviousExpenses:  decPtr(100000),
		PreviousAssets:    decPtr(300000),
		PreviousEmployees: intPtr(40),
	}
}

// firstYearOrganization returns an organization whose filing carried no
// prior-year figures at all.
func firstYearOrganization() models.Organization {
	return models.Organization{
		ID:               9,
		EIN:              "987654321",
		Name:             "New Horizons Trust",
		FormType:         models.Form990EZ,
		TaxYear:          2022,
		CurrentRevenue:   decimal.NewFromInt(40000),
		CurrentExpenses:  decimal.NewFromInt(55000),
		CurrentAssets:    decimal.NewFromInt(10000),
		CurrentEmployees: 3,
	}
}

func detailFixture() *services.OrganizationDetail {
	org := grownOrganization()
	deltas := analytics.ComputeDeltas(org)
	badge := analytics.BadgeRapidGrowth
	return &services.OrganizationDetail{
		Organization: org,
		Personnel: []models.Personnel{
			{ID: 1, FullName: "Jane Smith", Title: "Executive Director", Compensation: decimal.NewFromInt(102500)},
			{ID: 2, FullName: "Robert Lee", Title: "Treasurer", Compensation: decimal.Zero},
		},
		Expenses: []models.ExpenseCategory{
			{ID: 1, Category: models.CategoryOtherSalaries, Amount: decimal.NewFromInt(45000), TaxYear: 2022},
		},
		Deltas:         deltas,
		Classification: analytics.Profitable,
		StaffingBadge:  &badge,
		Health:         analytics.ComputeHealth(org, deltas),
	}
}

func TestListOrganizations_Success(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	grown := grownOrganization()
	firstYear := firstYearOrganization()
	mockService.On("List", mock.Anything, services.ListQuery{
		Search:   "found",
		SortBy:   "revenue",
		SortDir:  "desc",
		Page:     2,
		PageSize: 10,
	}).Return(&services.ListResult{
		Organizations: []services.OrganizationSummary{
			{Organization: grown, Deltas: analytics.ComputeDeltas(grown)},
			{Organization: firstYear, Deltas: analytics.ComputeDeltas(firstYear)},
		},
		Page:       2,
		PageSize:   10,
		TotalItems: 12,
		TotalPages: 2,
	}, nil)

	// Make request
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations?search=found&sortBy=revenue&sortDir=desc&page=2&pageSize=10", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusOK, w.Code)

	var response ListOrganizationsResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	require.Len(t, response.Organizations, 2)
	assert.Equal(t, "Helping Hands Foundation", response.Organizations[0].Name)
	assert.Equal(t, "123456789", response.Organizations[0].EIN)
	assert.Equal(t, "990", response.Organizations[0].FormType)
	assert.Equal(t, "150000", response.Organizations[0].CurrentRevenue.String())

	require.NotNil(t, response.Organizations[0].Deltas.Revenue)
	assert.Equal(t, "30000", response.Organizations[0].Deltas.Revenue.Absolute.String())
	assert.Equal(t, "25", response.Organizations[0].Deltas.Revenue.Percent.String())
	require.NotNil(t, response.Organizations[0].Deltas.Employees)
	assert.Equal(t, "25", response.Organizations[0].Deltas.Employees.Percent.String())

	assert.Equal(t, 2, response.Pagination.Page)
	assert.Equal(t, 10, response.Pagination.PageSize)
	assert.Equal(t, 12, response.Pagination.TotalItems)
	assert.Equal(t, 2, response.Pagination.TotalPages)

	// Verify response headers
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	mockService.AssertExpectations(t)
}

func TestListOrganizations_NullPriorYearRendersZeros(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	firstYear := firstYearOrganization()
	mockService.On("List", mock.Anything, mock.Anything).Return(&services.ListResult{
		Organizations: []services.OrganizationSummary{
			{Organization: firstYear, Deltas: analytics.ComputeDeltas(firstYear)},
		},
		Page:       1,
		PageSize:   20,
		TotalItems: 1,
		TotalPages: 1,
	}, nil)

	// Make request
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusOK, w.Code)

	var response ListOrganizationsResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	// NULL prior-year columns render as zeros in the record; absence is
	// carried by the null delta pairs
	require.Len(t, response.Organizations, 1)
	row := response.Organizations[0]
	assert.Equal(t, "0", row.PreviousRevenue.String())
	assert.Equal(t, "0", row.PreviousExpenses.String())
	assert.Equal(t, "0", row.PreviousAssets.String())
	assert.Equal(t, 0, row.PreviousEmployees)
	assert.Nil(t, row.Deltas.Revenue)
	assert.Nil(t, row.Deltas.Expenses)
	assert.Nil(t, row.Deltas.Assets)
	assert.Nil(t, row.Deltas.Employees)
	assert.Contains(t, w.Body.String(), `"revenue":null`)
}

func TestListOrganizations_PageSizeOverCap(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	// Make request with pageSize above the binding cap
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations?pageSize=200", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response apierrors.ErrorResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, apierrors.ErrValidation, response.Error.Code)
	mockService.AssertNotCalled(t, "List")
}

func TestListOrganizations_InvalidSortField(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	mockService.On("List", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: %q", services.ErrInvalidSortField, "bogus"))

	// Make request
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations?sortBy=bogus", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response apierrors.ErrorResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, apierrors.ErrBadRequest, response.Error.Code)
	assert.Contains(t, response.Error.Message, "invalid sort field")
}

func TestListOrganizations_ServiceError(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	mockService.On("List", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("connection refused"))

	// Make request
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response apierrors.ErrorResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, apierrors.ErrInternalServer, response.Error.Code)
}

func TestGetByEIN_Success(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	mockService.On("GetByEIN", mock.Anything, "123456789").Return(detailFixture(), nil)

	// Make request
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations/123456789", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusOK, w.Code)

	var response OrganizationDetailResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "123456789", response.Organization.EIN)
	assert.Equal(t, "Helping Hands Foundation", response.Organization.Name)
	assert.Equal(t, "https://example.org", response.Organization.Website)
	assert.Equal(t, 2022, response.Organization.TaxYear)

	require.Len(t, response.Personnel, 2)
	assert.Equal(t, "Jane Smith", response.Personnel[0].FullName)
	assert.Equal(t, "Executive Director", response.Personnel[0].Title)
	assert.Equal(t, "102500", response.Personnel[0].Compensation.String())

	require.Len(t, response.ExpenseCategories, 1)
	assert.Equal(t, "Other Salaries", response.ExpenseCategories[0].Category)
	assert.Equal(t, "45000", response.ExpenseCategories[0].Amount.String())

	assert.Equal(t, "Profitable", response.Analytics.Classification)
	assert.Equal(t, "Rapid Growth", response.Analytics.StaffingBadge)
	assert.Equal(t, "60000", response.Analytics.FinancialHealth.NetIncome.String())
	assert.Equal(t, "40", response.Analytics.FinancialHealth.ProfitMargin.String())
	require.NotNil(t, response.Analytics.FinancialHealth.AssetGrowthRate)
	assert.Equal(t, "10", response.Analytics.FinancialHealth.AssetGrowthRate.String())

	require.NotNil(t, response.Deltas.Expenses)
	assert.Equal(t, "-10", response.Deltas.Expenses.Percent.String())

	mockService.AssertExpectations(t)
}

func TestGetByEIN_NoPriorYearRendersNA(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	org := firstYearOrganization()
	deltas := analytics.ComputeDeltas(org)
	mockService.On("GetByEIN", mock.Anything, "987654321").Return(&services.OrganizationDetail{
		Organization:   org,
		Personnel:      []models.Personnel{},
		Expenses:       []models.ExpenseCategory{},
		Deltas:         deltas,
		Classification: analytics.Restructuring,
		Health:         analytics.ComputeHealth(org, deltas),
	}, nil)

	// Make request
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations/987654321", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusOK, w.Code)

	var response OrganizationDetailResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "N/A", response.Analytics.StaffingBadge)
	assert.Equal(t, "Restructuring", response.Analytics.Classification)
	assert.Nil(t, response.Analytics.FinancialHealth.AssetGrowthRate)
	assert.Nil(t, response.Deltas.Employees)
	assert.Empty(t, response.Personnel)
	assert.Empty(t, response.ExpenseCategories)
}

func TestGetByEIN_NotFound(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	mockService.On("GetByEIN", mock.Anything, "000000000").
		Return(nil, services.ErrOrganizationNotFound)

	// Make request
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations/000000000", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusNotFound, w.Code)

	var response apierrors.ErrorResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, apierrors.ErrNotFound, response.Error.Code)
	assert.Equal(t, "No organization found for this EIN", response.Error.Message)
	assert.NotEmpty(t, response.Error.RequestID)
}

func TestGetByEIN_InvalidEIN(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	mockService.On("GetByEIN", mock.Anything, "12345").
		Return(nil, fmt.Errorf("%w: got %q", services.ErrInvalidEIN, "12345"))

	// Make request
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations/12345", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response apierrors.ErrorResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, apierrors.ErrBadRequest, response.Error.Code)
	assert.Contains(t, response.Error.Message, "9 digits")
}

func TestGetByEIN_ServiceError(t *testing.T) {
	// Setup
	log := logger.New("test")
	mockService := new(MockOrganizationService)
	handler := NewOrganizationHandler(mockService)
	router := setupOrganizationTestRouter(handler, log)

	mockService.On("GetByEIN", mock.Anything, "123456789").
		Return(nil, fmt.Errorf("connection refused"))

	// Make request
	req, err := http.NewRequest(http.MethodGet, "/api/v1/organizations/123456789", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assertions
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response apierrors.ErrorResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, apierrors.ErrInternalServer, response.Error.Code)
}
