package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openninety/api/internal/analytics"
	"github.com/openninety/api/internal/logger"
	"github.com/openninety/api/internal/models"
	"github.com/openninety/api/internal/repository"
)

// Pagination limits
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Service-level errors
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrInvalidEIN           = errors.New("ein must be exactly 9 digits")
	ErrInvalidSortField     = errors.New("invalid sort field")
	ErrInvalidSortDir       = errors.New("sort direction must be asc or desc")
	ErrInvalidPageSize      = errors.New("page size must be between 1 and 100")
)

// sortFieldColumns maps the API's sort keys onto repository sort columns.
var sortFieldColumns = map[string]string{
	"name":      "name",
	"ein":       "ein",
	"taxYear":   "tax_year",
	"revenue":   "current_revenue",
	"updatedAt": "updated_at",
}

// ListQuery carries the caller's listing parameters before validation.
type ListQuery struct {
	Search   string
	SortBy   string
	SortDir  string
	Page     int
	PageSize int
}

// OrganizationSummary is one listing row: the record plus its delta pairs.
type OrganizationSummary struct {
	Organization models.Organization
	Deltas       analytics.Deltas
}

// ListResult is one page of summaries with pagination totals.
type ListResult struct {
	Organizations []OrganizationSummary
	Page          int
	PageSize      int
	TotalItems    int
	TotalPages    int
}

// OrganizationDetail is the full single-organization aggregate. StaffingBadge
// is nil when there is no prior-year employee data.
type OrganizationDetail struct {
	Organization   models.Organization
	Personnel      []models.Personnel
	Expenses       []models.ExpenseCategory
	Deltas         analytics.Deltas
	Classification analytics.Classification
	StaffingBadge  *analytics.Badge
	Health         analytics.FinancialHealth
}

// OrganizationService defines the interface for organization read operations.
type OrganizationService interface {
	// List returns one page of organizations annotated with delta pairs.
	// Returns ErrInvalidSortField, ErrInvalidSortDir, or ErrInvalidPageSize
	// for bad query parameters.
	List(ctx context.Context, query ListQuery) (*ListResult, error)

	// GetByEIN returns the detail aggregate for one organization.
	// Returns ErrInvalidEIN for malformed identifiers and
	// ErrOrganizationNotFound when no such organization exists.
	GetByEIN(ctx context.Context, ein string) (*OrganizationDetail, error)
}

// organizationService is the concrete implementation of OrganizationService.
type organizationService struct {
	repo repository.OrganizationRepository
	log  *logger.Logger
}

// NewOrganizationService creates a new instance of OrganizationService.
func NewOrganizationService(repo repository.OrganizationRepository, log *logger.Logger) OrganizationService {
	return &organizationService{
		repo: repo,
		log:  log,
	}
}

// List validates the query, applies defaults, and returns one page of
// organizations with computed deltas.
func (s *organizationService) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	// Apply defaults before validation
	if query.SortBy == "" {
		query.SortBy = "name"
	}
	if query.SortDir == "" {
		query.SortDir = "asc"
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize == 0 {
		query.PageSize = DefaultPageSize
	}

	column, ok := sortFieldColumns[query.SortBy]
	if !ok {
		s.log.Warn("Invalid sort field requested", map[string]interface{}{
			"sort_by": query.SortBy,
		})
		return nil, fmt.Errorf("%w: %q", ErrInvalidSortField, query.SortBy)
	}
	dir := strings.ToLower(query.SortDir)
	if dir != "asc" && dir != "desc" {
		s.log.Warn("Invalid sort direction requested", map[string]interface{}{
			"sort_dir": query.SortDir,
		})
		return nil, fmt.Errorf("%w: %q", ErrInvalidSortDir, query.SortDir)
	}
	if query.PageSize < 1 || query.PageSize > MaxPageSize {
		s.log.Warn("Invalid page size requested", map[string]interface{}{
			"page_size": query.PageSize,
		})
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPageSize, query.PageSize)
	}

	organizations, total, err := s.repo.List(ctx, repository.ListParams{
		Search:  strings.TrimSpace(query.Search),
		SortBy:  column,
		SortDir: dir,
		Limit:   query.PageSize,
		Offset:  (query.Page - 1) * query.PageSize,
	})
	if err != nil {
		s.log.Error("Failed to list organizations", err, map[string]interface{}{
			"search": query.Search,
		})
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	summaries := make([]OrganizationSummary, 0, len(organizations))
	for _, org := range organizations {
		summaries = append(summaries, OrganizationSummary{
			Organization: org,
			Deltas:       analytics.ComputeDeltas(org),
		})
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + query.PageSize - 1) / query.PageSize
	}

	return &ListResult{
		Organizations: summaries,
		Page:          query.Page,
		PageSize:      query.PageSize,
		TotalItems:    total,
		TotalPages:    totalPages,
	}, nil
}

// GetByEIN loads the organization, its collections, and the derived
// analytics block.
func (s *organizationService) GetByEIN(ctx context.Context, ein string) (*OrganizationDetail, error) {
	normalized := normalizeEIN(ein)
	if len(normalized) != 9 {
		s.log.Warn("Invalid EIN requested", map[string]interface{}{
			"ein": ein,
		})
		return nil, fmt.Errorf("%w: got %q", ErrInvalidEIN, ein)
	}

	org, err := s.repo.GetByEIN(ctx, normalized)
	if err != nil {
		s.log.Error("Failed to query organization", err, map[string]interface{}{
			"ein": normalized,
		})
		return nil, fmt.Errorf("failed to query organization: %w", err)
	}

	// Repository returns nil, nil when no organization found - transform to
	// domain error
	if org == nil {
		s.log.Debug("No organization found", map[string]interface{}{
			"ein": normalized,
		})
		return nil, ErrOrganizationNotFound
	}

	personnel, err := s.repo.ListPersonnel(ctx, org.ID)
	if err != nil {
		s.log.Error("Failed to load personnel", err, map[string]interface{}{
			"ein": normalized,
		})
		return nil, fmt.Errorf("failed to load personnel: %w", err)
	}
	expenses, err := s.repo.ListExpenses(ctx, org.ID)
	if err != nil {
		s.log.Error("Failed to load expense categories", err, map[string]interface{}{
			"ein": normalized,
		})
		return nil, fmt.Errorf("failed to load expense categories: %w", err)
	}

	deltas := analytics.ComputeDeltas(*org)
	detail := &OrganizationDetail{
		Organization:   *org,
		Personnel:      personnel,
		Expenses:       expenses,
		Deltas:         deltas,
		Classification: analytics.Classify(*org, deltas),
		Health:         analytics.ComputeHealth(*org, deltas),
	}
	if deltas.Employees != nil {
		badge := analytics.StaffingBadge(deltas.Employees.Percent)
		detail.StaffingBadge = &badge
	}

	s.log.Info("Organization detail loaded", map[string]interface{}{
		"ein":            normalized,
		"personnel":      len(personnel),
		"expenses":       len(expenses),
		"classification": string(detail.Classification),
	})

	return detail, nil
}

// normalizeEIN strips separators so "12-3456789" and "123456789" address the
// same organization.
func normalizeEIN(ein string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(ein) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
