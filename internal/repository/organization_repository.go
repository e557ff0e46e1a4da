package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/openninety/api/internal/database"
	"github.com/openninety/api/internal/models"
)

// ListParams carries validated search, sort, and pagination settings for
// organization listings. SortBy must be one of the sortColumns keys; anything
// else falls back to name ordering.
type ListParams struct {
	Search  string
	SortBy  string
	SortDir string
	Limit   int
	Offset  int
}

// sortColumns maps exposed sort keys to ORDER BY columns. Lookup misses fall
// back to name, so caller-supplied text never reaches the SQL.
var sortColumns = map[string]string{
	"name":            "name",
	"ein":             "ein",
	"tax_year":        "tax_year",
	"current_revenue": "current_revenue",
	"updated_at":      "updated_at",
}

// OrganizationRepository defines the interface for organization data access
// operations.
type OrganizationRepository interface {
	// Upsert saves one filing as a unit: the organization row keyed by EIN,
	// plus personnel and expense collections that fully replace whatever a
	// previous filing stored. Returns the organization's internal id.
	Upsert(ctx context.Context, org *models.Organization, personnel []models.Personnel, expenses []models.ExpenseCategory) (int64, error)

	// List returns one page of organizations and the total match count.
	// Returns an empty slice if nothing matches (not an error).
	List(ctx context.Context, params ListParams) ([]models.Organization, int, error)

	// GetByEIN finds the organization with the given EIN.
	// Returns nil, nil if no organization is found (not an error).
	// Returns error only for actual database failures.
	GetByEIN(ctx context.Context, ein string) (*models.Organization, error)

	// ListPersonnel returns an organization's personnel ordered by
	// descending compensation.
	ListPersonnel(ctx context.Context, organizationID int64) ([]models.Personnel, error)

	// ListExpenses returns an organization's expense categories ordered by
	// descending amount.
	ListExpenses(ctx context.Context, organizationID int64) ([]models.ExpenseCategory, error)
}

// organizationRepository is the concrete implementation of
// OrganizationRepository.
type organizationRepository struct {
	db *database.Database
}

// NewOrganizationRepository creates a new instance of OrganizationRepository.
func NewOrganizationRepository(db *database.Database) OrganizationRepository {
	return &organizationRepository{
		db: db,
	}
}

// Upsert writes the organization keyed by EIN and replaces both child
// collections inside a single transaction, so a re-imported filing can never
// duplicate an organization or accumulate stale children.
func (r *organizationRepository) Upsert(ctx context.Context, org *models.Organization, personnel []models.Personnel, expenses []models.ExpenseCategory) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO organizations (
			ein, name, form_type, tax_year, filing_date, website, mission,
			current_revenue, current_expenses, current_assets, current_employees,
			previous_revenue, previous_expenses, previous_assets, previous_employees
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (ein) DO UPDATE SET
			name = EXCLUDED.name,
			form_type = EXCLUDED.form_type,
			tax_year = EXCLUDED.tax_year,
			filing_date = EXCLUDED.filing_date,
			website = EXCLUDED.website,
			mission = EXCLUDED.mission,
			current_revenue = EXCLUDED.current_revenue,
			current_expenses = EXCLUDED.current_expenses,
			current_assets = EXCLUDED.current_assets,
			current_employees = EXCLUDED.current_employees,
			previous_revenue = EXCLUDED.previous_revenue,
			previous_expenses = EXCLUDED.previous_expenses,
			previous_assets = EXCLUDED.previous_assets,
			previous_employees = EXCLUDED.previous_employees,
			updated_at = now()
		RETURNING id
	`

	var id int64
	err = tx.QueryRow(ctx, query,
		org.EIN,
		org.Name,
		string(org.FormType),
		org.TaxYear,
		org.FilingDate,
		org.Website,
		org.Mission,
		org.CurrentRevenue,
		org.CurrentExpenses,
		org.CurrentAssets,
		org.CurrentEmployees,
		org.PreviousRevenue,
		org.PreviousExpenses,
		org.PreviousAssets,
		org.PreviousEmployees,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert organization %s: %w", org.EIN, err)
	}

	// Child collections are replaced wholesale; merging rows across filings
	// would double-count people and expenses.
	if _, err := tx.Exec(ctx, `DELETE FROM personnel WHERE organization_id = $1`, id); err != nil {
		return 0, fmt.Errorf("failed to clear personnel for organization %d: %w", id, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM expense_categories WHERE organization_id = $1`, id); err != nil {
		return 0, fmt.Errorf("failed to clear expenses for organization %d: %w", id, err)
	}

	batch := &pgx.Batch{}
	for _, person := range personnel {
		batch.Queue(
			`INSERT INTO personnel (organization_id, full_name, title, compensation) VALUES ($1, $2, $3, $4)`,
			id, person.FullName, person.Title, person.Compensation,
		)
	}
	for _, expense := range expenses {
		batch.Queue(
			`INSERT INTO expense_categories (organization_id, category, amount, tax_year) VALUES ($1, $2, $3, $4)`,
			id, expense.Category, expense.Amount, expense.TaxYear,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("failed to insert child rows for organization %d: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit upsert for organization %s: %w", org.EIN, err)
	}

	return id, nil
}

// List runs the search/sort/pagination query plus a matching count query.
func (r *organizationRepository) List(ctx context.Context, params ListParams) ([]models.Organization, int, error) {
	column, ok := sortColumns[params.SortBy]
	if !ok {
		column = "name"
	}
	direction := "ASC"
	if strings.EqualFold(params.SortDir, "desc") {
		direction = "DESC"
	}

	where := ""
	args := []interface{}{}
	if params.Search != "" {
		where = "WHERE name ILIKE $1 OR ein ILIKE $1"
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM organizations %s`, where)
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count organizations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT
			id,
			ein,
			name,
			form_type,
			tax_year,
			filing_date,
			website,
			mission,
			current_revenue,
			current_expenses,
			current_assets,
			current_employees,
			previous_revenue,
			previous_expenses,
			previous_assets,
			previous_employees,
			created_at,
			updated_at
		FROM organizations
		%s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d
	`, where, column, direction, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var results []models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan organization row: %w", err)
		}
		results = append(results, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating organization rows: %w", err)
	}

	// Return empty slice if nothing matched (not an error)
	if results == nil {
		results = []models.Organization{}
	}

	return results, total, nil
}

// GetByEIN queries the database for the organization with the given EIN.
func (r *organizationRepository) GetByEIN(ctx context.Context, ein string) (*models.Organization, error) {
	query := `
		SELECT
			id,
			ein,
			name,
			form_type,
			tax_year,
			filing_date,
			website,
			mission,
			current_revenue,
			current_expenses,
			current_assets,
			current_employees,
			previous_revenue,
			previous_expenses,
			previous_assets,
			previous_employees,
			created_at,
			updated_at
		FROM organizations
		WHERE ein = $1
	`

	org, err := scanOrganization(r.db.Pool.QueryRow(ctx, query, ein))
	if err != nil {
		// Handle no rows found - this is not an error at the repository level
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query organization %s: %w", ein, err)
	}

	return org, nil
}

// ListPersonnel returns the personnel rows for an organization.
func (r *organizationRepository) ListPersonnel(ctx context.Context, organizationID int64) ([]models.Personnel, error) {
	query := `
		SELECT id, organization_id, full_name, title, compensation
		FROM personnel
		WHERE organization_id = $1
		ORDER BY compensation DESC, id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query personnel for organization %d: %w", organizationID, err)
	}
	defer rows.Close()

	var results []models.Personnel
	for rows.Next() {
		var person models.Personnel
		if err := rows.Scan(&person.ID, &person.OrganizationID, &person.FullName, &person.Title, &person.Compensation); err != nil {
			return nil, fmt.Errorf("failed to scan personnel row: %w", err)
		}
		results = append(results, person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating personnel rows: %w", err)
	}

	if results == nil {
		results = []models.Personnel{}
	}

	return results, nil
}

// ListExpenses returns the expense category rows for an organization.
func (r *organizationRepository) ListExpenses(ctx context.Context, organizationID int64) ([]models.ExpenseCategory, error) {
	query := `
		SELECT id, organization_id, category, amount, tax_year
		FROM expense_categories
		WHERE organization_id = $1
		ORDER BY amount DESC, id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses for organization %d: %w", organizationID, err)
	}
	defer rows.Close()

	var results []models.ExpenseCategory
	for rows.Next() {
		var expense models.ExpenseCategory
		if err := rows.Scan(&expense.ID, &expense.OrganizationID, &expense.Category, &expense.Amount, &expense.TaxYear); err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		results = append(results, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}

	if results == nil {
		results = []models.ExpenseCategory{}
	}

	return results, nil
}

// scanOrganization reads one organization row in the column order shared by
// List and GetByEIN.
func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(
		&org.ID,
		&org.EIN,
		&org.Name,
		&org.FormType,
		&org.TaxYear,
		&org.FilingDate,
		&org.Website,
		&org.Mission,
		&org.CurrentRevenue,
		&org.CurrentExpenses,
		&org.CurrentAssets,
		&org.CurrentEmployees,
		&org.PreviousRevenue,
		&org.PreviousExpenses,
		&org.PreviousAssets,
		&org.PreviousEmployees,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &org, nil
}
