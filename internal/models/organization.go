package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FormType identifies which IRS Form 990 variant a filing was submitted on.
// Each variant reports equivalent quantities under different element names.
type FormType string

const (
	Form990   FormType = "990"
	Form990EZ FormType = "990EZ"
	Form990PF FormType = "990PF"
	Form990T  FormType = "990T"
)

// ParseFormType validates a raw form type string.
func ParseFormType(s string) (FormType, error) {
	switch FormType(s) {
	case Form990, Form990EZ, Form990PF, Form990T:
		return FormType(s), nil
	}
	return "", fmt.Errorf("unknown form type %q", s)
}

// Organization is the canonical, variant-independent representation of one
// Form 990 filing, keyed by EIN. Re-ingesting the same EIN replaces the row's
// scalar fields and fully replaces its child collections.
// All nullable fields use pointers to distinguish between zero values and NULL;
// previous-year fields are NULL when the source filing carried no prior-year
// figures at all, which is how the analytics layer recognizes the
// no-prior-year-data state.
type Organization struct {
	CreatedAt         time.Time        `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt         time.Time        `gorm:"column:updated_at" json:"updatedAt"`
	FilingDate        *time.Time       `gorm:"column:filing_date" json:"filingDate,omitempty"`
	Website           *string          `gorm:"size:500;column:website" json:"website,omitempty"`
	Mission           *string          `gorm:"type:text;column:mission" json:"mission,omitempty"`
	PreviousRevenue   *decimal.Decimal `gorm:"type:numeric(15,2);column:previous_revenue" json:"previousRevenue,omitempty"`
	PreviousExpenses  *decimal.Decimal `gorm:"type:numeric(15,2);column:previous_expenses" json:"previousExpenses,omitempty"`
	PreviousAssets    *decimal.Decimal `gorm:"type:numeric(15,2);column:previous_assets" json:"previousAssets,omitempty"`
	PreviousEmployees *int             `gorm:"column:previous_employees" json:"previousEmployees,omitempty"`
	EIN               string           `gorm:"size:9;uniqueIndex;not null;column:ein" json:"ein"`
	Name              string           `gorm:"size:500;index;not null;column:name" json:"name"`
	FormType          FormType         `gorm:"size:8;not null;column:form_type" json:"formType"`
	CurrentRevenue    decimal.Decimal  `gorm:"type:numeric(15,2);not null;default:0;column:current_revenue" json:"currentRevenue"`
	CurrentExpenses   decimal.Decimal  `gorm:"type:numeric(15,2);not null;default:0;column:current_expenses" json:"currentExpenses"`
	CurrentAssets     decimal.Decimal  `gorm:"type:numeric(15,2);not null;default:0;column:current_assets" json:"currentAssets"`
	CurrentEmployees  int              `gorm:"not null;default:0;column:current_employees" json:"currentEmployees"`
	TaxYear           int              `gorm:"not null;column:tax_year" json:"taxYear"`
	ID                int64            `gorm:"primaryKey" json:"id"`
}

// TableName specifies the table name created by the schema bootstrap.
func (Organization) TableName() string {
	return "organizations"
}

// HasPriorYearData reports whether the filing carried prior-year figures.
// A single NULL previous-year field marks the whole record as lacking prior
// data; the mapper stores the four fields all-set or all-NULL.
func (o *Organization) HasPriorYearData() bool {
	return o.PreviousRevenue != nil &&
		o.PreviousExpenses != nil &&
		o.PreviousAssets != nil &&
		o.PreviousEmployees != nil
}

// Personnel is one officer/director/key-employee row owned by an Organization.
// The set is fully replaced (delete + recreate) on every re-ingestion of the
// parent, never merged.
type Personnel struct {
	FullName       string          `gorm:"size:500;not null;column:full_name" json:"fullName"`
	Title          string          `gorm:"size:255;not null;default:'Unknown';column:title" json:"title"`
	Compensation   decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0;column:compensation" json:"compensation"`
	OrganizationID int64           `gorm:"index;not null;column:organization_id" json:"-"`
	ID             int64           `gorm:"primaryKey" json:"id"`
}

// TableName specifies the table name created by the schema bootstrap.
func (Personnel) TableName() string {
	return "personnel"
}

// ExpenseCategory is one named expense line owned by an Organization.
// Rows exist only for amounts strictly greater than zero; zero or absent
// amounts are omitted during mapping rather than stored.
type ExpenseCategory struct {
	Category       string          `gorm:"size:64;not null;column:category" json:"category"`
	Amount         decimal.Decimal `gorm:"type:numeric(15,2);not null;column:amount" json:"amount"`
	TaxYear        int             `gorm:"not null;column:tax_year" json:"taxYear"`
	OrganizationID int64           `gorm:"index;not null;column:organization_id" json:"-"`
	ID             int64           `gorm:"primaryKey" json:"id"`
}

// TableName specifies the table name created by the schema bootstrap.
func (ExpenseCategory) TableName() string {
	return "expense_categories"
}

// Expense category vocabulary. The mapper emits only these names; each has its
// own ordered fallback chain across the four form variants.
const (
	CategoryGrants              = "Grants"
	CategoryOfficerCompensation = "Officer Compensation"
	CategoryOtherSalaries       = "Other Salaries"
	CategoryPensionBenefits     = "Pension & Benefits"
	CategoryLegalFees           = "Legal Fees"
	CategoryAccountingFees      = "Accounting Fees"
	CategoryProfFundraising     = "Professional Fundraising"
	CategoryOtherProfFees       = "Other Professional Fees"
	CategoryOccupancy           = "Occupancy"
	CategoryTravel              = "Travel"
	CategoryOfficeExpenses      = "Office Expenses"
	CategoryDepreciation        = "Depreciation"
)
