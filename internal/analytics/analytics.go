// Package analytics derives year-over-year metrics, a classification, and
// staffing/financial health indicators from a single organization record.
// Everything here is computed at read time; nothing is persisted.
package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/openninety/api/internal/models"
)

// DeltaPair is the year-over-year change for one metric: the absolute change
// and the percentage change rounded to two places.
type DeltaPair struct {
	Absolute decimal.Decimal
	Percent  decimal.Decimal
}

// Deltas holds one pair per tracked metric. All four are nil for
// organizations without prior-year data; they are never mixed.
type Deltas struct {
	Revenue   *DeltaPair
	Expenses  *DeltaPair
	Assets    *DeltaPair
	Employees *DeltaPair
}

// Classification buckets an organization by its current financial posture.
type Classification string

const (
	Profitable    Classification = "Profitable"
	Scaling       Classification = "Scaling"
	Restructuring Classification = "Restructuring"
)

// Badge summarizes staffing trajectory from employee growth percent.
type Badge string

const (
	BadgeRapidGrowth  Badge = "Rapid Growth"
	BadgeSteadyGrowth Badge = "Steady Growth"
	BadgeModestGrowth Badge = "Modest Growth"
	BadgeStable       Badge = "Stable"
	BadgeDownsizing   Badge = "Downsizing"
)

// FinancialHealth is the read-time health summary for one organization.
// AssetGrowthRate is nil when there is no prior-year data.
type FinancialHealth struct {
	NetIncome       decimal.Decimal
	ProfitMargin    decimal.Decimal
	AssetGrowthRate *decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeDeltas builds the four delta pairs for an organization. When any
// prior-year field is missing the whole set is nil, so callers never see a
// mix of computed and absent metrics.
func ComputeDeltas(org models.Organization) Deltas {
	if !org.HasPriorYearData() {
		return Deltas{}
	}
	revenue := pair(org.CurrentRevenue, *org.PreviousRevenue)
	expenses := pair(org.CurrentExpenses, *org.PreviousExpenses)
	assets := pair(org.CurrentAssets, *org.PreviousAssets)
	employees := pair(
		decimal.NewFromInt(int64(org.CurrentEmployees)),
		decimal.NewFromInt(int64(*org.PreviousEmployees)),
	)
	return Deltas{
		Revenue:   &revenue,
		Expenses:  &expenses,
		Assets:    &assets,
		Employees: &employees,
	}
}

func pair(current, previous decimal.Decimal) DeltaPair {
	return DeltaPair{
		Absolute: current.Sub(previous),
		Percent:  GrowthPercent(current, previous),
	}
}

// GrowthPercent computes percentage change with a finite rule for a zero
// base: growth from zero to anything positive is 100%, zero to zero is 0%.
func GrowthPercent(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

// Classify buckets an organization. Scaling means expenses are growing
// faster than revenue; it takes precedence over Profitable. Organizations
// without growth data classify on the revenue-versus-expenses test alone.
func Classify(org models.Organization, deltas Deltas) Classification {
	scaling := deltas.Revenue != nil && deltas.Expenses != nil &&
		deltas.Expenses.Percent.GreaterThan(deltas.Revenue.Percent)
	switch {
	case org.CurrentRevenue.GreaterThan(org.CurrentExpenses) && !scaling:
		return Profitable
	case scaling:
		return Scaling
	default:
		return Restructuring
	}
}

// StaffingBadge maps employee growth percent onto the badge ladder. Callers
// with no growth data render "N/A" themselves and never reach the ladder.
func StaffingBadge(growthPercent decimal.Decimal) Badge {
	switch {
	case growthPercent.GreaterThanOrEqual(decimal.NewFromInt(20)):
		return BadgeRapidGrowth
	case growthPercent.GreaterThanOrEqual(decimal.NewFromInt(10)):
		return BadgeSteadyGrowth
	case growthPercent.IsPositive():
		return BadgeModestGrowth
	case growthPercent.IsZero():
		return BadgeStable
	default:
		return BadgeDownsizing
	}
}

// ComputeHealth derives net income, profit margin, and asset growth for one
// organization. Margin is 0 when revenue is 0 rather than undefined.
func ComputeHealth(org models.Organization, deltas Deltas) FinancialHealth {
	health := FinancialHealth{
		NetIncome: org.CurrentRevenue.Sub(org.CurrentExpenses),
	}
	if !org.CurrentRevenue.IsZero() {
		health.ProfitMargin = health.NetIncome.Div(org.CurrentRevenue).Mul(hundred).Round(2)
	}
	if deltas.Assets != nil {
		rate := deltas.Assets.Percent
		health.AssetGrowthRate = &rate
	}
	return health
}
