// Package form990 maps IRS Form 990 e-file XML documents onto the relational
// organization model. Filings arrive in four variants (990, 990-EZ, 990-PF,
// 990-T) and in multiple schema vintages, so every field is resolved through
// an ordered fallback chain rather than a fixed path.
package form990

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
	"github.com/shopspring/decimal"

	"github.com/openninety/api/internal/models"
	"github.com/openninety/api/internal/xmltree"
)

var (
	// ErrNoFormData marks a document whose structure matches none of the
	// known form variants.
	ErrNoFormData = errors.New("no recognizable form data")

	// ErrMissingEIN marks a document that carries form data but no usable
	// filer EIN.
	ErrMissingEIN = errors.New("filing has no usable EIN")
)

// MappedFiling is the relational image of one filing document. Personnel and
// Expenses carry no organization ID yet; the repository assigns it when the
// filing is saved.
type MappedFiling struct {
	Organization models.Organization
	Personnel    []models.Personnel
	Expenses     []models.ExpenseCategory
}

// Parse decodes raw XML into a generic document tree.
func Parse(raw []byte) (map[string]interface{}, error) {
	tree, err := mxj.NewMapXml(raw)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return tree, nil
}

// Map resolves the form variant inside a parsed document and extracts the
// organization record plus its personnel and expense collections. It returns
// ErrNoFormData when no variant element is present and ErrMissingEIN when the
// filer EIN is absent or does not normalize to nine digits; both make the
// document unsaveable.
func Map(tree map[string]interface{}) (*MappedFiling, error) {
	variant, form, ok := resolveVariant(returnPayload(tree))
	if !ok {
		return nil, ErrNoFormData
	}

	// Stored EINs are exactly nine digits; anything else would be
	// unreachable through the EIN lookup.
	ein := digitsOnly(firstText(tree, einPaths))
	if ein == "" {
		return nil, ErrMissingEIN
	}
	if len(ein) != 9 {
		return nil, fmt.Errorf("%w: got %q", ErrMissingEIN, ein)
	}

	paths := financialPaths[variant]

	org := models.Organization{
		EIN:              ein,
		Name:             firstText(tree, filerNamePaths),
		FormType:         variant.FormType(),
		TaxYear:          extractTaxYear(tree),
		CurrentRevenue:   firstNumber(form, paths[qtyCurrentRevenue]),
		CurrentExpenses:  firstNumber(form, paths[qtyCurrentExpenses]),
		CurrentAssets:    firstNumber(form, paths[qtyCurrentAssets]),
		CurrentEmployees: intFrom(firstNumber(form, paths[qtyCurrentEmployees])),
	}

	prevRevenue, okRevenue := firstNumberOK(form, paths[qtyPreviousRevenue])
	prevExpenses, okExpenses := firstNumberOK(form, paths[qtyPreviousExpenses])
	prevAssets, okAssets := firstNumberOK(form, paths[qtyPreviousAssets])
	prevEmployees, okEmployees := firstNumberOK(form, paths[qtyPreviousEmployees])
	if okRevenue || okExpenses || okAssets || okEmployees {
		// A filing that reports any prior-year figure gets the full set;
		// unreported figures default to zero so the set stays uniform and
		// year-over-year math never mixes null with numbers.
		employees := intFrom(prevEmployees)
		org.PreviousRevenue = &prevRevenue
		org.PreviousExpenses = &prevExpenses
		org.PreviousAssets = &prevAssets
		org.PreviousEmployees = &employees
	}

	if date, ok := extractFilingDate(tree); ok {
		org.FilingDate = &date
	}
	if site, ok := optionalText(form, websitePaths); ok {
		org.Website = &site
	}
	if mission, ok := optionalText(form, missionPaths); ok {
		org.Mission = &mission
	}

	return &MappedFiling{
		Organization: org,
		Personnel:    extractPersonnel(variant, form),
		Expenses:     extractExpenses(form, org.TaxYear),
	}, nil
}

func extractTaxYear(tree map[string]interface{}) int {
	year, ok := firstNumberOK(tree, taxYearPaths)
	if !ok {
		return 0
	}
	return intFrom(year)
}

var filingDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func extractFilingDate(tree map[string]interface{}) (time.Time, bool) {
	raw, ok := optionalText(tree, filingDatePaths)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range filingDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// extractPersonnel reads the variant's officer/director section. The first
// collection path that resolves wins; entries without any usable name are
// skipped. Compensation is the sum of the base, other, and related-
// organization columns.
func extractPersonnel(variant Variant, form map[string]interface{}) []models.Personnel {
	table := personnelTables[variant]
	people := make([]models.Personnel, 0)
	for _, collection := range table.collections {
		entries := asSlice(xmltree.Nested(form, collection, nil))
		if len(entries) == 0 {
			continue
		}
		for _, raw := range entries {
			entry, ok := asMap(raw)
			if !ok {
				continue
			}
			name := personName(entry, table)
			if name == "" {
				continue
			}
			title := firstText(entry, table.titleFields)
			if title == "" {
				title = "Unknown"
			}
			compensation := firstNumber(entry, table.baseComp).
				Add(firstNumber(entry, table.otherComp)).
				Add(firstNumber(entry, table.relatedComp))
			people = append(people, models.Personnel{
				FullName:     name,
				Title:        title,
				Compensation: compensation,
			})
		}
		break
	}
	return people
}

func personName(entry map[string]interface{}, table personnelTable) string {
	if name := firstText(entry, table.nameFields); name != "" {
		return name
	}
	first := firstText(entry, table.firstNames)
	last := firstText(entry, table.lastNames)
	return strings.TrimSpace(first + " " + last)
}

// extractExpenses evaluates every category chain against the form node.
// Categories that resolve to zero or to nothing are omitted rather than
// stored as zero rows.
func extractExpenses(form map[string]interface{}, taxYear int) []models.ExpenseCategory {
	out := make([]models.ExpenseCategory, 0, len(expenseChains))
	for _, chain := range expenseChains {
		amount := firstNumber(form, chain.paths)
		if !amount.IsPositive() {
			continue
		}
		out = append(out, models.ExpenseCategory{
			Category: chain.category,
			Amount:   amount,
			TaxYear:  taxYear,
		})
	}
	return out
}

// optionalText walks a fallback chain and reports whether any path yielded a
// non-empty text value.
func optionalText(node map[string]interface{}, paths []string) (string, bool) {
	for _, path := range paths {
		if text, ok := xmltree.Text(xmltree.Nested(node, path, nil)); ok {
			return text, true
		}
	}
	return "", false
}

func firstText(node map[string]interface{}, paths []string) string {
	text, _ := optionalText(node, paths)
	return text
}

// firstNumberOK walks a fallback chain and reports whether any path yielded a
// parseable numeric value. An explicit zero in the document counts as
// present.
func firstNumberOK(node map[string]interface{}, paths []string) (decimal.Decimal, bool) {
	for _, path := range paths {
		if value, ok := xmltree.NumberOK(xmltree.Nested(node, path, nil)); ok {
			return value, true
		}
	}
	return decimal.Zero, false
}

func firstNumber(node map[string]interface{}, paths []string) decimal.Decimal {
	value, _ := firstNumberOK(node, paths)
	return value
}

func intFrom(value decimal.Decimal) int {
	return int(value.IntPart())
}

// asSlice normalizes a repeated element: the XML decoder yields a lone map
// for a single occurrence and []interface{} for several.
func asSlice(value interface{}) []interface{} {
	switch node := value.(type) {
	case nil:
		return nil
	case []interface{}:
		return node
	default:
		return []interface{}{node}
	}
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
