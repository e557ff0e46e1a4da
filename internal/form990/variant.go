package form990

import (
	"github.com/openninety/api/internal/models"
	"github.com/openninety/api/internal/xmltree"
)

// Variant tags which of the four IRS form schemas a return payload carries.
// The tag value doubles as the payload's top-level element name.
type Variant string

const (
	Variant990   Variant = "IRS990"
	Variant990EZ Variant = "IRS990EZ"
	Variant990PF Variant = "IRS990PF"
	Variant990T  Variant = "IRS990T"
)

// variantOrder is the probe priority when a document superficially matches
// more than one variant: full 990 first, then EZ, PF, T.
var variantOrder = []Variant{Variant990, Variant990EZ, Variant990PF, Variant990T}

// FormType converts the resolved variant into its canonical form type.
func (v Variant) FormType() models.FormType {
	switch v {
	case Variant990EZ:
		return models.Form990EZ
	case Variant990PF:
		return models.Form990PF
	case Variant990T:
		return models.Form990T
	default:
		return models.Form990
	}
}

// returnPayload locates the section of the document that holds the form
// body. Modern filings nest it under Return.ReturnData; older or stripped
// documents may place the form directly under Return, or at the root.
func returnPayload(tree map[string]interface{}) map[string]interface{} {
	if rd, ok := asMap(xmltree.Nested(tree, "Return.ReturnData", nil)); ok {
		return rd
	}
	if rd, ok := asMap(xmltree.Nested(tree, "ReturnData", nil)); ok {
		return rd
	}
	if r, ok := asMap(xmltree.Nested(tree, "Return", nil)); ok {
		return r
	}
	return tree
}

// resolveVariant probes the payload for the four mutually-exclusive form
// elements in priority order and returns the matching tag together with the
// form node itself. The tag is resolved exactly once per document; all
// subsequent field lookups are driven by the per-variant tables in fields.go.
func resolveVariant(payload map[string]interface{}) (Variant, map[string]interface{}, bool) {
	for _, v := range variantOrder {
		if node, ok := asMap(xmltree.Nested(payload, string(v), nil)); ok {
			return v, node, true
		}
	}
	return "", nil, false
}

// asMap coerces a decoded node to an element map, unwrapping an
// array-wrapped singleton if necessary.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch n := v.(type) {
	case map[string]interface{}:
		return n, true
	case []interface{}:
		if len(n) > 0 {
			return asMap(n[0])
		}
	}
	return nil, false
}
