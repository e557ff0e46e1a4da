package xmltree

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// textKey is the member under which mxj stores an element's character data
// when the element also carries attributes or children.
const textKey = "#text"

// Nested walks a dot-separated path into a decoded XML tree and returns the
// node it lands on, or fallback if any step is missing, nil, or not
// traversable. IRS filings occasionally wrap singleton elements in arrays, so
// before descending through each path segment a sequence is transparently
// replaced by its first element. The final node is returned as-is (it may
// itself be a sequence, e.g. a personnel collection). Never panics.
func Nested(tree map[string]interface{}, path string, fallback interface{}) interface{} {
	if tree == nil || path == "" {
		return fallback
	}

	var current interface{} = tree
	for _, segment := range strings.Split(path, ".") {
		// Unwrap array-wrapped singletons before descending
		if seq, ok := current.([]interface{}); ok {
			if len(seq) == 0 {
				return fallback
			}
			current = seq[0]
		}

		node, ok := current.(map[string]interface{})
		if !ok {
			return fallback
		}

		next, ok := node[segment]
		if !ok || next == nil {
			return fallback
		}
		current = next
	}

	return current
}

// Text resolves the text content of a decoded XML node.
// It returns false for nil or empty input. Plain strings pass through
// unchanged; element maps yield their character-data member when present.
// Any other scalar the decoder may produce is stringified.
func Text(node interface{}) (string, bool) {
	switch v := node.(type) {
	case nil:
		return "", false
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case map[string]interface{}:
		inner, ok := v[textKey]
		if !ok {
			return "", false
		}
		return Text(inner)
	case []interface{}:
		if len(v) == 0 {
			return "", false
		}
		return Text(v[0])
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// Number coerces a decoded XML node to a decimal amount. Every character that
// is not a digit, '.', or '-' is stripped before parsing, so currency
// formatting like "$1,234.56" resolves cleanly. Absent or unparseable input
// yields zero, not an error: at this layer a missing financial field and an
// explicit zero are indistinguishable, and the mapper tracks presence
// separately where it matters.
func Number(node interface{}) decimal.Decimal {
	n, _ := NumberOK(node)
	return n
}

// NumberOK is Number plus a report of whether a parseable value was actually
// present. The mapper's prior-year gate depends on the distinction.
func NumberOK(node interface{}) (decimal.Decimal, bool) {
	text, ok := Text(node)
	if !ok {
		return decimal.Zero, false
	}

	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	n, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return n, true
}
