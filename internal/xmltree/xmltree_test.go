package xmltree

import (
	"testing"

	"github.com/shopspring/decimal"
)

func sampleTree() map[string]interface{} {
	return map[string]interface{}{
		"Return": map[string]interface{}{
			"ReturnHeader": map[string]interface{}{
				"Filer": map[string]interface{}{
					"EIN": "135562308",
				},
				"TaxYr": "2022",
			},
			"ReturnData": map[string]interface{}{
				"IRS990": map[string]interface{}{
					"CYTotalRevenueAmt": "1500000",
					"WebsiteAddressTxt": map[string]interface{}{
						"#text":        "www.example.org",
						"-referenceId": "a1",
					},
					"Form990PartVIISectionAGrp": []interface{}{
						map[string]interface{}{"PersonNm": "JANE DOE"},
						map[string]interface{}{"PersonNm": "JOHN ROE"},
					},
				},
			},
		},
	}
}

// TestNested_WalksDotPaths verifies basic traversal and fallback behavior.
func TestNested_WalksDotPaths(t *testing.T) {
	tree := sampleTree()

	tests := []struct {
		name     string
		path     string
		fallback interface{}
		want     interface{}
	}{
		{
			name: "deep scalar",
			path: "Return.ReturnHeader.Filer.EIN",
			want: "135562308",
		},
		{
			name: "scalar at intermediate depth",
			path: "Return.ReturnHeader.TaxYr",
			want: "2022",
		},
		{
			name:     "missing leaf returns fallback",
			path:     "Return.ReturnHeader.Filer.MissingField",
			fallback: "default",
			want:     "default",
		},
		{
			name:     "missing intermediate returns fallback",
			path:     "Return.NoSuchSection.Filer.EIN",
			fallback: nil,
			want:     nil,
		},
		{
			name:     "descending through a scalar returns fallback",
			path:     "Return.ReturnHeader.TaxYr.Deeper",
			fallback: "x",
			want:     "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Nested(tree, tt.path, tt.fallback)
			if got != tt.want {
				t.Errorf("Nested(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// TestNested_UnwrapsArrayWrappedSingletons verifies that sequences are
// replaced by their first element before each descent, matching how IRS
// filings sometimes wrap singleton elements in arrays.
func TestNested_UnwrapsArrayWrappedSingletons(t *testing.T) {
	tree := map[string]interface{}{
		"Return": []interface{}{
			map[string]interface{}{
				"ReturnData": map[string]interface{}{
					"IRS990EZ": []interface{}{
						map[string]interface{}{
							"TotalRevenueAmt": "75000",
						},
					},
				},
			},
		},
	}

	got := Nested(tree, "Return.ReturnData.IRS990EZ.TotalRevenueAmt", nil)
	if got != "75000" {
		t.Errorf("expected array-wrapped nodes to unwrap, got %v", got)
	}
}

// TestNested_FinalSequenceIsReturnedIntact verifies that a trailing
// collection is not collapsed to its first element.
func TestNested_FinalSequenceIsReturnedIntact(t *testing.T) {
	tree := sampleTree()

	got := Nested(tree, "Return.ReturnData.IRS990.Form990PartVIISectionAGrp", nil)
	seq, ok := got.([]interface{})
	if !ok {
		t.Fatalf("expected a sequence, got %T", got)
	}
	if len(seq) != 2 {
		t.Errorf("expected 2 personnel entries, got %d", len(seq))
	}
}

func TestNested_NilSafety(t *testing.T) {
	if got := Nested(nil, "A.B", "fb"); got != "fb" {
		t.Errorf("nil tree should return fallback, got %v", got)
	}
	if got := Nested(map[string]interface{}{}, "", "fb"); got != "fb" {
		t.Errorf("empty path should return fallback, got %v", got)
	}
	tree := map[string]interface{}{"A": nil}
	if got := Nested(tree, "A", "fb"); got != "fb" {
		t.Errorf("nil value should return fallback, got %v", got)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name   string
		node   interface{}
		want   string
		wantOK bool
	}{
		{name: "nil input", node: nil, wantOK: false},
		{name: "plain string", node: "hello", want: "hello", wantOK: true},
		{name: "empty string", node: "", wantOK: false},
		{
			name:   "element with attributes yields text member",
			node:   map[string]interface{}{"#text": "www.example.org", "-referenceId": "a1"},
			want:   "www.example.org",
			wantOK: true,
		},
		{
			name:   "element map without text member",
			node:   map[string]interface{}{"Child": "x"},
			wantOK: false,
		},
		{
			name:   "array-wrapped string",
			node:   []interface{}{"first", "second"},
			want:   "first",
			wantOK: true,
		},
		{name: "empty array", node: []interface{}{}, wantOK: false},
		{name: "numeric scalar is stringified", node: float64(42), want: "42", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Text(tt.node)
			if ok != tt.wantOK {
				t.Fatalf("Text() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		node interface{}
		want string
	}{
		{name: "plain integer", node: "1500000", want: "1500000"},
		{name: "currency formatting stripped", node: "$1,234.56", want: "1234.56"},
		{name: "negative amount", node: "-500", want: "-500"},
		{name: "embedded whitespace", node: " 42 000 ", want: "42000"},
		{name: "absent input defaults to zero", node: nil, want: "0"},
		{name: "unparseable text defaults to zero", node: "not a number", want: "0"},
		{name: "explicit zero", node: "0", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Number(tt.node)
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Number(%v) = %s, want %s", tt.node, got, want)
			}
		})
	}
}

// TestNumberOK verifies the presence report the mapper's prior-year gate
// depends on: an explicit zero is present, a missing field is not.
func TestNumberOK(t *testing.T) {
	if _, ok := NumberOK("0"); !ok {
		t.Error("explicit zero should report present")
	}
	if _, ok := NumberOK(nil); ok {
		t.Error("nil should report absent")
	}
	if _, ok := NumberOK("n/a"); ok {
		t.Error("unparseable text should report absent")
	}
	if n, ok := NumberOK("98,765"); !ok || !n.Equal(decimal.NewFromInt(98765)) {
		t.Errorf("expected 98765/present, got %s/%v", n, ok)
	}
}
