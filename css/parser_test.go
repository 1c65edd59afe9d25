package css

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_RulesAndOrder(t *testing.T) {
	sheet := Parse(`
		/* heading */
		h1 { color: red; }
		p, .note { margin: 4px; padding: 2px }
	`)
	if len(sheet.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(sheet.Rules))
	}
	if sheet.Rules[0].Order != 0 || sheet.Rules[1].Order != 1 {
		t.Errorf("orders = %d, %d", sheet.Rules[0].Order, sheet.Rules[1].Order)
	}
	if len(sheet.Rules[1].Selectors) != 2 {
		t.Errorf("selector group size = %d, want 2", len(sheet.Rules[1].Selectors))
	}
	if len(sheet.Rules[1].Declarations) != 2 {
		t.Errorf("declarations = %d, want 2", len(sheet.Rules[1].Declarations))
	}
}

func TestParse_SelectorShapes(t *testing.T) {
	tests := []struct {
		sel  string
		want Compound
	}{
		{"div", Compound{Tag: "div"}},
		{"*", Compound{}},
		{"#main", Compound{ID: "main"}},
		{".a.b", Compound{Classes: []string{"a", "b"}}},
		{"p.note", Compound{Tag: "p", Classes: []string{"note"}}},
		{"a[href]", Compound{Tag: "a", Attrs: []AttrSelector{{Name: "href"}}}},
		{`input[type="text"]`, Compound{Tag: "input", Attrs: []AttrSelector{{Name: "type", Value: "text", Exact: true}}}},
		{"p:hover", Compound{Tag: "p", Unsupported: true}},
		{"p::before", Compound{Tag: "p", Unsupported: true}},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			sheet := Parse(tt.sel + " { color: red; }")
			if len(sheet.Rules) != 1 {
				t.Fatalf("got %d rules", len(sheet.Rules))
			}
			got := sheet.Rules[0].Selectors[0].Parts[0]
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("compound mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_DescendantSelector(t *testing.T) {
	sheet := Parse("div p { color: red; } ul > li { color: blue; }")
	if got := len(sheet.Rules[0].Selectors[0].Parts); got != 2 {
		t.Errorf("descendant parts = %d, want 2", got)
	}
	// Child combinator loosens to descendant.
	if got := len(sheet.Rules[1].Selectors[0].Parts); got != 2 {
		t.Errorf("child parts = %d, want 2", got)
	}
}

func TestSpecificity(t *testing.T) {
	spec := func(sel string) Specificity {
		return Parse(sel + " { color: red; }").Rules[0].Selectors[0].Specificity()
	}
	tests := []struct {
		sel  string
		want Specificity
	}{
		{"p", Specificity{Tags: 1}},
		{".note", Specificity{Classes: 1}},
		{"#x", Specificity{IDs: 1}},
		{"div p.note", Specificity{Tags: 2, Classes: 1}},
		{"a[href]", Specificity{Tags: 1, Classes: 1}},
	}
	for _, tt := range tests {
		if got := spec(tt.sel); got != tt.want {
			t.Errorf("specificity(%q) = %+v, want %+v", tt.sel, got, tt.want)
		}
	}

	if !(Specificity{Classes: 10}).Less(Specificity{IDs: 1}) {
		t.Error("one id must outweigh any number of classes")
	}
	if !(Specificity{Tags: 5}).Less(Specificity{Classes: 1}) {
		t.Error("one class must outweigh any number of tags")
	}
}

func TestParse_AtRules(t *testing.T) {
	sheet := Parse(`
		@import url("other.css");
		@media screen { p { color: red; } }
		@media print { p { color: black; } }
		@keyframes spin { from {} to {} }
		div { color: blue; }
	`)
	// screen media inlined, print skipped, unknown at-rules skipped.
	if len(sheet.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(sheet.Rules))
	}
	if sheet.Rules[0].Selectors[0].Parts[0].Tag != "p" {
		t.Errorf("first rule = %+v", sheet.Rules[0])
	}
	if sheet.Rules[1].Selectors[0].Parts[0].Tag != "div" {
		t.Errorf("second rule = %+v", sheet.Rules[1])
	}
}

func TestParseDeclarations(t *testing.T) {
	got := ParseDeclarations(`color: red; background: url(a;b.png); margin: 4px !important; bogus`)
	want := []Declaration{
		{Name: "color", Value: "red"},
		{Name: "background", Value: "url(a;b.png)"},
		{Name: "margin", Value: "4px"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_MalformedInputSurvives(t *testing.T) {
	for _, src := range []string{
		"",
		"p { color: red",
		"{ color: red; }",
		"p } q {",
		"/* unterminated",
		"@media screen { p { color: red; }",
	} {
		if sheet := Parse(src); sheet == nil {
			t.Errorf("Parse(%q) returned nil", src)
		}
	}
}
