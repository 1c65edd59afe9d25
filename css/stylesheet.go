// Package css parses stylesheets into rules and parses the property
// values the style resolver understands (lengths, colors, keywords).
//
// The parser is tolerant in the same way the HTML parser is: anything
// it cannot understand is skipped, never fatal. An unparsable selector
// marks the rule part unsupported so the rule simply never matches; an
// unparsable declaration is dropped by the resolver.
package css

// Stylesheet is an ordered list of rules from one source.
type Stylesheet struct {
	Rules []Rule
}

// Rule pairs a selector group with its declaration block. Order is the
// rule's position in the concatenated author stylesheets and breaks
// specificity ties (later wins).
type Rule struct {
	Selectors    []Selector
	Declarations []Declaration
	Order        int
}

// Declaration is one "name: value" pair, both kept as written (name
// lowercased, value trimmed).
type Declaration struct {
	Name  string
	Value string
}

// Selector is a complex selector: compound parts separated by
// descendant combinators, subject last.
type Selector struct {
	Parts []Compound
}

// Specificity returns the summed specificity of all parts.
func (s Selector) Specificity() Specificity {
	var out Specificity
	for _, p := range s.Parts {
		sp := p.Specificity()
		out.IDs += sp.IDs
		out.Classes += sp.Classes
		out.Tags += sp.Tags
	}
	return out
}

// Compound is a single compound selector: optional tag plus any number
// of id/class/attribute constraints.
type Compound struct {
	Tag     string // lowercase, "" means any
	ID      string
	Classes []string
	Attrs   []AttrSelector
	// Unsupported marks selectors using syntax this engine does not
	// implement (pseudo-elements and most pseudo-classes). Such a
	// selector never matches anything.
	Unsupported bool
}

// Specificity returns the (ids, classes, tags) weight of the compound.
func (c Compound) Specificity() Specificity {
	s := Specificity{
		Classes: len(c.Classes) + len(c.Attrs),
	}
	if c.ID != "" {
		s.IDs = 1
	}
	if c.Tag != "" {
		s.Tags = 1
	}
	return s
}

// AttrSelector matches on attribute presence ([name]) or exact value
// ([name=value]).
type AttrSelector struct {
	Name  string
	Value string
	Exact bool // true for [name=value], false for bare [name]
}

// Specificity is the CSS cascade weight of a selector, compared
// lexicographically as (ids, classes, tags).
type Specificity struct {
	IDs     int
	Classes int
	Tags    int
}

// Less reports whether s has strictly lower cascade weight than o.
func (s Specificity) Less(o Specificity) bool {
	if s.IDs != o.IDs {
		return s.IDs < o.IDs
	}
	if s.Classes != o.Classes {
		return s.Classes < o.Classes
	}
	return s.Tags < o.Tags
}
