package css

import (
	"strings"

	"github.com/duskweb/dusk"
)

// Parse builds a Stylesheet from CSS source. It always succeeds;
// unrecognized constructs are skipped.
func Parse(source string) *Stylesheet {
	p := &parser{input: source}
	return &Stylesheet{Rules: p.parseRules(false)}
}

// ParseDeclarations parses the contents of a declaration block, as
// found in a style="" attribute.
func ParseDeclarations(source string) []Declaration {
	return parseDeclarationList(source)
}

type parser struct {
	input  string
	cursor int
	order  int
}

func (p *parser) parseRules(skipPrint bool) []Rule {
	var rules []Rule
	for p.skipSpaceAndComments() {
		if p.peek() == '@' {
			p.parseAtRule(&rules)
			continue
		}

		selText, ok := p.consumeUntil('{')
		if !ok {
			break
		}
		p.cursor++ // consume '{'
		block := p.consumeBlock()

		selectors := parseSelectorGroup(selText)
		decls := parseDeclarationList(block)
		if len(selectors) == 0 || len(decls) == 0 {
			continue
		}
		rules = append(rules, Rule{
			Selectors:    selectors,
			Declarations: decls,
			Order:        p.order,
		})
		p.order++
	}
	return rules
}

// parseAtRule handles the at-rules this engine knows about. @media
// blocks are inlined unless the query names print media; every other
// at-rule is skipped whole. Media queries themselves are not
// evaluated.
func (p *parser) parseAtRule(out *[]Rule) {
	p.cursor++ // consume '@'
	name := p.consumeIdent()
	if !strings.EqualFold(name, "media") {
		p.skipAtRule()
		return
	}

	query, ok := p.consumeUntil('{')
	if !ok {
		p.cursor = len(p.input)
		return
	}
	p.cursor++
	body := p.consumeBlock()

	if strings.Contains(strings.ToLower(query), "print") {
		dusk.Logger().Debug("skipping print media block", "query", strings.TrimSpace(query))
		return
	}
	nested := &parser{input: body, order: p.order}
	*out = append(*out, nested.parseRules(false)...)
	p.order = nested.order
}

func (p *parser) skipAtRule() {
	for p.cursor < len(p.input) {
		switch p.input[p.cursor] {
		case ';':
			p.cursor++
			return
		case '{':
			p.cursor++
			p.consumeBlock()
			return
		case '/':
			if !p.skipComment() {
				p.cursor++
			}
		default:
			p.cursor++
		}
	}
}

// consumeBlock consumes up to and including the matching '}' and
// returns the contents. Assumes the opening brace was consumed.
func (p *parser) consumeBlock() string {
	start := p.cursor
	depth := 1
	for p.cursor < len(p.input) {
		switch c := p.input[p.cursor]; c {
		case '/':
			if !p.skipComment() {
				p.cursor++
			}
		case '{':
			depth++
			p.cursor++
		case '}':
			depth--
			p.cursor++
			if depth == 0 {
				return p.input[start : p.cursor-1]
			}
		case '"', '\'':
			p.cursor++
			p.skipString(c)
		default:
			p.cursor++
		}
	}
	return p.input[start:]
}

func (p *parser) skipString(quote byte) {
	for p.cursor < len(p.input) {
		c := p.input[p.cursor]
		p.cursor++
		if c == '\\' && p.cursor < len(p.input) {
			p.cursor++
			continue
		}
		if c == quote {
			return
		}
	}
}

func (p *parser) skipComment() bool {
	if !strings.HasPrefix(p.input[p.cursor:], "/*") {
		return false
	}
	if end := strings.Index(p.input[p.cursor+2:], "*/"); end >= 0 {
		p.cursor += 2 + end + 2
	} else {
		p.cursor = len(p.input)
	}
	return true
}

// skipSpaceAndComments advances past whitespace and comments and
// reports whether input remains.
func (p *parser) skipSpaceAndComments() bool {
	for p.cursor < len(p.input) {
		c := p.input[p.cursor]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' {
			p.cursor++
			continue
		}
		if c == '/' && p.skipComment() {
			continue
		}
		return true
	}
	return false
}

func (p *parser) peek() byte {
	if p.cursor >= len(p.input) {
		return 0
	}
	return p.input[p.cursor]
}

func (p *parser) consumeIdent() string {
	start := p.cursor
	for p.cursor < len(p.input) {
		c := p.input[p.cursor]
		if c == '-' || c == '_' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') {
			p.cursor++
			continue
		}
		break
	}
	return p.input[start:p.cursor]
}

// consumeUntil consumes up to (not including) the delimiter, dropping
// comments, and reports whether the delimiter was found.
func (p *parser) consumeUntil(delim byte) (string, bool) {
	var sb strings.Builder
	for p.cursor < len(p.input) {
		c := p.input[p.cursor]
		if c == delim {
			return sb.String(), true
		}
		if c == '/' && strings.HasPrefix(p.input[p.cursor:], "/*") {
			p.skipComment()
			continue
		}
		sb.WriteByte(c)
		p.cursor++
	}
	return "", false
}

func parseSelectorGroup(input string) []Selector {
	var out []Selector
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, parseSelector(part))
	}
	return out
}

// parseSelector splits on combinators. The child combinator is treated
// as a descendant combinator, a deliberate loosening: it can only
// over-match, never drop a legitimate match.
func parseSelector(input string) Selector {
	input = strings.ReplaceAll(input, ">", " ")
	var parts []Compound
	for _, field := range strings.Fields(input) {
		parts = append(parts, parseCompound(field))
	}
	return Selector{Parts: parts}
}

func parseCompound(input string) Compound {
	var c Compound

	tagEnd := strings.IndexAny(input, ".#:[")
	if tagEnd < 0 {
		tagEnd = len(input)
	}
	if tag := input[:tagEnd]; tag != "" && tag != "*" {
		c.Tag = strings.ToLower(tag)
	}
	input = input[tagEnd:]

	for input != "" {
		switch input[0] {
		case '.':
			name, rest := splitSimpleName(input[1:])
			if name != "" {
				c.Classes = append(c.Classes, name)
			}
			input = rest
		case '#':
			name, rest := splitSimpleName(input[1:])
			if name != "" {
				c.ID = name
			}
			input = rest
		case ':':
			// Pseudo-classes and pseudo-elements are out of scope; the
			// whole compound stops matching rather than over-matching.
			c.Unsupported = true
			return c
		case '[':
			end := strings.IndexByte(input, ']')
			if end < 0 {
				c.Unsupported = true
				return c
			}
			if sel, ok := parseAttrSelector(input[1:end]); ok {
				c.Attrs = append(c.Attrs, sel)
			}
			input = input[end+1:]
		default:
			return c
		}
	}
	return c
}

func splitSimpleName(input string) (name, rest string) {
	end := strings.IndexAny(input, ".#:[")
	if end < 0 {
		return input, ""
	}
	return input[:end], input[end:]
}

func parseAttrSelector(input string) (AttrSelector, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return AttrSelector{}, false
	}
	name, value, found := strings.Cut(input, "=")
	sel := AttrSelector{Name: strings.ToLower(strings.TrimSpace(name))}
	if sel.Name == "" {
		return AttrSelector{}, false
	}
	if found {
		sel.Exact = true
		sel.Value = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return sel, true
}

func parseDeclarationList(input string) []Declaration {
	var out []Declaration
	for _, chunk := range splitDeclarations(input) {
		name, value, found := strings.Cut(chunk, ":")
		if !found {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		// !important is accepted and stripped; the cascade implemented
		// here has no importance tier.
		value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
		if name == "" || value == "" {
			continue
		}
		out = append(out, Declaration{Name: name, Value: value})
	}
	return out
}

// splitDeclarations splits on top-level semicolons, respecting quotes
// and parentheses so url(data:...) and rgb(1, 2, 3) survive intact.
func splitDeclarations(input string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(input); i++ {
		switch c := input[i]; c {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '"', '\'':
			for i++; i < len(input); i++ {
				if input[i] == '\\' {
					i++
					continue
				}
				if input[i] == c {
					break
				}
			}
		case ';':
			if depth == 0 {
				out = append(out, input[start:i])
				start = i + 1
			}
		}
	}
	if start < len(input) {
		out = append(out, input[start:])
	}
	return out
}
