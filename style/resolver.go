package style

import (
	"sort"
	"strconv"
	"strings"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/css"
	"github.com/duskweb/dusk/dom"
)

// Styles holds one Computed style per document node, indexed by
// dom.NodeID.
type Styles struct {
	nodes []Computed
}

// Of returns the computed style for a node. Text nodes carry their
// parent's inherited style.
func (s *Styles) Of(id dom.NodeID) *Computed {
	return &s.nodes[id]
}

// Resolver matches stylesheet rules against a document and computes
// styles.
type Resolver struct {
	sheets []*css.Stylesheet
}

// NewResolver builds a resolver over the given stylesheets, in
// ascending origin order: rules from later sheets win ties against
// earlier ones.
func NewResolver(sheets ...*css.Stylesheet) *Resolver {
	return &Resolver{sheets: sheets}
}

// CollectStylesheets parses every <style> element in document order.
func CollectStylesheets(doc *dom.Document) []*css.Stylesheet {
	var sheets []*css.Stylesheet
	doc.Walk(doc.Root(), func(id dom.NodeID, n *dom.Node) bool {
		if n.Kind == dom.KindElement && n.Tag == "style" {
			sheets = append(sheets, css.Parse(doc.TextContent(id)))
		}
		return true
	})
	return sheets
}

// StylesheetLinks returns the hrefs of external stylesheet links
// (<link rel="stylesheet" href=...>) in document order. The caller
// fetches and parses them; linked sheets sort before <style> sheets
// in the cascade.
func StylesheetLinks(doc *dom.Document) []string {
	var hrefs []string
	doc.Walk(doc.Root(), func(_ dom.NodeID, n *dom.Node) bool {
		if n.Kind != dom.KindElement || n.Tag != "link" {
			return true
		}
		rel := strings.ToLower(n.AttrValue("rel"))
		stylesheet := false
		for _, f := range strings.Fields(rel) {
			if f == "stylesheet" {
				stylesheet = true
			}
		}
		if !stylesheet {
			return true
		}
		if href := strings.TrimSpace(n.AttrValue("href")); href != "" {
			hrefs = append(hrefs, href)
		}
		return true
	})
	return hrefs
}

// Resolve computes a style for every node in the document. Each
// element's style starts from user-agent defaults and inherited
// properties, then applies presentational attributes, matched rules
// sorted by specificity and source order, and finally the inline
// style attribute.
func (r *Resolver) Resolve(doc *dom.Document) *Styles {
	s := &Styles{nodes: make([]Computed, doc.Len())}
	s.nodes[0] = rootDefaults()

	doc.Walk(doc.Root(), func(id dom.NodeID, n *dom.Node) bool {
		if id == doc.Root() {
			return true
		}
		parent := &s.nodes[n.Parent]
		switch n.Kind {
		case dom.KindElement:
			s.nodes[id] = r.resolveElement(doc, id, n, parent)
		default:
			s.nodes[id] = inheritFrom(parent, DisplayInline)
		}
		return true
	})
	return s
}

func (r *Resolver) resolveElement(doc *dom.Document, id dom.NodeID, n *dom.Node, parent *Computed) Computed {
	cs := inheritFrom(parent, defaultDisplay(n.Tag))
	parentFS := parent.FontSize

	applyTagDefaults(&cs, n, parentFS)

	var decls []css.Declaration
	decls = append(decls, presentationalHints(n)...)
	for _, m := range r.matchedRules(doc, id, n) {
		decls = append(decls, m.decls...)
	}
	if inline, ok := n.LookupAttr("style"); ok {
		decls = append(decls, css.ParseDeclarations(inline)...)
	}

	// font-size first so em units in the remaining declarations
	// resolve against this element's own size.
	for _, d := range decls {
		if d.Name == "font-size" {
			applyFontSize(&cs, d.Value, parentFS)
		}
	}
	for _, d := range decls {
		applyDeclaration(&cs, d.Name, d.Value)
	}
	return cs
}

type matched struct {
	spec  css.Specificity
	order int
	decls []css.Declaration
}

// matchedRules returns every rule with a selector matching the node,
// sorted ascending by specificity then source order, so that applying
// them in sequence leaves the winning value last.
func (r *Resolver) matchedRules(doc *dom.Document, id dom.NodeID, n *dom.Node) []matched {
	var out []matched
	base := 0
	for _, sheet := range r.sheets {
		for _, rule := range sheet.Rules {
			best := css.Specificity{}
			found := false
			for _, sel := range rule.Selectors {
				if !matchSelector(doc, id, n, sel) {
					continue
				}
				if !found || best.Less(sel.Specificity()) {
					best = sel.Specificity()
				}
				found = true
			}
			if found {
				out = append(out, matched{spec: best, order: base + rule.Order, decls: rule.Declarations})
			}
		}
		base += len(sheet.Rules)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].spec != out[j].spec {
			return out[i].spec.Less(out[j].spec)
		}
		return out[i].order < out[j].order
	})
	return out
}

// matchSelector tests a descendant selector: the last compound must
// match the node itself and the earlier compounds must match ancestors
// in order.
func matchSelector(doc *dom.Document, id dom.NodeID, n *dom.Node, sel css.Selector) bool {
	if len(sel.Parts) == 0 {
		return false
	}
	if !matchCompound(n, sel.Parts[len(sel.Parts)-1]) {
		return false
	}
	idx := len(sel.Parts) - 2
	for _, anc := range doc.Ancestors(id) {
		if idx < 0 {
			break
		}
		a := doc.Node(anc)
		if a.Kind == dom.KindElement && matchCompound(a, sel.Parts[idx]) {
			idx--
		}
	}
	return idx < 0
}

func matchCompound(n *dom.Node, c css.Compound) bool {
	if c.Unsupported {
		return false
	}
	if c.Tag != "" && n.Tag != c.Tag {
		return false
	}
	if c.ID != "" {
		if idAttr, ok := n.LookupAttr("id"); !ok || idAttr != c.ID {
			return false
		}
	}
	if len(c.Classes) > 0 {
		classes := strings.Fields(n.AttrValue("class"))
		for _, want := range c.Classes {
			if !containsString(classes, want) {
				return false
			}
		}
	}
	for _, attr := range c.Attrs {
		v, ok := n.LookupAttr(attr.Name)
		if !ok {
			return false
		}
		if attr.Exact && v != attr.Value {
			return false
		}
	}
	return true
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

// headingMargin is the vertical heading margin in em units of the
// heading's own font size.
var headingMargin = map[string]float64{
	"h1": 0.67, "h2": 0.83, "h3": 1.0, "h4": 1.33, "h5": 1.67, "h6": 2.33,
}

// applyTagDefaults applies the user-agent stylesheet for a tag. These
// sit below every author rule and presentational hint.
func applyTagDefaults(cs *Computed, n *dom.Node, parentFS float64) {
	switch tag := n.Tag; tag {
	case "body":
		cs.Margin = dusk.Edges{Top: 8, Right: 8, Bottom: 8, Left: 8}
	case "h1", "h2", "h3", "h4", "h5", "h6":
		cs.FontSize = parentFS * headingScale[tag]
		cs.Bold = true
		m := headingMargin[tag] * cs.FontSize
		cs.Margin.Top, cs.Margin.Bottom = m, m
	case "p":
		cs.Margin.Top, cs.Margin.Bottom = cs.FontSize, cs.FontSize
	case "pre":
		cs.Margin.Top, cs.Margin.Bottom = cs.FontSize, cs.FontSize
		cs.Monospace = true
		cs.Pre = true
	case "blockquote":
		cs.Margin = dusk.Edges{Top: cs.FontSize, Bottom: cs.FontSize, Left: 40, Right: 40}
	case "ul", "ol", "dl":
		cs.Margin.Top, cs.Margin.Bottom = cs.FontSize, cs.FontSize
		cs.Padding.Left = 40
	case "dd":
		cs.Margin.Left = 40
	case "b", "strong", "th":
		cs.Bold = true
	case "i", "em", "cite", "var", "dfn", "address":
		cs.Italic = true
	case "u", "ins":
		cs.Underline = true
	case "a":
		if n.HasAttr("href") {
			cs.Color = dusk.Color{R: 0, G: 0, B: 0.93, A: 1}
			cs.Underline = true
		}
	case "center":
		cs.TextAlign = AlignCenter
	case "code", "kbd", "samp", "tt":
		cs.Monospace = true
	case "small":
		cs.FontSize = parentFS * 0.83
	case "big":
		cs.FontSize = parentFS * 1.17
	case "hr":
		cs.Margin.Top, cs.Margin.Bottom = 8, 8
		cs.Height = Dimension{Length: css.PxLen(2), Set: true}
		cs.Background = dusk.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}
	}
}

// presentationalHints maps legacy HTML attributes to declarations.
// They apply above user-agent defaults but below any author rule.
func presentationalHints(n *dom.Node) []css.Declaration {
	var out []css.Declaration
	add := func(name, value string) {
		out = append(out, css.Declaration{Name: name, Value: value})
	}

	if n.HasAttr("hidden") {
		add("display", "none")
	}
	if v, ok := n.LookupAttr("align"); ok {
		add("text-align", strings.ToLower(v))
	}
	if v, ok := n.LookupAttr("bgcolor"); ok {
		add("background-color", v)
	}
	switch n.Tag {
	case "body":
		if v, ok := n.LookupAttr("text"); ok {
			add("color", v)
		}
	case "font":
		if v, ok := n.LookupAttr("color"); ok {
			add("color", v)
		}
	case "img", "table", "td", "th", "iframe", "input":
		if v, ok := n.LookupAttr("width"); ok {
			if l, ok := css.ParseHTMLLength(v); ok {
				add("width", formatLength(l))
			}
		}
		if v, ok := n.LookupAttr("height"); ok {
			if l, ok := css.ParseHTMLLength(v); ok {
				add("height", formatLength(l))
			}
		}
	}
	return out
}

func formatLength(l css.Length) string {
	v := strconv.FormatFloat(l.Value, 'f', -1, 64)
	if l.Unit == css.Percent {
		return v + "%"
	}
	return v + "px"
}

func applyFontSize(cs *Computed, value string, parentFS float64) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "xx-small":
		cs.FontSize = DefaultFontSize * 0.6
	case "x-small":
		cs.FontSize = DefaultFontSize * 0.75
	case "small":
		cs.FontSize = DefaultFontSize * 0.89
	case "medium":
		cs.FontSize = DefaultFontSize
	case "large":
		cs.FontSize = DefaultFontSize * 1.2
	case "x-large":
		cs.FontSize = DefaultFontSize * 1.5
	case "xx-large":
		cs.FontSize = DefaultFontSize * 2
	case "larger":
		cs.FontSize = parentFS * 1.2
	case "smaller":
		cs.FontSize = parentFS / 1.2
	default:
		if l, ok := css.ParseLength(value, false); ok && !l.IsAuto() {
			if fs := l.Resolve(parentFS, parentFS, 0); fs > 0 {
				cs.FontSize = fs
			}
		}
	}
}

// applyDeclaration applies one property to the computed style. Unknown
// properties and unparsable values are ignored, keeping whatever an
// earlier declaration or the defaults produced.
func applyDeclaration(cs *Computed, name, value string) {
	lower := strings.ToLower(strings.TrimSpace(value))
	switch name {
	case "display":
		switch lower {
		case "block":
			cs.Display = DisplayBlock
		case "inline":
			cs.Display = DisplayInline
		case "inline-block":
			cs.Display = DisplayInlineBlock
		case "none":
			cs.Display = DisplayNone
		}
	case "visibility":
		switch lower {
		case "hidden", "collapse":
			cs.Hidden = true
		case "visible":
			cs.Hidden = false
		}
	case "color":
		if c, ok := css.ParseColor(value); ok {
			cs.Color = c
		}
	case "background", "background-color":
		applyBackground(cs, value)
	case "font-size":
		// Resolved in a separate pass before the others.
	case "font-weight":
		applyFontWeight(cs, lower)
	case "font-style":
		switch lower {
		case "italic", "oblique":
			cs.Italic = true
		case "normal":
			cs.Italic = false
		}
	case "font-family":
		cs.Monospace = isMonospaceFamily(lower)
	case "font":
		// Accept the shorthand only far enough to spot a monospace
		// stack; full font shorthand parsing is not worth its weight.
		if isMonospaceFamily(lower) {
			cs.Monospace = true
		}
	case "text-align":
		switch lower {
		case "left", "start", "justify":
			cs.TextAlign = AlignLeft
		case "center":
			cs.TextAlign = AlignCenter
		case "right", "end":
			cs.TextAlign = AlignRight
		}
	case "text-decoration", "text-decoration-line":
		switch {
		case strings.Contains(lower, "underline"):
			cs.Underline = true
		case lower == "none":
			cs.Underline = false
		}
	case "line-height":
		applyLineHeight(cs, lower)
	case "white-space":
		switch lower {
		case "pre", "pre-wrap":
			cs.Pre = true
		case "normal", "nowrap":
			cs.Pre = false
		}
	case "margin":
		applyEdgeShorthand(value, cs.FontSize, true, &cs.Margin, &cs.MarginAuto)
	case "margin-top":
		applyEdgeSide(value, cs.FontSize, true, &cs.Margin.Top, &cs.MarginAuto.Top)
	case "margin-right":
		applyEdgeSide(value, cs.FontSize, true, &cs.Margin.Right, &cs.MarginAuto.Right)
	case "margin-bottom":
		applyEdgeSide(value, cs.FontSize, true, &cs.Margin.Bottom, &cs.MarginAuto.Bottom)
	case "margin-left":
		applyEdgeSide(value, cs.FontSize, true, &cs.Margin.Left, &cs.MarginAuto.Left)
	case "padding":
		applyEdgeShorthand(value, cs.FontSize, false, &cs.Padding, nil)
	case "padding-top":
		applyEdgeSide(value, cs.FontSize, false, &cs.Padding.Top, nil)
	case "padding-right":
		applyEdgeSide(value, cs.FontSize, false, &cs.Padding.Right, nil)
	case "padding-bottom":
		applyEdgeSide(value, cs.FontSize, false, &cs.Padding.Bottom, nil)
	case "padding-left":
		applyEdgeSide(value, cs.FontSize, false, &cs.Padding.Left, nil)
	case "border":
		applyBorderShorthand(cs, value)
	case "border-width":
		applyEdgeShorthand(value, cs.FontSize, false, &cs.Border, nil)
	case "border-color":
		if c, ok := css.ParseColor(value); ok {
			cs.BorderCol = c
		}
	case "border-style":
		if lower == "none" || lower == "hidden" {
			cs.Border = dusk.Edges{}
		}
	case "width":
		applyDimension(&cs.Width, value)
	case "height":
		applyDimension(&cs.Height, value)
	case "min-width":
		applyDimension(&cs.MinWidth, value)
	case "max-width":
		applyDimension(&cs.MaxWidth, value)
	case "z-index":
		if lower == "auto" {
			cs.ZIndex = 0
		} else if z, err := strconv.Atoi(lower); err == nil {
			cs.ZIndex = z
		}
	}
}

func applyBackground(cs *Computed, value string) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == "none" || lower == "transparent" {
		cs.Background = dusk.Transparent
		return
	}
	// The background shorthand may carry images and positions; pick
	// out the first token that parses as a color.
	for _, tok := range strings.Fields(value) {
		if c, ok := css.ParseColor(tok); ok {
			cs.Background = c
			return
		}
	}
	if c, ok := css.ParseColor(value); ok {
		cs.Background = c
	}
}

func applyFontWeight(cs *Computed, lower string) {
	switch lower {
	case "bold", "bolder":
		cs.Bold = true
	case "normal", "lighter":
		cs.Bold = false
	default:
		if w, err := strconv.Atoi(lower); err == nil {
			cs.Bold = w >= 600
		}
	}
}

func isMonospaceFamily(lower string) bool {
	return strings.Contains(lower, "monospace") ||
		strings.Contains(lower, "courier") ||
		strings.Contains(lower, "consolas") ||
		strings.Contains(lower, "menlo")
}

func applyLineHeight(cs *Computed, lower string) {
	if lower == "normal" {
		cs.LineHeight = 0
		return
	}
	if v, err := strconv.ParseFloat(lower, 64); err == nil {
		if v >= 0 {
			cs.LineHeight = v * cs.FontSize
		}
		return
	}
	if l, ok := css.ParseLength(lower, false); ok && !l.IsAuto() {
		cs.LineHeight = l.Resolve(cs.FontSize, cs.FontSize, 0)
	}
}

// applyEdgeShorthand expands the 1-4 value margin/padding form.
func applyEdgeShorthand(value string, fontSize float64, allowAuto bool, edges *dusk.Edges, auto *AutoEdges) {
	fields := strings.Fields(value)
	var top, right, bottom, left string
	switch len(fields) {
	case 1:
		top, right, bottom, left = fields[0], fields[0], fields[0], fields[0]
	case 2:
		top, right, bottom, left = fields[0], fields[1], fields[0], fields[1]
	case 3:
		top, right, bottom, left = fields[0], fields[1], fields[2], fields[1]
	case 4:
		top, right, bottom, left = fields[0], fields[1], fields[2], fields[3]
	default:
		return
	}
	var autoTop, autoRight, autoBottom, autoLeft *bool
	if auto != nil {
		autoTop, autoRight, autoBottom, autoLeft = &auto.Top, &auto.Right, &auto.Bottom, &auto.Left
	}
	applyEdgeSide(top, fontSize, allowAuto, &edges.Top, autoTop)
	applyEdgeSide(right, fontSize, allowAuto, &edges.Right, autoRight)
	applyEdgeSide(bottom, fontSize, allowAuto, &edges.Bottom, autoBottom)
	applyEdgeSide(left, fontSize, allowAuto, &edges.Left, autoLeft)
}

func applyEdgeSide(value string, fontSize float64, allowNegative bool, out *float64, auto *bool) {
	l, ok := css.ParseLength(value, allowNegative)
	if !ok {
		return
	}
	if l.IsAuto() {
		if auto != nil {
			*out = 0
			*auto = true
		}
		return
	}
	if auto != nil {
		*auto = false
	}
	// Percentage margins and padding would need the containing block,
	// which is not known until layout; resolve them to zero.
	*out = l.Resolve(fontSize, 0, 0)
}

// applyBorderShorthand handles "border: 1px solid red" style values.
func applyBorderShorthand(cs *Computed, value string) {
	width := -1.0
	styleNone := false
	sawStyle := false
	for _, tok := range strings.Fields(value) {
		lower := strings.ToLower(tok)
		switch lower {
		case "thin":
			width = 1
			continue
		case "medium":
			width = 3
			continue
		case "thick":
			width = 5
			continue
		case "none", "hidden":
			styleNone = true
			sawStyle = true
			continue
		case "solid", "dotted", "dashed", "double", "groove", "ridge", "inset", "outset":
			sawStyle = true
			continue
		}
		if l, ok := css.ParseLength(lower, false); ok && !l.IsAuto() {
			width = l.Resolve(cs.FontSize, 0, 0)
			continue
		}
		if c, ok := css.ParseColor(tok); ok {
			cs.BorderCol = c
		}
	}
	switch {
	case styleNone:
		cs.Border = dusk.Edges{}
	case width >= 0:
		cs.Border = dusk.Edges{Top: width, Right: width, Bottom: width, Left: width}
	case sawStyle:
		cs.Border = dusk.Edges{Top: 3, Right: 3, Bottom: 3, Left: 3}
	}
}

func applyDimension(d *Dimension, value string) {
	if l, ok := css.ParseLength(value, false); ok {
		*d = Dimension{Length: l, Set: true}
	}
}
