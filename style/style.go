// Package style resolves the CSS cascade: for every element node it
// produces exactly one Computed style, derived from user-agent
// defaults, author stylesheet rules sorted by specificity and source
// order, presentational HTML attributes, and the inline style
// attribute, with unset inheritable properties taken from the parent.
package style

import (
	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/css"
)

// Display is the resolved display type of an element.
type Display uint8

const (
	// DisplayBlock elements stack vertically and fill the containing
	// block's inline axis.
	DisplayBlock Display = iota
	// DisplayInline elements flow within line boxes.
	DisplayInline
	// DisplayInlineBlock elements flow inline but lay out their
	// contents as a block.
	DisplayInlineBlock
	// DisplayNone removes the element and its subtree from layout.
	DisplayNone
)

// TextAlign is the horizontal alignment of inline content.
type TextAlign uint8

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// Dimension is an optional length: Set reports whether the property
// was specified at all.
type Dimension struct {
	Length css.Length
	Set    bool
}

// AutoEdges records which margin sides were the auto keyword.
type AutoEdges struct {
	Top, Right, Bottom, Left bool
}

// Computed is the resolved style of one element. Lengths that may be
// percentages (width, height) stay symbolic until layout; everything
// else is resolved to device-independent pixels here.
type Computed struct {
	Display    Display
	Hidden     bool // visibility: hidden
	Color      dusk.Color
	Background dusk.Color // alpha 0 means no background paint

	FontSize  float64
	Bold      bool
	Italic    bool
	Underline bool
	Monospace bool
	// Pre preserves whitespace and newlines and disables wrapping.
	Pre       bool
	TextAlign TextAlign
	// LineHeight is the used line height in pixels; 0 means normal
	// (derive from font metrics).
	LineHeight float64

	Margin     dusk.Edges
	MarginAuto AutoEdges
	Padding    dusk.Edges
	Border     dusk.Edges
	BorderCol  dusk.Color

	Width     Dimension
	MinWidth  Dimension
	MaxWidth  Dimension
	Height    Dimension
	ZIndex    int
}

// DefaultFontSize is the root font size in device-independent pixels.
const DefaultFontSize = 16

// rootDefaults is the style the document root starts from.
func rootDefaults() Computed {
	return Computed{
		Display:   DisplayBlock,
		Color:     dusk.Black,
		FontSize:  DefaultFontSize,
		BorderCol: dusk.Black,
	}
}

// inheritFrom seeds a child style with the parent's inheritable
// properties and the given default display.
func inheritFrom(parent *Computed, display Display) Computed {
	return Computed{
		Display:    display,
		Color:      parent.Color,
		FontSize:   parent.FontSize,
		Bold:       parent.Bold,
		Italic:     parent.Italic,
		Underline:  parent.Underline,
		Monospace:  parent.Monospace,
		Pre:        parent.Pre,
		TextAlign:  parent.TextAlign,
		LineHeight: parent.LineHeight,
		BorderCol:  parent.Color,
	}
}

// Anonymous derives the style of an anonymous block box: inherited
// properties only, so the wrapping box adds no margins, borders, or
// background of its own.
func Anonymous(parent *Computed) *Computed {
	cs := inheritFrom(parent, DisplayBlock)
	return &cs
}

// blockTags lay out as blocks by default.
var blockTags = map[string]bool{
	"html": true, "body": true, "div": true, "p": true, "center": true,
	"header": true, "main": true, "footer": true, "nav": true,
	"section": true, "article": true, "aside": true, "figure": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "hr": true, "table": true,
	"form": true, "fieldset": true, "address": true,
}

// hiddenTags never generate boxes.
var hiddenTags = map[string]bool{
	"head": true, "style": true, "script": true, "meta": true,
	"link": true, "title": true, "base": true, "template": true,
	"noscript": true,
}

// defaultDisplay returns the user-agent display type for a tag.
func defaultDisplay(tag string) Display {
	switch {
	case tag == "#document":
		return DisplayBlock
	case hiddenTags[tag]:
		return DisplayNone
	case tag == "img", tag == "input", tag == "button", tag == "select", tag == "textarea":
		return DisplayInlineBlock
	case blockTags[tag]:
		return DisplayBlock
	default:
		return DisplayInline
	}
}

// headingScale maps heading tags to their font scale and the vertical
// margin in em units.
var headingScale = map[string]float64{
	"h1": 2.0, "h2": 1.5, "h3": 1.17, "h4": 1.0, "h5": 0.83, "h6": 0.67,
}
