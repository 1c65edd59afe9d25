package css

import (
	"strconv"
	"strings"

	"github.com/duskweb/dusk"
)

// Unit is the unit of a Length value.
type Unit uint8

const (
	// Px is a device-independent pixel length.
	Px Unit = iota
	// Em is relative to the element's font size.
	Em
	// Percent is relative to a dimension of the containing block.
	Percent
	// Auto is the "auto" keyword.
	Auto
)

// Length is a parsed CSS length or the auto keyword.
type Length struct {
	Value float64
	Unit  Unit
}

// PxLen is shorthand for an absolute pixel length.
func PxLen(v float64) Length { return Length{Value: v, Unit: Px} }

// Resolve converts the length to device-independent pixels. fontSize
// resolves em units, base resolves percentages. Auto resolves to the
// fallback.
func (l Length) Resolve(fontSize, base, fallback float64) float64 {
	switch l.Unit {
	case Em:
		return l.Value * fontSize
	case Percent:
		return l.Value / 100 * base
	case Auto:
		return fallback
	default:
		return l.Value
	}
}

// IsAuto reports whether the length is the auto keyword.
func (l Length) IsAuto() bool { return l.Unit == Auto }

// ParseLength parses a CSS length value. Supported units: px, em, %,
// pt (converted to px at 96/72), and the bare-zero and auto keywords.
// Returns false for anything else, including negative lengths when
// allowNegative is false.
func ParseLength(input string, allowNegative bool) (Length, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	switch s {
	case "":
		return Length{}, false
	case "auto":
		return Length{Unit: Auto}, true
	case "0":
		return Length{}, true
	}

	unit := Px
	num := s
	switch {
	case strings.HasSuffix(s, "px"):
		num = s[:len(s)-2]
	case strings.HasSuffix(s, "em"):
		num, unit = s[:len(s)-2], Em
	case strings.HasSuffix(s, "%"):
		num, unit = s[:len(s)-1], Percent
	case strings.HasSuffix(s, "pt"):
		v, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-2]), 64)
		if err != nil {
			return Length{}, false
		}
		return checkNegative(Length{Value: v * 96 / 72, Unit: Px}, allowNegative)
	default:
		// Unitless nonzero numbers are invalid CSS lengths, but legacy
		// HTML attributes use them; the style layer opts in via
		// ParseHTMLLength instead.
		return Length{}, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return Length{}, false
	}
	return checkNegative(Length{Value: v, Unit: unit}, allowNegative)
}

// ParseHTMLLength parses legacy HTML size attributes (width="120",
// width="50%").
func ParseHTMLLength(input string) (Length, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Length{}, false
	}
	if l, ok := ParseLength(s, false); ok {
		return l, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return Length{}, false
	}
	return PxLen(v), true
}

func checkNegative(l Length, allowNegative bool) (Length, bool) {
	if !allowNegative && l.Value < 0 {
		return Length{}, false
	}
	return l, true
}

// namedColors is the keyword subset the engine recognizes, the CSS 2.1
// set plus a few ubiquitous extras.
var namedColors = map[string]dusk.Color{
	"black":       {R: 0, G: 0, B: 0, A: 1},
	"silver":      {R: 0.75, G: 0.75, B: 0.75, A: 1},
	"gray":        {R: 0.5, G: 0.5, B: 0.5, A: 1},
	"grey":        {R: 0.5, G: 0.5, B: 0.5, A: 1},
	"white":       {R: 1, G: 1, B: 1, A: 1},
	"maroon":      {R: 0.5, G: 0, B: 0, A: 1},
	"red":         {R: 1, G: 0, B: 0, A: 1},
	"purple":      {R: 0.5, G: 0, B: 0.5, A: 1},
	"fuchsia":     {R: 1, G: 0, B: 1, A: 1},
	"magenta":     {R: 1, G: 0, B: 1, A: 1},
	"green":       {R: 0, G: 0.5, B: 0, A: 1},
	"lime":        {R: 0, G: 1, B: 0, A: 1},
	"olive":       {R: 0.5, G: 0.5, B: 0, A: 1},
	"yellow":      {R: 1, G: 1, B: 0, A: 1},
	"navy":        {R: 0, G: 0, B: 0.5, A: 1},
	"blue":        {R: 0, G: 0, B: 1, A: 1},
	"teal":        {R: 0, G: 0.5, B: 0.5, A: 1},
	"aqua":        {R: 0, G: 1, B: 1, A: 1},
	"cyan":        {R: 0, G: 1, B: 1, A: 1},
	"orange":      {R: 1, G: 0.647, B: 0, A: 1},
	"transparent": {},
}

// ParseColor parses hex (#rgb, #rrggbb, #rrggbbaa), rgb()/rgba()
// functional notation, and named colors.
func ParseColor(input string) (dusk.Color, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return dusk.Color{}, false
	}
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s[1:])
	}
	if strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(") {
		return parseRGBFunc(s)
	}
	return dusk.Color{}, false
}

func parseHexColor(hex string) (dusk.Color, bool) {
	nib := func(c byte) (uint8, bool) {
		switch {
		case c >= '0' && c <= '9':
			return c - '0', true
		case c >= 'a' && c <= 'f':
			return c - 'a' + 10, true
		default:
			return 0, false
		}
	}
	byteAt := func(i int) (uint8, bool) {
		hi, ok1 := nib(hex[i])
		lo, ok2 := nib(hex[i+1])
		return hi<<4 | lo, ok1 && ok2
	}

	var r, g, b, a uint8 = 0, 0, 0, 255
	ok := true
	switch len(hex) {
	case 3:
		var hr, hg, hb uint8
		var o1, o2, o3 bool
		hr, o1 = nib(hex[0])
		hg, o2 = nib(hex[1])
		hb, o3 = nib(hex[2])
		r, g, b = hr*17, hg*17, hb*17
		ok = o1 && o2 && o3
	case 6:
		var o1, o2, o3 bool
		r, o1 = byteAt(0)
		g, o2 = byteAt(2)
		b, o3 = byteAt(4)
		ok = o1 && o2 && o3
	case 8:
		var o1, o2, o3, o4 bool
		r, o1 = byteAt(0)
		g, o2 = byteAt(2)
		b, o3 = byteAt(4)
		a, o4 = byteAt(6)
		ok = o1 && o2 && o3 && o4
	default:
		return dusk.Color{}, false
	}
	if !ok {
		return dusk.Color{}, false
	}
	return dusk.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: float64(a) / 255,
	}, true
}

func parseRGBFunc(s string) (dusk.Color, bool) {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return dusk.Color{}, false
	}
	body := s[open+1 : end]
	body = strings.ReplaceAll(body, "/", ",")
	parts := strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 3 && len(parts) != 4 {
		return dusk.Color{}, false
	}

	channel := func(p string) (float64, bool) {
		p = strings.TrimSpace(p)
		if v, ok := strings.CutSuffix(p, "%"); ok {
			f, err := strconv.ParseFloat(v, 64)
			return clamp01(f / 100), err == nil
		}
		f, err := strconv.ParseFloat(p, 64)
		return clamp01(f / 255), err == nil
	}

	var c dusk.Color
	var ok bool
	if c.R, ok = channel(parts[0]); !ok {
		return dusk.Color{}, false
	}
	if c.G, ok = channel(parts[1]); !ok {
		return dusk.Color{}, false
	}
	if c.B, ok = channel(parts[2]); !ok {
		return dusk.Color{}, false
	}
	c.A = 1
	if len(parts) == 4 {
		p := strings.TrimSpace(parts[3])
		if v, hasPct := strings.CutSuffix(p, "%"); hasPct {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return dusk.Color{}, false
			}
			c.A = clamp01(f / 100)
		} else {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return dusk.Color{}, false
			}
			c.A = clamp01(f)
		}
	}
	return c, true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
