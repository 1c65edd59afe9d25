package dom

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/duskweb/dusk"
)

// Parse builds a Document from raw markup bytes. It never fails:
// malformed markup degrades to a best-effort tree, unknown tags become
// plain elements, and invalid byte sequences are replaced with U+FFFD.
// The input is assumed UTF-8; use ParseWithCharset when a transport
// layer supplied an explicit encoding label.
func Parse(input []byte) *Document {
	return parseString(toValidUTF8(input))
}

// ParseWithCharset decodes input using the named IANA charset before
// parsing. Unknown labels and decode errors fall back to the tolerant
// UTF-8 path, never to a parse failure.
func ParseWithCharset(input []byte, charset string) *Document {
	if charset == "" {
		return Parse(input)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		dusk.Logger().Warn("unknown charset, assuming utf-8", "charset", charset)
		return Parse(input)
	}
	decoded, err := enc.NewDecoder().Bytes(input)
	if err != nil {
		dusk.Logger().Warn("charset decode failed, assuming utf-8", "charset", charset, "err", err)
		return Parse(input)
	}
	return Parse(decoded)
}

func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

// voidElements have no content and no end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

type parser struct {
	input  string
	cursor int
	doc    *Document
	// stack holds the chain of open elements, root first. Elements are
	// attached to their parent when opened, so closing is just popping.
	stack []NodeID
}

func parseString(input string) *Document {
	p := &parser{
		input: input,
		doc:   NewDocument(),
	}
	p.stack = []NodeID{p.doc.Root()}
	p.run()
	return p.doc
}

func (p *parser) run() {
	for p.cursor < len(p.input) {
		if p.input[p.cursor] != '<' {
			text := decodeEntities(p.consumeUntilByte('<'))
			if text != "" {
				p.doc.AppendChild(p.top(), p.doc.CreateText(text))
			}
			continue
		}

		if strings.HasPrefix(p.input[p.cursor:], "<!--") {
			p.consumeComment()
			continue
		}
		if strings.HasPrefix(p.input[p.cursor:], "<!") || strings.HasPrefix(p.input[p.cursor:], "<?") {
			// Doctype and processing instructions carry no rendering
			// semantics here.
			p.consumeUntilByte('>')
			p.skipByte('>')
			continue
		}

		p.cursor++ // consume '<'
		raw := strings.TrimSpace(p.consumeUntilByte('>'))
		p.skipByte('>')
		if raw == "" {
			continue
		}

		if name, ok := strings.CutPrefix(raw, "/"); ok {
			p.closeTag(normalizeTag(strings.TrimSpace(name)))
			continue
		}

		name, rest, selfClosing := splitTagName(raw)
		if name == "" {
			continue
		}
		p.openTag(normalizeTag(name), parseAttributes(rest), selfClosing)
	}

	// Unclosed tags auto-close at end of input.
	p.stack = p.stack[:1]
}

func (p *parser) top() NodeID { return p.stack[len(p.stack)-1] }

func (p *parser) openTag(name string, attr []Attribute, selfClosing bool) {
	id := p.doc.CreateElement(name, attr)
	p.doc.AppendChild(p.top(), id)
	if !selfClosing && !voidElements[name] {
		p.stack = append(p.stack, id)
	}
}

// closeTag pops up to and including the nearest open element with the
// given name. An end tag with no matching open element is dropped, so
// stray closers never unwind unrelated ancestors.
func (p *parser) closeTag(name string) {
	for i := len(p.stack) - 1; i >= 1; i-- {
		if p.doc.Node(p.stack[i]).Tag == name {
			p.stack = p.stack[:i]
			return
		}
	}
}

func (p *parser) consumeComment() {
	p.cursor += len("<!--")
	if end := strings.Index(p.input[p.cursor:], "-->"); end >= 0 {
		text := p.input[p.cursor : p.cursor+end]
		p.doc.AppendChild(p.top(), p.doc.CreateComment(text))
		p.cursor += end + len("-->")
		return
	}
	// Unterminated comment swallows the rest of the input.
	p.doc.AppendChild(p.top(), p.doc.CreateComment(p.input[p.cursor:]))
	p.cursor = len(p.input)
}

func (p *parser) consumeUntilByte(b byte) string {
	start := p.cursor
	if i := strings.IndexByte(p.input[p.cursor:], b); i >= 0 {
		p.cursor += i
	} else {
		p.cursor = len(p.input)
	}
	return p.input[start:p.cursor]
}

func (p *parser) skipByte(b byte) {
	if p.cursor < len(p.input) && p.input[p.cursor] == b {
		p.cursor++
	}
}

func normalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// splitTagName splits the inside of a start tag into name, attribute
// text, and the trailing-slash self-closing marker.
func splitTagName(raw string) (name, rest string, selfClosing bool) {
	raw = strings.TrimSpace(raw)
	if trimmed, ok := strings.CutSuffix(raw, "/"); ok {
		selfClosing = true
		raw = strings.TrimSpace(trimmed)
	}
	end := strings.IndexFunc(raw, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '/'
	})
	if end < 0 {
		return raw, "", selfClosing
	}
	return raw[:end], raw[end:], selfClosing
}

func parseAttributes(input string) []Attribute {
	var attrs []Attribute
	for {
		input = strings.TrimLeft(input, " \t\r\n/")
		if input == "" {
			break
		}

		nameEnd := strings.IndexFunc(input, func(r rune) bool {
			return r == '=' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
		})
		if nameEnd < 0 {
			nameEnd = len(input)
		}
		if nameEnd == 0 {
			break
		}
		name := strings.ToLower(input[:nameEnd])
		input = strings.TrimLeft(input[nameEnd:], " \t\r\n")

		var value string
		if rest, ok := strings.CutPrefix(input, "="); ok {
			input = strings.TrimLeft(rest, " \t\r\n")
			value, input = parseAttributeValue(input)
		}
		attrs = append(attrs, Attribute{Name: name, Value: decodeEntities(value)})
	}
	return attrs
}

func parseAttributeValue(input string) (value, rest string) {
	if input == "" {
		return "", ""
	}
	if q := input[0]; q == '"' || q == '\'' {
		input = input[1:]
		if end := strings.IndexByte(input, q); end >= 0 {
			return input[:end], input[end+1:]
		}
		// Unterminated quote takes the remainder.
		return input, ""
	}
	end := strings.IndexFunc(input, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if end < 0 {
		return input, ""
	}
	return input[:end], input[end:]
}

var namedEntities = map[string]rune{
	"lt":   '<',
	"gt":   '>',
	"amp":  '&',
	"quot": '"',
	"apos": '\'',
	"nbsp": '\u00a0',
}

// decodeEntities resolves named and numeric character references.
// Unknown entities pass through verbatim.
func decodeEntities(input string) string {
	if !strings.Contains(input, "&") {
		return input
	}
	var out strings.Builder
	out.Grow(len(input))
	for {
		amp := strings.IndexByte(input, '&')
		if amp < 0 {
			out.WriteString(input)
			return out.String()
		}
		out.WriteString(input[:amp])
		input = input[amp+1:]

		semi := strings.IndexByte(input, ';')
		if semi < 0 {
			out.WriteByte('&')
			out.WriteString(input)
			return out.String()
		}
		entity := input[:semi]
		input = input[semi+1:]

		switch {
		case namedEntities[entity] != 0:
			out.WriteRune(namedEntities[entity])
		case strings.HasPrefix(entity, "#x"), strings.HasPrefix(entity, "#X"):
			writeCodepoint(&out, entity[2:], 16)
		case strings.HasPrefix(entity, "#"):
			writeCodepoint(&out, entity[1:], 10)
		default:
			out.WriteByte('&')
			out.WriteString(entity)
			out.WriteByte(';')
		}
	}
}

func writeCodepoint(out *strings.Builder, digits string, base int) {
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return
	}
	out.WriteRune(rune(v))
}
