// Package paramlit parses the parameter text of captured tag calls
// into plain object graphs.
//
// Captured parameter text arrives as JavaScript source. Evaluating it
// would execute page-controlled input, so this package accepts only a
// literal subset: objects with identifier or quoted keys, arrays,
// single- or double-quoted strings, numbers, true/false/null, trailing
// commas, and // and /* */ comments. Anything executable is a parse
// error.
package paramlit

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse materializes the object literal in src as a string-keyed map.
// Numbers come back as float64, nested objects as map[string]any and
// arrays as []any. Only whitespace and comments may follow the literal.
func Parse(src string) (map[string]any, error) {
	p := &parser{src: src}
	if err := p.skip(); err != nil {
		return nil, err
	}
	obj, err := p.parseObject()
	if err != nil {
		return nil, err
	}
	if err := p.skip(); err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q after object literal", p.src[p.pos])
	}
	return obj, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errAt(pos int, format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", pos, fmt.Sprintf(format, args...))
}

func (p *parser) errorf(format string, args ...any) error {
	return p.errAt(p.pos, format, args...)
}

// skip advances past whitespace and comments.
func (p *parser) skip() error {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '/':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				return p.errorf("unterminated comment")
			}
			p.pos += 2 + end + 2
		default:
			return nil
		}
	}
	return nil
}

func (p *parser) eat(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(c byte) error {
	if p.eat(c) {
		return nil
	}
	if p.pos >= len(p.src) {
		return p.errorf("unexpected end of input, expected %q", c)
	}
	return p.errorf("expected %q, found %q", c, p.src[p.pos])
}

func (p *parser) parseObject() (map[string]any, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	obj := make(map[string]any)
	for {
		if err := p.skip(); err != nil {
			return nil, err
		}
		if p.eat('}') {
			return obj, nil
		}
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		if err := p.skip(); err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		obj[key] = val
		if err := p.skip(); err != nil {
			return nil, err
		}
		if p.eat(',') {
			continue
		}
		if p.eat('}') {
			return obj, nil
		}
		return nil, p.errorf("expected ',' or '}' in object")
	}
}

func (p *parser) parseArray() ([]any, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	arr := []any{}
	for {
		if err := p.skip(); err != nil {
			return nil, err
		}
		if p.eat(']') {
			return arr, nil
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
		if err := p.skip(); err != nil {
			return nil, err
		}
		if p.eat(',') {
			continue
		}
		if p.eat(']') {
			return arr, nil
		}
		return nil, p.errorf("expected ',' or ']' in array")
	}
}

func (p *parser) parseKey() (string, error) {
	if p.pos >= len(p.src) {
		return "", p.errorf("unexpected end of input")
	}
	c := p.src[p.pos]
	if c == '\'' || c == '"' {
		return p.parseString()
	}
	if isIdentStart(c) {
		return p.ident(), nil
	}
	return "", p.errorf("expected property name, found %q", c)
}

func (p *parser) parseValue() (any, error) {
	if err := p.skip(); err != nil {
		return nil, err
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '-' || c == '.' || isDigit(c):
		return p.parseNumber()
	case isIdentStart(c):
		start := p.pos
		switch word := p.ident(); word {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		default:
			return nil, p.errAt(start, "unsupported value %q", word)
		}
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

func (p *parser) parseString() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated string")
			}
			switch esc := p.src[p.pos]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				if p.pos+4 >= len(p.src) {
					return "", p.errorf("invalid unicode escape")
				}
				n, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return "", p.errorf("invalid unicode escape")
				}
				b.WriteRune(rune(n))
				p.pos += 4
			default:
				b.WriteByte(esc)
			}
			p.pos++
		case c == '\n':
			return "", p.errorf("unterminated string")
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.errAt(start, "invalid number %q", p.src[start:p.pos])
	}
	return n, nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
