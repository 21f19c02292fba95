package refdata

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrMalformedList is returned when a serialized list cell cannot be parsed.
var ErrMalformedList = errors.New("malformed list literal")

// ParseList decodes a list of quoted strings as written by Python's repr,
// e.g. ['Antibiotics', "Rest"]. Items are trimmed and empty items dropped.
func ParseList(s string) ([]string, error) {
	p := &listParser{src: []rune(s)}

	p.skipSpace()
	if !p.consume('[') {
		return nil, p.errorf("expected '['")
	}

	var items []string
	for {
		p.skipSpace()
		if p.consume(']') {
			break
		}

		item, err := p.str()
		if err != nil {
			return nil, err
		}
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}

		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(']') {
			break
		}
		return nil, p.errorf("expected ',' or ']'")
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return items, nil
}

type listParser struct {
	src []rune
	pos int
}

func (p *listParser) errorf(msg string) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedList, msg, p.pos)
}

func (p *listParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *listParser) consume(r rune) bool {
	if p.pos < len(p.src) && p.src[p.pos] == r {
		p.pos++
		return true
	}
	return false
}

func (p *listParser) str() (string, error) {
	if p.pos >= len(p.src) {
		return "", p.errorf("unexpected end of input")
	}
	quote := p.src[p.pos]
	if quote != '\'' && quote != '"' {
		return "", p.errorf("expected quoted string")
	}
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		p.pos++
		switch {
		case r == quote:
			return b.String(), nil
		case r == '\\' && p.pos < len(p.src):
			next := p.src[p.pos]
			p.pos++
			switch next {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '\\', '\'', '"':
				b.WriteRune(next)
			default:
				b.WriteRune('\\')
				b.WriteRune(next)
			}
		default:
			b.WriteRune(r)
		}
	}
	return "", p.errorf("unterminated string")
}
