package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"procmem/hexdump"
)

var ErrEmptyPattern = errors.New("empty pattern")

// Pattern is a byte pattern with wildcards. A Mask byte of 0xFF requires an exact match,
// 0x00 matches anything.
type Pattern struct {
	Value []byte
	Mask  []byte
}

// ParsePattern parses "4D 5A ?? 00", "4D,5A,?,00" or "4D5A??00".
func ParsePattern(text string) (Pattern, error) {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	var p Pattern
	for _, part := range parts {
		if part == "?" {
			p.add(0, 0)
			continue
		}
		if len(part)%2 != 0 {
			return Pattern{}, fmt.Errorf("%w: %q", hexdump.ErrOddLength, part)
		}
		for i := 0; i < len(part); i += 2 {
			pair := part[i : i+2]
			if pair == "??" {
				p.add(0, 0)
				continue
			}
			val, err := strconv.ParseUint(pair, 16, 8)
			if err != nil {
				return Pattern{}, fmt.Errorf("%w: %q", hexdump.ErrInvalidDigit, pair)
			}
			p.add(byte(val), 0xFF)
		}
	}

	if p.Len() == 0 {
		return Pattern{}, ErrEmptyPattern
	}
	return p, nil
}

func (p *Pattern) add(value, mask byte) {
	p.Value = append(p.Value, value)
	p.Mask = append(p.Mask, mask)
}

func (p Pattern) Len() int {
	return len(p.Value)
}

// Match reports whether data starts with the pattern.
func (p Pattern) Match(data []byte) bool {
	if len(data) < len(p.Value) {
		return false
	}
	for i, v := range p.Value {
		if data[i]&p.Mask[i] != v&p.Mask[i] {
			return false
		}
	}
	return true
}

func (p Pattern) String() string {
	var sb strings.Builder
	for i := range p.Value {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if p.Mask[i] == 0 {
			sb.WriteString("??")
		} else {
			sb.WriteString(hexdump.Encode(p.Value[i : i+1]))
		}
	}
	return sb.String()
}
