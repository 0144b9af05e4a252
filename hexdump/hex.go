package hexdump

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOddLength is returned when hex text does not contain whole bytes.
	ErrOddLength = errors.New("hex text has odd length")

	// ErrInvalidDigit is returned when hex text contains a non-hex character.
	ErrInvalidDigit = errors.New("invalid hex digit")
)

const upperDigits = "0123456789ABCDEF"

// Encode formats data as uppercase two-digit hex pairs separated by single spaces,
// e.g. "4D 5A 90 00". Empty input gives an empty string.
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(data)*3 - 1)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(upperDigits[b>>4])
		sb.WriteByte(upperDigits[b&0x0F])
	}
	return sb.String()
}

// Decode parses hex pairs, ignoring any whitespace between or inside them.
// "4D 5A 90 00" and "4D5A9000" decode to the same bytes. Digits may be in either case.
func Decode(text string) ([]byte, error) {
	compact := strings.Join(strings.Fields(text), "")
	if len(compact)%2 != 0 {
		return nil, fmt.Errorf("%w: %d digits", ErrOddLength, len(compact))
	}
	data, err := hex.DecodeString(compact)
	if err != nil {
		var invalid hex.InvalidByteError
		if errors.As(err, &invalid) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDigit, rune(invalid))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDigit, err)
	}
	return data, nil
}
