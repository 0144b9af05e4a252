// Package hexdump renders process memory as hexadecimal and ASCII.
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// StartAddress is printed in the address column of the first line
	StartAddress uint64

	// AddressWidth is the width of the address column in hex digits
	AddressWidth int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// Color enables ANSI colours
	Color bool

	// AddressColor is the color for the address column
	AddressColor coloransi.ColorCode

	// HexColor is the color for the hex values
	HexColor coloransi.ColorCode

	// ZeroColor is the color for zero bytes and their ASCII dots
	ZeroColor coloransi.ColorCode

	// NonPrintableColor is the color for non-printable ASCII characters
	NonPrintableColor coloransi.ColorCode

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:      16,
		AddressWidth:      16,
		ShowASCII:         true,
		Color:             false,
		AddressColor:      coloransi.Cyan,
		HexColor:          coloransi.Green,
		ZeroColor:         coloransi.BrightBlack,
		NonPrintableColor: coloransi.Red,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer.
//
//	00007FF612340000  4D 5A 90 00 03 00 00 00  04 00 00 00 FF FF 00 00  |MZ..............|
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.AddressWidth <= 0 {
		options.AddressWidth = 16
	}

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], options.StartAddress+uint64(offset), options)
		lineCount++
	}
}

func (o HexDumpOptions) paint(color coloransi.ColorCode, text string) string {
	if !o.Color {
		return text
	}
	return coloransi.Foreground(color, text)
}

// formatLine formats a single line of the hex dump
func formatLine(writer io.Writer, data []byte, address uint64, options HexDumpOptions) {
	var sb strings.Builder

	sb.WriteString(options.paint(options.AddressColor, fmt.Sprintf("%0*X", options.AddressWidth, address)))
	sb.WriteString("  ")

	half := options.BytesPerLine / 2
	for i := 0; i < options.BytesPerLine; i++ {
		if i > 0 {
			sb.WriteByte(' ')
			if options.BytesPerLine >= 8 && i == half {
				sb.WriteByte(' ')
			}
		}
		if i >= len(data) {
			// keep the ASCII column aligned on the last line
			sb.WriteString("  ")
			continue
		}

		color := options.HexColor
		if data[i] == 0 {
			color = options.ZeroColor
		}
		sb.WriteString(options.paint(color, Encode(data[i:i+1])))
	}

	if options.ShowASCII {
		sb.WriteString("  |")
		for _, b := range data {
			switch {
			case b == 0:
				sb.WriteString(options.paint(options.ZeroColor, "."))
			case b < 0x20 || b > 0x7E:
				sb.WriteString(options.paint(options.NonPrintableColor, "."))
			default:
				sb.WriteByte(b)
			}
		}
		sb.WriteByte('|')
	}

	fmt.Fprintln(writer, sb.String())
}

// ASCII renders data with non-printable bytes replaced by dots.
func ASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b < 0x20 || b > 0x7E {
			b = '.'
		}
		out[i] = b
	}
	return string(out)
}

// DumpBytes creates a simple hex dump with default options
func DumpBytes(data []byte) string {
	return Dump(data, DefaultOptions())
}

// DumpWithAddress creates a hex dump whose first line is labelled with address
func DumpWithAddress(data []byte, address uint64) string {
	options := DefaultOptions()
	options.StartAddress = address
	return Dump(data, options)
}
