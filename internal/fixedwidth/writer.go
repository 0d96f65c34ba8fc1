// =============================================================================
// Spanish Tax Forms - Positional Field Writer
// =============================================================================
//
// This package builds fixed-width records field by field. Every field has a
// width, an alignment and a pad character; the writer tracks the cursor so
// that the AEAT offsets can be asserted while the record is being built.
//
// Widths and offsets are counted in runes, which is what the ISO-8859-1
// encoder later turns into bytes one-to-one.
//
// OVERFLOW:
//   A value longer than its field is truncated to the field width and the
//   event is recorded. Encoders log the recorded overflows as warnings.
//
// =============================================================================

package fixedwidth

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Align selects which side of a field the value sits on.
type Align int

const (
	// Left aligns the value to the start of the field and pads on the right.
	Left Align = iota

	// Right aligns the value to the end of the field and pads on the left.
	Right
)

// Overflow records a value that did not fit its field.
type Overflow struct {
	Field string
	Value string
	Width int
}

// Writer accumulates one record.
type Writer struct {
	buf       strings.Builder
	pos       int
	overflows []Overflow
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Field writes value into a field of exactly width runes.
// Left-aligned values keep their leading runes when truncated, right-aligned
// values keep their trailing runes.
func (w *Writer) Field(name, value string, width int, align Align, pad rune) *Writer {
	n := utf8.RuneCountInString(value)
	if n > width {
		w.overflows = append(w.overflows, Overflow{Field: name, Value: value, Width: width})
		runes := []rune(value)
		if align == Right {
			value = string(runes[n-width:])
		} else {
			value = string(runes[:width])
		}
		n = width
	}
	padding := strings.Repeat(string(pad), width-n)
	if align == Right {
		w.write(padding + value)
	} else {
		w.write(value + padding)
	}
	return w
}

// Text writes value as-is, without a field width.
func (w *Writer) Text(value string) *Writer {
	w.write(value)
	return w
}

// Alpha writes a left-aligned space-padded field.
func (w *Writer) Alpha(name, value string, width int) *Writer {
	return w.Field(name, value, width, Left, ' ')
}

// Number writes a right-aligned zero-padded integer field.
func (w *Writer) Number(name string, value int64, width int) *Writer {
	return w.Field(name, strconv.FormatInt(value, 10), width, Right, '0')
}

// Blank writes n spaces.
func (w *Writer) Blank(n int) *Writer {
	if n > 0 {
		w.write(strings.Repeat(" ", n))
	}
	return w
}

// Zeros writes n zero digits.
func (w *Writer) Zeros(n int) *Writer {
	if n > 0 {
		w.write(strings.Repeat("0", n))
	}
	return w
}

// PadTo writes spaces until the cursor reaches offset. It never writes a
// negative amount: a cursor already past offset is left where it is.
func (w *Writer) PadTo(offset int) *Writer {
	return w.Blank(offset - w.pos)
}

// Len returns the current cursor position in runes.
func (w *Writer) Len() int {
	return w.pos
}

// Overflows returns the fields that had to be truncated.
func (w *Writer) Overflows() []Overflow {
	return w.overflows
}

// String returns the record built so far.
func (w *Writer) String() string {
	return w.buf.String()
}

// Fixed returns the record forced to exactly length runes, padding with
// spaces or truncating as needed.
func (w *Writer) Fixed(length int) string {
	s := w.buf.String()
	if w.pos == length {
		return s
	}
	if w.pos < length {
		return s + strings.Repeat(" ", length-w.pos)
	}
	return string([]rune(s)[:length])
}

func (w *Writer) write(s string) {
	w.buf.WriteString(s)
	w.pos += utf8.RuneCountInString(s)
}
