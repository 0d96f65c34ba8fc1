// =============================================================================
// Spanish Tax Forms - Tagged Document Writer
// =============================================================================
//
// This module builds the XML-like tagged documents used by the Modelo 369
// presentation file. They are not XML: there is no declaration, no
// indentation, no attributes and no escaping. Every element is a fixed-size
// block of positional fields.
//
// DOCUMENT STRUCTURE:
//
//   <T36920251T0000>  ...header fields...   <T36900></T36900>   <!-- header -->
//   <T36904>MOSS DO ...positional fields...         </T36904>   <!-- section -->
//   <T36905>                                        </T36905>   <!-- filler  -->
//   </T36920251T0000>                                           <!-- footer  -->
//
//   Offsets inside a section are counted from the first character of its
//   opening tag, which is how the AEAT design documents number them.
//
// =============================================================================

package xmlwriter

import (
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/spanish-tax-forms/internal/fixedwidth"
)

// =============================================================================
// TAGS
// =============================================================================

// OpenTag returns "<name>".
func OpenTag(name string) string {
	return "<" + name + ">"
}

// CloseTag returns "</name>".
func CloseTag(name string) string {
	return "</" + name + ">"
}

// Empty returns an element with no content, "<name></name>".
func Empty(name string) string {
	return OpenTag(name) + CloseTag(name)
}

// Sanitize replaces the characters that would break the tag structure.
// Values are not escaped because escaping would change field widths.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>':
			return ' '
		default:
			return r
		}
	}, s)
}

// =============================================================================
// SECTIONS
// =============================================================================

// Section is one fixed-length element.
type Section struct {
	tag    string
	length int
	body   *fixedwidth.Writer
}

// NewSection starts an element that renders to exactly length characters,
// tags included.
func NewSection(tag string, length int) *Section {
	body := fixedwidth.NewWriter()
	body.Text(OpenTag(tag))
	return &Section{tag: tag, length: length, body: body}
}

// Tag returns the element name.
func (s *Section) Tag() string {
	return s.tag
}

// Body returns the writer for the positional fields. The cursor starts after
// the opening tag.
func (s *Section) Body() *fixedwidth.Writer {
	return s.body
}

// Overflows returns the truncated fields of the section. A body too long for
// the section length is reported with the section tag as field name.
func (s *Section) Overflows() []fixedwidth.Overflow {
	overflows := append([]fixedwidth.Overflow(nil), s.body.Overflows()...)
	if room := s.length - utf8.RuneCountInString(CloseTag(s.tag)); s.body.Len() > room {
		overflows = append(overflows, fixedwidth.Overflow{Field: s.tag, Value: s.body.String(), Width: room})
	}
	return overflows
}

// Render pads the body with spaces and closes the element.
func (s *Section) Render() string {
	closing := CloseTag(s.tag)
	room := s.length - utf8.RuneCountInString(closing)
	if room < 0 {
		room = 0
	}
	return s.body.Fixed(room) + closing
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a root element holding a header and a list of sections.
type Document struct {
	root     string
	header   *fixedwidth.Writer
	sections []*Section
}

// NewDocument opens the root element. Header fields are written through
// Header, sections are appended with Add.
func NewDocument(root string) *Document {
	header := fixedwidth.NewWriter()
	header.Text(OpenTag(root))
	return &Document{root: root, header: header}
}

// Header returns the writer positioned after the root opening tag.
func (d *Document) Header() *fixedwidth.Writer {
	return d.header
}

// Add appends sections in document order.
func (d *Document) Add(sections ...*Section) *Document {
	d.sections = append(d.sections, sections...)
	return d
}

// Sections returns the appended sections.
func (d *Document) Sections() []*Section {
	return d.sections
}

// Overflows collects truncated fields from the header and every section.
func (d *Document) Overflows() []fixedwidth.Overflow {
	overflows := append([]fixedwidth.Overflow(nil), d.header.Overflows()...)
	for _, s := range d.sections {
		overflows = append(overflows, s.Overflows()...)
	}
	return overflows
}

// String renders header, sections and the root closing tag.
func (d *Document) String() string {
	var b strings.Builder
	b.WriteString(d.header.String())
	for _, s := range d.sections {
		b.WriteString(s.Render())
	}
	b.WriteString(CloseTag(d.root))
	return b.String()
}
