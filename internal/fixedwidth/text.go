package fixedwidth

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	notNameChars = regexp.MustCompile(`[^A-Z0-9\s]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// foldAccents decomposes letters and drops the combining marks, so that
// Á, À, Â, Ä, Ã become A, Ñ becomes N, Ç becomes C and so on.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CleanName normalizes a counterparty name for the AEAT formats:
// uppercase, accents folded to ASCII, anything outside [A-Z0-9 ] removed,
// whitespace collapsed and trimmed.
func CleanName(name string) string {
	cleaned := foldAccents(strings.ToUpper(name))
	cleaned = notNameChars.ReplaceAllString(cleaned, "")
	cleaned = whitespace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// EncodeLatin1 converts s to ISO-8859-1. Runes that Latin-1 cannot
// represent are written as '?'.
func EncodeLatin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// DecodeLatin1 converts ISO-8859-1 bytes to a UTF-8 string.
func DecodeLatin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
