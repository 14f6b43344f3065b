// Package textrepair fixes text that was mis-encoded upstream before it goes
// out through a mail or push channel.
package textrepair

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// signature matches byte sequences typical of UTF-8 text decoded as Latin-1 or Windows-1252
var signature = regexp.MustCompile(`Ã|Â|â€|ðŸ|¢|¤|¨®|\x{FFFD}`)

// maxPasses bounds how many layers of double encoding are peeled off
const maxPasses = 3

// Repair returns s with mojibake undone and normalized to NFC.
// Only the garbled runs are rewritten; correct accents and emojis around them are kept.
func Repair(s string) string {
	if s == "" {
		return s
	}
	if !utf8.ValidString(s) {
		s = decodeLegacy(s)
	}
	for i := 0; i < maxPasses && HasMojibake(s); i++ {
		fixed := undoDoubleEncoding(s)
		if fixed == s {
			break
		}
		s = fixed
	}
	return norm.NFC.String(s)
}

// HasMojibake reports whether s carries a known garbling signature
func HasMojibake(s string) bool {
	return signature.MatchString(s)
}

// undoDoubleEncoding walks s and replaces every run of single-byte code page runes
// that spells a valid multi-byte UTF-8 sequence with the rune it encodes.
func undoDoubleEncoding(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(runes); {
		r, n := decodeRun(runes[i:])
		if n > 1 {
			b.WriteRune(r)
			i += n
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

// decodeRun tries to read one multi-byte UTF-8 rune from the code page bytes of
// the leading runes. It returns the number of runes consumed, or 0.
func decodeRun(runes []rune) (rune, int) {
	lead, ok := codePageByte(runes[0])
	if !ok || lead < 0xC2 || lead > 0xF4 {
		return 0, 0
	}
	size := 2
	switch {
	case lead >= 0xF0:
		size = 4
	case lead >= 0xE0:
		size = 3
	}
	if len(runes) < size {
		return 0, 0
	}

	buf := make([]byte, 0, utf8.UTFMax)
	buf = append(buf, lead)
	for _, r := range runes[1:size] {
		c, ok := codePageByte(r)
		if !ok || c < 0x80 || c > 0xBF {
			return 0, 0
		}
		buf = append(buf, c)
	}

	r, n := utf8.DecodeRune(buf)
	if r == utf8.RuneError || n != size {
		return 0, 0
	}
	return r, size
}

// codePageByte maps r to its Windows-1252 byte, falling back to Latin-1 for the
// C1 controls that Windows-1252 leaves undefined.
func codePageByte(r rune) (byte, bool) {
	if r < utf8.RuneSelf {
		return byte(r), true
	}
	if c, ok := charmap.Windows1252.EncodeRune(r); ok {
		return c, true
	}
	if r <= 0xFF {
		return byte(r), true
	}
	return 0, false
}

func decodeLegacy(s string) string {
	if out, err := charmap.Windows1252.NewDecoder().String(s); err == nil && utf8.ValidString(out) {
		return out
	}
	if out, err := charmap.ISO8859_1.NewDecoder().String(s); err == nil && utf8.ValidString(out) {
		return out
	}
	return strings.ToValidUTF8(s, "")
}
