package registry

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold uppercases s and strips diacritics, so keyword matching treats
// "Telefono" and "TELÉFONO" the same under OCR noise.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(out)
}

// ContainsKeyword reports whether the folded text contains any of the
// folded keywords.
func ContainsKeyword(text string, keywords []string) bool {
	return MatchKeyword(text, keywords) != ""
}

// MatchKeyword returns the first keyword found in text after folding,
// or "". A keyword edge that is a letter or digit must not touch a
// letter or digit in the text, so "IVA" never fires inside "DIVA".
func MatchKeyword(text string, keywords []string) string {
	folded := Fold(text)
	for _, k := range keywords {
		if containsDelimited(folded, Fold(k)) {
			return k
		}
	}
	return ""
}

func containsDelimited(text, kw string) bool {
	if kw == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		if delimited(text, i, kw) {
			return true
		}
		from = i + 1
	}
}

func delimited(text string, i int, kw string) bool {
	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)
	if isWordRune(first) && i > 0 {
		if prev, _ := utf8.DecodeLastRuneInString(text[:i]); isWordRune(prev) {
			return false
		}
	}
	if isWordRune(last) && i+len(kw) < len(text) {
		if next, _ := utf8.DecodeRuneInString(text[i+len(kw):]); isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
