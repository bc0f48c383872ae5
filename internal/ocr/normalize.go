package ocr

import (
	"regexp"
	"strings"
)

// confusion is one ordered character-confusion correction. Corrections
// only fire adjacent to two-decimal amounts or inside digit runs, so
// product names keep their letters.
type confusion struct {
	re   *regexp.Regexp
	repl string
}

var confusions = []confusion{
	// letter/digit swaps inside digit runs
	{regexp.MustCompile(`(\d)[oO](\d)`), "${1}0${2}"},
	{regexp.MustCompile(`(\d)[lI](\d)`), "${1}1${2}"},
	{regexp.MustCompile(`(\d)S(\d)`), "${1}5${2}"},
	{regexp.MustCompile(`(\d)B(\d)`), "${1}8${2}"},
	{regexp.MustCompile(`(\d)Z(\d)`), "${1}2${2}"},
	// leading letter before a two-decimal amount
	{regexp.MustCompile(`\b[oO](\d[.,]\d{2})\b`), "0${1}"},
	{regexp.MustCompile(`\b[lI](\d[.,]\d{2})\b`), "1${1}"},
	// stray whitespace around the decimal separator of an amount
	{regexp.MustCompile(`(\d)\s+([.,])(\d{2})\b`), "${1}${2}${3}"},
	{regexp.MustCompile(`(\d)([.,])\s+(\d{2})\b`), "${1}${2}${3}"},
	// split digit groups before an amount ("2 345,10" -> "2345,10")
	{regexp.MustCompile(`\b(\d{1,3})\s+(\d{3}[.,]\d{2})\b`), "${1}${2}"},
	// whitespace between an amount and its currency symbol
	{regexp.MustCompile(`(\d)\s+([€$£])`), "${1}${2}"},
	{regexp.MustCompile(`([€$£])\s+(\d)`), "${1}${2}"},
}

var (
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
)

// NormalizeLine fixes common OCR character confusions and whitespace
// noise in one raw line. Pure and total: never fails, never drops the
// line (empty lines are filtered by callers afterward).
func NormalizeLine(s string) string {
	if s == "" {
		return s
	}
	s = reTabs.ReplaceAllString(s, " ")
	for _, c := range confusions {
		s = c.re.ReplaceAllString(s, c.repl)
	}
	s = reMultiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeLines applies NormalizeLine to every line, preserving order
// and count.
func NormalizeLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = NormalizeLine(l)
	}
	return out
}
