package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dcastano/reciboscan/internal/registry"
)

// DateHint is an optional caller-supplied disambiguation for two-digit
// ambiguous dates. It is consulted only when structural and keyword
// signals are both silent.
type DateHint struct {
	DayFirst bool
}

// DetectDayFirst resolves the day/month ordering for ambiguous dates.
// Tie-break order: structural signal (a component exceeding 12) >
// locale keyword density > caller hint > day-first default.
func DetectDayFirst(lines []string, preset *registry.RegionalPreset, hint *DateHint) bool {
	text := strings.Join(lines, "\n")
	for _, pat := range registry.DefaultDatePatterns() {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			if len(m) < 4 || len(m[1]) == 4 {
				continue // ISO, no ambiguity
			}
			a, errA := strconv.Atoi(m[1])
			b, errB := strconv.Atoi(m[2])
			if errA != nil || errB != nil {
				continue
			}
			if a > 12 && b <= 12 {
				return true
			}
			if b > 12 && a <= 12 {
				return false
			}
		}
	}
	if preset != nil {
		folded := registry.Fold(text)
		hits := 0
		for _, k := range preset.LocaleKeywords {
			if strings.Contains(folded, registry.Fold(k)) {
				hits++
			}
		}
		if hits >= 2 {
			return preset.DayFirst
		}
	}
	if hint != nil {
		return hint.DayFirst
	}
	return true
}

// ExtractDate scans lines in order against the given patterns (most
// specific first) and returns the first plausible date, with time of
// day when the pattern captured one.
func ExtractDate(lines []string, patterns []*regexp.Regexp, dayFirst bool) *time.Time {
	if len(patterns) == 0 {
		patterns = registry.DefaultDatePatterns()
	}
	for _, pat := range patterns {
		for _, line := range lines {
			m := pat.FindStringSubmatch(line)
			if len(m) < 4 {
				continue
			}
			t, ok := buildDate(m, dayFirst)
			if ok {
				return t
			}
		}
	}
	return nil
}

func buildDate(m []string, dayFirst bool) (*time.Time, bool) {
	a, errA := strconv.Atoi(m[1])
	b, errB := strconv.Atoi(m[2])
	c, errC := strconv.Atoi(m[3])
	if errA != nil || errB != nil || errC != nil {
		return nil, false
	}

	var day, month, year int
	switch {
	case len(m[1]) == 4:
		// ISO: year first
		year, month, day = a, b, c
	default:
		year = c
		if year < 100 {
			year += 2000
		}
		day, month = a, b
		// structural disambiguation beats the caller's ordering
		if day <= 12 && month > 12 {
			day, month = month, day
		} else if day <= 12 && month <= 12 && !dayFirst {
			day, month = month, day
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil, false
	}
	if year < 2000 || year > 2100 {
		return nil, false
	}

	hour, minute := 0, 0
	if len(m) >= 6 && m[4] != "" && m[5] != "" {
		h, errH := strconv.Atoi(m[4])
		mi, errM := strconv.Atoi(m[5])
		if errH == nil && errM == nil && h < 24 && mi < 60 {
			hour, minute = h, mi
		}
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	return &t, true
}
