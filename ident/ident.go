// Package ident parses the textual identifier captured out of a caption
// line ("1", "S1", "A1", "IV", "SIV", ...) into a [model.Identifier].
//
// The parsing rules are ported from the original extractor's idents.py
// (roman_to_int, is_roman_numeral, parse_figure_ident/parse_table_ident):
// an "S" prefix marks Supplementary regardless of what follows it (digits
// or Roman numerals), a leading letter followed by digits marks an
// appendix identifier, and everything else is either a plain Roman
// numeral or a plain number.
package ident

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/tsawler/attachcore/model"
)

var romanValues = map[rune]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}

// IsRoman reports whether s (case-insensitive) is composed only of Roman
// numeral letters.
func IsRoman(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range strings.ToUpper(s) {
		if _, ok := romanValues[r]; !ok {
			return false
		}
	}
	return true
}

// RomanToInt converts a Roman numeral string to its integer value using the
// standard subtractive-pair algorithm.
func RomanToInt(s string) int {
	s = strings.ToUpper(s)
	total, prev := 0, 0
	runes := []rune(s)
	for i := len(runes) - 1; i >= 0; i-- {
		v := romanValues[runes[i]]
		if v < prev {
			total -= v
		} else {
			total += v
		}
		prev = v
	}
	return total
}

// Parse turns raw identifier text (as extracted by a caption regex, e.g.
// "S1", "A1", "IV", "12") into a [model.Identifier]. ok is false if text
// cannot be parsed at all.
func Parse(text string) (model.Identifier, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return model.Identifier{}, false
	}
	upper := strings.ToUpper(t)

	if strings.HasPrefix(upper, "S") && len(upper) > 1 {
		rest := strings.TrimSpace(upper[1:])
		// SA1-style: S + letter + digits => supplementary appendix.
		if len(rest) > 1 && unicode.IsLetter(rune(rest[0])) && !IsRoman(rest) {
			if n, err := strconv.Atoi(rest[1:]); err == nil {
				return model.NewSupplementaryAppendix(rune(rest[0]), n), true
			}
		}
		if n, err := strconv.Atoi(rest); err == nil {
			return model.NewSupplementary(n), true
		}
		if IsRoman(rest) {
			return model.Identifier{
				Scheme: model.SchemeSupplementary,
				Num:    RomanToInt(rest),
				Text:   "S" + rest,
			}, true
		}
		return model.Identifier{}, false
	}

	// Appendix form: a leading letter followed by digits, e.g. "A1".
	if len(t) > 1 && unicode.IsLetter(rune(t[0])) && !IsRoman(t) {
		if n, err := strconv.Atoi(t[1:]); err == nil {
			return model.NewAppendix(unicode.ToUpper(rune(t[0])), n), true
		}
	}

	if IsRoman(t) {
		return model.NewRoman(RomanToInt(t), upper), true
	}

	if n, err := strconv.Atoi(t); err == nil {
		return model.NewNumeric(n), true
	}

	return model.Identifier{}, false
}
