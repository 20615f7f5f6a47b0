package cityname

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var numericRe = regexp.MustCompile(`^\d+(?:\s+\d+)*$`)

// Valid reports whether token is plausibly a city name rather than a
// street fragment, a number, or noise.
func (r *Rules) Valid(token string) bool {
	t := strings.TrimSpace(token)
	if utf8.RuneCountInString(t) < 2 {
		return false
	}
	if numericRe.MatchString(t) {
		return false
	}
	if !strings.ContainsFunc(t, unicode.IsLetter) {
		return false
	}
	if r.directional != nil && r.directional.MatchString(t) {
		return false
	}

	words := strings.Fields(strings.ToLower(t))
	for i, w := range words {
		if !r.streetTypes[stripNonWord(w)] {
			continue
		}
		// "St Louis", "Ft Myers": a leading abbreviation that expands.
		if i == 0 && len(words) > 1 {
			if _, ok := r.correction(w); ok {
				continue
			}
		}
		return false
	}
	return true
}

func stripNonWord(w string) string {
	return strings.Map(func(c rune) rune {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			return c
		}
		return -1
	}, w)
}
