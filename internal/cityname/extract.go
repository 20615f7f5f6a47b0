package cityname

import (
	"regexp"
	"strings"
)

var zipRe = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)

// Extract returns the city portion of a comma-delimited address.
//
// With three or more segments the second segment is tried first, since the
// dominant format is "street, city, state zip, country". If that fails
// validation, or there are only two segments, the second-to-last segment
// is tried. State codes, trailing state names, and ZIP codes are stripped
// from the candidate before validation.
func (r *Rules) Extract(address string) (string, bool) {
	segs := splitSegments(address)

	if len(segs) >= 3 {
		if c := r.stripRegion(segs[1]); r.Valid(c) {
			return c, true
		}
	}
	if len(segs) >= 2 {
		if c := r.stripRegion(segs[len(segs)-2]); r.Valid(c) {
			return c, true
		}
	}
	return "", false
}

func splitSegments(address string) []string {
	var segs []string
	for _, s := range strings.Split(address, ",") {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// stripRegion removes ZIP codes, state codes, and a trailing full state
// name from one address segment. A code is dropped in any case when it
// ends the segment, and anywhere past the first word when written in upper
// case inside a mixed-case segment. A leading code stays unless the whole
// segment is codes, so "LA CROSSE" and "MT VERNON" survive.
func (r *Rules) stripRegion(seg string) string {
	seg = zipRe.ReplaceAllString(seg, " ")

	words := strings.Fields(seg)
	codes := make([]bool, len(words))
	allCodes := true
	for i, w := range words {
		codes[i] = r.stateCodes[strings.ToUpper(strings.Trim(w, ".,;:"))]
		allCodes = allCodes && codes[i]
	}
	if allCodes {
		return ""
	}

	trailing := len(words)
	for trailing > 1 && codes[trailing-1] {
		trailing--
	}
	mixed := seg != strings.ToUpper(seg)

	kept := make([]string, 0, len(words))
	for i, w := range words {
		if i > 0 && codes[i] {
			bare := strings.Trim(w, ".,;:")
			if i >= trailing || (mixed && bare == strings.ToUpper(bare)) {
				continue
			}
		}
		kept = append(kept, w)
	}
	words = kept

	for _, name := range r.stateNames {
		if len(words) <= len(name) {
			continue
		}
		tail := words[len(words)-len(name):]
		if equalFoldWords(tail, name) {
			words = words[:len(words)-len(name)]
			break
		}
	}

	return strings.Trim(strings.Join(words, " "), " .,;:-")
}

func equalFoldWords(got, want []string) bool {
	for i := range want {
		if !strings.EqualFold(strings.Trim(got[i], ".,;:"), want[i]) {
			return false
		}
	}
	return true
}
