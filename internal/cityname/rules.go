// Package cityname pulls a city name out of a freeform US postal address,
// rejects street fragments and noise, and normalizes the result into the
// canonical form used to match and create city records.
package cityname

import (
	"regexp"
	"sort"
	"strings"
)

// Tables is the lookup data behind a Rules value.
type Tables struct {
	// Corrections maps a lower-cased word (with or without trailing
	// punctuation) to its expansion, e.g. "st" -> "saint".
	Corrections map[string]string
	// States maps an upper-case two-letter code to the full state name.
	States map[string]string
	// StreetTypes are lower-case words that mark a street fragment.
	StreetTypes []string
	// Directionals are lower-case words that, followed by a number, mark a
	// numbered street ("North 5").
	Directionals []string
}

// DefaultTables returns a fresh copy of the built-in tables.
func DefaultTables() Tables {
	corrections := map[string]string{
		"st": "saint", "st.": "saint",
		"ste": "sainte", "ste.": "sainte",
		"mt": "mount", "mt.": "mount",
		"ft": "fort", "ft.": "fort",
		"pt": "point", "pt.": "point",
		"n": "north", "n.": "north",
		"s": "south", "s.": "south",
		"e": "east", "e.": "east",
		"w": "west", "w.": "west",
		"hts": "heights", "hts.": "heights",
		"spgs": "springs", "spgs.": "springs",
		"jct": "junction", "jct.": "junction",
	}
	states := map[string]string{
		"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
		"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
		"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
		"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
		"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
		"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
		"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
		"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
		"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
		"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
		"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
		"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
		"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
	}
	return Tables{
		Corrections: corrections,
		States:      states,
		StreetTypes: []string{
			"street", "st", "avenue", "ave", "road", "rd", "boulevard", "blvd",
			"drive", "dr", "lane", "ln", "court", "ct", "place", "pl",
			"way", "parkway", "pkwy",
		},
		Directionals: []string{"north", "south", "east", "west", "n", "s", "e", "w", "ne", "nw", "se", "sw"},
	}
}

// Rules extracts, validates, and normalizes city names. A Rules value is
// immutable after construction and safe for concurrent use.
type Rules struct {
	corrections map[string]string
	stateCodes  map[string]bool
	stateNames  [][]string // lower-cased words, longest names first
	streetTypes map[string]bool
	directional *regexp.Regexp
}

// NewRules builds Rules from t. The tables are copied.
func NewRules(t Tables) *Rules {
	r := &Rules{
		corrections: make(map[string]string, len(t.Corrections)),
		stateCodes:  make(map[string]bool, len(t.States)),
		streetTypes: make(map[string]bool, len(t.StreetTypes)),
	}
	for k, v := range t.Corrections {
		r.corrections[strings.ToLower(k)] = strings.ToLower(v)
	}
	for code, name := range t.States {
		r.stateCodes[strings.ToUpper(code)] = true
		r.stateNames = append(r.stateNames, strings.Fields(strings.ToLower(name)))
	}
	sort.Slice(r.stateNames, func(i, j int) bool {
		if len(r.stateNames[i]) != len(r.stateNames[j]) {
			return len(r.stateNames[i]) > len(r.stateNames[j])
		}
		return strings.Join(r.stateNames[i], " ") < strings.Join(r.stateNames[j], " ")
	})
	for _, s := range t.StreetTypes {
		r.streetTypes[strings.ToLower(s)] = true
	}

	dirs := make([]string, 0, len(t.Directionals))
	for _, d := range t.Directionals {
		dirs = append(dirs, regexp.QuoteMeta(strings.ToLower(d)))
	}
	if len(dirs) > 0 {
		r.directional = regexp.MustCompile(`(?i)^(?:` + strings.Join(dirs, "|") + `)\.?\s+\d`)
	}
	return r
}

// DefaultRules returns Rules built from DefaultTables.
func DefaultRules() *Rules {
	return NewRules(DefaultTables())
}

// correction looks up w, then w stripped of non-word characters.
func (r *Rules) correction(w string) (string, bool) {
	if c, ok := r.corrections[w]; ok {
		return c, true
	}
	c, ok := r.corrections[stripNonWord(w)]
	return c, ok
}
