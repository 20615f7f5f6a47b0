package cityname

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize lower-cases token, expands abbreviations word by word, and
// title-cases the result. Stored city names and extracted candidates go
// through the same function so "St Louis" and "saint louis" share a key.
func (r *Rules) Normalize(token string) string {
	words := strings.Fields(strings.ToLower(token))
	for i, w := range words {
		if c, ok := r.correction(w); ok {
			words[i] = c
		}
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// Resolve runs Extract and Normalize, then validates the normalized form.
// It returns the canonical city name for an address.
func (r *Rules) Resolve(address string) (string, error) {
	candidate, ok := r.Extract(address)
	if !ok {
		return "", ErrNoCity
	}
	name := r.Normalize(candidate)
	if !r.Valid(name) {
		return "", &InvalidNameError{Name: name}
	}
	return name, nil
}
