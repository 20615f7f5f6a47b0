// Package ingest parses uploaded listing spreadsheets (CSV or XLSX) into
// rows keyed by canonical field names.
package ingest

import (
	"strings"
)

// Canonical field names.
const (
	FieldBusiness        = "business"
	FieldCategory        = "category"
	FieldReviewRating    = "review_rating"
	FieldNumberOfReviews = "number_of_reviews"
	FieldAddress         = "address"
	FieldWebsite         = "website"
	FieldPhone           = "phone"
	FieldEmail           = "email"
	FieldFeatured        = "featured"
)

// minTruncatedLen is the shortest header accepted as a truncated spelling,
// e.g. "Number o" for "Number of Reviews".
const minTruncatedLen = 8

// fieldSpellings lists known header spellings per canonical field, in
// normalized form (lower case, single spaces).
var fieldSpellings = []struct {
	field     string
	spellings []string
}{
	{FieldBusiness, []string{"business", "business name", "name"}},
	{FieldCategory, []string{"category", "categories"}},
	{FieldReviewRating, []string{"review rating", "rating"}},
	{FieldNumberOfReviews, []string{"number of reviews", "reviews", "review count"}},
	{FieldAddress, []string{"address", "full address", "street address"}},
	{FieldWebsite, []string{"website", "web site", "url"}},
	{FieldPhone, []string{"phone", "phone number", "telephone"}},
	{FieldEmail, []string{"email", "e mail", "email address"}},
	{FieldFeatured, []string{"featured", "is featured"}},
}

// CanonicalField maps a raw header cell to its canonical field name.
// Unknown headers fall back to a lower-cased, underscore-joined key.
func CanonicalField(header string) string {
	h := normalizeHeader(header)
	if h == "" {
		return ""
	}

	for _, f := range fieldSpellings {
		for _, s := range f.spellings {
			if h == s {
				return f.field
			}
		}
	}
	if len(h) >= minTruncatedLen {
		for _, f := range fieldSpellings {
			for _, s := range f.spellings {
				if strings.HasPrefix(s, h) {
					return f.field
				}
			}
		}
	}

	return strings.ReplaceAll(h, " ", "_")
}

func normalizeHeader(header string) string {
	h := strings.TrimPrefix(header, "\ufeff")
	h = strings.ToLower(h)
	h = strings.NewReplacer("_", " ", "-", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}
