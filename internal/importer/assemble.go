package importer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sells-group/directory-cli/internal/ingest"
	"github.com/sells-group/directory-cli/internal/model"
)

const defaultCategory = "Business"

var (
	leadingDecimal = regexp.MustCompile(`^[-+]?(?:\d+\.?\d*|\.\d+)`)
	leadingInteger = regexp.MustCompile(`^[-+]?\d+`)
)

// Assemble builds a listing for a resolved row.
func Assemble(row ingest.Row, cityID string) model.Listing {
	category := strings.TrimSpace(row.Category)
	if category == "" {
		category = defaultCategory
	}
	return model.Listing{
		ID:       uuid.New().String(),
		CityID:   cityID,
		Business: strings.TrimSpace(row.Business),
		Category: category,
		Rating:   parseRating(row.ReviewRating),
		Reviews:  parseReviews(row.NumberOfReviews),
		Address:  strings.TrimSpace(row.Address),
		Website:  strings.TrimSpace(row.Website),
		Phone:    strings.TrimSpace(row.Phone),
		Email:    strings.TrimSpace(row.Email),
		Featured: parseFeatured(row.Featured),
	}
}

// KeepListing reports whether a listing carries enough contact info to be
// persisted.
func KeepListing(l model.Listing) bool {
	return l.HasContact()
}

// parseRating reads the leading decimal number, so "4.5 stars" is 4.5.
func parseRating(s string) float64 {
	m := leadingDecimal.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseReviews reads the leading integer, ignoring thousands separators.
func parseReviews(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	m := leadingInteger.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return v
}

func parseFeatured(s string) bool {
	switch s {
	case "true", "1", "yes":
		return true
	}
	return false
}
