package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one data record keyed by canonical field names.
type Row struct {
	Line            int               `csv:"-"`
	Business        string            `csv:"business"`
	Category        string            `csv:"category"`
	ReviewRating    string            `csv:"review_rating"`
	NumberOfReviews string            `csv:"number_of_reviews"`
	Address         string            `csv:"address"`
	Website         string            `csv:"website"`
	Phone           string            `csv:"phone"`
	Email           string            `csv:"email"`
	Featured        string            `csv:"featured"`
	Extra           map[string]string `csv:"-"`

	keys []string
}

// Keys returns the canonical keys of the header the row was read with, in
// column order.
func (r Row) Keys() []string {
	return r.keys
}

func (r *Row) trim() {
	for _, f := range []*string{
		&r.Business, &r.Category, &r.ReviewRating, &r.NumberOfReviews,
		&r.Address, &r.Website, &r.Phone, &r.Email, &r.Featured,
	} {
		*f = strings.TrimSpace(*f)
	}
	for k, v := range r.Extra {
		r.Extra[k] = strings.TrimSpace(v)
	}
}

// mapHeader converts raw header cells to unique canonical keys.
func mapHeader(raw []string) []string {
	keys := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		key := CanonicalField(h)
		if key == "" {
			key = "column_" + strconv.Itoa(i+1)
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s_%d", key, n)
		}
		keys[i] = key
	}
	return keys
}
