package store

import (
	"context"

	"github.com/sells-group/directory-cli/internal/model"
)

// Store defines the persistence interface for the listing directory.
type Store interface {
	// States
	GetState(ctx context.Context, id string) (*model.State, error)
	ListStates(ctx context.Context) ([]model.State, error)
	SeedStates(ctx context.Context, states []model.State) (int64, error)

	// Cities and listings
	ListCities(ctx context.Context, stateID string) ([]model.City, error)
	ListListings(ctx context.Context, cityID string) ([]model.Listing, error)

	// InTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(w Writer) error) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Writer is the set of writes available inside InTx.
type Writer interface {
	// UpsertCities creates the named cities under stateID. Names already
	// present (by lower-cased name) resolve to the existing row, so the
	// result always has one city per distinct name key.
	UpsertCities(ctx context.Context, stateID string, names []string) ([]model.City, error)
	// InsertListings bulk-inserts listings and returns the number written.
	InsertListings(ctx context.Context, listings []model.Listing) (int64, error)
}

// listingColumns is the column order used for listing writes and reads.
var listingColumns = []string{
	"id", "city_id", "business", "category", "rating", "reviews",
	"address", "website", "phone", "email", "featured",
}

func listingValues(l model.Listing) []any {
	return []any{
		l.ID, l.CityID, l.Business, l.Category, l.Rating, l.Reviews,
		l.Address, l.Website, l.Phone, l.Email, l.Featured,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanListing(row scannable) (model.Listing, error) {
	var l model.Listing
	err := row.Scan(&l.ID, &l.CityID, &l.Business, &l.Category, &l.Rating, &l.Reviews,
		&l.Address, &l.Website, &l.Phone, &l.Email, &l.Featured)
	return l, err
}

// dedupeNames drops names that share a name key, keeping the first spelling.
func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		key := model.NameKey(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
