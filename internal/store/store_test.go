package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedTexas(t *testing.T, s Store) model.State {
	t.Helper()
	ctx := context.Background()
	_, err := s.SeedStates(ctx, []model.State{{ID: "st-tx", Code: "TX", Name: "Texas"}})
	require.NoError(t, err)
	st, err := s.GetState(ctx, "st-tx")
	require.NoError(t, err)
	require.NotNil(t, st)
	return *st
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SeedStatesIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		states := []model.State{{Code: "TX", Name: "Texas"}, {Code: "OK", Name: "Oklahoma"}}
		n, err := s.SeedStates(ctx, states)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.SeedStates(ctx, states)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		got, err := s.ListStates(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Oklahoma", got[0].Name)
		assert.NotEmpty(t, got[0].ID)
	})

	t.Run("GetStateMissing", func(t *testing.T) {
		s := newStore(t)
		st, err := s.GetState(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, st)
	})

	t.Run("UpsertCitiesResolvesExisting", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		st := seedTexas(t, s)

		var first []model.City
		err := s.InTx(ctx, func(w Writer) error {
			var err error
			first, err = w.UpsertCities(ctx, st.ID, []string{"Austin", "Dallas"})
			return err
		})
		require.NoError(t, err)
		require.Len(t, first, 2)

		var second []model.City
		err = s.InTx(ctx, func(w Writer) error {
			var err error
			second, err = w.UpsertCities(ctx, st.ID, []string{"AUSTIN", "El Paso"})
			return err
		})
		require.NoError(t, err)
		require.Len(t, second, 2)
		assert.Equal(t, first[0].ID, second[0].ID)
		assert.Equal(t, "Austin", second[0].Name)

		cities, err := s.ListCities(ctx, st.ID)
		require.NoError(t, err)
		assert.Len(t, cities, 3)
	})

	t.Run("InsertAndListListings", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		st := seedTexas(t, s)

		var cityID string
		err := s.InTx(ctx, func(w Writer) error {
			cities, err := w.UpsertCities(ctx, st.ID, []string{"Austin"})
			if err != nil {
				return err
			}
			cityID = cities[0].ID
			n, err := w.InsertListings(ctx, []model.Listing{
				{ID: "l2", CityID: cityID, Business: "Beta", Category: "Cafe", Website: "https://beta.test"},
				{ID: "l1", CityID: cityID, Business: "Acme", Category: "Business", Rating: 4.5, Reviews: 120, Phone: "555-0100", Featured: true},
			})
			assert.Equal(t, int64(2), n)
			return err
		})
		require.NoError(t, err)

		listings, err := s.ListListings(ctx, cityID)
		require.NoError(t, err)
		require.Len(t, listings, 2)
		assert.Equal(t, "Acme", listings[0].Business)
		assert.InDelta(t, 4.5, listings[0].Rating, 0.0001)
		assert.Equal(t, 120, listings[0].Reviews)
		assert.True(t, listings[0].Featured)
		assert.False(t, listings[1].Featured)
	})

	t.Run("FailedTransactionLeavesNoCities", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		st := seedTexas(t, s)

		err := s.InTx(ctx, func(w Writer) error {
			cities, err := w.UpsertCities(ctx, st.ID, []string{"Waco"})
			if err != nil {
				return err
			}
			// No phone and no website violates the listings check.
			_, err = w.InsertListings(ctx, []model.Listing{{ID: "l1", CityID: cities[0].ID, Business: "Ghost"}})
			return err
		})
		require.Error(t, err)

		cities, err := s.ListCities(ctx, st.ID)
		require.NoError(t, err)
		assert.Empty(t, cities)
	})
}

func TestSQLiteStore_Suite(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestDedupeNames(t *testing.T) {
	got := dedupeNames([]string{"Austin", "austin ", "", "Dallas", "AUSTIN"})
	assert.Equal(t, []string{"Austin", "Dallas"}, got)
}
