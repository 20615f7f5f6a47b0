package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertMissing_EmptyRows(t *testing.T) {
	n, err := InsertMissing(context.TODO(), nil, MergeSpec{
		Table:        "states",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInsertMissing_NoColumns(t *testing.T) {
	_, err := InsertMissing(context.TODO(), nil, MergeSpec{
		Table:        "states",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestInsertMissing_NoConflictKeys(t *testing.T) {
	_, err := InsertMissing(context.TODO(), nil, MergeSpec{
		Table:   "states",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestInsertMissing_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"id", "code", "name"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_states"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_states"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "states"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := InsertMissing(context.Background(), mock, MergeSpec{
		Table:        "states",
		Columns:      cols,
		ConflictKeys: []string{"code"},
	}, [][]any{{"a", "AL", "Alabama"}, {"b", "AK", "Alaska"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMissing_MergeFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"id", "code"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_states"}, cols).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO`).WillReturnError(fmt.Errorf("unique violation"))
	mock.ExpectRollback()

	_, err = InsertMissing(context.Background(), mock, MergeSpec{
		Table:        "states",
		Columns:      cols,
		ConflictKeys: []string{"code"},
	}, [][]any{{"a", "AL"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge into states")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeSQL(t *testing.T) {
	tests := []struct {
		name string
		spec MergeSpec
		want string
	}{
		{
			name: "single conflict key",
			spec: MergeSpec{Table: "states", Columns: []string{"code", "name"}, ConflictKeys: []string{"code"}},
			want: `INSERT INTO "states" ("code", "name") SELECT "code", "name" FROM "_stage_states" ON CONFLICT ("code") DO NOTHING`,
		},
		{
			name: "composite key, schema-qualified",
			spec: MergeSpec{Table: "directory.cities", Columns: []string{"id", "state_id", "name_key"}, ConflictKeys: []string{"state_id", "name_key"}},
			want: `INSERT INTO "directory"."cities" ("id", "state_id", "name_key") SELECT "id", "state_id", "name_key" FROM "_stage_directory_cities" ON CONFLICT ("state_id", "name_key") DO NOTHING`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeSQL(tt.spec, stagingTable(tt.spec.Table)))
		})
	}
}
