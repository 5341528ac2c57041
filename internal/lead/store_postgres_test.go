package lead

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresStore_FetchRefs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT id, phone, tags FROM leads ORDER BY id`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "phone", "tags"}).
			AddRow(int64(1), "(11) 91234-5678", []string{"vip"}).
			AddRow(int64(2), "21988880000", []string{}))

	refs, err := store.FetchRefs(context.Background())

	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, Ref{ID: 1, Phone: "(11) 91234-5678", Tags: []string{"vip"}}, refs[0])
	assert.Equal(t, int64(2), refs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FetchRefs_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT id, phone, tags FROM leads`).
		WillReturnError(errors.New("connection refused"))

	_, err = store.FetchRefs(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch refs")
}

func TestPostgresStore_InsertMany(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`INSERT INTO leads .+ RETURNING id, email`).
		WithArgs(anyArgs(20)...).
		WillReturnRows(pgxmock.NewRows([]string{"id", "email"}).
			AddRow(int64(10), "ana@example.com").
			AddRow(int64(11), "joao@example.com"))

	inserted, err := store.InsertMany(context.Background(), []Lead{
		{Name: "Ana", Email: "ana@example.com", Tags: []string{}},
		{Name: "João", Email: "joao@example.com", Tags: []string{}},
	})

	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.Equal(t, Inserted{ID: 10, Email: "ana@example.com"}, inserted[0])
	assert.Equal(t, Inserted{ID: 11, Email: "joao@example.com"}, inserted[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertMany_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	inserted, err := store.InsertMany(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertMany_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`INSERT INTO leads`).
		WillReturnError(errors.New("deadlock detected"))

	_, err = store.InsertMany(context.Background(), []Lead{{Name: "Ana"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert 1 rows")
}

func TestPostgresStore_UpdateOne(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectExec(`UPDATE leads SET`).
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.UpdateOne(context.Background(), 42, Lead{Name: "Ana", Tags: []string{"vip"}})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateOne_NoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectExec(`UPDATE leads SET`).
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateOne(context.Background(), 999, Lead{Name: "Ghost"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such lead")
}

func TestPostgresStore_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
