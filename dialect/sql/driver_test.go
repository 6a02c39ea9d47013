package sql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sharegraph/dialect"
)

func TestOpenDB(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{dialect.Postgres, dialect.Postgres},
		{dialect.MySQL, dialect.MySQL},
		{dialect.SQLite, dialect.SQLite},
		{"sqlite3", dialect.SQLite},
		{"postgres-otel", dialect.Postgres},
		{"clickhouse", "clickhouse"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.driver, db)
			assert.Equal(t, tt.want, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)
	ctx := context.Background()

	t.Run("Rebound placeholders", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "works" SET payload = $1 WHERE id = $2`).
			WithArgs("{}", "_:w").
			WillReturnResult(sqlmock.NewResult(0, 1))
		err := drv.Exec(ctx, `UPDATE "works" SET payload = ? WHERE id = ?`, []any{"{}", "_:w"}, nil)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Result", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM "works"`).WillReturnResult(sqlmock.NewResult(0, 3))
		var res sql.Result
		require.NoError(t, drv.Exec(ctx, `DELETE FROM "works"`, []any{}, &res))
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("Errors", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM "works"`).WillReturnError(errors.New("constraint violation"))
		err := drv.Exec(ctx, `DELETE FROM "works"`, []any{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "constraint violation")

		assert.Error(t, drv.Exec(ctx, "SELECT 1", "not a slice", nil))
		assert.Error(t, drv.Exec(ctx, "SELECT 1", []any{}, new(int)))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, payload FROM "works" WHERE type = $1`).
		WithArgs("Preprint").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).
			AddRow("_:w", `{"title":"Dilbit"}`).
			AddRow("_:v", nil))

	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, `SELECT id, payload FROM "works" WHERE type = ?`, []any{"Preprint"}, rows))
	var got []string
	for rows.Next() {
		var (
			id      string
			payload NullString
		)
		require.NoError(t, rows.Scan(&id, &payload))
		got = append(got, id+"="+payload.String)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{`_:w={"title":"Dilbit"}`, "_:v="}, got)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, drv.Query(ctx, "SELECT 1", []any{}, nil))
	assert.Error(t, drv.Query(ctx, "SELECT 1", nil, &Rows{}))
}

func TestDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO `works` (id) VALUES (?)").WithArgs("_:w").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Exec(ctx, "INSERT INTO `works` (id) VALUES (?)", []any{"_:w"}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO `works` (id) VALUES (?)").WillReturnError(errors.New("duplicate"))
		mock.ExpectRollback()

		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		require.Error(t, tx.Exec(ctx, "INSERT INTO `works` (id) VALUES (?)", []any{"_:w"}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Begin fails", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
		_, err := drv.Tx(ctx)
		require.Error(t, err)
	})
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect, query, want string
	}{
		{dialect.Postgres, "SELECT 1", "SELECT 1"},
		{dialect.Postgres, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{dialect.Postgres, "a = '?' AND b = ?", "a = '?' AND b = $1"},
		{dialect.Postgres, "a = 'it''s?' AND b = ?", "a = 'it''s?' AND b = $1"},
		{dialect.MySQL, "a = ? AND b = ?", "a = ? AND b = ?"},
		{dialect.SQLite, "a = ?", "a = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Rebind(tt.dialect, tt.query))
		})
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`works`", Quote(dialect.MySQL, "works"))
	assert.Equal(t, "`a``b`", Quote(dialect.MySQL, "a`b"))
	assert.Equal(t, `"works"`, Quote(dialect.Postgres, "works"))
	assert.Equal(t, `"a""b"`, Quote(dialect.SQLite, `a"b`))
}

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(20*time.Millisecond),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	ctx := context.Background()

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("DELETE FROM works").WillDelayFor(40 * time.Millisecond).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM agents").WillReturnError(errors.New("locked"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 2").WillReturnRows(sqlmock.NewRows([]string{"2"}).AddRow(2))
	mock.ExpectCommit()

	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, drv.Exec(ctx, "DELETE FROM works", []any{}, nil))
	require.Error(t, drv.Exec(ctx, "DELETE FROM agents", []any{}, nil))

	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.IsType(t, &StatsTx{}, tx)
	require.NoError(t, tx.Query(ctx, "SELECT 2", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.EqualValues(t, 2, s.TotalQueries)
	assert.EqualValues(t, 2, s.TotalExecs)
	assert.EqualValues(t, 1, s.Errors)
	assert.EqualValues(t, 1, s.SlowQueries)
	assert.GreaterOrEqual(t, s.TotalDuration, 40*time.Millisecond)
	assert.Equal(t, []string{"DELETE FROM works"}, slow)
	assert.Contains(t, s.String(), "queries=2 execs=2")
}

func TestWithSlowQueryLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db), WithSlowThreshold(0), WithSlowQueryLog(logger))

	mock.ExpectExec("DELETE").WillDelayFor(time.Millisecond).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM works", []any{"x"}, nil))
	assert.Contains(t, buf.String(), "slow query detected")
	assert.Contains(t, buf.String(), "DELETE FROM works")
	assert.Contains(t, buf.String(), "args=1")
}
