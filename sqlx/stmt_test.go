package sqlx

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"

	"github.com/kroma-labs/sentinel-db/dbtrace"
)

func TestStmt_GetContext(t *testing.T) {
	query := "SELECT id, name FROM users WHERE id = $1"

	tests := []struct {
		name       string
		id         int
		mockFn     func(sqlmock.Sqlmock)
		wantErr    assert.ErrorAssertionFunc
		want       user
		wantStatus codes.Code
	}{
		{
			name: "given valid prepared query, then scans into dest",
			id:   1,
			mockFn: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "John")
				mock.ExpectPrepare(regexp.QuoteMeta(query)).
					ExpectQuery().
					WithArgs(1).
					WillReturnRows(rows)
			},
			wantErr:    assert.NoError,
			want:       user{ID: 1, Name: "John"},
			wantStatus: codes.Unset,
		},
		{
			name: "given query returning no rows, then returns error",
			id:   999,
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare(regexp.QuoteMeta(query)).
					ExpectQuery().
					WithArgs(999).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr:    assert.Error,
			wantStatus: codes.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, sr := newTestDB(t, false)
			tt.mockFn(mock)

			stmt, err := db.PreparexContext(context.Background(), query)
			require.NoError(t, err)

			var got user
			err = stmt.GetContext(context.Background(), &got, tt.id)

			tt.wantErr(t, err)
			assert.Equal(t, tt.want, got)

			spans := sr.Ended()
			require.Len(t, spans, 2)
			assert.Equal(t, "sqlx.Preparex", spans[0].Name())
			assert.Equal(t, "SELECT orders", spans[1].Name())
			assert.Equal(t, tt.wantStatus, spans[1].Status().Code)
			assert.Equal(t, query, spanAttrs(spans[1].Attributes())["db.statement"])
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStmt_SelectContext(t *testing.T) {
	db, mock, sr := newTestDB(t, false)

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "John").AddRow(2, "Jane")
	mock.ExpectPrepare(regexp.QuoteMeta("SELECT id, name FROM users")).
		ExpectQuery().
		WillReturnRows(rows)

	stmt, err := db.PreparexContext(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)

	var got []user
	err = stmt.SelectContext(context.Background(), &got)

	require.NoError(t, err)
	assert.Equal(t, []user{{ID: 1, Name: "John"}, {ID: 2, Name: "Jane"}}, got)
	require.Len(t, sr.Ended(), 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStmt_ExecContext(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		mockFn       func(sqlmock.Sqlmock)
		wantErr      assert.ErrorAssertionFunc
		wantSpanName string
	}{
		{
			name:  "given prepared insert, then span is named after the operation",
			query: "INSERT INTO users (name) VALUES ($1)",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO users (name) VALUES ($1)")).
					ExpectExec().
					WithArgs("John").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			wantErr:      assert.NoError,
			wantSpanName: "INSERT",
		},
		{
			name:  "given prepared statement without known operation, then span uses the method name",
			query: "FROBNICATE users",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare(regexp.QuoteMeta("FROBNICATE users")).
					ExpectExec().
					WithArgs("John").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr:      assert.Error,
			wantSpanName: "sqlx.Stmt.Exec",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, sr := newTestDB(t, false)
			tt.mockFn(mock)

			stmt, err := db.PreparexContext(context.Background(), tt.query)
			require.NoError(t, err)

			_, err = stmt.ExecContext(context.Background(), "John")

			tt.wantErr(t, err)
			spans := sr.Ended()
			require.Len(t, spans, 2)
			assert.Equal(t, tt.wantSpanName, spans[1].Name())
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStmt_QueryRowxContext(t *testing.T) {
	db, mock, sr := newTestDB(t, false)

	mock.ExpectPrepare(regexp.QuoteMeta("SELECT name FROM users WHERE id = $1")).
		ExpectQuery().
		WithArgs(1).
		WillReturnError(sql.ErrConnDone)

	stmt, err := db.PreparexContext(context.Background(), "SELECT name FROM users WHERE id = $1")
	require.NoError(t, err)

	var name string
	err = stmt.QueryRowxContext(context.Background(), 1).Scan(&name)

	require.Error(t, err)
	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStmt_PreparedSQL(t *testing.T) {
	tests := []struct {
		name   string
		stmt   *Stmt
		want   string
		wantOK bool
	}{
		{
			name:   "given prepared query, then returns it",
			stmt:   &Stmt{query: "SELECT 1"},
			want:   "SELECT 1",
			wantOK: true,
		},
		{
			name: "given empty query, then reports absent",
			stmt: &Stmt{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.stmt.PreparedSQL()

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			assert.Empty(t, tt.stmt.PreparedStatementName())
		})
	}
}

func TestStmt_Unsafe(t *testing.T) {
	db, mock, _ := newTestDB(t, false)
	mock.ExpectPrepare(regexp.QuoteMeta("SELECT 1"))

	stmt, err := db.PreparexContext(context.Background(), "SELECT 1")
	require.NoError(t, err)

	unsafeStmt := stmt.Unsafe()

	require.NotNil(t, unsafeStmt)
	assert.Equal(t, stmt.query, unsafeStmt.query)
	assert.Equal(t, stmt.site, unsafeStmt.site)
}

func TestDB_PreparexContext(t *testing.T) {
	tests := []struct {
		name       string
		mockFn     func(sqlmock.Sqlmock)
		wantErr    assert.ErrorAssertionFunc
		wantSite   dbtrace.CallSite
		wantStatus codes.Code
	}{
		{
			name: "given prepare succeeds, then statement carries its call site",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare(regexp.QuoteMeta("UPDATE users SET name = $1"))
			},
			wantErr:    assert.NoError,
			wantSite:   dbtrace.CallDUI,
			wantStatus: codes.Unset,
		},
		{
			name: "given prepare fails, then returns error",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare(regexp.QuoteMeta("UPDATE users SET name = $1")).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr:    assert.Error,
			wantStatus: codes.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, sr := newTestDB(t, false)
			tt.mockFn(mock)

			stmt, err := db.PreparexContext(context.Background(), "UPDATE users SET name = $1")

			tt.wantErr(t, err)
			if stmt != nil {
				assert.Equal(t, tt.wantSite, stmt.site)
			}

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, "sqlx.Preparex", spans[0].Name())
			assert.Equal(t, tt.wantStatus, spans[0].Status().Code)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNamedStmt_ExecContext(t *testing.T) {
	db, mock, sr := newTestDB(t, false)

	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO users (id, name) VALUES ($1, $2)")).
		ExpectExec().
		WithArgs(7, "Ann").
		WillReturnResult(sqlmock.NewResult(7, 1))

	stmt, err := db.PrepareNamedContext(context.Background(),
		"INSERT INTO users (id, name) VALUES (:id, :name)",
	)
	require.NoError(t, err)

	_, err = stmt.ExecContext(context.Background(), user{ID: 7, Name: "Ann"})
	require.NoError(t, err)

	got, ok := stmt.PreparedSQL()
	assert.True(t, ok)
	assert.Equal(t, "INSERT INTO users (id, name) VALUES ($1, $2)", got)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "sqlx.PrepareNamed", spans[0].Name())
	assert.Equal(t, "INSERT", spans[1].Name())
	assert.Equal(t,
		"INSERT INTO users (id, name) VALUES ($1, $2)",
		spanAttrs(spans[1].Attributes())["db.statement"],
	)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNamedStmt_GetContext(t *testing.T) {
	db, mock, sr := newTestDB(t, false, dbtrace.WithDisableQuery())

	mock.ExpectPrepare(regexp.QuoteMeta("SELECT id, name FROM users WHERE id = $1")).
		ExpectQuery().
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "John"))

	stmt, err := db.PrepareNamedContext(context.Background(), "SELECT id, name FROM users WHERE id = :id")
	require.NoError(t, err)

	var got user
	err = stmt.GetContext(context.Background(), &got, map[string]interface{}{"id": 1})

	require.NoError(t, err)
	assert.Equal(t, user{ID: 1, Name: "John"}, got)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	attrs := spanAttrs(spans[1].Attributes())
	assert.Equal(t, "SELECT", attrs["db.operation"])
	assert.NotContains(t, attrs, "db.statement")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNamedStmt_MustExecContext_Panic(t *testing.T) {
	db, mock, _ := newTestDB(t, false)

	mock.ExpectPrepare(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		ExpectExec().
		WithArgs(1).
		WillReturnError(sql.ErrConnDone)

	stmt, err := db.PrepareNamedContext(context.Background(), "DELETE FROM users WHERE id = :id")
	require.NoError(t, err)

	assert.Panics(t, func() {
		stmt.MustExecContext(context.Background(), map[string]interface{}{"id": 1})
	})
}
