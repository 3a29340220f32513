package repository

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

func TestMapErr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: errors.Wrap(sql.ErrNoRows, "get"), want: errs.ErrNotFound},
		{name: "unique", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: errs.ErrAlreadyExists},
		{name: "fk", err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, want: errs.ErrInUse},
		{name: "check", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, want: errs.ErrInvalidArgument},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, mapErr(tt.err))
		})
	}

	other := errors.New("conn reset")
	require.Equal(t, other, mapErr(other))
}

func TestBookFilter(t *testing.T) {
	t.Parallel()
	query, args, err := selectBooks("count(*)").Where(bookFilter(model.BookFilter{})).ToSql()
	require.NoError(t, err)
	require.Contains(t, query, "WHERE (1=1)")
	require.Empty(t, args)

	query, args, err = selectBooks("count(*)").Where(bookFilter(model.BookFilter{
		Query:         "tolkien",
		CategoryID:    3,
		AvailableOnly: true,
	})).ToSql()
	require.NoError(t, err)
	require.Contains(t, query, `b.title ILIKE $1 ESCAPE '\'`)
	require.Contains(t, query, `a.last_name ILIKE $4 ESCAPE '\'`)
	require.Contains(t, query, "c.id = $5")
	require.Contains(t, query, "b.available_copies > $6")
	require.Equal(t, []interface{}{"%tolkien%", "%tolkien%", "%tolkien%", "%tolkien%", int64(3), 0}, args)
}

func TestLikePatterns(t *testing.T) {
	t.Parallel()
	require.Equal(t, "%tolkien%", containsPattern("tolkien"))
	require.Equal(t, `%100\%\_pure\\%`, containsPattern(`100%_pure\`))
	require.Equal(t, `dune\_%`, prefixPattern("dune_"))

	query, args, err := ilikeAny(prefixPattern("50%"), "b.title", "b.isbn").ToSql()
	require.NoError(t, err)
	require.Equal(t, `(b.title ILIKE ? ESCAPE '\' OR b.isbn ILIKE ? ESCAPE '\')`, query)
	require.Equal(t, []interface{}{`50\%%`, `50\%%`}, args)
}

func TestStatusFilter(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	query, args, err := statusFilter(model.StatusOverdue, now).ToSql()
	require.NoError(t, err)
	require.Equal(t, "(l.returned_at IS NULL AND l.due_date < ?)", query)
	require.Equal(t, []interface{}{now}, args)

	query, _, err = statusFilter(model.StatusReturned, now).ToSql()
	require.NoError(t, err)
	require.Equal(t, "l.returned_at IS NOT NULL", query)

	query, args, err = statusFilter("", now).ToSql()
	require.NoError(t, err)
	require.Equal(t, "(1=1)", query)
	require.Empty(t, args)
}

func TestLoanTxQueries(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due := now.Add(14 * 24 * time.Hour)

	tests := []struct {
		name  string
		query interface {
			ToSql() (string, []interface{}, error)
		}
		want     string
		wantArgs []interface{}
	}{
		{
			name:     "take copy",
			query:    takeCopyQuery(5),
			want:     "UPDATE books SET available_copies = available_copies - 1, updated_at = now() WHERE id = $1 AND available_copies > $2",
			wantArgs: []interface{}{int64(5), 0},
		},
		{
			name:     "put back copy",
			query:    putBackCopyQuery(5),
			want:     "UPDATE books SET available_copies = least(available_copies + 1, total_copies), updated_at = now() WHERE id = $1",
			wantArgs: []interface{}{int64(5)},
		},
		{
			name:     "mark returned",
			query:    markReturnedQuery(3, now),
			want:     "UPDATE loans SET returned_at = $1 WHERE id = $2 AND returned_at IS NULL",
			wantArgs: []interface{}{now, int64(3)},
		},
		{
			name:     "set due date",
			query:    setDueDateQuery(3, due, now),
			want:     "UPDATE loans SET due_date = $1 WHERE id = $2 AND returned_at IS NULL AND due_date >= $3",
			wantArgs: []interface{}{due, int64(3), now},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := tt.query.ToSql()
			require.NoError(t, err)
			require.Equal(t, tt.want, query)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestLockUserQuery(t *testing.T) {
	t.Parallel()
	query, args, err := lockUserQuery(7).ToSql()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(query, "SELECT id, email, password, "))
	require.True(t, strings.HasSuffix(query, " FROM users WHERE id = $1 for update"))
	require.Equal(t, []interface{}{int64(7)}, args)
}
