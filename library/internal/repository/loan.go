package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

// LoanRepository reads loans and opens the unit of work that mutates a loan
// together with its book.
type LoanRepository interface {
	GetLoan(ctx context.Context, id int64) (model.Loan, error)
	ListLoans(ctx context.Context, filter model.LoanFilter, now time.Time) (model.ListLoans, error)
	OpenLoans(ctx context.Context, userID int64) ([]model.Loan, error)
	CountOpenLoans(ctx context.Context, userID int64) (int, error)
	OverdueLoans(ctx context.Context, now time.Time) ([]model.Loan, error)
	DueBetween(ctx context.Context, from, to time.Time) ([]model.Loan, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	WithinTx(ctx context.Context, fn func(tx LoanTx) error) error
}

// LoanTx is the set of statements run inside one borrow, return or extend.
type LoanTx interface {
	LockUser(ctx context.Context, id int64) (model.User, error)
	CountOpenLoans(ctx context.Context, userID int64) (int, error)
	HasOpenLoan(ctx context.Context, userID, bookID int64) (bool, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	// TakeCopy decrements availableCopies if a copy is left and reports whether it did.
	TakeCopy(ctx context.Context, bookID int64) (bool, error)
	// PutBackCopy increments availableCopies, never above totalCopies.
	PutBackCopy(ctx context.Context, bookID int64) error
	InsertLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	LockLoan(ctx context.Context, id int64) (model.Loan, error)
	MarkReturned(ctx context.Context, id int64, at time.Time) (bool, error)
	SetDueDate(ctx context.Context, id int64, due, now time.Time) (bool, error)
}

var loanColumns = []string{
	"l.id", "l.loan_uid", "l.user_id", "l.book_id", "l.borrowed_at", "l.due_date", "l.returned_at",
	`bk.id as "book.id"`, `bk.title as "book.title"`, `bk.isbn as "book.isbn"`,
	`u.id as "user.id"`, `u.email as "user.email"`,
	`u.first_name as "user.first_name"`, `u.last_name as "user.last_name"`,
}

func selectLoans(columns ...string) sq.SelectBuilder {
	return qb.Select(columns...).
		From(loansTableName + " l").
		Join(booksTableName + " bk on bk.id = l.book_id").
		Join(usersTableName + " u on u.id = l.user_id")
}

var openLoan = sq.Eq{"l.returned_at": nil}

func statusFilter(status model.Status, now time.Time) sq.Sqlizer {
	switch status {
	case model.StatusReturned:
		return sq.NotEq{"l.returned_at": nil}
	case model.StatusOverdue:
		return sq.And{openLoan, sq.Lt{"l.due_date": now}}
	case model.StatusActive:
		return sq.And{openLoan, sq.GtOrEq{"l.due_date": now}}
	}
	return sq.And{}
}

func (r *repository) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	var loan model.Loan
	if err := get(ctx, r.db, &loan, selectLoans(loanColumns...).Where(sq.Eq{"l.id": id})); err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) ListLoans(ctx context.Context, filter model.LoanFilter, now time.Time) (model.ListLoans, error) {
	where := sq.And{statusFilter(filter.Status, now)}
	if filter.UserID != 0 {
		where = append(where, sq.Eq{"l.user_id": filter.UserID})
	}

	var total int
	if err := get(ctx, r.db, &total, selectLoans("count(*)").Where(where)); err != nil {
		return model.ListLoans{}, err
	}

	q := paginate(selectLoans(loanColumns...).Where(where).OrderBy("l.borrowed_at desc", "l.id desc"),
		filter.Page, filter.Size)
	loans := make([]model.Loan, 0)
	if err := list(ctx, r.db, &loans, q); err != nil {
		return model.ListLoans{}, err
	}
	return model.ListLoans{
		Paging: model.Paging{
			Page:          filter.Page,
			PageSize:      filter.Size,
			TotalElements: total,
		},
		Items: loans,
	}, nil
}

func (r *repository) OpenLoans(ctx context.Context, userID int64) ([]model.Loan, error) {
	return r.loans(ctx, sq.And{openLoan, sq.Eq{"l.user_id": userID}})
}

func (r *repository) CountOpenLoans(ctx context.Context, userID int64) (int, error) {
	return countOpenLoans(ctx, r.db, userID)
}

func (r *repository) OverdueLoans(ctx context.Context, now time.Time) ([]model.Loan, error) {
	return r.loans(ctx, sq.And{openLoan, sq.Lt{"l.due_date": now}})
}

func (r *repository) DueBetween(ctx context.Context, from, to time.Time) ([]model.Loan, error) {
	return r.loans(ctx, sq.And{openLoan, sq.GtOrEq{"l.due_date": from}, sq.Lt{"l.due_date": to}})
}

func (r *repository) loans(ctx context.Context, where sq.Sqlizer) ([]model.Loan, error) {
	loans := make([]model.Loan, 0)
	if err := list(ctx, r.db, &loans, selectLoans(loanColumns...).Where(where).OrderBy("l.due_date", "l.id")); err != nil {
		return nil, err
	}
	return loans, nil
}

func countOpenLoans(ctx context.Context, db dbtx, userID int64) (int, error) {
	var n int
	err := get(ctx, db, &n, qb.Select("count(*)").
		From(loansTableName).
		Where(sq.Eq{"user_id": userID, "returned_at": nil}))
	return n, err
}

// WithinTx runs fn in a transaction, committing only when fn succeeds.
func (r *repository) WithinTx(ctx context.Context, fn func(tx LoanTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "BeginTxx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Error("tx rollback", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(&loanTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "Commit")
	}
	return nil
}

type loanTx struct {
	tx dbtx
}

func (t *loanTx) LockUser(ctx context.Context, id int64) (model.User, error) {
	return getUser(ctx, t.tx, lockUserQuery(id))
}

func (t *loanTx) CountOpenLoans(ctx context.Context, userID int64) (int, error) {
	return countOpenLoans(ctx, t.tx, userID)
}

func (t *loanTx) HasOpenLoan(ctx context.Context, userID, bookID int64) (bool, error) {
	var exists bool
	err := get(ctx, t.tx, &exists, qb.Select("count(*) > 0").
		From(loansTableName).
		Where(sq.Eq{"user_id": userID, "book_id": bookID, "returned_at": nil}))
	return exists, err
}

func (t *loanTx) GetBook(ctx context.Context, id int64) (model.Book, error) {
	var book model.Book
	err := get(ctx, t.tx, &book, selectBooks(bookColumns...).Where(sq.Eq{"b.id": id}))
	return book, err
}

func (t *loanTx) TakeCopy(ctx context.Context, bookID int64) (bool, error) {
	n, err := exec(ctx, t.tx, takeCopyQuery(bookID))
	return n == 1, err
}

func (t *loanTx) PutBackCopy(ctx context.Context, bookID int64) error {
	_, err := exec(ctx, t.tx, putBackCopyQuery(bookID))
	return err
}

func (t *loanTx) InsertLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	if loan.LoanUid == "" {
		loan.LoanUid = uuid.NewString()
	}
	q := qb.Insert(loansTableName).
		Columns("loan_uid", "user_id", "book_id", "borrowed_at", "due_date").
		Values(loan.LoanUid, loan.UserID, loan.BookID, loan.BorrowedAt, loan.DueDate).
		Suffix("returning id")
	if err := get(ctx, t.tx, &loan.ID, q); err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

func (t *loanTx) LockLoan(ctx context.Context, id int64) (model.Loan, error) {
	var loan model.Loan
	err := get(ctx, t.tx, &loan, selectLoans(loanColumns...).
		Where(sq.Eq{"l.id": id}).
		Suffix("for update of l"))
	return loan, err
}

func (t *loanTx) MarkReturned(ctx context.Context, id int64, at time.Time) (bool, error) {
	n, err := exec(ctx, t.tx, markReturnedQuery(id, at))
	return n == 1, err
}

func (t *loanTx) SetDueDate(ctx context.Context, id int64, due, now time.Time) (bool, error) {
	n, err := exec(ctx, t.tx, setDueDateQuery(id, due, now))
	return n == 1, err
}

// lockUserQuery serializes borrows of one user so the loan cap is counted once.
func lockUserQuery(id int64) sq.SelectBuilder {
	return qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"id": id}).
		Suffix("for update")
}

// takeCopyQuery touches no row when the last copy is gone.
func takeCopyQuery(bookID int64) sq.UpdateBuilder {
	return qb.Update(booksTableName).
		Set("available_copies", sq.Expr("available_copies - 1")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": bookID}).
		Where(sq.Gt{"available_copies": 0})
}

func putBackCopyQuery(bookID int64) sq.UpdateBuilder {
	return qb.Update(booksTableName).
		Set("available_copies", sq.Expr("least(available_copies + 1, total_copies)")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": bookID})
}

// markReturnedQuery touches no row when the loan is already closed.
func markReturnedQuery(id int64, at time.Time) sq.UpdateBuilder {
	return qb.Update(loansTableName).
		Set("returned_at", at).
		Where(sq.Eq{"id": id, "returned_at": nil})
}

// setDueDateQuery touches no row for a closed or overdue loan.
func setDueDateQuery(id int64, due, now time.Time) sq.UpdateBuilder {
	return qb.Update(loansTableName).
		Set("due_date", due).
		Where(sq.Eq{"id": id, "returned_at": nil}).
		Where(sq.GtOrEq{"due_date": now})
}

var _ LoanTx = (*loanTx)(nil)
