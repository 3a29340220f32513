package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/notify"
	"github.com/Astemirdum/library-loan-service/library/internal/policy"
	"github.com/Astemirdum/library-loan-service/library/internal/service"
	"github.com/Astemirdum/library-loan-service/pkg/auth"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type env struct {
	store    *memStore
	notifier *flakyNotifier
	clock    *clock
	svc      *service.LoanService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:    newMemStore(),
		notifier: &flakyNotifier{failOn: map[int]bool{}},
		clock:    &clock{now: t0},
	}
	log := zap.NewExample()
	dispatcher := notify.NewDispatcher(e.notifier, "library@example.com", log)
	e.svc = service.NewLoanService(e.store, dispatcher, service.DefaultLoanPolicy(), log, service.WithClock(e.clock.Now))
	return e
}

func reader(id int64, maxLoans int) model.User {
	return model.User{ID: id, Email: "reader@example.com", FirstName: "R", LastName: "Eader", IsActive: true, MaxLoans: maxLoans}
}

func profileOf(u model.User) auth.Profile {
	return u.Profile()
}

func requireReason(t *testing.T, err error, kind error, reason string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "got %v", err)
	require.EqualError(t, err, reason)
}

func TestLoanService_Borrow(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	u := e.store.addUser(reader(1, 3))
	b := e.store.addBook(model.Book{ID: 10, Title: "Dune", TotalCopies: 2, AvailableCopies: 2})

	loan, err := e.svc.Borrow(context.Background(), u.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, loan.Status)
	require.Equal(t, t0, loan.BorrowedAt)
	require.Equal(t, t0.Add(21*24*time.Hour), loan.DueDate)
	require.Nil(t, loan.ReturnedAt)
	require.Equal(t, "Dune", loan.Book.Title)
	require.Equal(t, 1, e.store.book(b.ID).AvailableCopies)
	require.Equal(t, []notify.Template{notify.TemplateLoanCreated}, e.notifier.templates())
	require.Equal(t, t0, e.notifier.sent[0].CreatedAt)

	_, err = e.svc.Borrow(context.Background(), u.ID, b.ID)
	requireReason(t, err, errs.ErrLoanRejected, policy.ReasonDuplicateLoan)
	require.Equal(t, 1, e.store.book(b.ID).AvailableCopies)
}

func TestLoanService_BorrowRejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		user   model.User
		book   model.Book
		loans  int
		reason string
	}{
		{
			name:   "inactive user",
			user:   model.User{ID: 1, MaxLoans: 3},
			book:   model.Book{ID: 10, TotalCopies: 1, AvailableCopies: 1},
			reason: policy.ReasonUserInactive,
		},
		{
			name:   "no copies left",
			user:   reader(1, 3),
			book:   model.Book{ID: 10, TotalCopies: 1, AvailableCopies: 0},
			reason: policy.ReasonBookUnavailable,
		},
		{
			name:   "loan cap reached",
			user:   reader(1, 2),
			book:   model.Book{ID: 10, TotalCopies: 1, AvailableCopies: 1},
			loans:  2,
			reason: policy.ReasonLoanCap(2),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			e.store.addUser(tt.user)
			e.store.addBook(tt.book)
			for i := 0; i < tt.loans; i++ {
				e.store.addBook(model.Book{ID: int64(100 + i), TotalCopies: 1})
				e.store.addLoan(model.NewLoan(tt.user.ID, int64(100+i), t0, model.DefaultLoanDuration))
			}

			_, err := e.svc.Borrow(context.Background(), tt.user.ID, tt.book.ID)
			requireReason(t, err, errs.ErrLoanRejected, tt.reason)
			require.Equal(t, tt.book.AvailableCopies, e.store.book(tt.book.ID).AvailableCopies)
			require.Empty(t, e.notifier.templates())
		})
	}
}

func TestLoanService_BorrowRollsBackOnStorageFailure(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	u := e.store.addUser(reader(1, 3))
	b := e.store.addBook(model.Book{ID: 10, TotalCopies: 1, AvailableCopies: 1})
	e.store.failInsert = errors.New("connection reset by peer")

	_, err := e.svc.Borrow(context.Background(), u.ID, b.ID)
	require.True(t, errors.Is(err, errs.ErrLoanOperationFailed))
	require.NotContains(t, err.Error(), "connection reset")
	require.Equal(t, 1, e.store.book(b.ID).AvailableCopies)
	require.Empty(t, e.notifier.templates())
}

func TestLoanService_BorrowSurvivesNotificationFailure(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.notifier.failOn[1] = true
	u := e.store.addUser(reader(1, 3))
	b := e.store.addBook(model.Book{ID: 10, TotalCopies: 1, AvailableCopies: 1})

	loan, err := e.svc.Borrow(context.Background(), u.ID, b.ID)
	require.NoError(t, err)
	require.NotZero(t, loan.ID)
	require.Equal(t, 0, e.store.book(b.ID).AvailableCopies)
}

func TestLoanService_LastCopyRace(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	b := e.store.addBook(model.Book{ID: 10, TotalCopies: 1, AvailableCopies: 1})
	const readers = 20
	for i := 1; i <= readers; i++ {
		e.store.addUser(reader(int64(i), 3))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 1; i <= readers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := e.svc.Borrow(context.Background(), userID, b.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, errs.ErrLoanRejected) {
				rejected++
			}
		}(int64(i))
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, readers-1, rejected)
	require.Equal(t, 0, e.store.book(b.ID).AvailableCopies)
}

func TestLoanService_CopiesStayInRange(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	b := e.store.addBook(model.Book{ID: 10, TotalCopies: 2, AvailableCopies: 2})
	users := []model.User{e.store.addUser(reader(1, 5)), e.store.addUser(reader(2, 5)), e.store.addUser(reader(3, 5))}

	var open []model.Loan
	for step := 0; step < 12; step++ {
		u := users[step%len(users)]
		if step%4 == 3 && len(open) > 0 {
			l := open[0]
			open = open[1:]
			_, err := e.svc.Return(context.Background(), profileOf(users[l.UserID-1]), l.ID)
			require.NoError(t, err)
		} else if loan, err := e.svc.Borrow(context.Background(), u.ID, b.ID); err == nil {
			open = append(open, loan)
		}
		book := e.store.book(b.ID)
		require.GreaterOrEqual(t, book.AvailableCopies, 0)
		require.LessOrEqual(t, book.AvailableCopies, book.TotalCopies)
		require.Equal(t, book.TotalCopies-len(open), book.AvailableCopies)
	}
}

func TestLoanService_LoanCapHolds(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	u := e.store.addUser(reader(1, 2))
	for i := int64(1); i <= 4; i++ {
		e.store.addBook(model.Book{ID: i, TotalCopies: 1, AvailableCopies: 1})
	}

	for i := int64(1); i <= 4; i++ {
		_, _ = e.svc.Borrow(context.Background(), u.ID, i)
	}
	n, err := e.store.CountOpenLoans(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// overdue loans still count against the cap
	e.clock.Set(t0.AddDate(0, 1, 0))
	_, err = e.svc.Borrow(context.Background(), u.ID, 3)
	requireReason(t, err, errs.ErrLoanRejected, policy.ReasonLoanCap(2))
}

func TestLoanService_SingleCopyScenario(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	a := e.store.addUser(reader(1, 3))
	b := e.store.addUser(reader(2, 3))
	book := e.store.addBook(model.Book{ID: 10, TotalCopies: 1, AvailableCopies: 1})

	loanA, err := e.svc.Borrow(context.Background(), a.ID, book.ID)
	require.NoError(t, err)
	require.Equal(t, 0, e.store.book(book.ID).AvailableCopies)
	require.Equal(t, model.StatusActive, loanA.Status)

	_, err = e.svc.Borrow(context.Background(), b.ID, book.ID)
	requireReason(t, err, errs.ErrLoanRejected, policy.ReasonBookUnavailable)
	require.Equal(t, 0, e.store.book(book.ID).AvailableCopies)

	returned, err := e.svc.Return(context.Background(), profileOf(a), loanA.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusReturned, returned.Status)
	require.Equal(t, 1, e.store.book(book.ID).AvailableCopies)

	_, err = e.svc.Borrow(context.Background(), b.ID, book.ID)
	require.NoError(t, err)
	require.Equal(t, 0, e.store.book(book.ID).AvailableCopies)
}

func TestLoanService_OverdueScenario(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	u := e.store.addUser(reader(1, 3))
	book := e.store.addBook(model.Book{ID: 10, TotalCopies: 1, AvailableCopies: 1})

	loan, err := e.svc.Borrow(context.Background(), u.ID, book.ID)
	require.NoError(t, err)
	require.Equal(t, t0.AddDate(0, 0, 21), loan.DueDate)

	e.clock.Set(t0.AddDate(0, 0, 22))
	details, err := e.svc.GetLoan(context.Background(), profileOf(u), loan.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusOverdue, details.Status)
	require.False(t, details.Capabilities.Extend)

	_, err = e.svc.Extend(context.Background(), profileOf(u), loan.ID, 14)
	requireReason(t, err, errs.ErrExtensionDenied, policy.ReasonExtendOverdue)
	require.Equal(t, loan.DueDate, e.store.loan(loan.ID).DueDate)

	_, err = e.svc.Return(context.Background(), profileOf(u), loan.ID)
	require.NoError(t, err)

	e.clock.Set(t0.AddDate(2, 0, 0))
	details, err = e.svc.GetLoan(context.Background(), profileOf(u), loan.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusReturned, details.Status)
}

func TestLoanService_Return(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	owner := e.store.addUser(reader(1, 3))
	other := e.store.addUser(reader(2, 3))
	admin := reader(3, 3)
	admin.IsAdmin = true
	e.store.addUser(admin)
	e.store.addBook(model.Book{ID: 10, TotalCopies: 2, AvailableCopies: 2})

	loan, err := e.svc.Borrow(context.Background(), owner.ID, 10)
	require.NoError(t, err)

	_, err = e.svc.Return(context.Background(), profileOf(other), loan.ID)
	require.True(t, errors.Is(err, errs.ErrForbidden))

	_, err = e.svc.Return(context.Background(), profileOf(admin), loan.ID)
	require.NoError(t, err)
	require.Equal(t, 2, e.store.book(10).AvailableCopies)

	_, err = e.svc.Return(context.Background(), profileOf(owner), loan.ID)
	requireReason(t, err, errs.ErrAlreadyReturned, policy.ReasonAlreadyReturned)
	require.Equal(t, 2, e.store.book(10).AvailableCopies)

	_, err = e.svc.Return(context.Background(), profileOf(owner), 999)
	require.True(t, errors.Is(err, errs.ErrNotFound))

	require.Equal(t,
		[]notify.Template{notify.TemplateLoanCreated, notify.TemplateLoanReturned},
		e.notifier.templates())
}

func TestLoanService_Extend(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	u := e.store.addUser(reader(1, 3))
	e.store.addBook(model.Book{ID: 10, TotalCopies: 1, AvailableCopies: 1})
	loan, err := e.svc.Borrow(context.Background(), u.ID, 10)
	require.NoError(t, err)

	extended, err := e.svc.Extend(context.Background(), profileOf(u), loan.ID, 0)
	require.NoError(t, err)
	require.Equal(t, loan.DueDate.AddDate(0, 0, 14), extended.DueDate)
	require.Equal(t, model.StatusActive, extended.Status)

	extended, err = e.svc.Extend(context.Background(), profileOf(u), loan.ID, 3)
	require.NoError(t, err)
	require.Equal(t, loan.DueDate.AddDate(0, 0, 17), extended.DueDate)

	_, err = e.svc.Extend(context.Background(), profileOf(u), loan.ID, 61)
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = e.svc.Return(context.Background(), profileOf(u), loan.ID)
	require.NoError(t, err)
	_, err = e.svc.Extend(context.Background(), profileOf(u), loan.ID, 7)
	requireReason(t, err, errs.ErrAlreadyReturned, policy.ReasonExtendReturned)
}

func TestLoanService_ProcessOverdueLoans(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.store.addUser(reader(1, 10))
	for i := int64(1); i <= 4; i++ {
		e.store.addBook(model.Book{ID: i, Title: "Book", TotalCopies: 1})
	}
	for i := int64(1); i <= 3; i++ {
		e.store.addLoan(model.NewLoan(1, i, t0.AddDate(0, 0, -30), model.DefaultLoanDuration))
	}
	e.store.addLoan(model.NewLoan(1, 4, t0, model.DefaultLoanDuration))
	e.notifier.failOn[2] = true

	report, err := e.svc.ProcessOverdueLoans(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.ReminderReport{Attempted: 3, Delivered: 2, Failed: 1}, report)

	require.Len(t, e.notifier.sent, 2)
	require.Equal(t, int64(1), e.notifier.sent[0].Data["loanId"])
	require.Equal(t, int64(3), e.notifier.sent[1].Data["loanId"])
	require.Equal(t, 9, e.notifier.sent[0].Data["overdueDays"])
}

func TestLoanService_RemindDueSoon(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.store.addUser(reader(1, 10))
	e.store.addBook(model.Book{ID: 1, TotalCopies: 1})
	e.store.addBook(model.Book{ID: 2, TotalCopies: 1})
	soon := e.store.addLoan(model.NewLoan(1, 1, t0.AddDate(0, 0, -20), model.DefaultLoanDuration))
	e.store.addLoan(model.NewLoan(1, 2, t0, model.DefaultLoanDuration))

	report, err := e.svc.RemindDueSoon(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.ReminderReport{Attempted: 1, Delivered: 1}, report)
	require.Equal(t, soon.ID, e.notifier.sent[0].Data["loanId"])
	require.Equal(t, notify.TemplateLoanDueSoon, e.notifier.sent[0].Template)
}

func TestLoanService_MyLoansAndCapabilities(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	u := e.store.addUser(reader(1, 1))
	b1 := e.store.addBook(model.Book{ID: 1, TotalCopies: 1, AvailableCopies: 1})
	b2 := e.store.addBook(model.Book{ID: 2, TotalCopies: 1, AvailableCopies: 1})

	caps, err := e.svc.BookCapabilities(context.Background(), profileOf(u), b1)
	require.NoError(t, err)
	require.Equal(t, policy.BookCapabilities{View: true, Borrow: true}, caps)

	first, err := e.svc.Borrow(context.Background(), u.ID, b1.ID)
	require.NoError(t, err)

	caps, err = e.svc.BookCapabilities(context.Background(), profileOf(u), b2)
	require.NoError(t, err)
	require.False(t, caps.Borrow)

	_, err = e.svc.Return(context.Background(), profileOf(u), first.ID)
	require.NoError(t, err)
	second, err := e.svc.Borrow(context.Background(), u.ID, b2.ID)
	require.NoError(t, err)

	mine, err := e.svc.MyLoans(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, mine.Active, 1)
	require.Equal(t, second.ID, mine.Active[0].ID)
	require.Len(t, mine.History, 2)
	require.Equal(t, second.ID, mine.History[0].ID)
	require.Equal(t, model.StatusReturned, mine.History[1].Status)

	list, err := e.svc.ListLoans(context.Background(), model.LoanFilter{Status: model.StatusReturned})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	_, err = e.svc.ListLoans(context.Background(), model.LoanFilter{Status: "lost"})
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))
}
