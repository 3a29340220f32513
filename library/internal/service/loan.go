package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/policy"
	"github.com/Astemirdum/library-loan-service/library/internal/repository"
	"github.com/Astemirdum/library-loan-service/pkg/auth"
)

// Notifier is implemented by notify.Dispatcher.
type Notifier interface {
	LoanCreated(ctx context.Context, loan model.Loan, now time.Time)
	LoanReturned(ctx context.Context, loan model.Loan, now time.Time)
	LoanExtended(ctx context.Context, loan model.Loan, days int, now time.Time)
	OverdueReminder(ctx context.Context, loan model.Loan, now time.Time) error
	DueSoonReminder(ctx context.Context, loan model.Loan, now time.Time) error
}

type LoanDetails struct {
	model.Loan
	Capabilities policy.LoanCapabilities `json:"capabilities"`
}

type LoanService struct {
	log      *zap.Logger
	repo     repository.LoanRepository
	notifier Notifier
	policy   LoanPolicy
	now      func() time.Time
}

func NewLoanService(repo repository.LoanRepository, notifier Notifier, p LoanPolicy, log *zap.Logger, opts ...Option) *LoanService {
	o := newOptions(opts)
	return &LoanService{
		log:      log.Named("loans"),
		repo:     repo,
		notifier: notifier,
		policy:   p,
		now:      o.now,
	}
}

// Borrow lends one copy of the book to the user. The cap check, the copy
// decrement and the loan insert commit together or not at all.
func (s *LoanService) Borrow(ctx context.Context, userID, bookID int64) (model.Loan, error) {
	now := s.now()
	var loan model.Loan
	err := s.repo.WithinTx(ctx, func(tx repository.LoanTx) error {
		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "user")
		}
		openLoans, err := tx.CountOpenLoans(ctx, userID)
		if err != nil {
			return err
		}
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return errors.Wrap(err, "book")
		}
		duplicate, err := tx.HasOpenLoan(ctx, userID, bookID)
		if err != nil {
			return err
		}
		if err := policy.CheckBorrow(user, openLoans, book, duplicate); err != nil {
			return err
		}

		taken, err := tx.TakeCopy(ctx, bookID)
		if err != nil {
			return err
		}
		if !taken {
			return errs.Rejected(policy.ReasonBookUnavailable)
		}

		loan, err = tx.InsertLoan(ctx, model.NewLoan(userID, bookID, now, s.policy.Duration))
		if err != nil {
			if errors.Is(err, errs.ErrAlreadyExists) {
				return errs.Rejected(policy.ReasonDuplicateLoan)
			}
			return err
		}
		loan.Book = model.LoanBook{ID: book.ID, Title: book.Title, ISBN: book.ISBN}
		loan.User = model.LoanUser{ID: user.ID, Email: user.Email, FirstName: user.FirstName, LastName: user.LastName}
		return nil
	})
	if err != nil {
		return model.Loan{}, s.failure("borrow", err, zap.Int64("user_id", userID), zap.Int64("book_id", bookID))
	}

	loan.Refresh(now)
	s.log.Info("loan created",
		zap.Int64("loan_id", loan.ID),
		zap.Int64("user_id", userID),
		zap.Int64("book_id", bookID),
		zap.Time("due_date", loan.DueDate),
	)
	s.notifier.LoanCreated(ctx, loan, now)
	return loan, nil
}

// Return closes the loan and puts the copy back on the shelf.
func (s *LoanService) Return(ctx context.Context, profile auth.Profile, loanID int64) (model.Loan, error) {
	now := s.now()
	var loan model.Loan
	err := s.repo.WithinTx(ctx, func(tx repository.LoanTx) error {
		var err error
		if loan, err = s.lockLoan(ctx, tx, profile, loanID); err != nil {
			return err
		}
		if err := policy.CheckReturn(loan); err != nil {
			return err
		}
		returned, err := tx.MarkReturned(ctx, loanID, now)
		if err != nil {
			return err
		}
		if !returned {
			return errs.AlreadyReturned(policy.ReasonAlreadyReturned)
		}
		if err := tx.PutBackCopy(ctx, loan.BookID); err != nil {
			return err
		}
		loan.ReturnedAt = &now
		return nil
	})
	if err != nil {
		return model.Loan{}, s.failure("return", err, zap.Int64("loan_id", loanID))
	}

	loan.Refresh(now)
	s.log.Info("loan returned",
		zap.Int64("loan_id", loan.ID),
		zap.Int64("user_id", loan.UserID),
		zap.Int64("book_id", loan.BookID),
	)
	s.notifier.LoanReturned(ctx, loan, now)
	return loan, nil
}

// Extend pushes the due date by days, the configured default when days is 0.
// Overdue loans are never extended.
func (s *LoanService) Extend(ctx context.Context, profile auth.Profile, loanID int64, days int) (model.Loan, error) {
	if days == 0 {
		days = s.policy.ExtensionDays
	}
	if days < 0 || days > maxExtensionDays {
		return model.Loan{}, errors.Wrapf(errs.ErrInvalidArgument, "extension must be between 1 and %d days", maxExtensionDays)
	}

	now := s.now()
	var loan model.Loan
	err := s.repo.WithinTx(ctx, func(tx repository.LoanTx) error {
		var err error
		if loan, err = s.lockLoan(ctx, tx, profile, loanID); err != nil {
			return err
		}
		if err := policy.CheckExtend(loan, now); err != nil {
			return err
		}
		due := loan.DueDate.AddDate(0, 0, days)
		extended, err := tx.SetDueDate(ctx, loanID, due, now)
		if err != nil {
			return err
		}
		if !extended {
			return errs.ExtensionDenied(policy.ReasonExtendOverdue)
		}
		loan.DueDate = due
		return nil
	})
	if err != nil {
		return model.Loan{}, s.failure("extend", err, zap.Int64("loan_id", loanID), zap.Int("days", days))
	}

	loan.Refresh(now)
	s.log.Info("loan extended",
		zap.Int64("loan_id", loan.ID),
		zap.Int("days", days),
		zap.Time("due_date", loan.DueDate),
	)
	s.notifier.LoanExtended(ctx, loan, days, now)
	return loan, nil
}

func (s *LoanService) lockLoan(ctx context.Context, tx repository.LoanTx, profile auth.Profile, loanID int64) (model.Loan, error) {
	loan, err := tx.LockLoan(ctx, loanID)
	if err != nil {
		return model.Loan{}, errors.Wrap(err, "loan")
	}
	if !policy.CanAccessLoan(profile, loan) {
		return model.Loan{}, errs.ErrForbidden
	}
	return loan, nil
}

// failure keeps refusals and lookups as they are and hides storage causes
// behind ErrLoanOperationFailed.
func (s *LoanService) failure(op string, err error, fields ...zap.Field) error {
	if errs.IsLoanError(err) ||
		errors.Is(err, errs.ErrNotFound) ||
		errors.Is(err, errs.ErrForbidden) {
		return err
	}
	s.log.Error(op+" failed", append(fields, zap.Error(err))...)
	return errs.ErrLoanOperationFailed
}

func (s *LoanService) GetLoan(ctx context.Context, profile auth.Profile, id int64) (LoanDetails, error) {
	loan, err := s.repo.GetLoan(ctx, id)
	if err != nil {
		return LoanDetails{}, err
	}
	if !policy.CanAccessLoan(profile, loan) {
		return LoanDetails{}, errs.ErrForbidden
	}
	now := s.now()
	loan.Refresh(now)
	return LoanDetails{Loan: loan, Capabilities: policy.ForLoan(profile, loan, now)}, nil
}

// MyLoans returns the user's unreturned loans by due date and the full history, newest first.
func (s *LoanService) MyLoans(ctx context.Context, userID int64) (model.MyLoans, error) {
	now := s.now()
	open, err := s.repo.OpenLoans(ctx, userID)
	if err != nil {
		return model.MyLoans{}, err
	}
	history, err := s.repo.ListLoans(ctx, model.LoanFilter{UserID: userID}, now)
	if err != nil {
		return model.MyLoans{}, err
	}
	return model.MyLoans{
		Active:  model.RefreshAll(open, now),
		History: model.RefreshAll(history.Items, now),
	}, nil
}

func (s *LoanService) ListLoans(ctx context.Context, filter model.LoanFilter) (model.ListLoans, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return model.ListLoans{}, errors.Wrapf(errs.ErrInvalidArgument, "unknown status %q", filter.Status)
	}
	now := s.now()
	loans, err := s.repo.ListLoans(ctx, filter, now)
	if err != nil {
		return model.ListLoans{}, err
	}
	loans.Items = model.RefreshAll(loans.Items, now)
	return loans, nil
}

func (s *LoanService) OverdueLoans(ctx context.Context) ([]model.Loan, error) {
	now := s.now()
	loans, err := s.repo.OverdueLoans(ctx, now)
	if err != nil {
		return nil, err
	}
	return model.RefreshAll(loans, now), nil
}

// BookCapabilities evaluates what the profile may do with the book.
func (s *LoanService) BookCapabilities(ctx context.Context, profile auth.Profile, book model.Book) (policy.BookCapabilities, error) {
	user, err := s.repo.GetUser(ctx, profile.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return policy.ForBook(nil, book, 0), nil
		}
		return policy.BookCapabilities{}, err
	}
	openLoans, err := s.repo.CountOpenLoans(ctx, user.ID)
	if err != nil {
		return policy.BookCapabilities{}, err
	}
	return policy.ForBook(&user, book, openLoans), nil
}
