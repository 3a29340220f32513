// Package policy holds the loan preconditions as pure predicates.
// The loan service enforces them and the capability checks reuse them,
// so both sides agree on what is allowed.
package policy

import (
	"fmt"
	"time"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

const (
	ReasonUserInactive    = "account is deactivated, borrowing is not allowed"
	ReasonBookUnavailable = "book is not available"
	ReasonDuplicateLoan   = "book is already borrowed by this user"
	ReasonAlreadyReturned = "book has already been returned"
	ReasonExtendReturned  = "a returned loan cannot be extended"
	ReasonExtendOverdue   = "an overdue loan cannot be extended"
)

func ReasonLoanCap(maxLoans int) string {
	return fmt.Sprintf("limit of %d simultaneous loans reached", maxLoans)
}

// CheckBorrower validates the user side of a borrow.
// openLoans counts the user's unreturned loans, active and overdue.
func CheckBorrower(user model.User, openLoans int) error {
	if !user.IsActive {
		return errs.Rejected(ReasonUserInactive)
	}
	if openLoans >= user.MaxLoans {
		return errs.Rejected(ReasonLoanCap(user.MaxLoans))
	}
	return nil
}

// CheckBorrow validates every borrow precondition.
func CheckBorrow(user model.User, openLoans int, book model.Book, hasOpenLoanForBook bool) error {
	if err := CheckBorrower(user, openLoans); err != nil {
		return err
	}
	if !book.IsAvailable() {
		return errs.Rejected(ReasonBookUnavailable)
	}
	if hasOpenLoanForBook {
		return errs.Rejected(ReasonDuplicateLoan)
	}
	return nil
}

func CheckReturn(loan model.Loan) error {
	if loan.IsReturned() {
		return errs.AlreadyReturned(ReasonAlreadyReturned)
	}
	return nil
}

func CheckExtend(loan model.Loan, now time.Time) error {
	if loan.IsReturned() {
		return errs.AlreadyReturned(ReasonExtendReturned)
	}
	if loan.IsOverdue(now) {
		return errs.ExtensionDenied(ReasonExtendOverdue)
	}
	return nil
}
