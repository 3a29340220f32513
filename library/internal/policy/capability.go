package policy

import (
	"time"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/pkg/auth"
)

type BookCapabilities struct {
	View   bool `json:"view"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
	Borrow bool `json:"borrow"`
}

type LoanCapabilities struct {
	View   bool `json:"view"`
	Return bool `json:"return"`
	Extend bool `json:"extend"`
}

// ForBook decides what the user may do with the book.
// A nil user is unauthenticated and may do nothing.
func ForBook(user *model.User, book model.Book, openLoans int) BookCapabilities {
	if user == nil {
		return BookCapabilities{}
	}
	return BookCapabilities{
		View:   true,
		Edit:   user.IsAdmin,
		Delete: user.IsAdmin,
		Borrow: book.IsAvailable() && CheckBorrower(*user, openLoans) == nil,
	}
}

func ForLoan(profile auth.Profile, loan model.Loan, now time.Time) LoanCapabilities {
	if profile.UserID == 0 {
		return LoanCapabilities{}
	}
	allowed := auth.HasRole(profile.Roles, auth.RoleAdmin) || loan.UserID == profile.UserID
	return LoanCapabilities{
		View:   allowed,
		Return: allowed && CheckReturn(loan) == nil,
		Extend: allowed && CheckExtend(loan, now) == nil,
	}
}

// CanAccessLoan is the owner-or-admin rule used for view and return.
func CanAccessLoan(profile auth.Profile, loan model.Loan) bool {
	return auth.HasRole(profile.Roles, auth.RoleAdmin) || loan.UserID == profile.UserID
}
