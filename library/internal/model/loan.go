package model

import (
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
	StatusOverdue  Status = "overdue"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusReturned, StatusOverdue:
		return true
	}
	return false
}

const (
	DefaultLoanDuration  = 21 * 24 * time.Hour
	DefaultExtensionDays = 14
)

type LoanBook struct {
	ID    int64  `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
	ISBN  string `json:"isbn" db:"isbn"`
}

type LoanUser struct {
	ID        int64  `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
}

type Loan struct {
	ID         int64      `json:"id" db:"id"`
	LoanUid    string     `json:"loanUid" db:"loan_uid"`
	UserID     int64      `json:"userId" db:"user_id"`
	BookID     int64      `json:"bookId" db:"book_id"`
	BorrowedAt time.Time  `json:"borrowedAt" db:"borrowed_at"`
	DueDate    time.Time  `json:"dueDate" db:"due_date"`
	ReturnedAt *time.Time `json:"returnedAt" db:"returned_at"`
	// Status is never stored, see Refresh.
	Status Status   `json:"status" db:"-"`
	Book   LoanBook `json:"book" db:"book"`
	User   LoanUser `json:"user" db:"user"`
}

// NewLoan starts a loan at now, due after the default duration.
func NewLoan(userID, bookID int64, now time.Time, duration time.Duration) Loan {
	return Loan{
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: now,
		DueDate:    now.Add(duration),
		Status:     StatusActive,
	}
}

// Derive computes the loan status from returnedAt, dueDate and now only.
func Derive(loan Loan, now time.Time) Status {
	if loan.ReturnedAt != nil {
		return StatusReturned
	}
	if now.After(loan.DueDate) {
		return StatusOverdue
	}
	return StatusActive
}

// Refresh re-derives Status; call it on every loan read from storage.
func (l *Loan) Refresh(now time.Time) {
	l.Status = Derive(*l, now)
}

func (l Loan) IsReturned() bool {
	return l.ReturnedAt != nil
}

func (l Loan) IsOverdue(now time.Time) bool {
	return Derive(l, now) == StatusOverdue
}

// OverdueDays counts whole days past the due date, 0 unless overdue.
func (l Loan) OverdueDays(now time.Time) int {
	if !l.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(l.DueDate) / (24 * time.Hour))
}

// DaysUntilDue counts whole days left, 0 once due.
func (l Loan) DaysUntilDue(now time.Time) int {
	if !now.Before(l.DueDate) {
		return 0
	}
	return int(l.DueDate.Sub(now) / (24 * time.Hour))
}

func RefreshAll(loans []Loan, now time.Time) []Loan {
	for i := range loans {
		loans[i].Refresh(now)
	}
	return loans
}

type ListLoans struct {
	Paging `json:",inline"`
	Items  []Loan `json:"items"`
}

type LoanFilter struct {
	UserID int64
	Status Status
	Page   int
	Size   int
}

type MyLoans struct {
	Active  []Loan `json:"active"`
	History []Loan `json:"history"`
}

// ReminderReport counts reminders of one batch run.
// Attempted includes sends that failed.
type ReminderReport struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}
