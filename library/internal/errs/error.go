package errs

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInUse              = errors.New("resource is in use")
	ErrCopiesOnLoan       = errors.New("total copies cannot be lower than copies on loan")

	ErrLoanRejected        = errors.New("loan rejected")
	ErrAlreadyReturned     = errors.New("loan already returned")
	ErrExtensionDenied     = errors.New("extension denied")
	ErrLoanOperationFailed = errors.New("loan operation failed")
)

// LoanError is a user-facing refusal of a loan operation.
type LoanError struct {
	Kind   error
	Reason string
}

func (e *LoanError) Error() string {
	return e.Reason
}

func (e *LoanError) Unwrap() error {
	return e.Kind
}

func Rejected(reason string) error {
	return &LoanError{Kind: ErrLoanRejected, Reason: reason}
}

func AlreadyReturned(reason string) error {
	return &LoanError{Kind: ErrAlreadyReturned, Reason: reason}
}

func ExtensionDenied(reason string) error {
	return &LoanError{Kind: ErrExtensionDenied, Reason: reason}
}

// IsLoanError reports whether err is one of the recoverable loan refusals.
func IsLoanError(err error) bool {
	var le *LoanError
	return errors.As(err, &le)
}
