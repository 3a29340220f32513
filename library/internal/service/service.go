package service

import (
	"time"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

// LoanPolicy holds the tunable loan rules.
type LoanPolicy struct {
	Duration      time.Duration `envconfig:"LOAN_DURATION" default:"504h"`
	ExtensionDays int           `envconfig:"LOAN_EXTENSION_DAYS" default:"14"`
	MaxLoans      int           `envconfig:"LOAN_MAX_LOANS" default:"5"`
	DueSoonWindow time.Duration `envconfig:"LOAN_DUE_SOON_WINDOW" default:"48h"`
}

func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{
		Duration:      model.DefaultLoanDuration,
		ExtensionDays: model.DefaultExtensionDays,
		MaxLoans:      5,
		DueSoonWindow: 48 * time.Hour,
	}
}

const (
	maxExtensionDays = 60
	autocompleteMin  = 2
	autocompleteMax  = 10
	defaultListLimit = 10
	maxListLimit     = 50
)

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
