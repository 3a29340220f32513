package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

type reminderFunc func(ctx context.Context, loan model.Loan, now time.Time) error

// ProcessOverdueLoans sends one reminder per overdue loan. A failed reminder
// is logged and counted; it never stops the rest of the run.
func (s *LoanService) ProcessOverdueLoans(ctx context.Context) (model.ReminderReport, error) {
	now := s.now()
	loans, err := s.repo.OverdueLoans(ctx, now)
	if err != nil {
		return model.ReminderReport{}, errors.Wrap(err, "OverdueLoans")
	}
	return s.remind(ctx, loans, now, model.StatusOverdue, s.notifier.OverdueReminder)
}

// RemindDueSoon warns about active loans falling due within the configured window.
func (s *LoanService) RemindDueSoon(ctx context.Context) (model.ReminderReport, error) {
	now := s.now()
	loans, err := s.repo.DueBetween(ctx, now, now.Add(s.policy.DueSoonWindow))
	if err != nil {
		return model.ReminderReport{}, errors.Wrap(err, "DueBetween")
	}
	return s.remind(ctx, loans, now, model.StatusActive, s.notifier.DueSoonReminder)
}

func (s *LoanService) remind(ctx context.Context, loans []model.Loan, now time.Time, want model.Status, send reminderFunc) (model.ReminderReport, error) {
	var report model.ReminderReport
	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		loan.Refresh(now)
		if loan.Status != want {
			continue
		}
		report.Attempted++
		if err := send(ctx, loan, now); err != nil {
			report.Failed++
			s.log.Warn("reminder failed",
				zap.Int64("loan_id", loan.ID),
				zap.Int64("user_id", loan.UserID),
				zap.String("status", string(want)),
				zap.Error(err),
			)
			continue
		}
		report.Delivered++
		s.log.Debug("reminder sent",
			zap.Int64("loan_id", loan.ID),
			zap.Int("overdue_days", loan.OverdueDays(now)),
		)
	}
	s.log.Info("reminders processed",
		zap.String("status", string(want)),
		zap.Int("attempted", report.Attempted),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
