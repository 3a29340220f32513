package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

const dateLayout = "2006-01-02"

// Dispatcher renders loan events into messages. The loan lifecycle methods
// are best-effort: a failed send is logged and never reaches the caller.
type Dispatcher struct {
	notifier Notifier
	sender   string
	log      *zap.Logger
}

func NewDispatcher(notifier Notifier, sender string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		sender:   sender,
		log:      log.Named("dispatcher"),
	}
}

func (d *Dispatcher) LoanCreated(ctx context.Context, loan model.Loan, now time.Time) {
	d.bestEffort(ctx, loan, now, TemplateLoanCreated, "Loan confirmed: "+loan.Book.Title, map[string]interface{}{
		"dueDate": loan.DueDate.Format(dateLayout),
	})
}

func (d *Dispatcher) LoanReturned(ctx context.Context, loan model.Loan, now time.Time) {
	data := map[string]interface{}{}
	if loan.ReturnedAt != nil {
		data["returnedAt"] = loan.ReturnedAt.Format(dateLayout)
	}
	d.bestEffort(ctx, loan, now, TemplateLoanReturned, "Return confirmed: "+loan.Book.Title, data)
}

func (d *Dispatcher) LoanExtended(ctx context.Context, loan model.Loan, days int, now time.Time) {
	d.bestEffort(ctx, loan, now, TemplateLoanExtended, "Loan extended: "+loan.Book.Title, map[string]interface{}{
		"dueDate":       loan.DueDate.Format(dateLayout),
		"extensionDays": days,
	})
}

// OverdueReminder returns the send error so batch runs can count failures.
func (d *Dispatcher) OverdueReminder(ctx context.Context, loan model.Loan, now time.Time) error {
	days := loan.OverdueDays(now)
	return d.send(ctx, d.message(loan, TemplateLoanOverdue,
		fmt.Sprintf("Overdue by %d day(s): %s", days, loan.Book.Title),
		map[string]interface{}{
			"dueDate":     loan.DueDate.Format(dateLayout),
			"overdueDays": days,
		}, now))
}

func (d *Dispatcher) DueSoonReminder(ctx context.Context, loan model.Loan, now time.Time) error {
	days := loan.DaysUntilDue(now)
	return d.send(ctx, d.message(loan, TemplateLoanDueSoon,
		"Due soon: "+loan.Book.Title,
		map[string]interface{}{
			"dueDate":      loan.DueDate.Format(dateLayout),
			"daysUntilDue": days,
		}, now))
}

func (d *Dispatcher) message(loan model.Loan, tmpl Template, subject string, data map[string]interface{}, now time.Time) Message {
	data["loanId"] = loan.ID
	data["userName"] = loan.User.FirstName + " " + loan.User.LastName
	data["bookTitle"] = loan.Book.Title
	return Message{
		Template:  tmpl,
		Recipient: loan.User.Email,
		Sender:    d.sender,
		Subject:   subject,
		Data:      data,
		CreatedAt: now,
	}
}

func (d *Dispatcher) bestEffort(ctx context.Context, loan model.Loan, now time.Time, tmpl Template, subject string, data map[string]interface{}) {
	if err := d.send(ctx, d.message(loan, tmpl, subject, data, now)); err != nil {
		d.log.Warn("notification failed",
			zap.String("template", string(tmpl)),
			zap.Int64("loan_id", loan.ID),
			zap.Int64("user_id", loan.UserID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) send(ctx context.Context, msg Message) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("notifier panic: %v", p)
		}
	}()
	return d.notifier.Send(ctx, msg)
}
