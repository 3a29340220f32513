// Package notify delivers loan lifecycle messages to patrons.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Template string

const (
	TemplateLoanCreated  Template = "loan_created"
	TemplateLoanReturned Template = "loan_returned"
	TemplateLoanExtended Template = "loan_extended"
	TemplateLoanOverdue  Template = "loan_overdue"
	TemplateLoanDueSoon  Template = "loan_due_soon"
)

type Message struct {
	Template  Template               `json:"template"`
	Recipient string                 `json:"recipient"`
	Sender    string                 `json:"sender"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Notifier is the transport. Send reports delivery failures to the caller.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type logNotifier struct {
	log *zap.Logger
}

// NewLogNotifier writes messages to the log instead of a broker.
func NewLogNotifier(log *zap.Logger) Notifier {
	return &logNotifier{log: log.Named("notify")}
}

func (n *logNotifier) Send(_ context.Context, msg Message) error {
	n.log.Info("notification",
		zap.String("template", string(msg.Template)),
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.Any("data", msg.Data),
	)
	return nil
}
