package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/intake"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/mailer"
)

// Notifier sends the requestor- and operator-facing emails the workflow
// produces. Failures are logged, never fatal: a lost email must not stall
// an approval flow.
type Notifier struct {
	mail          mailer.Service
	fromName      string
	fromEmail     string
	operatorEmail string
	logger        *slog.Logger
}

func New(mail mailer.Service, fromName, fromEmail, operatorEmail string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		mail:          mail,
		fromName:      fromName,
		fromEmail:     fromEmail,
		operatorEmail: operatorEmail,
		logger:        logger,
	}
}

// OrderNotFound tells the requestor their order number didn't match.
func (n *Notifier) OrderNotFound(ctx context.Context, req intake.RefundRequest) {
	subject := "We couldn't find your order"
	text := fmt.Sprintf(
		"Hi %s,\n\nWe received your %s request for order #%s, but we couldn't find an order with that number.\n\nPlease double-check the number on your confirmation email and submit the form again.\n\nBig Apple Rec Sports",
		req.FirstName, req.RefundType, req.OrderNumber,
	)
	n.send(ctx, req.Email, subject, text)
}

// Denied tells the requestor their request was turned down, with the
// approver's optional note.
func (n *Notifier) Denied(ctx context.Context, req intake.RefundRequest, reason string) {
	subject := "Your refund request"
	text := fmt.Sprintf(
		"Hi %s,\n\nYour %s request for order #%s was reviewed and we're unable to approve it.",
		req.FirstName, req.RefundType, req.OrderNumber,
	)
	if reason != "" {
		text += "\n\nNote from our team: " + reason
	}
	text += "\n\nReply to this email if you have questions.\n\nBig Apple Rec Sports"
	n.send(ctx, req.Email, subject, text)
}

// OperatorAlert flags an unexpected failure to the operations inbox.
func (n *Notifier) OperatorAlert(ctx context.Context, summary string, err error) {
	if n.operatorEmail == "" {
		return
	}
	text := summary
	if err != nil {
		text += "\n\nerror: " + err.Error()
	}
	n.send(ctx, n.operatorEmail, "[refunds] "+summary, text)
}

func (n *Notifier) send(ctx context.Context, to, subject, text string) {
	err := n.mail.Send(ctx, mailer.Email{
		FromName: n.fromName,
		From:     n.fromEmail,
		To:       []string{to},
		Subject:  subject,
		TextBody: text,
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "notifier send failed", "to", to, "subject", subject, "err", err)
	}
}
