package mail

import (
	"context"

	"github.com/google/uuid"

	appLog "churchconnect/internal/log"
)

// LogSender writes messages to the application log instead of sending
// them. It never fails on a valid message.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) (Receipt, error) {
	if err := msg.Validate(); err != nil {
		return Receipt{}, err
	}
	preview := msg.Body
	if r := []rune(preview); len(r) > 100 {
		preview = string(r[:100]) + "..."
	}
	appLog.Info("mail (log only)", "to", msg.To, "from", msg.From, "subject", msg.Subject, "preview", preview)
	return Receipt{MessageID: uuid.NewString(), Provider: "log"}, nil
}

// Fallback tries Primary and, if it fails, Secondary.
type Fallback struct {
	Primary   Sender
	Secondary Sender
}

func (f Fallback) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.Validate(); err != nil {
		return Receipt{}, err
	}
	r, err := f.Primary.Send(ctx, msg)
	if err == nil || f.Secondary == nil {
		return r, err
	}
	appLog.Error("primary mail sender failed, using fallback", err, "to", msg.To)
	return f.Secondary.Send(ctx, msg)
}
