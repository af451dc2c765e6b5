package otp

import (
	"context"
	"fmt"

	"github.com/wellness-api/internal/infrastructure/smtp"
	"github.com/wellness-api/internal/infrastructure/sns"
	"github.com/wellness-api/internal/metrics"
	"github.com/wellness-api/internal/pkg/contact"
)

const (
	emailSubject = "Your verification code"
	messageText  = "Your verification code is %s. It expires in %d minutes."
)

// Router picks the delivery channel from the address shape: e-mail via
// SMTP, anything else as SMS via SNS.
type Router struct {
	mailer        smtp.Mailer
	sms           sns.SMSSender
	windowMinutes int
}

// NewRouter builds a dispatcher. Either sender may be nil, in which case
// addresses for that channel fail to deliver.
func NewRouter(mailer smtp.Mailer, sms sns.SMSSender, windowMinutes int) *Router {
	return &Router{mailer: mailer, sms: sms, windowMinutes: windowMinutes}
}

func (r *Router) Deliver(ctx context.Context, address, code string) error {
	channel := contact.Channel(address)
	err := r.deliver(ctx, channel, address, code)
	metrics.RecordDispatch(channel, err)
	return err
}

func (r *Router) deliver(ctx context.Context, channel, address, code string) error {
	msg := fmt.Sprintf(messageText, code, r.windowMinutes)
	if channel == contact.ChannelEmail {
		if r.mailer == nil {
			return fmt.Errorf("email channel not configured")
		}
		return r.mailer.SendEmail(ctx, address, emailSubject, msg)
	}
	if r.sms == nil {
		return fmt.Errorf("sms channel not configured")
	}
	return r.sms.SendSMS(ctx, address, msg)
}
