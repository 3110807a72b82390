package email

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"birthday_reminder_service/internal/domain/email"
)

// SendGridSender implements email.Sender on the SendGrid v3 API. Sends
// inside a batch are sequential with a pacing delay between them to stay
// under provider rate limits; the caller's context carries the deadline
// for the whole batch.
type SendGridSender struct {
	apiKey    string
	fromEmail string
	fromName  string
	sendDelay time.Duration
	log       logrus.FieldLogger
}

func NewSendGridSender(apiKey, fromEmail, fromName string, sendDelay time.Duration, log logrus.FieldLogger) *SendGridSender {
	return &SendGridSender{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		sendDelay: sendDelay,
		log:       log,
	}
}

func (s *SendGridSender) SendBatch(ctx context.Context, messages []email.Message) ([]email.Result, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("sendgrid api key is empty")
	}

	client := sendgrid.NewSendClient(s.apiKey)
	from := mail.NewEmail(s.fromName, s.fromEmail)

	results := make([]email.Result, 0, len(messages))
	for i, msg := range messages {
		if i > 0 && s.sendDelay > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(s.sendDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		to := mail.NewEmail(msg.ToName, msg.To)
		m := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

		resp, err := client.SendWithContext(ctx, m)
		if err != nil {
			if ctx.Err() != nil {
				results = append(results, email.Result{To: msg.To, Error: ctx.Err().Error()})
				return results, ctx.Err()
			}
			results = append(results, email.Result{To: msg.To, Error: err.Error()})
			continue
		}
		if resp.StatusCode >= 400 {
			s.log.WithFields(logrus.Fields{"to": msg.To, "status": resp.StatusCode}).
				Warnf("SendGrid rejected message: %s", resp.Body)
			results = append(results, email.Result{
				To:    msg.To,
				Error: fmt.Sprintf("sendgrid status %d: %s", resp.StatusCode, resp.Body),
			})
			continue
		}

		results = append(results, email.Result{
			To:        msg.To,
			Success:   true,
			MessageID: messageID(resp.Headers),
		})
	}
	return results, nil
}

func messageID(headers map[string][]string) string {
	if ids, ok := headers["X-Message-Id"]; ok && len(ids) > 0 {
		return ids[0]
	}
	return ""
}
