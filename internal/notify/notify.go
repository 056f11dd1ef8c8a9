// Package notify closes the loop with the source mailbox: after each
// attachment reaches a terminal state, a reply is sent to the original
// sender reporting success or failure.
package notify

import (
	"bytes"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"github.com/mvarga/habitmail/internal/mail"
)

// SMTPNotifier sends outcome replies over SMTP.
type SMTPNotifier struct {
	Server   string
	From     string
	Username string
	Password string
	UseTLS   bool
}

// NewSMTPNotifier returns a notifier submitting through the given server.
func NewSMTPNotifier(server, from, username, password string, useTLS bool) *SMTPNotifier {
	return &SMTPNotifier{
		Server:   server,
		From:     from,
		Username: username,
		Password: password,
		UseTLS:   useTLS,
	}
}

// SendOutcome replies to the original message with the processing result
// for one attachment. The reply references the original Message-Id so
// mail clients thread it under the export message.
func (n *SMTPNotifier) SendOutcome(original *mail.Message, filename string, processErr error) error {
	recipient, err := original.SenderAddress()
	if err != nil {
		return err
	}

	raw, err := n.buildReply(original, recipient, filename, processErr)
	if err != nil {
		return err
	}

	if err := n.send(recipient, raw); err != nil {
		return fmt.Errorf("failed to send notification for %s: %w", filename, err)
	}

	return nil
}

func (n *SMTPNotifier) buildReply(original *mail.Message, recipient, filename string, processErr error) ([]byte, error) {
	body := OutcomeBody(filename, processErr)

	builder := enmime.Builder().
		From("", n.From).
		To("", recipient).
		Subject("Re: " + original.Subject).
		Text([]byte(body))

	if original.MessageID != "" {
		builder = builder.
			Header("In-Reply-To", original.MessageID).
			Header("References", original.MessageID)
	}

	part, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build notification: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}

	return buf.Bytes(), nil
}

func (n *SMTPNotifier) send(recipient string, raw []byte) error {
	auth := sasl.NewPlainClient("", n.Username, n.Password)
	reader := bytes.NewReader(raw)

	if n.UseTLS {
		return smtp.SendMailTLS(n.Server, auth, n.From, []string{recipient}, reader)
	}
	return smtp.SendMail(n.Server, auth, n.From, []string{recipient}, reader)
}

// OutcomeBody renders the notification body for one attachment outcome.
func OutcomeBody(filename string, processErr error) string {
	status := "Successfully processed"
	if processErr != nil {
		status = "Failed to process"
	}

	body := fmt.Sprintf("File: %s\nStatus: %s\n", filename, status)
	if processErr != nil {
		body += fmt.Sprintf("Error: %s\n", processErr.Error())
	}
	return body
}
