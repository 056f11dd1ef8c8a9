package mail

import (
	"bytes"
	"fmt"
	netmail "net/mail"

	"github.com/jhillyerd/enmime"
)

// ParseRaw parses a raw RFC822 message and extracts its qualifying
// attachments, in the order they appear in the message structure.
// A message with zero qualifying attachments is a valid result.
func ParseRaw(uid uint32, raw []byte) (*Message, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %d: %w", uid, err)
	}

	msg := &Message{
		UID:       uid,
		From:      envelope.GetHeader("From"),
		Subject:   envelope.GetHeader("Subject"),
		MessageID: envelope.GetHeader("Message-Id"),
	}

	if date, err := netmail.ParseDate(envelope.GetHeader("Date")); err == nil {
		msg.Date = date
	}

	for _, part := range envelope.Attachments {
		kind, ok := Classify(part.FileName)
		if !ok {
			continue
		}
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename: part.FileName,
			Data:     part.Content,
			Kind:     kind,
		})
	}

	return msg, nil
}

// SenderAddress returns the bare address portion of the From header,
// for use as the notification recipient.
func (m *Message) SenderAddress() (string, error) {
	addr, err := netmail.ParseAddress(m.From)
	if err != nil {
		return "", fmt.Errorf("failed to parse sender address %q: %w", m.From, err)
	}
	return addr.Address, nil
}
