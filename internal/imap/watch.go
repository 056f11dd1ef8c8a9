package imap

import (
	"context"
	"time"

	idle "github.com/emersion/go-imap-idle"
	imapclient "github.com/emersion/go-imap/client"
)

// idleFallbackPoll is the polling interval used when the server does
// not support the IDLE extension.
const idleFallbackPoll = 5 * time.Minute

// WaitForUpdate blocks in IMAP IDLE until INBOX reports new activity,
// then stops idling and returns so the caller can run an ingestion
// pass. Returns the context error if the context is canceled first.
func (s *Session) WaitForUpdate(ctx context.Context) error {
	idleClient := idle.NewClient(s.client)

	updates := make(chan imapclient.Update, 10)
	s.client.Updates = updates
	defer func() { s.client.Updates = nil }()

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- idleClient.IdleWithFallback(stop, idleFallbackPoll)
	}()

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-done
			return ctx.Err()
		case err := <-done:
			return err
		case update := <-updates:
			mboxUpdate, ok := update.(*imapclient.MailboxUpdate)
			if !ok || mboxUpdate.Mailbox == nil {
				continue
			}
			if mboxUpdate.Mailbox.Name != "INBOX" || mboxUpdate.Mailbox.Messages == 0 {
				continue
			}
			close(stop)
			<-done
			return nil
		}
	}
}
