// Package imap wraps the mailbox session: one connection held for the
// duration of a run, used strictly sequentially.
package imap

import (
	"fmt"
	"io"
	"log"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"
)

// Session is a logged-in IMAP connection with INBOX selected.
type Session struct {
	client *client.Client
}

// NewSession connects, authenticates, and selects INBOX.
func NewSession(server, username, password string, useTLS bool) (*Session, error) {
	c, err := ConnectToIMAP(server, useTLS)
	if err != nil {
		return nil, err
	}

	if err := Login(c, username, password); err != nil {
		_ = c.Logout()
		return nil, err
	}

	if _, err := c.Select("INBOX", false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	return &Session{client: c}, nil
}

// SearchAll returns the UIDs of every message in INBOX. When the server
// supports the SORT extension the UIDs come back in date order;
// otherwise they are returned in plain search order.
func (s *Session) SearchAll() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()

	sortClient := sortthread.NewSortClient(s.client)
	if ok, err := sortClient.SupportSort(); err == nil && ok {
		sortCriteria := []sortthread.SortCriterion{{Field: sortthread.SortDate}}
		uids, err := sortClient.UidSort(sortCriteria, criteria)
		if err == nil {
			return uids, nil
		}
		log.Printf("SORT command failed, falling back to SEARCH: %v", err)
	}

	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search INBOX: %w", err)
	}

	return uids, nil
}

// FetchRaw fetches the full RFC822 body of one message.
func (s *Session) FetchRaw(uid uint32) ([]byte, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	msg := <-messages

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", uid, err)
	}

	if msg == nil {
		return nil, fmt.Errorf("server did not return message %d", uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %d has no body", uid)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %d body: %w", uid, err)
	}

	return raw, nil
}

// MarkSeen sets the \Seen flag on one message.
func (s *Session) MarkSeen(uid uint32) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	if err := s.client.UidStore(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark message %d as read: %w", uid, err)
	}

	return nil
}

// Logout ends the session.
func (s *Session) Logout() error {
	if err := s.client.Logout(); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}
