package mail

import "time"

// Message is one fetched mailbox message, reduced to the fields the
// ingestion pipeline needs. It is read-only here; the only mutation it
// ever sees is the \Seen flag set by the orchestrator, over IMAP.
type Message struct {
	UID         uint32
	From        string
	Subject     string
	MessageID   string
	Date        time.Time
	IsRead      bool
	Attachments []Attachment
}

// Attachment is a filename plus its decoded payload, extracted from one
// message part. Identity for dedup purposes is the filename.
type Attachment struct {
	Filename string
	Data     []byte
	Kind     Kind
}
