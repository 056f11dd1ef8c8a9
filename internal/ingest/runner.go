// Package ingest drives the pipeline: walk qualifying messages, and for
// each attachment run dedup gate, parser, and loader, then notify the
// sender and mark the message read.
package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/mvarga/habitmail/internal/load"
	"github.com/mvarga/habitmail/internal/mail"
	"github.com/mvarga/habitmail/internal/parse"
)

// Mailbox is the mailbox session surface the runner consumes.
type Mailbox interface {
	SearchAll() ([]uint32, error)
	FetchRaw(uid uint32) ([]byte, error)
	MarkSeen(uid uint32) error
}

// Gate decides whether an attachment was already ingested and persists
// its bytes when it is new.
type Gate interface {
	Claim(filename string, data []byte) (path string, alreadySeen bool, err error)
}

// Loader appends a record table to a destination table.
type Loader interface {
	Load(ctx context.Context, table *parse.Table, tableName, sourceFilename string) error
}

// Notifier reports one attachment's outcome back to the sender.
type Notifier interface {
	SendOutcome(original *mail.Message, filename string, processErr error) error
}

// Summary counts the outcomes of one ingestion pass.
type Summary struct {
	Messages int // messages with at least one qualifying attachment
	Loaded   int // attachments parsed and loaded
	Skipped  int // attachments short-circuited by the dedup gate
	Failed   int // attachments that failed parsing or loading
}

// Runner wires the pipeline stages together.
type Runner struct {
	mailbox  Mailbox
	gate     Gate
	loader   Loader
	notifier Notifier
}

// NewRunner returns a Runner over the given collaborators.
func NewRunner(mailbox Mailbox, gate Gate, loader Loader, notifier Notifier) *Runner {
	return &Runner{
		mailbox:  mailbox,
		gate:     gate,
		loader:   loader,
		notifier: notifier,
	}
}

// Run executes one ingestion pass. Messages are handled in search
// order, attachments in message order, strictly sequentially. Failures
// are isolated per attachment; only mailbox-level failures abort the
// pass.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	uids, err := r.mailbox.SearchAll()
	if err != nil {
		return summary, err
	}
	log.Printf("Found %d messages in inbox", len(uids))

	for _, uid := range uids {
		raw, err := r.mailbox.FetchRaw(uid)
		if err != nil {
			return summary, fmt.Errorf("failed to fetch message %d: %w", uid, err)
		}

		msg, err := mail.ParseRaw(uid, raw)
		if err != nil {
			log.Printf("Skipping unparseable message %d: %v", uid, err)
			continue
		}

		if len(msg.Attachments) == 0 {
			continue
		}

		summary.Messages++
		log.Printf("Processing message %d from %s: %d qualifying attachment(s)", uid, msg.From, len(msg.Attachments))

		for _, attachment := range msg.Attachments {
			r.processAttachment(ctx, msg, attachment, &summary)
		}

		// Every attachment has reached a terminal state; close out the
		// message.
		if err := r.mailbox.MarkSeen(uid); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// processAttachment takes one attachment through gate, parser, and
// loader. Any error is converted into a failure notification; nothing
// propagates to the caller.
func (r *Runner) processAttachment(ctx context.Context, msg *mail.Message, attachment mail.Attachment, summary *Summary) {
	path, alreadySeen, err := r.gate.Claim(attachment.Filename, attachment.Data)
	if err != nil {
		// Ledger write failed: the attachment was not recorded, so a
		// later run will retry it. Report the failure.
		summary.Failed++
		r.notifyOutcome(msg, attachment.Filename, err)
		return
	}

	if alreadySeen {
		log.Printf("File %s already exists, skipping", attachment.Filename)
		summary.Skipped++
		return
	}
	log.Printf("Saved attachment to %s", path)

	if err := r.ingestAttachment(ctx, attachment); err != nil {
		log.Printf("Error processing %s: %v", attachment.Filename, err)
		summary.Failed++
		r.notifyOutcome(msg, attachment.Filename, err)
		return
	}

	log.Printf("Successfully processed %s", attachment.Filename)
	summary.Loaded++
	r.notifyOutcome(msg, attachment.Filename, nil)
}

// ingestAttachment parses the attachment with the parser its kind
// routes to, then loads the result.
func (r *Runner) ingestAttachment(ctx context.Context, attachment mail.Attachment) error {
	var (
		table     *parse.Table
		tableName string
		err       error
	)

	switch attachment.Kind {
	case mail.KindFitNotes:
		table, err = parse.FitNotes(attachment.Data)
		tableName = load.FitNotesTable
	case mail.KindLoopHabits:
		table, err = parse.LoopHabits(attachment.Data)
		tableName = load.LoopHabitsTable
	default:
		return fmt.Errorf("unrecognized attachment kind for %s", attachment.Filename)
	}

	if err != nil {
		return err
	}

	return r.loader.Load(ctx, table, tableName, attachment.Filename)
}

func (r *Runner) notifyOutcome(msg *mail.Message, filename string, processErr error) {
	if err := r.notifier.SendOutcome(msg, filename, processErr); err != nil {
		log.Printf("Failed to send notification for %s: %v", filename, err)
	}
}
