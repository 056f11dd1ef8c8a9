package ingest

import (
	"context"
	"testing"

	"github.com/mvarga/habitmail/internal/mail"
	"github.com/mvarga/habitmail/internal/parse"
	"github.com/mvarga/habitmail/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailbox struct {
	order []uint32
	raw   map[uint32][]byte
	seen  []uint32
}

func (m *fakeMailbox) SearchAll() ([]uint32, error) { return m.order, nil }
func (m *fakeMailbox) FetchRaw(uid uint32) ([]byte, error) { return m.raw[uid], nil }
func (m *fakeMailbox) MarkSeen(uid uint32) error {
	m.seen = append(m.seen, uid)
	return nil
}

type fakeGate struct {
	files map[string][]byte
}

func (g *fakeGate) Claim(filename string, data []byte) (string, bool, error) {
	if g.files == nil {
		g.files = map[string][]byte{}
	}
	if _, ok := g.files[filename]; ok {
		return "files/" + filename, true, nil
	}
	g.files[filename] = data
	return "files/" + filename, false, nil
}

type loadCall struct {
	table     *parse.Table
	tableName string
	filename  string
}

type fakeLoader struct {
	calls []loadCall
	err   error
}

func (l *fakeLoader) Load(_ context.Context, table *parse.Table, tableName, sourceFilename string) error {
	if l.err != nil {
		return l.err
	}
	l.calls = append(l.calls, loadCall{table: table, tableName: tableName, filename: sourceFilename})
	return nil
}

type outcome struct {
	uid      uint32
	filename string
	err      error
}

type fakeNotifier struct {
	outcomes []outcome
}

func (n *fakeNotifier) SendOutcome(original *mail.Message, filename string, processErr error) error {
	n.outcomes = append(n.outcomes, outcome{uid: original.UID, filename: filename, err: processErr})
	return nil
}

func fitNotesMessage(uid uint32) (uint32, []byte) {
	raw := testutil.RawExportMessage(
		"<fitnotes@example.com>",
		"jordan@example.com",
		"FitNotes export",
		[]testutil.AttachmentSpec{{
			Filename: "FitNotes_Export_2024-01-01.csv",
			Content: []byte("Date,Exercise,Reps\n" +
				"2024-01-01,Squat,5\n" +
				"2024-01-01,Bench Press,5\n" +
				"2024-01-02,Deadlift,3\n"),
		}},
	)
	return uid, []byte(raw)
}

func habitsMessage(t *testing.T, uid uint32, members map[string]string) (uint32, []byte) {
	raw := testutil.RawExportMessage(
		"<habits@example.com>",
		"jordan@example.com",
		"Loop export",
		[]testutil.AttachmentSpec{{
			Filename: "Loop Habits CSV 2024.zip",
			Content:  testutil.ZipWithFiles(t, members),
		}},
	)
	return uid, []byte(raw)
}

func newTestRunner(mailbox *fakeMailbox) (*Runner, *fakeGate, *fakeLoader, *fakeNotifier) {
	gate := &fakeGate{}
	loader := &fakeLoader{}
	notifier := &fakeNotifier{}
	return NewRunner(mailbox, gate, loader, notifier), gate, loader, notifier
}

func TestRunLoadsFitNotesExport(t *testing.T) {
	uid, raw := fitNotesMessage(5)
	mailbox := &fakeMailbox{order: []uint32{uid}, raw: map[uint32][]byte{uid: raw}}
	runner, _, loader, notifier := newTestRunner(mailbox)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Messages: 1, Loaded: 1}, summary)

	require.Len(t, loader.calls, 1)
	call := loader.calls[0]
	assert.Equal(t, "fitnotes_workouts", call.tableName)
	assert.Equal(t, "FitNotes_Export_2024-01-01.csv", call.filename)
	assert.Equal(t, 3, call.table.NumRows())

	require.Len(t, notifier.outcomes, 1)
	assert.Equal(t, uid, notifier.outcomes[0].uid)
	assert.NoError(t, notifier.outcomes[0].err)

	assert.Equal(t, []uint32{uid}, mailbox.seen, "message is marked read after its attachment is handled")
}

func TestRunMeltsHabitsExport(t *testing.T) {
	uid, raw := habitsMessage(t, 9, map[string]string{
		"Checkmarks.csv": "Date,Meditate,Read,Run\n2024-01-01,1,0,2\n2024-01-02,0,1,1\n",
	})
	mailbox := &fakeMailbox{order: []uint32{uid}, raw: map[uint32][]byte{uid: raw}}
	runner, _, loader, _ := newTestRunner(mailbox)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Loaded)
	require.Len(t, loader.calls, 1)
	assert.Equal(t, "loop_habits", loader.calls[0].tableName)
	// 2 dates x 3 habits
	assert.Equal(t, 6, loader.calls[0].table.NumRows())
}

func TestRunArchiveMissingMember(t *testing.T) {
	uid, raw := habitsMessage(t, 4, map[string]string{
		"Habits.csv": "Name\nMeditate\n",
	})
	mailbox := &fakeMailbox{order: []uint32{uid}, raw: map[uint32][]byte{uid: raw}}
	runner, _, loader, notifier := newTestRunner(mailbox)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Messages: 1, Failed: 1}, summary)
	assert.Empty(t, loader.calls, "a failed parse must not reach the store")

	require.Len(t, notifier.outcomes, 1)
	require.Error(t, notifier.outcomes[0].err)
	assert.Contains(t, notifier.outcomes[0].err.Error(), "member not found")

	assert.Equal(t, []uint32{uid}, mailbox.seen, "the message is still marked read after a terminal failure")
}

func TestRunDedupShortCircuit(t *testing.T) {
	uid, raw := fitNotesMessage(5)
	mailbox := &fakeMailbox{order: []uint32{uid}, raw: map[uint32][]byte{uid: raw}}
	runner, _, loader, notifier := newTestRunner(mailbox)

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	// Second pass over the same mailbox: the gate already holds the
	// filename.
	mailbox.seen = nil
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Messages: 1, Skipped: 1}, summary)
	assert.Len(t, loader.calls, 1, "no second load for an already-claimed filename")
	assert.Len(t, notifier.outcomes, 1, "a dedup skip sends no notification")
}

func TestRunSkipsMessagesWithoutQualifyingAttachments(t *testing.T) {
	raw := testutil.RawExportMessage("<chat@example.com>", "jordan@example.com", "Hi", nil)
	mailbox := &fakeMailbox{order: []uint32{2}, raw: map[uint32][]byte{2: []byte(raw)}}
	runner, _, loader, notifier := newTestRunner(mailbox)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{}, summary)
	assert.Empty(t, loader.calls)
	assert.Empty(t, notifier.outcomes)
	assert.Empty(t, mailbox.seen, "non-qualifying messages are left untouched")
}

func TestRunIsolatesSiblingAttachmentFailures(t *testing.T) {
	raw := testutil.RawExportMessage(
		"<mixed@example.com>",
		"jordan@example.com",
		"Both exports",
		[]testutil.AttachmentSpec{
			{
				Filename: "Loop Habits CSV 2024.zip",
				Content:  []byte("not a zip at all"),
			},
			{
				Filename: "FitNotes_Export_2024-01-05.csv",
				Content:  []byte("Date,Exercise\n2024-01-05,Squat\n"),
			},
		},
	)
	mailbox := &fakeMailbox{order: []uint32{8}, raw: map[uint32][]byte{8: []byte(raw)}}
	runner, _, loader, notifier := newTestRunner(mailbox)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Messages: 1, Loaded: 1, Failed: 1}, summary)
	require.Len(t, loader.calls, 1, "the healthy sibling still loads")
	assert.Equal(t, "FitNotes_Export_2024-01-05.csv", loader.calls[0].filename)

	require.Len(t, notifier.outcomes, 2)
	assert.Error(t, notifier.outcomes[0].err)
	assert.NoError(t, notifier.outcomes[1].err)

	assert.Equal(t, []uint32{8}, mailbox.seen)
}

func TestRunLoadFailureNotifiesFailure(t *testing.T) {
	uid, raw := fitNotesMessage(6)
	mailbox := &fakeMailbox{order: []uint32{uid}, raw: map[uint32][]byte{uid: raw}}
	runner, _, loader, notifier := newTestRunner(mailbox)
	loader.err = assert.AnError

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Messages: 1, Failed: 1}, summary)
	require.Len(t, notifier.outcomes, 1)
	assert.ErrorIs(t, notifier.outcomes[0].err, assert.AnError)
}
