package imap

import (
	"strings"
	"testing"

	"github.com/mvarga/habitmail/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionForTest(t *testing.T) (*Session, *testutil.TestIMAPServer) {
	t.Helper()

	server := testutil.NewTestIMAPServer(t)
	t.Cleanup(server.Close)

	session, err := NewSession(server.Address, server.Username(), server.Password(), false)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { _ = session.Logout() })

	return session, server
}

func TestNewSessionBadCredentials(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	_, err := NewSession(server.Address, "nobody", "wrong", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authenticate")
}

func TestSearchAll(t *testing.T) {
	session, server := newSessionForTest(t)

	raw := testutil.RawExportMessage("<search-test@example.com>", "jordan@example.com", "Export", nil)
	server.AddRawMessage(t, "<search-test@example.com>", raw)

	uids, err := session.SearchAll()
	require.NoError(t, err)
	// The memory backend seeds INBOX with one sample message.
	assert.GreaterOrEqual(t, len(uids), 2)
}

func TestFetchRaw(t *testing.T) {
	session, server := newSessionForTest(t)

	raw := testutil.RawExportMessage("<fetch-test@example.com>", "jordan@example.com", "Fetch me", nil)
	uid := server.AddRawMessage(t, "<fetch-test@example.com>", raw)

	fetched, err := session.FetchRaw(uid)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(fetched), "Subject: Fetch me"))
}

func TestMarkSeen(t *testing.T) {
	session, server := newSessionForTest(t)

	raw := testutil.RawExportMessage("<seen-test@example.com>", "jordan@example.com", "Flag me", nil)
	uid := server.AddRawMessage(t, "<seen-test@example.com>", raw)

	require.False(t, server.MessageIsSeen(t, uid))

	require.NoError(t, session.MarkSeen(uid))
	assert.True(t, server.MessageIsSeen(t, uid))
}
