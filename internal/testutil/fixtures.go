package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
)

// AttachmentSpec describes one attachment of a fixture message.
type AttachmentSpec struct {
	Filename string
	Content  []byte
}

// RawExportMessage builds a raw multipart RFC 822 message carrying the
// given attachments, the shape a phone's export-by-email produces.
func RawExportMessage(messageID, from, subject string, attachments []AttachmentSpec) string {
	const boundary = "habitmail-test-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: ingest@example.com\r\n")
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: Mon, 01 Jan 2024 10:00:00 +0000\r\n")
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString("Export attached.\r\n")

	for _, attachment := range attachments {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: application/octet-stream; name=%q\r\n", attachment.Filename)
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", attachment.Filename)
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(base64.StdEncoding.EncodeToString(attachment.Content))
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.String()
}

// ZipWithFiles builds an in-memory ZIP archive with the given members.
func ZipWithFiles(t *testing.T, members map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range members {
		f, err := writer.Create(name)
		if err != nil {
			t.Fatalf("Failed to create ZIP member %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write ZIP member %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close ZIP writer: %v", err)
	}

	return buf.Bytes()
}
