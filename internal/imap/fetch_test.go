package imap

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/UlissesMoraes/emailrelatorio/internal/testutil"
)

func TestFetchRawMessage(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.EnsureINBOX(t)
	server.AddMessage(t, "INBOX", "<fetch@test>", "Fetch me", "a@test.com", "b@test.com", time.Now())

	client, cleanup := server.Connect(t)
	defer cleanup()

	status, err := client.Select("INBOX", true)
	if err != nil {
		t.Fatalf("Failed to select INBOX: %v", err)
	}

	// The message we just appended is the last one in the mailbox.
	msg, body, err := FetchRawMessage(client, status.Messages)
	if err != nil {
		t.Fatalf("FetchRawMessage failed: %v", err)
	}

	if msg.Envelope == nil {
		t.Fatal("Expected envelope to be fetched")
	}
	if msg.Envelope.MessageId != "<fetch@test>" {
		t.Errorf("Unexpected message id: %q", msg.Envelope.MessageId)
	}
	if msg.Envelope.Subject != "Fetch me" {
		t.Errorf("Unexpected subject: %q", msg.Envelope.Subject)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !strings.Contains(string(raw), "Test message body.") {
		t.Errorf("Expected raw body content, got: %q", string(raw))
	}
}

func TestFetchRawMessageNilClient(t *testing.T) {
	_, _, err := FetchRawMessage(nil, 1)
	if err == nil {
		t.Fatal("Expected error for nil client")
	}
}
