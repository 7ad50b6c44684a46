package imap

import (
	"strings"
	"testing"
	"time"
)

var decodeNow = time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)

func TestDecodeMessagePlainText(t *testing.T) {
	raw := "Message-ID: <plain@test>\r\n" +
		"Date: Wed, 19 Aug 2026 10:30:00 -0300\r\n" +
		"From: Maria <maria@example.com>\r\n" +
		"To: joao@example.com\r\n" +
		"Cc: ana@example.com\r\n" +
		"Subject: Relatório mensal\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Segue o relatório em anexo.\r\n"

	decoded, err := DecodeMessage(strings.NewReader(raw), "joao@example.com", decodeNow)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	if decoded.Subject != "Relatório mensal" {
		t.Errorf("Unexpected subject: %q", decoded.Subject)
	}
	if !strings.Contains(decoded.Sender, "maria@example.com") {
		t.Errorf("Unexpected sender: %q", decoded.Sender)
	}
	if !strings.Contains(decoded.Recipients, "joao@example.com") {
		t.Errorf("Unexpected recipients: %q", decoded.Recipients)
	}
	if !strings.Contains(decoded.CC, "ana@example.com") {
		t.Errorf("Unexpected cc: %q", decoded.CC)
	}
	if !strings.Contains(decoded.BodyText, "Segue o relatório") {
		t.Errorf("Unexpected body: %q", decoded.BodyText)
	}
	if decoded.IsSent {
		t.Error("Message from another sender should not be flagged as sent")
	}
	if len(decoded.Degradations) != 0 {
		t.Errorf("Expected clean decode, got degradations: %v", decoded.Degradations)
	}

	want := time.Date(2026, 8, 19, 10, 30, 0, 0, time.FixedZone("", -3*60*60))
	if !decoded.Date.Equal(want) {
		t.Errorf("Unexpected date: %v", decoded.Date)
	}
}

func TestDecodeMessageSentDetection(t *testing.T) {
	raw := "From: Joao <JOAO@example.com>\r\n" +
		"To: maria@example.com\r\n" +
		"Date: Wed, 19 Aug 2026 10:30:00 +0000\r\n" +
		"Subject: Oi\r\n" +
		"\r\n" +
		"Tudo bem?\r\n"

	decoded, err := DecodeMessage(strings.NewReader(raw), "joao@example.com", decodeNow)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if !decoded.IsSent {
		t.Error("Expected message from the account's own address to be flagged as sent")
	}
}

func TestDecodeMessageDateFallback(t *testing.T) {
	t.Run("missing date header", func(t *testing.T) {
		raw := "From: a@example.com\r\nTo: b@example.com\r\nSubject: No date\r\n\r\nBody\r\n"

		decoded, err := DecodeMessage(strings.NewReader(raw), "", decodeNow)
		if err != nil {
			t.Fatalf("DecodeMessage failed: %v", err)
		}
		if !decoded.Date.Equal(decodeNow) {
			t.Errorf("Expected processing time substitute, got %v", decoded.Date)
		}
		if !decoded.Degraded(DegradationDateFallback) {
			t.Error("Expected date-fallback degradation to be recorded")
		}
	})

	t.Run("unparseable date header", func(t *testing.T) {
		raw := "From: a@example.com\r\nDate: not a date\r\nSubject: Bad date\r\n\r\nBody\r\n"

		decoded, err := DecodeMessage(strings.NewReader(raw), "", decodeNow)
		if err != nil {
			t.Fatalf("DecodeMessage failed: %v", err)
		}
		if !decoded.Date.Equal(decodeNow) {
			t.Errorf("Expected processing time substitute, got %v", decoded.Date)
		}
		if !decoded.Degraded(DegradationDateFallback) {
			t.Error("Expected date-fallback degradation to be recorded")
		}
	})
}

func TestDecodeMessageHTMLOnly(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Date: Wed, 19 Aug 2026 10:30:00 +0000\r\n" +
		"Subject: HTML only\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>Bom dia, <b>equipe</b>!</p></body></html>\r\n"

	decoded, err := DecodeMessage(strings.NewReader(raw), "", decodeNow)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if !strings.Contains(decoded.BodyHTML, "<b>equipe</b>") {
		t.Errorf("Expected HTML body preserved, got %q", decoded.BodyHTML)
	}
	if !strings.Contains(decoded.BodyText, "equipe") {
		t.Errorf("Expected plain text derived from HTML, got %q", decoded.BodyText)
	}
}

func TestDecodeMessageMultipart(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Date: Wed, 19 Aug 2026 10:30:00 +0000\r\n" +
		"Subject: Multipart\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"frontier\"\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Versão em texto.\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>Versão em HTML.</p>\r\n" +
		"--frontier--\r\n"

	decoded, err := DecodeMessage(strings.NewReader(raw), "", decodeNow)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if !strings.Contains(decoded.BodyText, "Versão em texto") {
		t.Errorf("Unexpected text body: %q", decoded.BodyText)
	}
	if !strings.Contains(decoded.BodyHTML, "Versão em HTML") {
		t.Errorf("Unexpected HTML body: %q", decoded.BodyHTML)
	}
}

func TestDecodeMessageTruncation(t *testing.T) {
	longSubject := strings.Repeat("a", maxSubjectBytes+100)
	longFrom := strings.Repeat("b", maxSenderBytes+100) + "@example.com"
	longBody := strings.Repeat("c", maxBodyBytes+100)

	raw := "From: " + longFrom + "\r\n" +
		"Date: Wed, 19 Aug 2026 10:30:00 +0000\r\n" +
		"Subject: " + longSubject + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		longBody + "\r\n"

	decoded, err := DecodeMessage(strings.NewReader(raw), "", decodeNow)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	if len(decoded.Subject) != maxSubjectBytes+len(truncationMarker) {
		t.Errorf("Unexpected subject length: %d", len(decoded.Subject))
	}
	if !strings.HasSuffix(decoded.Subject, truncationMarker) {
		t.Error("Expected continuation marker on truncated subject")
	}

	// The sender field is cut without a marker.
	if len(decoded.Sender) != maxSenderBytes {
		t.Errorf("Unexpected sender length: %d", len(decoded.Sender))
	}
	if strings.HasSuffix(decoded.Sender, truncationMarker) {
		t.Error("Sender truncation must not append a marker")
	}

	if len(decoded.BodyText) != maxBodyBytes+len(truncationMarker) {
		t.Errorf("Unexpected body length: %d", len(decoded.BodyText))
	}
}

func TestTruncateRespectsRuneBoundaries(t *testing.T) {
	// "é" is two bytes in UTF-8; cutting at an odd budget must back off
	// to the previous rune boundary instead of leaving a broken sequence.
	s := strings.Repeat("é", 10)
	got := truncate(s, 5)
	if got != strings.Repeat("é", 2) {
		t.Errorf("Unexpected truncation result: %q", got)
	}
}

func TestTruncateKeepsEarlierInvalidBytes(t *testing.T) {
	// An invalid byte that was already present before the cut point is not
	// the cut's fault; the back-off must stay local to the cut instead of
	// eating the string back to the corruption.
	s := "ab\xffcd" + strings.Repeat("x", 20)
	got := truncate(s, 10)
	if len(got) != 10 {
		t.Fatalf("Expected 10 bytes, got %d (%q)", len(got), got)
	}
	if !strings.HasPrefix(got, "ab\xffcd") {
		t.Errorf("Prefix before the cut must survive, got %q", got)
	}
}

func TestDecodeMessageShortInputUntouched(t *testing.T) {
	raw := "From: a@example.com\r\nDate: Wed, 19 Aug 2026 10:30:00 +0000\r\nSubject: ok\r\n\r\nhi\r\n"

	decoded, err := DecodeMessage(strings.NewReader(raw), "", decodeNow)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if decoded.Subject != "ok" {
		t.Errorf("Short subject must not be modified, got %q", decoded.Subject)
	}
}
