package imap

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
)

// Field byte budgets. Oversized fields are truncated with a continuation
// marker to bound storage and downstream rendering cost.
const (
	maxSubjectBytes    = 1000
	maxSenderBytes     = 500
	maxRecipientsBytes = 5000
	maxCCBytes         = 2000
	maxBCCBytes        = 2000
	maxBodyBytes       = 65000
)

// truncationMarker is appended to fields cut at their byte budget.
const truncationMarker = "..."

// Degradation names a best-effort fallback that was taken during decoding.
// Decoding that degrades still succeeds; the record lets callers and tests
// tell "worked normally" apart from "worked via fallback".
type Degradation string

const (
	// DegradationDateFallback: the Date header was missing or unparseable
	// and the processing time was substituted.
	DegradationDateFallback Degradation = "date-fallback"
	// DegradationHTMLTextExtraction: the message had only an HTML body and
	// deriving a plain-text version from it failed.
	DegradationHTMLTextExtraction Degradation = "html-text-extraction-failed"
	// DegradationCharset: one or more parts could not be decoded cleanly
	// and replacement characters were substituted.
	DegradationCharset Degradation = "charset-fallback"
)

// Decoded holds the normalized fields extracted from one raw message.
type Decoded struct {
	Subject      string
	Sender       string
	Recipients   string
	CC           string
	BCC          string
	Date         time.Time
	BodyText     string
	BodyHTML     string
	IsSent       bool
	Degradations []Degradation
}

// Degraded reports whether the given fallback was taken.
func (d *Decoded) Degraded(degradation Degradation) bool {
	for _, got := range d.Degradations {
		if got == degradation {
			return true
		}
	}
	return false
}

// DecodeMessage extracts normalized fields from a raw RFC 822 message.
// It is a pure function: no I/O, no side effects. accountAddress is the
// owning account's address, used for the sent/received flag; now is the
// processing time substituted when the Date header cannot be parsed.
func DecodeMessage(raw io.Reader, accountAddress string, now time.Time) (*Decoded, error) {
	envelope, err := enmime.ReadEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	decoded := &Decoded{
		Subject:    truncateWithMarker(envelope.GetHeader("Subject"), maxSubjectBytes),
		Sender:     truncate(envelope.GetHeader("From"), maxSenderBytes),
		Recipients: truncateWithMarker(envelope.GetHeader("To"), maxRecipientsBytes),
		CC:         truncateWithMarker(envelope.GetHeader("Cc"), maxCCBytes),
		BCC:        truncateWithMarker(envelope.GetHeader("Bcc"), maxBCCBytes),
	}

	for _, envelopeErr := range envelope.Errors {
		name := strings.ToLower(envelopeErr.Name)
		if strings.Contains(name, "charset") || strings.Contains(name, "character set") {
			decoded.Degradations = append(decoded.Degradations, DegradationCharset)
			break
		}
	}

	decoded.Date = now
	if dateHeader := envelope.GetHeader("Date"); dateHeader != "" {
		if parsed, err := mail.ParseDate(dateHeader); err == nil {
			decoded.Date = parsed
		} else {
			decoded.Degradations = append(decoded.Degradations, DegradationDateFallback)
		}
	} else {
		decoded.Degradations = append(decoded.Degradations, DegradationDateFallback)
	}

	bodyText, bodyHTML := extractBodies(envelope)

	if bodyText == "" && bodyHTML != "" {
		derived, err := html2text.FromString(bodyHTML)
		if err != nil {
			decoded.Degradations = append(decoded.Degradations, DegradationHTMLTextExtraction)
		} else {
			bodyText = derived
		}
	}

	decoded.BodyText = truncateWithMarker(bodyText, maxBodyBytes)
	decoded.BodyHTML = truncateWithMarker(bodyHTML, maxBodyBytes)

	// Approximation: the account's own address appearing inside the From
	// header counts as sent. Aliases and plus-addressing do not match.
	if accountAddress != "" {
		decoded.IsSent = strings.Contains(
			strings.ToLower(decoded.Sender),
			strings.ToLower(accountAddress),
		)
	}

	return decoded, nil
}

// extractBodies captures the first non-attachment text/plain part and the
// first non-attachment text/html part. First match wins per content type;
// later parts of the same type are ignored.
func extractBodies(envelope *enmime.Envelope) (bodyText, bodyHTML string) {
	if envelope.Root == nil {
		return envelope.Text, envelope.HTML
	}

	textPart := envelope.Root.DepthMatchFirst(func(p *enmime.Part) bool {
		return p.ContentType == "text/plain" && p.Disposition != "attachment"
	})
	if textPart != nil {
		bodyText = string(textPart.Content)
	}

	htmlPart := envelope.Root.DepthMatchFirst(func(p *enmime.Part) bool {
		return p.ContentType == "text/html" && p.Disposition != "attachment"
	})
	if htmlPart != nil {
		bodyHTML = string(htmlPart.Content)
	}

	return bodyText, bodyHTML
}

// truncate cuts s at the byte budget, backing off to a rune boundary. Only
// a rune split by the cut point is dropped; invalid bytes elsewhere in s
// are kept as-is, so the back-off never removes more than one rune's worth
// of bytes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := s[:max]
	for i := 0; i < utf8.UTFMax-1 && len(cut) > 0; i++ {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}

// truncateWithMarker cuts s at the byte budget and appends the continuation
// marker when anything was removed.
func truncateWithMarker(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return truncate(s, max) + truncationMarker
}
