package imap

import (
	"fmt"
	"io"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// FetchRawMessage fetches the envelope and the full raw body of one message
// by sequence number. The returned reader yields the complete RFC 822 bytes.
func FetchRawMessage(c *client.Client, seqNum uint32) (*imap.Message, io.Reader, error) {
	if c == nil {
		return nil, nil, fmt.Errorf("client is nil")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNum)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	msg := <-messages
	if err := <-done; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch message %d: %w", seqNum, err)
	}

	if msg == nil {
		return nil, nil, fmt.Errorf("server did not return message %d", seqNum)
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, nil, fmt.Errorf("server did not return a body for message %d", seqNum)
	}

	return msg, body, nil
}
