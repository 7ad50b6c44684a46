package imap

import (
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// SearchSince searches the selected mailbox for messages received on or
// after the given date. Returns sequence numbers in server search order
// (oldest first).
func SearchSince(c *client.Client, since time.Time) ([]uint32, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since

	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	return seqNums, nil
}

// startOfMonth returns midnight UTC on the first calendar day of now's month.
// Routine sync is bounded to the current month; historical backfill is a
// separate concern.
func startOfMonth(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// capNewestFirst keeps at most max sequence numbers, preferring the most
// recent ones, and returns them ordered newest to oldest. Search results
// arrive oldest first, so the cap keeps the tail of the slice.
func capNewestFirst(seqNums []uint32, max int) []uint32 {
	if max > 0 && len(seqNums) > max {
		seqNums = seqNums[len(seqNums)-max:]
	}

	reversed := make([]uint32, len(seqNums))
	for i, n := range seqNums {
		reversed[len(seqNums)-1-i] = n
	}
	return reversed
}
