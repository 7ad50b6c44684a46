package imap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/UlissesMoraes/emailrelatorio/internal/testutil"
)

func TestStartOfMonth(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "mid month",
			now:  time.Date(2026, 8, 20, 15, 30, 45, 0, time.UTC),
			want: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "first of month",
			now:  time.Date(2026, 8, 1, 0, 0, 0, 1, time.UTC),
			want: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC input is normalized",
			now:  time.Date(2026, 9, 1, 1, 0, 0, 0, time.FixedZone("BRT", -3*60*60)),
			want: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := startOfMonth(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("startOfMonth(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestCapNewestFirst(t *testing.T) {
	t.Run("caps to the most recent tail", func(t *testing.T) {
		got := capNewestFirst([]uint32{1, 2, 3, 4, 5}, 3)
		assert.Equal(t, []uint32{5, 4, 3}, got)
	})

	t.Run("short input is only reversed", func(t *testing.T) {
		got := capNewestFirst([]uint32{1, 2}, 10)
		assert.Equal(t, []uint32{2, 1}, got)
	})

	t.Run("zero max keeps everything", func(t *testing.T) {
		got := capNewestFirst([]uint32{1, 2, 3}, 0)
		assert.Equal(t, []uint32{3, 2, 1}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, capNewestFirst(nil, 5))
	})
}

func TestSearchSince(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.EnsureINBOX(t)
	server.AddMessage(t, "INBOX", "<search1@test>", "One", "a@test.com", "b@test.com", time.Now())
	server.AddMessage(t, "INBOX", "<search2@test>", "Two", "a@test.com", "b@test.com", time.Now())

	client, cleanup := server.Connect(t)
	defer cleanup()

	if _, err := client.Select("INBOX", true); err != nil {
		t.Fatalf("Failed to select INBOX: %v", err)
	}

	t.Run("finds recent messages", func(t *testing.T) {
		// All messages (including the backend's default one) have today's
		// internal date.
		seqNums, err := SearchSince(client, time.Now().AddDate(0, 0, -1))
		if err != nil {
			t.Fatalf("SearchSince failed: %v", err)
		}
		assert.Len(t, seqNums, 3)
	})

	t.Run("future cutoff finds nothing", func(t *testing.T) {
		seqNums, err := SearchSince(client, time.Now().AddDate(0, 0, 2))
		if err != nil {
			t.Fatalf("SearchSince failed: %v", err)
		}
		assert.Empty(t, seqNums)
	})
}

func TestSearchSinceNilClient(t *testing.T) {
	_, err := SearchSince(nil, time.Now())
	if err == nil {
		t.Fatal("Expected error for nil client")
	}
}
