package imap

import (
	"fmt"
	"log"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/UlissesMoraes/emailrelatorio/internal/models"
)

// wellKnownFolderNames maps well-known provider folder paths to the display
// names the report UI shows. Paths not listed here use their raw leaf name.
var wellKnownFolderNames = map[string]string{
	"INBOX":             "Caixa de Entrada",
	"[Gmail]/Sent Mail": "Enviados",
	"[Gmail]/Drafts":    "Rascunhos",
	"[Gmail]/Trash":     "Lixeira",
	"[Gmail]/Spam":      "Spam",
	"[Gmail]/Starred":   "Favoritos",
	"[Gmail]/Important": "Importantes",
}

// ListMailboxes requests the raw mailbox listing from the server.
func ListMailboxes(c *client.Client) ([]*imap.MailboxInfo, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var result []*imap.MailboxInfo
	for m := range mailboxes {
		result = append(result, m)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}

	return result, nil
}

// ParseFolders converts raw mailbox entries into folder records. Entries
// without a usable path are skipped with a warning; the "[Gmail]/All Mail"
// aggregate is excluded so report totals do not count messages twice.
func ParseFolders(mailboxes []*imap.MailboxInfo) []models.Folder {
	var folders []models.Folder

	for _, m := range mailboxes {
		if m == nil {
			continue
		}

		path := strings.TrimSpace(m.Name)
		if path == "" {
			log.Printf("Warning: Skipping mailbox entry with empty path (delimiter %q, attributes %v)", m.Delimiter, m.Attributes)
			continue
		}

		if strings.HasPrefix(path, "[Gmail]/All") {
			continue
		}

		name := path
		if m.Delimiter != "" && strings.Contains(path, m.Delimiter) {
			parts := strings.Split(path, m.Delimiter)
			name = parts[len(parts)-1]
		}

		if friendly, ok := wellKnownFolderNames[path]; ok {
			name = friendly
		}

		folders = append(folders, models.Folder{Name: name, Path: path})
	}

	return folders
}
