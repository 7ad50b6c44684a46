package models

import (
	"time"

	"github.com/UlissesMoraes/emailrelatorio/internal/crypto"
)

// Folder is one mailbox folder on the provider, identified by its
// hierarchical path. Name is the human-readable display name.
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DefaultFolders is the minimal folder list returned when the live
// directory listing is unavailable. Callers must treat it as "directory
// unavailable", not as "mailbox empty".
func DefaultFolders() []Folder {
	return []Folder{{Name: "Caixa de Entrada", Path: "INBOX"}}
}

// Account is one registered external mailbox credential set.
type Account struct {
	ID           int64             `json:"id"`
	UserID       int64             `json:"user_id"`
	Provider     Provider          `json:"provider"`
	EmailAddress string            `json:"email_address"`
	Credential   crypto.Credential `json:"-"`
	Folders      []Folder          `json:"folders,omitempty"`
	LastSyncedAt *time.Time        `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Message is one ingested email. Rows are immutable once persisted and
// are deleted only by cascade when the owning account is deleted.
// Uniqueness key is (AccountID, MessageID, Folder); a message with an
// empty MessageID is never deduplicated.
type Message struct {
	ID         int64     `json:"id"`
	AccountID  int64     `json:"account_id"`
	MessageID  string    `json:"message_id"`
	Folder     string    `json:"folder"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Recipients string    `json:"recipients"`
	CC         string    `json:"cc"`
	BCC        string    `json:"bcc"`
	Date       time.Time `json:"date"`
	BodyText   string    `json:"body_text"`
	BodyHTML   string    `json:"body_html"`
	IsSent     bool      `json:"is_sent"`
	CreatedAt  time.Time `json:"created_at"`
}
