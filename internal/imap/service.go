package imap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UlissesMoraes/emailrelatorio/internal/crypto"
	"github.com/UlissesMoraes/emailrelatorio/internal/db"
	"github.com/UlissesMoraes/emailrelatorio/internal/models"
)

// ErrCredentials is returned when the account credential is missing or the
// server rejects authentication. Terminal for the call; no retry is made.
var ErrCredentials = errors.New("email account credentials unavailable or rejected")

// ErrFolderSelect is returned when neither the requested folder nor the
// INBOX fallback can be selected. Terminal for the call.
var ErrFolderSelect = errors.New("failed to select email folder")

// checkForNewLimit bounds the cheap polling variant of sync.
const checkForNewLimit = 10

// FolderSource tags how a folder listing was obtained, so callers can tell a
// cache hit and a degraded default apart from a fresh listing.
type FolderSource string

const (
	FolderSourceCache    FolderSource = "cache"
	FolderSourceLive     FolderSource = "live"
	FolderSourceFallback FolderSource = "fallback"
)

// Service ingests messages from IMAP accounts into the database. Each call
// opens and fully tears down its own session; sessions are never shared or
// pooled across calls or accounts.
//
// Nothing serializes concurrent Sync calls for the same account. Two
// simultaneous syncs of one account/folder can race past the duplicate gate;
// callers that must avoid duplicate rows serialize per account themselves.
type Service struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor

	// now, dial and decode are swapped out in tests.
	now    func() time.Time
	dial   func(addr string) (*client.Client, error)
	decode func(raw io.Reader, accountAddress string, now time.Time) (*Decoded, error)
}

// NewService creates a new ingestion service.
func NewService(pool *pgxpool.Pool, encryptor *crypto.Encryptor) *Service {
	return &Service{
		pool:      pool,
		encryptor: encryptor,
		now:       time.Now,
		dial: func(addr string) (*client.Client, error) {
			return ConnectToIMAP(addr, true)
		},
		decode: DecodeMessage,
	}
}

// connect opens an authenticated session for the account. Credential
// problems are wrapped in ErrCredentials.
func (s *Service) connect(account *models.Account) (*client.Client, error) {
	endpoints, err := account.Provider.Endpoints()
	if err != nil {
		return nil, err
	}

	if account.Credential.Empty() {
		return nil, fmt.Errorf("%w: no credential stored for account %d", ErrCredentials, account.ID)
	}

	password, err := account.Credential.Reveal(s.encryptor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}

	c, err := s.dial(endpoints.IMAPAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoints.IMAPAddress(), err)
	}

	if err := Login(c, account.EmailAddress, password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}

	return c, nil
}

// ListFolders resolves the account's folder list. With forceRefresh false a
// non-empty cached list is returned without any network access; a stale list
// is preferable to a hard failure when the provider is unreachable. Any
// connection or listing failure degrades to the single default Inbox entry.
// The result is never empty and the call never fails.
func (s *Service) ListFolders(ctx context.Context, account *models.Account, forceRefresh bool) ([]models.Folder, FolderSource) {
	if !forceRefresh && len(account.Folders) > 0 {
		return account.Folders, FolderSourceCache
	}

	c, err := s.connect(account)
	if err != nil {
		log.Printf("Warning: Failed to connect for folder listing on account %d: %v", account.ID, err)
		return models.DefaultFolders(), FolderSourceFallback
	}
	defer func() {
		_ = c.Logout()
	}()

	mailboxes, err := ListMailboxes(c)
	if err != nil {
		log.Printf("Warning: Failed to list folders for account %d: %v", account.ID, err)
		return models.DefaultFolders(), FolderSourceFallback
	}

	folders := ParseFolders(mailboxes)
	if len(folders) == 0 {
		log.Printf("Warning: Folder listing for account %d produced no usable entries", account.ID)
		return models.DefaultFolders(), FolderSourceFallback
	}

	if err := db.UpdateFolderCache(ctx, s.pool, account.ID, folders); err != nil {
		// The cache is best-effort; a failed refresh does not invalidate
		// the listing we already have.
		log.Printf("Warning: Failed to persist folder cache for account %d: %v", account.ID, err)
	} else {
		account.Folders = folders
	}

	return folders, FolderSourceLive
}

// Sync ingests messages from one folder of the account into the database and
// returns the count of newly persisted rows. Only messages received since
// the first day of the current month are considered, capped to the most
// recent maxMessages candidates, processed newest to oldest.
//
// Authentication failures return ErrCredentials and folder selection
// failures (after one INBOX fallback) return ErrFolderSelect; both are
// terminal. Per-message fetch and decode failures are absorbed: a fetch
// failure skips the candidate, a decode failure stages a placeholder row.
// All staged rows are committed in a single transaction, and every
// successful sync records the account's last-synced timestamp, even a sync
// that found nothing new.
func (s *Service) Sync(ctx context.Context, account *models.Account, folder string, maxMessages int) (int, error) {
	c, err := s.connect(account)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = c.Logout()
	}()

	selected, err := s.selectFolder(c, folder)
	if err != nil {
		return 0, err
	}

	seqNums, err := SearchSince(c, startOfMonth(s.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to search folder %s: %w", selected, err)
	}

	candidates := capNewestFirst(seqNums, maxMessages)

	var staged []*models.Message
	for _, seqNum := range candidates {
		msg, body, err := FetchRawMessage(c, seqNum)
		if err != nil {
			log.Printf("Warning: Failed to fetch message %d from %s: %v", seqNum, selected, err)
			continue
		}

		messageID := ""
		envelopeSubject := ""
		if msg.Envelope != nil {
			messageID = msg.Envelope.MessageId
			envelopeSubject = msg.Envelope.Subject
		}

		// The gate checks committed state only. Duplicates within the
		// current batch are not caught.
		duplicate, err := s.isDuplicate(ctx, account.ID, messageID, selected)
		if err != nil {
			return 0, err
		}
		if duplicate {
			continue
		}

		row := s.buildRow(account, body, messageID, envelopeSubject, selected)
		staged = append(staged, row)
	}

	if len(staged) > 0 {
		if err := s.commitBatch(ctx, staged); err != nil {
			return 0, err
		}
	}

	// The timestamp records the sync itself, not the arrival of new rows,
	// so it moves even when everything was a duplicate.
	if err := db.TouchLastSynced(ctx, s.pool, account.ID, s.now()); err != nil {
		log.Printf("Warning: Failed to update last-synced timestamp for account %d: %v", account.ID, err)
	}

	return len(staged), nil
}

// syncAllSkippedNames are folder names excluded when syncing every folder.
// Trash and spam only add noise to report totals.
var syncAllSkippedNames = map[string]bool{
	"trash":   true,
	"spam":    true,
	"junk":    true,
	"lixeira": true,
	"lixo":    true,
}

// skipInSyncAll reports whether SyncAll leaves a folder out: the bare
// [Gmail] container is not selectable, and trash or spam folders are
// matched by name in either the provider or display form.
func skipInSyncAll(folder models.Folder) bool {
	if folder.Path == "[Gmail]" {
		return true
	}

	leaf := folder.Path
	if i := strings.LastIndexAny(leaf, "/."); i >= 0 {
		leaf = leaf[i+1:]
	}

	return syncAllSkippedNames[strings.ToLower(leaf)] ||
		syncAllSkippedNames[strings.ToLower(folder.Name)]
}

// SyncAll runs Sync over every folder of the account except trash, spam and
// the bare [Gmail] container, and returns the total count of newly persisted
// rows. A failure in one folder is absorbed with a warning so the remaining
// folders still run; authentication failures abort immediately since no
// later folder could succeed either.
func (s *Service) SyncAll(ctx context.Context, account *models.Account, maxMessages int) (int, error) {
	folders, _ := s.ListFolders(ctx, account, false)

	total := 0
	for _, folder := range folders {
		if skipInSyncAll(folder) {
			continue
		}

		imported, err := s.Sync(ctx, account, folder.Path, maxMessages)
		if err != nil {
			if errors.Is(err, ErrCredentials) {
				return total, err
			}
			log.Printf("Warning: Failed to sync folder %s for account %d: %v", folder.Path, account.ID, err)
			continue
		}
		total += imported
	}

	return total, nil
}

// CheckForNew is the cheap polling variant of Sync: same procedure, limited
// to the most recent messages. Returns true if anything new was persisted.
func (s *Service) CheckForNew(ctx context.Context, account *models.Account, folder string) (bool, error) {
	count, err := s.Sync(ctx, account, folder, checkForNewLimit)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// selectFolder selects the requested folder read-only, falling back once to
// INBOX if the requested folder was something else. Returns the folder that
// was actually selected.
func (s *Service) selectFolder(c *client.Client, folder string) (string, error) {
	sanitized := strings.TrimSpace(folder)
	if sanitized == "" {
		sanitized = "INBOX"
	}

	if _, err := c.Select(sanitized, true); err == nil {
		return sanitized, nil
	} else if strings.EqualFold(sanitized, "INBOX") {
		return "", fmt.Errorf("%w: INBOX: %v", ErrFolderSelect, err)
	} else {
		log.Printf("Warning: Failed to select folder %s (%v), falling back to INBOX", sanitized, err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return "", fmt.Errorf("%w: %s and INBOX fallback: %v", ErrFolderSelect, sanitized, err)
	}

	return "INBOX", nil
}

// isDuplicate is the deduplication gate. A message with an empty protocol
// identifier is never a duplicate: its identity cannot be established, so it
// is always inserted.
func (s *Service) isDuplicate(ctx context.Context, accountID int64, messageID, folder string) (bool, error) {
	if messageID == "" {
		return false, nil
	}

	exists, err := db.MessageExists(ctx, s.pool, accountID, messageID, folder)
	if err != nil {
		return false, fmt.Errorf("failed to run duplicate check: %w", err)
	}

	return exists, nil
}

// buildRow decodes the fetched body into a message row. A decode failure
// must not lose the batch: a minimal placeholder row is staged instead so
// ingestion accounting is preserved.
func (s *Service) buildRow(account *models.Account, body io.Reader, messageID, envelopeSubject, folder string) *models.Message {
	decoded, err := s.decode(body, account.EmailAddress, s.now())
	if err != nil {
		log.Printf("Warning: Failed to decode message %q in %s: %v", messageID, folder, err)
		subject := envelopeSubject
		if subject == "" {
			subject = "Sem assunto"
		}
		return &models.Message{
			AccountID: account.ID,
			MessageID: messageID,
			Folder:    folder,
			Subject:   truncateWithMarker("[Erro ao importar] "+subject, maxSubjectBytes),
			Sender:    "erro@importacao.local",
			Date:      s.now(),
		}
	}

	return &models.Message{
		AccountID:  account.ID,
		MessageID:  messageID,
		Folder:     folder,
		Subject:    decoded.Subject,
		Sender:     decoded.Sender,
		Recipients: decoded.Recipients,
		CC:         decoded.CC,
		BCC:        decoded.BCC,
		Date:       decoded.Date,
		BodyText:   decoded.BodyText,
		BodyHTML:   decoded.BodyHTML,
		IsSent:     decoded.IsSent,
	}
}

// commitBatch persists all staged rows in one transaction. A failure rolls
// the whole batch back; partial batches are never committed.
func (s *Service) commitBatch(ctx context.Context, staged []*models.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := db.InsertMessages(ctx, tx, staged); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sync batch: %w", err)
	}

	return nil
}
