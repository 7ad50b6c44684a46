package imap

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/stretchr/testify/assert"

	"github.com/UlissesMoraes/emailrelatorio/internal/crypto"
	"github.com/UlissesMoraes/emailrelatorio/internal/db"
	"github.com/UlissesMoraes/emailrelatorio/internal/models"
	"github.com/UlissesMoraes/emailrelatorio/internal/testutil"
)

// sealedCredential seals the test server password for the account fixture.
func sealedCredential(t *testing.T, encryptor *crypto.Encryptor, secret string) crypto.Credential {
	t.Helper()

	sealed, err := crypto.NewCredential(secret).Seal(encryptor)
	if err != nil {
		t.Fatalf("Failed to seal credential: %v", err)
	}
	return sealed
}

func TestListFoldersFromCache(t *testing.T) {
	encryptor := testutil.GetTestEncryptor(t)
	service := NewService(nil, encryptor)
	service.dial = func(addr string) (*client.Client, error) {
		t.Fatal("Cache hit must not open a connection")
		return nil, nil
	}

	cached := []models.Folder{
		{Name: "Caixa de Entrada", Path: "INBOX"},
		{Name: "Enviados", Path: "[Gmail]/Sent Mail"},
	}
	account := &models.Account{
		ID:           1,
		Provider:     models.ProviderGmail,
		EmailAddress: "username",
		Credential:   sealedCredential(t, encryptor, "password"),
		Folders:      cached,
	}

	folders, source := service.ListFolders(context.Background(), account, false)

	assert.Equal(t, FolderSourceCache, source)
	assert.Equal(t, cached, folders)
}

func TestListFoldersFallbackOnConnectFailure(t *testing.T) {
	encryptor := testutil.GetTestEncryptor(t)
	service := NewService(nil, encryptor)
	service.dial = func(addr string) (*client.Client, error) {
		return nil, fmt.Errorf("connection refused")
	}

	account := &models.Account{
		ID:           1,
		Provider:     models.ProviderGmail,
		EmailAddress: "username",
		Credential:   sealedCredential(t, encryptor, "password"),
	}

	folders, source := service.ListFolders(context.Background(), account, false)

	assert.Equal(t, FolderSourceFallback, source)
	assert.Equal(t, models.DefaultFolders(), folders)

	// A forced refresh that cannot reach the server still yields a
	// non-empty list, even when a cached one exists.
	account.Folders = []models.Folder{{Name: "Enviados", Path: "[Gmail]/Sent Mail"}}
	folders, source = service.ListFolders(context.Background(), account, true)

	assert.Equal(t, FolderSourceFallback, source)
	assert.NotEmpty(t, folders)
}

func TestListFoldersLive(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.EnsureINBOX(t)
	server.CreateFolder(t, "Archive")

	ctx := context.Background()
	encryptor := testutil.GetTestEncryptor(t)

	account := &models.Account{
		UserID:       1,
		Provider:     models.ProviderGmail,
		EmailAddress: server.Username(),
		Credential:   sealedCredential(t, encryptor, server.Password()),
	}
	if err := db.CreateAccount(ctx, pool, account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	service := NewService(pool, encryptor)
	service.dial = func(addr string) (*client.Client, error) {
		return ConnectToIMAP(server.Address, false)
	}

	folders, source := service.ListFolders(ctx, account, false)

	assert.Equal(t, FolderSourceLive, source)

	paths := make(map[string]string, len(folders))
	for _, folder := range folders {
		paths[folder.Path] = folder.Name
	}
	assert.Equal(t, "Caixa de Entrada", paths["INBOX"])
	assert.Equal(t, "Archive", paths["Archive"])

	// The listing is persisted, so the next call is a cache hit.
	retrieved, err := db.GetAccount(ctx, pool, account.ID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	assert.Equal(t, folders, retrieved.Folders)

	_, source = service.ListFolders(ctx, retrieved, false)
	assert.Equal(t, FolderSourceCache, source)

	// forceRefresh bypasses the cache.
	_, source = service.ListFolders(ctx, retrieved, true)
	assert.Equal(t, FolderSourceLive, source)
}

func TestConnectErrors(t *testing.T) {
	encryptor := testutil.GetTestEncryptor(t)

	t.Run("unknown provider", func(t *testing.T) {
		service := NewService(nil, encryptor)
		account := &models.Account{
			ID:           1,
			Provider:     models.Provider("yahoo"),
			EmailAddress: "username",
			Credential:   sealedCredential(t, encryptor, "password"),
		}

		_, err := service.connect(account)
		if !errors.Is(err, models.ErrUnknownProvider) {
			t.Fatalf("Expected ErrUnknownProvider, got: %v", err)
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		service := NewService(nil, encryptor)
		account := &models.Account{
			ID:           1,
			Provider:     models.ProviderGmail,
			EmailAddress: "username",
		}

		_, err := service.connect(account)
		if !errors.Is(err, ErrCredentials) {
			t.Fatalf("Expected ErrCredentials, got: %v", err)
		}
	})

	t.Run("rejected login", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		defer server.Close()

		service := NewService(nil, encryptor)
		service.dial = func(addr string) (*client.Client, error) {
			return ConnectToIMAP(server.Address, false)
		}
		account := &models.Account{
			ID:           1,
			Provider:     models.ProviderGmail,
			EmailAddress: server.Username(),
			Credential:   sealedCredential(t, encryptor, "wrong-password"),
		}

		_, err := service.connect(account)
		if !errors.Is(err, ErrCredentials) {
			t.Fatalf("Expected ErrCredentials, got: %v", err)
		}
	})
}

func TestBuildRowPlaceholderOnDecodeFailure(t *testing.T) {
	encryptor := testutil.GetTestEncryptor(t)
	service := NewService(nil, encryptor)
	fixed := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	account := &models.Account{ID: 7, EmailAddress: "username"}

	t.Run("keeps the envelope subject", func(t *testing.T) {
		row := service.buildRow(account, failingReader{}, "<broken@test>", "Fatura", "INBOX")

		assert.Equal(t, int64(7), row.AccountID)
		assert.Equal(t, "<broken@test>", row.MessageID)
		assert.Equal(t, "[Erro ao importar] Fatura", row.Subject)
		assert.Equal(t, "erro@importacao.local", row.Sender)
		assert.True(t, row.Date.Equal(fixed))
		assert.Empty(t, row.BodyText)
	})

	t.Run("default subject when envelope had none", func(t *testing.T) {
		row := service.buildRow(account, failingReader{}, "", "", "INBOX")
		assert.Equal(t, "[Erro ao importar] Sem assunto", row.Subject)
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("read failure")
}

func TestSkipInSyncAll(t *testing.T) {
	cases := []struct {
		folder models.Folder
		skip   bool
	}{
		{models.Folder{Name: "[Gmail]", Path: "[Gmail]"}, true},
		{models.Folder{Name: "Lixeira", Path: "[Gmail]/Trash"}, true},
		{models.Folder{Name: "Spam", Path: "[Gmail]/Spam"}, true},
		{models.Folder{Name: "Junk", Path: "Junk"}, true},
		{models.Folder{Name: "Lixeira", Path: "INBOX.Lixeira"}, true},
		{models.Folder{Name: "Caixa de Entrada", Path: "INBOX"}, false},
		{models.Folder{Name: "Enviados", Path: "[Gmail]/Sent Mail"}, false},
		{models.Folder{Name: "Alpha", Path: "Projects/Alpha"}, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.skip, skipInSyncAll(tc.folder), "folder %s", tc.folder.Path)
	}
}
