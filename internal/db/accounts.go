package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UlissesMoraes/emailrelatorio/internal/crypto"
	"github.com/UlissesMoraes/emailrelatorio/internal/models"
)

// ErrAccountNotFound is returned when a requested account cannot be found.
var ErrAccountNotFound = errors.New("account not found")

// CreateAccount inserts a new mailbox account. The provider tag is validated
// against the configured endpoint table before touching the database, so an
// unknown tag fails fast as a configuration error.
func CreateAccount(ctx context.Context, pool *pgxpool.Pool, account *models.Account) error {
	if _, err := account.Provider.Endpoints(); err != nil {
		return err
	}

	err := pool.QueryRow(ctx, `
		INSERT INTO email_accounts (user_id, provider, email_address, credential, credential_sealed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		account.UserID,
		string(account.Provider),
		account.EmailAddress,
		account.Credential.Bytes(),
		account.Credential.IsSealed(),
	).Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccount returns the account with the given id.
func GetAccount(ctx context.Context, pool *pgxpool.Pool, accountID int64) (*models.Account, error) {
	var (
		account          models.Account
		provider         string
		credential       []byte
		credentialSealed bool
		foldersJSON      []byte
	)

	err := pool.QueryRow(ctx, `
		SELECT id, user_id, provider, email_address, credential, credential_sealed,
		       folders, last_synced_at, created_at
		FROM email_accounts
		WHERE id = $1
	`, accountID).Scan(
		&account.ID,
		&account.UserID,
		&provider,
		&account.EmailAddress,
		&credential,
		&credentialSealed,
		&foldersJSON,
		&account.LastSyncedAt,
		&account.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Provider = models.Provider(provider)
	account.Credential = crypto.StoredCredential(credential, credentialSealed)

	if len(foldersJSON) > 0 {
		if err := json.Unmarshal(foldersJSON, &account.Folders); err != nil {
			// A corrupt cache is not fatal: the folder directory rebuilds it.
			account.Folders = nil
		}
	}

	return &account, nil
}

// ListAccountsForUser returns all accounts owned by the given user.
func ListAccountsForUser(ctx context.Context, pool *pgxpool.Pool, userID int64) ([]*models.Account, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, user_id, provider, email_address, credential, credential_sealed,
		       folders, last_synced_at, created_at
		FROM email_accounts
		WHERE user_id = $1
		ORDER BY id
	`, userID)

	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var (
			account          models.Account
			provider         string
			credential       []byte
			credentialSealed bool
			foldersJSON      []byte
		)
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&provider,
			&account.EmailAddress,
			&credential,
			&credentialSealed,
			&foldersJSON,
			&account.LastSyncedAt,
			&account.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		account.Provider = models.Provider(provider)
		account.Credential = crypto.StoredCredential(credential, credentialSealed)
		if len(foldersJSON) > 0 {
			if err := json.Unmarshal(foldersJSON, &account.Folders); err != nil {
				account.Folders = nil
			}
		}

		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// UpdateFolderCache persists a fresh folder listing onto the account record.
// The cache is best-effort and can be rebuilt at any time.
func UpdateFolderCache(ctx context.Context, pool *pgxpool.Pool, accountID int64, folders []models.Folder) error {
	foldersJSON, err := json.Marshal(folders)
	if err != nil {
		return fmt.Errorf("failed to encode folder cache: %w", err)
	}

	tag, err := pool.Exec(ctx, `
		UPDATE email_accounts SET folders = $2 WHERE id = $1
	`, accountID, foldersJSON)

	if err != nil {
		return fmt.Errorf("failed to update folder cache: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// TouchLastSynced records the time of a successful sync on the account.
func TouchLastSynced(ctx context.Context, pool *pgxpool.Pool, accountID int64, at time.Time) error {
	tag, err := pool.Exec(ctx, `
		UPDATE email_accounts SET last_synced_at = $2 WHERE id = $1
	`, accountID, at)

	if err != nil {
		return fmt.Errorf("failed to update last synced timestamp: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// DeleteAccount removes the account; its messages are removed by the
// ON DELETE CASCADE constraint.
func DeleteAccount(ctx context.Context, pool *pgxpool.Pool, accountID int64) error {
	tag, err := pool.Exec(ctx, `
		DELETE FROM email_accounts WHERE id = $1
	`, accountID)

	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}
