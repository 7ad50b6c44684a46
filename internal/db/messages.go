package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UlissesMoraes/emailrelatorio/internal/models"
)

// MessageExists reports whether a message with the given protocol identifier
// has already been persisted for this account and folder. It checks committed
// state only; rows staged in an open transaction are not visible to it.
func MessageExists(ctx context.Context, pool *pgxpool.Pool, accountID int64, messageID, folder string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM email_messages
			WHERE account_id = $1 AND message_id = $2 AND folder = $3
		)
	`, accountID, messageID, folder).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}

	return exists, nil
}

// InsertMessages stages the given rows inside the caller-owned transaction.
// The caller decides when to commit or roll back; persistence order within
// the batch is unspecified.
func InsertMessages(ctx context.Context, tx pgx.Tx, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, msg := range messages {
		batch.Queue(`
			INSERT INTO email_messages (
				account_id, message_id, folder, subject, sender,
				recipients, cc, bcc, date, body_text, body_html, is_sent
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			msg.AccountID,
			msg.MessageID,
			msg.Folder,
			msg.Subject,
			msg.Sender,
			msg.Recipients,
			msg.CC,
			msg.BCC,
			msg.Date,
			msg.BodyText,
			msg.BodyHTML,
			msg.IsSent,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close()
	}()

	for range messages {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return nil
}

// MessageFilter narrows QueryMessages and Stats results. Zero values mean
// "no constraint". SearchTerm matches subject, sender and body text,
// case-insensitively.
type MessageFilter struct {
	AccountID    int64
	UserID       int64
	Folder       string
	Since        time.Time
	Until        time.Time
	SearchTerm   string
	SentOnly     bool
	ReceivedOnly bool
}

func (f MessageFilter) whereClause() (string, []any) {
	var (
		conditions []string
		args       []any
	)

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.AccountID != 0 {
		add("m.account_id = $%d", f.AccountID)
	}
	if f.UserID != 0 {
		add("a.user_id = $%d", f.UserID)
	}
	if f.Folder != "" {
		add("m.folder = $%d", f.Folder)
	}
	if !f.Since.IsZero() {
		add("m.date >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("m.date < $%d", f.Until)
	}
	if f.SearchTerm != "" {
		pattern := "%" + f.SearchTerm + "%"
		args = append(args, pattern)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(m.subject ILIKE $%d OR m.sender ILIKE $%d OR m.body_text ILIKE $%d)", n, n, n))
	}
	if f.SentOnly && !f.ReceivedOnly {
		conditions = append(conditions, "m.is_sent")
	}
	if f.ReceivedOnly && !f.SentOnly {
		conditions = append(conditions, "NOT m.is_sent")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// QueryMessages returns persisted messages matching the filter, newest first.
func QueryMessages(ctx context.Context, pool *pgxpool.Pool, filter MessageFilter) ([]*models.Message, error) {
	where, args := filter.whereClause()

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT m.id, m.account_id, m.message_id, m.folder, m.subject, m.sender,
		       m.recipients, m.cc, m.bcc, m.date, m.body_text, m.body_html,
		       m.is_sent, m.created_at
		FROM email_messages m
		JOIN email_accounts a ON a.id = m.account_id
		%s
		ORDER BY m.date DESC
	`, where), args...)

	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.AccountID,
			&msg.MessageID,
			&msg.Folder,
			&msg.Subject,
			&msg.Sender,
			&msg.Recipients,
			&msg.CC,
			&msg.BCC,
			&msg.Date,
			&msg.BodyText,
			&msg.BodyHTML,
			&msg.IsSent,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// FolderCount is a per-folder message total.
type FolderCount struct {
	Folder string `json:"folder"`
	Count  int64  `json:"count"`
}

// DayCount is a per-calendar-day message total.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// MessageStats holds the aggregate counts the report layer renders.
type MessageStats struct {
	Total    int64         `json:"total"`
	Sent     int64         `json:"sent"`
	Received int64         `json:"received"`
	ByFolder []FolderCount `json:"by_folder"`
	ByDay    []DayCount    `json:"by_day"`
}

// CountMessages computes aggregate statistics over messages matching the filter.
func CountMessages(ctx context.Context, pool *pgxpool.Pool, filter MessageFilter) (*MessageStats, error) {
	where, args := filter.whereClause()

	var stats MessageStats
	err := pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE m.is_sent),
		       COUNT(*) FILTER (WHERE NOT m.is_sent)
		FROM email_messages m
		JOIN email_accounts a ON a.id = m.account_id
		%s
	`, where), args...).Scan(&stats.Total, &stats.Sent, &stats.Received)

	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT m.folder, COUNT(*)
		FROM email_messages m
		JOIN email_accounts a ON a.id = m.account_id
		%s
		GROUP BY m.folder
		ORDER BY COUNT(*) DESC, m.folder
	`, where), args...)

	if err != nil {
		return nil, fmt.Errorf("failed to count messages by folder: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fc FolderCount
		if err := rows.Scan(&fc.Folder, &fc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan folder count: %w", err)
		}
		stats.ByFolder = append(stats.ByFolder, fc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating folder counts: %w", err)
	}

	dayRows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT date_trunc('day', m.date), COUNT(*)
		FROM email_messages m
		JOIN email_accounts a ON a.id = m.account_id
		%s
		GROUP BY date_trunc('day', m.date)
		ORDER BY date_trunc('day', m.date)
	`, where), args...)

	if err != nil {
		return nil, fmt.Errorf("failed to count messages by day: %w", err)
	}
	defer dayRows.Close()

	for dayRows.Next() {
		var dc DayCount
		if err := dayRows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		stats.ByDay = append(stats.ByDay, dc)
	}

	if err := dayRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating day counts: %w", err)
	}

	return &stats, nil
}
