package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UlissesMoraes/emailrelatorio/internal/db"
	"github.com/UlissesMoraes/emailrelatorio/internal/models"
)

// Generator produces aggregate statistics and per-message detail listings
// over persisted messages. It reads committed state only and never touches
// the IMAP side.
type Generator struct {
	pool *pgxpool.Pool
}

// NewGenerator creates a report generator backed by the given pool.
func NewGenerator(pool *pgxpool.Pool) *Generator {
	return &Generator{pool: pool}
}

// Stats returns aggregate counts for messages matching the filter.
func (g *Generator) Stats(ctx context.Context, filter db.MessageFilter) (*db.MessageStats, error) {
	stats, err := db.CountMessages(ctx, g.pool, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to generate statistics: %w", err)
	}
	return stats, nil
}

// Detail returns the per-message listing for messages matching the filter,
// newest first.
func (g *Generator) Detail(ctx context.Context, filter db.MessageFilter) ([]*models.Message, error) {
	messages, err := db.QueryMessages(ctx, g.pool, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to generate detail listing: %w", err)
	}
	return messages, nil
}

// csvHeader is the column order of the CSV export.
var csvHeader = []string{"Data", "Pasta", "Assunto", "Remetente", "Destinatários", "Enviado"}

// WriteCSV writes the detail listing as CSV. Bodies are omitted; the export
// is meant for spreadsheet-style reporting, not archival.
func (g *Generator) WriteCSV(w io.Writer, messages []*models.Message) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, msg := range messages {
		direction := "Não"
		if msg.IsSent {
			direction = "Sim"
		}
		record := []string{
			msg.Date.Format(time.RFC3339),
			msg.Folder,
			msg.Subject,
			msg.Sender,
			msg.Recipients,
			direction,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV output: %w", err)
	}

	return nil
}
