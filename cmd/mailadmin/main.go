package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/UlissesMoraes/emailrelatorio/internal/config"
	"github.com/UlissesMoraes/emailrelatorio/internal/crypto"
	"github.com/UlissesMoraes/emailrelatorio/internal/db"
	"github.com/UlissesMoraes/emailrelatorio/internal/imap"
	"github.com/UlissesMoraes/emailrelatorio/internal/report"
)

// mailadmin is the operational companion to the API server. It talks to the
// same database and mailboxes, without going through HTTP.
func main() {
	app := &cli.App{
		Name:  "mailadmin",
		Usage: "manage email accounts and run imports from the command line",
		Commands: []*cli.Command{
			{
				Name:  "accounts",
				Usage: "list registered accounts for a user",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "user-id", Required: true, Usage: "owner of the accounts"},
				},
				Action: listAccounts,
			},
			{
				Name:  "folders",
				Usage: "list the folders of an account",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "account-id", Required: true},
					&cli.BoolFlag{Name: "refresh", Usage: "bypass the cached folder list"},
				},
				Action: listFolders,
			},
			{
				Name:  "sync",
				Usage: "import recent messages from one folder",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "account-id", Required: true},
					&cli.StringFlag{Name: "folder", Value: "INBOX"},
					&cli.IntFlag{Name: "max", Usage: "messages per run (defaults to the configured limit)"},
				},
				Action: runSync,
			},
			{
				Name:  "sync-all",
				Usage: "import recent messages from every folder except trash and spam",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "account-id", Required: true},
					&cli.IntFlag{Name: "max", Usage: "messages per folder (defaults to the configured limit)"},
				},
				Action: runSyncAll,
			},
			{
				Name:  "stats",
				Usage: "print aggregate message counts",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "account-id"},
					&cli.Int64Flag{Name: "user-id"},
					&cli.StringFlag{Name: "folder"},
				},
				Action: printStats,
			},
			{
				Name:  "export",
				Usage: "write the message listing as CSV to stdout",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "account-id"},
					&cli.Int64Flag{Name: "user-id"},
					&cli.StringFlag{Name: "folder"},
					&cli.TimestampFlag{Name: "since", Layout: "2006-01-02"},
					&cli.TimestampFlag{Name: "until", Layout: "2006-01-02"},
				},
				Action: exportCSV,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads config and opens the shared database pool. The returned cleanup
// must be called when the command finishes.
func setup(ctx context.Context) (*config.Config, *pgxpool.Pool, func(), error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, pool, func() { db.CloseConnection(pool) }, nil
}

func newEncryptor(cfg *config.Config) (*crypto.Encryptor, error) {
	deriver, err := crypto.NewKeyDeriver(cfg.MasterKey, cfg.EncryptionSalt)
	if err != nil {
		return nil, err
	}
	return crypto.NewEncryptorFromDeriver(deriver)
}

func listAccounts(c *cli.Context) error {
	ctx := c.Context
	_, pool, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	accounts, err := db.ListAccountsForUser(ctx, pool, c.Int64("user-id"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPROVIDER\tADDRESS\tLAST SYNC")
	for _, account := range accounts {
		lastSync := "never"
		if account.LastSyncedAt != nil {
			lastSync = account.LastSyncedAt.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", account.ID, account.Provider, account.EmailAddress, lastSync)
	}
	return w.Flush()
}

func listFolders(c *cli.Context) error {
	ctx := c.Context
	cfg, pool, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	encryptor, err := newEncryptor(cfg)
	if err != nil {
		return err
	}

	account, err := db.GetAccount(ctx, pool, c.Int64("account-id"))
	if err != nil {
		return err
	}

	service := imap.NewService(pool, encryptor)
	folders, source := service.ListFolders(ctx, account, c.Bool("refresh"))

	fmt.Printf("Folders (%s):\n", source)
	for _, folder := range folders {
		fmt.Printf("  %-20s %s\n", folder.Name, folder.Path)
	}
	return nil
}

func runSync(c *cli.Context) error {
	ctx := c.Context
	cfg, pool, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	encryptor, err := newEncryptor(cfg)
	if err != nil {
		return err
	}

	account, err := db.GetAccount(ctx, pool, c.Int64("account-id"))
	if err != nil {
		return err
	}

	maxMessages := c.Int("max")
	if maxMessages <= 0 {
		maxMessages = cfg.SyncMaxMessages
	}

	service := imap.NewService(pool, encryptor)
	imported, err := service.Sync(ctx, account, c.String("folder"), maxMessages)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d messages from %s\n", imported, c.String("folder"))
	return nil
}

func runSyncAll(c *cli.Context) error {
	ctx := c.Context
	cfg, pool, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	encryptor, err := newEncryptor(cfg)
	if err != nil {
		return err
	}

	account, err := db.GetAccount(ctx, pool, c.Int64("account-id"))
	if err != nil {
		return err
	}

	maxMessages := c.Int("max")
	if maxMessages <= 0 {
		maxMessages = cfg.SyncMaxMessages
	}

	service := imap.NewService(pool, encryptor)
	imported, err := service.SyncAll(ctx, account, maxMessages)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d messages across folders\n", imported)
	return nil
}

func printStats(c *cli.Context) error {
	ctx := c.Context
	_, pool, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	generator := report.NewGenerator(pool)
	stats, err := generator.Stats(ctx, db.MessageFilter{
		AccountID: c.Int64("account-id"),
		UserID:    c.Int64("user-id"),
		Folder:    c.String("folder"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Total:    %d\n", stats.Total)
	fmt.Printf("Sent:     %d\n", stats.Sent)
	fmt.Printf("Received: %d\n", stats.Received)
	for _, fc := range stats.ByFolder {
		fmt.Printf("  %-20s %d\n", fc.Folder, fc.Count)
	}
	return nil
}

func exportCSV(c *cli.Context) error {
	ctx := c.Context
	_, pool, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	filter := db.MessageFilter{
		AccountID: c.Int64("account-id"),
		UserID:    c.Int64("user-id"),
		Folder:    c.String("folder"),
	}
	if t := c.Timestamp("since"); t != nil {
		filter.Since = *t
	}
	if t := c.Timestamp("until"); t != nil {
		filter.Until = *t
	}

	generator := report.NewGenerator(pool)
	messages, err := generator.Detail(ctx, filter)
	if err != nil {
		return err
	}

	return generator.WriteCSV(os.Stdout, messages)
}
