package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UlissesMoraes/emailrelatorio/internal/api"
	"github.com/UlissesMoraes/emailrelatorio/internal/config"
	"github.com/UlissesMoraes/emailrelatorio/internal/crypto"
	"github.com/UlissesMoraes/emailrelatorio/internal/db"
	"github.com/UlissesMoraes/emailrelatorio/internal/imap"
	"github.com/UlissesMoraes/emailrelatorio/internal/report"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	server := NewServer(cfg, pool)

	address := ":" + cfg.Port
	log.Printf("Email report server starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// NewServer creates and returns the HTTP handler for the email report API.
func NewServer(cfg *config.Config, dbPool *pgxpool.Pool) http.Handler {
	deriver, err := crypto.NewKeyDeriver(cfg.MasterKey, cfg.EncryptionSalt)
	if err != nil {
		log.Fatalf("Failed to create key deriver: %v", err)
	}
	encryptor, err := crypto.NewEncryptorFromDeriver(deriver)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	timezone, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Warning: unknown timezone %q, falling back to UTC", cfg.Timezone)
		timezone = time.UTC
	}

	imapService := imap.NewService(dbPool, encryptor)
	generator := report.NewGenerator(dbPool)

	accountsHandler := api.NewAccountsHandler(dbPool, encryptor)
	syncHandler := api.NewSyncHandler(dbPool, imapService, cfg.SyncMaxMessages)
	reportsHandler := api.NewReportsHandler(generator, timezone)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/v1/accounts", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.ListAccounts(w, r)
		case http.MethodPost:
			accountsHandler.CreateAccount(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	// Handle /api/v1/accounts/{id} and its sub-resources.
	mux.Handle("/api/v1/accounts/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/folders"):
			syncHandler.ListFolders(w, r)
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/check"):
			syncHandler.CheckForNew(w, r)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/sync-all"):
			syncHandler.SyncAll(w, r)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/sync"):
			syncHandler.Sync(w, r)
		case r.Method == http.MethodDelete:
			accountsHandler.DeleteAccount(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.Handle("/api/v1/messages", http.HandlerFunc(reportsHandler.ListMessages))
	mux.Handle("/api/v1/reports/stats", http.HandlerFunc(reportsHandler.Stats))
	mux.Handle("/api/v1/reports/csv", http.HandlerFunc(reportsHandler.ExportCSV))

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Email report API is running")
}
