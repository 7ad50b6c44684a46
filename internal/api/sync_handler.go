package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UlissesMoraes/emailrelatorio/internal/db"
	"github.com/UlissesMoraes/emailrelatorio/internal/imap"
)

// SyncHandler exposes folder listing and mailbox synchronization.
type SyncHandler struct {
	pool        *pgxpool.Pool
	service     *imap.Service
	maxMessages int
}

// NewSyncHandler creates a new SyncHandler instance.
func NewSyncHandler(pool *pgxpool.Pool, service *imap.Service, maxMessages int) *SyncHandler {
	return &SyncHandler{pool: pool, service: service, maxMessages: maxMessages}
}

// ListFolders returns the folders of an account. The cached list is served
// unless the refresh query parameter is set.
func (h *SyncHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDFromPath(w, r, "/api/v1/accounts/", "/folders")
	if !ok {
		return
	}

	account, err := db.GetAccount(r.Context(), h.pool, accountID)
	if err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("API: Failed to load account %d: %v", accountID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	forceRefresh := r.URL.Query().Get("refresh") == "1"
	folders, source := h.service.ListFolders(r.Context(), account, forceRefresh)

	writeJSON(w, http.StatusOK, map[string]any{
		"folders": folders,
		"source":  source,
	})
}

type syncRequest struct {
	Folder      string `json:"folder"`
	MaxMessages int    `json:"max_messages"`
}

// Sync imports recent messages from one folder of an account.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDFromPath(w, r, "/api/v1/accounts/", "/sync")
	if !ok {
		return
	}

	var req syncRequest
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	account, err := db.GetAccount(r.Context(), h.pool, accountID)
	if err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("API: Failed to load account %d: %v", accountID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	maxMessages := req.MaxMessages
	if maxMessages <= 0 {
		maxMessages = h.maxMessages
	}

	imported, err := h.service.Sync(r.Context(), account, req.Folder, maxMessages)
	if err != nil {
		switch {
		case errors.Is(err, imap.ErrCredentials):
			writeError(w, http.StatusUnauthorized, "mailbox authentication failed")
		case errors.Is(err, imap.ErrFolderSelect):
			writeError(w, http.StatusConflict, "folder could not be selected")
		default:
			log.Printf("API: Sync failed for account %d: %v", accountID, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"imported": imported,
		"folder":   req.Folder,
	})
}

// SyncAll imports recent messages from every folder of an account except
// trash, spam and the bare [Gmail] container.
func (h *SyncHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDFromPath(w, r, "/api/v1/accounts/", "/sync-all")
	if !ok {
		return
	}

	var req syncRequest
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	account, err := db.GetAccount(r.Context(), h.pool, accountID)
	if err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("API: Failed to load account %d: %v", accountID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	maxMessages := req.MaxMessages
	if maxMessages <= 0 {
		maxMessages = h.maxMessages
	}

	imported, err := h.service.SyncAll(r.Context(), account, maxMessages)
	if err != nil {
		if errors.Is(err, imap.ErrCredentials) {
			writeError(w, http.StatusUnauthorized, "mailbox authentication failed")
			return
		}
		log.Printf("API: Full sync failed for account %d: %v", accountID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}

// CheckForNew reports whether a folder has messages not yet imported.
func (h *SyncHandler) CheckForNew(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDFromPath(w, r, "/api/v1/accounts/", "/check")
	if !ok {
		return
	}

	account, err := db.GetAccount(r.Context(), h.pool, accountID)
	if err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("API: Failed to load account %d: %v", accountID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	hasNew, err := h.service.CheckForNew(r.Context(), account, r.URL.Query().Get("folder"))
	if err != nil {
		switch {
		case errors.Is(err, imap.ErrCredentials):
			writeError(w, http.StatusUnauthorized, "mailbox authentication failed")
		case errors.Is(err, imap.ErrFolderSelect):
			writeError(w, http.StatusConflict, "folder could not be selected")
		default:
			log.Printf("API: Check failed for account %d: %v", accountID, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"has_new": hasNew})
}
