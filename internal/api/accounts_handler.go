package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UlissesMoraes/emailrelatorio/internal/crypto"
	"github.com/UlissesMoraes/emailrelatorio/internal/db"
	"github.com/UlissesMoraes/emailrelatorio/internal/models"
)

// AccountsHandler handles mailbox account registration and listing.
type AccountsHandler struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor
}

// NewAccountsHandler creates a new AccountsHandler instance.
func NewAccountsHandler(pool *pgxpool.Pool, encryptor *crypto.Encryptor) *AccountsHandler {
	return &AccountsHandler{pool: pool, encryptor: encryptor}
}

type createAccountRequest struct {
	UserID       int64  `json:"user_id"`
	Provider     string `json:"provider"`
	EmailAddress string `json:"email_address"`
	Credential   string `json:"credential"`
}

// CreateAccount registers a new mailbox account. The credential is sealed
// before it reaches the database.
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID <= 0 || req.EmailAddress == "" || req.Credential == "" {
		writeError(w, http.StatusBadRequest, "user_id, email_address and credential are required")
		return
	}

	sealed, err := crypto.NewCredential(req.Credential).Seal(h.encryptor)
	if err != nil {
		log.Printf("API: Failed to seal credential: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	account := &models.Account{
		UserID:       req.UserID,
		Provider:     models.Provider(req.Provider),
		EmailAddress: req.EmailAddress,
		Credential:   sealed,
	}

	if err := db.CreateAccount(r.Context(), h.pool, account); err != nil {
		if errors.Is(err, models.ErrUnknownProvider) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("API: Failed to create account: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// ListAccounts returns the accounts owned by the user given in the user_id
// query parameter.
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	accounts, err := db.ListAccountsForUser(r.Context(), h.pool, userID)
	if err != nil {
		log.Printf("API: Failed to list accounts: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if accounts == nil {
		accounts = []*models.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// DeleteAccount removes an account and, by cascade, all its messages.
func (h *AccountsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDFromPath(w, r, "/api/v1/accounts/", "")
	if !ok {
		return
	}

	if err := db.DeleteAccount(r.Context(), h.pool, accountID); err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("API: Failed to delete account: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
