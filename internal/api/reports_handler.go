package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/UlissesMoraes/emailrelatorio/internal/db"
	"github.com/UlissesMoraes/emailrelatorio/internal/models"
	"github.com/UlissesMoraes/emailrelatorio/internal/report"
)

// ReportsHandler serves statistics, message listings and CSV exports.
type ReportsHandler struct {
	generator *report.Generator
	timezone  *time.Location
}

// NewReportsHandler creates a new ReportsHandler instance.
func NewReportsHandler(generator *report.Generator, timezone *time.Location) *ReportsHandler {
	if timezone == nil {
		timezone = time.UTC
	}
	return &ReportsHandler{generator: generator, timezone: timezone}
}

// filterFromQuery builds a message filter from the request query parameters.
func (h *ReportsHandler) filterFromQuery(r *http.Request) (db.MessageFilter, error) {
	var filter db.MessageFilter

	q := r.URL.Query()
	if raw := q.Get("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, fmt.Errorf("invalid account_id")
		}
		filter.AccountID = id
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, fmt.Errorf("invalid user_id")
		}
		filter.UserID = id
	}

	filter.Folder = q.Get("folder")
	filter.SearchTerm = q.Get("search")

	since, err := parseTimeParam(r, "since")
	if err != nil {
		return filter, fmt.Errorf("invalid since parameter")
	}
	until, err := parseTimeParam(r, "until")
	if err != nil {
		return filter, fmt.Errorf("invalid until parameter")
	}
	filter.Since = since
	filter.Until = until

	switch q.Get("direction") {
	case "sent":
		filter.SentOnly = true
	case "received":
		filter.ReceivedOnly = true
	case "":
	default:
		return filter, fmt.Errorf("invalid direction parameter")
	}

	return filter, nil
}

// Stats returns aggregate message counts for the filtered set.
func (h *ReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.generator.Stats(r.Context(), filter)
	if err != nil {
		log.Printf("API: Failed to generate statistics: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ListMessages returns the filtered per-message listing, newest first.
func (h *ReportsHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.generator.Detail(r.Context(), filter)
	if err != nil {
		log.Printf("API: Failed to list messages: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if messages == nil {
		messages = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// ExportCSV streams the filtered listing as a CSV download. Dates are
// rendered in the configured report timezone.
func (h *ReportsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.generator.Detail(r.Context(), filter)
	if err != nil {
		log.Printf("API: Failed to export messages: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	for _, msg := range messages {
		msg.Date = msg.Date.In(h.timezone)
	}

	filename := fmt.Sprintf("relatorio-emails-%s.csv", time.Now().In(h.timezone).Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.generator.WriteCSV(w, messages); err != nil {
		log.Printf("API: Failed to write CSV export: %v", err)
	}
}
