package http

import (
	"errors"
	"io"
	"net/http"

	"mindcash/internal/app"
)

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	snap, err := sess.Backup(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create backup")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "backup stored",
		"createdAt":    snap.CreatedAt,
		"transactions": len(snap.Transactions),
		"goals":        len(snap.Goals),
		"recurring":    len(snap.Recurring),
	})
}

const maxImportBytes = 1 << 20

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	imported, err := sess.ImportCSV(r.Context(), string(data))
	// Rows accepted before a rejection are kept, so they still count.
	s.metrics.countTransactions(imported)
	if imported > 0 {
		s.invalidateDashboards(sess.User().ID)
	}
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, app.ErrTrialExpired) || errors.Is(err, app.ErrTrialLimitReached) {
			status = http.StatusForbidden
		}
		writeJSON(w, status, map[string]any{"error": err.Error(), "imported": imported})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	out, err := sess.ExportCSV(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not export transactions")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}
