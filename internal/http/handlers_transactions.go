package http

import (
	"errors"
	"net/http"
	"time"

	"mindcash/internal/app"
	"mindcash/internal/core"
	mclog "mindcash/internal/log"
	"mindcash/internal/storage"
)

const dateLayout = "2006-01-02"

type transactionRequest struct {
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description"`
	Date        string `json:"date,omitempty"`
}

type transactionPayload struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func toTransactionPayload(t core.Transaction) transactionPayload {
	return transactionPayload{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.OccurredOn.Format(dateLayout),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	txns, err := sess.Transactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load transactions")
		return
	}
	out := make([]transactionPayload, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionPayload(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req transactionRequest
	if !readJSON(w, r, &req) {
		return
	}

	in := app.AddTransactionInput{
		Kind:        core.Kind(req.Kind),
		Amount:      sanitizeInput(req.Amount),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
	}
	if req.Date != "" {
		day, err := time.ParseInLocation(dateLayout, req.Date, time.Local)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
			return
		}
		in.OccurredOn = core.DateOf(day)
	}

	t, err := sess.AddTransaction(r.Context(), in)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrTrialExpired), errors.Is(err, app.ErrTrialLimitReached):
		writeError(w, http.StatusForbidden, err.Error())
		return
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.metrics.countTransaction()
	s.invalidateDashboards(sess.User().ID)
	mclog.FromContext(r.Context()).Info("transaction added",
		mclog.FieldTxnID, t.ID,
		mclog.FieldTxnKind, string(t.Kind),
		mclog.FieldCategory, t.Category,
		mclog.FieldAmountCents, t.Amount.Cents,
	)
	writeJSON(w, http.StatusCreated, toTransactionPayload(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	id := r.PathValue("id")
	if err := sess.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not delete transaction")
		return
	}
	s.invalidateDashboards(sess.User().ID)
	w.WriteHeader(http.StatusNoContent)
}
