package http

import (
	"net/http"
	"time"

	"mindcash/internal/app"
	"mindcash/internal/core"
)

type goalRequest struct {
	Name     string `json:"name"`
	Target   string `json:"target"`
	Deadline string `json:"deadline,omitempty"`
	Category string `json:"category,omitempty"`
}

type goalPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Target   string `json:"target"`
	Current  string `json:"current"`
	Deadline string `json:"deadline,omitempty"`
	Category string `json:"category,omitempty"`
}

func toGoalPayload(g core.Goal) goalPayload {
	p := goalPayload{
		ID:       g.ID,
		Name:     g.Name,
		Target:   g.TargetAmount.String(),
		Current:  g.CurrentAmount.String(),
		Category: g.Category,
	}
	if !g.Deadline.IsEmpty() {
		p.Deadline = g.Deadline.Format(dateLayout)
	}
	return p
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	goals, err := sess.Goals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load goals")
		return
	}
	out := make([]goalPayload, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalPayload(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req goalRequest
	if !readJSON(w, r, &req) {
		return
	}

	var deadline core.Date
	if req.Deadline != "" {
		day, err := time.ParseInLocation(dateLayout, req.Deadline, time.Local)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid deadline, want YYYY-MM-DD")
			return
		}
		deadline = core.DateOf(day)
	}

	g, err := sess.AddGoal(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Target), deadline, sanitizeInput(req.Category))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toGoalPayload(g))
}

type goalProgressRequest struct {
	Current string `json:"current"`
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req goalProgressRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := sess.SetGoalProgress(r.Context(), r.PathValue("id"), sanitizeInput(req.Current)); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recurringRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency"`
	NextDate    string `json:"nextDate"`
}

type recurringPayload struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency"`
	NextDate    string `json:"nextDate"`
	Active      bool   `json:"active"`
}

func toRecurringPayload(re core.RecurringExpense) recurringPayload {
	return recurringPayload{
		ID:          re.ID,
		Description: re.Description,
		Amount:      re.Amount.String(),
		Category:    re.Category,
		Frequency:   string(re.Frequency),
		NextDate:    re.NextDate.Format(dateLayout),
		Active:      re.Active,
	}
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	recurring, err := sess.Recurring(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load recurring expenses")
		return
	}
	out := make([]recurringPayload, 0, len(recurring))
	for _, re := range recurring {
		out = append(out, toRecurringPayload(re))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddRecurring(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req recurringRequest
	if !readJSON(w, r, &req) {
		return
	}

	day, err := time.ParseInLocation(dateLayout, req.NextDate, time.Local)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid nextDate, want YYYY-MM-DD")
		return
	}

	re, err := sess.AddRecurring(r.Context(), app.AddRecurringInput{
		Description: sanitizeInput(req.Description),
		Amount:      sanitizeInput(req.Amount),
		Category:    sanitizeInput(req.Category),
		Frequency:   core.Frequency(req.Frequency),
		NextDate:    core.DateOf(day),
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toRecurringPayload(re))
}
