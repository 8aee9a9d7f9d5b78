package http

import (
	"net/http"

	"mindcash/internal/app"
	"mindcash/internal/core"
)

type summaryPayload struct {
	Period              string  `json:"period"`
	TotalIncome         string  `json:"totalIncome"`
	TotalExpenses       string  `json:"totalExpenses"`
	Balance             string  `json:"balance"`
	MonthlyGoalProgress float64 `json:"monthlyGoalProgress"`
	OverAlertLimit      bool    `json:"overAlertLimit"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	key := dashboardKey(sess.User().ID, sess.Period())

	sum, cached := s.summaryCache.Get(key)
	if cached {
		s.metrics.countCacheHit()
	} else {
		s.metrics.countCacheMiss()
		var err error
		sum, err = sess.Summary(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not compute summary")
			return
		}
		s.summaryCache.Set(key, sum)
	}

	over, err := sess.OverSpendingLimit(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not compute summary")
		return
	}

	writeJSON(w, http.StatusOK, summaryPayload{
		Period:              string(sess.Period()),
		TotalIncome:         sum.TotalIncome.String(),
		TotalExpenses:       sum.TotalExpenses.String(),
		Balance:             sum.Balance.String(),
		MonthlyGoalProgress: sum.MonthlyGoalProgress,
		OverAlertLimit:      over,
	})
}

type breakdownPayload struct {
	Name       string  `json:"name"`
	Amount     string  `json:"amount"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	key := dashboardKey(sess.User().ID, sess.Period())

	rows, cached := s.breakdownCache.Get(key)
	if cached {
		s.metrics.countCacheHit()
	} else {
		s.metrics.countCacheMiss()
		var err error
		rows, err = sess.Breakdown(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not compute breakdown")
			return
		}
		s.breakdownCache.Set(key, rows)
	}

	out := make([]breakdownPayload, 0, len(rows))
	for _, row := range rows {
		out = append(out, breakdownPayload{
			Name:       row.Name,
			Amount:     row.Amount.String(),
			Percentage: row.Percentage,
			Color:      row.Color,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type periodRequest struct {
	Period string `json:"period"`
}

func (s *Server) handleSetPeriod(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req periodRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := sess.SetPeriod(r.Context(), core.Period(req.Period)); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type alertPayload struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	Amount    *string `json:"amount,omitempty"`
	Category  string  `json:"category,omitempty"`
	Timestamp string  `json:"timestamp"`
	Read      bool    `json:"read"`
	Priority  string  `json:"priority"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	alerts, err := sess.Alerts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load alerts")
		return
	}

	out := make([]alertPayload, 0, len(alerts))
	for _, a := range alerts {
		p := alertPayload{
			ID:        a.ID,
			Type:      string(a.Type),
			Message:   a.Message,
			Category:  a.Category,
			Timestamp: a.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Read:      a.Read,
			Priority:  string(a.Priority),
		}
		if a.Amount != nil {
			amount := a.Amount.String()
			p.Amount = &amount
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	if err := sess.MarkAlertRead(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type insightPayload struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Category    string `json:"category"`
	Actionable  bool   `json:"actionable"`
}

func (s *Server) handleNextInsight(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	insight, err := sess.NextInsight()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not generate insight")
		return
	}
	writeJSON(w, http.StatusOK, insightPayload{
		ID:          insight.ID,
		Type:        string(insight.Type),
		Title:       insight.Title,
		Description: insight.Description,
		Impact:      string(insight.Impact),
		Category:    insight.Category,
		Actionable:  insight.Actionable,
	})
}
