package http

import (
	"errors"
	"net/http"

	"mindcash/internal/app"
	"mindcash/internal/core"
	mclog "mindcash/internal/log"
)

type planPayload struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Price     string   `json:"price"`
	Features  []string `json:"features"`
	Highlight bool     `json:"highlight"`
	Icon      string   `json:"icon"`
}

func toPlanPayloads(offers []core.PlanOffer) []planPayload {
	out := make([]planPayload, 0, len(offers))
	for _, p := range offers {
		out = append(out, planPayload{
			ID:        string(p.ID),
			Name:      p.Name,
			Price:     p.Price.String(),
			Features:  p.Features,
			Highlight: p.Highlight,
			Icon:      string(p.Icon),
		})
	}
	return out
}

func (s *Server) handlePlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toPlanPayloads(core.SubscriptionPlans))
}

func (s *Server) handleCheckout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"checkoutUrl": core.CheckoutURL})
}

type subscribeRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req subscribeRequest
	if !readJSON(w, r, &req) {
		return
	}

	offer, err := sess.ConfirmSubscription(r.Context(), core.Plan(req.Plan))
	if err != nil {
		if errors.Is(err, app.ErrUnknownPlan) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "could not confirm subscription")
		return
	}

	mclog.FromContext(r.Context()).Info("subscription confirmed",
		mclog.FieldUserID, sess.User().ID,
		mclog.FieldPlan, string(offer.ID),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "subscription active",
		"plan":    toPlanPayloads([]core.PlanOffer{offer})[0],
	})
}
