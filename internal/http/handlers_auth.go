package http

import (
	"net/http"

	"mindcash/internal/app"
	"mindcash/internal/core"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type authResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token,omitempty"`
	User    userPayload `json:"user,omitempty"`
}

type userPayload struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Plan        string `json:"plan,omitempty"`
}

func toUserPayload(u core.User) userPayload {
	return userPayload{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Plan:        string(u.Plan),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !readJSON(w, r, &req) {
		return
	}

	sess := s.newAppSession()
	res := sess.Register(r.Context(), sanitizeInput(req.Email), req.Password, sanitizeInput(req.DisplayName))
	if !res.OK {
		writeError(w, http.StatusUnprocessableEntity, res.Message)
		return
	}

	s.registerSession(res.Token, sess)
	writeJSON(w, http.StatusCreated, authResponse{
		Message: res.Message,
		Token:   res.Token,
		User:    toUserPayload(res.User),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !readJSON(w, r, &req) {
		return
	}

	sess := s.newAppSession()
	res := sess.Login(r.Context(), sanitizeInput(req.Email), req.Password)
	if !res.OK {
		writeError(w, http.StatusUnauthorized, res.Message)
		return
	}

	s.registerSession(res.Token, sess)
	writeJSON(w, http.StatusOK, authResponse{
		Message: res.Message,
		Token:   res.Token,
		User:    toUserPayload(res.User),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	token := bearerToken(r)
	res := sess.Logout(r.Context())
	s.dropSession(token)
	writeJSON(w, http.StatusOK, authResponse{Message: res.Message})
}

type meResponse struct {
	User  userPayload   `json:"user"`
	Trial *trialPayload `json:"trial,omitempty"`
	Plans []planPayload `json:"plans,omitempty"`
}

type trialPayload struct {
	Expired               bool `json:"expired"`
	RemainingDays         int  `json:"remainingDays"`
	RemainingTransactions int  `json:"remainingTransactions"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	resp := meResponse{User: toUserPayload(sess.User())}

	// Trial info only applies to unpaid accounts; a lapsed trial under a
	// paid plan is history, not a gate.
	if !sess.User().Plan.Paid() {
		status, err := sess.Trial()
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		resp.Trial = &trialPayload{
			Expired:               status.Expired,
			RemainingDays:         status.RemainingDays,
			RemainingTransactions: status.RemainingTransactions,
		}
		resp.Plans = toPlanPayloads(sess.Plans())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartTrial(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	status, err := sess.StartFreeTrial()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trialPayload{
		Expired:               status.Expired,
		RemainingDays:         status.RemainingDays,
		RemainingTransactions: status.RemainingTransactions,
	})
}

type settingsRequest struct {
	AutoCategorize *bool `json:"autoCategorize,omitempty"`
	SmartAlerts    *bool `json:"smartAlerts,omitempty"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req settingsRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.AutoCategorize != nil {
		sess.SetAutoCategorize(*req.AutoCategorize)
	}
	if req.SmartAlerts != nil {
		sess.SetSmartAlerts(*req.SmartAlerts)
	}
	w.WriteHeader(http.StatusNoContent)
}
