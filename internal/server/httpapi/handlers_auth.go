package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
	"github.com/dmitrijs2005/garagebook/internal/server/services"
)

type sessionResponse struct {
	Token string          `json:"token"`
	User  *models.Account `json:"user"`
}

// POST /api/auth/signup
func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeBadBody(w, err)
		return
	}

	sess, err := h.accounts.Signup(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info(r.Context(), "account created", "account_id", sess.Account.ID)
	writeJSON(w, http.StatusOK, sessionResponse{Token: sess.Token, User: sess.Account})
}

// POST /api/auth/login
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeBadBody(w, err)
		return
	}

	sess, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: sess.Token, User: sess.Account})
}

// GET /api/auth/me
func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	claim, ok := ClaimFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, common.ErrUnauthenticated.Error())
		return
	}

	account, err := h.accounts.Me(r.Context(), claim.AccountID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}
