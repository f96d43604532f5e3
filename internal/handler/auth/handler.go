package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authservice "github.com/nebulachat/backend/internal/service/auth"
	"github.com/nebulachat/backend/pkg/utils"
)

// Handler exposes the simulated phone/OTP login flow.
type Handler struct {
	authSvc *authservice.Service
}

func New(authSvc *authservice.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes mounts the auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/verify", h.handleVerify)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/me", h.handleMe)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Phone       string `json:"phone"`
		CountryCode string `json:"countryCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authSvc.Login(payload.Phone, payload.CountryCode); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, authservice.ErrPhoneRequired) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"step": "otp"})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OTP string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authSvc.VerifyOTP(payload.OTP)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, authservice.ErrNoPendingLogin) {
			status = http.StatusConflict
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.authSvc.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.authSvc.State())
}
