package prefs

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	prefsservice "github.com/nebulachat/backend/internal/service/prefs"
	"github.com/nebulachat/backend/pkg/utils"
)

// Handler exposes app preferences.
type Handler struct {
	prefsSvc *prefsservice.Service
}

func New(prefsSvc *prefsservice.Service) *Handler {
	return &Handler{prefsSvc: prefsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/prefs/theme", h.handleGetTheme)
	r.Post("/prefs/theme/toggle", h.handleToggleTheme)
}

func (h *Handler) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"theme": string(h.prefsSvc.Theme())})
}

func (h *Handler) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"theme": string(h.prefsSvc.ToggleTheme())})
}
