package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/admin"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/auth"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"
)

type AdminHandler struct {
	service admin.Service
}

func NewAdminHandler(service admin.Service) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.With(auth.RequireRole(user.RoleAdmin)).Get("/admin/stats", h.handleStats)
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to load stats")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
