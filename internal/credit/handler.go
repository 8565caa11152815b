// AngelaMos | 2026
// handler.go

package credit

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autowds/server/internal/config"
	"github.com/autowds/server/internal/core"
	"github.com/autowds/server/internal/middleware"
)

type Handler struct {
	service *Service
	cfg     config.CreditConfig
}

func NewHandler(service *Service, cfg config.CreditConfig) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/user/credits", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/logs", h.ListLogs)
	})

	r.With(authenticator).Post("/user/export", h.Export)
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	logs, err := h.service.Logs(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, logs)
}

// Export charges the per-export fee before the client downloads task data.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	desc := "task data export"
	log, err := h.service.DeductCredits(
		r.Context(),
		userID,
		h.cfg.ExportCost,
		OpExport,
		&desc,
	)
	if err != nil {
		if errors.Is(err, core.ErrInsufficientBalance) {
			core.JSONError(w, core.InsufficientBalanceError())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]int64{"balance": log.Balance})
}
