// AngelaMos | 2026
// handler.go

package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/autowds/server/internal/core"
	"github.com/autowds/server/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/tasks", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/batch", h.CreateBatch)
		r.Get("/stats", h.Stats)

		r.Route("/{taskID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/rule", h.GetRule)
			r.Patch("/rule", h.UpdateRule)
			r.Patch("/name", h.Rename)
		})
	})
}

func taskIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
}

func (h *Handler) writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "task")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "task belongs to another user")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListTasksParams{
		Name: r.URL.Query().Get("name"),
	}
	params.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	params.PageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	params.Normalize()

	userID := middleware.GetUserID(r.Context())
	tasks, total, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, tasks, params.Page, params.PageSize, total)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	userID := middleware.GetUserID(r.Context())
	t, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	core.Created(w, t)
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	userID := middleware.GetUserID(r.Context())
	tasks, err := h.service.CreateBatch(r.Context(), userID, req)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	core.Created(w, tasks)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		core.BadRequest(w, "invalid task id")
		return
	}

	userID := middleware.GetUserID(r.Context())
	t, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	core.OK(w, t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		core.BadRequest(w, "invalid task id")
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	userID := middleware.GetUserID(r.Context())
	t, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	core.OK(w, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		core.BadRequest(w, "invalid task id")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.writeTaskError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		core.BadRequest(w, "invalid task id")
		return
	}

	userID := middleware.GetUserID(r.Context())
	rule, err := h.service.GetRule(r.Context(), userID, id)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	core.OK(w, rule)
}

func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		core.BadRequest(w, "invalid task id")
		return
	}

	var req UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.UpdateRule(r.Context(), userID, id, req.Rule); err != nil {
		h.writeTaskError(w, err)
		return
	}

	core.OK(w, map[string]string{"status": "updated"})
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		core.BadRequest(w, "invalid task id")
		return
	}

	var req RenameTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Rename(r.Context(), userID, id, req.Name); err != nil {
		h.writeTaskError(w, err)
		return
	}

	core.OK(w, map[string]string{"status": "updated"})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, stats)
}
