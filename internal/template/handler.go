// AngelaMos | 2026
// handler.go

package template

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/autowds/server/internal/core"
	"github.com/autowds/server/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/templates", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Get("/favorites", h.ListFavorites)
		r.Get("/{templateID}", h.Get)
		r.Post("/{templateID}/favorite", h.Favorite)
		r.Delete("/{templateID}/favorite", h.Unfavorite)
	})
}

func templateIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "templateID"), 10, 64)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListTemplatesParams{
		Topic:   r.URL.Query().Get("topic"),
		Keyword: r.URL.Query().Get("keyword"),
		Lang:    r.URL.Query().Get("lang"),
	}
	params.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	params.PageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	params.Normalize()

	userID := middleware.GetUserID(r.Context())
	templates, total, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, templates, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := templateIDParam(r)
	if err != nil {
		core.BadRequest(w, "invalid template id")
		return
	}

	tpl, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "template")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, tpl)
}

func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	templates, err := h.service.ListFavorites(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, templates)
}

func (h *Handler) Favorite(w http.ResponseWriter, r *http.Request) {
	id, err := templateIDParam(r)
	if err != nil {
		core.BadRequest(w, "invalid template id")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Favorite(r.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "template")
		case errors.Is(err, core.ErrDuplicateKey):
			core.JSONError(w, core.DuplicateError("favorite"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, map[string]string{"status": "favorited"})
}

func (h *Handler) Unfavorite(w http.ResponseWriter, r *http.Request) {
	id, err := templateIDParam(r)
	if err != nil {
		core.BadRequest(w, "invalid template id")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Unfavorite(r.Context(), userID, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "favorite")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}
