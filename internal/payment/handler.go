// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/autowds/server/internal/core"
	"github.com/autowds/server/internal/middleware"
)

type Handler struct {
	service  *Service
	alipay   *AlipayClient
	wechat   *WechatClient
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler takes the provider clients directly because the webhook
// endpoints need their verification primitives, not just the Provider
// interface. Either client may be nil when that channel is disabled.
func NewHandler(
	service *Service,
	alipay *AlipayClient,
	wechat *WechatClient,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		alipay:   alipay,
		wechat:   wechat,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/pay/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/{orderID}", h.OrderStatus)
	})
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/pay/stats", h.Stats)
}

// RegisterWebhookRoutes mounts the provider callbacks. These are called by
// the provider, not the client, so they sit outside the authenticated tree.
func (h *Handler) RegisterWebhookRoutes(r chi.Router) {
	r.Post("/pay/notify/alipay", h.AlipayNotify)
	r.Post("/pay/notify/wechat", h.WechatNotify)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.CreateOrder(r.Context(), userID, req)
	if errors.Is(err, core.ErrProvider) {
		// order persisted; client re-polls status while the sweep retries
		core.JSONError(w, core.NewAppError(
			core.ErrProvider,
			"payment provider unavailable, order recorded",
			http.StatusBadGateway,
			"PROVIDER_ERROR",
		))
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, resp)
}

func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		core.BadRequest(w, "invalid order id")
		return
	}

	resp, err := h.service.Status(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	stats, err := h.service.StatsByDay(r.Context(), days)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, stats)
}

// AlipayNotify acks with a plain "success" or "fail" body as the gateway
// expects. A rejected notification changes no state; alipay retries on
// "fail".
func (h *Handler) AlipayNotify(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if h.alipay == nil {
		h.logger.Warn("alipay notify received but channel disabled")
		io.WriteString(w, "fail")
		return
	}

	if err := r.ParseForm(); err != nil {
		io.WriteString(w, "fail")
		return
	}

	if err := h.service.HandleAlipayNotify(
		r.Context(), h.alipay, r.PostForm,
	); err != nil {
		io.WriteString(w, "fail")
		return
	}

	io.WriteString(w, "success")
}

const maxNotifyBody = 1 << 20

// WechatNotify acks with the JSON vocabulary WeChat Pay v3 expects.
func (h *Handler) WechatNotify(w http.ResponseWriter, r *http.Request) {
	if h.wechat == nil {
		h.logger.Warn("wechat notify received but channel disabled")
		writeWechatAck(w, http.StatusServiceUnavailable, "channel disabled")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotifyBody))
	if err != nil {
		writeWechatAck(w, http.StatusBadRequest, "unreadable body")
		return
	}

	err = h.service.HandleWechatNotify(
		r.Context(),
		h.wechat,
		r.Header.Get("Wechatpay-Timestamp"),
		r.Header.Get("Wechatpay-Nonce"),
		r.Header.Get("Wechatpay-Signature"),
		body,
	)
	if err != nil {
		writeWechatAck(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeWechatAck(w, http.StatusOK, "")
}

func writeWechatAck(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if status == http.StatusOK {
		json.NewEncoder(w).Encode(map[string]string{"code": "SUCCESS"})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"code":    "FAIL",
		"message": message,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "order")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "order belongs to another account")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}
