// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autowds/server/internal/config"
	"github.com/autowds/server/internal/core"
)

// EditionUpgrader applies the purchased tier. The upgrade runs outside the
// confirm update on purpose: a failed upgrade is logged and retried by
// support tooling, it never rolls back a confirmed payment.
type EditionUpgrader interface {
	UpgradeEdition(ctx context.Context, userID int64, edition string) (bool, error)
}

type Service struct {
	repo      Repository
	providers map[string]Provider
	upgrader  EditionUpgrader
	cfg       config.PayConfig
	logger    *slog.Logger
}

func NewService(
	repo Repository,
	providers map[string]Provider,
	upgrader EditionUpgrader,
	cfg config.PayConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		providers: providers,
		upgrader:  upgrader,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreateOrder persists the order before talking to the provider, so a QR
// failure still leaves a row the status poll and the sweep can work with.
func (s *Service) CreateOrder(
	ctx context.Context,
	userID int64,
	req CreateOrderRequest,
) (*CreateOrderResponse, error) {
	price, ok := s.cfg.Prices[req.Level]
	if !ok {
		return nil, fmt.Errorf("create order: no price for level %s: %w",
			req.Level, core.ErrInvalidInput)
	}

	provider, ok := s.providers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("create order: provider %s not enabled: %w",
			req.Provider, core.ErrInvalidInput)
	}

	order := &Order{
		UserID:     userID,
		Level:      req.Level,
		Provider:   req.Provider,
		Status:     StatusCreated,
		OutTradeNo: newOutTradeNo(),
		Amount:     price,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	resp := &CreateOrderResponse{
		OrderID:    order.ID,
		OutTradeNo: order.OutTradeNo,
		Amount:     order.Amount,
		Status:     order.Status,
	}

	qr, err := provider.CreateQR(ctx, order)
	if err != nil {
		s.logger.Error("qr generation failed, order kept for retry",
			"order_id", order.ID,
			"provider", req.Provider,
			"error", err,
		)
		return resp, fmt.Errorf("create order: %w", core.ErrProvider)
	}

	if err := s.repo.SetQRCodeURL(ctx, order.ID, qr); err != nil {
		return resp, err
	}
	if err := s.repo.MarkPending(ctx, order.ID); err != nil {
		return resp, err
	}

	resp.QRCodeURL = &qr
	resp.Status = StatusPending
	return resp, nil
}

func (s *Service) Status(
	ctx context.Context,
	userID, orderID int64,
) (*OrderStatusResponse, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, core.ErrForbidden)
	}

	return &OrderStatusResponse{
		OrderID: order.ID,
		Status:  order.Status,
		Level:   order.Level,
	}, nil
}

// Confirm is the single confirmation path shared by both providers'
// webhooks and the reconciliation sweep. It is safe to call any number of
// times for the same trade.
func (s *Service) Confirm(ctx context.Context, outTradeNo string) error {
	order, err := s.repo.GetByOutTradeNo(ctx, outTradeNo)
	if err != nil {
		return err
	}

	won, err := s.repo.Confirm(ctx, order.ID)
	if err != nil {
		return err
	}
	if !won {
		// already confirmed by a racing webhook or sweep pass
		return nil
	}

	s.logger.Info("order confirmed",
		"order_id", order.ID,
		"out_trade_no", order.OutTradeNo,
		"provider", order.Provider,
	)

	upgraded, err := s.upgrader.UpgradeEdition(ctx, order.UserID, order.Level)
	if err != nil {
		s.logger.Error("edition upgrade failed after confirm",
			"order_id", order.ID,
			"user_id", order.UserID,
			"level", order.Level,
			"error", err,
		)
		return nil
	}

	if upgraded {
		s.logger.Info("edition upgraded",
			"user_id", order.UserID,
			"level", order.Level,
		)
	}

	return nil
}

// HandleAlipayNotify verifies and applies an Alipay async notification.
// The returned error decides the ack body; verification failures change
// nothing.
func (s *Service) HandleAlipayNotify(
	ctx context.Context,
	alipay *AlipayClient,
	values url.Values,
) error {
	if err := alipay.VerifyNotify(values); err != nil {
		s.logger.Warn("alipay notify rejected", "error", err)
		return err
	}

	status := values.Get("trade_status")
	if status != "TRADE_SUCCESS" && status != "TRADE_FINISHED" {
		// not a payment completion; nothing to apply but still ack
		return nil
	}

	outTradeNo := values.Get("out_trade_no")
	if outTradeNo == "" {
		return fmt.Errorf("alipay notify: missing out_trade_no")
	}

	return s.Confirm(ctx, outTradeNo)
}

// HandleWechatNotify verifies headers, decrypts the resource, and applies
// the transaction state.
func (s *Service) HandleWechatNotify(
	ctx context.Context,
	wechat *WechatClient,
	timestamp, nonce, signature string,
	body []byte,
) error {
	err := wechat.VerifyNotifySignature(timestamp, nonce, signature, body)
	if err != nil {
		s.logger.Warn("wechat notify rejected", "error", err)
		return err
	}

	txn, err := wechat.DecodeNotification(body)
	if err != nil {
		return err
	}

	if txn.TradeState != "SUCCESS" {
		return nil
	}

	return s.Confirm(ctx, txn.OutTradeNo)
}

// Sweep re-queries the provider for orders past the grace window whose
// webhook never landed, and converges them through the same Confirm path.
func (s *Service) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Sweep.GraceWindow)

	stale, err := s.repo.FindStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("sweep: find stale orders", "error", err)
		return
	}

	for _, order := range stale {
		provider, ok := s.providers[order.Provider]
		if !ok {
			continue
		}

		state, err := provider.QueryOrder(ctx, order.OutTradeNo)
		if err != nil {
			// provider unreachable; next tick retries
			s.logger.Warn("sweep: provider query failed",
				"order_id", order.ID,
				"error", err,
			)
			continue
		}

		switch state {
		case QueryPaid:
			if err := s.Confirm(ctx, order.OutTradeNo); err != nil {
				s.logger.Error("sweep: confirm failed",
					"order_id", order.ID,
					"error", err,
				)
			}
		case QueryClosed:
			if err := s.repo.MarkFailed(ctx, order.ID); err != nil {
				s.logger.Error("sweep: mark failed",
					"order_id", order.ID,
					"error", err,
				)
			}
		case QueryUnpaid:
			// still waiting; leave it for the next pass
		}
	}
}

func (s *Service) StatsByDay(
	ctx context.Context,
	days int,
) ([]DayStat, error) {
	if days < 1 || days > 365 {
		days = 30
	}
	return s.repo.StatsByDay(ctx, days)
}

func newOutTradeNo() string {
	stamp := time.Now().Format("20060102150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return stamp + suffix
}
