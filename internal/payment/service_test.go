// AngelaMos | 2026
// service_test.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autowds/server/internal/config"
	"github.com/autowds/server/internal/core"
)

type fakeOrderRepo struct {
	orders map[int64]*Order
	nextID int64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]*Order{}, nextID: 1}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *Order) error {
	o.ID = r.nextID
	r.nextID++
	o.Created = time.Now()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id int64) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetByOutTradeNo(
	_ context.Context,
	outTradeNo string,
) (*Order, error) {
	for _, o := range r.orders {
		if o.OutTradeNo == outTradeNo {
			cp := *o
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *fakeOrderRepo) SetQRCodeURL(
	_ context.Context,
	id int64,
	url string,
) error {
	r.orders[id].QRCodeURL = &url
	return nil
}

func (r *fakeOrderRepo) MarkPending(_ context.Context, id int64) error {
	if r.orders[id].Status == StatusCreated {
		r.orders[id].Status = StatusPending
	}
	return nil
}

func (r *fakeOrderRepo) MarkFailed(_ context.Context, id int64) error {
	if r.orders[id].Status != StatusConfirmed {
		r.orders[id].Status = StatusFailed
	}
	return nil
}

func (r *fakeOrderRepo) Confirm(_ context.Context, id int64) (bool, error) {
	o := r.orders[id]
	if o.Status == StatusConfirmed {
		return false, nil
	}
	now := time.Now()
	o.Status = StatusConfirmed
	o.Confirmed = &now
	return true, nil
}

func (r *fakeOrderRepo) FindStale(
	_ context.Context,
	olderThan time.Time,
) ([]Order, error) {
	var stale []Order
	for _, o := range r.orders {
		isOpen := o.Status == StatusCreated || o.Status == StatusPending
		if isOpen && o.Created.Before(olderThan) {
			stale = append(stale, *o)
		}
	}
	return stale, nil
}

func (r *fakeOrderRepo) StatsByDay(
	_ context.Context,
	_ int,
) ([]DayStat, error) {
	return nil, nil
}

type fakeProvider struct {
	name       string
	qrErr      error
	queryState QueryState
	queryErr   error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CreateQR(_ context.Context, o *Order) (string, error) {
	if p.qrErr != nil {
		return "", p.qrErr
	}
	return "https://qr.example/" + o.OutTradeNo, nil
}

func (p *fakeProvider) QueryOrder(
	_ context.Context,
	_ string,
) (QueryState, error) {
	return p.queryState, p.queryErr
}

type fakeUpgrader struct {
	calls    []string
	editions map[int64]string
	err      error
}

func newFakeUpgrader() *fakeUpgrader {
	return &fakeUpgrader{editions: map[int64]string{}}
}

func (u *fakeUpgrader) UpgradeEdition(
	_ context.Context,
	userID int64,
	edition string,
) (bool, error) {
	u.calls = append(u.calls, fmt.Sprintf("%d:%s", userID, edition))
	if u.err != nil {
		return false, u.err
	}
	if edition <= u.editions[userID] {
		return false, nil
	}
	u.editions[userID] = edition
	return true, nil
}

func testPayConfig() config.PayConfig {
	return config.PayConfig{
		Prices: map[string]int64{"L1": 990, "L2": 2990, "L3": 9990},
		Sweep: config.SweepConfig{
			Interval:    time.Minute,
			GraceWindow: 30 * time.Minute,
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(
	repo Repository,
	provider *fakeProvider,
	upgrader EditionUpgrader,
) *Service {
	return NewService(
		repo,
		map[string]Provider{provider.name: provider},
		upgrader,
		testPayConfig(),
		quietLogger(),
	)
}

func TestCreateOrder_QRFailureStillPersistsOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{
		name:  ProviderAlipay,
		qrErr: errors.New("gateway down"),
	}
	svc := newTestService(repo, provider, newFakeUpgrader())

	resp, err := svc.CreateOrder(context.Background(), 7, CreateOrderRequest{
		Level:    "L2",
		Provider: ProviderAlipay,
	})

	require.ErrorIs(t, err, core.ErrProvider)
	require.NotNil(t, resp)

	stored, getErr := repo.GetByID(context.Background(), resp.OrderID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusCreated, stored.Status)
	assert.Equal(t, int64(2990), stored.Amount)
	assert.Nil(t, stored.QRCodeURL)
}

func TestCreateOrder_SuccessMovesOrderToPending(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{name: ProviderWechat}
	svc := newTestService(repo, provider, newFakeUpgrader())

	resp, err := svc.CreateOrder(context.Background(), 7, CreateOrderRequest{
		Level:    "L1",
		Provider: ProviderWechat,
	})

	require.NoError(t, err)
	require.NotNil(t, resp.QRCodeURL)
	assert.Equal(t, StatusPending, resp.Status)

	stored, _ := repo.GetByID(context.Background(), resp.OrderID)
	assert.Equal(t, StatusPending, stored.Status)
	assert.NotNil(t, stored.QRCodeURL)
}

func TestCreateOrder_UnknownLevelRejected(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{name: ProviderAlipay}
	svc := newTestService(repo, provider, newFakeUpgrader())

	_, err := svc.CreateOrder(context.Background(), 7, CreateOrderRequest{
		Level:    "L9",
		Provider: ProviderAlipay,
	})

	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, repo.orders)
}

func TestConfirm_DuplicateDeliveriesUpgradeOnce(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{name: ProviderAlipay}
	upgrader := newFakeUpgrader()
	svc := newTestService(repo, provider, upgrader)

	resp, err := svc.CreateOrder(context.Background(), 42, CreateOrderRequest{
		Level:    "L3",
		Provider: ProviderAlipay,
	})
	require.NoError(t, err)

	// webhook delivered twice plus a racing sweep pass
	require.NoError(t, svc.Confirm(context.Background(), resp.OutTradeNo))
	require.NoError(t, svc.Confirm(context.Background(), resp.OutTradeNo))
	require.NoError(t, svc.Confirm(context.Background(), resp.OutTradeNo))

	stored, _ := repo.GetByID(context.Background(), resp.OrderID)
	assert.Equal(t, StatusConfirmed, stored.Status)
	require.NotNil(t, stored.Confirmed)

	assert.Len(t, upgrader.calls, 1)
	assert.Equal(t, "L3", upgrader.editions[42])
}

func TestConfirm_UpgradeFailureDoesNotUndoConfirm(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{name: ProviderAlipay}
	upgrader := newFakeUpgrader()
	upgrader.err = errors.New("users table unavailable")
	svc := newTestService(repo, provider, upgrader)

	resp, err := svc.CreateOrder(context.Background(), 42, CreateOrderRequest{
		Level:    "L1",
		Provider: ProviderAlipay,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(context.Background(), resp.OutTradeNo))

	stored, _ := repo.GetByID(context.Background(), resp.OrderID)
	assert.Equal(t, StatusConfirmed, stored.Status)
}

func TestSweep_PaidOrderConvergesThroughConfirm(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{name: ProviderWechat, queryState: QueryPaid}
	upgrader := newFakeUpgrader()
	svc := newTestService(repo, provider, upgrader)

	resp, err := svc.CreateOrder(context.Background(), 9, CreateOrderRequest{
		Level:    "L2",
		Provider: ProviderWechat,
	})
	require.NoError(t, err)

	// age the order past the grace window
	repo.orders[resp.OrderID].Created = time.Now().Add(-time.Hour)

	svc.Sweep(context.Background())

	stored, _ := repo.GetByID(context.Background(), resp.OrderID)
	assert.Equal(t, StatusConfirmed, stored.Status)
	assert.Equal(t, "L2", upgrader.editions[9])
}

func TestSweep_ClosedOrderMarkedFailed(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{name: ProviderWechat, queryState: QueryClosed}
	svc := newTestService(repo, provider, newFakeUpgrader())

	resp, err := svc.CreateOrder(context.Background(), 9, CreateOrderRequest{
		Level:    "L1",
		Provider: ProviderWechat,
	})
	require.NoError(t, err)
	repo.orders[resp.OrderID].Created = time.Now().Add(-time.Hour)

	svc.Sweep(context.Background())

	stored, _ := repo.GetByID(context.Background(), resp.OrderID)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestSweep_ProviderErrorLeavesOrderForNextPass(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{
		name:     ProviderWechat,
		queryErr: errors.New("timeout"),
	}
	svc := newTestService(repo, provider, newFakeUpgrader())

	resp, err := svc.CreateOrder(context.Background(), 9, CreateOrderRequest{
		Level:    "L1",
		Provider: ProviderWechat,
	})
	require.NoError(t, err)
	repo.orders[resp.OrderID].Created = time.Now().Add(-time.Hour)

	svc.Sweep(context.Background())

	stored, _ := repo.GetByID(context.Background(), resp.OrderID)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestSweep_FreshOrderNotTouched(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{name: ProviderWechat, queryState: QueryPaid}
	upgrader := newFakeUpgrader()
	svc := newTestService(repo, provider, upgrader)

	_, err := svc.CreateOrder(context.Background(), 9, CreateOrderRequest{
		Level:    "L1",
		Provider: ProviderWechat,
	})
	require.NoError(t, err)

	svc.Sweep(context.Background())

	assert.Empty(t, upgrader.calls)
}

func TestStatus_OwnershipEnforced(t *testing.T) {
	repo := newFakeOrderRepo()
	provider := &fakeProvider{name: ProviderAlipay}
	svc := newTestService(repo, provider, newFakeUpgrader())

	resp, err := svc.CreateOrder(context.Background(), 1, CreateOrderRequest{
		Level:    "L1",
		Provider: ProviderAlipay,
	})
	require.NoError(t, err)

	_, err = svc.Status(context.Background(), 2, resp.OrderID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	got, err := svc.Status(context.Background(), 1, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}
