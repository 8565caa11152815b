// AngelaMos | 2026
// service_test.go

package credit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autowds/server/internal/core"
)

type fakeStore struct {
	balances map[int64]int64
	logs     []Log
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: map[int64]int64{}}
}

type fakeRepo struct {
	store *fakeStore
}

func (r *fakeRepo) BalanceForUpdate(
	_ context.Context,
	_ core.DBTX,
	userID int64,
) (int64, error) {
	balance, ok := r.store.balances[userID]
	if !ok {
		return 0, core.ErrNotFound
	}
	return balance, nil
}

func (r *fakeRepo) SetBalance(
	_ context.Context,
	_ core.DBTX,
	userID, balance int64,
) error {
	if _, ok := r.store.balances[userID]; !ok {
		return core.ErrNotFound
	}
	r.store.balances[userID] = balance
	return nil
}

func (r *fakeRepo) InsertLog(_ context.Context, _ core.DBTX, log *Log) error {
	r.store.nextID++
	log.ID = r.store.nextID
	r.store.logs = append(r.store.logs, *log)
	return nil
}

func (r *fakeRepo) LogsForUser(
	_ context.Context,
	userID int64,
	limit int,
) ([]Log, error) {
	var out []Log
	for i := len(r.store.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.store.logs[i].UserID == userID {
			out = append(out, r.store.logs[i])
		}
	}
	return out, nil
}

// fakeTxRunner snapshots the store before the callback and restores it on
// error, mirroring commit-on-success transaction semantics.
type fakeTxRunner struct {
	store *fakeStore
}

func (t *fakeTxRunner) InTx(
	_ context.Context,
	fn func(tx core.DBTX) error,
) error {
	savedBalances := make(map[int64]int64, len(t.store.balances))
	for k, v := range t.store.balances {
		savedBalances[k] = v
	}
	savedLogs := make([]Log, len(t.store.logs))
	copy(savedLogs, t.store.logs)
	savedID := t.store.nextID

	if err := fn(nil); err != nil {
		t.store.balances = savedBalances
		t.store.logs = savedLogs
		t.store.nextID = savedID
		return err
	}
	return nil
}

func newTestService(store *fakeStore) *Service {
	return NewService(&fakeRepo{store: store}, &fakeTxRunner{store: store})
}

func TestAddCredits_RecordsBalanceSnapshot(t *testing.T) {
	store := newFakeStore()
	store.balances[1] = 40
	svc := newTestService(store)

	log, err := svc.AddCredits(context.Background(), 1, 100, OpRegister, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(100), log.Amount)
	assert.Equal(t, int64(140), log.Balance)
	assert.Equal(t, int64(140), store.balances[1])
}

func TestDeductCredits_InsufficientBalanceLeavesNoTrace(t *testing.T) {
	store := newFakeStore()
	store.balances[1] = 5
	svc := newTestService(store)

	_, err := svc.DeductCredits(context.Background(), 1, 10, OpExport, nil)
	require.ErrorIs(t, err, core.ErrInsufficientBalance)

	assert.Equal(t, int64(5), store.balances[1], "balance must be unchanged")
	assert.Empty(t, store.logs, "failed deduction must not be logged")
}

func TestDeductCredits_StoresNegativeAmount(t *testing.T) {
	store := newFakeStore()
	store.balances[1] = 10
	svc := newTestService(store)

	log, err := svc.DeductCredits(context.Background(), 1, 1, OpExport, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(-1), log.Amount)
	assert.Equal(t, int64(9), log.Balance)
}

func TestLedgerReplayMatchesBalance(t *testing.T) {
	store := newFakeStore()
	store.balances[7] = 0
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.AddCredits(ctx, 7, 100, OpRegister, nil, nil)
	require.NoError(t, err)
	_, err = svc.AddCredits(ctx, 7, 100, OpInvite, nil, nil)
	require.NoError(t, err)
	_, err = svc.DeductCredits(ctx, 7, 1, OpExport, nil)
	require.NoError(t, err)
	_, err = svc.DeductCredits(ctx, 7, 30, OpAdmin, nil)
	require.NoError(t, err)

	var running int64
	for _, log := range store.logs {
		running += log.Amount
		assert.Equal(t, running, log.Balance,
			"each entry must snapshot the post-operation balance")
	}
	assert.Equal(t, running, store.balances[7])
}

func TestAddCredits_RejectsNonPositiveAmount(t *testing.T) {
	store := newFakeStore()
	store.balances[1] = 0
	svc := newTestService(store)

	_, err := svc.AddCredits(context.Background(), 1, 0, OpAdmin, nil, nil)
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.AddCredits(context.Background(), 1, -5, OpAdmin, nil, nil)
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestLogs_NewestFirstCappedAtFifty(t *testing.T) {
	store := newFakeStore()
	store.balances[1] = 0
	svc := newTestService(store)
	ctx := context.Background()

	for range 60 {
		_, err := svc.AddCredits(ctx, 1, 1, OpAdmin, nil, nil)
		require.NoError(t, err)
	}

	logs, err := svc.Logs(ctx, 1)
	require.NoError(t, err)

	require.Len(t, logs, 50)
	assert.Equal(t, int64(60), logs[0].Balance, "newest entry first")
}
