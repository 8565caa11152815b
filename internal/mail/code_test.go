// AngelaMos | 2026
// code_test.go

package mail

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodeStore(t *testing.T) (*CodeStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewCodeStore(rdb), mr
}

func TestCodeStore_IssueAndConsume(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, code, codeLength)

	require.NoError(t, store.Consume(ctx, "a@example.com", code))
}

func TestCodeStore_ConsumeIsSingleUse(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "a@example.com")
	require.NoError(t, err)

	require.NoError(t, store.Consume(ctx, "a@example.com", code))
	assert.ErrorIs(t, store.Consume(ctx, "a@example.com", code), ErrCodeMismatch)
}

func TestCodeStore_WrongGuessBurnsCode(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "a@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, store.Consume(ctx, "a@example.com", "WRONG1"), ErrCodeMismatch)
	assert.ErrorIs(t, store.Consume(ctx, "a@example.com", code), ErrCodeMismatch)
}

func TestCodeStore_CodeExpires(t *testing.T) {
	store, mr := newTestCodeStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "a@example.com")
	require.NoError(t, err)

	mr.FastForward(codeTTL + time.Second)

	assert.ErrorIs(t, store.Consume(ctx, "a@example.com", code), ErrCodeMismatch)
}

func TestCodeStore_ScopedPerEmail(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	codeA, err := store.Issue(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = store.Issue(ctx, "b@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, store.Consume(ctx, "b@example.com", codeA), ErrCodeMismatch)
	require.NoError(t, store.Consume(ctx, "a@example.com", codeA))
}
