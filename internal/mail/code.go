// AngelaMos | 2026
// code.go

package mail

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/autowds/server/internal/core"
)

const (
	codeKeyPrefix = "email-validate:"
	codeTTL       = 5 * time.Minute
	codeLength    = 6
)

var ErrCodeMismatch = errors.New("validation code mismatch")

// CodeStore issues and consumes single-use email validation codes. A code
// lives for five minutes and is deleted on first consume attempt so it
// cannot be replayed or brute-forced across requests.
type CodeStore struct {
	rdb *redis.Client
}

func NewCodeStore(rdb *redis.Client) *CodeStore {
	return &CodeStore{rdb: rdb}
}

func (s *CodeStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := core.RandAlphanumeric(codeLength)
	if err != nil {
		return "", err
	}

	key := codeKeyPrefix + email
	if err := s.rdb.Set(ctx, key, code, codeTTL).Err(); err != nil {
		return "", fmt.Errorf("store validation code: %w", err)
	}

	return code, nil
}

// Consume deletes the stored code regardless of whether it matches, so a
// wrong guess burns the code.
func (s *CodeStore) Consume(ctx context.Context, email, code string) error {
	key := codeKeyPrefix + email

	stored, err := s.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCodeMismatch
	}
	if err != nil {
		return fmt.Errorf("fetch validation code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrCodeMismatch
	}

	return nil
}
