// AngelaMos | 2026
// service.go

package credit

import (
	"context"
	"fmt"

	"github.com/autowds/server/internal/core"
)

type Service struct {
	repo Repository
	tx   core.TxRunner
}

func NewService(repo Repository, tx core.TxRunner) *Service {
	return &Service{
		repo: repo,
		tx:   tx,
	}
}

// AddCredits applies a positive adjustment in its own transaction.
func (s *Service) AddCredits(
	ctx context.Context,
	userID, amount int64,
	operation string,
	description *string,
	relatedUserID *int64,
) (*Log, error) {
	var log *Log
	err := s.tx.InTx(ctx, func(q core.DBTX) error {
		var txErr error
		log, txErr = s.AddCreditsIn(
			ctx, q, userID, amount, operation, description, relatedUserID,
		)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// AddCreditsIn is the transaction-composable form, used when the adjustment
// must commit or roll back with other writes in the caller's transaction.
func (s *Service) AddCreditsIn(
	ctx context.Context,
	q core.DBTX,
	userID, amount int64,
	operation string,
	description *string,
	relatedUserID *int64,
) (*Log, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("add credits: amount must be positive: %w",
			core.ErrInvalidInput)
	}

	balance, err := s.repo.BalanceForUpdate(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	newBalance := balance + amount
	if err := s.repo.SetBalance(ctx, q, userID, newBalance); err != nil {
		return nil, err
	}

	log := &Log{
		UserID:        userID,
		Operation:     operation,
		Amount:        amount,
		Balance:       newBalance,
		Description:   description,
		RelatedUserID: relatedUserID,
	}
	if err := s.repo.InsertLog(ctx, q, log); err != nil {
		return nil, err
	}

	return log, nil
}

// DeductCredits applies a negative adjustment in its own transaction.
// Insufficient balance is detected before any write so the ledger never
// records a failed deduction.
func (s *Service) DeductCredits(
	ctx context.Context,
	userID, amount int64,
	operation string,
	description *string,
) (*Log, error) {
	var log *Log
	err := s.tx.InTx(ctx, func(q core.DBTX) error {
		var txErr error
		log, txErr = s.DeductCreditsIn(
			ctx, q, userID, amount, operation, description,
		)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (s *Service) DeductCreditsIn(
	ctx context.Context,
	q core.DBTX,
	userID, amount int64,
	operation string,
	description *string,
) (*Log, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deduct credits: amount must be positive: %w",
			core.ErrInvalidInput)
	}

	balance, err := s.repo.BalanceForUpdate(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	if balance < amount {
		return nil, fmt.Errorf(
			"deduct credits: have %d, need %d: %w",
			balance, amount, core.ErrInsufficientBalance,
		)
	}

	newBalance := balance - amount
	if err := s.repo.SetBalance(ctx, q, userID, newBalance); err != nil {
		return nil, err
	}

	log := &Log{
		UserID:      userID,
		Operation:   operation,
		Amount:      -amount,
		Balance:     newBalance,
		Description: description,
	}
	if err := s.repo.InsertLog(ctx, q, log); err != nil {
		return nil, err
	}

	return log, nil
}

const defaultLogLimit = 50

func (s *Service) Logs(ctx context.Context, userID int64) ([]Log, error) {
	return s.repo.LogsForUser(ctx, userID, defaultLogLimit)
}
