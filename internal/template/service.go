// AngelaMos | 2026
// service.go

package template

import (
	"context"
	"errors"
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

func (s *Service) List(
	ctx context.Context,
	userID int64,
	params ListTemplatesParams,
) ([]Template, int, error) {
	return s.repo.List(ctx, userID, params)
}

func (s *Service) Get(ctx context.Context, id int64) (*Template, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListFavorites(
	ctx context.Context,
	userID int64,
) ([]Template, error) {
	return s.repo.ListFavorites(ctx, userID)
}

// Favorite bumps the counter before inserting the join row: the counter
// update's rows-affected doubles as the template existence check, and both
// writes share one transaction so a duplicate favorite rolls the bump back.
func (s *Service) Favorite(
	ctx context.Context,
	userID, templateID int64,
) error {
	return s.tx.InTx(ctx, func(q core.DBTX) error {
		bumped, err := s.repo.IncrementFavCountIn(ctx, q, templateID)
		if err != nil {
			return err
		}
		if !bumped {
			return fmt.Errorf("favorite template: %w", core.ErrNotFound)
		}

		if err := s.repo.InsertFavoriteIn(ctx, q, userID, templateID); err != nil {
			if errors.Is(err, core.ErrDuplicateKey) {
				return fmt.Errorf("favorite template: %w", core.ErrDuplicateKey)
			}
			return err
		}

		return nil
	})
}

func (s *Service) Unfavorite(
	ctx context.Context,
	userID, templateID int64,
) error {
	return s.tx.InTx(ctx, func(q core.DBTX) error {
		bumped, err := s.repo.DecrementFavCountIn(ctx, q, templateID)
		if err != nil {
			return err
		}
		if !bumped {
			return fmt.Errorf("unfavorite template: %w", core.ErrNotFound)
		}

		removed, err := s.repo.DeleteFavoriteIn(ctx, q, userID, templateID)
		if err != nil {
			return err
		}
		if !removed {
			// not favorited in the first place; roll back the decrement
			return fmt.Errorf("unfavorite template: %w", core.ErrNotFound)
		}

		return nil
	})
}
