// AngelaMos | 2026
// service.go

package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/autowds/server/internal/core"
)

const maxBatchSize = 10

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// getOwned is the single ownership gate: every operation on an existing
// task resolves it first and refuses to proceed for another user's task.
func (s *Service) getOwned(
	ctx context.Context,
	userID, taskID int64,
) (*Task, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.UserID != userID {
		return nil, fmt.Errorf("task %d: %w", taskID, core.ErrForbidden)
	}

	return t, nil
}

func (s *Service) Create(
	ctx context.Context,
	userID int64,
	req CreateTaskRequest,
) (*Task, error) {
	t := &Task{
		UserID: userID,
		Name:   req.Name,
		Rule:   req.Rule,
		Data:   req.Data,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) CreateBatch(
	ctx context.Context,
	userID int64,
	req BatchCreateRequest,
) ([]*Task, error) {
	if len(req.Tasks) == 0 || len(req.Tasks) > maxBatchSize {
		return nil, fmt.Errorf(
			"batch create: between 1 and %d tasks: %w",
			maxBatchSize, core.ErrInvalidInput,
		)
	}

	tasks := make([]*Task, 0, len(req.Tasks))
	for _, item := range req.Tasks {
		tasks = append(tasks, &Task{
			UserID: userID,
			Name:   item.Name,
			Rule:   item.Rule,
			Data:   item.Data,
		})
	}

	if err := s.repo.CreateBatch(ctx, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (s *Service) Get(
	ctx context.Context,
	userID, taskID int64,
) (*Task, error) {
	return s.getOwned(ctx, userID, taskID)
}

func (s *Service) Update(
	ctx context.Context,
	userID, taskID int64,
	req UpdateTaskRequest,
) (*Task, error) {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	t.Name = req.Name
	t.Rule = req.Rule
	t.Data = req.Data

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, taskID int64) error {
	if _, err := s.getOwned(ctx, userID, taskID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, taskID)
}

func (s *Service) GetRule(
	ctx context.Context,
	userID, taskID int64,
) (json.RawMessage, error) {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return t.Rule, nil
}

func (s *Service) UpdateRule(
	ctx context.Context,
	userID, taskID int64,
	rule json.RawMessage,
) error {
	if _, err := s.getOwned(ctx, userID, taskID); err != nil {
		return err
	}
	return s.repo.UpdateRule(ctx, taskID, rule)
}

func (s *Service) Rename(
	ctx context.Context,
	userID, taskID int64,
	name string,
) error {
	if _, err := s.getOwned(ctx, userID, taskID); err != nil {
		return err
	}
	return s.repo.UpdateName(ctx, taskID, name)
}

func (s *Service) List(
	ctx context.Context,
	userID int64,
	params ListTasksParams,
) ([]Task, int, error) {
	return s.repo.List(ctx, userID, params)
}

func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	return s.repo.StatsForUser(ctx, userID)
}
