// AngelaMos | 2026
// service_test.go

package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autowds/server/internal/core"
)

type memRepo struct {
	tasks  map[int64]Task
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{tasks: map[int64]Task{}}
}

func (r *memRepo) Create(_ context.Context, t *Task) error {
	r.nextID++
	t.ID = r.nextID
	r.tasks[t.ID] = *t
	return nil
}

func (r *memRepo) CreateBatch(ctx context.Context, tasks []*Task) error {
	for _, t := range tasks {
		if err := r.Create(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (*Task, error) {
	t, ok := r.tasks[id]
	if !ok || t.Deleted {
		return nil, core.ErrNotFound
	}
	return &t, nil
}

func (r *memRepo) Update(_ context.Context, t *Task) error {
	stored, ok := r.tasks[t.ID]
	if !ok || stored.Deleted {
		return core.ErrNotFound
	}
	r.tasks[t.ID] = *t
	return nil
}

func (r *memRepo) UpdateRule(_ context.Context, id int64, rule []byte) error {
	t, ok := r.tasks[id]
	if !ok || t.Deleted {
		return core.ErrNotFound
	}
	t.Rule = rule
	r.tasks[id] = t
	return nil
}

func (r *memRepo) UpdateName(_ context.Context, id int64, name string) error {
	t, ok := r.tasks[id]
	if !ok || t.Deleted {
		return core.ErrNotFound
	}
	t.Name = name
	r.tasks[id] = t
	return nil
}

func (r *memRepo) SoftDelete(_ context.Context, id int64) error {
	t, ok := r.tasks[id]
	if !ok || t.Deleted {
		return core.ErrNotFound
	}
	t.Deleted = true
	r.tasks[id] = t
	return nil
}

func (r *memRepo) List(
	_ context.Context,
	userID int64,
	_ ListTasksParams,
) ([]Task, int, error) {
	var out []Task
	for _, t := range r.tasks {
		if t.UserID == userID && !t.Deleted {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) StatsForUser(_ context.Context, userID int64) (*Stats, error) {
	stats := &Stats{}
	for _, t := range r.tasks {
		if t.UserID != userID || t.Deleted {
			continue
		}
		stats.Total++
		if t.Data == nil {
			stats.Undeployed++
		}
	}
	return stats, nil
}

func newTaskService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo), repo
}

func mustCreate(t *testing.T, svc *Service, userID int64) *Task {
	t.Helper()
	created, err := svc.Create(context.Background(), userID, CreateTaskRequest{
		Name: "crawl",
		Rule: json.RawMessage(`{"selector":"a"}`),
	})
	require.NoError(t, err)
	return created
}

func TestOwnershipEnforcedOnEveryOperation(t *testing.T) {
	svc, _ := newTaskService()
	ctx := context.Background()

	owned := mustCreate(t, svc, 1)
	const intruder = int64(2)

	_, err := svc.Get(ctx, intruder, owned.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.Update(ctx, intruder, owned.ID, UpdateTaskRequest{
		Name: "x", Rule: json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, core.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, intruder, owned.ID), core.ErrForbidden)

	_, err = svc.GetRule(ctx, intruder, owned.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	assert.ErrorIs(t,
		svc.UpdateRule(ctx, intruder, owned.ID, json.RawMessage(`{}`)),
		core.ErrForbidden)

	assert.ErrorIs(t, svc.Rename(ctx, intruder, owned.ID, "x"),
		core.ErrForbidden)
}

func TestGetMissingTaskIsNotFound(t *testing.T) {
	svc, _ := newTaskService()

	_, err := svc.Get(context.Background(), 1, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSoftDeleteHidesTask(t *testing.T) {
	svc, repo := newTaskService()
	ctx := context.Background()

	created := mustCreate(t, svc, 1)
	require.NoError(t, svc.Delete(ctx, 1, created.ID))

	_, err := svc.Get(ctx, 1, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	stored := repo.tasks[created.ID]
	assert.True(t, stored.Deleted, "row must survive as soft-deleted")
}

func TestBatchCreateLimits(t *testing.T) {
	svc, repo := newTaskService()
	ctx := context.Background()

	items := make([]CreateTaskRequest, 11)
	for i := range items {
		items[i] = CreateTaskRequest{
			Name: "t",
			Rule: json.RawMessage(`{}`),
		}
	}

	_, err := svc.CreateBatch(ctx, 1, BatchCreateRequest{Tasks: items})
	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, repo.tasks)

	created, err := svc.CreateBatch(ctx, 1, BatchCreateRequest{Tasks: items[:10]})
	require.NoError(t, err)
	assert.Len(t, created, 10)
}

func TestUpdateRuleReplacesRule(t *testing.T) {
	svc, _ := newTaskService()
	ctx := context.Background()

	created := mustCreate(t, svc, 1)
	newRule := json.RawMessage(`{"selector":"div.item"}`)
	require.NoError(t, svc.UpdateRule(ctx, 1, created.ID, newRule))

	rule, err := svc.GetRule(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(newRule), string(rule))
}
