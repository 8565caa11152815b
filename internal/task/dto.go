// AngelaMos | 2026
// dto.go

package task

import "encoding/json"

type CreateTaskRequest struct {
	Name string          `json:"name" validate:"required,min=1,max=128"`
	Rule json.RawMessage `json:"rule" validate:"required"`
	Data json.RawMessage `json:"data"`
}

type BatchCreateRequest struct {
	Tasks []CreateTaskRequest `json:"tasks" validate:"required,min=1,max=10,dive"`
}

type UpdateTaskRequest struct {
	Name string          `json:"name" validate:"required,min=1,max=128"`
	Rule json.RawMessage `json:"rule" validate:"required"`
	Data json.RawMessage `json:"data"`
}

type UpdateRuleRequest struct {
	Rule json.RawMessage `json:"rule" validate:"required"`
}

type RenameTaskRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

type ListTasksParams struct {
	Page     int
	PageSize int
	Name     string
}

func (p *ListTasksParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

func (p *ListTasksParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
