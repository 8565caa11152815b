// AngelaMos | 2026
// dto.go

package user

type SendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RegisterRequest struct {
	Email      string  `json:"email"       validate:"required,email"`
	Name       string  `json:"name"        validate:"required,min=1,max=64"`
	Password   string  `json:"password"    validate:"required,min=6,max=128"`
	Code       string  `json:"code"        validate:"required,len=6"`
	InviteCode *string `json:"invite_code" validate:"omitempty,min=4,max=32"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Code     string `json:"code"     validate:"required,len=6"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type RenameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

type AdminCreateUserRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Edition  string `json:"edition"  validate:"omitempty,oneof=L0 L1 L2 L3"`
}

type AdminUpdateUserRequest struct {
	Locked  *bool   `json:"locked"`
	Edition *string `json:"edition" validate:"omitempty,oneof=L0 L1 L2 L3"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
