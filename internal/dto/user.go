package dto

import "github.com/bakurah/investors-portal-api/internal/models"

// CreateUserInput is the admin payload for provisioning an account.
type CreateUserInput struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	FullName string          `json:"full_name" validate:"required,min=2,max=120"`
	Phone    *string         `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN ADMIN INVESTOR"`
	Language models.Language `json:"language" validate:"omitempty,oneof=ar en"`
}

// UpdateUserInput edits a user record. Nil fields are left untouched.
type UpdateUserInput struct {
	FullName *string          `json:"full_name,omitempty" validate:"omitempty,min=2,max=120"`
	Phone    *string          `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role     *models.UserRole `json:"role,omitempty" validate:"omitempty,oneof=SUPERADMIN ADMIN INVESTOR"`
	Language *models.Language `json:"language,omitempty" validate:"omitempty,oneof=ar en"`
	Active   *bool            `json:"active,omitempty"`
}

// UpdateProfileInput is the self-service subset of UpdateUserInput.
type UpdateProfileInput struct {
	FullName *string          `json:"full_name,omitempty" validate:"omitempty,min=2,max=120"`
	Phone    *string          `json:"phone,omitempty" validate:"omitempty,max=32"`
	Language *models.Language `json:"language,omitempty"`
}

// UserQuery filters the admin user listing.
type UserQuery struct {
	Role   string `form:"role"`
	Active *bool  `form:"active"`
	Search string `form:"search"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
}
