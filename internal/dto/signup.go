package dto

import "github.com/bakurah/investors-portal-api/internal/models"

// CreateSignupInput is the public account-creation request payload.
type CreateSignupInput struct {
	Email      string          `json:"email" validate:"required,email"`
	FullName   string          `json:"full_name" validate:"required,min=2"`
	Phone      *string         `json:"phone,omitempty"`
	NationalID *string         `json:"national_id,omitempty"`
	Message    *string         `json:"message,omitempty"`
	Language   models.Language `json:"language,omitempty"`
}

// ReviewSignupInput is the admin approve/reject decision.
type ReviewSignupInput struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}
