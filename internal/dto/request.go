package dto

import (
	"time"

	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

// CreateRequestInput is the payload for opening a new investor request.
// Amount and currency are mandatory for buy/sell and must be absent-or-ignored
// for partnership, board_nomination and feedback requests.
type CreateRequestInput struct {
	Type        models.RequestType `json:"type"`
	Amount      *float64           `json:"amount,omitempty"`
	Currency    *string            `json:"currency,omitempty"`
	TargetPrice *float64           `json:"target_price,omitempty"`
	ExpiryAt    *time.Time         `json:"expiry_at,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
	Metadata    []byte             `json:"metadata,omitempty"`
}

// Validate applies the type-conditional business rules.
func (in CreateRequestInput) Validate() []appErrors.FieldError {
	var details []appErrors.FieldError
	if !in.Type.Valid() {
		details = append(details, appErrors.FieldError{Field: "type", Message: "unsupported request type"})
		return details
	}
	if in.Type.RequiresAmount() {
		if in.Amount == nil {
			details = append(details, appErrors.FieldError{Field: "amount", Message: "amount is required for buy and sell requests"})
		} else if *in.Amount <= 0 {
			details = append(details, appErrors.FieldError{Field: "amount", Message: "amount must be positive"})
		}
		if in.Currency == nil || *in.Currency == "" {
			details = append(details, appErrors.FieldError{Field: "currency", Message: "currency is required for buy and sell requests"})
		}
	}
	if in.TargetPrice != nil && *in.TargetPrice <= 0 {
		details = append(details, appErrors.FieldError{Field: "target_price", Message: "target_price must be positive"})
	}
	return details
}

// UpdateDraftInput edits a draft request; nil fields are left untouched.
type UpdateDraftInput struct {
	Amount      *float64   `json:"amount,omitempty"`
	Currency    *string    `json:"currency,omitempty"`
	TargetPrice *float64   `json:"target_price,omitempty"`
	ExpiryAt    *time.Time `json:"expiry_at,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Metadata    []byte     `json:"metadata,omitempty"`
}

// ProvideInfoInput answers a pending_info request.
type ProvideInfoInput struct {
	Note string `json:"note" validate:"required"`
}

// DecideRequestInput is the admin review decision payload.
type DecideRequestInput struct {
	Status models.RequestStatus `json:"status" validate:"required"`
	Note   string               `json:"note,omitempty"`
}

// RequestQuery filters request listings.
type RequestQuery struct {
	Statuses []models.RequestStatus
	Type     models.RequestType
	Search   string
	Page     int
	PageSize int
}

// RequestDetail bundles a request with its attachments and event history.
type RequestDetail struct {
	Request     models.InvestorRequest `json:"request"`
	Attachments []models.Attachment    `json:"attachments"`
	Events      []models.RequestEvent  `json:"events"`
}
