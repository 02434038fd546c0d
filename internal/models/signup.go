package models

import "time"

// SignupStatus tracks admin review of an account-creation request.
type SignupStatus string

const (
	SignupPending  SignupStatus = "pending"
	SignupApproved SignupStatus = "approved"
	SignupRejected SignupStatus = "rejected"
)

// InvestorSignupRequest is a pending account-creation request reviewed by an
// admin before a users row exists.
type InvestorSignupRequest struct {
	ID         string       `db:"id" json:"id"`
	Email      string       `db:"email" json:"email"`
	FullName   string       `db:"full_name" json:"full_name"`
	Phone      *string      `db:"phone" json:"phone,omitempty"`
	NationalID *string      `db:"national_id" json:"national_id,omitempty"`
	Message    *string      `db:"message" json:"message,omitempty"`
	Language   Language     `db:"language" json:"language"`
	Status     SignupStatus `db:"status" json:"status"`
	ReviewedBy *string      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Note       *string      `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}
