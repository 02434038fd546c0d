package models

import "time"

// RequestType enumerates the investor request categories.
type RequestType string

const (
	RequestTypeBuy             RequestType = "buy"
	RequestTypeSell            RequestType = "sell"
	RequestTypePartnership     RequestType = "partnership"
	RequestTypeBoardNomination RequestType = "board_nomination"
	RequestTypeFeedback        RequestType = "feedback"
)

// RequiresAmount reports whether the type carries a monetary amount.
func (t RequestType) RequiresAmount() bool {
	return t == RequestTypeBuy || t == RequestTypeSell
}

// Valid reports whether the type is a known category.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeBuy, RequestTypeSell, RequestTypePartnership, RequestTypeBoardNomination, RequestTypeFeedback:
		return true
	default:
		return false
	}
}

// RequestStatus captures the lifecycle states of an investor request.
type RequestStatus string

const (
	StatusDraft            RequestStatus = "draft"
	StatusSubmitted        RequestStatus = "submitted"
	StatusScreening        RequestStatus = "screening"
	StatusPendingInfo      RequestStatus = "pending_info"
	StatusComplianceReview RequestStatus = "compliance_review"
	StatusApproved         RequestStatus = "approved"
	StatusRejected         RequestStatus = "rejected"
	StatusSettling         RequestStatus = "settling"
	StatusCompleted        RequestStatus = "completed"
)

// Terminal reports whether no further transitions are allowed.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// InvestorRequest is an investment transaction request owned by an investor.
type InvestorRequest struct {
	ID            string        `db:"id" json:"id"`
	RequestNumber string        `db:"request_number" json:"request_number"`
	UserID        string        `db:"user_id" json:"user_id"`
	Type          RequestType   `db:"type" json:"type"`
	Amount        *float64      `db:"amount" json:"amount,omitempty"`
	Currency      *string       `db:"currency" json:"currency,omitempty"`
	Status        RequestStatus `db:"status" json:"status"`
	TargetPrice   *float64      `db:"target_price" json:"target_price,omitempty"`
	ExpiryAt      *time.Time    `db:"expiry_at" json:"expiry_at,omitempty"`
	Notes         *string       `db:"notes" json:"notes,omitempty"`
	Metadata      []byte        `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestEvent is an immutable audit row recording one status transition.
type RequestEvent struct {
	ID         string         `db:"id" json:"id"`
	RequestID  string         `db:"request_id" json:"request_id"`
	FromStatus *RequestStatus `db:"from_status" json:"from_status,omitempty"`
	ToStatus   RequestStatus  `db:"to_status" json:"to_status"`
	ActorID    *string        `db:"actor_id" json:"actor_id,omitempty"`
	Note       *string        `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// Attachment is a stored file linked to a request.
type Attachment struct {
	ID          string    `db:"id" json:"id"`
	RequestID   string    `db:"request_id" json:"request_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StoragePath string    `db:"storage_path" json:"-"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// RequestFilter constrains request listing queries.
type RequestFilter struct {
	UserID   string
	Statuses []RequestStatus
	Type     RequestType
	Search   string
	Page     int
	PageSize int
}

// RequestExportRow is a request joined with its owner for report output.
type RequestExportRow struct {
	ID            string        `db:"id" json:"id"`
	RequestNumber string        `db:"request_number" json:"request_number"`
	Type          RequestType   `db:"type" json:"type"`
	Amount        *float64      `db:"amount" json:"amount,omitempty"`
	Currency      *string       `db:"currency" json:"currency,omitempty"`
	Status        RequestStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UserEmail     string        `db:"user_email" json:"user_email"`
	UserName      string        `db:"user_name" json:"user_name"`
}

// StatusCount is one bucket of the per-status histogram.
type StatusCount struct {
	Status RequestStatus `db:"status" json:"status"`
	Count  int           `db:"count" json:"count"`
}

// TypeAverage is the average amount for one request type.
type TypeAverage struct {
	Type    RequestType `db:"type" json:"type"`
	Average float64     `db:"average" json:"average"`
}
