package models

import "time"

// NotificationTemplateID identifies a bilingual email template.
type NotificationTemplateID string

const (
	TemplateRequestSubmitted   NotificationTemplateID = "request_submitted"
	TemplateRequestPendingInfo NotificationTemplateID = "request_pending_info"
	TemplateRequestApproved    NotificationTemplateID = "request_approved"
	TemplateRequestRejected    NotificationTemplateID = "request_rejected"
	TemplateRequestSettling    NotificationTemplateID = "request_settling"
	TemplateRequestCompleted   NotificationTemplateID = "request_completed"
	TemplateRequestAdminAlert  NotificationTemplateID = "request_admin_alert"
)

// NotificationTemplateIDs lists every known template.
var NotificationTemplateIDs = []NotificationTemplateID{
	TemplateRequestSubmitted,
	TemplateRequestPendingInfo,
	TemplateRequestApproved,
	TemplateRequestRejected,
	TemplateRequestSettling,
	TemplateRequestCompleted,
	TemplateRequestAdminAlert,
}

// NotificationChannel selects the delivery mechanism for a job.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
)

// NotificationJobStatus tracks outbox job delivery state.
type NotificationJobStatus string

const (
	JobQueued     NotificationJobStatus = "queued"
	JobProcessing NotificationJobStatus = "processing"
	JobCompleted  NotificationJobStatus = "completed"
	JobFailed     NotificationJobStatus = "failed"
)

// NotificationJob is an outbox row written in the same transaction as the
// state change it announces, consumed by the dispatch worker.
type NotificationJob struct {
	ID          string                 `db:"id" json:"id"`
	UserID      string                 `db:"user_id" json:"user_id"`
	Recipient   string                 `db:"recipient" json:"recipient"`
	TemplateID  NotificationTemplateID `db:"template_id" json:"template_id"`
	Channel     NotificationChannel    `db:"channel" json:"channel"`
	Language    Language               `db:"language" json:"language"`
	Payload     []byte                 `db:"payload" json:"payload"`
	Status      NotificationJobStatus  `db:"status" json:"status"`
	Attempts    int                    `db:"attempts" json:"attempts"`
	MaxAttempts int                    `db:"max_attempts" json:"max_attempts"`
	LastError   *string                `db:"last_error" json:"last_error,omitempty"`
	ScheduledAt time.Time              `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time              `db:"updated_at" json:"updated_at"`
}

// Notification is an in-app notification shown on the portal.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	RequestID *string    `db:"request_id" json:"request_id,omitempty"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
