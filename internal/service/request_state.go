package service

import (
	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

// transitions is the full lifecycle graph. A status missing from the map is
// terminal.
var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusDraft:            {models.StatusSubmitted},
	models.StatusSubmitted:        {models.StatusScreening, models.StatusRejected},
	models.StatusScreening:        {models.StatusPendingInfo, models.StatusComplianceReview, models.StatusApproved, models.StatusRejected},
	models.StatusPendingInfo:      {models.StatusScreening, models.StatusRejected},
	models.StatusComplianceReview: {models.StatusApproved, models.StatusRejected},
	models.StatusApproved:         {models.StatusSettling},
	models.StatusSettling:         {models.StatusCompleted},
}

// notifyOn maps the statuses whose entry triggers an investor email to their
// template. Screening and compliance review are internal steps and stay quiet.
var notifyOn = map[models.RequestStatus]models.NotificationTemplateID{
	models.StatusSubmitted:   models.TemplateRequestSubmitted,
	models.StatusPendingInfo: models.TemplateRequestPendingInfo,
	models.StatusApproved:    models.TemplateRequestApproved,
	models.StatusRejected:    models.TemplateRequestRejected,
	models.StatusSettling:    models.TemplateRequestSettling,
	models.StatusCompleted:   models.TemplateRequestCompleted,
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to models.RequestStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a typed error when from -> to is not allowed.
func ValidateTransition(from, to models.RequestStatus) error {
	if !CanTransition(from, to) {
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot move request from "+string(from)+" to "+string(to))
	}
	return nil
}

// TemplateForStatus returns the email template entering the status triggers,
// or false when the status is silent.
func TemplateForStatus(status models.RequestStatus) (models.NotificationTemplateID, bool) {
	id, ok := notifyOn[status]
	return id, ok
}
