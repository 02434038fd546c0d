package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/repository"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/mailer"
)

type signupStore interface {
	Create(ctx context.Context, signup *models.InvestorSignupRequest) error
	GetByID(ctx context.Context, id string) (*models.InvestorSignupRequest, error)
	FindPendingByEmail(ctx context.Context, email string) (*models.InvestorSignupRequest, error)
	List(ctx context.Context, status models.SignupStatus, page, pageSize int) ([]models.InvestorSignupRequest, int, error)
	Review(ctx context.Context, id string, status models.SignupStatus, reviewerID string, note *string) error
}

type signupUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SignupService handles public account-creation requests and their review.
type SignupService struct {
	repo       signupStore
	users      signupUserStore
	sender     mailer.Sender
	validator  *validator.Validate
	logger     *zap.Logger
	adminEmail string
	portalURL  string
}

// NewSignupService constructs the service.
func NewSignupService(repo signupStore, users signupUserStore, sender mailer.Sender, validate *validator.Validate, logger *zap.Logger, adminEmail, portalURL string) *SignupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SignupService{
		repo:       repo,
		users:      users,
		sender:     sender,
		validator:  validate,
		logger:     logger,
		adminEmail: adminEmail,
		portalURL:  portalURL,
	}
}

// Create registers a pending signup from the public site.
func (s *SignupService) Create(ctx context.Context, input dto.CreateSignupInput) (*models.InvestorSignupRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return nil, appErrors.ErrUserAlreadyExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing user")
	}

	language := input.Language
	if language != models.LangArabic && language != models.LangEnglish {
		language = models.LangArabic
	}

	signup := &models.InvestorSignupRequest{
		Email:      input.Email,
		FullName:   input.FullName,
		Phone:      input.Phone,
		NationalID: input.NationalID,
		Message:    input.Message,
		Language:   language,
	}
	if err := s.repo.Create(ctx, signup); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.ErrSignupPending
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create signup")
	}

	s.logger.Info("signup request created", zap.String("signup_id", signup.ID))
	s.notifyAdmin(signup)
	return signup, nil
}

// notifyAdmin emails the back office about a new signup. Failures are logged;
// the pending row is still visible on the admin dashboard.
func (s *SignupService) notifyAdmin(signup *models.InvestorSignupRequest) {
	if s.sender == nil || s.adminEmail == "" {
		return
	}
	go func() {
		err := s.sender.Send(mailer.Message{
			To:      s.adminEmail,
			Subject: "New investor signup: " + signup.FullName,
			HTML:    `<p>A new investor signup request from <strong>` + signup.FullName + `</strong> is awaiting review.</p><p><a href="` + s.portalURL + `/admin/signups/` + signup.ID + `">Review signup</a></p>`,
			Text:    "A new investor signup request from " + signup.FullName + " is awaiting review.\n" + s.portalURL + "/admin/signups/" + signup.ID,
		})
		if err != nil {
			s.logger.Warn("failed to notify admin about signup",
				zap.String("signup_id", signup.ID), zap.Error(err))
		}
	}()
}

// List returns signups for the back office.
func (s *SignupService) List(ctx context.Context, status models.SignupStatus, page, pageSize int) ([]models.InvestorSignupRequest, int, error) {
	signups, total, err := s.repo.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list signups")
	}
	return signups, total, nil
}

// Review approves or rejects a pending signup. Approval creates the investor
// account with a generated temporary password and emails the credentials.
func (s *SignupService) Review(ctx context.Context, signupID, reviewerID string, input dto.ReviewSignupInput) (*models.InvestorSignupRequest, error) {
	signup, err := s.repo.GetByID(ctx, signupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "signup request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load signup")
	}
	if signup.Status != models.SignupPending {
		return nil, appErrors.ErrSignupNotPending
	}

	status := models.SignupRejected
	if input.Approve {
		status = models.SignupApproved
	}
	var note *string
	if input.Note != "" {
		note = &input.Note
	}

	var tempPassword string
	if input.Approve {
		tempPassword, err = s.createInvestor(ctx, signup)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.Review(ctx, signup.ID, status, reviewerID, note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSignupNotPending
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review signup")
	}
	signup.Status = status
	signup.ReviewedBy = &reviewerID
	signup.Note = note

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionSignupReview,
		Resource:   "signup",
		ResourceID: &signup.ID,
		NewValues:  []byte(`{"status":"` + string(status) + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record signup review audit log", zap.Error(err))
	}

	s.notifyApplicant(signup, tempPassword)
	return signup, nil
}

func (s *SignupService) createInvestor(ctx context.Context, signup *models.InvestorSignupRequest) (string, error) {
	if _, err := s.users.FindByEmail(ctx, signup.Email); err == nil {
		return "", appErrors.ErrUserAlreadyExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing user")
	}

	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	tempPassword := base64.RawURLEncoding.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        signup.Email,
		PasswordHash: string(hash),
		FullName:     signup.FullName,
		Phone:        signup.Phone,
		Role:         models.RoleInvestor,
		Language:     signup.Language,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return "", appErrors.ErrUserAlreadyExists
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create investor account")
	}
	return tempPassword, nil
}

func (s *SignupService) notifyApplicant(signup *models.InvestorSignupRequest, tempPassword string) {
	if s.sender == nil {
		return
	}
	arabic := signup.Language == models.LangArabic

	var msg mailer.Message
	if signup.Status == models.SignupApproved {
		if arabic {
			msg = mailer.Message{
				To:      signup.Email,
				Subject: "تم قبول طلب التسجيل",
				HTML:    `<html lang="ar" dir="rtl"><body><p>عزيزي ` + signup.FullName + `،</p><p>تم قبول طلب تسجيلك في بوابة المستثمرين. كلمة المرور المؤقتة الخاصة بك:</p><p><strong>` + tempPassword + `</strong></p><p>يرجى تغييرها بعد أول تسجيل دخول.</p><p><a href="` + s.portalURL + `">دخول البوابة</a></p></body></html>`,
				Text:    "تم قبول طلب تسجيلك. كلمة المرور المؤقتة: " + tempPassword + "\n" + s.portalURL,
			}
		} else {
			msg = mailer.Message{
				To:      signup.Email,
				Subject: "Your signup was approved",
				HTML:    `<html lang="en" dir="ltr"><body><p>Dear ` + signup.FullName + `,</p><p>Your investors portal signup was approved. Your temporary password:</p><p><strong>` + tempPassword + `</strong></p><p>Please change it after your first login.</p><p><a href="` + s.portalURL + `">Open the portal</a></p></body></html>`,
				Text:    "Your signup was approved. Temporary password: " + tempPassword + "\n" + s.portalURL,
			}
		}
	} else {
		if arabic {
			msg = mailer.Message{
				To:      signup.Email,
				Subject: "بخصوص طلب التسجيل",
				HTML:    `<html lang="ar" dir="rtl"><body><p>عزيزي ` + signup.FullName + `،</p><p>نأسف لإبلاغك بأنه لم تتم الموافقة على طلب تسجيلك في بوابة المستثمرين.</p></body></html>`,
				Text:    "نأسف لإبلاغك بأنه لم تتم الموافقة على طلب تسجيلك.",
			}
		} else {
			msg = mailer.Message{
				To:      signup.Email,
				Subject: "About your signup request",
				HTML:    `<html lang="en" dir="ltr"><body><p>Dear ` + signup.FullName + `,</p><p>We regret to inform you that your investors portal signup was not approved.</p></body></html>`,
				Text:    "We regret to inform you that your signup was not approved.",
			}
		}
	}

	go func() {
		if err := s.sender.Send(msg); err != nil {
			s.logger.Warn("failed to notify signup applicant",
				zap.String("signup_id", signup.ID), zap.Error(err))
		}
	}()
}
