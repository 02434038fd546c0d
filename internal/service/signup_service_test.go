package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/mailer"
)

type mockSignupRepo struct {
	signups   map[string]*models.InvestorSignupRequest
	createErr error

	reviewCalls int
}

func newMockSignupRepo() *mockSignupRepo {
	return &mockSignupRepo{signups: make(map[string]*models.InvestorSignupRequest)}
}

func (m *mockSignupRepo) Create(_ context.Context, signup *models.InvestorSignupRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	signup.ID = "signup-1"
	signup.Status = models.SignupPending
	m.signups[signup.ID] = signup
	return nil
}

func (m *mockSignupRepo) GetByID(_ context.Context, id string) (*models.InvestorSignupRequest, error) {
	signup, ok := m.signups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *signup
	return &clone, nil
}

func (m *mockSignupRepo) FindPendingByEmail(_ context.Context, email string) (*models.InvestorSignupRequest, error) {
	for _, signup := range m.signups {
		if signup.Email == email && signup.Status == models.SignupPending {
			return signup, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSignupRepo) List(_ context.Context, _ models.SignupStatus, _, _ int) ([]models.InvestorSignupRequest, int, error) {
	return nil, 0, nil
}

func (m *mockSignupRepo) Review(_ context.Context, id string, status models.SignupStatus, reviewerID string, note *string) error {
	m.reviewCalls++
	signup, ok := m.signups[id]
	if !ok || signup.Status != models.SignupPending {
		return sql.ErrNoRows
	}
	signup.Status = status
	signup.ReviewedBy = &reviewerID
	signup.Note = note
	return nil
}

type mockSignupUsers struct {
	users     map[string]*models.User
	auditLogs []models.AuditLog
}

func newMockSignupUsers() *mockSignupUsers {
	return &mockSignupUsers{users: make(map[string]*models.User)}
}

func (m *mockSignupUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockSignupUsers) Create(_ context.Context, user *models.User) error {
	user.ID = "user-" + user.Email
	m.users[user.Email] = user
	return nil
}

func (m *mockSignupUsers) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

type safeSender struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (s *safeSender) Send(msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *safeSender) messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mailer.Message, len(s.sent))
	copy(out, s.sent)
	return out
}

func newTestSignupService(repo *mockSignupRepo, users *mockSignupUsers, sender mailer.Sender) *SignupService {
	return NewSignupService(repo, users, sender, nil, nil, "backoffice@example.com", "https://portal.example.com")
}

func pendingSignup(repo *mockSignupRepo, lang models.Language) *models.InvestorSignupRequest {
	signup := &models.InvestorSignupRequest{
		ID:       "signup-1",
		Email:    "noura@example.com",
		FullName: "Noura Al-Dossari",
		Status:   models.SignupPending,
		Language: lang,
	}
	repo.signups[signup.ID] = signup
	return signup
}

func TestSignupCreateRejectsExistingUser(t *testing.T) {
	repo := newMockSignupRepo()
	users := newMockSignupUsers()
	users.users["noura@example.com"] = &models.User{Email: "noura@example.com"}
	svc := newTestSignupService(repo, users, nil)

	_, err := svc.Create(context.Background(), dto.CreateSignupInput{
		Email:    "noura@example.com",
		FullName: "Noura Al-Dossari",
	})
	assert.ErrorIs(t, err, appErrors.ErrUserAlreadyExists)
}

func TestSignupCreateDefaultsLanguageToArabic(t *testing.T) {
	repo := newMockSignupRepo()
	svc := newTestSignupService(repo, newMockSignupUsers(), nil)

	signup, err := svc.Create(context.Background(), dto.CreateSignupInput{
		Email:    "noura@example.com",
		FullName: "Noura Al-Dossari",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LangArabic, signup.Language)
	assert.Equal(t, models.SignupPending, signup.Status)
}

func TestSignupCreateMapsDuplicateToPending(t *testing.T) {
	repo := newMockSignupRepo()
	repo.createErr = &pq.Error{Code: "23505"}
	svc := newTestSignupService(repo, newMockSignupUsers(), nil)

	_, err := svc.Create(context.Background(), dto.CreateSignupInput{
		Email:    "noura@example.com",
		FullName: "Noura Al-Dossari",
	})
	assert.ErrorIs(t, err, appErrors.ErrSignupPending)
}

func TestReviewApproveCreatesInvestorAndEmailsCredentials(t *testing.T) {
	repo := newMockSignupRepo()
	pendingSignup(repo, models.LangEnglish)
	users := newMockSignupUsers()
	sender := &safeSender{}
	svc := newTestSignupService(repo, users, sender)

	signup, err := svc.Review(context.Background(), "signup-1", "admin-1", dto.ReviewSignupInput{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.SignupApproved, signup.Status)

	user, ok := users.users["noura@example.com"]
	require.True(t, ok)
	assert.Equal(t, models.RoleInvestor, user.Role)
	assert.True(t, user.Active)

	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionSignupReview, users.auditLogs[0].Action)

	require.Eventually(t, func() bool {
		return len(sender.messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	msg := sender.messages()[0]
	assert.Equal(t, "noura@example.com", msg.To)

	// The emailed temporary password matches the stored hash.
	_, after, found := strings.Cut(msg.Text, "Temporary password: ")
	require.True(t, found)
	tempPassword := strings.TrimSpace(strings.SplitN(after, "\n", 2)[0])
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tempPassword)))
}

func TestReviewRejectDoesNotCreateUser(t *testing.T) {
	repo := newMockSignupRepo()
	pendingSignup(repo, models.LangArabic)
	users := newMockSignupUsers()
	sender := &safeSender{}
	svc := newTestSignupService(repo, users, sender)

	note := dto.ReviewSignupInput{Approve: false, Note: "incomplete documents"}
	signup, err := svc.Review(context.Background(), "signup-1", "admin-1", note)
	require.NoError(t, err)
	assert.Equal(t, models.SignupRejected, signup.Status)
	assert.Empty(t, users.users)
}

func TestReviewRejectsNonPendingSignup(t *testing.T) {
	repo := newMockSignupRepo()
	signup := pendingSignup(repo, models.LangArabic)
	signup.Status = models.SignupApproved
	svc := newTestSignupService(repo, newMockSignupUsers(), nil)

	_, err := svc.Review(context.Background(), "signup-1", "admin-1", dto.ReviewSignupInput{Approve: true})
	assert.ErrorIs(t, err, appErrors.ErrSignupNotPending)
	assert.Zero(t, repo.reviewCalls)
}
