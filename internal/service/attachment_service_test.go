package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/storage"
)

type mockAttachmentRepo struct {
	requests    map[string]*models.InvestorRequest
	attachments map[string]*models.Attachment
	nextID      int
}

func newMockAttachmentRepo() *mockAttachmentRepo {
	return &mockAttachmentRepo{
		requests:    make(map[string]*models.InvestorRequest),
		attachments: make(map[string]*models.Attachment),
	}
}

func (m *mockAttachmentRepo) GetByID(_ context.Context, id string) (*models.InvestorRequest, error) {
	if req, ok := m.requests[id]; ok {
		return req, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttachmentRepo) CreateAttachment(_ context.Context, attachment *models.Attachment) error {
	m.nextID++
	attachment.ID = fmt.Sprintf("att-%d", m.nextID)
	m.attachments[attachment.ID] = attachment
	return nil
}

func (m *mockAttachmentRepo) GetAttachment(_ context.Context, id string) (*models.Attachment, error) {
	if a, ok := m.attachments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttachmentRepo) ListAttachments(_ context.Context, requestID string) ([]models.Attachment, error) {
	var out []models.Attachment
	for _, a := range m.attachments {
		if a.RequestID == requestID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func newTestAttachmentService(t *testing.T, repo *mockAttachmentRepo) *AttachmentService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("unit-test-secret", time.Minute)
	return NewAttachmentService(repo, files, signer, nil, AttachmentConfig{
		MaxFileSizeBytes: 1024,
		AllowedMIMEs:     []string{"application/pdf"},
	})
}

func draftRequest(repo *mockAttachmentRepo, owner string) *models.InvestorRequest {
	req := &models.InvestorRequest{ID: "req-1", UserID: owner, Status: models.StatusDraft}
	repo.requests[req.ID] = req
	return req
}

func TestUploadStoresFileAndRecordsRow(t *testing.T) {
	repo := newMockAttachmentRepo()
	draftRequest(repo, "investor-1")
	svc := newTestAttachmentService(t, repo)

	body := strings.NewReader("%PDF-1.4 fake statement")
	attachment, err := svc.Upload(context.Background(), "req-1", "investor-1", false,
		"statement.pdf", "application/pdf", int64(body.Len()), body)
	require.NoError(t, err)

	assert.NotEmpty(t, attachment.ID)
	assert.Equal(t, "statement.pdf", attachment.FileName)
	assert.Contains(t, attachment.StoragePath, "req-1/")
	assert.Contains(t, attachment.StoragePath, ".pdf")
}

func TestUploadRejectsOversizeAndWrongType(t *testing.T) {
	repo := newMockAttachmentRepo()
	draftRequest(repo, "investor-1")
	svc := newTestAttachmentService(t, repo)

	_, err := svc.Upload(context.Background(), "req-1", "investor-1", false,
		"big.pdf", "application/pdf", 4096, strings.NewReader("x"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Upload(context.Background(), "req-1", "investor-1", false,
		"malware.exe", "application/x-msdownload", 10, strings.NewReader("x"))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUploadHidesForeignRequest(t *testing.T) {
	repo := newMockAttachmentRepo()
	draftRequest(repo, "investor-1")
	svc := newTestAttachmentService(t, repo)

	_, err := svc.Upload(context.Background(), "req-1", "investor-2", false,
		"statement.pdf", "application/pdf", 10, strings.NewReader("x"))
	assert.ErrorIs(t, err, appErrors.ErrRequestNotFound)
}

func TestUploadRejectsSubmittedRequestForInvestor(t *testing.T) {
	repo := newMockAttachmentRepo()
	req := draftRequest(repo, "investor-1")
	req.Status = models.StatusScreening
	svc := newTestAttachmentService(t, repo)

	_, err := svc.Upload(context.Background(), "req-1", "investor-1", false,
		"statement.pdf", "application/pdf", 10, strings.NewReader("x"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	// Staff may still attach while the request is under review.
	_, err = svc.Upload(context.Background(), "req-1", "admin-1", true,
		"kyc.pdf", "application/pdf", 10, strings.NewReader("x"))
	require.NoError(t, err)
}

func TestSignedLinkRoundTrip(t *testing.T) {
	repo := newMockAttachmentRepo()
	draftRequest(repo, "investor-1")
	svc := newTestAttachmentService(t, repo)

	uploaded, err := svc.Upload(context.Background(), "req-1", "investor-1", false,
		"statement.pdf", "application/pdf", 23, strings.NewReader("%PDF-1.4 fake statement"))
	require.NoError(t, err)

	link, err := svc.DownloadLink(context.Background(), uploaded.ID, "investor-1", false)
	require.NoError(t, err)
	assert.True(t, link.ExpiresAt.After(time.Now()))

	attachment, file, err := svc.Resolve(context.Background(), link.Token)
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, uploaded.ID, attachment.ID)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake statement", string(data))

	// A foreign viewer cannot even learn the attachment exists.
	_, err = svc.DownloadLink(context.Background(), uploaded.ID, "investor-2", false)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestResolveRejectsTamperedToken(t *testing.T) {
	repo := newMockAttachmentRepo()
	draftRequest(repo, "investor-1")
	svc := newTestAttachmentService(t, repo)

	_, _, err := svc.Resolve(context.Background(), "not-a-real-token")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
