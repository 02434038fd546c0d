package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/storage"
)

type attachmentStore interface {
	GetByID(ctx context.Context, id string) (*models.InvestorRequest, error)
	CreateAttachment(ctx context.Context, attachment *models.Attachment) error
	GetAttachment(ctx context.Context, id string) (*models.Attachment, error)
	ListAttachments(ctx context.Context, requestID string) ([]models.Attachment, error)
}

// AttachmentConfig bounds uploads.
type AttachmentConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// AttachmentService stores request files and issues signed download links.
type AttachmentService struct {
	repo    attachmentStore
	files   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	config  AttachmentConfig
	allowed map[string]struct{}
}

// NewAttachmentService constructs the service.
func NewAttachmentService(repo attachmentStore, files *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg AttachmentConfig) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 << 20
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mime := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(mime)] = struct{}{}
	}
	return &AttachmentService{repo: repo, files: files, signer: signer, logger: logger, config: cfg, allowed: allowed}
}

// Upload stores a file against a draft or pending_info request owned by the
// investor. Staff may attach to any non-terminal request.
func (s *AttachmentService) Upload(ctx context.Context, requestID, uploaderID string, staff bool, fileName, contentType string, size int64, r io.Reader) (*models.Attachment, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRequestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if !staff && req.UserID != uploaderID {
		return nil, appErrors.ErrRequestNotFound
	}
	if req.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cannot attach files to a closed request")
	}
	if !staff && req.Status != models.StatusDraft && req.Status != models.StatusPendingInfo {
		return nil, appErrors.Clone(appErrors.ErrConflict, "files can only be attached while the request is editable")
	}

	if size > s.config.MaxFileSizeBytes {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, []appErrors.FieldError{
			{Field: "file", Message: fmt.Sprintf("file exceeds the %d byte limit", s.config.MaxFileSizeBytes)},
		})
	}
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[strings.ToLower(contentType)]; !ok {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, []appErrors.FieldError{
				{Field: "file", Message: "unsupported file type " + contentType},
			})
		}
	}

	storedName := fmt.Sprintf("%s/%s%s", requestID, uuid.NewString(), filepath.Ext(fileName))
	relPath, err := s.files.SaveStream(storedName, io.LimitReader(r, s.config.MaxFileSizeBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	attachment := &models.Attachment{
		RequestID:   requestID,
		FileName:    fileName,
		StoragePath: relPath,
		ContentType: contentType,
		SizeBytes:   size,
		UploadedBy:  uploaderID,
	}
	if err := s.repo.CreateAttachment(ctx, attachment); err != nil {
		if cleanupErr := s.files.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", relPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attachment")
	}

	s.logger.Info("attachment uploaded",
		zap.String("request_id", requestID),
		zap.String("attachment_id", attachment.ID),
		zap.Int64("size_bytes", size))
	return attachment, nil
}

// SignedLink describes a time-limited download link.
type SignedLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DownloadLink issues a signed token for an attachment the viewer may see.
func (s *AttachmentService) DownloadLink(ctx context.Context, attachmentID, viewerID string, staff bool) (*SignedLink, error) {
	attachment, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachment")
	}
	req, err := s.repo.GetByID(ctx, attachment.RequestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRequestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if !staff && req.UserID != viewerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}

	token, expiresAt, err := s.signer.Generate(attachment.ID, attachment.StoragePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &SignedLink{Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve validates a signed token and opens the underlying file. The caller
// owns closing the handle.
func (s *AttachmentService) Resolve(ctx context.Context, token string) (*models.Attachment, io.ReadCloser, error) {
	attachmentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	attachment, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	if attachment.StoragePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download token does not match attachment")
	}
	file, err := s.files.Open(attachment.StoragePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}
	return attachment, file, nil
}
