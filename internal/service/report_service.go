package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/export"
	"github.com/bakurah/investors-portal-api/pkg/storage"
)

// ReportFormat selects the rendered file type.
type ReportFormat string

const (
	FormatCSV  ReportFormat = "csv"
	FormatJSON ReportFormat = "json"
	FormatPDF  ReportFormat = "pdf"
)

type reportRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.InvestorRequest, error)
	ListEvents(ctx context.Context, requestID string) ([]models.RequestEvent, error)
	ListForExport(ctx context.Context, filter models.RequestFilter) ([]models.RequestExportRow, error)
}

type reportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderStatement(title string, fields []export.KeyValue, history export.Dataset) ([]byte, error)
}

// ReportConfig tunes report generation.
type ReportConfig struct {
	ResultTTL time.Duration
}

// ReportResult captures generated file metadata.
type ReportResult struct {
	RelativePath string       `json:"relative_path"`
	Token        string       `json:"token"`
	Format       ReportFormat `json:"format"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// ReportService renders request exports and per-request statements.
type ReportService struct {
	requests reportRequestStore
	files    reportFileStorage
	signer   *storage.SignedURLSigner
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	cfg      ReportConfig
}

// NewReportService constructs the service.
func NewReportService(requests reportRequestStore, files reportFileStorage, signer *storage.SignedURLSigner, cfg ReportConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		requests: requests,
		files:    files,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
		cfg:      cfg,
	}
}

// GenerateRequestExport renders a filtered request listing as CSV or PDF and
// returns a signed download token.
func (s *ReportService) GenerateRequestExport(ctx context.Context, filter models.RequestFilter, format ReportFormat) (*ReportResult, error) {
	rows, err := s.requests.ListForExport(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export rows")
	}

	dataset := export.Dataset{
		Headers: []string{"Request Number", "Investor", "Email", "Type", "Amount", "Currency", "Status", "Created"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Request Number": row.RequestNumber,
			"Investor":       row.UserName,
			"Email":          row.UserEmail,
			"Type":           string(row.Type),
			"Amount":         formatAmount(row.Amount),
			"Currency":       deref(row.Currency),
			"Status":         string(row.Status),
			"Created":        row.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	var payload []byte
	switch format {
	case FormatCSV:
		payload, err = s.csv.Render(dataset)
	case FormatJSON:
		payload, err = json.MarshalIndent(rows, "", "  ")
	case FormatPDF:
		payload, err = s.pdf.Render(dataset, "Investor Requests")
	default:
		return nil, appErrors.WithDetails(appErrors.ErrValidation, []appErrors.FieldError{
			{Field: "format", Message: "format must be csv, json or pdf"},
		})
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("requests_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	return s.store(filename, payload, format, len(rows))
}

// GenerateStatement renders a single request's statement PDF with its event
// history.
func (s *ReportService) GenerateStatement(ctx context.Context, requestID, viewerID string, staff bool) (*ReportResult, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRequestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if !staff && req.UserID != viewerID {
		return nil, appErrors.ErrRequestNotFound
	}

	events, err := s.requests.ListEvents(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request events")
	}

	fields := []export.KeyValue{
		{Label: "Request Number", Value: req.RequestNumber},
		{Label: "Type", Value: string(req.Type)},
		{Label: "Status", Value: string(req.Status)},
		{Label: "Amount", Value: formatAmount(req.Amount) + " " + deref(req.Currency)},
		{Label: "Created", Value: req.CreatedAt.Format("2006-01-02 15:04")},
	}

	history := export.Dataset{Headers: []string{"From", "To", "Note", "At"}}
	for _, event := range events {
		from := ""
		if event.FromStatus != nil {
			from = string(*event.FromStatus)
		}
		history.Rows = append(history.Rows, map[string]string{
			"From": from,
			"To":   string(event.ToStatus),
			"Note": deref(event.Note),
			"At":   event.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	payload, err := s.pdf.RenderStatement("Request Statement "+req.RequestNumber, fields, history)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}

	filename := fmt.Sprintf("statement_%s.pdf", sanitizeFilename(req.RequestNumber))
	return s.store(filename, payload, FormatPDF, len(events))
}

func (s *ReportService) store(filename string, payload []byte, format ReportFormat, rows int) (*ReportResult, error) {
	relPath, err := s.files.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}
	token, expiresAt, err := s.signer.Generate(filename, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report link")
	}
	s.logger.Info("report generated",
		zap.String("file", relPath),
		zap.String("format", string(format)),
		zap.Int("rows", rows))
	return &ReportResult{RelativePath: relPath, Token: token, Format: format, ExpiresAt: expiresAt}, nil
}

// Open resolves a signed token to the stored file.
func (s *ReportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired report token")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report file not found")
	}
	return file, contentTypeFor(relPath), nil
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".csv"):
		return "text/csv"
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	case strings.HasSuffix(path, ".pdf"):
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Cleanup removes report files older than the configured TTL. Runs on cron.
func (s *ReportService) Cleanup() error {
	removed, err := s.files.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return fmt.Errorf("cleanup reports: %w", err)
	}
	if len(removed) > 0 {
		s.logger.Info("expired reports removed", zap.Int("count", len(removed)))
	}
	return nil
}

func formatAmount(amount *float64) string {
	if amount == nil {
		return ""
	}
	return strconv.FormatFloat(*amount, 'f', 2, 64)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "..", "_")
	return replacer.Replace(raw)
}
