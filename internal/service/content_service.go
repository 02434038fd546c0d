package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

type contentStore interface {
	CreateProject(ctx context.Context, project *models.Project) error
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id string) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, publishedOnly bool) ([]models.Project, error)
	UpsertHomepageSection(ctx context.Context, section *models.HomepageSection) error
	ListHomepageSections(ctx context.Context) ([]models.HomepageSection, error)
	CreateNews(ctx context.Context, article *models.NewsArticle) error
	UpdateNews(ctx context.Context, article *models.NewsArticle) error
	DeleteNews(ctx context.Context, id string) error
	GetNews(ctx context.Context, id string) (*models.NewsArticle, error)
	ListNews(ctx context.Context, publishedOnly bool, page, pageSize int) ([]models.NewsArticle, int, error)
}

type contentAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ContentService manages the bilingual CMS blocks behind the public site.
type ContentService struct {
	repo      contentStore
	audit     contentAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContentService constructs the service.
func NewContentService(repo contentStore, audit contentAuditLogger, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContentService{repo: repo, audit: audit, validator: validate, logger: logger}
}

func (s *ContentService) recordChange(ctx context.Context, actorID, resource, resourceID string) {
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionContentChange,
		Resource:   resource,
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record content audit log", zap.Error(err))
	}
}

// CreateProject adds a project.
func (s *ContentService) CreateProject(ctx context.Context, actorID string, input dto.ProjectInput) (*models.Project, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	project := &models.Project{
		TitleAr:       input.TitleAr,
		TitleEn:       input.TitleEn,
		DescriptionAr: input.DescriptionAr,
		DescriptionEn: input.DescriptionEn,
		ImagePath:     input.ImagePath,
		DisplayOrder:  input.DisplayOrder,
		Published:     input.Published,
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}
	s.recordChange(ctx, actorID, "project", project.ID)
	return project, nil
}

// UpdateProject replaces a project's fields.
func (s *ContentService) UpdateProject(ctx context.Context, actorID, projectID string, input dto.ProjectInput) (*models.Project, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	project.TitleAr = input.TitleAr
	project.TitleEn = input.TitleEn
	project.DescriptionAr = input.DescriptionAr
	project.DescriptionEn = input.DescriptionEn
	project.ImagePath = input.ImagePath
	project.DisplayOrder = input.DisplayOrder
	project.Published = input.Published
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}
	s.recordChange(ctx, actorID, "project", project.ID)
	return project, nil
}

// DeleteProject removes a project.
func (s *ContentService) DeleteProject(ctx context.Context, actorID, projectID string) error {
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete project")
	}
	s.recordChange(ctx, actorID, "project", projectID)
	return nil
}

// ListProjects returns projects; publishedOnly for the public site.
func (s *ContentService) ListProjects(ctx context.Context, publishedOnly bool) ([]models.Project, error) {
	projects, err := s.repo.ListProjects(ctx, publishedOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	return projects, nil
}

// UpsertHomepageSection creates or replaces the block for a section type.
func (s *ContentService) UpsertHomepageSection(ctx context.Context, actorID string, input dto.HomepageSectionInput) (*models.HomepageSection, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section := &models.HomepageSection{
		Type:         input.Type,
		TitleAr:      input.TitleAr,
		TitleEn:      input.TitleEn,
		BodyAr:       input.BodyAr,
		BodyEn:       input.BodyEn,
		DisplayOrder: input.DisplayOrder,
	}
	if err := s.repo.UpsertHomepageSection(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save homepage section")
	}
	s.recordChange(ctx, actorID, "homepage_section", section.Type)
	return section, nil
}

// ListHomepageSections returns the CMS blocks in display order.
func (s *ContentService) ListHomepageSections(ctx context.Context) ([]models.HomepageSection, error) {
	sections, err := s.repo.ListHomepageSections(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homepage sections")
	}
	return sections, nil
}

// CreateNews adds a news article.
func (s *ContentService) CreateNews(ctx context.Context, actorID string, input dto.NewsArticleInput) (*models.NewsArticle, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid article payload")
	}
	article := &models.NewsArticle{
		TitleAr:     input.TitleAr,
		TitleEn:     input.TitleEn,
		BodyAr:      input.BodyAr,
		BodyEn:      input.BodyEn,
		PublishedAt: input.PublishedAt,
	}
	if err := s.repo.CreateNews(ctx, article); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create article")
	}
	s.recordChange(ctx, actorID, "news_article", article.ID)
	return article, nil
}

// UpdateNews replaces a news article's fields.
func (s *ContentService) UpdateNews(ctx context.Context, actorID, articleID string, input dto.NewsArticleInput) (*models.NewsArticle, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid article payload")
	}
	article, err := s.repo.GetNews(ctx, articleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load article")
	}
	article.TitleAr = input.TitleAr
	article.TitleEn = input.TitleEn
	article.BodyAr = input.BodyAr
	article.BodyEn = input.BodyEn
	article.PublishedAt = input.PublishedAt
	if err := s.repo.UpdateNews(ctx, article); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update article")
	}
	s.recordChange(ctx, actorID, "news_article", article.ID)
	return article, nil
}

// DeleteNews removes an article.
func (s *ContentService) DeleteNews(ctx context.Context, actorID, articleID string) error {
	if err := s.repo.DeleteNews(ctx, articleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete article")
	}
	s.recordChange(ctx, actorID, "news_article", articleID)
	return nil
}

// ListNews returns articles; publishedOnly for the public site.
func (s *ContentService) ListNews(ctx context.Context, publishedOnly bool, page, pageSize int) ([]models.NewsArticle, int, error) {
	articles, total, err := s.repo.ListNews(ctx, publishedOnly, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list articles")
	}
	return articles, total, nil
}
