package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bakurah/investors-portal-api/internal/models"
)

// ContentRepository persists CMS content shown on the public site.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs the repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const projectColumns = "id, title_ar, title_en, description_ar, description_en, image_path, display_order, published, created_at, updated_at"

// CreateProject inserts a project.
func (r *ContentRepository) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	const query = `INSERT INTO projects (id, title_ar, title_en, description_ar, description_en, image_path, display_order, published, created_at, updated_at)
	VALUES (:id, :title_ar, :title_en, :description_ar, :description_en, :image_path, :display_order, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// UpdateProject overwrites project fields.
func (r *ContentRepository) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE projects SET title_ar = :title_ar, title_en = :title_en,
	description_ar = :description_ar, description_en = :description_en, image_path = :image_path,
	display_order = :display_order, published = :published, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// DeleteProject removes a project.
func (r *ContentRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	return err
}

// GetProject fetches one project.
func (r *ContentRepository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM projects WHERE id = $1 LIMIT 1", projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects returns projects in display order. publishedOnly restricts the
// list to the public view.
func (r *ContentRepository) ListProjects(ctx context.Context, publishedOnly bool) ([]models.Project, error) {
	condition := ""
	if publishedOnly {
		condition = " WHERE published = TRUE"
	}
	query := fmt.Sprintf("SELECT %s FROM projects%s ORDER BY display_order ASC, created_at DESC", projectColumns, condition)
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

const sectionColumns = "id, type, title_ar, title_en, body_ar, body_en, display_order, created_at, updated_at"

// UpsertHomepageSection creates or replaces the section for its type. The
// type column is unique, so one block per section kind is an invariant the
// database enforces.
func (r *ContentRepository) UpsertHomepageSection(ctx context.Context, section *models.HomepageSection) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO homepage_sections (id, type, title_ar, title_en, body_ar, body_en, display_order, created_at, updated_at)
	VALUES (:id, :type, :title_ar, :title_en, :body_ar, :body_en, :display_order, :created_at, :updated_at)
	ON CONFLICT (type) DO UPDATE SET
		title_ar = EXCLUDED.title_ar, title_en = EXCLUDED.title_en,
		body_ar = EXCLUDED.body_ar, body_en = EXCLUDED.body_en,
		display_order = EXCLUDED.display_order, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("upsert homepage section: %w", err)
	}
	return nil
}

// ListHomepageSections returns every section in display order.
func (r *ContentRepository) ListHomepageSections(ctx context.Context) ([]models.HomepageSection, error) {
	query := fmt.Sprintf("SELECT %s FROM homepage_sections ORDER BY display_order ASC", sectionColumns)
	var sections []models.HomepageSection
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list homepage sections: %w", err)
	}
	return sections, nil
}

const newsColumns = "id, title_ar, title_en, body_ar, body_en, published_at, created_at, updated_at"

// CreateNews inserts a news article.
func (r *ContentRepository) CreateNews(ctx context.Context, article *models.NewsArticle) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now
	const query = `INSERT INTO news_articles (id, title_ar, title_en, body_ar, body_en, published_at, created_at, updated_at)
	VALUES (:id, :title_ar, :title_en, :body_ar, :body_en, :published_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, article); err != nil {
		return fmt.Errorf("create news article: %w", err)
	}
	return nil
}

// UpdateNews overwrites article fields.
func (r *ContentRepository) UpdateNews(ctx context.Context, article *models.NewsArticle) error {
	article.UpdatedAt = time.Now().UTC()
	const query = `UPDATE news_articles SET title_ar = :title_ar, title_en = :title_en,
	body_ar = :body_ar, body_en = :body_en, published_at = :published_at, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, article); err != nil {
		return fmt.Errorf("update news article: %w", err)
	}
	return nil
}

// DeleteNews removes an article.
func (r *ContentRepository) DeleteNews(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM news_articles WHERE id = $1", id)
	return err
}

// GetNews fetches one article.
func (r *ContentRepository) GetNews(ctx context.Context, id string) (*models.NewsArticle, error) {
	query := fmt.Sprintf("SELECT %s FROM news_articles WHERE id = $1 LIMIT 1", newsColumns)
	var article models.NewsArticle
	if err := r.db.GetContext(ctx, &article, query, id); err != nil {
		return nil, err
	}
	return &article, nil
}

// ListNews returns articles, newest first. publishedOnly restricts the list
// to articles with a publication date in the past.
func (r *ContentRepository) ListNews(ctx context.Context, publishedOnly bool, page, pageSize int) ([]models.NewsArticle, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	condition := "1=1"
	if publishedOnly {
		condition = "published_at IS NOT NULL AND published_at <= NOW()"
	}
	query := fmt.Sprintf("SELECT %s FROM news_articles WHERE %s ORDER BY COALESCE(published_at, created_at) DESC LIMIT %d OFFSET %d",
		newsColumns, condition, pageSize, (page-1)*pageSize)
	var articles []models.NewsArticle
	if err := r.db.SelectContext(ctx, &articles, query); err != nil {
		return nil, 0, fmt.Errorf("list news articles: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM news_articles WHERE %s", condition)); err != nil {
		return nil, 0, fmt.Errorf("count news articles: %w", err)
	}
	return articles, total, nil
}
