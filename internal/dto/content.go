package dto

import "time"

// ProjectInput creates or updates a project.
type ProjectInput struct {
	TitleAr       string  `json:"title_ar" validate:"required"`
	TitleEn       string  `json:"title_en" validate:"required"`
	DescriptionAr string  `json:"description_ar"`
	DescriptionEn string  `json:"description_en"`
	ImagePath     *string `json:"image_path,omitempty"`
	DisplayOrder  int     `json:"display_order"`
	Published     bool    `json:"published"`
}

// HomepageSectionInput creates or updates a homepage section.
type HomepageSectionInput struct {
	Type         string `json:"type" validate:"required"`
	TitleAr      string `json:"title_ar" validate:"required"`
	TitleEn      string `json:"title_en" validate:"required"`
	BodyAr       string `json:"body_ar"`
	BodyEn       string `json:"body_en"`
	DisplayOrder int    `json:"display_order"`
}

// NewsArticleInput creates or updates a news article. A nil PublishedAt
// keeps the article as an unpublished draft.
type NewsArticleInput struct {
	TitleAr     string     `json:"title_ar" validate:"required"`
	TitleEn     string     `json:"title_en" validate:"required"`
	BodyAr      string     `json:"body_ar"`
	BodyEn      string     `json:"body_en"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}
