package models

import "time"

// Project is an investable project shown on the public site.
type Project struct {
	ID            string    `db:"id" json:"id"`
	TitleAr       string    `db:"title_ar" json:"title_ar"`
	TitleEn       string    `db:"title_en" json:"title_en"`
	DescriptionAr string    `db:"description_ar" json:"description_ar"`
	DescriptionEn string    `db:"description_en" json:"description_en"`
	ImagePath     *string   `db:"image_path" json:"image_path,omitempty"`
	DisplayOrder  int       `db:"display_order" json:"display_order"`
	Published     bool      `db:"published" json:"published"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// HomepageSection is a CMS block; the type column is unique per section.
type HomepageSection struct {
	ID           string    `db:"id" json:"id"`
	Type         string    `db:"type" json:"type"`
	TitleAr      string    `db:"title_ar" json:"title_ar"`
	TitleEn      string    `db:"title_en" json:"title_en"`
	BodyAr       string    `db:"body_ar" json:"body_ar"`
	BodyEn       string    `db:"body_en" json:"body_en"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// NewsArticle is a bilingual news entry managed by admins.
type NewsArticle struct {
	ID          string     `db:"id" json:"id"`
	TitleAr     string     `db:"title_ar" json:"title_ar"`
	TitleEn     string     `db:"title_en" json:"title_en"`
	BodyAr      string     `db:"body_ar" json:"body_ar"`
	BodyEn      string     `db:"body_en" json:"body_en"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
