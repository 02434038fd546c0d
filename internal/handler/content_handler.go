package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/service"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/response"
)

// ContentHandler serves the public CMS content and its admin management.
type ContentHandler struct {
	content *service.ContentService
}

// NewContentHandler constructs ContentHandler.
func NewContentHandler(content *service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// PublicProjects godoc
// @Summary Published projects for the public site
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /content/projects [get]
func (h *ContentHandler) PublicProjects(c *gin.Context) {
	projects, err := h.content.ListProjects(c.Request.Context(), true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, nil)
}

// PublicHomepage godoc
// @Summary Homepage sections for the public site
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /content/homepage [get]
func (h *ContentHandler) PublicHomepage(c *gin.Context) {
	sections, err := h.content.ListHomepageSections(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// PublicNews godoc
// @Summary Published news for the public site
// @Tags Content
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /content/news [get]
func (h *ContentHandler) PublicNews(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	articles, total, err := h.content.ListNews(c.Request.Context(), true, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, articles, &models.Pagination{
		Page:       page,
		PageSize:   limit,
		TotalCount: total,
	})
}

// ListProjects godoc
// @Summary All projects including unpublished
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/content/projects [get]
func (h *ContentHandler) ListProjects(c *gin.Context) {
	projects, err := h.content.ListProjects(c.Request.Context(), false)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, nil)
}

// CreateProject godoc
// @Summary Create a project
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.ProjectInput true "Project payload"
// @Success 201 {object} response.Envelope
// @Router /admin/content/projects [post]
func (h *ContentHandler) CreateProject(c *gin.Context) {
	var input dto.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}

	claims := claimsFromContext(c)
	project, err := h.content.CreateProject(c.Request.Context(), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// UpdateProject godoc
// @Summary Update a project
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.ProjectInput true "Project payload"
// @Success 200 {object} response.Envelope
// @Router /admin/content/projects/{id} [put]
func (h *ContentHandler) UpdateProject(c *gin.Context) {
	var input dto.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}

	claims := claimsFromContext(c)
	project, err := h.content.UpdateProject(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// DeleteProject godoc
// @Summary Delete a project
// @Tags Admin
// @Param id path string true "Project ID"
// @Success 204
// @Router /admin/content/projects/{id} [delete]
func (h *ContentHandler) DeleteProject(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.content.DeleteProject(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpsertHomepageSection godoc
// @Summary Create or replace a homepage section by type
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.HomepageSectionInput true "Section payload"
// @Success 200 {object} response.Envelope
// @Router /admin/content/homepage [put]
func (h *ContentHandler) UpsertHomepageSection(c *gin.Context) {
	var input dto.HomepageSectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}

	claims := claimsFromContext(c)
	section, err := h.content.UpsertHomepageSection(c.Request.Context(), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// ListNews godoc
// @Summary All news including drafts
// @Tags Admin
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/content/news [get]
func (h *ContentHandler) ListNews(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	articles, total, err := h.content.ListNews(c.Request.Context(), false, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, articles, &models.Pagination{
		Page:       page,
		PageSize:   limit,
		TotalCount: total,
	})
}

// CreateNews godoc
// @Summary Create a news article
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.NewsArticleInput true "Article payload"
// @Success 201 {object} response.Envelope
// @Router /admin/content/news [post]
func (h *ContentHandler) CreateNews(c *gin.Context) {
	var input dto.NewsArticleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid article payload"))
		return
	}

	claims := claimsFromContext(c)
	article, err := h.content.CreateNews(c.Request.Context(), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, article)
}

// UpdateNews godoc
// @Summary Update a news article
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Article ID"
// @Param payload body dto.NewsArticleInput true "Article payload"
// @Success 200 {object} response.Envelope
// @Router /admin/content/news/{id} [put]
func (h *ContentHandler) UpdateNews(c *gin.Context) {
	var input dto.NewsArticleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid article payload"))
		return
	}

	claims := claimsFromContext(c)
	article, err := h.content.UpdateNews(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, article, nil)
}

// DeleteNews godoc
// @Summary Delete a news article
// @Tags Admin
// @Param id path string true "Article ID"
// @Success 204
// @Router /admin/content/news/{id} [delete]
func (h *ContentHandler) DeleteNews(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.content.DeleteNews(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
