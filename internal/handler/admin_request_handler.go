package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/service"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/response"
)

// AdminRequestHandler exposes the back-office review endpoints.
type AdminRequestHandler struct {
	requests   *service.RequestService
	dashboards *service.DashboardService
}

// NewAdminRequestHandler constructs AdminRequestHandler.
func NewAdminRequestHandler(requests *service.RequestService, dashboards *service.DashboardService) *AdminRequestHandler {
	return &AdminRequestHandler{requests: requests, dashboards: dashboards}
}

// List godoc
// @Summary List requests across all investors
// @Tags Admin
// @Produce json
// @Param status query string false "Comma-separated statuses"
// @Param type query string false "Request type"
// @Param search query string false "Search by request number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/requests [get]
func (h *AdminRequestHandler) List(c *gin.Context) {
	query := parseRequestQuery(c)

	requests, total, err := h.requests.List(c.Request.Context(), "", query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, &models.Pagination{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	})
}

// Decide godoc
// @Summary Apply a review decision to a request
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecideRequestInput true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /admin/requests/{id}/decide [post]
func (h *AdminRequestHandler) Decide(c *gin.Context) {
	var input dto.DecideRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	claims := claimsFromContext(c)
	req, err := h.requests.Decide(c.Request.Context(), c.Param("id"), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context(), req.UserID)
	response.JSON(c, http.StatusOK, req, nil)
}

// MarkSettling godoc
// @Summary Start settlement on an approved request
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /admin/requests/{id}/settle [post]
func (h *AdminRequestHandler) MarkSettling(c *gin.Context) {
	claims := claimsFromContext(c)
	req, err := h.requests.MarkSettling(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context(), req.UserID)
	response.JSON(c, http.StatusOK, req, nil)
}

// MarkCompleted godoc
// @Summary Complete settlement on a request
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /admin/requests/{id}/complete [post]
func (h *AdminRequestHandler) MarkCompleted(c *gin.Context) {
	claims := claimsFromContext(c)
	req, err := h.requests.MarkCompleted(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context(), req.UserID)
	response.JSON(c, http.StatusOK, req, nil)
}
