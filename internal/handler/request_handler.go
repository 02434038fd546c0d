package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/service"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/response"
)

// RequestHandler exposes the investor-facing request endpoints.
type RequestHandler struct {
	requests   *service.RequestService
	dashboards *service.DashboardService
}

// NewRequestHandler constructs RequestHandler.
func NewRequestHandler(requests *service.RequestService, dashboards *service.DashboardService) *RequestHandler {
	return &RequestHandler{requests: requests, dashboards: dashboards}
}

func parseRequestQuery(c *gin.Context) dto.RequestQuery {
	var query dto.RequestQuery
	if statuses := c.Query("status"); statuses != "" {
		for _, status := range strings.Split(statuses, ",") {
			query.Statuses = append(query.Statuses, models.RequestStatus(strings.TrimSpace(status)))
		}
	}
	query.Type = models.RequestType(c.Query("type"))
	query.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PageSize = size
	}
	return query
}

// List godoc
// @Summary List own requests
// @Tags Requests
// @Produce json
// @Param status query string false "Comma-separated statuses"
// @Param type query string false "Request type"
// @Param search query string false "Search by request number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	query := parseRequestQuery(c)

	requests, total, err := h.requests.List(c.Request.Context(), claims.UserID, query)
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

// Get godoc
// @Summary Get request detail with attachments and history
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	detail, err := h.requests.Get(c.Request.Context(), c.Param("id"), claims.UserID, isStaff(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Open a new draft request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestInput true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var input dto.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	claims := claimsFromContext(c)
	req, err := h.requests.Create(c.Request.Context(), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

// Update godoc
// @Summary Edit a draft request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateDraftInput true "Draft payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [put]
func (h *RequestHandler) Update(c *gin.Context) {
	var input dto.UpdateDraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
		return
	}

	claims := claimsFromContext(c)
	req, err := h.requests.UpdateDraft(c.Request.Context(), c.Param("id"), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Submit godoc
// @Summary Submit a draft for review
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/submit [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	req, err := h.requests.Submit(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context(), claims.UserID)
	response.JSON(c, http.StatusOK, req, nil)
}

// ProvideInfo godoc
// @Summary Answer a pending-info request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ProvideInfoInput true "Info payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/provide-info [post]
func (h *RequestHandler) ProvideInfo(c *gin.Context) {
	var input dto.ProvideInfoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid info payload"))
		return
	}

	claims := claimsFromContext(c)
	req, err := h.requests.ProvideInfo(c.Request.Context(), c.Param("id"), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context(), claims.UserID)
	response.JSON(c, http.StatusOK, req, nil)
}

// Events godoc
// @Summary Request status history
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/events [get]
func (h *RequestHandler) Events(c *gin.Context) {
	claims := claimsFromContext(c)
	events, err := h.requests.ListEvents(c.Request.Context(), c.Param("id"), claims.UserID, isStaff(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
