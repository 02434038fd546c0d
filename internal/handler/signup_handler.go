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

// SignupHandler serves the public signup form and its back-office review.
type SignupHandler struct {
	signups    *service.SignupService
	dashboards *service.DashboardService
}

// NewSignupHandler constructs SignupHandler.
func NewSignupHandler(signups *service.SignupService, dashboards *service.DashboardService) *SignupHandler {
	return &SignupHandler{signups: signups, dashboards: dashboards}
}

// Create godoc
// @Summary Submit a public account-creation request
// @Tags Signups
// @Accept json
// @Produce json
// @Param payload body dto.CreateSignupInput true "Signup payload"
// @Success 201 {object} response.Envelope
// @Router /signups [post]
func (h *SignupHandler) Create(c *gin.Context) {
	var input dto.CreateSignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}

	signup, err := h.signups.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, signup)
}

// List godoc
// @Summary List signup requests for review
// @Tags Admin
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/signups [get]
func (h *SignupHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	signups, total, err := h.signups.List(c.Request.Context(), models.SignupStatus(c.Query("status")), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, signups, &models.Pagination{
		Page:       page,
		PageSize:   limit,
		TotalCount: total,
	})
}

// Review godoc
// @Summary Approve or reject a pending signup
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Signup ID"
// @Param payload body dto.ReviewSignupInput true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /admin/signups/{id}/review [post]
func (h *SignupHandler) Review(c *gin.Context) {
	var input dto.ReviewSignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	claims := claimsFromContext(c)
	signup, err := h.signups.Review(c.Request.Context(), c.Param("id"), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context(), "")
	response.JSON(c, http.StatusOK, signup, nil)
}
