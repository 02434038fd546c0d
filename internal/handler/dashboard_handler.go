package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakurah/investors-portal-api/internal/service"
	"github.com/bakurah/investors-portal-api/pkg/response"
)

// DashboardHandler serves the overview panels.
type DashboardHandler struct {
	dashboards *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboards *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Investor godoc
// @Summary Investor dashboard overview
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Investor(c *gin.Context) {
	claims := claimsFromContext(c)
	overview, err := h.dashboards.InvestorOverview(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Admin godoc
// @Summary Back-office dashboard overview
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	overview, err := h.dashboards.AdminOverview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
