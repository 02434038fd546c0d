package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/service"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/response"
)

// ReportHandler serves CSV/PDF exports and request statements.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Export godoc
// @Summary Generate a filtered request export
// @Tags Reports
// @Produce json
// @Param format query string true "csv, json or pdf"
// @Param status query string false "Comma-separated statuses"
// @Param type query string false "Request type"
// @Success 200 {object} response.Envelope
// @Router /admin/reports/requests [get]
func (h *ReportHandler) Export(c *gin.Context) {
	format := service.ReportFormat(c.DefaultQuery("format", "csv"))

	var filter models.RequestFilter
	if statuses := c.Query("status"); statuses != "" {
		for _, status := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, models.RequestStatus(strings.TrimSpace(status)))
		}
	}
	filter.Type = models.RequestType(c.Query("type"))

	result, err := h.reports.GenerateRequestExport(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Statement godoc
// @Summary Generate a PDF statement for one request
// @Tags Reports
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/statement [get]
func (h *ReportHandler) Statement(c *gin.Context) {
	claims := claimsFromContext(c)
	result, err := h.reports.GenerateStatement(c.Request.Context(), c.Param("id"), claims.UserID, isStaff(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Stream a generated report for a valid signed token
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, contentType, err := h.reports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat report"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+info.Name()+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
