package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakurah/investors-portal-api/internal/service"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/response"
)

// AttachmentHandler serves request file uploads and signed downloads.
type AttachmentHandler struct {
	attachments *service.AttachmentService
}

// NewAttachmentHandler constructs AttachmentHandler.
func NewAttachmentHandler(attachments *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// Upload godoc
// @Summary Attach a file to a request
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Request ID"
// @Param file formData file true "File to attach"
// @Success 201 {object} response.Envelope
// @Router /requests/{id}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	claims := claimsFromContext(c)
	attachment, err := h.attachments.Upload(
		c.Request.Context(),
		c.Param("id"),
		claims.UserID,
		isStaff(claims),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attachment)
}

// DownloadLink godoc
// @Summary Issue a short-lived signed download link
// @Tags Attachments
// @Produce json
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Router /attachments/{id}/link [get]
func (h *AttachmentHandler) DownloadLink(c *gin.Context) {
	claims := claimsFromContext(c)
	link, err := h.attachments.DownloadLink(c.Request.Context(), c.Param("id"), claims.UserID, isStaff(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Stream a file for a valid signed token
// @Tags Attachments
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200
// @Router /attachments/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	attachment, reader, err := h.attachments.Resolve(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+attachment.FileName+`"`)
	c.DataFromReader(http.StatusOK, attachment.SizeBytes, attachment.ContentType, reader, nil)
}
