package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"volunteer-hub/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportParticipants 导出参与者名单
// GET /api/v1/activities/:id/participants/export
func (h *ExportHandler) ExportParticipants(c *gin.Context) {
	activityID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportParticipants(c.Request.Context(), activityID)
	if err != nil {
		handleError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ExportCalendar 导出活动日历事件
// GET /api/v1/activities/:id/calendar
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	activityID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	data, filename, err := h.exportSvc.ExportActivityCalendar(c.Request.Context(), activityID)
	if err != nil {
		handleError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeICS, data)
}

func writeAttachment(c *gin.Context, filename, contentType string, data []byte) {
	// 设置下载响应头
	encodedFilename := url.PathEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, data)
}
