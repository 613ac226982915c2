package handler

import (
	"github.com/gin-gonic/gin"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/service"
	"volunteer-hub/pkg/response"
)

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notifSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notifSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifSvc: notifSvc}
}

// ListNotifications 我的通知（个人 + 全局，倒序）
// GET /api/v1/notifications?unread_only=&page=&page_size=
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.notifSvc.ListForUser(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// UnreadCount 未读数量
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	n, err := h.notifSvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, dto.UnreadCountResponse{Count: n})
}

// MarkRead 标记单条已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), userID, id); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, dto.MessageResponse{Message: "已标记为已读"})
}

// MarkAllRead 全部标记已读
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	n, err := h.notifSvc.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, dto.UnreadCountResponse{Count: n})
}

// CreateNotification 发布通知（管理员；user_id 为空时为全局通知）
// POST /api/v1/notifications
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	n, err := h.notifSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, n)
}

// DeleteNotification 删除通知（管理员）
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notifSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, dto.MessageResponse{Message: "通知已删除"})
}
