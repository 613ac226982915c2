package handler

import (
	"github.com/gin-gonic/gin"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/service"
	"volunteer-hub/pkg/response"
)

// RegistrationHandler 报名模块 HTTP 处理器
//
// 报名 / 取消同时支持路径形式 /activities/:id/join 与请求体形式 /registrations
type RegistrationHandler struct {
	regSvc service.RegistrationService
}

// NewRegistrationHandler 创建 RegistrationHandler
func NewRegistrationHandler(regSvc service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{regSvc: regSvc}
}

// Join 报名活动
// POST /api/v1/activities/:id/join
func (h *RegistrationHandler) Join(c *gin.Context) {
	activityID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}
	h.join(c, activityID)
}

// JoinByBody 报名活动
// POST /api/v1/registrations {"activity_id": "..."}
func (h *RegistrationHandler) JoinByBody(c *gin.Context) {
	var req dto.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	h.join(c, req.ActivityID)
}

func (h *RegistrationHandler) join(c *gin.Context, activityID string) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.regSvc.Join(c.Request.Context(), userID, activityID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, result)
}

// Leave 取消报名
// DELETE /api/v1/activities/:id/join
func (h *RegistrationHandler) Leave(c *gin.Context) {
	activityID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}
	h.leave(c, activityID)
}

// LeaveByBody 取消报名
// DELETE /api/v1/registrations {"activity_id": "..."}
func (h *RegistrationHandler) LeaveByBody(c *gin.Context) {
	var req dto.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	h.leave(c, req.ActivityID)
}

func (h *RegistrationHandler) leave(c *gin.Context, activityID string) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.regSvc.Leave(c.Request.Context(), userID, activityID); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, dto.MessageResponse{Message: "已取消报名"})
}

// ListParticipants 活动参与者（管理员）
// GET /api/v1/activities/:id/participants
func (h *RegistrationHandler) ListParticipants(c *gin.Context) {
	activityID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	list, err := h.regSvc.ListParticipants(c.Request.Context(), activityID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKList(c, list)
}

// ListMyActivities 我报名的活动
// GET /api/v1/activities/me
func (h *RegistrationHandler) ListMyActivities(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.regSvc.ListMyActivities(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKList(c, list)
}
