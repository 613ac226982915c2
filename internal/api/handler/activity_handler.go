package handler

import (
	"github.com/gin-gonic/gin"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/service"
	"volunteer-hub/pkg/response"
)

// ActivityHandler 活动模块 HTTP 处理器
type ActivityHandler struct {
	activitySvc service.ActivityService
	regSvc      service.RegistrationService
}

// NewActivityHandler 创建 ActivityHandler
func NewActivityHandler(activitySvc service.ActivityService, regSvc service.RegistrationService) *ActivityHandler {
	return &ActivityHandler{activitySvc: activitySvc, regSvc: regSvc}
}

// ListActivities 活动列表（按日期升序，登录时附带是否已报名）
// GET /api/v1/activities?start_date=&end_date=&active_only=
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	var req dto.ActivityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, err := h.regSvc.ListActivities(c.Request.Context(), &req, OptionalUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKList(c, list)
}

// GetActivity 活动详情
// GET /api/v1/activities/:id
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	activity, err := h.activitySvc.GetByID(c.Request.Context(), id, OptionalUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, activity)
}

// CreateActivity 创建活动（管理员）
// POST /api/v1/activities
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	activity, err := h.activitySvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, activity)
}

// UpdateActivity 全量更新活动（管理员）
// PUT /api/v1/activities/:id
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	activity, err := h.activitySvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, activity)
}

// DeleteActivity 删除活动及其全部报名（管理员）
// DELETE /api/v1/activities/:id
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.activitySvc.Delete(c.Request.Context(), id, callerID); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, dto.MessageResponse{Message: "活动已删除"})
}
