package handler

import (
	"github.com/gin-gonic/gin"

	"volunteer-hub/internal/service"
	"volunteer-hub/pkg/response"
)

// StatsHandler 统计模块 HTTP 处理器
type StatsHandler struct {
	statsSvc service.StatsService
}

// NewStatsHandler 创建 StatsHandler
func NewStatsHandler(statsSvc service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

// Overview 管理端统计概览
// GET /api/v1/stats/overview
func (h *StatsHandler) Overview(c *gin.Context) {
	result, err := h.statsSvc.Overview(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, result)
}
