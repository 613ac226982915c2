package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"volunteer-hub/internal/service"
	pkgerrors "volunteer-hub/pkg/errors"
	"volunteer-hub/pkg/response"
	"volunteer-hub/pkg/validate"
)

// ── 业务错误码 ──
// 11xxx 认证 | 20xxx 用户 | 30xxx 活动 | 31xxx 报名 | 40xxx 通知 | 41xxx 捐赠

var errorCodes = []struct {
	err  error
	code int
}{
	{service.ErrInvalidCredentials, 11001},
	{service.ErrInvalidOAuthState, 11002},
	{service.ErrOAuthExchangeFailed, 11003},
	{service.ErrEmailNotVerified, 11004},
	{service.ErrOAuthDisabled, 11005},
	{service.ErrInvalidRefreshToken, 11006},

	{service.ErrUserNotFound, 20001},
	{service.ErrEmailExists, 20002},
	{service.ErrExternalIDExists, 20003},
	{service.ErrUserSelfRoleChange, 20004},
	{service.ErrUserSelfDelete, 20005},
	{service.ErrInvalidRole, 20006},

	{service.ErrActivityNotFound, 30001},
	{service.ErrActivityVersionConflict, 30002},

	{service.ErrActivityInactive, 31001},
	{service.ErrAlreadyRegistered, 31002},
	{service.ErrNotRegistered, 31003},
	{service.ErrActivityFull, 31004},
	{service.ErrInvalidDateFilter, 31005},
	{service.ErrInvalidDateRange, 31006},

	{service.ErrNotificationNotFound, 40001},

	{service.ErrSectionNotFound, 41001},
	{service.ErrSectionInactive, 41002},
	{service.ErrSectionHasDonations, 41003},
}

// kindCodes 未登记的业务错误按类别兜底
var kindCodes = map[error]struct {
	status int
	code   int
}{
	pkgerrors.ErrNotFound:         {http.StatusNotFound, response.CodeNotFound},
	pkgerrors.ErrValidation:       {http.StatusBadRequest, response.CodeValidation},
	pkgerrors.ErrInvalidState:     {http.StatusBadRequest, response.CodeConflict},
	pkgerrors.ErrConflict:         {http.StatusBadRequest, response.CodeConflict},
	pkgerrors.ErrCapacityExceeded: {http.StatusBadRequest, response.CodeConflict},
	pkgerrors.ErrUnauthorized:     {http.StatusUnauthorized, response.CodeUnauthorized},
	pkgerrors.ErrForbidden:        {http.StatusForbidden, response.CodeForbidden},
	pkgerrors.ErrOptimisticLock:   {http.StatusConflict, response.CodeConflict},
}

// handleError 将 Service 错误写为统一响应
// 未归类的错误记入 c.Errors 由日志中间件输出，调用方只看到通用提示
func handleError(c *gin.Context, err error) {
	kind := pkgerrors.Kind(err)
	mapping, ok := kindCodes[kind]
	if !ok {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	code := mapping.code
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			code = e.code
			break
		}
	}

	response.Error(c, mapping.status, code, errorMessage(err, kind))
}

// errorMessage 去掉类别前缀，只保留业务描述
func errorMessage(err, kind error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, kind.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}

// handleBindError 参数绑定失败：请求体超限返回 413，其余返回 400
func handleBindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "参数校验失败", validate.Translate(err))
}
