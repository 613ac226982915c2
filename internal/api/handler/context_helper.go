package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"volunteer-hub/internal/api/middleware"
	"volunteer-hub/pkg/jwt"
	"volunteer-hub/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUserID)
	if s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxRole)
	if s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// OptionalUserID 可选认证路由使用，匿名访问返回空串
func OptionalUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}

// MustGetClaims 提取当前 Access Token 的声明（登出时用于拉黑 JTI）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.CtxClaims)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return nil, false
	}
	return claims, true
}

// MustGetUUIDParam 读取并校验路径中的 UUID 参数，非法时写入 400
func MustGetUUIDParam(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, response.CodeValidation, name+" 格式无效")
		return "", false
	}
	return id.String(), true
}
