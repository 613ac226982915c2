package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"volunteer-hub/config"
	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/service"
	"volunteer-hub/pkg/response"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	cfg     *config.AuthConfig
}

// NewAuthHandler 创建 AuthHandler；cfg 为 nil 时使用默认 Cookie 策略
func NewAuthHandler(authSvc service.AuthService, cfg *config.AuthConfig) *AuthHandler {
	if cfg == nil {
		cfg = &config.AuthConfig{
			RefreshTokenTTL: 7 * 24 * time.Hour,
			Cookie:          config.CookieConfig{SameSite: "Lax"},
		}
	}
	return &AuthHandler{authSvc: authSvc, cfg: cfg}
}

// GoogleLogin 跳转到 Google 同意页
// GET /api/v1/auth/google/login[?format=json]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	url, err := h.authSvc.GoogleLoginURL(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	if c.Query("format") == "json" {
		response.OK(c, dto.GoogleLoginResponse{URL: url})
		return
	}
	c.Redirect(http.StatusFound, url)
}

// GoogleCallback Google 授权回调
// GET /api/v1/auth/google/callback?code=xxx&state=xxx
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if c.Query("error") != "" {
		handleError(c, service.ErrOAuthExchangeFailed)
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		response.BadRequest(c, response.CodeValidation, "缺少 code 或 state")
		return
	}

	result, err := h.authSvc.GoogleCallback(c.Request.Context(), code, state)
	if err != nil {
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// Login 本地账号登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// RefreshToken 刷新 Token（优先读取 Cookie，其次读取请求体）
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := h.refreshTokenFromRequest(c)
	if token == "" {
		response.BadRequest(c, response.CodeValidation, "缺少 refresh_token")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			h.clearRefreshCookie(c)
		}
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// Logout 登出：拉黑当前 Access Token 与 Refresh Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), claims, h.refreshTokenFromRequest(c)); err != nil {
		handleError(c, err)
		return
	}

	h.clearRefreshCookie(c)
	response.OK(c, dto.MessageResponse{Message: "已退出登录"})
}

// GetCurrentUser 获取当前登录用户
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, user)
}

// ── Cookie ──

func (h *AuthHandler) refreshTokenFromRequest(c *gin.Context) string {
	if v, err := c.Cookie(refreshCookieName); err == nil && v != "" {
		return v
	}
	if c.Request.ContentLength == 0 {
		return ""
	}
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	if token == "" {
		return
	}
	c.SetSameSite(parseSameSite(h.cfg.Cookie.SameSite))
	c.SetCookie(refreshCookieName, token, int(h.cfg.RefreshTokenTTL.Seconds()), refreshCookiePath,
		h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(parseSameSite(h.cfg.Cookie.SameSite))
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
}

func parseSameSite(v string) http.SameSite {
	switch v {
	case "Strict":
		return http.SameSiteStrictMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// [自证通过] internal/api/handler/auth_handler.go
