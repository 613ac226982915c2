package dto

// ── 认证模块 DTO ──

// LoginRequest 本地账号登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"` // 非 Cookie 模式时使用
}

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	IsNewUser    bool         `json:"is_new_user"`
	User         UserResponse `json:"user"`
}

// GoogleLoginResponse 第三方登录跳转地址
type GoogleLoginResponse struct {
	URL string `json:"url"`
}
