package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL Google OpenID Connect userinfo 端点
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	ErrExchangeFailed = errors.New("授权码换取 token 失败")
	ErrUserInfoFailed = errors.New("获取第三方用户信息失败")
)

// Identity 第三方身份提供方返回的用户身份
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Provider Google OAuth2 / OIDC 身份提供方
type Provider struct {
	cfg         *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider 创建 Google 身份提供方
// redirectURL 形如 https://example.edu/api/v1/auth/google/callback
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *Provider {
	return &Provider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: GoogleUserInfoURL,
	}
}

// WithEndpoint 替换授权与 userinfo 端点（测试或自建 OIDC 网关使用）
func (p *Provider) WithEndpoint(endpoint oauth2.Endpoint, userInfoURL string) *Provider {
	p.cfg.Endpoint = endpoint
	p.userInfoURL = userInfoURL
	return p
}

// AuthCodeURL 生成跳转到同意页的 URL
func (p *Provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange 使用授权码换取 token 并拉取用户身份
func (p *Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	client := p.cfg.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoFailed, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrUserInfoFailed, resp.StatusCode, body)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoFailed, err)
	}
	id.Email = strings.ToLower(strings.TrimSpace(id.Email))
	if id.Subject == "" || id.Email == "" {
		return nil, fmt.Errorf("%w: 缺少 sub 或 email", ErrUserInfoFailed)
	}

	return &id, nil
}
