package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"volunteer-hub/config"
	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/model"
	"volunteer-hub/internal/repository"
	pkgerrors "volunteer-hub/pkg/errors"
	"volunteer-hub/pkg/jwt"
	"volunteer-hub/pkg/oauth"
)

var (
	ErrInvalidCredentials  = fmt.Errorf("%w: 邮箱或密码错误", pkgerrors.ErrUnauthorized)
	ErrInvalidOAuthState   = fmt.Errorf("%w: 登录状态已失效，请重新登录", pkgerrors.ErrUnauthorized)
	ErrOAuthExchangeFailed = fmt.Errorf("%w: 第三方登录失败", pkgerrors.ErrUnauthorized)
	ErrEmailNotVerified    = fmt.Errorf("%w: 第三方账号邮箱未验证", pkgerrors.ErrForbidden)
	ErrOAuthDisabled       = fmt.Errorf("%w: 未启用第三方登录", pkgerrors.ErrInvalidState)
	ErrInvalidRefreshToken = fmt.Errorf("%w: 刷新令牌无效或已过期", pkgerrors.ErrUnauthorized)
)

// StateStore 一次性 OAuth state 存储（Redis 或进程内缓存）
type StateStore interface {
	SaveState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) (bool, error)
}

// TokenBlacklist JWT 黑名单
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// IdentityProvider 第三方身份提供方
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.Identity, error)
}

// AuthService 认证业务接口
type AuthService interface {
	// GoogleLoginURL 生成 state 并返回第三方同意页地址
	GoogleLoginURL(ctx context.Context) (string, error)
	// GoogleCallback 校验 state、换取身份并签发 Token 对
	GoogleCallback(ctx context.Context, code, state string) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// RefreshToken 轮换：旧 refresh token 作废并签发新 Token 对
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 将 access token 与 refresh token（可为空）加入黑名单
	Logout(ctx context.Context, accessClaims *jwt.Claims, refreshToken string) error
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	users     UserService
	jwtMgr    *jwt.Manager
	states    StateStore
	blacklist TokenBlacklist
	idp       IdentityProvider
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
// blacklist 为 nil 时登出只依赖客户端丢弃 token；idp 为 nil 时第三方登录不可用
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	users UserService,
	jwtMgr *jwt.Manager,
	states StateStore,
	blacklist TokenBlacklist,
	idp IdentityProvider,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		users:     users,
		jwtMgr:    jwtMgr,
		states:    states,
		blacklist: blacklist,
		idp:       idp,
		logger:    logger,
	}
}

// ────────────────────── Google 登录 ──────────────────────

func (s *authService) GoogleLoginURL(ctx context.Context) (string, error) {
	if s.idp == nil {
		return "", ErrOAuthDisabled
	}

	state, err := newState()
	if err != nil {
		s.logger.Error("生成 OAuth state 失败", zap.Error(err))
		return "", err
	}
	if err := s.states.SaveState(ctx, state, s.cfg.OAuth.StateTTL); err != nil {
		s.logger.Error("保存 OAuth state 失败", zap.Error(err))
		return "", err
	}
	return s.idp.AuthCodeURL(state), nil
}

func (s *authService) GoogleCallback(ctx context.Context, code, state string) (*dto.TokenResponse, error) {
	if s.idp == nil {
		return nil, ErrOAuthDisabled
	}
	if state == "" || code == "" {
		return nil, ErrInvalidOAuthState
	}

	// 1. 一次性 state 校验
	ok, err := s.states.ConsumeState(ctx, state)
	if err != nil {
		s.logger.Error("校验 OAuth state 失败", zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOAuthState
	}

	// 2. 授权码换取身份
	identity, err := s.idp.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("第三方身份换取失败", zap.Error(err))
		return nil, ErrOAuthExchangeFailed
	}
	if !identity.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	// 3. 解析本地用户：external_id → email（绑定）→ 新建
	user, isNew, err := s.resolveUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	resp.IsNewUser = isNew

	s.logger.Info("第三方登录成功",
		zap.String("user_id", user.UserID),
		zap.Bool("new_user", isNew),
	)
	return resp, nil
}

func (s *authService) resolveUser(ctx context.Context, id *oauth.Identity) (*model.User, bool, error) {
	user, err := s.users.FindByExternalID(ctx, id.Subject)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = s.users.FindByEmail(ctx, id.Email)
	if err == nil {
		linked, err := s.users.LinkExternalID(ctx, user.UserID, id.Subject)
		if err != nil {
			return nil, false, err
		}
		s.logger.Info("已绑定第三方账号", zap.String("user_id", user.UserID))
		return linked, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = strings.SplitN(id.Email, "@", 2)[0]
	}
	role := model.RoleStudent
	if s.cfg.Auth.IsAdminEmail(id.Email) {
		role = model.RoleAdmin
	}

	subject := id.Subject
	user = &model.User{
		ExternalID: &subject,
		Email:      id.Email,
		Name:       name,
		Role:       role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// ────────────────────── 本地登录 ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 仅第三方身份的账号没有本地密码
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

// ────────────────────── Token ──────────────────────

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("查询 Token 黑名单失败", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidRefreshToken
		}
	}

	// 重新加载用户，角色变更与删除即时生效
	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	s.revoke(ctx, claims)
	return resp, nil
}

func (s *authService) Logout(ctx context.Context, accessClaims *jwt.Claims, refreshToken string) error {
	if accessClaims != nil {
		s.revoke(ctx, accessClaims)
	}
	if refreshToken != "" {
		if claims, err := s.jwtMgr.ParseToken(refreshToken); err == nil && claims.TokenType == jwt.TokenTypeRefresh {
			s.revoke(ctx, claims)
		}
	}
	return nil
}

// revoke 将 token 加入黑名单，失败只记录日志
func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) {
	if s.blacklist == nil || claims.ID == "" {
		return
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Warn("Token 加入黑名单失败", zap.String("jti", claims.ID), zap.Error(err))
	}
}

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         *toUserResponse(user),
	}, nil
}

// newState 32 字节随机数，URL 安全编码
func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
