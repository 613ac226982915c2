package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/model"
	"volunteer-hub/internal/repository"
	pkgerrors "volunteer-hub/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound       = fmt.Errorf("%w: 用户不存在", pkgerrors.ErrNotFound)
	ErrEmailExists        = fmt.Errorf("%w: 邮箱已被使用", pkgerrors.ErrConflict)
	ErrExternalIDExists   = fmt.Errorf("%w: 第三方账号已绑定其他用户", pkgerrors.ErrConflict)
	ErrUserSelfRoleChange = fmt.Errorf("%w: 不能修改自己的角色", pkgerrors.ErrForbidden)
	ErrUserSelfDelete     = fmt.Errorf("%w: 不能删除自己", pkgerrors.ErrForbidden)
	ErrUserEmailRequired  = fmt.Errorf("%w: 邮箱不能为空", pkgerrors.ErrValidation)
	ErrUserNameRequired   = fmt.Errorf("%w: 姓名不能为空", pkgerrors.ErrValidation)
	ErrInvalidRole        = fmt.Errorf("%w: 角色无效", pkgerrors.ErrValidation)
)

// UserService 用户目录业务接口
type UserService interface {
	// ── 身份解析（认证模块使用）──
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Create 创建用户，邮箱 / 第三方 ID 重复时返回 Conflict
	Create(ctx context.Context, user *model.User) error
	LinkExternalID(ctx context.Context, userID, externalID string) (*model.User, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)

	// ── 管理端 ──
	CreateUser(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateUserRequest, callerID string) (*dto.UserResponse, error)
	AssignRole(ctx context.Context, id string, req *dto.AssignRoleRequest, callerID string) error
	Delete(ctx context.Context, id string, callerID string) error

	// ── 本人 ──
	GetCurrent(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// normalizeEmail 邮箱统一小写去空白
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// getUser 查询用户，翻译 gorm.ErrRecordNotFound
func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// ────────────────────── 身份解析 ──────────────────────

func (s *userService) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	user, err := s.repo.User.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.User.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	user.Name = strings.TrimSpace(user.Name)
	if user.Email == "" {
		return ErrUserEmailRequired
	}
	if user.Name == "" {
		return ErrUserNameRequired
	}
	if user.Role == "" {
		user.Role = model.RoleStudent
	}
	if user.Role != model.RoleAdmin && user.Role != model.RoleStudent {
		return ErrInvalidRole
	}

	// 唯一性检查
	if _, err := s.repo.User.GetByEmail(ctx, user.Email); err == nil {
		return ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if user.ExternalID != nil {
		if _, err := s.repo.User.GetByExternalID(ctx, *user.ExternalID); err == nil {
			return ErrExternalIDExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		// 并发创建时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.String("email", user.Email), zap.Error(err))
		return err
	}

	s.logger.Info("用户已创建",
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role),
	)
	return nil
}

func (s *userService) LinkExternalID(ctx context.Context, userID, externalID string) (*model.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ExternalID != nil && *user.ExternalID == externalID {
		return user, nil
	}

	if other, err := s.repo.User.GetByExternalID(ctx, externalID); err == nil && other.UserID != userID {
		return nil, ErrExternalIDExists
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user.ExternalID = &externalID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("绑定第三方账号失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *userService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// ────────────────────── CreateUser ──────────────────────

func (s *userService) CreateUser(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error) {
	user := &model.User{
		Email:       req.Email,
		Name:        req.Name,
		StudentCode: req.StudentCode,
		Role:        req.Role,
		SoftDeleteModel: model.SoftDeleteModel{
			BaseModel: model.BaseModel{CreatedBy: &callerID},
		},
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.logger.Error("密码哈希失败", zap.Error(err))
			return nil, err
		}
		h := string(hash)
		user.PasswordHash = &h
	}

	if err := s.Create(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) GetCurrent(ctx context.Context, userID string) (*dto.UserResponse, error) {
	return s.GetByID(ctx, userID)
}

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filter := repository.UserFilter{
		Role:    req.Role,
		Keyword: strings.TrimSpace(req.Keyword),
	}

	users, total, err := s.repo.User.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id string, req *dto.UpdateUserRequest, callerID string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != nil && *req.Role != user.Role {
		if id == callerID {
			return nil, ErrUserSelfRoleChange
		}
		user.Role = *req.Role
	}
	applyProfile(user, req.Name, req.StudentCode)
	user.UpdatedBy = &callerID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) AssignRole(ctx context.Context, id string, req *dto.AssignRoleRequest, callerID string) error {
	if id == callerID {
		return ErrUserSelfRoleChange
	}
	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == req.Role {
		return nil
	}

	oldRole := user.Role
	user.Role = req.Role
	user.UpdatedBy = &callerID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("分配角色失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("用户角色已变更",
		zap.String("user_id", id),
		zap.String("from", oldRole),
		zap.String("to", req.Role),
		zap.String("operator", callerID),
	)
	return nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	applyProfile(user, req.Name, req.StudentCode)
	user.UpdatedBy = &userID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新个人资料失败", zap.String("id", userID), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user), nil
}

// applyProfile 仅应用非 nil 字段；空学号表示清除
func applyProfile(user *model.User, name, studentCode *string) {
	if name != nil {
		if n := strings.TrimSpace(*name); n != "" {
			user.Name = n
		}
	}
	if studentCode != nil {
		if code := strings.TrimSpace(*studentCode); code != "" {
			user.StudentCode = &code
		} else {
			user.StudentCode = nil
		}
	}
}

// ────────────────────── Delete ──────────────────────

// Delete 同一事务内移除该用户的全部报名并软删除用户
func (s *userService) Delete(ctx context.Context, id string, callerID string) error {
	if id == callerID {
		return ErrUserSelfDelete
	}

	var removed int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.User.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		n, err := tx.Registration.DeleteByUser(ctx, id)
		if err != nil {
			return err
		}
		removed = n

		return tx.User.Delete(ctx, id, callerID)
	})
	if err != nil {
		if pkgerrors.Kind(err) == nil {
			s.logger.Error("删除用户失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("用户已删除",
		zap.String("user_id", id),
		zap.Int64("registrations_removed", removed),
		zap.String("operator", callerID),
	)
	return nil
}

// ── 转换 ──

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:           u.UserID,
		Email:        u.Email,
		Name:         u.Name,
		StudentCode:  u.StudentCode,
		Role:         u.Role,
		LinkedGoogle: u.ExternalID != nil,
		CreatedAt:    formatTime(u.CreatedAt),
	}
}

// formatTime 统一输出 RFC3339（UTC）
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
