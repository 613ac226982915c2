package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/model"
	"volunteer-hub/internal/repository"
	pkgerrors "volunteer-hub/pkg/errors"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = fmt.Errorf("%w: 通知不存在", pkgerrors.ErrNotFound)
	ErrNotificationEmpty    = fmt.Errorf("%w: 通知标题和内容不能为空", pkgerrors.ErrValidation)
)

// Notifier 站内通知投递，报名与活动模块通过它发送个人通知
type Notifier interface {
	NotifyUser(ctx context.Context, userID, notifType, title, content string) error
}

// NotificationService 通知业务接口
type NotificationService interface {
	Notifier

	Create(ctx context.Context, req *dto.CreateNotificationRequest, callerID string) (*dto.NotificationResponse, error)
	ListForUser(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	// MarkRead 幂等；对当前用户不可见的通知视为不存在
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, callerID string) error
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

// notifyBestEffort 发送个人通知，失败只记录日志
func notifyBestEffort(ctx context.Context, n Notifier, logger *zap.Logger, userID, notifType, title, content string) {
	if n == nil {
		return
	}
	if err := n.NotifyUser(ctx, userID, notifType, title, content); err != nil {
		logger.Warn("发送通知失败",
			zap.String("user_id", userID),
			zap.String("title", title),
			zap.Error(err),
		)
	}
}

func (s *notificationService) NotifyUser(ctx context.Context, userID, notifType, title, content string) error {
	return s.repo.Notification.Create(ctx, &model.Notification{
		UserID:  &userID,
		Type:    notifType,
		Title:   title,
		Content: content,
	})
}

// ────────────────────── Create ──────────────────────

func (s *notificationService) Create(ctx context.Context, req *dto.CreateNotificationRequest, callerID string) (*dto.NotificationResponse, error) {
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" || content == "" {
		return nil, ErrNotificationEmpty
	}

	if req.UserID != nil {
		if _, err := s.repo.User.GetByID(ctx, *req.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}

	notifType := req.Type
	if notifType == "" {
		notifType = model.NotificationTypeSystem
	}

	n := &model.Notification{
		UserID:  req.UserID,
		Type:    notifType,
		Title:   title,
		Content: content,
	}
	n.CreatedBy = &callerID

	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Error("创建通知失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("通知已发布",
		zap.String("notification_id", n.NotificationID),
		zap.Bool("global", n.IsGlobal()),
		zap.String("operator", callerID),
	)
	return toNotificationResponse(n, false), nil
}

// ────────────────────── 查询 / 已读 ──────────────────────

func (s *notificationService) ListForUser(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	rows, total, err := s.repo.Notification.ListForUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(rows))
	for i := range rows {
		result = append(result, *toNotificationResponse(&rows[i].Notification, rows[i].IsRead))
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	n, err := s.repo.Notification.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	if !n.IsGlobal() && *n.UserID != userID {
		return ErrNotificationNotFound
	}

	if err := s.repo.Notification.MarkRead(ctx, notificationID, userID); err != nil {
		s.logger.Error("标记已读失败", zap.String("notification_id", notificationID), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.Notification.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.Notification.UnreadCount(ctx, userID)
}

// ────────────────────── Delete ──────────────────────

func (s *notificationService) Delete(ctx context.Context, id, callerID string) error {
	if err := s.repo.Notification.Delete(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("删除通知失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func toNotificationResponse(n *model.Notification, isRead bool) *dto.NotificationResponse {
	return &dto.NotificationResponse{
		ID:        n.NotificationID,
		Type:      n.Type,
		Title:     n.Title,
		Content:   n.Content,
		IsGlobal:  n.IsGlobal(),
		IsRead:    isRead,
		CreatedAt: formatTime(n.CreatedAt),
	}
}
