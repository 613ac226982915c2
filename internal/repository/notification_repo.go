package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"volunteer-hub/internal/model"
)

// NotificationView 通知及当前用户的已读状态
type NotificationView struct {
	model.Notification
	IsRead bool
}

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	// ListForUser 返回 userID 可见的通知（全局 + 定向），按时间倒序
	ListForUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]NotificationView, int64, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, deletedBy string) error
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// visibleTo 可见通知 LEFT JOIN 当前用户已读记录
func (r *notificationRepo) visibleTo(ctx context.Context, userID string, unreadOnly bool) *gorm.DB {
	db := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Joins("LEFT JOIN notification_reads nr ON nr.notification_id = notifications.notification_id AND nr.user_id = ?", userID).
		Where("(notifications.user_id IS NULL OR notifications.user_id = ?)", userID)
	if unreadOnly {
		db = db.Where("nr.notification_id IS NULL")
	}
	return db
}

func (r *notificationRepo) ListForUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]NotificationView, int64, error) {
	var total int64
	if err := r.visibleTo(ctx, userID, unreadOnly).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []NotificationView
	err := r.visibleTo(ctx, userID, unreadOnly).
		Select("notifications.*, nr.notification_id IS NOT NULL AS is_read").
		Order("notifications.created_at DESC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// MarkRead 重复标记为幂等操作
func (r *notificationRepo) MarkRead(ctx context.Context, notificationID, userID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.NotificationRead{
			NotificationID: notificationID,
			UserID:         userID,
			ReadAt:         time.Now(),
		}).Error
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO notification_reads (notification_id, user_id, read_at)
		SELECT n.notification_id, ?, NOW()
		FROM notifications n
		WHERE (n.user_id IS NULL OR n.user_id = ?) AND n.deleted_at IS NULL
		ON CONFLICT DO NOTHING`, userID, userID)
	return result.RowsAffected, result.Error
}

func (r *notificationRepo) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.visibleTo(ctx, userID, true).Count(&n).Error
	return n, err
}

func (r *notificationRepo) Delete(ctx context.Context, id, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": gorm.Expr("NOW()"),
			"deleted_by": deletedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
