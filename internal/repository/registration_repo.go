package repository

import (
	"context"

	"gorm.io/gorm"

	"volunteer-hub/internal/model"
)

// ActivityCount 活动报名人数汇总
type ActivityCount struct {
	ActivityID       string
	Title            string
	ParticipantCount int64
}

// RegistrationRepository 报名关系数据访问接口
type RegistrationRepository interface {
	Create(ctx context.Context, reg *model.Registration) error
	Exists(ctx context.Context, activityID, userID string) (bool, error)
	CountByActivity(ctx context.Context, activityID string) (int64, error)
	// CountByActivities 批量统计，未出现的活动人数为 0
	CountByActivities(ctx context.Context, activityIDs []string) (map[string]int64, error)
	// RegisteredActivityIDs 返回 userID 已报名的活动集合（限定在 activityIDs 内）
	RegisteredActivityIDs(ctx context.Context, userID string, activityIDs []string) (map[string]bool, error)
	// Delete 删除单条报名；不存在返回 gorm.ErrRecordNotFound
	Delete(ctx context.Context, activityID, userID string) error
	DeleteByActivity(ctx context.Context, activityID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	ListByActivity(ctx context.Context, activityID string) ([]model.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]model.Registration, error)
	Count(ctx context.Context) (int64, error)
	TopActivities(ctx context.Context, limit int) ([]ActivityCount, error)
}

type registrationRepo struct {
	db *gorm.DB
}

// NewRegistrationRepo 创建 RegistrationRepository 实例
func NewRegistrationRepo(db *gorm.DB) RegistrationRepository {
	return &registrationRepo{db: db}
}

func (r *registrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *registrationRepo) Exists(ctx context.Context, activityID, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *registrationRepo) CountByActivity(ctx context.Context, activityID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("activity_id = ?", activityID).
		Count(&n).Error
	return n, err
}

func (r *registrationRepo) CountByActivities(ctx context.Context, activityIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(activityIDs))
	if len(activityIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ActivityID string
		Total      int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Select("activity_id, COUNT(*) AS total").
		Where("activity_id IN ?", activityIDs).
		Group("activity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ActivityID] = row.Total
	}
	return counts, nil
}

func (r *registrationRepo) RegisteredActivityIDs(ctx context.Context, userID string, activityIDs []string) (map[string]bool, error) {
	set := make(map[string]bool)
	if len(activityIDs) == 0 {
		return set, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("user_id = ? AND activity_id IN ?", userID, activityIDs).
		Pluck("activity_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (r *registrationRepo) Delete(ctx context.Context, activityID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Delete(&model.Registration{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *registrationRepo) DeleteByActivity(ctx context.Context, activityID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Delete(&model.Registration{})
	return result.RowsAffected, result.Error
}

func (r *registrationRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Registration{})
	return result.RowsAffected, result.Error
}

// ListByActivity 按报名先后排序，附带用户信息
func (r *registrationRepo) ListByActivity(ctx context.Context, activityID string) ([]model.Registration, error) {
	var regs []model.Registration
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("activity_id = ?", activityID).
		Order("created_at ASC").
		Find(&regs).Error
	return regs, err
}

// ListByUser 附带活动信息；已软删除的活动 Activity 为 nil
func (r *registrationRepo) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	var regs []model.Registration
	err := r.db.WithContext(ctx).
		Preload("Activity").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&regs).Error
	return regs, err
}

func (r *registrationRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Registration{}).Count(&n).Error
	return n, err
}

func (r *registrationRepo) TopActivities(ctx context.Context, limit int) ([]ActivityCount, error) {
	var rows []ActivityCount
	err := r.db.WithContext(ctx).
		Table("registrations r").
		Select("a.activity_id, a.title, COUNT(r.registration_id) AS participant_count").
		Joins("JOIN activities a ON a.activity_id = r.activity_id AND a.deleted_at IS NULL").
		Group("a.activity_id, a.title").
		Order("participant_count DESC, a.title ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
