package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"volunteer-hub/internal/model"
	pkgerrors "volunteer-hub/pkg/errors"
)

// ActivityFilter 活动查询条件；From 含、Before 不含
type ActivityFilter struct {
	From       *time.Time
	Before     *time.Time
	ActiveOnly bool
}

// ActivityRepository 活动数据访问接口
type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	GetByID(ctx context.Context, id string) (*model.Activity, error)
	// GetByIDForUpdate 对活动行加排他锁，仅可在事务中调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Activity, error)
	List(ctx context.Context, filter ActivityFilter) ([]model.Activity, error)
	Count(ctx context.Context, filter ActivityFilter) (int64, error)
	Update(ctx context.Context, activity *model.Activity) error
	Delete(ctx context.Context, id, deletedBy string) error
}

type activityRepo struct {
	db *gorm.DB
}

// NewActivityRepo 创建 ActivityRepository 实例
func NewActivityRepo(db *gorm.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Create(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepo) GetByID(ctx context.Context, id string) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", id).
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("activity_id = ?", id).
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepo) scoped(ctx context.Context, filter ActivityFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.Activity{})
	if filter.From != nil {
		db = db.Where("date >= ?", *filter.From)
	}
	if filter.Before != nil {
		db = db.Where("date < ?", *filter.Before)
	}
	if filter.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}
	return db
}

// List 按活动日期升序
func (r *activityRepo) List(ctx context.Context, filter ActivityFilter) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.scoped(ctx, filter).
		Order("date ASC, created_at ASC").
		Find(&activities).Error
	return activities, err
}

func (r *activityRepo) Count(ctx context.Context, filter ActivityFilter) (int64, error) {
	var n int64
	err := r.scoped(ctx, filter).Count(&n).Error
	return n, err
}

// Update 乐观锁更新，version 不匹配返回 ErrOptimisticLock
func (r *activityRepo) Update(ctx context.Context, activity *model.Activity) error {
	oldVersion := activity.Version
	result := r.db.WithContext(ctx).
		Model(&model.Activity{}).
		Where("activity_id = ? AND version = ?", activity.ActivityID, oldVersion).
		Updates(map[string]interface{}{
			"title":            activity.Title,
			"description":      activity.Description,
			"date":             activity.Date,
			"location":         activity.Location,
			"max_participants": activity.MaxParticipants,
			"is_active":        activity.IsActive,
			"updated_by":       activity.UpdatedBy,
			"updated_at":       time.Now(),
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	activity.Version = oldVersion + 1
	return nil
}

// Delete 软删除；活动不存在返回 gorm.ErrRecordNotFound
func (r *activityRepo) Delete(ctx context.Context, id, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Activity{}).
		Where("activity_id = ?", id).
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
