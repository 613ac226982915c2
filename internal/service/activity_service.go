package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/model"
	"volunteer-hub/internal/repository"
	pkgerrors "volunteer-hub/pkg/errors"
)

// ── 活动模块业务错误 ──

var (
	ErrActivityNotFound        = fmt.Errorf("%w: 活动不存在", pkgerrors.ErrNotFound)
	ErrActivityTitleRequired   = fmt.Errorf("%w: 活动标题不能为空", pkgerrors.ErrValidation)
	ErrActivityDateRequired    = fmt.Errorf("%w: 活动日期不能为空", pkgerrors.ErrValidation)
	ErrInvalidMaxParticipants  = fmt.Errorf("%w: 人数上限必须大于 0", pkgerrors.ErrValidation)
	ErrActivityVersionConflict = fmt.Errorf("%w: 活动已被其他管理员修改", pkgerrors.ErrOptimisticLock)
)

// ActivityService 活动管理业务接口
type ActivityService interface {
	Create(ctx context.Context, req *dto.CreateActivityRequest, callerID string) (*dto.ActivityResponse, error)
	// GetByID callerID 非空时返回 is_user_registered
	GetByID(ctx context.Context, id, callerID string) (*dto.ActivityResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateActivityRequest, callerID string) (*dto.ActivityResponse, error)
	// Delete 同一事务内删除活动的全部报名并软删除活动
	Delete(ctx context.Context, id, callerID string) error
}

type activityService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewActivityService 创建 ActivityService 实例；notifier 可为 nil
func NewActivityService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) ActivityService {
	return &activityService{repo: repo, notifier: notifier, logger: logger}
}

// validateActivityFields 校验 title / date / max_participants
func validateActivityFields(title string, date *time.Time, max *int) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrActivityTitleRequired
	}
	if date == nil || date.IsZero() {
		return "", ErrActivityDateRequired
	}
	if max != nil && *max < 1 {
		return "", ErrInvalidMaxParticipants
	}
	return title, nil
}

// ────────────────────── Create ──────────────────────

func (s *activityService) Create(ctx context.Context, req *dto.CreateActivityRequest, callerID string) (*dto.ActivityResponse, error) {
	title, err := validateActivityFields(req.Title, req.Date, req.MaxParticipants)
	if err != nil {
		return nil, err
	}

	activity := &model.Activity{
		Title:           title,
		Description:     req.Description,
		Date:            req.Date.UTC(),
		Location:        req.Location,
		MaxParticipants: req.MaxParticipants,
		IsActive:        true,
	}
	if req.IsActive != nil {
		activity.IsActive = *req.IsActive
	}
	activity.CreatedBy = &callerID
	activity.UpdatedBy = &callerID

	if err := s.repo.Activity.Create(ctx, activity); err != nil {
		s.logger.Error("创建活动失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("活动已创建",
		zap.String("activity_id", activity.ActivityID),
		zap.String("operator", callerID),
	)
	resp := toActivityResponse(activity, 0, nil)
	return &resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *activityService) GetByID(ctx context.Context, id, callerID string) (*dto.ActivityResponse, error) {
	activity, err := s.repo.Activity.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		s.logger.Error("查询活动失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	list, err := projectActivities(ctx, s.repo, []model.Activity{*activity}, callerID)
	if err != nil {
		s.logger.Error("统计活动报名失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &list[0], nil
}

// ────────────────────── Update ──────────────────────

// Update 全量更新：description / location / max_participants 为 null 即清空，
// is_active 缺省时保持不变。上限调低到当前人数以下是允许的，仅在报名时生效。
func (s *activityService) Update(ctx context.Context, id string, req *dto.UpdateActivityRequest, callerID string) (*dto.ActivityResponse, error) {
	title, err := validateActivityFields(req.Title, req.Date, req.MaxParticipants)
	if err != nil {
		return nil, err
	}

	activity, err := s.repo.Activity.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		s.logger.Error("查询活动失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if req.Version != nil && *req.Version != activity.Version {
		return nil, ErrActivityVersionConflict
	}

	activity.Title = title
	activity.Description = req.Description
	activity.Date = req.Date.UTC()
	activity.Location = req.Location
	activity.MaxParticipants = req.MaxParticipants
	if req.IsActive != nil {
		activity.IsActive = *req.IsActive
	}
	activity.UpdatedBy = &callerID

	if err := s.repo.Activity.Update(ctx, activity); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrActivityVersionConflict
		}
		s.logger.Error("更新活动失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	list, err := projectActivities(ctx, s.repo, []model.Activity{*activity}, "")
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ────────────────────── Delete ──────────────────────

func (s *activityService) Delete(ctx context.Context, id, callerID string) error {
	var (
		title        string
		participants []string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		activity, err := tx.Activity.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return err
		}
		title = activity.Title

		regs, err := tx.Registration.ListByActivity(ctx, id)
		if err != nil {
			return err
		}
		for _, r := range regs {
			participants = append(participants, r.UserID)
		}

		if _, err := tx.Registration.DeleteByActivity(ctx, id); err != nil {
			return err
		}
		return tx.Activity.Delete(ctx, id, callerID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrActivityNotFound
		}
		if pkgerrors.Kind(err) == nil {
			s.logger.Error("删除活动失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("活动已删除",
		zap.String("activity_id", id),
		zap.Int("registrations_removed", len(participants)),
		zap.String("operator", callerID),
	)

	// 事务提交后再通知，通知失败不影响删除结果
	for _, userID := range participants {
		notifyBestEffort(ctx, s.notifier, s.logger, userID,
			model.NotificationTypeActivity,
			"活动已取消",
			fmt.Sprintf("您报名的活动「%s」已被取消。", title),
		)
	}
	return nil
}

// ── 投影 ──

// projectActivities 为活动附加报名人数，callerID 非空时附加本人报名状态
func projectActivities(ctx context.Context, repo *repository.Repository, activities []model.Activity, callerID string) ([]dto.ActivityResponse, error) {
	ids := make([]string, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ActivityID)
	}

	counts, err := repo.Registration.CountByActivities(ctx, ids)
	if err != nil {
		return nil, err
	}

	var mine map[string]bool
	if callerID != "" {
		if mine, err = repo.Registration.RegisteredActivityIDs(ctx, callerID, ids); err != nil {
			return nil, err
		}
	}

	result := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		a := &activities[i]
		var registered *bool
		if mine != nil {
			v := isUserRegistered(mine, a.ActivityID)
			registered = &v
		}
		result = append(result, toActivityResponse(a, participantCount(counts, a.ActivityID), registered))
	}
	return result, nil
}

// participantCount 活动当前报名人数
func participantCount(counts map[string]int64, activityID string) int64 {
	return counts[activityID]
}

// isUserRegistered 调用方是否已报名该活动
func isUserRegistered(registered map[string]bool, activityID string) bool {
	return registered[activityID]
}

// hasCapacity 未设置上限时始终有名额
func hasCapacity(a *model.Activity, current int64) bool {
	return a.MaxParticipants == nil || current < int64(*a.MaxParticipants)
}

func toActivityResponse(a *model.Activity, count int64, registered *bool) dto.ActivityResponse {
	var remaining *int
	if a.MaxParticipants != nil {
		r := *a.MaxParticipants - int(count)
		if r < 0 {
			r = 0
		}
		remaining = &r
	}
	return dto.ActivityResponse{
		ID:               a.ActivityID,
		Title:            a.Title,
		Description:      a.Description,
		Date:             formatTime(a.Date),
		Location:         a.Location,
		MaxParticipants:  a.MaxParticipants,
		IsActive:         a.IsActive,
		ParticipantCount: int(count),
		RemainingSlots:   remaining,
		IsUserRegistered: registered,
		Version:          a.Version,
		CreatedAt:        formatTime(a.CreatedAt),
		UpdatedAt:        formatTime(a.UpdatedAt),
	}
}
