package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/model"
	"volunteer-hub/internal/repository"
	pkgerrors "volunteer-hub/pkg/errors"
)

// ── 报名模块业务错误 ──

var (
	ErrActivityInactive  = fmt.Errorf("%w: 活动未开放报名", pkgerrors.ErrInvalidState)
	ErrAlreadyRegistered = fmt.Errorf("%w: 已报名该活动", pkgerrors.ErrConflict)
	ErrNotRegistered     = fmt.Errorf("%w: 未报名该活动", pkgerrors.ErrConflict)
	ErrActivityFull      = fmt.Errorf("%w: 活动名额已满", pkgerrors.ErrCapacityExceeded)
	ErrInvalidDateFilter = fmt.Errorf("%w: 日期格式应为 YYYY-MM-DD 或 RFC3339", pkgerrors.ErrValidation)
	ErrInvalidDateRange  = fmt.Errorf("%w: 开始日期不能晚于结束日期", pkgerrors.ErrValidation)
)

const dateLayout = "2006-01-02"

// RegistrationService 活动报名与名额管理业务接口
//
// 不变量：
//   - 同一 (活动, 用户) 至多一条报名
//   - 设置了人数上限的活动，报名人数不超过上限
//   - 仅 is_active 的活动可报名
type RegistrationService interface {
	// Join 报名；检查顺序：活动存在 → 用户存在 → 活动开放 → 未重复报名 → 名额
	Join(ctx context.Context, userID, activityID string) (*dto.JoinResponse, error)
	Leave(ctx context.Context, userID, activityID string) error
	ListParticipants(ctx context.Context, activityID string) ([]dto.ParticipantResponse, error)
	// ListActivities 按日期升序；callerID 非空时附带 is_user_registered
	ListActivities(ctx context.Context, req *dto.ActivityListRequest, callerID string) ([]dto.ActivityResponse, error)
	ListMyActivities(ctx context.Context, userID string) ([]dto.ActivityResponse, error)
}

type registrationService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewRegistrationService 创建 RegistrationService 实例；notifier 可为 nil
func NewRegistrationService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) RegistrationService {
	return &registrationService{repo: repo, notifier: notifier, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Join
// ═══════════════════════════════════════════════════════════
//
// 整个"检查 → 插入"在一个事务内完成，事务开始即对活动行加排他锁，
// 同一活动的并发报名在锁上串行化，名额上限因此成立。
// (activity_id, user_id) 唯一索引作为兜底，冲突映射为 ErrAlreadyRegistered。

func (s *registrationService) Join(ctx context.Context, userID, activityID string) (*dto.JoinResponse, error) {
	var (
		count int64
		title string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		activity, err := tx.Activity.GetByIDForUpdate(ctx, activityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return err
		}

		if _, err := tx.User.GetByID(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if !activity.IsActive {
			return ErrActivityInactive
		}

		exists, err := tx.Registration.Exists(ctx, activityID, userID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyRegistered
		}

		current, err := tx.Registration.CountByActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if !hasCapacity(activity, current) {
			return ErrActivityFull
		}

		if err := tx.Registration.Create(ctx, &model.Registration{
			ActivityID: activityID,
			UserID:     userID,
		}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRegistered
			}
			return err
		}

		count = current + 1
		title = activity.Title
		return nil
	})
	if err != nil {
		if pkgerrors.Kind(err) == nil {
			s.logger.Error("报名失败",
				zap.String("activity_id", activityID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("报名成功",
		zap.String("activity_id", activityID),
		zap.String("user_id", userID),
		zap.Int64("participant_count", count),
	)

	notifyBestEffort(ctx, s.notifier, s.logger, userID,
		model.NotificationTypeRegistration,
		"报名成功",
		fmt.Sprintf("您已成功报名活动「%s」。", title),
	)

	return &dto.JoinResponse{
		ActivityID:       activityID,
		ParticipantCount: int(count),
		Message:          "报名成功",
	}, nil
}

// ════════════════════════════════════════════════════════════
// Leave
// ════════════════════════════════════════════════════════════

func (s *registrationService) Leave(ctx context.Context, userID, activityID string) error {
	if _, err := s.repo.Activity.GetByID(ctx, activityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrActivityNotFound
		}
		s.logger.Error("查询活动失败", zap.String("activity_id", activityID), zap.Error(err))
		return err
	}

	if err := s.repo.Registration.Delete(ctx, activityID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotRegistered
		}
		s.logger.Error("取消报名失败",
			zap.String("activity_id", activityID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("已取消报名",
		zap.String("activity_id", activityID),
		zap.String("user_id", userID),
	)
	return nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *registrationService) ListParticipants(ctx context.Context, activityID string) ([]dto.ParticipantResponse, error) {
	if _, err := s.repo.Activity.GetByID(ctx, activityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}

	regs, err := s.repo.Registration.ListByActivity(ctx, activityID)
	if err != nil {
		s.logger.Error("查询参与者失败", zap.String("activity_id", activityID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ParticipantResponse, 0, len(regs))
	for _, r := range regs {
		if r.User == nil {
			continue
		}
		result = append(result, dto.ParticipantResponse{
			ID:          r.User.UserID,
			Name:        r.User.Name,
			Email:       r.User.Email,
			StudentCode: r.User.StudentCode,
			JoinedAt:    formatTime(r.CreatedAt),
		})
	}
	return result, nil
}

func (s *registrationService) ListActivities(ctx context.Context, req *dto.ActivityListRequest, callerID string) ([]dto.ActivityResponse, error) {
	filter, err := buildActivityFilter(req)
	if err != nil {
		return nil, err
	}

	activities, err := s.repo.Activity.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询活动列表失败", zap.Error(err))
		return nil, err
	}

	result, err := projectActivities(ctx, s.repo, activities, callerID)
	if err != nil {
		s.logger.Error("统计活动报名失败", zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (s *registrationService) ListMyActivities(ctx context.Context, userID string) ([]dto.ActivityResponse, error) {
	regs, err := s.repo.Registration.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询我的报名失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	activities := make([]model.Activity, 0, len(regs))
	for _, r := range regs {
		if r.Activity != nil {
			activities = append(activities, *r.Activity)
		}
	}
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Date.Before(activities[j].Date)
	})

	return projectActivities(ctx, s.repo, activities, userID)
}

// buildActivityFilter 解析日期区间：纯日期按整天计（含首尾两天）
func buildActivityFilter(req *dto.ActivityListRequest) (repository.ActivityFilter, error) {
	filter := repository.ActivityFilter{ActiveOnly: req.ActiveOnly}

	if raw := strings.TrimSpace(req.StartDate); raw != "" {
		t, _, err := parseDateBound(raw)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}

	if raw := strings.TrimSpace(req.EndDate); raw != "" {
		t, dateOnly, err := parseDateBound(raw)
		if err != nil {
			return filter, err
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		} else {
			t = t.Add(time.Microsecond) // PostgreSQL 时间精度为微秒
		}
		filter.Before = &t
	}

	if filter.From != nil && filter.Before != nil && !filter.From.Before(*filter.Before) {
		return filter, ErrInvalidDateRange
	}
	return filter, nil
}

func parseDateBound(raw string) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, ErrInvalidDateFilter
}
