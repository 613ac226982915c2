package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/model"
	pkgerrors "volunteer-hub/pkg/errors"
)

func newTestActivityService() (ActivityService, RegistrationService, *mockStore) {
	repo, store := newMockRepository()
	notifier := NewNotificationService(repo, zap.NewNop())
	return NewActivityService(repo, notifier, zap.NewNop()),
		NewRegistrationService(repo, notifier, zap.NewNop()),
		store
}

func timePtr(t time.Time) *time.Time { return &t }

func TestActivityCreate(t *testing.T) {
	svc, _, store := newTestActivityService()
	date := time.Date(2026, 4, 1, 9, 0, 0, 0, time.FixedZone("CST", 8*3600))

	resp, err := svc.Create(context.Background(), &dto.CreateActivityRequest{
		Title:           "  植树节  ",
		Date:            &date,
		MaxParticipants: intPtr(20),
	}, "admin-1")
	if err != nil {
		t.Fatalf("创建活动失败: %v", err)
	}
	if resp.Title != "植树节" {
		t.Errorf("标题应去除首尾空白，实际=%q", resp.Title)
	}
	if !resp.IsActive {
		t.Error("is_active 缺省应为 true")
	}
	if resp.Date != "2026-04-01T01:00:00Z" {
		t.Errorf("日期应统一为 UTC，实际=%s", resp.Date)
	}
	if resp.ParticipantCount != 0 || *resp.RemainingSlots != 20 {
		t.Errorf("新活动派生字段错误: %+v", resp)
	}
	if store.activities[resp.ID].CreatedBy == nil {
		t.Error("应记录创建人")
	}
}

func TestActivityCreate_Validation(t *testing.T) {
	svc, _, _ := newTestActivityService()
	date := time.Now()

	tests := []struct {
		name string
		req  dto.CreateActivityRequest
		want error
	}{
		{"空标题", dto.CreateActivityRequest{Title: "   ", Date: &date}, ErrActivityTitleRequired},
		{"缺少日期", dto.CreateActivityRequest{Title: "活动"}, ErrActivityDateRequired},
		{"零值日期", dto.CreateActivityRequest{Title: "活动", Date: timePtr(time.Time{})}, ErrActivityDateRequired},
		{"上限为 0", dto.CreateActivityRequest{Title: "活动", Date: &date, MaxParticipants: intPtr(0)}, ErrInvalidMaxParticipants},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), &tt.req, "admin-1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("期望 %v，实际: %v", tt.want, err)
			}
			if !errors.Is(err, pkgerrors.ErrValidation) {
				t.Error("应归类为 Validation")
			}
		})
	}
}

func TestActivityUpdate(t *testing.T) {
	svc, reg, store := newTestActivityService()
	ctx := context.Background()
	act := store.addActivity("旧标题", intPtr(5), true)
	a := store.addUser("A", model.RoleStudent)
	b := store.addUser("B", model.RoleStudent)
	_, _ = reg.Join(ctx, a.UserID, act.ActivityID)
	_, _ = reg.Join(ctx, b.UserID, act.ActivityID)

	date := act.Date.Add(time.Hour)
	resp, err := svc.Update(ctx, act.ActivityID, &dto.UpdateActivityRequest{
		Title:           "新标题",
		Date:            &date,
		MaxParticipants: intPtr(1), // 低于当前人数也允许
	}, "admin-1")
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if resp.Title != "新标题" || resp.Version != 2 {
		t.Errorf("更新结果错误: %+v", resp)
	}
	if resp.ParticipantCount != 2 || *resp.RemainingSlots != 0 {
		t.Errorf("已有报名不受上限调低影响: %+v", resp)
	}

	// 超员后新报名被拒绝
	c := store.addUser("C", model.RoleStudent)
	if _, err := reg.Join(ctx, c.UserID, act.ActivityID); !errors.Is(err, ErrActivityFull) {
		t.Errorf("期望 ErrActivityFull，实际: %v", err)
	}

	// max_participants 为 null 表示不限
	resp, err = svc.Update(ctx, act.ActivityID, &dto.UpdateActivityRequest{Title: "新标题", Date: &date}, "admin-1")
	if err != nil || resp.MaxParticipants != nil {
		t.Fatalf("清空上限失败: resp=%+v err=%v", resp, err)
	}
	if _, err := reg.Join(ctx, c.UserID, act.ActivityID); err != nil {
		t.Errorf("不限人数后应可报名: %v", err)
	}
}

func TestActivityUpdate_Errors(t *testing.T) {
	svc, _, store := newTestActivityService()
	ctx := context.Background()
	act := store.addActivity("活动", nil, true)
	date := time.Now()

	if _, err := svc.Update(ctx, "missing", &dto.UpdateActivityRequest{Title: "x", Date: &date}, "admin"); !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("期望 ErrActivityNotFound，实际: %v", err)
	}
	if _, err := svc.Update(ctx, act.ActivityID, &dto.UpdateActivityRequest{Title: "", Date: &date}, "admin"); !errors.Is(err, ErrActivityTitleRequired) {
		t.Errorf("期望 ErrActivityTitleRequired，实际: %v", err)
	}
	if _, err := svc.Update(ctx, act.ActivityID, &dto.UpdateActivityRequest{Title: "x"}, "admin"); !errors.Is(err, ErrActivityDateRequired) {
		t.Errorf("期望 ErrActivityDateRequired，实际: %v", err)
	}
	stale := 99
	if _, err := svc.Update(ctx, act.ActivityID, &dto.UpdateActivityRequest{Title: "x", Date: &date, Version: &stale}, "admin"); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("过期 version 应返回乐观锁冲突，实际: %v", err)
	}
}

func TestActivityUpdate_Deactivate(t *testing.T) {
	svc, reg, store := newTestActivityService()
	ctx := context.Background()
	act := store.addActivity("活动", nil, true)
	a := store.addUser("A", model.RoleStudent)
	inactive := false

	if _, err := svc.Update(ctx, act.ActivityID, &dto.UpdateActivityRequest{Title: "活动", Date: &act.Date, IsActive: &inactive}, "admin"); err != nil {
		t.Fatalf("关闭报名失败: %v", err)
	}
	if _, err := reg.Join(ctx, a.UserID, act.ActivityID); !errors.Is(err, ErrActivityInactive) {
		t.Errorf("关闭后报名应返回 ErrActivityInactive，实际: %v", err)
	}
}

func TestActivityDelete_RemovesRegistrations(t *testing.T) {
	svc, reg, store := newTestActivityService()
	ctx := context.Background()
	act := store.addActivity("活动", nil, true)
	other := store.addActivity("其他", nil, true)
	a := store.addUser("A", model.RoleStudent)
	_, _ = reg.Join(ctx, a.UserID, act.ActivityID)
	_, _ = reg.Join(ctx, a.UserID, other.ActivityID)

	if err := svc.Delete(ctx, act.ActivityID, "admin"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if _, ok := store.activities[act.ActivityID]; ok {
		t.Error("活动应被删除")
	}
	if store.countRegistrations(act.ActivityID) != 0 {
		t.Error("活动的报名应一并删除")
	}
	if store.countRegistrations(other.ActivityID) != 1 {
		t.Error("其他活动的报名不应受影响")
	}

	var cancelled int
	for _, n := range store.personalNotifications(a.UserID) {
		if n.Title == "活动已取消" {
			cancelled++
		}
	}
	if cancelled != 1 {
		t.Errorf("参与者应收到一条取消通知，实际 %d", cancelled)
	}
}

func TestActivityDelete_NotFound(t *testing.T) {
	svc, _, _ := newTestActivityService()
	if err := svc.Delete(context.Background(), "missing", "admin"); !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("期望 ErrActivityNotFound，实际: %v", err)
	}
}

func TestActivityGetByID_Membership(t *testing.T) {
	svc, reg, store := newTestActivityService()
	ctx := context.Background()
	act := store.addActivity("活动", intPtr(2), true)
	a := store.addUser("A", model.RoleStudent)
	b := store.addUser("B", model.RoleStudent)
	_, _ = reg.Join(ctx, a.UserID, act.ActivityID)

	resp, err := svc.GetByID(ctx, act.ActivityID, a.UserID)
	if err != nil || resp.IsUserRegistered == nil || !*resp.IsUserRegistered {
		t.Fatalf("A 应显示已报名: %+v err=%v", resp, err)
	}
	resp, _ = svc.GetByID(ctx, act.ActivityID, b.UserID)
	if *resp.IsUserRegistered {
		t.Error("B 不应显示已报名")
	}
	resp, _ = svc.GetByID(ctx, act.ActivityID, "")
	if resp.IsUserRegistered != nil {
		t.Error("匿名查询不应返回 is_user_registered")
	}
}
