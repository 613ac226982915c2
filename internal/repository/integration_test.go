//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"volunteer-hub/internal/model"
	"volunteer-hub/internal/repository"
	"volunteer-hub/internal/service"
	"volunteer-hub/pkg/database"
	pkgerrors "volunteer-hub/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=volunteer password=volunteer_password dbname=volunteer_hub_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// createUser 创建测试用户并注册清理
func createUser(t *testing.T, name string) *model.User {
	t.Helper()
	user := &model.User{
		Email: fmt.Sprintf("%s-%d@uni.edu", name, time.Now().UnixNano()),
		Name:  name,
		Role:  model.RoleStudent,
	}
	if err := testDB.Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	t.Cleanup(func() {
		testDB.Unscoped().Where("user_id = ?", user.UserID).Delete(&model.Registration{})
		testDB.Unscoped().Where("user_id = ?", user.UserID).Delete(&model.User{})
	})
	return user
}

// createActivity 创建测试活动并注册清理
func createActivity(t *testing.T, max *int) *model.Activity {
	t.Helper()
	activity := &model.Activity{
		Title:           fmt.Sprintf("测试活动-%d", time.Now().UnixNano()),
		Date:            time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC),
		MaxParticipants: max,
		IsActive:        true,
	}
	if err := testDB.Create(activity).Error; err != nil {
		t.Fatalf("创建活动失败: %v", err)
	}
	t.Cleanup(func() {
		testDB.Unscoped().Where("activity_id = ?", activity.ActivityID).Delete(&model.Registration{})
		testDB.Unscoped().Where("activity_id = ?", activity.ActivityID).Delete(&model.Activity{})
	})
	return activity
}

func intPtr(v int) *int { return &v }

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	var createdID string
	errBoom := errors.New("boom")
	err := repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		a := &model.Activity{Title: "回滚活动", Date: time.Now(), IsActive: true}
		if err := txRepo.Activity.Create(ctx, a); err != nil {
			return err
		}
		createdID = a.ActivityID
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("期望返回 fn 的错误，实际: %v", err)
	}

	if _, err := repo.Activity.GetByID(ctx, createdID); !errors.Is(err, gorm.ErrRecordNotFound) {
		testDB.Unscoped().Where("activity_id = ?", createdID).Delete(&model.Activity{})
		t.Fatal("期望回滚后查不到活动，但实际查到了")
	}
}

func TestTransaction_Commit(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	a := &model.Activity{Title: "提交活动", Date: time.Now(), IsActive: true}
	err := repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		return txRepo.Activity.Create(ctx, a)
	})
	if err != nil {
		t.Fatalf("事务提交失败: %v", err)
	}
	defer testDB.Unscoped().Where("activity_id = ?", a.ActivityID).Delete(&model.Activity{})

	found, err := repo.Activity.GetByID(ctx, a.ActivityID)
	if err != nil {
		t.Fatalf("提交后查询活动失败: %v", err)
	}
	if found.Version != 1 {
		t.Errorf("初始 version 应为 1，得到: %d", found.Version)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Activity_ConflictDetected(t *testing.T) {
	activity := createActivity(t, nil)
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	copy1, _ := repo.Activity.GetByID(ctx, activity.ActivityID)
	copy2, _ := repo.Activity.GetByID(ctx, activity.ActivityID)

	copy1.Title = "改名一"
	if err := repo.Activity.Update(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}

	copy2.Title = "改名二"
	if err := repo.Activity.Update(ctx, copy2); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}
}

func TestActivity_UpdateClearsMaxParticipants(t *testing.T) {
	activity := createActivity(t, intPtr(3))
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	got, _ := repo.Activity.GetByID(ctx, activity.ActivityID)
	got.MaxParticipants = nil
	got.IsActive = false
	if err := repo.Activity.Update(ctx, got); err != nil {
		t.Fatalf("更新失败: %v", err)
	}

	final, _ := repo.Activity.GetByID(ctx, activity.ActivityID)
	if final.MaxParticipants != nil {
		t.Errorf("期望 max_participants 置空，实际=%d", *final.MaxParticipants)
	}
	if final.IsActive {
		t.Error("期望 is_active=false")
	}
}

func TestActivity_CreateInactiveKeepsFalse(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	a := &model.Activity{Title: "未开放活动", Date: time.Now(), IsActive: false}
	if err := repo.Activity.Create(ctx, a); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	defer testDB.Unscoped().Where("activity_id = ?", a.ActivityID).Delete(&model.Activity{})

	got, _ := repo.Activity.GetByID(ctx, a.ActivityID)
	if got.IsActive {
		t.Error("is_active=false 不应被数据库默认值覆盖")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Registration constraints
// ═══════════════════════════════════════════════════════════

func TestRegistration_UniquePair(t *testing.T) {
	activity := createActivity(t, nil)
	user := createUser(t, "alice")
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	if err := repo.Registration.Create(ctx, &model.Registration{ActivityID: activity.ActivityID, UserID: user.UserID}); err != nil {
		t.Fatalf("首次报名失败: %v", err)
	}
	err := repo.Registration.Create(ctx, &model.Registration{ActivityID: activity.ActivityID, UserID: user.UserID})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("期望 ErrDuplicatedKey，实际: %v", err)
	}
}

func TestRegistration_CountsAndMembership(t *testing.T) {
	a1 := createActivity(t, nil)
	a2 := createActivity(t, nil)
	alice := createUser(t, "alice")
	bob := createUser(t, "bob")
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	for _, reg := range []model.Registration{
		{ActivityID: a1.ActivityID, UserID: alice.UserID},
		{ActivityID: a1.ActivityID, UserID: bob.UserID},
		{ActivityID: a2.ActivityID, UserID: bob.UserID},
	} {
		reg := reg
		if err := repo.Registration.Create(ctx, &reg); err != nil {
			t.Fatalf("报名失败: %v", err)
		}
	}

	counts, err := repo.Registration.CountByActivities(ctx, []string{a1.ActivityID, a2.ActivityID})
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if counts[a1.ActivityID] != 2 || counts[a2.ActivityID] != 1 {
		t.Errorf("人数统计错误: %v", counts)
	}

	set, err := repo.Registration.RegisteredActivityIDs(ctx, alice.UserID, []string{a1.ActivityID, a2.ActivityID})
	if err != nil {
		t.Fatalf("查询报名集合失败: %v", err)
	}
	if !set[a1.ActivityID] || set[a2.ActivityID] {
		t.Errorf("alice 报名集合错误: %v", set)
	}

	if err := repo.Registration.Delete(ctx, a2.ActivityID, alice.UserID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("删除不存在的报名应返回 ErrRecordNotFound，实际: %v", err)
	}

	parts, err := repo.Registration.ListByActivity(ctx, a1.ActivityID)
	if err != nil || len(parts) != 2 || parts[0].User == nil {
		t.Fatalf("参与者列表异常: len=%d err=%v", len(parts), err)
	}
}

func TestRegistration_CascadeOnActivityHardDelete(t *testing.T) {
	activity := createActivity(t, nil)
	user := createUser(t, "carol")
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	if err := repo.Registration.Create(ctx, &model.Registration{ActivityID: activity.ActivityID, UserID: user.UserID}); err != nil {
		t.Fatalf("报名失败: %v", err)
	}
	testDB.Unscoped().Where("activity_id = ?", activity.ActivityID).Delete(&model.Activity{})

	exists, err := repo.Registration.Exists(ctx, activity.ActivityID, user.UserID)
	if err != nil || exists {
		t.Errorf("外键级联应删除报名: exists=%v err=%v", exists, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Concurrent joins respect capacity
// ═══════════════════════════════════════════════════════════

func TestJoin_ConcurrentCapacity(t *testing.T) {
	const capacity = 5
	const contenders = 20

	activity := createActivity(t, intPtr(capacity))
	users := make([]*model.User, contenders)
	for i := range users {
		users[i] = createUser(t, fmt.Sprintf("u%d", i))
	}

	repo := repository.NewRepository(testDB)
	svc := service.NewRegistrationService(repo, nil, zap.NewNop())
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := svc.Join(ctx, userID, activity.ActivityID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, pkgerrors.ErrCapacityExceeded):
				full++
			default:
				t.Errorf("非预期错误: %v", err)
			}
		}(u.UserID)
	}
	wg.Wait()

	if ok != capacity || full != contenders-capacity {
		t.Errorf("期望成功 %d / 满员 %d，实际 %d / %d", capacity, contenders-capacity, ok, full)
	}
	n, _ := repo.Registration.CountByActivity(ctx, activity.ActivityID)
	if n != capacity {
		t.Errorf("最终报名人数应为 %d，实际 %d", capacity, n)
	}
}

func TestJoin_ConcurrentSameUser(t *testing.T) {
	activity := createActivity(t, nil)
	user := createUser(t, "dup")

	repo := repository.NewRepository(testDB)
	svc := service.NewRegistrationService(repo, nil, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Join(ctx, user.UserID, activity.ActivityID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
		} else if !errors.Is(err, service.ErrAlreadyRegistered) {
			t.Errorf("非预期错误: %v", err)
		}
	}
	if success != 1 {
		t.Errorf("同一用户并发报名应只成功一次，实际 %d", success)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Notifications
// ═══════════════════════════════════════════════════════════

func TestNotification_ReadState(t *testing.T) {
	alice := createUser(t, "alice")
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	global := &model.Notification{Type: model.NotificationTypeSystem, Title: "全局", Content: "hello"}
	personal := &model.Notification{UserID: &alice.UserID, Type: model.NotificationTypeRegistration, Title: "个人", Content: "hi"}
	for _, n := range []*model.Notification{global, personal} {
		if err := repo.Notification.Create(ctx, n); err != nil {
			t.Fatalf("创建通知失败: %v", err)
		}
	}
	t.Cleanup(func() {
		testDB.Exec("DELETE FROM notification_reads WHERE user_id = ?", alice.UserID)
		testDB.Unscoped().Where("notification_id IN ?", []string{global.NotificationID, personal.NotificationID}).Delete(&model.Notification{})
	})

	before, _ := repo.Notification.UnreadCount(ctx, alice.UserID)
	if err := repo.Notification.MarkRead(ctx, personal.NotificationID, alice.UserID); err != nil {
		t.Fatalf("标记已读失败: %v", err)
	}
	if err := repo.Notification.MarkRead(ctx, personal.NotificationID, alice.UserID); err != nil {
		t.Fatalf("重复标记已读应幂等: %v", err)
	}
	after, _ := repo.Notification.UnreadCount(ctx, alice.UserID)
	if after != before-1 {
		t.Errorf("未读数应减 1: before=%d after=%d", before, after)
	}

	rows, _, err := repo.Notification.ListForUser(ctx, alice.UserID, false, 0, 100)
	if err != nil {
		t.Fatalf("列表查询失败: %v", err)
	}
	for _, r := range rows {
		if r.NotificationID == personal.NotificationID && !r.IsRead {
			t.Error("个人通知应为已读")
		}
	}

	if _, err := repo.Notification.MarkAllRead(ctx, alice.UserID); err != nil {
		t.Fatalf("全部已读失败: %v", err)
	}
	if n, _ := repo.Notification.UnreadCount(ctx, alice.UserID); n != 0 {
		t.Errorf("全部已读后未读数应为 0，实际 %d", n)
	}
}
