package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"volunteer-hub/internal/model"
	"volunteer-hub/internal/repository"
	pkgerrors "volunteer-hub/pkg/errors"
)

// ── 内存数据源 ──
// 各 mock 仓储共享同一份数据，保证报名 / 用户 / 活动之间的关联一致

type mockStore struct {
	seq           int
	clock         time.Time
	users         map[string]*model.User
	activities    map[string]*model.Activity
	registrations []model.Registration
	notifications map[string]*model.Notification
	reads         map[string]bool // notificationID|userID
	sections      map[string]*model.DonationSection
	donations     []model.Donation

	// 注入错误：非 nil 时对应操作直接返回该错误
	errCreateRegistration error
	errCreateNotification error
}

func newMockStore() *mockStore {
	return &mockStore{
		clock:         time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		users:         make(map[string]*model.User),
		activities:    make(map[string]*model.Activity),
		notifications: make(map[string]*model.Notification),
		reads:         make(map[string]bool),
		sections:      make(map[string]*model.DonationSection),
	}
}

// newMockRepository 返回基于内存数据源的 Repository 聚合
func newMockRepository() (*repository.Repository, *mockStore) {
	s := newMockStore()
	return &repository.Repository{
		User:         &mockUserRepo{s},
		Activity:     &mockActivityRepo{s},
		Registration: &mockRegistrationRepo{s},
		Notification: &mockNotificationRepo{s},
		Donation:     &mockDonationRepo{s},
	}, s
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// tick 单调递增的伪时钟，保证按时间排序稳定
func (s *mockStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// ── 测试数据构造 ──

func (s *mockStore) addUser(name, role string) *model.User {
	u := &model.User{
		UserID: s.nextID("user"),
		Email:  strings.ToLower(name) + "@uni.edu",
		Name:   name,
		Role:   role,
	}
	u.CreatedAt = s.tick()
	s.users[u.UserID] = u
	return u
}

func (s *mockStore) addActivity(title string, max *int, active bool) *model.Activity {
	a := &model.Activity{
		ActivityID:      s.nextID("act"),
		Title:           title,
		Date:            s.clock.AddDate(0, 0, len(s.activities)+1),
		MaxParticipants: max,
		IsActive:        active,
	}
	a.Version = 1
	a.CreatedAt = s.tick()
	a.UpdatedAt = a.CreatedAt
	s.activities[a.ActivityID] = a
	return a
}

func (s *mockStore) countRegistrations(activityID string) int {
	n := 0
	for _, r := range s.registrations {
		if r.ActivityID == activityID {
			n++
		}
	}
	return n
}

func (s *mockStore) personalNotifications(userID string) []*model.Notification {
	var result []*model.Notification
	for _, n := range s.notifications {
		if n.UserID != nil && *n.UserID == userID {
			result = append(result, n)
		}
	}
	return result
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// ── Mock UserRepository ──

type mockUserRepo struct{ s *mockStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	user.CreatedAt = m.s.tick()
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByExternalID(_ context.Context, externalID string) (*model.User, error) {
	for _, u := range m.s.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id, _ string) error {
	if _, ok := m.s.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(u.Name, filter.Keyword) && !strings.Contains(u.Email, filter.Keyword) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	var n int64
	for _, u := range m.s.users {
		if role == "" || u.Role == role {
			n++
		}
	}
	return n, nil
}

// ── Mock ActivityRepository ──

type mockActivityRepo struct{ s *mockStore }

func (m *mockActivityRepo) Create(_ context.Context, a *model.Activity) error {
	a.ActivityID = m.s.nextID("act")
	a.Version = 1
	a.CreatedAt = m.s.tick()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.s.activities[a.ActivityID] = &cp
	return nil
}

func (m *mockActivityRepo) GetByID(_ context.Context, id string) (*model.Activity, error) {
	if a, ok := m.s.activities[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockActivityRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Activity, error) {
	return m.GetByID(ctx, id)
}

func (m *mockActivityRepo) match(a *model.Activity, f repository.ActivityFilter) bool {
	if f.From != nil && a.Date.Before(*f.From) {
		return false
	}
	if f.Before != nil && !a.Date.Before(*f.Before) {
		return false
	}
	return !f.ActiveOnly || a.IsActive
}

func (m *mockActivityRepo) List(_ context.Context, f repository.ActivityFilter) ([]model.Activity, error) {
	var result []model.Activity
	for _, a := range m.s.activities {
		if m.match(a, f) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockActivityRepo) Count(_ context.Context, f repository.ActivityFilter) (int64, error) {
	var n int64
	for _, a := range m.s.activities {
		if m.match(a, f) {
			n++
		}
	}
	return n, nil
}

func (m *mockActivityRepo) Update(_ context.Context, a *model.Activity) error {
	cur, ok := m.s.activities[a.ActivityID]
	if !ok || cur.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	a.UpdatedAt = m.s.tick()
	cp := *a
	m.s.activities[a.ActivityID] = &cp
	return nil
}

func (m *mockActivityRepo) Delete(_ context.Context, id, _ string) error {
	if _, ok := m.s.activities[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.activities, id)
	return nil
}

// ── Mock RegistrationRepository ──

type mockRegistrationRepo struct{ s *mockStore }

func (m *mockRegistrationRepo) Create(_ context.Context, reg *model.Registration) error {
	if m.s.errCreateRegistration != nil {
		return m.s.errCreateRegistration
	}
	for _, r := range m.s.registrations {
		if r.ActivityID == reg.ActivityID && r.UserID == reg.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	reg.RegistrationID = m.s.nextID("reg")
	reg.CreatedAt = m.s.tick()
	m.s.registrations = append(m.s.registrations, *reg)
	return nil
}

func (m *mockRegistrationRepo) Exists(_ context.Context, activityID, userID string) (bool, error) {
	for _, r := range m.s.registrations {
		if r.ActivityID == activityID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRegistrationRepo) CountByActivity(_ context.Context, activityID string) (int64, error) {
	return int64(m.s.countRegistrations(activityID)), nil
}

func (m *mockRegistrationRepo) CountByActivities(_ context.Context, ids []string) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, id := range ids {
		if n := m.s.countRegistrations(id); n > 0 {
			counts[id] = int64(n)
		}
	}
	return counts, nil
}

func (m *mockRegistrationRepo) RegisteredActivityIDs(_ context.Context, userID string, ids []string) (map[string]bool, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	set := make(map[string]bool)
	for _, r := range m.s.registrations {
		if r.UserID == userID && want[r.ActivityID] {
			set[r.ActivityID] = true
		}
	}
	return set, nil
}

func (m *mockRegistrationRepo) removeWhere(keep func(r model.Registration) bool) int64 {
	var kept []model.Registration
	var removed int64
	for _, r := range m.s.registrations {
		if keep(r) {
			kept = append(kept, r)
		} else {
			removed++
		}
	}
	m.s.registrations = kept
	return removed
}

func (m *mockRegistrationRepo) Delete(_ context.Context, activityID, userID string) error {
	n := m.removeWhere(func(r model.Registration) bool {
		return r.ActivityID != activityID || r.UserID != userID
	})
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (m *mockRegistrationRepo) DeleteByActivity(_ context.Context, activityID string) (int64, error) {
	return m.removeWhere(func(r model.Registration) bool { return r.ActivityID != activityID }), nil
}

func (m *mockRegistrationRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	return m.removeWhere(func(r model.Registration) bool { return r.UserID != userID }), nil
}

func (m *mockRegistrationRepo) ListByActivity(_ context.Context, activityID string) ([]model.Registration, error) {
	var result []model.Registration
	for _, r := range m.s.registrations {
		if r.ActivityID != activityID {
			continue
		}
		if u, ok := m.s.users[r.UserID]; ok {
			cp := *u
			r.User = &cp
		}
		result = append(result, r)
	}
	return result, nil
}

func (m *mockRegistrationRepo) ListByUser(_ context.Context, userID string) ([]model.Registration, error) {
	var result []model.Registration
	for _, r := range m.s.registrations {
		if r.UserID != userID {
			continue
		}
		if a, ok := m.s.activities[r.ActivityID]; ok {
			cp := *a
			r.Activity = &cp
		}
		result = append(result, r)
	}
	return result, nil
}

func (m *mockRegistrationRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.s.registrations)), nil
}

func (m *mockRegistrationRepo) TopActivities(_ context.Context, limit int) ([]repository.ActivityCount, error) {
	var result []repository.ActivityCount
	for _, a := range m.s.activities {
		if n := m.s.countRegistrations(a.ActivityID); n > 0 {
			result = append(result, repository.ActivityCount{
				ActivityID:       a.ActivityID,
				Title:            a.Title,
				ParticipantCount: int64(n),
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ParticipantCount != result[j].ParticipantCount {
			return result[i].ParticipantCount > result[j].ParticipantCount
		}
		return result[i].Title < result[j].Title
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *mockStore }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if m.s.errCreateNotification != nil {
		return m.s.errCreateNotification
	}
	n.NotificationID = m.s.nextID("ntf")
	n.CreatedAt = m.s.tick()
	cp := *n
	m.s.notifications[n.NotificationID] = &cp
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	if n, ok := m.s.notifications[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) visible(userID string) []model.Notification {
	var result []model.Notification
	for _, n := range m.s.notifications {
		if n.UserID == nil || *n.UserID == userID {
			result = append(result, *n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

func (m *mockNotificationRepo) ListForUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]repository.NotificationView, int64, error) {
	var all []repository.NotificationView
	for _, n := range m.visible(userID) {
		read := m.s.reads[n.NotificationID+"|"+userID]
		if unreadOnly && read {
			continue
		}
		all = append(all, repository.NotificationView{Notification: n, IsRead: read})
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, notificationID, userID string) error {
	m.s.reads[notificationID+"|"+userID] = true
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, ntf := range m.visible(userID) {
		key := ntf.NotificationID + "|" + userID
		if !m.s.reads[key] {
			m.s.reads[key] = true
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) UnreadCount(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, ntf := range m.visible(userID) {
		if !m.s.reads[ntf.NotificationID+"|"+userID] {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) Delete(_ context.Context, id, _ string) error {
	if _, ok := m.s.notifications[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.notifications, id)
	return nil
}

// ── Mock DonationRepository ──

type mockDonationRepo struct{ s *mockStore }

func (m *mockDonationRepo) CreateSection(_ context.Context, sec *model.DonationSection) error {
	sec.SectionID = m.s.nextID("sec")
	sec.CreatedAt = m.s.tick()
	cp := *sec
	m.s.sections[sec.SectionID] = &cp
	return nil
}

func (m *mockDonationRepo) GetSectionByID(_ context.Context, id string) (*model.DonationSection, error) {
	if sec, ok := m.s.sections[id]; ok {
		cp := *sec
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDonationRepo) UpdateSection(_ context.Context, sec *model.DonationSection) error {
	cp := *sec
	m.s.sections[sec.SectionID] = &cp
	return nil
}

func (m *mockDonationRepo) ListSections(_ context.Context, activeOnly bool) ([]model.DonationSection, error) {
	var result []model.DonationSection
	for _, sec := range m.s.sections {
		if activeOnly && !sec.IsActive {
			continue
		}
		result = append(result, *sec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockDonationRepo) DeleteSection(_ context.Context, id, _ string) error {
	if _, ok := m.s.sections[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.sections, id)
	return nil
}

func (m *mockDonationRepo) SectionTotals(_ context.Context) (map[string]repository.SectionTotal, error) {
	totals := make(map[string]repository.SectionTotal)
	for _, d := range m.s.donations {
		t := totals[d.SectionID]
		t.SectionID = d.SectionID
		t.Amount += d.Amount
		t.Count++
		totals[d.SectionID] = t
	}
	return totals, nil
}

func (m *mockDonationRepo) Create(_ context.Context, d *model.Donation) error {
	d.DonationID = m.s.nextID("don")
	d.CreatedAt = m.s.tick()
	m.s.donations = append(m.s.donations, *d)
	return nil
}

func (m *mockDonationRepo) CountBySection(_ context.Context, sectionID string) (int64, error) {
	var n int64
	for _, d := range m.s.donations {
		if d.SectionID == sectionID {
			n++
		}
	}
	return n, nil
}

func (m *mockDonationRepo) List(_ context.Context, f repository.DonationFilter, offset, limit int) ([]model.Donation, int64, error) {
	var all []model.Donation
	for i := len(m.s.donations) - 1; i >= 0; i-- {
		d := m.s.donations[i]
		if f.UserID != "" && d.UserID != f.UserID {
			continue
		}
		if f.SectionID != "" && d.SectionID != f.SectionID {
			continue
		}
		if sec, ok := m.s.sections[d.SectionID]; ok {
			cp := *sec
			d.Section = &cp
		}
		if u, ok := m.s.users[d.UserID]; ok {
			cp := *u
			d.User = &cp
		}
		all = append(all, d)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockDonationRepo) Totals(_ context.Context) (int64, int64, error) {
	var count, amount int64
	for _, d := range m.s.donations {
		count++
		amount += d.Amount
	}
	return count, amount, nil
}
