package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"volunteer-hub/internal/dto"
	"volunteer-hub/internal/model"
	"volunteer-hub/internal/repository"
)

const topActivitiesLimit = 5

// StatsService 管理端统计业务接口
type StatsService interface {
	Overview(ctx context.Context) (*dto.StatsOverviewResponse, error)
}

type statsService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewStatsService 创建 StatsService 实例
func NewStatsService(repo *repository.Repository, logger *zap.Logger) StatsService {
	return &statsService{repo: repo, logger: logger, now: time.Now}
}

func (s *statsService) Overview(ctx context.Context) (*dto.StatsOverviewResponse, error) {
	var (
		resp dto.StatsOverviewResponse
		err  error
	)

	if resp.TotalUsers, err = s.repo.User.CountByRole(ctx, ""); err != nil {
		return nil, s.fail("统计用户数", err)
	}
	if resp.AdminCount, err = s.repo.User.CountByRole(ctx, model.RoleAdmin); err != nil {
		return nil, s.fail("统计管理员数", err)
	}
	if resp.TotalActivities, err = s.repo.Activity.Count(ctx, repository.ActivityFilter{}); err != nil {
		return nil, s.fail("统计活动数", err)
	}
	if resp.ActiveActivities, err = s.repo.Activity.Count(ctx, repository.ActivityFilter{ActiveOnly: true}); err != nil {
		return nil, s.fail("统计开放活动数", err)
	}
	now := s.now()
	if resp.UpcomingActivities, err = s.repo.Activity.Count(ctx, repository.ActivityFilter{From: &now, ActiveOnly: true}); err != nil {
		return nil, s.fail("统计即将开始活动数", err)
	}
	if resp.TotalRegistrations, err = s.repo.Registration.Count(ctx); err != nil {
		return nil, s.fail("统计报名数", err)
	}
	if resp.DonationCount, resp.DonationAmount, err = s.repo.Donation.Totals(ctx); err != nil {
		return nil, s.fail("统计捐赠总额", err)
	}

	sections, err := s.repo.Donation.ListSections(ctx, false)
	if err != nil {
		return nil, s.fail("查询捐赠分类", err)
	}
	totals, err := s.repo.Donation.SectionTotals(ctx)
	if err != nil {
		return nil, s.fail("汇总分类捐赠", err)
	}
	resp.Sections = make([]dto.SectionAmount, 0, len(sections))
	for _, sec := range sections {
		t := totals[sec.SectionID]
		resp.Sections = append(resp.Sections, dto.SectionAmount{
			SectionID: sec.SectionID,
			Name:      sec.Name,
			Amount:    t.Amount,
			Count:     t.Count,
		})
	}
	sort.SliceStable(resp.Sections, func(i, j int) bool {
		return resp.Sections[i].Amount > resp.Sections[j].Amount
	})

	top, err := s.repo.Registration.TopActivities(ctx, topActivitiesLimit)
	if err != nil {
		return nil, s.fail("统计热门活动", err)
	}
	resp.TopActivities = make([]dto.ActivityRank, 0, len(top))
	for _, a := range top {
		resp.TopActivities = append(resp.TopActivities, dto.ActivityRank{
			ActivityID:       a.ActivityID,
			Title:            a.Title,
			ParticipantCount: a.ParticipantCount,
		})
	}

	return &resp, nil
}

func (s *statsService) fail(step string, err error) error {
	s.logger.Error(step+"失败", zap.Error(err))
	return err
}
