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

// ── 捐赠模块业务错误 ──

var (
	ErrSectionNotFound       = fmt.Errorf("%w: 捐赠分类不存在", pkgerrors.ErrNotFound)
	ErrSectionInactive       = fmt.Errorf("%w: 捐赠分类已关闭", pkgerrors.ErrInvalidState)
	ErrSectionHasDonations   = fmt.Errorf("%w: 分类下已有捐赠记录，无法删除", pkgerrors.ErrConflict)
	ErrSectionNameRequired   = fmt.Errorf("%w: 分类名称不能为空", pkgerrors.ErrValidation)
	ErrInvalidDonationAmount = fmt.Errorf("%w: 捐赠金额必须大于 0", pkgerrors.ErrValidation)
)

// DonationService 捐赠业务接口（仅记账，不涉及支付）
type DonationService interface {
	CreateSection(ctx context.Context, req *dto.CreateDonationSectionRequest, callerID string) (*dto.DonationSectionResponse, error)
	UpdateSection(ctx context.Context, id string, req *dto.UpdateDonationSectionRequest, callerID string) (*dto.DonationSectionResponse, error)
	ListSections(ctx context.Context, activeOnly bool) ([]dto.DonationSectionResponse, error)
	DeleteSection(ctx context.Context, id, callerID string) error

	Donate(ctx context.Context, userID string, req *dto.DonateRequest) (*dto.DonationResponse, error)
	ListMyDonations(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.DonationResponse, int64, error)
	ListDonations(ctx context.Context, req *dto.DonationListRequest) ([]dto.DonationResponse, int64, error)
}

type donationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDonationService 创建 DonationService 实例
func NewDonationService(repo *repository.Repository, logger *zap.Logger) DonationService {
	return &donationService{repo: repo, logger: logger}
}

func (s *donationService) getSection(ctx context.Context, id string) (*model.DonationSection, error) {
	section, err := s.repo.Donation.GetSectionByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		s.logger.Error("查询捐赠分类失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return section, nil
}

// ────────────────────── 分类管理 ──────────────────────

func (s *donationService) CreateSection(ctx context.Context, req *dto.CreateDonationSectionRequest, callerID string) (*dto.DonationSectionResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrSectionNameRequired
	}

	section := &model.DonationSection{
		Name:        name,
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
		IsActive:    true,
	}
	if req.IsActive != nil {
		section.IsActive = *req.IsActive
	}
	section.CreatedBy = &callerID

	if err := s.repo.Donation.CreateSection(ctx, section); err != nil {
		s.logger.Error("创建捐赠分类失败", zap.Error(err))
		return nil, err
	}
	return toSectionResponse(section, repository.SectionTotal{}), nil
}

func (s *donationService) UpdateSection(ctx context.Context, id string, req *dto.UpdateDonationSectionRequest, callerID string) (*dto.DonationSectionResponse, error) {
	section, err := s.getSection(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrSectionNameRequired
		}
		section.Name = name
	}
	if req.Description != nil {
		section.Description = req.Description
	}
	if req.GoalAmount != nil {
		section.GoalAmount = req.GoalAmount
	}
	if req.IsActive != nil {
		section.IsActive = *req.IsActive
	}
	section.UpdatedBy = &callerID

	if err := s.repo.Donation.UpdateSection(ctx, section); err != nil {
		s.logger.Error("更新捐赠分类失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	totals, err := s.repo.Donation.SectionTotals(ctx)
	if err != nil {
		return nil, err
	}
	return toSectionResponse(section, totals[id]), nil
}

func (s *donationService) ListSections(ctx context.Context, activeOnly bool) ([]dto.DonationSectionResponse, error) {
	sections, err := s.repo.Donation.ListSections(ctx, activeOnly)
	if err != nil {
		s.logger.Error("查询捐赠分类失败", zap.Error(err))
		return nil, err
	}
	totals, err := s.repo.Donation.SectionTotals(ctx)
	if err != nil {
		s.logger.Error("汇总捐赠金额失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.DonationSectionResponse, 0, len(sections))
	for i := range sections {
		result = append(result, *toSectionResponse(&sections[i], totals[sections[i].SectionID]))
	}
	return result, nil
}

func (s *donationService) DeleteSection(ctx context.Context, id, callerID string) error {
	if _, err := s.getSection(ctx, id); err != nil {
		return err
	}

	n, err := s.repo.Donation.CountBySection(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrSectionHasDonations
	}

	if err := s.repo.Donation.DeleteSection(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSectionNotFound
		}
		s.logger.Error("删除捐赠分类失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 捐赠 ──────────────────────

func (s *donationService) Donate(ctx context.Context, userID string, req *dto.DonateRequest) (*dto.DonationResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidDonationAmount
	}

	section, err := s.getSection(ctx, req.SectionID)
	if err != nil {
		return nil, err
	}
	if !section.IsActive {
		return nil, ErrSectionInactive
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	donation := &model.Donation{
		SectionID: section.SectionID,
		UserID:    userID,
		Amount:    req.Amount,
		Message:   req.Message,
	}
	if err := s.repo.Donation.Create(ctx, donation); err != nil {
		s.logger.Error("记录捐赠失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	donation.Section = section
	donation.User = user

	s.logger.Info("收到捐赠",
		zap.String("section_id", section.SectionID),
		zap.String("user_id", userID),
		zap.Int64("amount", req.Amount),
	)
	return toDonationResponse(donation), nil
}

func (s *donationService) ListMyDonations(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.DonationResponse, int64, error) {
	return s.list(ctx, repository.DonationFilter{UserID: userID}, page)
}

func (s *donationService) ListDonations(ctx context.Context, req *dto.DonationListRequest) ([]dto.DonationResponse, int64, error) {
	return s.list(ctx, repository.DonationFilter{SectionID: req.SectionID}, &req.PaginationRequest)
}

func (s *donationService) list(ctx context.Context, filter repository.DonationFilter, page *dto.PaginationRequest) ([]dto.DonationResponse, int64, error) {
	donations, total, err := s.repo.Donation.List(ctx, filter, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询捐赠记录失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.DonationResponse, 0, len(donations))
	for i := range donations {
		result = append(result, *toDonationResponse(&donations[i]))
	}
	return result, total, nil
}

// ── 转换 ──

func toSectionResponse(s *model.DonationSection, total repository.SectionTotal) *dto.DonationSectionResponse {
	return &dto.DonationSectionResponse{
		ID:            s.SectionID,
		Name:          s.Name,
		Description:   s.Description,
		GoalAmount:    s.GoalAmount,
		IsActive:      s.IsActive,
		RaisedAmount:  total.Amount,
		DonationCount: total.Count,
	}
}

func toDonationResponse(d *model.Donation) *dto.DonationResponse {
	resp := &dto.DonationResponse{
		ID:        d.DonationID,
		SectionID: d.SectionID,
		UserID:    d.UserID,
		Amount:    d.Amount,
		Message:   d.Message,
		CreatedAt: formatTime(d.CreatedAt),
	}
	if d.Section != nil {
		resp.SectionName = d.Section.Name
	}
	if d.User != nil {
		resp.UserName = d.User.Name
	}
	return resp
}
