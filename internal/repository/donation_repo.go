package repository

import (
	"context"

	"gorm.io/gorm"

	"volunteer-hub/internal/model"
)

// SectionTotal 分类捐赠汇总
type SectionTotal struct {
	SectionID string
	Amount    int64
	Count     int64
}

// DonationFilter 捐赠记录过滤条件
type DonationFilter struct {
	UserID    string
	SectionID string
}

// DonationRepository 捐赠分类与捐赠记录数据访问接口
type DonationRepository interface {
	CreateSection(ctx context.Context, section *model.DonationSection) error
	GetSectionByID(ctx context.Context, id string) (*model.DonationSection, error)
	UpdateSection(ctx context.Context, section *model.DonationSection) error
	ListSections(ctx context.Context, activeOnly bool) ([]model.DonationSection, error)
	DeleteSection(ctx context.Context, id, deletedBy string) error
	// SectionTotals 按分类汇总，key 为 section_id
	SectionTotals(ctx context.Context) (map[string]SectionTotal, error)

	Create(ctx context.Context, donation *model.Donation) error
	CountBySection(ctx context.Context, sectionID string) (int64, error)
	List(ctx context.Context, filter DonationFilter, offset, limit int) ([]model.Donation, int64, error)
	// Totals 全部捐赠笔数与金额
	Totals(ctx context.Context) (count int64, amount int64, err error)
}

type donationRepo struct {
	db *gorm.DB
}

// NewDonationRepo 创建 DonationRepository 实例
func NewDonationRepo(db *gorm.DB) DonationRepository {
	return &donationRepo{db: db}
}

// ── 捐赠分类 ──

func (r *donationRepo) CreateSection(ctx context.Context, section *model.DonationSection) error {
	return r.db.WithContext(ctx).Create(section).Error
}

func (r *donationRepo) GetSectionByID(ctx context.Context, id string) (*model.DonationSection, error) {
	var section model.DonationSection
	err := r.db.WithContext(ctx).
		Where("section_id = ?", id).
		First(&section).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *donationRepo) UpdateSection(ctx context.Context, section *model.DonationSection) error {
	return r.db.WithContext(ctx).Save(section).Error
}

func (r *donationRepo) ListSections(ctx context.Context, activeOnly bool) ([]model.DonationSection, error) {
	var sections []model.DonationSection
	db := r.db.WithContext(ctx).Model(&model.DonationSection{})
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("created_at ASC").Find(&sections).Error
	return sections, err
}

func (r *donationRepo) DeleteSection(ctx context.Context, id, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.DonationSection{}).
		Where("section_id = ?", id).
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

func (r *donationRepo) SectionTotals(ctx context.Context) (map[string]SectionTotal, error) {
	var rows []SectionTotal
	err := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Select("section_id, COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count").
		Group("section_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[string]SectionTotal, len(rows))
	for _, row := range rows {
		totals[row.SectionID] = row
	}
	return totals, nil
}

// ── 捐赠记录 ──

func (r *donationRepo) Create(ctx context.Context, donation *model.Donation) error {
	return r.db.WithContext(ctx).Create(donation).Error
}

func (r *donationRepo) CountBySection(ctx context.Context, sectionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Where("section_id = ?", sectionID).
		Count(&n).Error
	return n, err
}

func (r *donationRepo) List(ctx context.Context, filter DonationFilter, offset, limit int) ([]model.Donation, int64, error) {
	var donations []model.Donation
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Donation{})
	if filter.UserID != "" {
		db = db.Where("user_id = ?", filter.UserID)
	}
	if filter.SectionID != "" {
		db = db.Where("section_id = ?", filter.SectionID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Section", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Preload("User", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&donations).Error
	if err != nil {
		return nil, 0, err
	}
	return donations, total, nil
}

func (r *donationRepo) Totals(ctx context.Context) (int64, int64, error) {
	var row struct {
		Count  int64
		Amount int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Scan(&row).Error
	return row.Count, row.Amount, err
}
