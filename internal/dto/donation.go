package dto

// ── 捐赠模块 DTO ──

// CreateDonationSectionRequest 创建捐赠分类
type CreateDonationSectionRequest struct {
	Name        string  `json:"name"        binding:"required,notblank,max=100"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	GoalAmount  *int64  `json:"goal_amount" binding:"omitempty,min=1"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateDonationSectionRequest 更新捐赠分类
type UpdateDonationSectionRequest struct {
	Name        *string `json:"name"        binding:"omitempty,notblank,max=100"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	GoalAmount  *int64  `json:"goal_amount" binding:"omitempty,min=1"`
	IsActive    *bool   `json:"is_active"`
}

// DonationSectionListRequest 捐赠分类查询参数
type DonationSectionListRequest struct {
	ActiveOnly bool `form:"active_only"`
}

// DonationSectionResponse 捐赠分类响应（含汇总）
type DonationSectionResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	GoalAmount    *int64  `json:"goal_amount"`
	IsActive      bool    `json:"is_active"`
	RaisedAmount  int64   `json:"raised_amount"`
	DonationCount int64   `json:"donation_count"`
}

// DonateRequest 捐赠请求（金额单位：分）
type DonateRequest struct {
	SectionID string  `json:"section_id" binding:"required,uuid"`
	Amount    int64   `json:"amount"     binding:"required,min=1,max=100000000"`
	Message   *string `json:"message"    binding:"omitempty,max=500"`
}

// DonationListRequest 捐赠记录查询参数
type DonationListRequest struct {
	PaginationRequest
	SectionID string `form:"section_id" binding:"omitempty,uuid"`
}

// DonationResponse 捐赠记录响应
type DonationResponse struct {
	ID          string  `json:"id"`
	SectionID   string  `json:"section_id"`
	SectionName string  `json:"section_name,omitempty"`
	UserID      string  `json:"user_id"`
	UserName    string  `json:"user_name,omitempty"`
	Amount      int64   `json:"amount"`
	Message     *string `json:"message,omitempty"`
	CreatedAt   string  `json:"created_at"`
}
