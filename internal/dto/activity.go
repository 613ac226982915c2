package dto

import "time"

// ── 活动模块 DTO ──

// CreateActivityRequest 创建活动请求
type CreateActivityRequest struct {
	Title           string     `json:"title"            binding:"required,notblank,max=200"`
	Description     *string    `json:"description"      binding:"omitempty,max=5000"`
	Date            *time.Time `json:"date"             binding:"required"` // RFC3339
	Location        *string    `json:"location"         binding:"omitempty,max=200"`
	MaxParticipants *int       `json:"max_participants" binding:"omitempty,min=1"` // 为空表示不限人数
	IsActive        *bool      `json:"is_active"`                                  // 默认 true
}

// UpdateActivityRequest 更新活动请求（全量：title 与 date 必填）
type UpdateActivityRequest struct {
	Title           string     `json:"title"            binding:"required,notblank,max=200"`
	Description     *string    `json:"description"      binding:"omitempty,max=5000"`
	Date            *time.Time `json:"date"             binding:"required"`
	Location        *string    `json:"location"         binding:"omitempty,max=200"`
	MaxParticipants *int       `json:"max_participants" binding:"omitempty,min=1"`
	IsActive        *bool      `json:"is_active"`
	Version         *int       `json:"version"          binding:"omitempty,min=1"` // 携带时启用乐观锁校验
}

// ActivityListRequest 活动列表查询参数
type ActivityListRequest struct {
	StartDate  string `form:"start_date"  binding:"omitempty,max=35"` // YYYY-MM-DD 或 RFC3339
	EndDate    string `form:"end_date"    binding:"omitempty,max=35"`
	ActiveOnly bool   `form:"active_only"`
}

// ActivityResponse 活动信息响应（含报名派生字段）
type ActivityResponse struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      *string `json:"description,omitempty"`
	Date             string  `json:"date"`
	Location         *string `json:"location,omitempty"`
	MaxParticipants  *int    `json:"max_participants"`
	IsActive         bool    `json:"is_active"`
	ParticipantCount int     `json:"participant_count"`
	RemainingSlots   *int    `json:"remaining_slots"`              // 不限人数时为 null
	IsUserRegistered *bool   `json:"is_user_registered,omitempty"` // 仅在调用方身份已知时返回
	Version          int     `json:"version"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// ── 报名模块 DTO ──

// RegistrationRequest 报名 / 取消报名请求
type RegistrationRequest struct {
	ActivityID string `json:"activity_id" binding:"required,uuid"`
}

// JoinResponse 报名结果
type JoinResponse struct {
	ActivityID       string `json:"activity_id"`
	ParticipantCount int    `json:"participant_count"`
	Message          string `json:"message"`
}

// ParticipantResponse 活动参与者
type ParticipantResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	StudentCode *string `json:"student_code,omitempty"`
	JoinedAt    string  `json:"joined_at"`
}
