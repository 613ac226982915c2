package dto

// ── 通知模块 DTO ──

// CreateNotificationRequest 管理员发布通知请求；UserID 为空表示全局通知
type CreateNotificationRequest struct {
	UserID  *string `json:"user_id" binding:"omitempty,uuid"`
	Type    string  `json:"type"    binding:"omitempty,oneof=system activity registration"`
	Title   string  `json:"title"   binding:"required,notblank,max=200"`
	Content string  `json:"content" binding:"required,notblank,max=5000"`
}

// NotificationListRequest 通知列表查询参数
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse 通知响应
type NotificationResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	IsGlobal  bool   `json:"is_global"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// UnreadCountResponse 未读数量
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
