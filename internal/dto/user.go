package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=ADMIN STUDENT"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// CreateUserRequest 管理员创建用户请求
// Password 为空时只能通过第三方身份登录
type CreateUserRequest struct {
	Email       string  `json:"email"        binding:"required,email,max=255"`
	Name        string  `json:"name"         binding:"required,notblank,max=100"`
	StudentCode *string `json:"student_code" binding:"omitempty,max=32"`
	Role        string  `json:"role"         binding:"omitempty,oneof=ADMIN STUDENT"`
	Password    *string `json:"password"     binding:"omitempty,min=8,max=64"`
}

// UpdateUserRequest 管理员更新用户请求
type UpdateUserRequest struct {
	Name        *string `json:"name"         binding:"omitempty,notblank,max=100"`
	StudentCode *string `json:"student_code" binding:"omitempty,max=32"`
	Role        *string `json:"role"         binding:"omitempty,oneof=ADMIN STUDENT"`
}

// UpdateProfileRequest 本人更新资料请求
type UpdateProfileRequest struct {
	Name        *string `json:"name"         binding:"omitempty,notblank,max=100"`
	StudentCode *string `json:"student_code" binding:"omitempty,max=32"`
}

// AssignRoleRequest 分配角色请求
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=ADMIN STUDENT"`
}
