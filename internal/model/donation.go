package model

import "time"

// DonationSection 捐赠分类，对应 donation_sections
type DonationSection struct {
	SectionID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"section_id"`
	Name        string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Description *string `gorm:"type:text"                                      json:"description,omitempty"`
	GoalAmount  *int64  `json:"goal_amount,omitempty"` // 单位：分
	IsActive    bool    `gorm:"not null"                                       json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (DonationSection) TableName() string { return "donation_sections" }

// Donation 捐赠记录，对应 donations（仅记账，不涉及支付）
type Donation struct {
	DonationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"donation_id"`
	SectionID  string    `gorm:"type:uuid;not null"                             json:"section_id"`
	UserID     string    `gorm:"type:uuid;not null"                             json:"user_id"`
	Amount     int64     `gorm:"not null"                                       json:"amount"` // 单位：分
	Message    *string   `gorm:"type:varchar(500)"                              json:"message,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Section *DonationSection `gorm:"foreignKey:SectionID;references:SectionID" json:"section,omitempty"`
	User    *User            `gorm:"foreignKey:UserID;references:UserID"       json:"user,omitempty"`
}

// TableName 指定表名
func (Donation) TableName() string { return "donations" }
