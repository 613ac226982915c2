package model

import "time"

// Activity 志愿活动表，对应 activities
type Activity struct {
	ActivityID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"activity_id"`
	Title           string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Description     *string   `gorm:"type:text"                                      json:"description,omitempty"`
	Date            time.Time `gorm:"type:timestamptz;not null"                      json:"date"`
	Location        *string   `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	MaxParticipants *int      `json:"max_participants,omitempty"` // NULL 表示不限人数
	IsActive        bool      `gorm:"not null"                                       json:"is_active"`
	VersionedModel

	// 关联
	Registrations []Registration `gorm:"foreignKey:ActivityID;references:ActivityID" json:"registrations,omitempty"`
}

// TableName 指定表名
func (Activity) TableName() string { return "activities" }

// Registration 报名关系表，对应 registrations，(activity_id, user_id) 唯一
type Registration struct {
	RegistrationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"          json:"registration_id"`
	ActivityID     string    `gorm:"type:uuid;not null;uniqueIndex:uk_registrations_activity_user" json:"activity_id"`
	UserID         string    `gorm:"type:uuid;not null;uniqueIndex:uk_registrations_activity_user" json:"user_id"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                      json:"created_at"`

	// 关联
	User     *User     `gorm:"foreignKey:UserID;references:UserID"         json:"user,omitempty"`
	Activity *Activity `gorm:"foreignKey:ActivityID;references:ActivityID" json:"activity,omitempty"`
}

// TableName 指定表名
func (Registration) TableName() string { return "registrations" }
