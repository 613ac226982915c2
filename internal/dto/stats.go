package dto

// ── 统计模块 DTO ──

// SectionAmount 分类捐赠汇总
type SectionAmount struct {
	SectionID string `json:"section_id"`
	Name      string `json:"name"`
	Amount    int64  `json:"amount"`
	Count     int64  `json:"count"`
}

// ActivityRank 活动报名排行
type ActivityRank struct {
	ActivityID       string `json:"activity_id"`
	Title            string `json:"title"`
	ParticipantCount int64  `json:"participant_count"`
}

// StatsOverviewResponse 管理端统计概览
type StatsOverviewResponse struct {
	TotalUsers         int64           `json:"total_users"`
	AdminCount         int64           `json:"admin_count"`
	TotalActivities    int64           `json:"total_activities"`
	ActiveActivities   int64           `json:"active_activities"`
	UpcomingActivities int64           `json:"upcoming_activities"`
	TotalRegistrations int64           `json:"total_registrations"`
	DonationCount      int64           `json:"donation_count"`
	DonationAmount     int64           `json:"donation_amount"`
	Sections           []SectionAmount `json:"sections"`
	TopActivities      []ActivityRank  `json:"top_activities"`
}
