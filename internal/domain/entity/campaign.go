// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
)

// Campaign 上游分析活动（POV 报告），为构件生成提供输入
type Campaign struct {
	ID                 string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID             string         `json:"user_id" gorm:"type:varchar(128);index;not null"`
	VendorName         string         `json:"vendor_name" gorm:"type:varchar(256);not null"`
	VendorServices     string         `json:"vendor_services" gorm:"type:text"`
	TargetCustomerName string         `json:"target_customer_name" gorm:"type:varchar(256);not null"`
	RoleNames          pq.StringArray `json:"role_names" gorm:"type:text[]"`
	AdditionalContext  string         `json:"additional_context" gorm:"type:text"`
	CreatedAt          time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignOutcome 活动分析结论，title/summary 形状的只读投影
type CampaignOutcome struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	CampaignID   string    `json:"campaign_id" gorm:"type:uuid;not null;uniqueIndex:ux_campaign_outcome"`
	OutcomeIndex int       `json:"outcome_index" gorm:"not null;uniqueIndex:ux_campaign_outcome"`
	Title        string    `json:"title" gorm:"type:varchar(512);not null"`
	Summary      string    `json:"summary" gorm:"type:text"`
	Selected     bool      `json:"selected" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (CampaignOutcome) TableName() string {
	return "campaign_outcomes"
}
