// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// ArtifactType 业务文档类型
type ArtifactType string

const (
	ArtifactTypeWhitepaper     ArtifactType = "whitepaper"
	ArtifactTypeMarketingAsset ArtifactType = "marketing_asset"
	ArtifactTypeColdEmail      ArtifactType = "cold_email"
	ArtifactTypeSalesScript    ArtifactType = "sales_script"
)

// ParseArtifactType 校验并解析构件类型
func ParseArtifactType(s string) (ArtifactType, error) {
	switch ArtifactType(s) {
	case ArtifactTypeWhitepaper, ArtifactTypeMarketingAsset, ArtifactTypeColdEmail, ArtifactTypeSalesScript:
		return ArtifactType(s), nil
	default:
		return "", fmt.Errorf("invalid artifact type: %s", s)
	}
}

// 营销资产子类型
const (
	AssetKindOnePager     = "one_pager"
	AssetKindLinkedInPost = "linkedin_post"
	AssetKindBlog         = "blog"
	AssetKindLandingPage  = "landing_page"
	AssetKindPressRelease = "press_release"
)

// 销售话术场景
const (
	ScenarioColdCall          = "cold_call"
	ScenarioDiscovery         = "discovery"
	ScenarioObjectionHandling = "objection_handling"
	ScenarioDemoIntro         = "demo_intro"
	ScenarioFollowUp          = "follow_up"
)

// ArtifactMeta 各类型构件的附加参数，整体存为 jsonb
type ArtifactMeta struct {
	// AssetKind 营销资产子类型（one_pager / linkedin_post / blog / landing_page / press_release）
	AssetKind string `json:"asset_kind,omitempty"`
	// Scenario 销售话术场景（cold_call / discovery / objection_handling / demo_intro / follow_up）
	Scenario string `json:"scenario,omitempty"`
	// 冷启动邮件收件人信息
	RecipientName    string `json:"recipient_name,omitempty"`
	RecipientEmail   string `json:"recipient_email,omitempty"`
	RecipientCompany string `json:"recipient_company,omitempty"`
	// SelectedOutcomes 生成时选中的结论序号
	SelectedOutcomes []int `json:"selected_outcomes,omitempty"`
}

// Artifact 一份受版本账本管理的业务文档
type Artifact struct {
	ID         string       `json:"id" gorm:"type:uuid;primaryKey"`
	CampaignID string       `json:"campaign_id" gorm:"type:uuid;index;not null"`
	Type       ArtifactType `json:"type" gorm:"type:varchar(32);not null"`
	// Title 当前标题，自最新版本反规范化而来
	Title string `json:"title" gorm:"type:varchar(512);not null"`
	// CurrentVersionNo 恒等于账本中最大的 version_no
	CurrentVersionNo int             `json:"current_version_no" gorm:"not null"`
	Meta             json.RawMessage `json:"meta,omitempty" gorm:"type:jsonb"`
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Artifact) TableName() string {
	return "artifacts"
}

// DecodeMeta 解析附加参数
func (a *Artifact) DecodeMeta() (ArtifactMeta, error) {
	var meta ArtifactMeta
	if len(a.Meta) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(a.Meta, &meta); err != nil {
		return meta, fmt.Errorf("failed to decode artifact meta: %w", err)
	}
	return meta, nil
}

// ArtifactVersion 账本中的一条不可变版本记录。
// 只增不改：任何操作都不得重写或重排已有版本。
type ArtifactVersion struct {
	ID         string `json:"id" gorm:"type:uuid;primaryKey"`
	ArtifactID string `json:"artifact_id" gorm:"type:uuid;not null;uniqueIndex:ux_artifact_version"`
	VersionNo  int    `json:"version_no" gorm:"not null;uniqueIndex:ux_artifact_version"`
	// Content 完整正文，对本系统而言是不透明字符串
	Content       string `json:"content" gorm:"type:text;not null"`
	TitleSnapshot string `json:"title_snapshot" gorm:"type:varchar(512);not null"`
	// EditDescriptor 产生该版本的动作描述：初次生成、用户指令或直接编辑
	EditDescriptor string    `json:"edit_descriptor" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ArtifactVersion) TableName() string {
	return "artifact_versions"
}

// 版本来源描述
const (
	DescriptorInitialGeneration = "initial generation"
	DescriptorDirectEdit        = "direct edit"
)

// RestoreDescriptor 恢复历史版本的来源描述
func RestoreDescriptor(versionNo int) string {
	return fmt.Sprintf("restored from version %d", versionNo)
}
