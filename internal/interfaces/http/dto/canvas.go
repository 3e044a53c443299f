package dto

import (
	"pov-canvas-api/internal/application/canvas"
)

// GenerateArtifactRequest 首次生成构件请求
type GenerateArtifactRequest struct {
	Type  string `json:"type" binding:"required"`
	Title string `json:"title" binding:"required"`
	// SelectedOutcomes 选中的结论序号；为空时使用活动当前的选中状态
	SelectedOutcomes   []int  `json:"selected_outcomes"`
	CustomInstructions string `json:"custom_instructions"`

	// 营销资产子类型（marketing_asset）
	AssetKind string `json:"asset_kind"`
	// 销售话术场景（sales_script）
	Scenario string `json:"scenario"`
	// 冷启动邮件收件人信息（cold_email）
	RecipientName    string `json:"recipient_name"`
	RecipientEmail   string `json:"recipient_email"`
	RecipientCompany string `json:"recipient_company"`
}

// SubmitEditRequest 编辑请求：二选一
type SubmitEditRequest struct {
	// Kind instruction | direct
	Kind string `json:"kind" binding:"required"`
	// Instruction 自然语言指令（kind == instruction）
	Instruction string `json:"instruction"`
	// Content 直接替换的完整正文（kind == direct）
	Content string `json:"content"`
}

// ViewVersionRequest 查看历史版本；VersionNo 为 null 或 0 表示回到 Live
type ViewVersionRequest struct {
	VersionNo *int `json:"version_no"`
}

// RestoreVersionRequest 恢复历史版本
type RestoreVersionRequest struct {
	VersionNo int `json:"version_no" binding:"required"`
}

// ViewStateResponse 视图状态响应
type ViewStateResponse struct {
	Mode             string `json:"mode"`
	ViewingVersion   int    `json:"viewing_version,omitempty"`
	DisplayedContent string `json:"displayed_content"`
	CanEdit          bool   `json:"can_edit"`
}

func ToViewStateResponse(v canvas.ViewState) *ViewStateResponse {
	return &ViewStateResponse{
		Mode:             string(v.Mode),
		ViewingVersion:   v.ViewingVersion,
		DisplayedContent: v.DisplayedContent,
		CanEdit:          v.CanEdit(),
	}
}
