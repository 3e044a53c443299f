package dto

import (
	"time"

	"pov-canvas-api/internal/domain/entity"
)

// CreateCampaignRequest 创建活动请求
type CreateCampaignRequest struct {
	UserID             string                 `json:"user_id" binding:"required"`
	VendorName         string                 `json:"vendor_name" binding:"required"`
	VendorServices     string                 `json:"vendor_services"`
	TargetCustomerName string                 `json:"target_customer_name" binding:"required"`
	RoleNames          []string               `json:"role_names"`
	AdditionalContext  string                 `json:"additional_context"`
	Outcomes           []CampaignOutcomeInput `json:"outcomes"`
}

// CampaignOutcomeInput 创建活动时附带的分析结论
type CampaignOutcomeInput struct {
	Title   string `json:"title" binding:"required"`
	Summary string `json:"summary"`
}

// UpdateOutcomeSelectionRequest 覆盖式更新选中结论
type UpdateOutcomeSelectionRequest struct {
	SelectedIndexes []int `json:"selected_indexes"`
}

// CampaignResponse 活动响应
type CampaignResponse struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	VendorName         string    `json:"vendor_name"`
	VendorServices     string    `json:"vendor_services,omitempty"`
	TargetCustomerName string    `json:"target_customer_name"`
	RoleNames          []string  `json:"role_names,omitempty"`
	AdditionalContext  string    `json:"additional_context,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// CampaignOutcomeResponse 分析结论响应
type CampaignOutcomeResponse struct {
	OutcomeIndex int    `json:"outcome_index"`
	Title        string `json:"title"`
	Summary      string `json:"summary,omitempty"`
	Selected     bool   `json:"selected"`
}

// CampaignDetailResponse 活动详情（含结论）
type CampaignDetailResponse struct {
	Campaign *CampaignResponse          `json:"campaign"`
	Outcomes []*CampaignOutcomeResponse `json:"outcomes"`
}

// CampaignListResponse 活动列表响应
type CampaignListResponse struct {
	Campaigns []*CampaignResponse `json:"campaigns"`
}

func ToCampaignResponse(c *entity.Campaign) *CampaignResponse {
	return &CampaignResponse{
		ID:                 c.ID,
		UserID:             c.UserID,
		VendorName:         c.VendorName,
		VendorServices:     c.VendorServices,
		TargetCustomerName: c.TargetCustomerName,
		RoleNames:          c.RoleNames,
		AdditionalContext:  c.AdditionalContext,
		CreatedAt:          c.CreatedAt,
	}
}

func ToCampaignOutcomeResponse(o *entity.CampaignOutcome) *CampaignOutcomeResponse {
	return &CampaignOutcomeResponse{
		OutcomeIndex: o.OutcomeIndex,
		Title:        o.Title,
		Summary:      o.Summary,
		Selected:     o.Selected,
	}
}
