package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/domain/repository"
	"pov-canvas-api/internal/interfaces/http/dto"
	"pov-canvas-api/pkg/logger"
)

// CampaignHandler 活动处理器
type CampaignHandler struct {
	campaigns repository.CampaignRepository
	tx        repository.Transactor
}

// NewCampaignHandler 创建活动处理器
func NewCampaignHandler(campaigns repository.CampaignRepository, tx repository.Transactor) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, tx: tx}
}

// CreateCampaign 创建活动
// @Summary 创建活动
// @Description 录入一次 POV 分析活动及其结论，作为构件生成的上游输入
// @Tags Campaign
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "活动信息"
// @Success 201 {object} dto.Response[dto.CampaignDetailResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req dto.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	campaign := &entity.Campaign{
		UserID:             req.UserID,
		VendorName:         req.VendorName,
		VendorServices:     req.VendorServices,
		TargetCustomerName: req.TargetCustomerName,
		RoleNames:          req.RoleNames,
		AdditionalContext:  req.AdditionalContext,
	}

	outcomes := make([]*entity.CampaignOutcome, 0, len(req.Outcomes))
	for _, o := range req.Outcomes {
		outcomes = append(outcomes, &entity.CampaignOutcome{
			Title:   o.Title,
			Summary: o.Summary,
		})
	}

	if err := h.campaigns.Create(c.Request.Context(), campaign, outcomes); err != nil {
		logger.Error(c.Request.Context(), "create campaign failed", err)
		dto.FromError(c, err)
		return
	}

	outcomeResps := make([]*dto.CampaignOutcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		outcomeResps = append(outcomeResps, dto.ToCampaignOutcomeResponse(o))
	}

	dto.Created(c, &dto.CampaignDetailResponse{
		Campaign: dto.ToCampaignResponse(campaign),
		Outcomes: outcomeResps,
	})
}

// ListCampaigns 活动列表
// @Summary 活动列表
// @Description 分页列出活动，可按 user_id 过滤
// @Tags Campaign
// @Produce json
// @Param user_id query string false "用户 ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.CampaignListResponse]
// @Router /v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	page := dto.BindPage(c)
	userID := c.Query("user_id")

	result, err := h.campaigns.List(c.Request.Context(), userID, repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		logger.Error(c.Request.Context(), "list campaigns failed", err)
		dto.FromError(c, err)
		return
	}

	items := make([]*dto.CampaignResponse, 0, len(result.Items))
	for _, campaign := range result.Items {
		items = append(items, dto.ToCampaignResponse(campaign))
	}

	dto.SuccessWithPage(c, &dto.CampaignListResponse{Campaigns: items},
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetCampaign 活动详情
// @Summary 活动详情
// @Description 返回活动及其全部分析结论
// @Tags Campaign
// @Produce json
// @Param cid path string true "活动 ID"
// @Success 200 {object} dto.Response[dto.CampaignDetailResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/campaigns/{cid} [get]
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	campaignID := dto.BindCampaignID(c)

	campaign, err := h.campaigns.GetByID(c.Request.Context(), campaignID)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	outcomes, err := h.campaigns.ListOutcomes(c.Request.Context(), campaignID)
	if err != nil {
		logger.Error(c.Request.Context(), "list campaign outcomes failed", err, "campaign_id", campaignID)
		dto.FromError(c, err)
		return
	}

	outcomeResps := make([]*dto.CampaignOutcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		outcomeResps = append(outcomeResps, dto.ToCampaignOutcomeResponse(o))
	}

	dto.Success(c, &dto.CampaignDetailResponse{
		Campaign: dto.ToCampaignResponse(campaign),
		Outcomes: outcomeResps,
	})
}

// UpdateOutcomeSelection 更新结论选择
// @Summary 更新结论选择
// @Description 覆盖式更新活动中被选中的结论序号
// @Tags Campaign
// @Accept json
// @Produce json
// @Param cid path string true "活动 ID"
// @Param request body dto.UpdateOutcomeSelectionRequest true "选中的结论序号"
// @Success 200 {object} dto.Response[dto.CampaignDetailResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/campaigns/{cid}/outcomes/selection [put]
func (h *CampaignHandler) UpdateOutcomeSelection(c *gin.Context) {
	campaignID := dto.BindCampaignID(c)

	var req dto.UpdateOutcomeSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	// 更新与回读在同一事务内，返回的选中状态就是提交的状态
	var outcomes []*entity.CampaignOutcome
	err := h.tx.WithTransaction(c.Request.Context(), func(txCtx context.Context) error {
		if err := h.campaigns.UpdateOutcomeSelection(txCtx, campaignID, req.SelectedIndexes); err != nil {
			return err
		}
		var err error
		outcomes, err = h.campaigns.ListOutcomes(txCtx, campaignID)
		return err
	})
	if err != nil {
		logger.Error(c.Request.Context(), "update outcome selection failed", err, "campaign_id", campaignID)
		dto.FromError(c, err)
		return
	}

	outcomeResps := make([]*dto.CampaignOutcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		outcomeResps = append(outcomeResps, dto.ToCampaignOutcomeResponse(o))
	}

	dto.Success(c, &dto.CampaignDetailResponse{Outcomes: outcomeResps})
}
