package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"pov-canvas-api/internal/application/canvas"
	"pov-canvas-api/internal/application/generation"
	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/domain/repository"
	"pov-canvas-api/internal/interfaces/http/dto"
	apperrors "pov-canvas-api/pkg/errors"
	"pov-canvas-api/pkg/logger"
)

// CanvasHandler 画布处理器：首次生成与两种编辑，统一以 SSE 渐进呈现
type CanvasHandler struct {
	manager   *canvas.Manager
	campaigns repository.CampaignRepository
}

// NewCanvasHandler 创建画布处理器
func NewCanvasHandler(manager *canvas.Manager, campaigns repository.CampaignRepository) *CanvasHandler {
	return &CanvasHandler{
		manager:   manager,
		campaigns: campaigns,
	}
}

// commitOutcome 流式操作的最终结果
type commitOutcome struct {
	Artifact *entity.Artifact
	Version  *entity.ArtifactVersion
}

// GenerateArtifact 首次生成构件
// @Summary 生成构件
// @Description 依据活动结论生成新构件，以 SSE 逐词呈现；生成失败时返回普通 JSON 错误
// @Tags Canvas
// @Accept json
// @Produce text/event-stream
// @Param cid path string true "活动 ID"
// @Param request body dto.GenerateArtifactRequest true "生成参数"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/campaigns/{cid}/artifacts [post]
func (h *CanvasHandler) GenerateArtifact(c *gin.Context) {
	campaignID := dto.BindCampaignID(c)

	var req dto.GenerateArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	artifactType, err := entity.ParseArtifactType(req.Type)
	if err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	in, err := h.buildGenerateInput(c, campaignID, artifactType, &req)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	chunks := make(chan string, 8)
	results := make(chan commitOutcome, 1)
	errCh := make(chan error, 1)

	go func() {
		lastLen := 0
		artifact, version, err := h.manager.GenerateInitial(ctx, campaignID, *in, func(partial string) error {
			chunk := partial[lastLen:]
			lastLen = len(partial)
			select {
			case chunks <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errCh <- err
			return
		}
		results <- commitOutcome{Artifact: artifact, Version: version}
	}()

	streamCommit(c, chunks, results, errCh)
}

// SubmitEdit 提交编辑
// @Summary 编辑构件
// @Description 提交自然语言指令或直接替换正文，成功后以 SSE 快速呈现新版本
// @Tags Canvas
// @Accept json
// @Produce text/event-stream
// @Param aid path string true "构件 ID"
// @Param request body dto.SubmitEditRequest true "编辑请求"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/artifacts/{aid}/edits [post]
func (h *CanvasHandler) SubmitEdit(c *gin.Context) {
	artifactID := dto.BindArtifactID(c)

	var req dto.SubmitEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	switch canvas.EditKind(req.Kind) {
	case canvas.EditKindInstruction, canvas.EditKindDirect:
	default:
		dto.BadRequest(c, "kind must be instruction or direct")
		return
	}

	session, err := h.manager.Open(c.Request.Context(), artifactID)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	chunks := make(chan string, 8)
	results := make(chan commitOutcome, 1)
	errCh := make(chan error, 1)

	go func() {
		lastLen := 0
		emit := func(partial string) error {
			chunk := partial[lastLen:]
			lastLen = len(partial)
			select {
			case chunks <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var (
			version *entity.ArtifactVersion
			err     error
		)
		if canvas.EditKind(req.Kind) == canvas.EditKindInstruction {
			version, err = session.SubmitInstruction(ctx, req.Instruction, emit)
		} else {
			version, err = session.SubmitDirectEdit(ctx, req.Content, emit)
		}
		if err != nil {
			errCh <- err
			return
		}
		results <- commitOutcome{Version: version}
	}()

	streamCommit(c, chunks, results, errCh)
}

// streamCommit 驱动一次提交的流式响应。
// 所有失败都发生在第一次呈现之前（版本落账后才开始呈现），
// 因此先等第一个事件：错误走普通 JSON 响应保留状态码，
// 内容到达后才切换为 SSE。
func streamCommit(c *gin.Context, chunks <-chan string, results <-chan commitOutcome, errCh <-chan error) {
	var firstChunk string

	select {
	case err := <-errCh:
		logger.Warn(c.Request.Context(), "commit failed before reveal", "error", err.Error())
		dto.FromError(c, err)
		return
	case outcome := <-results:
		// 呈现已全部完成（内容很短或为空），排空缓冲后收尾
		writeSSEHeaders(c)
		index := 0
		for {
			select {
			case chunk := <-chunks:
				c.SSEvent("content", gin.H{"chunk": chunk, "index": index})
				index++
			default:
				writeDoneEvent(c, outcome)
				return
			}
		}
	case chunk := <-chunks:
		firstChunk = chunk
	case <-c.Request.Context().Done():
		return
	}

	writeSSEHeaders(c)

	index := 0
	c.SSEvent("content", gin.H{"chunk": firstChunk, "index": index})
	c.Writer.Flush()
	index++

	c.Stream(func(w io.Writer) bool {
		select {
		case chunk := <-chunks:
			c.SSEvent("content", gin.H{"chunk": chunk, "index": index})
			index++
			return true

		case outcome := <-results:
			// 呈现结束前的尾部发射先排空
			for {
				select {
				case chunk := <-chunks:
					c.SSEvent("content", gin.H{"chunk": chunk, "index": index})
					index++
				default:
					writeDoneEvent(c, outcome)
					return false
				}
			}

		case err := <-errCh:
			appErr := apperrors.AsAppError(err)
			c.SSEvent("error", gin.H{
				"message":    appErr.Message,
				"error_code": string(appErr.Code),
			})
			return false

		case <-c.Request.Context().Done():
			// 客户端断开；版本已落账，重连后可直接读到完整内容
			return false
		}
	})
}

func writeSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

func writeDoneEvent(c *gin.Context, outcome commitOutcome) {
	payload := gin.H{
		"version": dto.ToArtifactVersionResponse(outcome.Version),
	}
	if outcome.Artifact != nil {
		payload["artifact"] = dto.ToArtifactResponse(outcome.Artifact)
	}
	c.SSEvent("done", payload)
	c.Writer.Flush()
}

// buildGenerateInput 把活动与请求参数装配为生成输入
func (h *CanvasHandler) buildGenerateInput(c *gin.Context, campaignID string, artifactType entity.ArtifactType, req *dto.GenerateArtifactRequest) (*generation.GenerateInput, error) {
	campaign, err := h.campaigns.GetByID(c.Request.Context(), campaignID)
	if err != nil {
		return nil, err
	}

	outcomes, err := h.campaigns.ListOutcomes(c.Request.Context(), campaignID)
	if err != nil {
		return nil, err
	}

	// 请求里显式给了序号就用请求的，否则沿用活动当前的选中状态
	var selected []generation.Outcome
	var selectedIndexes []int
	if len(req.SelectedOutcomes) > 0 {
		wanted := make(map[int]bool, len(req.SelectedOutcomes))
		for _, idx := range req.SelectedOutcomes {
			wanted[idx] = true
		}
		for _, o := range outcomes {
			if wanted[o.OutcomeIndex] {
				selected = append(selected, generation.Outcome{Title: o.Title, Summary: o.Summary})
				selectedIndexes = append(selectedIndexes, o.OutcomeIndex)
			}
		}
	} else {
		for _, o := range outcomes {
			if o.Selected {
				selected = append(selected, generation.Outcome{Title: o.Title, Summary: o.Summary})
				selectedIndexes = append(selectedIndexes, o.OutcomeIndex)
			}
		}
	}

	return &generation.GenerateInput{
		ArtifactType:       artifactType,
		Title:              req.Title,
		VendorName:         campaign.VendorName,
		VendorServices:     campaign.VendorServices,
		TargetCustomerName: campaign.TargetCustomerName,
		RoleNames:          campaign.RoleNames,
		AdditionalContext:  campaign.AdditionalContext,
		SelectedOutcomes:   selected,
		Meta: entity.ArtifactMeta{
			AssetKind:        req.AssetKind,
			Scenario:         req.Scenario,
			RecipientName:    req.RecipientName,
			RecipientEmail:   req.RecipientEmail,
			RecipientCompany: req.RecipientCompany,
			SelectedOutcomes: selectedIndexes,
		},
		CustomInstructions: req.CustomInstructions,
	}, nil
}
