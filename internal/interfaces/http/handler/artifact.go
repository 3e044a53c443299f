package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"pov-canvas-api/internal/application/canvas"
	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/domain/repository"
	"pov-canvas-api/internal/infrastructure/persistence/redis"
	"pov-canvas-api/internal/interfaces/http/dto"
	apperrors "pov-canvas-api/pkg/errors"
	"pov-canvas-api/pkg/logger"
)

// ArtifactHandler 构件读取与历史浏览处理器
type ArtifactHandler struct {
	ledger     repository.ArtifactRepository
	manager    *canvas.Manager
	cache      *redis.Cache
	versionTTL time.Duration
}

// NewArtifactHandler 创建构件处理器。cache 可为 nil（缓存降级为直读账本）。
func NewArtifactHandler(ledger repository.ArtifactRepository, manager *canvas.Manager, cache *redis.Cache, versionTTL time.Duration) *ArtifactHandler {
	return &ArtifactHandler{
		ledger:     ledger,
		manager:    manager,
		cache:      cache,
		versionTTL: versionTTL,
	}
}

// GetArtifact 构件详情
// @Summary 构件详情
// @Description 返回构件元信息与当前视图状态（必要时从账本重建会话）
// @Tags Artifact
// @Produce json
// @Param aid path string true "构件 ID"
// @Success 200 {object} dto.Response[dto.ArtifactDetailResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/artifacts/{aid} [get]
func (h *ArtifactHandler) GetArtifact(c *gin.Context) {
	artifactID := dto.BindArtifactID(c)

	artifact, err := h.ledger.GetArtifactByID(c.Request.Context(), artifactID)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	session, err := h.manager.Open(c.Request.Context(), artifactID)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, &dto.ArtifactDetailResponse{
		Artifact: dto.ToArtifactResponse(artifact),
		View:     dto.ToViewStateResponse(session.View()),
	})
}

// ListArtifacts 活动下的构件列表
// @Summary 构件列表
// @Description 列出活动下的全部构件，可按 type 过滤
// @Tags Artifact
// @Produce json
// @Param cid path string true "活动 ID"
// @Param type query string false "构件类型"
// @Success 200 {object} dto.Response[dto.ArtifactListResponse]
// @Router /v1/campaigns/{cid}/artifacts [get]
func (h *ArtifactHandler) ListArtifacts(c *gin.Context) {
	var artifactType entity.ArtifactType
	if raw := c.Query("type"); raw != "" {
		parsed, err := entity.ParseArtifactType(raw)
		if err != nil {
			dto.BadRequest(c, err.Error())
			return
		}
		artifactType = parsed
	}

	artifacts, err := h.ledger.ListArtifactsByCampaign(c.Request.Context(), dto.BindCampaignID(c), artifactType)
	if err != nil {
		logger.Error(c.Request.Context(), "list artifacts failed", err)
		dto.FromError(c, err)
		return
	}

	items := make([]*dto.ArtifactResponse, 0, len(artifacts))
	for _, a := range artifacts {
		items = append(items, dto.ToArtifactResponse(a))
	}
	dto.Success(c, &dto.ArtifactListResponse{Artifacts: items})
}

// ListVersions 版本账本分页
// @Summary 版本列表
// @Description 按 version_no 升序分页返回版本账本
// @Tags Artifact
// @Produce json
// @Param aid path string true "构件 ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.ArtifactVersionListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/artifacts/{aid}/versions [get]
func (h *ArtifactHandler) ListVersions(c *gin.Context) {
	page := dto.BindPage(c)

	result, err := h.ledger.ListVersions(c.Request.Context(), dto.BindArtifactID(c),
		repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		dto.FromError(c, err)
		return
	}

	items := make([]*dto.ArtifactVersionResponse, 0, len(result.Items))
	for _, v := range result.Items {
		items = append(items, dto.ToArtifactVersionResponse(v))
	}
	dto.SuccessWithPage(c, &dto.ArtifactVersionListResponse{Versions: items},
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetVersion 读取单个历史版本
// @Summary 版本详情
// @Description 返回指定版本的完整内容。版本不可变，命中缓存时直接返回。
// @Tags Artifact
// @Produce json
// @Param aid path string true "构件 ID"
// @Param vno path int true "版本号"
// @Success 200 {object} dto.Response[dto.ArtifactVersionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/artifacts/{aid}/versions/{vno} [get]
func (h *ArtifactHandler) GetVersion(c *gin.Context) {
	artifactID := dto.BindArtifactID(c)
	versionNo := dto.BindVersionNo(c)
	if versionNo < 1 {
		dto.BadRequest(c, "version_no must be a positive integer")
		return
	}

	if h.cache == nil {
		version, err := h.ledger.GetVersion(c.Request.Context(), artifactID, versionNo)
		if err != nil {
			dto.FromError(c, err)
			return
		}
		dto.Success(c, dto.ToArtifactVersionResponse(version))
		return
	}

	bytes, err := h.cache.GetOrLoad(c.Request.Context(), redis.VersionKey(artifactID, versionNo), h.versionTTL,
		func() (interface{}, error) {
			version, err := h.ledger.GetVersion(c.Request.Context(), artifactID, versionNo)
			if err != nil {
				return nil, err
			}
			return dto.ToArtifactVersionResponse(version), nil
		})
	if err != nil {
		dto.FromError(c, err)
		return
	}

	var resp dto.ArtifactVersionResponse
	if err := json.Unmarshal(bytes, &resp); err != nil {
		dto.FromError(c, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to decode cached version"))
		return
	}
	dto.Success(c, &resp)
}

// ViewVersion 切换视图到历史版本或回到 Live
// @Summary 查看版本
// @Description 只读查看历史版本；version_no 为 null 表示回到最新版本
// @Tags Artifact
// @Accept json
// @Produce json
// @Param aid path string true "构件 ID"
// @Param request body dto.ViewVersionRequest true "目标版本"
// @Success 200 {object} dto.Response[dto.ViewStateResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/artifacts/{aid}/view [post]
func (h *ArtifactHandler) ViewVersion(c *gin.Context) {
	var req dto.ViewVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	session, err := h.manager.Open(c.Request.Context(), dto.BindArtifactID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}

	view, err := session.ViewVersion(c.Request.Context(), req.VersionNo)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToViewStateResponse(view))
}

// RestoreVersion 恢复历史版本
// @Summary 恢复版本
// @Description 把历史版本内容追加为新的最大版本，原有账本保持不变
// @Tags Artifact
// @Accept json
// @Produce json
// @Param aid path string true "构件 ID"
// @Param request body dto.RestoreVersionRequest true "要恢复的版本号"
// @Success 200 {object} dto.Response[dto.ArtifactVersionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/artifacts/{aid}/restore [post]
func (h *ArtifactHandler) RestoreVersion(c *gin.Context) {
	var req dto.RestoreVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	session, err := h.manager.Open(c.Request.Context(), dto.BindArtifactID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}

	version, err := session.Restore(c.Request.Context(), req.VersionNo)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	logger.Info(c.Request.Context(), "version restored",
		"artifact_id", dto.BindArtifactID(c),
		"restored_from", req.VersionNo,
		"new_version", version.VersionNo,
	)
	dto.Success(c, dto.ToArtifactVersionResponse(version))
}
