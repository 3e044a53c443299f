// Package router 提供 HTTP 路由配置
package router

import (
	"pov-canvas-api/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	campaignHandler *handler.CampaignHandler,
	artifactHandler *handler.ArtifactHandler,
	canvasHandler *handler.CanvasHandler,
) {
	// 活动管理
	campaigns := v1.Group("/campaigns")
	{
		campaigns.POST("", campaignHandler.CreateCampaign)
		campaigns.GET("", campaignHandler.ListCampaigns)
		campaigns.GET("/:cid", campaignHandler.GetCampaign)
		campaigns.PUT("/:cid/outcomes/selection", campaignHandler.UpdateOutcomeSelection)

		// 活动下的构件
		campaigns.POST("/:cid/artifacts", canvasHandler.GenerateArtifact) // SSE
		campaigns.GET("/:cid/artifacts", artifactHandler.ListArtifacts)
	}

	// 构件与版本账本
	artifacts := v1.Group("/artifacts")
	{
		artifacts.GET("/:aid", artifactHandler.GetArtifact)
		artifacts.GET("/:aid/versions", artifactHandler.ListVersions)
		artifacts.GET("/:aid/versions/:vno", artifactHandler.GetVersion)

		// 画布操作
		artifacts.POST("/:aid/edits", canvasHandler.SubmitEdit) // SSE
		artifacts.POST("/:aid/view", artifactHandler.ViewVersion)
		artifacts.POST("/:aid/restore", artifactHandler.RestoreVersion)
	}
}
