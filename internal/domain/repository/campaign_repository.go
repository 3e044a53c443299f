// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"pov-canvas-api/internal/domain/entity"
)

// CampaignRepository 活动（上游分析报告）数据访问接口
type CampaignRepository interface {
	Create(ctx context.Context, campaign *entity.Campaign, outcomes []*entity.CampaignOutcome) error
	GetByID(ctx context.Context, id string) (*entity.Campaign, error)
	List(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.Campaign], error)

	ListOutcomes(ctx context.Context, campaignID string) ([]*entity.CampaignOutcome, error)
	// UpdateOutcomeSelection 覆盖式更新选中的结论序号
	UpdateOutcomeSelection(ctx context.Context, campaignID string, selectedIndexes []int) error
}
