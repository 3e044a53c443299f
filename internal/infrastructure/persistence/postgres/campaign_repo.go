// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/domain/repository"
	apperrors "pov-canvas-api/pkg/errors"
)

// CampaignRepository 活动与分析结论的 PostgreSQL 实现
type CampaignRepository struct {
	client *Client
}

func NewCampaignRepository(client *Client) *CampaignRepository {
	return &CampaignRepository{client: client}
}

// Create 创建活动并批量写入分析结论（同一事务）
func (r *CampaignRepository) Create(ctx context.Context, campaign *entity.Campaign, outcomes []*entity.CampaignOutcome) error {
	ctx, span := tracer.Start(ctx, "postgres.CampaignRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)

	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	for i, o := range outcomes {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		o.CampaignID = campaign.ID
		o.OutcomeIndex = i
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(campaign).Error; err != nil {
			return err
		}
		if len(outcomes) == 0 {
			return nil
		}
		return tx.Create(outcomes).Error
	})
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeStorageError, "failed to create campaign")
	}
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*entity.Campaign, error) {
	ctx, span := tracer.Start(ctx, "postgres.CampaignRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var campaign entity.Campaign
	if err := db.First(&campaign, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCampaignNotFound
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to get campaign")
	}
	return &campaign, nil
}

func (r *CampaignRepository) List(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Campaign], error) {
	ctx, span := tracer.Start(ctx, "postgres.CampaignRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Campaign{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to count campaigns")
	}

	var campaigns []*entity.Campaign
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&campaigns).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to list campaigns")
	}

	return repository.NewPagedResult(campaigns, total, pagination), nil
}

// ListOutcomes 按 outcome_index 升序返回活动的全部分析结论
func (r *CampaignRepository) ListOutcomes(ctx context.Context, campaignID string) ([]*entity.CampaignOutcome, error) {
	ctx, span := tracer.Start(ctx, "postgres.CampaignRepository.ListOutcomes")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var outcomes []*entity.CampaignOutcome
	if err := db.Where("campaign_id = ?", campaignID).
		Order("outcome_index ASC").
		Find(&outcomes).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to list campaign outcomes")
	}
	return outcomes, nil
}

// UpdateOutcomeSelection 覆盖式更新：先全部取消选中，再选中给定序号
func (r *CampaignRepository) UpdateOutcomeSelection(ctx context.Context, campaignID string, selectedIndexes []int) error {
	ctx, span := tracer.Start(ctx, "postgres.CampaignRepository.UpdateOutcomeSelection")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.Campaign{}).Where("id = ?", campaignID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.ErrCampaignNotFound
		}

		if err := tx.Model(&entity.CampaignOutcome{}).
			Where("campaign_id = ?", campaignID).
			Update("selected", false).Error; err != nil {
			return err
		}
		if len(selectedIndexes) == 0 {
			return nil
		}
		return tx.Model(&entity.CampaignOutcome{}).
			Where("campaign_id = ? AND outcome_index IN ?", campaignID, selectedIndexes).
			Update("selected", true).Error
	})
	if err != nil {
		span.RecordError(err)
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Wrap(err, apperrors.CodeStorageError, "failed to update outcome selection")
	}
	return nil
}
