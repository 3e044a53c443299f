// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/domain/repository"
	apperrors "pov-canvas-api/pkg/errors"
)

// ArtifactRepository 构件与版本账本的 PostgreSQL 实现
type ArtifactRepository struct {
	client *Client
}

func NewArtifactRepository(client *Client) *ArtifactRepository {
	return &ArtifactRepository{client: client}
}

// CreateWithInitialVersion 创建构件并在同一事务内写入版本 1
func (r *ArtifactRepository) CreateWithInitialVersion(ctx context.Context, artifact *entity.Artifact, content, editDescriptor string) (*entity.ArtifactVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.CreateWithInitialVersion")
	defer span.End()

	db := getDB(ctx, r.client.db)

	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	artifact.CurrentVersionNo = 1

	version := &entity.ArtifactVersion{
		ID:             uuid.NewString(),
		ArtifactID:     artifact.ID,
		VersionNo:      1,
		Content:        content,
		TitleSnapshot:  artifact.Title,
		EditDescriptor: editDescriptor,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(artifact).Error; err != nil {
			return err
		}
		return tx.Create(version).Error
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to create artifact with initial version")
	}
	return version, nil
}

func (r *ArtifactRepository) GetArtifactByID(ctx context.Context, id string) (*entity.Artifact, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.GetArtifactByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var art entity.Artifact
	if err := db.First(&art, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrArtifactNotFound
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to get artifact")
	}
	return &art, nil
}

func (r *ArtifactRepository) ListArtifactsByCampaign(ctx context.Context, campaignID string, artifactType entity.ArtifactType) ([]*entity.Artifact, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.ListArtifactsByCampaign")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Where("campaign_id = ?", campaignID)
	if strings.TrimSpace(string(artifactType)) != "" {
		query = query.Where("type = ?", artifactType)
	}

	var arts []*entity.Artifact
	if err := query.Order("created_at ASC").Find(&arts).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to list artifacts")
	}
	return arts, nil
}

// AppendVersion 原子提交点：计算 max+1、插入版本、更新构件指针与标题，
// 全部在一个事务内完成。失败时账本与指针均保持原状。
func (r *ArtifactRepository) AppendVersion(ctx context.Context, artifactID string, in repository.AppendInput) (*entity.ArtifactVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.AppendVersion")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var version *entity.ArtifactVersion
	err := db.Transaction(func(tx *gorm.DB) error {
		var art entity.Artifact
		if err := tx.First(&art, "id = ?", artifactID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrArtifactNotFound
			}
			return err
		}

		var maxNo *int
		if err := tx.Model(&entity.ArtifactVersion{}).
			Where("artifact_id = ?", artifactID).
			Select("MAX(version_no)").
			Scan(&maxNo).Error; err != nil {
			return err
		}
		nextNo := 1
		if maxNo != nil {
			nextNo = *maxNo + 1
		}

		title := strings.TrimSpace(in.TitleSnapshot)
		if title == "" {
			title = art.Title
		}

		v := &entity.ArtifactVersion{
			ID:             uuid.NewString(),
			ArtifactID:     artifactID,
			VersionNo:      nextNo,
			Content:        in.Content,
			TitleSnapshot:  title,
			EditDescriptor: in.EditDescriptor,
		}
		if err := tx.Create(v).Error; err != nil {
			return err
		}

		if err := tx.Model(&entity.Artifact{}).
			Where("id = ?", artifactID).
			Updates(map[string]any{
				"current_version_no": nextNo,
				"title":              title,
			}).Error; err != nil {
			return err
		}

		version = v
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to append artifact version")
	}
	return version, nil
}

func (r *ArtifactRepository) GetVersion(ctx context.Context, artifactID string, versionNo int) (*entity.ArtifactVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.GetVersion")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var v entity.ArtifactVersion
	if err := db.First(&v, "artifact_id = ? AND version_no = ?", artifactID, versionNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrVersionNotFound
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to get artifact version")
	}
	return &v, nil
}

func (r *ArtifactRepository) GetLatestVersion(ctx context.Context, artifactID string) (*entity.ArtifactVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.GetLatestVersion")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var v entity.ArtifactVersion
	if err := db.Where("artifact_id = ?", artifactID).Order("version_no DESC").First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrVersionNotFound
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to get latest artifact version")
	}
	return &v, nil
}

// ListVersions 按 version_no 升序分页返回（最旧在前）
func (r *ArtifactRepository) ListVersions(ctx context.Context, artifactID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ArtifactVersion], error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.ListVersions")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.ArtifactVersion{}).Where("artifact_id = ?", artifactID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to count artifact versions")
	}

	var versions []*entity.ArtifactVersion
	if err := query.Order("version_no ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to list artifact versions")
	}

	return repository.NewPagedResult(versions, total, pagination), nil
}
