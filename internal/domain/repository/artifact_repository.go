// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"pov-canvas-api/internal/domain/entity"
)

// AppendInput 版本账本的追加输入
type AppendInput struct {
	Content        string
	TitleSnapshot  string
	EditDescriptor string
}

// ArtifactRepository 构件与版本账本的数据访问接口。
// 账本只增不改：接口上不存在版本的更新或删除操作。
type ArtifactRepository interface {
	// CreateWithInitialVersion 创建构件并写入版本 1（同一事务内完成）。
	// 构件在首次生成成功的瞬间才得以存在。
	CreateWithInitialVersion(ctx context.Context, artifact *entity.Artifact, content, editDescriptor string) (*entity.ArtifactVersion, error)

	GetArtifactByID(ctx context.Context, id string) (*entity.Artifact, error)
	ListArtifactsByCampaign(ctx context.Context, campaignID string, artifactType entity.ArtifactType) ([]*entity.Artifact, error)

	// AppendVersion 追加新版本（version_no = 当前最大值 + 1）并同步更新
	// 构件的 current_version_no 与标题，整体为一个原子提交点。
	AppendVersion(ctx context.Context, artifactID string, in AppendInput) (*entity.ArtifactVersion, error)

	GetVersion(ctx context.Context, artifactID string, versionNo int) (*entity.ArtifactVersion, error)
	GetLatestVersion(ctx context.Context, artifactID string) (*entity.ArtifactVersion, error)
	// ListVersions 按 version_no 升序返回（最旧在前），供历史界面分页读取
	ListVersions(ctx context.Context, artifactID string, pagination Pagination) (*PagedResult[*entity.ArtifactVersion], error)
}
