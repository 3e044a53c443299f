package dto

import (
	"time"

	"pov-canvas-api/internal/domain/entity"
)

// ArtifactResponse 构件响应
type ArtifactResponse struct {
	ID               string              `json:"id"`
	CampaignID       string              `json:"campaign_id"`
	Type             entity.ArtifactType `json:"type"`
	Title            string              `json:"title"`
	CurrentVersionNo int                 `json:"current_version_no"`
	Meta             entity.ArtifactMeta `json:"meta,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// ArtifactDetailResponse 构件详情（含当前视图状态）
type ArtifactDetailResponse struct {
	Artifact *ArtifactResponse  `json:"artifact"`
	View     *ViewStateResponse `json:"view"`
}

// ArtifactListResponse 构件列表响应
type ArtifactListResponse struct {
	Artifacts []*ArtifactResponse `json:"artifacts"`
}

// ArtifactVersionResponse 版本响应
type ArtifactVersionResponse struct {
	VersionNo      int       `json:"version_no"`
	Content        string    `json:"content"`
	TitleSnapshot  string    `json:"title_snapshot"`
	EditDescriptor string    `json:"edit_descriptor"`
	CreatedAt      time.Time `json:"created_at"`
}

// ArtifactVersionListResponse 版本列表响应
type ArtifactVersionListResponse struct {
	Versions []*ArtifactVersionResponse `json:"versions"`
}

func ToArtifactResponse(a *entity.Artifact) *ArtifactResponse {
	meta, _ := a.DecodeMeta()
	return &ArtifactResponse{
		ID:               a.ID,
		CampaignID:       a.CampaignID,
		Type:             a.Type,
		Title:            a.Title,
		CurrentVersionNo: a.CurrentVersionNo,
		Meta:             meta,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func ToArtifactVersionResponse(v *entity.ArtifactVersion) *ArtifactVersionResponse {
	return &ArtifactVersionResponse{
		VersionNo:      v.VersionNo,
		Content:        v.Content,
		TitleSnapshot:  v.TitleSnapshot,
		EditDescriptor: v.EditDescriptor,
		CreatedAt:      v.CreatedAt,
	}
}
