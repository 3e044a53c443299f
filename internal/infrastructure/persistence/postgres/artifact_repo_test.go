package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/domain/repository"
	apperrors "pov-canvas-api/pkg/errors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	// 每个测试一个独立的命名内存库，避免共享缓存下的串扰
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&entity.Campaign{},
		&entity.CampaignOutcome{},
		&entity.Artifact{},
		&entity.ArtifactVersion{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return NewClientWithDB(db)
}

func seedCampaign(t *testing.T, client *Client) *entity.Campaign {
	t.Helper()

	repo := NewCampaignRepository(client)
	campaign := &entity.Campaign{
		UserID:             "user-1",
		VendorName:         "Acme Cloud",
		VendorServices:     "managed kubernetes",
		TargetCustomerName: "Globex",
		RoleNames:          []string{"CTO", "VP Engineering"},
	}
	outcomes := []*entity.CampaignOutcome{
		{Title: "Cluster sprawl drives cost overruns", Summary: "Teams run redundant clusters."},
		{Title: "Upgrades block feature delivery", Summary: "Quarterly upgrades take weeks."},
	}
	require.NoError(t, repo.Create(context.Background(), campaign, outcomes))
	return campaign
}

func seedArtifact(t *testing.T, client *Client, campaignID string) (*entity.Artifact, *entity.ArtifactVersion) {
	t.Helper()

	repo := NewArtifactRepository(client)
	art := &entity.Artifact{
		CampaignID: campaignID,
		Type:       entity.ArtifactTypeWhitepaper,
		Title:      "Taming Cluster Sprawl",
	}
	v1, err := repo.CreateWithInitialVersion(context.Background(), art, "Initial whitepaper body.", entity.DescriptorInitialGeneration)
	require.NoError(t, err)
	return art, v1
}

func TestCreateWithInitialVersion(t *testing.T) {
	client := newTestClient(t)
	campaign := seedCampaign(t, client)
	repo := NewArtifactRepository(client)

	art, v1 := seedArtifact(t, client, campaign.ID)

	assert.NotEmpty(t, art.ID)
	assert.Equal(t, 1, art.CurrentVersionNo)
	assert.Equal(t, 1, v1.VersionNo)
	assert.Equal(t, art.ID, v1.ArtifactID)
	assert.Equal(t, "Taming Cluster Sprawl", v1.TitleSnapshot)
	assert.Equal(t, entity.DescriptorInitialGeneration, v1.EditDescriptor)

	got, err := repo.GetArtifactByID(context.Background(), art.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentVersionNo)
	assert.Equal(t, entity.ArtifactTypeWhitepaper, got.Type)
}

func TestGetArtifactByIDNotFound(t *testing.T) {
	client := newTestClient(t)
	repo := NewArtifactRepository(client)

	_, err := repo.GetArtifactByID(context.Background(), "3f7f9a3c-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, apperrors.ErrArtifactNotFound))
}

func TestAppendVersionMonotonic(t *testing.T) {
	client := newTestClient(t)
	campaign := seedCampaign(t, client)
	repo := NewArtifactRepository(client)
	art, _ := seedArtifact(t, client, campaign.ID)

	ctx := context.Background()

	v2, err := repo.AppendVersion(ctx, art.ID, repository.AppendInput{
		Content:        "Revised whitepaper body.",
		TitleSnapshot:  "Taming Cluster Sprawl, Revised",
		EditDescriptor: "make it punchier",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNo)

	v3, err := repo.AppendVersion(ctx, art.ID, repository.AppendInput{
		Content:        "Third body.",
		EditDescriptor: entity.DescriptorDirectEdit,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, v3.VersionNo)
	// 标题快照为空时沿用构件当前标题
	assert.Equal(t, "Taming Cluster Sprawl, Revised", v3.TitleSnapshot)

	got, err := repo.GetArtifactByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentVersionNo)
	assert.Equal(t, "Taming Cluster Sprawl, Revised", got.Title)
}

func TestAppendVersionArtifactNotFound(t *testing.T) {
	client := newTestClient(t)
	repo := NewArtifactRepository(client)

	_, err := repo.AppendVersion(context.Background(), "3f7f9a3c-0000-0000-0000-000000000000", repository.AppendInput{
		Content:        "orphan",
		EditDescriptor: entity.DescriptorDirectEdit,
	})
	assert.True(t, errors.Is(err, apperrors.ErrArtifactNotFound))
}

func TestVersionsAreAppendOnly(t *testing.T) {
	client := newTestClient(t)
	campaign := seedCampaign(t, client)
	repo := NewArtifactRepository(client)
	art, _ := seedArtifact(t, client, campaign.ID)

	ctx := context.Background()
	_, err := repo.AppendVersion(ctx, art.ID, repository.AppendInput{
		Content:        "Second body.",
		EditDescriptor: entity.DescriptorDirectEdit,
	})
	require.NoError(t, err)

	// 追加之后，历史版本内容保持不变
	v1, err := repo.GetVersion(ctx, art.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Initial whitepaper body.", v1.Content)
	assert.Equal(t, entity.DescriptorInitialGeneration, v1.EditDescriptor)

	latest, err := repo.GetLatestVersion(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.VersionNo)
	assert.Equal(t, "Second body.", latest.Content)
}

func TestGetVersionNotFound(t *testing.T) {
	client := newTestClient(t)
	campaign := seedCampaign(t, client)
	repo := NewArtifactRepository(client)
	art, _ := seedArtifact(t, client, campaign.ID)

	_, err := repo.GetVersion(context.Background(), art.ID, 99)
	assert.True(t, errors.Is(err, apperrors.ErrVersionNotFound))
}

func TestListVersionsAscending(t *testing.T) {
	client := newTestClient(t)
	campaign := seedCampaign(t, client)
	repo := NewArtifactRepository(client)
	art, _ := seedArtifact(t, client, campaign.ID)

	ctx := context.Background()
	for _, content := range []string{"Second.", "Third.", "Fourth."} {
		_, err := repo.AppendVersion(ctx, art.ID, repository.AppendInput{
			Content:        content,
			EditDescriptor: entity.DescriptorDirectEdit,
		})
		require.NoError(t, err)
	}

	result, err := repo.ListVersions(ctx, art.ID, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Total)
	require.Len(t, result.Items, 4)
	for i, v := range result.Items {
		assert.Equal(t, i+1, v.VersionNo)
	}

	// 分页：第二页只剩最后一条
	page2, err := repo.ListVersions(ctx, art.ID, repository.NewPagination(2, 3))
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Equal(t, 4, page2.Items[0].VersionNo)
}

func TestListArtifactsByCampaign(t *testing.T) {
	client := newTestClient(t)
	campaign := seedCampaign(t, client)
	repo := NewArtifactRepository(client)

	ctx := context.Background()
	_, _ = seedArtifact(t, client, campaign.ID)

	email := &entity.Artifact{
		CampaignID: campaign.ID,
		Type:       entity.ArtifactTypeColdEmail,
		Title:      "Quick question about cluster costs",
	}
	_, err := repo.CreateWithInitialVersion(ctx, email, "Hi there,", entity.DescriptorInitialGeneration)
	require.NoError(t, err)

	all, err := repo.ListArtifactsByCampaign(ctx, campaign.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	emails, err := repo.ListArtifactsByCampaign(ctx, campaign.ID, entity.ArtifactTypeColdEmail)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, email.ID, emails[0].ID)
}

func TestCampaignOutcomeSelection(t *testing.T) {
	client := newTestClient(t)
	campaign := seedCampaign(t, client)
	repo := NewCampaignRepository(client)

	ctx := context.Background()

	require.NoError(t, repo.UpdateOutcomeSelection(ctx, campaign.ID, []int{1}))

	outcomes, err := repo.ListOutcomes(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Selected)
	assert.True(t, outcomes[1].Selected)

	// 覆盖式更新：再次调用会取消旧的选中
	require.NoError(t, repo.UpdateOutcomeSelection(ctx, campaign.ID, []int{0}))
	outcomes, err = repo.ListOutcomes(ctx, campaign.ID)
	require.NoError(t, err)
	assert.True(t, outcomes[0].Selected)
	assert.False(t, outcomes[1].Selected)

	err = repo.UpdateOutcomeSelection(ctx, "3f7f9a3c-0000-0000-0000-000000000000", []int{0})
	assert.True(t, errors.Is(err, apperrors.ErrCampaignNotFound))
}

func TestCampaignListPagination(t *testing.T) {
	client := newTestClient(t)
	repo := NewCampaignRepository(client)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		c := &entity.Campaign{
			UserID:             "user-paged",
			VendorName:         "Vendor",
			TargetCustomerName: "Customer",
		}
		require.NoError(t, repo.Create(ctx, c, nil))
	}

	result, err := repo.List(ctx, "user-paged", repository.NewPagination(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.TotalPages)

	_, err = repo.GetByID(ctx, "3f7f9a3c-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, apperrors.ErrCampaignNotFound))
}

func TestOutcomeSelectionRollback(t *testing.T) {
	client := newTestClient(t)
	campaign := seedCampaign(t, client)
	repo := NewCampaignRepository(client)
	tm := NewTxManager(client)

	ctx := context.Background()
	require.NoError(t, repo.UpdateOutcomeSelection(ctx, campaign.ID, []int{0}))

	// 事务内更新选中后失败，回读到的仍是旧的选中状态
	boom := errors.New("boom")
	err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := repo.UpdateOutcomeSelection(txCtx, campaign.ID, []int{1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	outcomes, err := repo.ListOutcomes(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Selected)
	assert.False(t, outcomes[1].Selected)
}

func TestTxManagerRollback(t *testing.T) {
	client := newTestClient(t)
	campaign := seedCampaign(t, client)
	artRepo := NewArtifactRepository(client)
	tm := NewTxManager(client)

	ctx := context.Background()
	art, _ := seedArtifact(t, client, campaign.ID)

	boom := errors.New("boom")
	err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := artRepo.AppendVersion(txCtx, art.ID, repository.AppendInput{
			Content:        "Should be rolled back.",
			EditDescriptor: entity.DescriptorDirectEdit,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// 事务回滚后账本与指针都未变
	latest, err := artRepo.GetLatestVersion(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.VersionNo)

	got, err := artRepo.GetArtifactByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentVersionNo)
}
