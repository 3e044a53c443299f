package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"pov-canvas-api/internal/config"
	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/infrastructure/persistence/postgres"
	"pov-canvas-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	client, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 迁移表结构
	fmt.Println("Running schema migration...")
	if err := client.DB().WithContext(ctx).AutoMigrate(
		&entity.Campaign{},
		&entity.CampaignOutcome{},
		&entity.Artifact{},
		&entity.ArtifactVersion{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migration completed.")

	// 4. 可选：写入演示活动
	if os.Getenv("BOOTSTRAP_SEED_DEMO") == "true" {
		if err := seedDemoCampaign(ctx, client); err != nil {
			log.Fatalf("failed to seed demo campaign: %v", err)
		}
	}

	fmt.Println("Bootstrap completed successfully.")
}

// seedDemoCampaign 写入一条演示活动（已存在时跳过）
func seedDemoCampaign(ctx context.Context, client *postgres.Client) error {
	const demoUserID = "demo-user"

	var count int64
	if err := client.DB().WithContext(ctx).
		Model(&entity.Campaign{}).
		Where("user_id = ?", demoUserID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		fmt.Println("Demo campaign already exists, skipping.")
		return nil
	}

	fmt.Println("Seeding demo campaign...")

	repo := postgres.NewCampaignRepository(client)
	campaign := &entity.Campaign{
		UserID:             demoUserID,
		VendorName:         "Acme Cloud",
		VendorServices:     "Managed Kubernetes, cloud cost optimization",
		TargetCustomerName: "Globex Corporation",
		RoleNames:          []string{"VP of Engineering", "CTO"},
		AdditionalContext:  "Globex runs 40+ self-managed clusters across three regions.",
	}
	outcomes := []*entity.CampaignOutcome{
		{
			Title:    "Cluster sprawl drives 30% infra overspend",
			Summary:  "Self-managed clusters with uneven utilization inflate cost and toil.",
			Selected: true,
		},
		{
			Title:   "Platform team stretched thin",
			Summary: "Four engineers support 200 developers with no managed control plane.",
		},
	}

	if err := repo.Create(ctx, campaign, outcomes); err != nil {
		return err
	}

	fmt.Printf("Demo campaign created with ID: %s\n", campaign.ID)
	return nil
}
