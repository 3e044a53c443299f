//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"pov-canvas-api/internal/application/generation"
	"pov-canvas-api/internal/config"
	"pov-canvas-api/internal/domain/repository"
	"pov-canvas-api/internal/infrastructure/llm"
	"pov-canvas-api/internal/infrastructure/persistence/postgres"
	"pov-canvas-api/internal/infrastructure/persistence/redis"
	"pov-canvas-api/internal/interfaces/http/handler"
	"pov-canvas-api/internal/interfaces/http/middleware"
	"pov-canvas-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		CanvasSet,
		HandlerSet,
		wire.Struct(new(router.Handlers), "*"),
		router.New,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 仅初始化 PostgreSQL（用于 bootstrap）
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	wire.Build(ProvidePostgresClient)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewArtifactRepository,
	postgres.NewCampaignRepository,
	postgres.NewTxManager,
	wire.Bind(new(repository.ArtifactRepository), new(*postgres.ArtifactRepository)),
	wire.Bind(new(repository.CampaignRepository), new(*postgres.CampaignRepository)),
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// CanvasSet 生成与画布会话提供者集合
var CanvasSet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideCollaborator,
	ProvideRevealEngine,
	ProvideManager,
	wire.Bind(new(generation.ChatModelFactory), new(*llm.EinoFactory)),
	wire.Bind(new(generation.Collaborator), new(*generation.EinoWriter)),
)

// HandlerSet 处理器提供者集合
var HandlerSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewCampaignHandler,
	ProvideArtifactHandler,
	handler.NewCanvasHandler,
)
