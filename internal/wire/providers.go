// Package wire 提供依赖注入配置
package wire

import (
	"pov-canvas-api/internal/application/canvas"
	"pov-canvas-api/internal/application/generation"
	"pov-canvas-api/internal/config"
	"pov-canvas-api/internal/domain/repository"
	"pov-canvas-api/internal/infrastructure/persistence/postgres"
	"pov-canvas-api/internal/infrastructure/persistence/redis"
	"pov-canvas-api/internal/interfaces/http/handler"
	"pov-canvas-api/internal/interfaces/http/router"
)

// App 应用依赖容器
type App struct {
	Router      *router.Router
	Manager     *canvas.Manager
	PgClient    *postgres.Client
	RedisClient *redis.Client
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideCollaborator 提供生成/编辑协作方
func ProvideCollaborator(factory generation.ChatModelFactory, cfg *config.Config) *generation.EinoWriter {
	return generation.NewEinoWriter(factory, cfg.LLM.DefaultProvider)
}

// ProvideRevealEngine 提供渐进呈现引擎
func ProvideRevealEngine(cfg *config.Config) *canvas.RevealEngine {
	return canvas.NewRevealEngine(cfg.Canvas.RevealNormalDelay, cfg.Canvas.RevealFastDelay)
}

// ProvideManager 提供画布会话管理器
func ProvideManager(ledger repository.ArtifactRepository, collab generation.Collaborator, engine *canvas.RevealEngine, cfg *config.Config) *canvas.Manager {
	return canvas.NewManager(ledger, collab, engine, cfg.Canvas.SessionIdleTimeout)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(pg *postgres.Client, redisClient *redis.Client, cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, redisClient, cfg.App.Version)
}

// ProvideArtifactHandler 提供构件处理器
func ProvideArtifactHandler(ledger repository.ArtifactRepository, manager *canvas.Manager, cache *redis.Cache, cfg *config.Config) *handler.ArtifactHandler {
	return handler.NewArtifactHandler(ledger, manager, cache, cfg.Cache.Redis.VersionTTL)
}
