package canvas

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pov-canvas-api/internal/application/generation"
	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/domain/repository"
	apperrors "pov-canvas-api/pkg/errors"
	"pov-canvas-api/pkg/logger"
	"pov-canvas-api/pkg/metrics"
)

// Manager 维护每个构件的编辑会话，并承担首次生成的入口。
// 会话是服务端的临时状态，空闲超时后回收，随时可凭账本重建。
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ledger repository.ArtifactRepository
	collab generation.Collaborator
	engine *RevealEngine

	idleTimeout time.Duration
}

func NewManager(ledger repository.ArtifactRepository, collab generation.Collaborator, engine *RevealEngine, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		ledger:      ledger,
		collab:      collab,
		engine:      engine,
		idleTimeout: idleTimeout,
	}
}

// Open 获取构件的编辑会话，不存在时从账本加载并建立
func (m *Manager) Open(ctx context.Context, artifactID string) (*Session, error) {
	m.mu.Lock()
	if session, ok := m.sessions[artifactID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	artifact, err := m.ledger.GetArtifactByID(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	session := newSession(artifact, m.ledger, m.collab, m.engine)
	if err := session.open(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// 并发打开时保留先建立的会话
	if existing, ok := m.sessions[artifactID]; ok {
		return existing, nil
	}
	m.sessions[artifactID] = session
	return session, nil
}

// GenerateInitial 首次生成：构件在生成成功落账的瞬间才存在，
// 永远产生版本 1，随后以 normal 节奏呈现。
func (m *Manager) GenerateInitial(ctx context.Context, campaignID string, in generation.GenerateInput, emit EmitFunc) (*entity.Artifact, *entity.ArtifactVersion, error) {
	artifactType := string(in.ArtifactType)

	start := time.Now()
	result, err := m.collab.Generate(ctx, in)
	metrics.ArtifactGenerationDuration.WithLabelValues(artifactType).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ArtifactGenerationTotal.WithLabelValues(artifactType, "initial", "error").Inc()
		logger.Warn(ctx, "initial generation failed",
			"campaign_id", campaignID,
			"artifact_type", artifactType,
			"error", err.Error(),
		)
		return nil, nil, asEditFailed(err)
	}

	meta, err := json.Marshal(in.Meta)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to encode artifact meta")
	}

	artifact := &entity.Artifact{
		CampaignID: campaignID,
		Type:       in.ArtifactType,
		Title:      result.Title,
		Meta:       meta,
	}

	version, err := m.ledger.CreateWithInitialVersion(ctx, artifact, result.Content, entity.DescriptorInitialGeneration)
	if err != nil {
		metrics.ArtifactGenerationTotal.WithLabelValues(artifactType, "initial", "error").Inc()
		return nil, nil, err
	}
	metrics.ArtifactGenerationTotal.WithLabelValues(artifactType, "initial", "success").Inc()
	metrics.ArtifactVersionCount.WithLabelValues(artifactType).Observe(1)

	session := newSession(artifact, m.ledger, m.collab, m.engine)

	session.mu.Lock()
	session.busy = true
	session.seq++
	token := session.seq
	session.mu.Unlock()

	m.mu.Lock()
	m.sessions[artifact.ID] = session
	m.mu.Unlock()

	session.reveal(ctx, token, version.Content, PaceNormal, emit)
	session.end()

	return artifact, version, nil
}

// Close 移除会话（构件本身不受影响）
func (m *Manager) Close(artifactID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, artifactID)
}

// SweepIdle 回收空闲超时的会话，返回回收数量
func (m *Manager) SweepIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idleTimeout <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-m.idleTimeout)
	removed := 0
	for id, session := range m.sessions {
		session.mu.Lock()
		idle := !session.busy && session.lastUsed.Before(cutoff)
		session.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper 周期性回收空闲会话，ctx 结束时停止
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.idleTimeout <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.SweepIdle(); n > 0 {
					logger.Debug(ctx, "idle canvas sessions reclaimed", "count", n)
				}
			}
		}
	}()
}
