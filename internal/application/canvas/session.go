package canvas

import (
	"context"
	"strings"
	"sync"
	"time"

	"pov-canvas-api/internal/application/generation"
	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/domain/repository"
	apperrors "pov-canvas-api/pkg/errors"
	"pov-canvas-api/pkg/logger"
	"pov-canvas-api/pkg/metrics"
)

// EditKind 编辑请求的两种触发方式
type EditKind string

const (
	EditKindInstruction EditKind = "instruction"
	EditKindDirect      EditKind = "direct"
)

// EditRequest 会话接收的编辑请求，两种触发最终走同一条提交路径
type EditRequest struct {
	Kind EditKind
	// Instruction 自然语言指令（Kind == instruction）
	Instruction string
	// Content 直接替换的完整正文（Kind == direct）
	Content string
}

// Session 单个打开构件的编辑会话。持有该构件唯一的视图状态，
// 所有版本提交都经由这里串行化：同一构件同时至多一个在途操作。
type Session struct {
	mu sync.Mutex

	artifact *entity.Artifact
	view     ViewState

	// seq 在途序列令牌：每次提交开始时递增并捕获，
	// 应用结果前校验，迟到的结果直接丢弃（last-commit-wins）
	seq  uint64
	busy bool

	// revealCancel 取消当前活动的呈现
	revealCancel context.CancelFunc

	lastUsed time.Time

	ledger repository.ArtifactRepository
	collab generation.Collaborator
	engine *RevealEngine
}

func newSession(artifact *entity.Artifact, ledger repository.ArtifactRepository, collab generation.Collaborator, engine *RevealEngine) *Session {
	return &Session{
		artifact: artifact,
		view:     ViewState{Mode: ModeEmpty},
		ledger:   ledger,
		collab:   collab,
		engine:   engine,
		lastUsed: time.Now(),
	}
}

// ArtifactID 返回会话绑定的构件 ID
func (s *Session) ArtifactID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact.ID
}

// View 返回当前视图状态的快照
func (s *Session) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// open 加载当前版本并进入 Live
func (s *Session) open(ctx context.Context) error {
	latest, err := s.ledger.GetLatestVersion(ctx, s.artifact.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = ViewState{Mode: ModeLive, DisplayedContent: latest.Content}
	s.lastUsed = time.Now()
	return nil
}

// SubmitInstruction 指令式编辑：委托协作方产出新全文后提交
func (s *Session) SubmitInstruction(ctx context.Context, instruction string, emit EmitFunc) (*entity.ArtifactVersion, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("instruction must not be empty")
	}
	return s.commitEdit(ctx, EditRequest{Kind: EditKindInstruction, Instruction: instruction}, emit)
}

// SubmitDirectEdit 直接编辑：调用方给出完整替换正文，无协作方调用
func (s *Session) SubmitDirectEdit(ctx context.Context, content string, emit EmitFunc) (*entity.ArtifactVersion, error) {
	if content == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("content must not be empty")
	}
	return s.commitEdit(ctx, EditRequest{Kind: EditKindDirect, Content: content}, emit)
}

// commitEdit 创建新版本的唯一路径（首次生成除外）。
// 协作方失败时不触碰账本，Live 内容保持原样，调用方可直接重试。
func (s *Session) commitEdit(ctx context.Context, req EditRequest, emit EmitFunc) (*entity.ArtifactVersion, error) {
	token, current, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end()

	artifactType := string(s.artifact.Type)
	kind := string(req.Kind)

	var (
		newContent string
		newTitle   string
		descriptor string
	)

	switch req.Kind {
	case EditKindInstruction:
		start := time.Now()
		result, err := s.collab.Edit(ctx, generation.EditInput{
			ArtifactType:   s.artifact.Type,
			CurrentTitle:   s.artifact.Title,
			CurrentContent: current,
			Instruction:    req.Instruction,
		})
		metrics.ArtifactGenerationDuration.WithLabelValues(artifactType).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ArtifactGenerationTotal.WithLabelValues(artifactType, kind, "error").Inc()
			logger.Warn(ctx, "collaborator edit failed",
				"artifact_id", s.artifact.ID,
				"error", err.Error(),
			)
			return nil, asEditFailed(err)
		}
		newContent = result.Content
		newTitle = result.Title
		descriptor = req.Instruction
	case EditKindDirect:
		newContent = req.Content
		newTitle = s.artifact.Title
		descriptor = entity.DescriptorDirectEdit
	default:
		return nil, apperrors.ErrInvalidParam.WithDetail("unknown edit kind")
	}

	// 迟到的结果不得乱序落账。busy 已排除在途期间的并发提交，
	// 这一分支只拦截会话被放弃后残留调用的结果
	if !s.stillCurrent(token) {
		metrics.ArtifactGenerationTotal.WithLabelValues(artifactType, kind, "discarded").Inc()
		return nil, apperrors.ErrEditFailed.WithDetail("superseded by a newer commit")
	}

	version, err := s.ledger.AppendVersion(ctx, s.artifact.ID, repository.AppendInput{
		Content:        newContent,
		TitleSnapshot:  newTitle,
		EditDescriptor: descriptor,
	})
	if err != nil {
		metrics.ArtifactGenerationTotal.WithLabelValues(artifactType, kind, "error").Inc()
		return nil, err
	}
	metrics.ArtifactGenerationTotal.WithLabelValues(artifactType, kind, "success").Inc()
	metrics.ArtifactVersionCount.WithLabelValues(artifactType).Observe(float64(version.VersionNo))

	s.applyCommitted(version)

	// 编辑后的呈现用 fast 节奏
	s.reveal(ctx, token, version.Content, PaceFast, emit)
	return version, nil
}

// ViewVersion 只读查看历史版本；n 为 nil 或 0 表示回到 Live。
// 历史读取不做呈现动画，内容逐字照搬。
func (s *Session) ViewVersion(ctx context.Context, n *int) (ViewState, error) {
	s.mu.Lock()
	if s.busy || s.view.Mode == ModeStreaming {
		s.mu.Unlock()
		return ViewState{}, apperrors.ErrBusy
	}
	// 占住会话直到视图更新完成，期间新提交一律 Busy，
	// 避免账本读取与提交交错后视图短暂错乱
	s.busy = true
	s.mu.Unlock()
	defer s.end()

	if n == nil || *n == 0 {
		latest, err := s.ledger.GetLatestVersion(ctx, s.artifact.ID)
		if err != nil {
			return ViewState{}, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.view = ViewState{Mode: ModeLive, DisplayedContent: latest.Content}
		s.lastUsed = time.Now()
		return s.view, nil
	}

	version, err := s.ledger.GetVersion(ctx, s.artifact.ID, *n)
	if err != nil {
		return ViewState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = ViewState{
		Mode:             ModeViewingHistory,
		ViewingVersion:   version.VersionNo,
		DisplayedContent: version.Content,
	}
	s.lastUsed = time.Now()
	return s.view, nil
}

// Restore 前向恢复：读取目标版本后直接追加为新的最大版本，
// 不删除、不重排任何已有版本。恢复当前版本被拒绝为 NoOp。
func (s *Session) Restore(ctx context.Context, versionNo int) (*entity.ArtifactVersion, error) {
	s.mu.Lock()
	if s.busy || s.view.Mode == ModeStreaming {
		s.mu.Unlock()
		return nil, apperrors.ErrBusy
	}
	s.busy = true
	s.seq++
	s.mu.Unlock()
	defer s.end()

	artifact, err := s.ledger.GetArtifactByID(ctx, s.artifact.ID)
	if err != nil {
		return nil, err
	}
	if versionNo == artifact.CurrentVersionNo {
		return nil, apperrors.ErrNoOpRestore.WithDetail("restoring the current version would only duplicate it")
	}

	target, err := s.ledger.GetVersion(ctx, s.artifact.ID, versionNo)
	if err != nil {
		return nil, err
	}

	// 内容已知，无需协作方，直接走账本追加
	version, err := s.ledger.AppendVersion(ctx, s.artifact.ID, repository.AppendInput{
		Content:        target.Content,
		TitleSnapshot:  target.TitleSnapshot,
		EditDescriptor: entity.RestoreDescriptor(versionNo),
	})
	if err != nil {
		metrics.ArtifactGenerationTotal.WithLabelValues(string(s.artifact.Type), "restore", "error").Inc()
		return nil, err
	}
	metrics.ArtifactGenerationTotal.WithLabelValues(string(s.artifact.Type), "restore", "success").Inc()

	s.applyCommitted(version)

	s.mu.Lock()
	s.view = ViewState{Mode: ModeLive, DisplayedContent: version.Content}
	s.mu.Unlock()
	return version, nil
}

// begin 捕获序列令牌并占用会话；编辑前置条件在这里统一校验
func (s *Session) begin() (uint64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return 0, "", apperrors.ErrBusy
	}
	if s.view.Mode != ModeLive {
		return 0, "", apperrors.ErrInvalidState.WithDetail("edits are only accepted in live mode")
	}

	// 新提交开始的瞬间，任何在途呈现立即作废
	if s.revealCancel != nil {
		s.revealCancel()
		s.revealCancel = nil
	}

	s.busy = true
	s.seq++
	s.lastUsed = time.Now()
	return s.seq, s.view.DisplayedContent, nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Session) stillCurrent(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == token
}

// applyCommitted 同步构件指针与标题（账本已原子更新过）
func (s *Session) applyCommitted(version *entity.ArtifactVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact.CurrentVersionNo = version.VersionNo
	s.artifact.Title = version.TitleSnapshot
}

// reveal 以 Streaming 模式驱动渐进呈现，结束后回到 Live。
// 版本此时已经落账：即使呈现被取消，最终状态仍是完整的新内容。
func (s *Session) reveal(ctx context.Context, token uint64, content string, pace Pace, emit EmitFunc) {
	revealCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.view = ViewState{Mode: ModeStreaming}
	s.revealCancel = cancel
	s.mu.Unlock()

	if emit == nil {
		emit = func(string) error { return nil }
	}

	err := s.engine.Reveal(revealCtx, content, pace, func(partial string) error {
		s.mu.Lock()
		if s.seq == token {
			s.view.DisplayedContent = partial
		}
		s.mu.Unlock()
		return emit(partial)
	})
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revealCancel != nil {
		s.revealCancel = nil
	}
	if s.seq != token {
		// 已被新的提交取代，由新提交负责视图状态
		return
	}
	if err != nil {
		logger.Debug(ctx, "reveal aborted",
			"artifact_id", s.artifact.ID,
			"reason", err.Error(),
		)
	}
	s.view = ViewState{Mode: ModeLive, DisplayedContent: content}
}

func asEditFailed(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.ErrEditFailed.WithError(err)
}
