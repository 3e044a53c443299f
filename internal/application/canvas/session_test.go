package canvas

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pov-canvas-api/internal/application/generation"
	"pov-canvas-api/internal/domain/entity"
	"pov-canvas-api/internal/domain/repository"
	apperrors "pov-canvas-api/pkg/errors"
)

// memoryLedger 账本的内存实现，测试用
type memoryLedger struct {
	mu        sync.Mutex
	artifacts map[string]*entity.Artifact
	versions  map[string][]*entity.ArtifactVersion
	failNext  bool
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		artifacts: make(map[string]*entity.Artifact),
		versions:  make(map[string][]*entity.ArtifactVersion),
	}
}

func (l *memoryLedger) CreateWithInitialVersion(_ context.Context, artifact *entity.Artifact, content, editDescriptor string) (*entity.ArtifactVersion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	artifact.CurrentVersionNo = 1

	v := &entity.ArtifactVersion{
		ID:             uuid.NewString(),
		ArtifactID:     artifact.ID,
		VersionNo:      1,
		Content:        content,
		TitleSnapshot:  artifact.Title,
		EditDescriptor: editDescriptor,
		CreatedAt:      time.Now(),
	}
	clone := *artifact
	l.artifacts[artifact.ID] = &clone
	l.versions[artifact.ID] = []*entity.ArtifactVersion{v}
	return v, nil
}

func (l *memoryLedger) GetArtifactByID(_ context.Context, id string) (*entity.Artifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	art, ok := l.artifacts[id]
	if !ok {
		return nil, apperrors.ErrArtifactNotFound
	}
	clone := *art
	return &clone, nil
}

func (l *memoryLedger) ListArtifactsByCampaign(_ context.Context, campaignID string, artifactType entity.ArtifactType) ([]*entity.Artifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*entity.Artifact
	for _, a := range l.artifacts {
		if a.CampaignID != campaignID {
			continue
		}
		if artifactType != "" && a.Type != artifactType {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	return out, nil
}

func (l *memoryLedger) AppendVersion(_ context.Context, artifactID string, in repository.AppendInput) (*entity.ArtifactVersion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failNext {
		l.failNext = false
		return nil, apperrors.ErrStorageError.WithDetail("simulated write failure")
	}

	art, ok := l.artifacts[artifactID]
	if !ok {
		return nil, apperrors.ErrArtifactNotFound
	}

	next := len(l.versions[artifactID]) + 1
	title := in.TitleSnapshot
	if title == "" {
		title = art.Title
	}
	v := &entity.ArtifactVersion{
		ID:             uuid.NewString(),
		ArtifactID:     artifactID,
		VersionNo:      next,
		Content:        in.Content,
		TitleSnapshot:  title,
		EditDescriptor: in.EditDescriptor,
		CreatedAt:      time.Now(),
	}
	l.versions[artifactID] = append(l.versions[artifactID], v)
	art.CurrentVersionNo = next
	art.Title = title
	return v, nil
}

func (l *memoryLedger) GetVersion(_ context.Context, artifactID string, versionNo int) (*entity.ArtifactVersion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range l.versions[artifactID] {
		if v.VersionNo == versionNo {
			clone := *v
			return &clone, nil
		}
	}
	return nil, apperrors.ErrVersionNotFound
}

func (l *memoryLedger) GetLatestVersion(_ context.Context, artifactID string) (*entity.ArtifactVersion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	vs := l.versions[artifactID]
	if len(vs) == 0 {
		return nil, apperrors.ErrVersionNotFound
	}
	clone := *vs[len(vs)-1]
	return &clone, nil
}

func (l *memoryLedger) ListVersions(_ context.Context, artifactID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ArtifactVersion], error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	vs := l.versions[artifactID]
	out := make([]*entity.ArtifactVersion, 0, len(vs))
	for _, v := range vs {
		clone := *v
		out = append(out, &clone)
	}
	return repository.NewPagedResult(out, int64(len(out)), pagination), nil
}

// scriptedCollaborator 按预置脚本应答的协作方
type scriptedCollaborator struct {
	mu        sync.Mutex
	responses []*generation.Result
	err       error
	calls     int
	blockCh   chan struct{}
}

func (c *scriptedCollaborator) next() (*generation.Result, error) {
	c.mu.Lock()
	block := c.blockCh
	c.mu.Unlock()
	if block != nil {
		<-block
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return &generation.Result{Content: "default content", Title: "Default"}, nil
	}
	r := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return r, nil
}

func (c *scriptedCollaborator) Generate(context.Context, generation.GenerateInput) (*generation.Result, error) {
	return c.next()
}

func (c *scriptedCollaborator) Edit(context.Context, generation.EditInput) (*generation.Result, error) {
	return c.next()
}

func newTestManager(collab generation.Collaborator) (*Manager, *memoryLedger) {
	ledger := newMemoryLedger()
	engine := NewRevealEngine(time.Microsecond, time.Microsecond)
	return NewManager(ledger, collab, engine, time.Minute), ledger
}

func generateDraft(t *testing.T, m *Manager, content string) (*entity.Artifact, *Session) {
	t.Helper()

	ctx := context.Background()
	artifact, version, err := m.GenerateInitial(ctx, "campaign-1", generation.GenerateInput{
		ArtifactType: entity.ArtifactTypeWhitepaper,
		Title:        "Draft",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, version.VersionNo)
	require.Equal(t, content, version.Content)

	session, err := m.Open(ctx, artifact.ID)
	require.NoError(t, err)
	return artifact, session
}

func TestGenerateInitialProducesVersionOne(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{{Content: "Draft v1", Title: "Draft"}}}
	m, ledger := newTestManager(collab)

	artifact, session := generateDraft(t, m, "Draft v1")

	assert.Equal(t, 1, artifact.CurrentVersionNo)
	assert.Equal(t, ModeLive, session.View().Mode)
	assert.Equal(t, "Draft v1", session.View().DisplayedContent)

	stored, err := ledger.GetArtifactByID(context.Background(), artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentVersionNo)
}

func TestGenerateInitialFailureCreatesNothing(t *testing.T) {
	collab := &scriptedCollaborator{err: errors.New("model unavailable")}
	m, ledger := newTestManager(collab)

	_, _, err := m.GenerateInitial(context.Background(), "campaign-1", generation.GenerateInput{
		ArtifactType: entity.ArtifactTypeWhitepaper,
	}, nil)
	assert.True(t, errors.Is(err, apperrors.ErrEditFailed))
	assert.Empty(t, ledger.artifacts)
}

func TestSubmitInstructionCommitsNewVersion(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{
		{Content: "Draft v1", Title: "Draft"},
		{Content: "Short v2", Title: "Draft"},
	}}
	m, ledger := newTestManager(collab)
	artifact, session := generateDraft(t, m, "Draft v1")

	ctx := context.Background()
	version, err := session.SubmitInstruction(ctx, "make it shorter", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, version.VersionNo)
	assert.Equal(t, "Short v2", version.Content)
	assert.Equal(t, "make it shorter", version.EditDescriptor)

	view := session.View()
	assert.Equal(t, ModeLive, view.Mode)
	assert.Equal(t, "Short v2", view.DisplayedContent)

	result, err := ledger.ListVersions(ctx, artifact.ID, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
}

func TestSubmitDirectEditSkipsCollaborator(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{{Content: "Draft v1", Title: "Draft"}}}
	m, _ := newTestManager(collab)
	_, session := generateDraft(t, m, "Draft v1")

	callsBefore := collab.calls
	version, err := session.SubmitDirectEdit(context.Background(), "User-typed replacement.", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, version.VersionNo)
	assert.Equal(t, entity.DescriptorDirectEdit, version.EditDescriptor)
	assert.Equal(t, callsBefore, collab.calls)
}

func TestEditFailedLeavesLiveUnchanged(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{{Content: "Draft v1", Title: "Draft"}}}
	m, ledger := newTestManager(collab)
	artifact, session := generateDraft(t, m, "Draft v1")

	collab.mu.Lock()
	collab.err = errors.New("model timeout")
	collab.mu.Unlock()

	_, err := session.SubmitInstruction(context.Background(), "rewrite it", nil)
	assert.True(t, errors.Is(err, apperrors.ErrEditFailed))

	// Live 内容保持原样，账本没有新增
	view := session.View()
	assert.Equal(t, ModeLive, view.Mode)
	assert.Equal(t, "Draft v1", view.DisplayedContent)
	assert.Len(t, ledger.versions[artifact.ID], 1)
}

func TestStorageFailureLeavesLiveUnchanged(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{
		{Content: "Draft v1", Title: "Draft"},
		{Content: "Short v2", Title: "Draft"},
	}}
	m, ledger := newTestManager(collab)
	artifact, session := generateDraft(t, m, "Draft v1")

	ledger.mu.Lock()
	ledger.failNext = true
	ledger.mu.Unlock()

	_, err := session.SubmitInstruction(context.Background(), "make it shorter", nil)
	assert.True(t, errors.Is(err, apperrors.ErrStorageError))

	view := session.View()
	assert.Equal(t, ModeLive, view.Mode)
	assert.Equal(t, "Draft v1", view.DisplayedContent)
	assert.Len(t, ledger.versions[artifact.ID], 1)
}

func TestReadOnlyHistoryRejectsEdits(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{
		{Content: "Draft v1", Title: "Draft"},
		{Content: "Short v2", Title: "Draft"},
	}}
	m, ledger := newTestManager(collab)
	artifact, session := generateDraft(t, m, "Draft v1")

	ctx := context.Background()
	_, err := session.SubmitInstruction(ctx, "make it shorter", nil)
	require.NoError(t, err)

	one := 1
	view, err := session.ViewVersion(ctx, &one)
	require.NoError(t, err)
	assert.Equal(t, ModeViewingHistory, view.Mode)
	assert.Equal(t, 1, view.ViewingVersion)
	assert.Equal(t, "Draft v1", view.DisplayedContent)
	assert.False(t, view.CanEdit())

	// 历史视图下两种编辑路径都被拒绝，账本不变
	_, err = session.SubmitInstruction(ctx, "change it", nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	_, err = session.SubmitDirectEdit(ctx, "sneaky replacement", nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.Len(t, ledger.versions[artifact.ID], 2)
}

func TestReturnToLive(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{
		{Content: "Draft v1", Title: "Draft"},
		{Content: "Short v2", Title: "Draft"},
	}}
	m, _ := newTestManager(collab)
	_, session := generateDraft(t, m, "Draft v1")

	ctx := context.Background()
	_, err := session.SubmitInstruction(ctx, "make it shorter", nil)
	require.NoError(t, err)

	one := 1
	_, err = session.ViewVersion(ctx, &one)
	require.NoError(t, err)

	view, err := session.ViewVersion(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, view.Mode)
	assert.Equal(t, "Short v2", view.DisplayedContent)
	assert.True(t, view.CanEdit())

	// 回到 Live 是幂等的
	view, err = session.ViewVersion(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, view.Mode)
	assert.Equal(t, "Short v2", view.DisplayedContent)
}

func TestViewUnknownVersion(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{{Content: "Draft v1", Title: "Draft"}}}
	m, _ := newTestManager(collab)
	_, session := generateDraft(t, m, "Draft v1")

	nine := 9
	_, err := session.ViewVersion(context.Background(), &nine)
	assert.True(t, errors.Is(err, apperrors.ErrVersionNotFound))
}

func TestForwardOnlyRestore(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{
		{Content: "A", Title: "Draft"},
		{Content: "B", Title: "Draft"},
		{Content: "C", Title: "Draft"},
	}}
	m, ledger := newTestManager(collab)
	artifact, session := generateDraft(t, m, "A")

	ctx := context.Background()
	_, err := session.SubmitInstruction(ctx, "second", nil)
	require.NoError(t, err)
	_, err = session.SubmitInstruction(ctx, "third", nil)
	require.NoError(t, err)

	restored, err := session.Restore(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, restored.VersionNo)
	assert.Equal(t, "A", restored.Content)
	assert.Equal(t, "restored from version 1", restored.EditDescriptor)

	// 版本 1–3 原样保留，指针指向新的最大版本
	want := []string{"A", "B", "C", "A"}
	result, err := ledger.ListVersions(ctx, artifact.ID, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, result.Items, 4)
	for i, v := range result.Items {
		assert.Equal(t, i+1, v.VersionNo)
		assert.Equal(t, want[i], v.Content)
	}

	stored, err := ledger.GetArtifactByID(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.CurrentVersionNo)

	view := session.View()
	assert.Equal(t, ModeLive, view.Mode)
	assert.Equal(t, "A", view.DisplayedContent)
}

func TestRestoreCurrentVersionRejectedAsNoOp(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{{Content: "Draft v1", Title: "Draft"}}}
	m, ledger := newTestManager(collab)
	artifact, session := generateDraft(t, m, "Draft v1")

	_, err := session.Restore(context.Background(), 1)
	assert.True(t, errors.Is(err, apperrors.ErrNoOpRestore))
	assert.Len(t, ledger.versions[artifact.ID], 1)
}

func TestRestoreFromHistoryView(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{
		{Content: "Draft v1", Title: "Draft"},
		{Content: "Short v2", Title: "Draft"},
	}}
	m, _ := newTestManager(collab)
	_, session := generateDraft(t, m, "Draft v1")

	ctx := context.Background()
	_, err := session.SubmitInstruction(ctx, "make it shorter", nil)
	require.NoError(t, err)

	one := 1
	_, err = session.ViewVersion(ctx, &one)
	require.NoError(t, err)

	restored, err := session.Restore(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.VersionNo)
	assert.Equal(t, ModeLive, session.View().Mode)
}

func TestBusyRejection(t *testing.T) {
	first := make(chan struct{})
	collab := &scriptedCollaborator{responses: []*generation.Result{
		{Content: "Draft v1", Title: "Draft"},
		{Content: "Short v2", Title: "Draft"},
	}}
	m, ledger := newTestManager(collab)
	artifact, session := generateDraft(t, m, "Draft v1")

	collab.mu.Lock()
	collab.blockCh = first
	collab.mu.Unlock()

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		_, err := session.SubmitInstruction(ctx, "make it shorter", nil)
		done <- err
	}()

	// 等第一个提交占住会话
	require.Eventually(t, func() bool {
		session.mu.Lock()
		defer session.mu.Unlock()
		return session.busy
	}, time.Second, time.Millisecond)

	_, err := session.SubmitInstruction(ctx, "second instruction", nil)
	assert.True(t, errors.Is(err, apperrors.ErrBusy))

	close(first)
	require.NoError(t, <-done)

	// 第一个提交落账后账本恰好多一条
	assert.Len(t, ledger.versions[artifact.ID], 2)
}

// gatedLedger 让 GetVersion 阻塞到放行，用于制造在途的历史读取
type gatedLedger struct {
	*memoryLedger
	gate chan struct{}
}

func (l *gatedLedger) GetVersion(ctx context.Context, artifactID string, versionNo int) (*entity.ArtifactVersion, error) {
	<-l.gate
	return l.memoryLedger.GetVersion(ctx, artifactID, versionNo)
}

func TestViewVersionHoldsSessionOccupancy(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{{Content: "Draft v1", Title: "Draft"}}}
	gated := &gatedLedger{memoryLedger: newMemoryLedger(), gate: make(chan struct{})}
	engine := NewRevealEngine(time.Microsecond, time.Microsecond)
	m := NewManager(gated, collab, engine, time.Minute)

	ctx := context.Background()
	artifact, _, err := m.GenerateInitial(ctx, "campaign-1", generation.GenerateInput{
		ArtifactType: entity.ArtifactTypeWhitepaper,
		Title:        "Draft",
	}, nil)
	require.NoError(t, err)

	session, err := m.Open(ctx, artifact.ID)
	require.NoError(t, err)

	one := 1
	viewDone := make(chan error, 1)
	go func() {
		_, err := session.ViewVersion(ctx, &one)
		viewDone <- err
	}()

	// 历史读取在途期间会话被占住，提交一律 Busy
	require.Eventually(t, func() bool {
		session.mu.Lock()
		defer session.mu.Unlock()
		return session.busy
	}, time.Second, time.Millisecond)

	_, err = session.SubmitDirectEdit(ctx, "interleaved edit", nil)
	assert.True(t, errors.Is(err, apperrors.ErrBusy))

	close(gated.gate)
	require.NoError(t, <-viewDone)

	// 读取完成后视图是干净的历史视图，账本没有新增
	view := session.View()
	assert.Equal(t, ModeViewingHistory, view.Mode)
	assert.Equal(t, "Draft v1", view.DisplayedContent)
	assert.Len(t, gated.versions[artifact.ID], 1)
}

func TestMonotonicVersionNumbers(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{{Content: "v", Title: "Draft"}}}
	m, ledger := newTestManager(collab)
	artifact, session := generateDraft(t, m, "v")

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := session.SubmitDirectEdit(ctx, fmt.Sprintf("content %d", i), nil)
		require.NoError(t, err)
	}

	result, err := ledger.ListVersions(ctx, artifact.ID, repository.NewPagination(1, 20))
	require.NoError(t, err)
	require.Len(t, result.Items, 6)
	for i, v := range result.Items {
		assert.Equal(t, i+1, v.VersionNo)
	}
}

func TestEndToEndScenario(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{
		{Content: "Draft v1", Title: "Draft"},
		{Content: "Short v2", Title: "Draft"},
	}}
	m, ledger := newTestManager(collab)

	ctx := context.Background()
	artifact, v1, err := m.GenerateInitial(ctx, "campaign-1", generation.GenerateInput{
		ArtifactType: entity.ArtifactTypeWhitepaper,
		Title:        "Draft",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNo)

	session, err := m.Open(ctx, artifact.ID)
	require.NoError(t, err)

	v2, err := session.SubmitInstruction(ctx, "make it shorter", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNo)
	assert.Len(t, ledger.versions[artifact.ID], 2)

	one := 1
	view, err := session.ViewVersion(ctx, &one)
	require.NoError(t, err)
	assert.Equal(t, "Draft v1", view.DisplayedContent)
	assert.False(t, view.CanEdit())

	view, err = session.ViewVersion(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "Short v2", view.DisplayedContent)

	v3, err := session.Restore(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, v3.VersionNo)
	assert.Equal(t, "Draft v1", v3.Content)
	assert.Len(t, ledger.versions[artifact.ID], 3)

	stored, err := ledger.GetArtifactByID(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentVersionNo)
}

func TestOpenUnknownArtifact(t *testing.T) {
	collab := &scriptedCollaborator{}
	m, _ := newTestManager(collab)

	_, err := m.Open(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrArtifactNotFound))
}

func TestSweepIdleReclaimsSessions(t *testing.T) {
	collab := &scriptedCollaborator{responses: []*generation.Result{{Content: "Draft v1", Title: "Draft"}}}
	ledger := newMemoryLedger()
	engine := NewRevealEngine(time.Microsecond, time.Microsecond)
	m := NewManager(ledger, collab, engine, 10*time.Millisecond)

	ctx := context.Background()
	artifact, _, err := m.GenerateInitial(ctx, "campaign-1", generation.GenerateInput{
		ArtifactType: entity.ArtifactTypeWhitepaper,
		Title:        "Draft",
	}, nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, m.SweepIdle())

	// 会话可以随时凭账本重建
	session, err := m.Open(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, session.View().Mode)
	assert.Equal(t, "Draft v1", session.View().DisplayedContent)
}
