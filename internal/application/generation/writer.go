// Package generation 封装外部生成/编辑协作方
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pov-canvas-api/internal/domain/entity"
	apperrors "pov-canvas-api/pkg/errors"
	"pov-canvas-api/pkg/logger"
	"pov-canvas-api/pkg/metrics"
)

var tracer = otel.Tracer("generation")

// Outcome 生成输入中的一条分析结论（title/summary 形状，原样透传）
type Outcome struct {
	Title   string
	Summary string
}

// GenerateInput 首次生成的完整输入
type GenerateInput struct {
	ArtifactType entity.ArtifactType
	Title        string

	VendorName         string
	VendorServices     string
	TargetCustomerName string
	RoleNames          []string
	AdditionalContext  string

	// SelectedOutcomes 已选中的分析结论，为空时提示模型自行取材
	SelectedOutcomes []Outcome

	Meta               entity.ArtifactMeta
	CustomInstructions string
}

// EditInput 指令式编辑的输入：当前全文 + 用户指令
type EditInput struct {
	ArtifactType   entity.ArtifactType
	CurrentTitle   string
	CurrentContent string
	Instruction    string
}

// Result 协作方返回的结果：完整新正文与可选的新标题
type Result struct {
	Content string
	Title   string
}

// Collaborator 生成/编辑协作方。调用方不做自动重试，
// 失败一律原样上抛，由用户决定是否重新提交。
type Collaborator interface {
	Generate(ctx context.Context, in GenerateInput) (*Result, error)
	Edit(ctx context.Context, in EditInput) (*Result, error)
}

// ChatModelFactory 提供按名称获取 ChatModel 的能力
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// EinoWriter 基于 Eino ChatModel 的协作方实现
type EinoWriter struct {
	factory  ChatModelFactory
	provider string
}

func NewEinoWriter(factory ChatModelFactory, provider string) *EinoWriter {
	return &EinoWriter{factory: factory, provider: provider}
}

// Generate 首次生成：按构件类型构造提示词并调用模型
func (w *EinoWriter) Generate(ctx context.Context, in GenerateInput) (*Result, error) {
	ctx, span := tracer.Start(ctx, "generation.Generate",
		trace.WithAttributes(attribute.String("artifact.type", string(in.ArtifactType))))
	defer span.End()

	system, user, err := BuildGeneratePrompt(in)
	if err != nil {
		return nil, apperrors.ErrEditFailed.WithError(err)
	}

	raw, err := w.call(ctx, "generate", system, user)
	if err != nil {
		return nil, err
	}

	result := &Result{Content: raw, Title: in.Title}

	// 冷启动邮件返回 JSON {subject, body}，解析失败时整体作为正文
	if in.ArtifactType == entity.ArtifactTypeColdEmail {
		subject, body, ok := ParseColdEmail(raw)
		if ok {
			result.Content = body
			result.Title = subject
		} else {
			logger.Warn(ctx, "cold email response is not valid JSON, using raw content",
				"artifact_type", string(in.ArtifactType))
			result.Title = fmt.Sprintf("Introduction: %s → %s", in.VendorName, in.TargetCustomerName)
		}
	}

	if strings.TrimSpace(result.Content) == "" {
		return nil, apperrors.ErrEditFailed.WithDetail("collaborator returned empty content")
	}
	return result, nil
}

// Edit 指令式编辑：要求模型返回修订后的完整全文
func (w *EinoWriter) Edit(ctx context.Context, in EditInput) (*Result, error) {
	ctx, span := tracer.Start(ctx, "generation.Edit",
		trace.WithAttributes(attribute.String("artifact.type", string(in.ArtifactType))))
	defer span.End()

	system, user := BuildEditPrompt(in)

	raw, err := w.call(ctx, "edit", system, user)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.ErrEditFailed.WithDetail("collaborator returned empty content")
	}

	// 编辑不改标题，除非正文以新的一级标题开头
	title := in.CurrentTitle
	if h := firstHeading(raw); h != "" {
		title = h
	}
	return &Result{Content: raw, Title: title}, nil
}

func (w *EinoWriter) call(ctx context.Context, workflow, system, user string) (string, error) {
	chatModel, err := w.factory.Get(ctx, w.provider)
	if err != nil {
		return "", apperrors.ErrLLMCallError.WithError(err)
	}

	msgs := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	start := time.Now()
	out, err := chatModel.Generate(ctx, msgs)
	duration := time.Since(start).Seconds()
	metrics.LLMCallDuration.WithLabelValues(workflow, w.provider).Observe(duration)

	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(workflow, w.provider, "error").Inc()
		logger.Error(ctx, "llm call failed", err, "workflow", workflow)
		return "", apperrors.ErrEditFailed.WithError(err)
	}
	metrics.LLMCallTotal.WithLabelValues(workflow, w.provider, "success").Inc()

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(workflow, w.provider, "prompt").Add(float64(out.ResponseMeta.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(workflow, w.provider, "completion").Add(float64(out.ResponseMeta.Usage.CompletionTokens))
	}

	return out.Content, nil
}

// firstHeading 返回正文开头的一级 Markdown 标题（没有则为空）
func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
		return ""
	}
	return ""
}
