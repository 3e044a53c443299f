package canvas

import (
	"context"
	"time"
	"unicode"

	"pov-canvas-api/pkg/metrics"
)

// Pace 呈现节奏。首次生成用 normal 制造"正在产出"的观感；
// 编辑后用 fast，用户只需快速确认结果而非悬念。
type Pace string

const (
	PaceNormal Pace = "normal"
	PaceFast   Pace = "fast"
)

// EmitFunc 接收一次部分内容的回调，返回错误将中止呈现
type EmitFunc func(partial string) error

// RevealEngine 把已知的完整文本按词边界渐进呈现。
// 内容在协作方返回时就已完整，这里只是 UI 节奏，不是网络流。
type RevealEngine struct {
	normalDelay time.Duration
	fastDelay   time.Duration
}

func NewRevealEngine(normalDelay, fastDelay time.Duration) *RevealEngine {
	return &RevealEngine{
		normalDelay: normalDelay,
		fastDelay:   fastDelay,
	}
}

func (e *RevealEngine) delay(pace Pace) time.Duration {
	if pace == PaceFast {
		return e.fastDelay
	}
	return e.normalDelay
}

// Reveal 依次发出严格递增的前缀：第一个词立即发出，其后每个词间隔固定延迟，
// 最后一次发出的内容与 content 逐字节相等。取消即刻生效，不会再有后续发出。
func (e *RevealEngine) Reveal(ctx context.Context, content string, pace Pace, emit EmitFunc) error {
	metrics.RevealsActive.Inc()
	defer metrics.RevealsActive.Dec()

	boundaries := tokenBoundaries(content)

	wait := e.delay(pace)
	for i, end := range boundaries {
		if i > 0 && wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				metrics.RevealCancelledTotal.Inc()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			metrics.RevealCancelledTotal.Inc()
			return err
		}
		if err := emit(content[:end]); err != nil {
			metrics.RevealCancelledTotal.Inc()
			return err
		}
	}
	return nil
}

// tokenBoundaries 返回每个词结束处的字节偏移，最后一个偏移恒为 len(content)，
// 以保证最终前缀与原文完全一致（包括尾部空白）。
func tokenBoundaries(content string) []int {
	if content == "" {
		return []int{0}
	}

	var boundaries []int
	inToken := false
	for i, r := range content {
		if unicode.IsSpace(r) {
			if inToken {
				boundaries = append(boundaries, i)
				inToken = false
			}
		} else {
			inToken = true
		}
	}

	// 收尾：末段未闭合或纯空白时补全文边界；
	// 尾部空白并入最后一次发出，避免出现同词数的重复前缀
	switch {
	case inToken, len(boundaries) == 0:
		boundaries = append(boundaries, len(content))
	case boundaries[len(boundaries)-1] != len(content):
		boundaries[len(boundaries)-1] = len(content)
	}
	return boundaries
}
