// Package canvas 实现带版本账本的生成式内容编辑核心：
// 渐进呈现、双路径编辑提交与只读历史浏览共用同一份视图状态机。
package canvas

// Mode 视图状态机的模式
type Mode string

const (
	// ModeEmpty 构件尚不存在（首次生成未完成）
	ModeEmpty Mode = "empty"
	// ModeStreaming 新内容正在渐进呈现
	ModeStreaming Mode = "streaming"
	// ModeLive 显示当前版本，编辑操作仅在此模式下被接受
	ModeLive Mode = "live"
	// ModeViewingHistory 只读查看某个历史版本
	ModeViewingHistory Mode = "viewing_history"
)

// ViewState 单个打开构件的临时视图状态（不持久化）
type ViewState struct {
	Mode Mode `json:"mode"`
	// ViewingVersion 仅在 ModeViewingHistory 下有意义
	ViewingVersion int `json:"viewing_version,omitempty"`
	// DisplayedContent 当前渲染的文本（Streaming 时可能是前缀）
	DisplayedContent string `json:"displayed_content"`
}

// CanEdit 编辑操作是否可用：当且仅当处于 Live 模式
func (v ViewState) CanEdit() bool {
	return v.Mode == ModeLive
}
