package generation

import (
	"encoding/json"
	"strings"
)

type coldEmailPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ParseColdEmail 解析冷启动邮件的 JSON 响应 {subject, body}。
// 模型偶尔会把 JSON 包在 Markdown 代码块里，先做剥离再解析；
// 解析失败时返回 ok=false，调用方将整段响应作为正文兜底。
func ParseColdEmail(raw string) (subject, body string, ok bool) {
	trimmed := stripCodeFence(strings.TrimSpace(raw))

	var payload coldEmailPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return "", "", false
	}
	if strings.TrimSpace(payload.Body) == "" {
		return "", "", false
	}
	if strings.TrimSpace(payload.Subject) == "" {
		payload.Subject = "Introduction and Collaboration Opportunity"
	}
	return payload.Subject, payload.Body, true
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
