// Package middleware 提供 HTTP 中间件
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pov-canvas-api/internal/config"
)

// skipAuthPaths 不需要认证的路径前缀
var skipAuthPaths = []string{
	"/health",
	"/ready",
	"/metrics",
}

// APIKeyAuth API Key 认证中间件。
// 对比使用常数时间比较，避免时序侧信道。
func APIKeyAuth(cfg config.APIKeyConfig) gin.HandlerFunc {
	// 未配置密钥时视为关闭，避免把所有请求一律拒绝
	if !cfg.Enabled || cfg.Key == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	header := cfg.Header
	if header == "" {
		header = "X-API-Key"
	}
	expected := []byte(cfg.Key)

	return func(c *gin.Context) {
		for _, prefix := range skipAuthPaths {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		provided := []byte(c.GetHeader(header))
		if len(provided) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":     http.StatusUnauthorized,
				"message":  "invalid or missing API key",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
