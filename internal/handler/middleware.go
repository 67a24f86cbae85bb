package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/statlite/internal/logging"
	"github.com/statlite/internal/service"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "__request_id"
)

// RequestID 复用上游传入的 X-Request-ID，缺失时生成新的 UUID。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger 在请求结束后输出一条结构化访问日志。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logging.Logger().Info().
			Str("method", c.Request.Method).
			Str("url", c.Request.URL.RequestURI()).
			Int("status", c.Writer.Status()).
			Int64("ms", time.Since(start).Milliseconds()).
			Str("ip", service.ResolveClientIP(c.Request.Header, c.Request.RemoteAddr)).
			Str("request_id", c.GetString(requestIDContextKey)).
			Msg("request")
	}
}

// SecurityHeaders 为所有响应添加基础安全头。
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer-when-downgrade")
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Header("Permissions-Policy", "geolocation=(), microphone=()")
		c.Next()
	}
}
