package router

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/statlite/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, corsOrigins []string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(handler.RequestID())
	r.Use(handler.RequestLogger())
	r.Use(handler.SecurityHeaders())
	r.Use(cors.New(corsConfig(corsOrigins)))

	r.GET("/health", api.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	stats := r.Group("/stats")
	{
		stats.POST("/track", api.Track)
		stats.GET("/summary", api.Summary)
	}

	return r
}

// corsConfig 在未配置白名单时允许任意来源，始终不携带凭据。
func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
		return config
	}

	allowed := slices.Clone(origins)
	config.AllowOriginFunc = func(origin string) bool {
		return slices.Contains(allowed, origin)
	}
	return config
}
