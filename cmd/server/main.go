package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/statlite/internal/config"
	"github.com/statlite/internal/db"
	"github.com/statlite/internal/handler"
	"github.com/statlite/internal/logging"
	"github.com/statlite/internal/router"
	"github.com/statlite/internal/service"
	"github.com/statlite/internal/supervisor"
)

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Logger()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}

	clock := quartz.NewReal()
	writes := service.NewWriteQueue(db.DB).WithBatchSize(cfg.WriteBatchSize)
	admission := service.NewAdmissionControl(clock).
		WithLimit(cfg.RateLimit, cfg.RateWindow).
		WithAnomalyMultiplier(cfg.AnomalyMultiplier).
		WithSweepInterval(cfg.SweepInterval)
	stats := service.NewStatsService(db.DB, writes).
		WithClock(clock).
		WithDedupWindow(cfg.DedupWindow)

	gin.SetMode(cfg.GinMode)
	r := router.SetupRouter(handler.NewAPI(stats, admission), cfg.CORSOrigins)
	server := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	tree := supervisor.NewTree(log, cfg.ShutdownTimeout)
	tree.Add(writes)
	tree.Add(admission)
	tree.Add(supervisor.NewHTTPService(server, cfg.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", cfg.ListenAddr).Str("database", cfg.DatabasePath).Msg("statlite server listening")
	if err := tree.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("supervisor exited")
		os.Exit(1)
	}

	// HTTP 服务已停止，写完 worker 退出后才入队的任务
	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	if err := writes.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush pending writes")
	}
	cancel()

	if sqlDB, err := db.DB.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info().Msg("statlite server stopped")
}
