package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/statlite/internal/db"
	"github.com/statlite/internal/logging"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupStatsTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	logging.Disable()

	gdb, err := db.Open(filepath.Join(t.TempDir(), "statlite.sqlite"), logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	return gdb, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

// startWriteQueue 在后台运行 worker，返回的函数会停止 worker 并等待其退出。
func startWriteQueue(t *testing.T, q *WriteQueue) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Serve(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}

func flushQueue(t *testing.T, q *WriteQueue) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
}
