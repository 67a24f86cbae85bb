// Package logging 提供基于 zerolog 的全局结构化日志。
//
// 进程启动时调用 Init 配置级别与输出格式：
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Logger().Info().Str("addr", addr).Msg("server listening")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config 描述日志输出配置。
type Config struct {
	// Level 取值 trace/debug/info/warn/error，默认 info。
	Level string
	// Format 取值 json 或 console，默认 json。
	Format string
	// Output 默认 os.Stderr。
	Output io.Writer
}

var (
	mu     sync.RWMutex
	logger = newLogger(Config{})
)

// Init 重新配置全局日志实例，可重复调用。
func Init(cfg Config) {
	l := newLogger(cfg)
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Logger 返回当前的全局日志实例。
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// Disable 关闭日志输出，测试中使用。
func Disable() {
	Init(Config{Level: "disabled", Output: io.Discard})
}

func newLogger(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || strings.TrimSpace(cfg.Level) == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "statlite").Logger()
}
