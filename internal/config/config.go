package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr   string
	Port         string
	DatabasePath string
	GinMode      string
	CORSOrigins  []string
	LogLevel     string
	LogFormat    string

	DedupWindow       time.Duration `validate:"gt=0"`
	RateLimit         int           `validate:"gt=0"`
	RateWindow        time.Duration `validate:"gt=0"`
	AnomalyMultiplier int           `validate:"gte=1"`
	WriteBatchSize    int           `validate:"gt=0,lte=10000"`
	SweepInterval     time.Duration `validate:"gt=0"`
	ShutdownTimeout   time.Duration `validate:"gt=0"`
}

const (
	defaultPort              = "8787"
	defaultDataDir           = "data"
	defaultDatabaseFile      = "statlite.sqlite"
	defaultDedupWindow       = 30 * time.Second
	defaultRateLimit         = 60
	defaultRateWindow        = time.Minute
	defaultAnomalyMultiplier = 5
	defaultWriteBatchSize    = 64
	defaultSweepInterval     = time.Minute
	defaultShutdownTimeout   = 10 * time.Second
)

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := firstEnv("PORT", "STATLITE_PORT")
	if _, err := strconv.Atoi(port); err != nil {
		port = defaultPort
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		dataDir := strings.TrimSpace(os.Getenv("STATLITE_DATA"))
		if dataDir == "" {
			dataDir = defaultDataDir
		}
		databasePath = filepath.Join(dataDir, defaultDatabaseFile)
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	logLevel := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if logFormat == "" {
		logFormat = "json"
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      databasePath,
		GinMode:           ginMode,
		CORSOrigins:       splitList(os.Getenv("STATLITE_CORS_ORIGINS")),
		LogLevel:          logLevel,
		LogFormat:         logFormat,
		DedupWindow:       envMillis("STATLITE_DEDUP_WINDOW_MS", defaultDedupWindow),
		RateLimit:         envInt("STATLITE_RATE_LIMIT", defaultRateLimit),
		RateWindow:        envMillis("STATLITE_RATE_WINDOW_MS", defaultRateWindow),
		AnomalyMultiplier: envInt("STATLITE_ANOMALY_MULTIPLIER", defaultAnomalyMultiplier),
		WriteBatchSize:    envInt("STATLITE_WRITE_BATCH_SIZE", defaultWriteBatchSize),
		SweepInterval:     envMillis("STATLITE_SWEEP_INTERVAL_MS", defaultSweepInterval),
		ShutdownTimeout:   envMillis("STATLITE_SHUTDOWN_TIMEOUT_MS", defaultShutdownTimeout),
	}
}

// Validate 校验数值型配置的取值范围。
func (c AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// envInt 读取正整数，缺失或非法时回退到默认值。
func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envMillis(key string, fallback time.Duration) time.Duration {
	ms := envInt(key, int(fallback/time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}
