package router

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/statlite/internal/db"
	"github.com/statlite/internal/handler"
	"github.com/statlite/internal/logging"
	"github.com/statlite/internal/service"
	"gorm.io/gorm/logger"
)

func setupTestRouter(t *testing.T, corsOrigins []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logging.Disable()

	gdb, err := db.Open(filepath.Join(t.TempDir(), "statlite.sqlite"), logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := quartz.NewMock(t)
	stats := service.NewStatsService(gdb, service.NewWriteQueue(gdb)).WithClock(clock)
	return SetupRouter(handler.NewAPI(stats, service.NewAdmissionControl(clock)), corsOrigins)
}

func TestSetupRouterServesHealth(t *testing.T) {
	r := setupTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"ok":true}` {
		t.Fatalf("unexpected body, got %q", body)
	}
	if rr.Header().Get("Referrer-Policy") != "no-referrer-when-downgrade" {
		t.Fatalf("expected security headers, got %v", rr.Header())
	}
}

func TestSetupRouterExposesMetrics(t *testing.T) {
	r := setupTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "statlite_write_queue_depth") {
		t.Fatal("expected statlite metrics in exposition output")
	}
}

func TestSetupRouterCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{name: "any origin without allowlist", origin: "https://blog.example", want: "*"},
		{name: "allowlisted origin", origins: []string{"https://a.example"}, origin: "https://a.example", want: "https://a.example"},
		{name: "origin outside allowlist", origins: []string{"https://a.example"}, origin: "https://evil.example", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTestRouter(t, tt.origins)

			req := httptest.NewRequest(http.MethodGet, "/stats/summary?site=a.test", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Fatalf("expected Access-Control-Allow-Origin %q, got %q", tt.want, got)
			}
		})
	}
}
