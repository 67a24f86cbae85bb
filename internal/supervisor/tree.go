// Package supervisor 使用 suture 监管常驻服务：HTTP 服务、写入队列 worker 与准入计数清理。
package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

const defaultShutdownTimeout = 10 * time.Second

// Tree 是进程的根 supervisor。
type Tree struct {
	root *suture.Supervisor
}

// NewTree 创建根 supervisor，服务崩溃事件写入日志。
func NewTree(log *zerolog.Logger, shutdownTimeout time.Duration) *Tree {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	root := suture.New("statlite", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn().Fields(e.Map()).Msg(e.String())
		},
		Timeout: shutdownTimeout,
	})
	return &Tree{root: root}
}

// Add 注册一个受监管的服务。
func (t *Tree) Add(svc suture.Service) {
	t.root.Add(svc)
}

// Serve 阻塞运行所有服务，直到 ctx 结束。
func (t *Tree) Serve(ctx context.Context) error {
	err := t.root.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HTTPService 把 http.Server 适配为 suture.Service，ctx 结束时优雅关闭。
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPService 创建 HTTP 服务包装。
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve 实现 suture.Service。
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (h *HTTPService) String() string {
	return "http-server"
}
