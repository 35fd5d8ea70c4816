// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"antifraud/internal/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// AppInfo 包含启动一个 worker 进程所需的全部信息。
type AppInfo struct {
	ServiceName string
	Port        int
	// RegisterHandlers 允许进程注册自己的 HTTP 路由（健康检查、指标等）
	RegisterHandlers func(mux *http.ServeMux)
	// Run 是阻塞式的主工作循环（消费循环）；收到退出信号后 ctx 被取消
	Run func(ctx context.Context) error
	// OnShutdown 在退出时按注册顺序执行（关闭 reader/writer、DB、tracer 等）
	OnShutdown []func(ctx context.Context)
}

// StartService 封装通用的启动和优雅关停逻辑：
// HTTP 服务与主循环并行运行，任一出错或收到 SIGINT/SIGTERM 即进入关停流程。
func StartService(info AppInfo) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(mux)
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.L().Info().Int("port", info.Port).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if info.Run != nil {
		g.Go(func() error {
			return info.Run(gctx)
		})
	}

	// HTTP 服务随主循环一起退出
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	// 按注册顺序执行清理操作
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, fn := range info.OnShutdown {
		fn(cleanupCtx)
	}

	logger.L().Info().Msgf("Service %s gracefully shut down", info.ServiceName)
	return err
}
