package cmds

import (
	"context"
	"epg/internal/app/metrics"
	"epg/internal/app/router"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var port int

func NewServeCLI() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP服务，每天定时更新节目单，并提供当前节目、后续节目等查询接口。",
		RunE: func(cmd *cobra.Command, args []string) error {
			// L()：获取全局logger
			logger := zap.L()

			if cmd.Flags().Changed("port") {
				conf.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			met := metrics.New()
			guide := newGuide(met)

			// 创建HTTP服务
			h := router.NewHandler(ctx, guide, conf.URL, conf.UpcomingLimit)
			srv := &http.Server{
				Addr:    fmt.Sprintf(":%d", conf.Port),
				Handler: router.NewEngine(h, met),
			}

			g, gCtx := errgroup.WithContext(ctx)

			// 执行定时任务
			g.Go(func() error {
				router.Schedule(gCtx, guide, conf.URL, conf.UpdateHour, conf.UpdateMinute)
				return nil
			})

			g.Go(func() error {
				logger.Info("HTTP server starting.", zap.Int("port", conf.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-gCtx.Done()
				logger.Info("Shutdown signal received, draining connections.")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			err := g.Wait()
			logger.Info("HTTP server stopped.")
			return err
		},
	}

	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP服务的监听端口，缺省使用配置文件中的值。")

	return serveCmd
}
