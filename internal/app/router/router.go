package router

import (
	"context"
	"epg/internal/app/epg"
	"epg/internal/app/metrics"
	"strconv"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler EPG查询接口
type Handler struct {
	ctx           context.Context // 后台更新使用的上下文
	guide         *epg.Guide
	url           string
	upcomingLimit int
	logger        *zap.Logger
}

func NewHandler(ctx context.Context, guide *epg.Guide, url string, upcomingLimit int) *Handler {
	if upcomingLimit <= 0 {
		upcomingLimit = epg.DefaultUpcomingLimit
	}
	return &Handler{
		ctx:           ctx,
		guide:         guide,
		url:           url,
		upcomingLimit: upcomingLimit,
		logger:        zap.L(),
	}
}

func NewEngine(h *Handler, met *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// 创建 Gin 路由引擎
	r := gin.New()

	// 日志记录
	r.Use(ginzap.Ginzap(h.logger, "", false))
	r.Use(ginzap.RecoveryWithZap(h.logger, true))
	if met != nil {
		r.Use(metricsMiddleware(met))
		// 查询Prometheus指标
		r.GET("/metrics", gin.WrapH(met.Handler()))
	}

	// 查询频道当前节目
	r.GET("/epg/now", h.GetCurrentProgram)
	// 查询频道后续节目
	r.GET("/epg/next", h.GetUpcomingPrograms)
	// 查询更新状态
	r.GET("/epg/status", h.GetStatus)
	// 手动触发更新
	r.POST("/epg/update", h.PostUpdate)

	return r
}

// metricsMiddleware 按响应码统计请求数
func metricsMiddleware(met *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		met.ObserveHTTP(strconv.Itoa(c.Writer.Status()))
	}
}
