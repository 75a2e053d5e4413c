package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/synchrobots/agvdash/internal/projection"
	"github.com/synchrobots/agvdash/internal/service"
	"github.com/synchrobots/agvdash/pkg/ws"
)

// MapImageSource 地图背景图来源
type MapImageSource interface {
	FetchMapImage(ctx context.Context, t int64) (io.ReadCloser, string, error)
}

// Handler HTTP 处理器
type Handler struct {
	logger    *zap.Logger
	dashboard *service.DashboardService
	mapImages MapImageSource
	wsHub     *ws.Hub
	viewport  projection.Viewport
	upgrader  websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	dashboard *service.DashboardService,
	mapImages MapImageSource,
	wsHub *ws.Hub,
	viewport projection.Viewport,
) *Handler {
	return &Handler{
		logger:    logger,
		dashboard: dashboard,
		mapImages: mapImages,
		wsHub:     wsHub,
		viewport:  viewport,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 看板只在内网使用
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// 看板页面
	r.GET("/", h.Index)
	r.GET(service.MapImagePath, h.MapImage)

	api := r.Group("/api")
	{
		api.GET("/regions", h.ListRegions)
		api.GET("/regions/:name", h.GetRegion)
		api.GET("/markers", h.GetMarkers)
		api.GET("/freshness", h.GetFreshness)
	}

	// 统计图表（演示数据）
	chartGroup := r.Group("/charts")
	{
		chartGroup.GET("/classify", h.ClassifyChart)
		chartGroup.GET("/success", h.SuccessChart)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
		"freshness":  h.dashboard.Freshness(),
	})
}
