package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/synchrobots/agvdash/internal/api/backend"
	"github.com/synchrobots/agvdash/internal/api/handlers"
	"github.com/synchrobots/agvdash/internal/config"
	"github.com/synchrobots/agvdash/internal/projection"
	"github.com/synchrobots/agvdash/internal/service"
	"github.com/synchrobots/agvdash/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting agvdash",
		zap.String("port", cfg.ServerPort),
		zap.String("backend", cfg.BackendURL))

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 后端客户端
	backendClient := backend.NewClient(cfg.BackendURL, cfg.APIPrefix, cfg.RequestTimeout)

	var stream service.StreamSource
	if cfg.StreamEnabled {
		stream = backend.NewStream(logger, backendClient.StreamURL(), cfg.StreamReconnectDelay)
	}

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run()

	// 创建看板服务
	dashboard, err := service.NewDashboardService(cfg, logger, backendClient, stream, wsHub)
	if err != nil {
		logger.Fatal("Failed to create dashboard service", zap.Error(err))
	}
	wsHub.SetInitDataProvider(dashboard.InitData)

	if err := dashboard.Start(ctx); err != nil {
		logger.Fatal("Failed to start dashboard service", zap.Error(err))
	}

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(
		logger,
		dashboard,
		backendClient,
		wsHub,
		projection.Viewport{Width: cfg.Map.ViewportWidth, Height: cfg.Map.ViewportHeight},
	)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router)

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 停止服务
	dashboard.Stop()

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
