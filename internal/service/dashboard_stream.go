package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/synchrobots/agvdash/internal/models"
)

// streamLoop 消费后端推送流
func (s *DashboardService) streamLoop(ctx context.Context) {
	defer s.wg.Done()

	msgs := make(chan models.StreamMessage, 16)
	streamCtx, cancel := context.WithCancel(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stream.Run(streamCtx, msgs)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case msg := <-msgs:
			s.handleStreamMessage(msg)
		}
	}
}

// handleStreamMessage 处理单条推送消息
func (s *DashboardService) handleStreamMessage(msg models.StreamMessage) {
	switch msg.Type {
	case models.StreamHello:
		s.logger.Info("Stream hello received")
	case models.StreamTick:
		s.RequestRefresh()
	default:
		s.logger.Warn("Unknown stream message type", zap.String("type", msg.Type))
	}
}

// RequestRefresh 请求一次全量刷新，已有排队请求时丢弃
func (s *DashboardService) RequestRefresh() bool {
	select {
	case s.refreshCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// refreshWorker 先做一次初始加载，之后串行执行全量刷新
func (s *DashboardService) refreshWorker(ctx context.Context) {
	defer s.wg.Done()

	s.initialLoad(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-s.refreshCh:
			if err := s.RefreshAll(ctx); err != nil {
				s.logger.Debug("Refresh incomplete", zap.Error(err))
			}
		}
	}
}

// initialLoad 页面打开时的一次性加载
func (s *DashboardService) initialLoad(ctx context.Context) {
	if err := s.LoadMapMeta(ctx); err != nil {
		s.logger.Warn("Map meta unavailable at startup, markers disabled until it loads", zap.Error(err))
	}
	if err := s.RefreshAll(ctx); err != nil {
		s.logger.Warn("Initial refresh incomplete", zap.Error(err))
	}
}
