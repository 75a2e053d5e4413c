package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/synchrobots/agvdash/internal/models"
	"github.com/synchrobots/agvdash/internal/render"
	"github.com/synchrobots/agvdash/pkg/ws"
)

// MapImagePath 本服务代理地图背景图的路径
const MapImagePath = "/map-image"

// loadCollection 一次刷新周期：区域不存在直接返回；拉取失败记录日志并放弃本次，
// 上一次的渲染结果保持不变；成功则按变更重建区域。
func loadCollection[T any](
	ctx context.Context,
	s *DashboardService,
	collection, regionName string,
	fetch func(ctx context.Context) ([]T, error),
	build func(T) any,
) (bool, error) {
	region, ok := s.regions.Get(regionName)
	if !ok {
		return false, nil
	}

	if !s.beginFetch(collection) {
		s.logger.Debug("Previous fetch still pending, skipping", zap.String("collection", collection))
		return false, nil
	}
	defer s.endFetch(collection)

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	items, err := fetch(fetchCtx)
	machine := s.freshness.GetOrCreate(collection)
	if err != nil {
		machine.MarkStale(err)
		s.logger.Error("Failed to load collection", zap.String("collection", collection), zap.Error(err))
		return false, err
	}
	machine.MarkFresh()

	changed, err := render.RenderIfChanged(s.renderer, collection, items, region, build)
	if err != nil {
		s.logger.Error("Failed to render collection", zap.String("collection", collection), zap.Error(err))
		return false, err
	}
	if changed {
		s.logger.Debug("Collection changed, region rebuilt",
			zap.String("collection", collection),
			zap.Int("items", len(items)))
		s.publishRegion(region)
	}
	return changed, nil
}

// LoadEvents 刷新事件日志表
func (s *DashboardService) LoadEvents(ctx context.Context) (bool, error) {
	return loadCollection(ctx, s, CollectionEvents, render.RegionEvents,
		func(ctx context.Context) ([]models.EventLog, error) {
			return s.backend.ListEvents(ctx, s.cfg.Limits.Events)
		}, render.FormatEvent)
}

// LoadControlLogs 刷新控制日志表
func (s *DashboardService) LoadControlLogs(ctx context.Context) (bool, error) {
	return loadCollection(ctx, s, CollectionControlLogs, render.RegionControl,
		func(ctx context.Context) ([]models.ControlLog, error) {
			return s.backend.ListControlLogs(ctx, s.cfg.Limits.Control)
		}, render.FormatControl)
}

// LoadMissionLogs 刷新任务列表
func (s *DashboardService) LoadMissionLogs(ctx context.Context) (bool, error) {
	return loadCollection(ctx, s, CollectionMissionLogs, render.RegionMissions,
		func(ctx context.Context) ([]models.MissionLog, error) {
			return s.backend.ListMissionLogs(ctx, s.cfg.Limits.Missions)
		}, render.FormatMission)
}

// LoadLegacyPosition 刷新旧版单车位置圆点
func (s *DashboardService) LoadLegacyPosition(ctx context.Context) (bool, error) {
	var latest *models.AgvPosition
	changed, err := loadCollection(ctx, s, CollectionAgvPosition, render.RegionAgvLegacy,
		func(ctx context.Context) ([]models.AgvPosition, error) {
			pos, err := s.backend.GetAgvPosition(ctx)
			if err != nil {
				return nil, err
			}
			latest = pos
			return []models.AgvPosition{*pos}, nil
		}, render.FormatLegacyPosition)
	if changed && latest != nil && s.publisher != nil {
		s.publisher.BroadcastMessage(ws.MsgTypeLegacyPosition, latest)
	}
	return changed, err
}

// LoadAmrStates 刷新 AMR 状态：有变化时重建状态面板并重新绘制地图标记
func (s *DashboardService) LoadAmrStates(ctx context.Context) (bool, error) {
	statusRegion, hasStatus := s.regions.Get(render.RegionAgvStatus)
	_, hasPath := s.regions.Get(render.RegionAgvPath)
	if !hasStatus && !hasPath {
		return false, nil
	}

	if !s.beginFetch(CollectionAmrStates) {
		s.logger.Debug("Previous fetch still pending, skipping", zap.String("collection", CollectionAmrStates))
		return false, nil
	}
	defer s.endFetch(CollectionAmrStates)

	s.ensureMapMeta(ctx)

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	items, err := s.backend.ListAmrStates(fetchCtx)
	machine := s.freshness.GetOrCreate(CollectionAmrStates)
	if err != nil {
		machine.MarkStale(err)
		s.logger.Error("Failed to load collection", zap.String("collection", CollectionAmrStates), zap.Error(err))
		return false, err
	}
	machine.MarkFresh()

	if items == nil {
		items = []models.VehicleState{}
	}

	s.mu.Lock()
	s.states = items
	s.mu.Unlock()

	changed, err := s.renderer.Swap(CollectionAmrStates, items)
	if err != nil {
		s.logger.Error("Failed to render collection", zap.String("collection", CollectionAmrStates), zap.Error(err))
		return false, err
	}
	if !changed {
		return false, nil
	}

	if hasStatus {
		render.Rebuild(statusRegion, items, render.FormatStatus)
		s.publishRegion(statusRegion)
	}
	s.DrawMarkers(items)
	return true, nil
}

// DrawMarkers 投影并重绘地图标记。标定数据缺失或不可用时保留上一次的标记。
func (s *DashboardService) DrawMarkers(states []models.VehicleState) {
	region, ok := s.regions.Get(render.RegionAgvPath)
	if !ok {
		return
	}

	meta := s.MapMeta()
	if !meta.Valid() {
		s.logger.Debug("Map meta not ready, keeping previous markers")
		return
	}

	markers, err := s.projector.Layout(states, meta, s.viewport())
	if err != nil {
		s.logger.Warn("Failed to layout markers", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.markers = markers
	s.mu.Unlock()

	render.Rebuild(region, markers, render.FormatMarker)
	s.publishRegion(region)
	if s.publisher != nil {
		s.publisher.BroadcastMessage(ws.MsgTypeMarkers, markers)
	}
}

// ensureMapMeta 标定数据尚未加载时加载一次
func (s *DashboardService) ensureMapMeta(ctx context.Context) {
	if s.MapMeta() != nil {
		return
	}
	if err := s.LoadMapMeta(ctx); err != nil {
		s.logger.Warn("Map meta still unavailable", zap.Error(err))
	}
}

// LoadMapMeta 拉取地图标定数据
func (s *DashboardService) LoadMapMeta(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	meta, err := s.backend.GetMapMeta(fetchCtx)
	machine := s.freshness.GetOrCreate(CollectionMapMeta)
	if err != nil {
		machine.MarkStale(err)
		return fmt.Errorf("load map meta: %w", err)
	}
	machine.MarkFresh()

	if !meta.Valid() {
		s.logger.Warn("Map meta is not usable for projection",
			zap.Float64("resolution", meta.Resolution),
			zap.Float64("crop_w", meta.CropW),
			zap.Float64("crop_h", meta.CropH))
	}

	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()
	return nil
}

// RefreshMapImage 生成新的地图背景地址并推送
func (s *DashboardService) RefreshMapImage() string {
	t := time.Now().UnixMilli()
	url := MapImagePath + "?t=" + strconv.FormatInt(t, 10)

	s.mu.Lock()
	s.mapImage = url
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.BroadcastMessage(ws.MsgTypeMapImage, url)
	}
	return url
}

// RefreshAll 并发刷新全部集合，返回第一个错误
func (s *DashboardService) RefreshAll(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error {
		_, err := s.LoadEvents(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.LoadControlLogs(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.LoadMissionLogs(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.LoadAmrStates(ctx)
		return err
	})
	if s.cfg.LegacyPosition {
		g.Go(func() error {
			_, err := s.LoadLegacyPosition(ctx)
			return err
		})
	}

	return g.Wait()
}
