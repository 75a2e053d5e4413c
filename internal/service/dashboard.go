package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/synchrobots/agvdash/internal/config"
	"github.com/synchrobots/agvdash/internal/models"
	"github.com/synchrobots/agvdash/internal/projection"
	"github.com/synchrobots/agvdash/internal/render"
	"github.com/synchrobots/agvdash/internal/state"
	"github.com/synchrobots/agvdash/pkg/ws"
)

// 集合名，用于变更缓存与新鲜度状态
const (
	CollectionEvents      = "events"
	CollectionControlLogs = "control_logs"
	CollectionMissionLogs = "mission_logs"
	CollectionAmrStates   = "amr_states"
	CollectionAgvPosition = "agv_position"
	CollectionMapMeta     = "map_meta"
)

// Backend 数据源
type Backend interface {
	GetMapMeta(ctx context.Context) (*models.MapMeta, error)
	ListAmrStates(ctx context.Context) ([]models.VehicleState, error)
	ListEvents(ctx context.Context, limit int) ([]models.EventLog, error)
	ListControlLogs(ctx context.Context, limit int) ([]models.ControlLog, error)
	ListMissionLogs(ctx context.Context, limit int) ([]models.MissionLog, error)
	GetAgvPosition(ctx context.Context) (*models.AgvPosition, error)
}

// Publisher 向浏览器推送消息
type Publisher interface {
	BroadcastMessage(msgType string, data interface{})
}

// StreamSource 后端推送流
type StreamSource interface {
	Run(ctx context.Context, out chan<- models.StreamMessage)
}

// DashboardService 看板服务：定时轮询与推送流两路触发，按变更重建各区域
type DashboardService struct {
	cfg       *config.Config
	logger    *zap.Logger
	backend   Backend
	stream    StreamSource // 可为 nil
	publisher Publisher
	projector *projection.Projector
	renderer  *render.Renderer
	regions   *render.Regions
	freshness *state.Manager

	mu      sync.RWMutex
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	meta     *models.MapMeta
	states   []models.VehicleState // 最近一批 AMR 状态
	markers  []projection.Marker
	mapImage string

	pendingMu sync.Mutex
	pending   map[string]bool

	refreshCh chan struct{}
}

// NewDashboardService 创建看板服务
func NewDashboardService(
	cfg *config.Config,
	logger *zap.Logger,
	backend Backend,
	stream StreamSource,
	publisher Publisher,
) (*DashboardService, error) {
	svc := &DashboardService{
		cfg:       cfg,
		logger:    logger,
		backend:   backend,
		stream:    stream,
		publisher: publisher,
		projector: projection.NewProjector(cfg.Map.RotationDeg, cfg.Map.MarkerSpacing),
		renderer:  render.NewRenderer(),
		regions:   render.NewRegions(),
		stopCh:    make(chan struct{}),
		pending:   make(map[string]bool),
		refreshCh: make(chan struct{}, 1),
	}
	svc.freshness = state.NewManager(svc.onFreshnessChange)

	for _, name := range render.AllRegions {
		if !cfg.RegionEnabled(name) {
			continue
		}
		// 旧版单车圆点只在开启时出现在页面上
		if name == render.RegionAgvLegacy && !cfg.LegacyPosition {
			continue
		}
		region, err := render.NewDashboardRegion(name)
		if err != nil {
			return nil, fmt.Errorf("create region: %w", err)
		}
		svc.regions.Register(region)
	}

	return svc, nil
}

// Start 启动服务
func (s *DashboardService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("Dashboard service already running, skipping start")
		return nil
	}
	s.stopCh = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting dashboard service",
		zap.Duration("poll_interval", s.cfg.PollInterval),
		zap.Bool("stream", s.stream != nil),
		zap.Bool("legacy_position", s.cfg.LegacyPosition))

	// 背景图地址不依赖后端，首次数据加载交给 refreshWorker，不阻塞启动
	s.RefreshMapImage()

	s.wg.Add(2)
	go s.pollLoop(ctx)
	go s.refreshWorker(ctx)

	if s.stream != nil {
		s.wg.Add(1)
		go s.streamLoop(ctx)
	}

	s.logger.Info("Dashboard service started")
	return nil
}

// Stop 停止服务
func (s *DashboardService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("Stopping dashboard service")

	close(s.stopCh)
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("Dashboard service stopped")
}

// pollLoop 定时刷新 AMR 状态（以及旧版单车位置）
func (s *DashboardService) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.LoadAmrStates(ctx)
			if s.cfg.LegacyPosition {
				s.LoadLegacyPosition(ctx)
			}
		}
	}
}

// onFreshnessChange 集合新鲜度变化回调
func (s *DashboardService) onFreshnessChange(collection, from, to string) {
	s.logger.Info("Collection freshness changed",
		zap.String("collection", collection),
		zap.String("from", from),
		zap.String("to", to))
}

// beginFetch 同一集合已有请求在途时返回 false
func (s *DashboardService) beginFetch(collection string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.pending[collection] {
		return false
	}
	s.pending[collection] = true
	return true
}

func (s *DashboardService) endFetch(collection string) {
	s.pendingMu.Lock()
	delete(s.pending, collection)
	s.pendingMu.Unlock()
}

// publishRegion 推送区域最新内容
func (s *DashboardService) publishRegion(region *render.Region) {
	snap, err := region.Snapshot()
	if err != nil {
		s.logger.Error("Failed to render region", zap.String("region", region.Name()), zap.Error(err))
		return
	}
	if s.publisher != nil {
		s.publisher.BroadcastMessage(ws.MsgTypeRegion, snap)
	}
}

// Regions 区域注册表
func (s *DashboardService) Regions() *render.Regions {
	return s.regions
}

// Freshness 各集合新鲜度
func (s *DashboardService) Freshness() []state.Freshness {
	return s.freshness.All()
}

// MapMeta 当前地图标定，未加载时为 nil
func (s *DashboardService) MapMeta() *models.MapMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// MapImageURL 当前地图背景地址（带防缓存参数）
func (s *DashboardService) MapImageURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapImage
}

// Markers 最近一次绘制的标记
func (s *DashboardService) Markers() []projection.Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]projection.Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// MarkersFor 用最近一批 AMR 状态按指定视口重新计算标记
func (s *DashboardService) MarkersFor(vp projection.Viewport) ([]projection.Marker, error) {
	s.mu.RLock()
	meta := s.meta
	states := s.states
	s.mu.RUnlock()

	return s.projector.Layout(states, meta, vp)
}

// InitData 新连接的初始数据
func (s *DashboardService) InitData() *ws.InitData {
	snaps, err := s.regions.Snapshots()
	if err != nil {
		s.logger.Error("Failed to render regions for init", zap.Error(err))
		return nil
	}
	return &ws.InitData{
		Regions:  snaps,
		Markers:  s.Markers(),
		MapImage: s.MapImageURL(),
	}
}

// viewport 配置中的默认视口
func (s *DashboardService) viewport() projection.Viewport {
	return projection.Viewport{
		Width:  s.cfg.Map.ViewportWidth,
		Height: s.cfg.Map.ViewportHeight,
	}
}
