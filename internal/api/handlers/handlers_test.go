package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/synchrobots/agvdash/internal/config"
	"github.com/synchrobots/agvdash/internal/models"
	"github.com/synchrobots/agvdash/internal/projection"
	"github.com/synchrobots/agvdash/internal/service"
	"github.com/synchrobots/agvdash/pkg/ws"
)

type stubBackend struct {
	meta   *models.MapMeta
	states []models.VehicleState
}

func (b *stubBackend) GetMapMeta(ctx context.Context) (*models.MapMeta, error) {
	if b.meta == nil {
		return nil, errors.New("no meta")
	}
	return b.meta, nil
}

func (b *stubBackend) ListAmrStates(ctx context.Context) ([]models.VehicleState, error) {
	return b.states, nil
}

func (b *stubBackend) ListEvents(ctx context.Context, limit int) ([]models.EventLog, error) {
	return []models.EventLog{{EventID: 1, EquipmentID: "AGV-01", Level: models.LevelErr, Message: "e-stop"}}, nil
}

func (b *stubBackend) ListControlLogs(ctx context.Context, limit int) ([]models.ControlLog, error) {
	return nil, nil
}

func (b *stubBackend) ListMissionLogs(ctx context.Context, limit int) ([]models.MissionLog, error) {
	return nil, nil
}

func (b *stubBackend) GetAgvPosition(ctx context.Context) (*models.AgvPosition, error) {
	return &models.AgvPosition{}, nil
}

type stubImages struct {
	err error
}

func (s *stubImages) FetchMapImage(ctx context.Context, t int64) (io.ReadCloser, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return io.NopCloser(strings.NewReader("PNGDATA")), "image/png", nil
}

func setupRouter(t *testing.T, backend *stubBackend, images *stubImages) (*gin.Engine, *service.DashboardService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		RequestTimeout: time.Second,
		PollInterval:   time.Second,
		Map:            config.MapConfig{RotationDeg: 0, MarkerSpacing: 14, ViewportWidth: 640, ViewportHeight: 360},
		Limits:         config.LimitConfig{Events: 10, Control: 10, Missions: 5},
	}
	logger := zap.NewNop()
	hub := ws.NewHub(logger)

	svc, err := service.NewDashboardService(cfg, logger, backend, nil, hub)
	if err != nil {
		t.Fatalf("NewDashboardService failed: %v", err)
	}

	h := NewHandler(logger, svc, images, hub, projection.Viewport{Width: 640, Height: 360})
	r := gin.New()
	h.RegisterRoutes(r)
	return r, svc
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r, _ := setupRouter(t, &stubBackend{}, &stubImages{})

	w := get(r, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Unexpected body: %v", body)
	}
	if _, ok := body["ws_clients"]; !ok {
		t.Error("Missing ws_clients")
	}
}

func TestGetRegion(t *testing.T) {
	r, svc := setupRouter(t, &stubBackend{}, &stubImages{})
	if _, err := svc.LoadEvents(context.Background()); err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}

	w := get(r, "/api/regions/events-table")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "e-stop") {
		t.Errorf("Region should contain the event message: %s", w.Body.String())
	}

	if w := get(r, "/api/regions/unknown"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestGetMarkers(t *testing.T) {
	backend := &stubBackend{
		states: []models.VehicleState{{EquipmentID: "AGV-01", PosX: 10, PosY: 10}},
	}
	r, svc := setupRouter(t, backend, &stubImages{})

	// 标定数据未加载
	if w := get(r, "/api/markers"); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 without map meta, got %d", w.Code)
	}

	backend.meta = &models.MapMeta{Resolution: 1, ImgHeight: 100, CropW: 100, CropH: 100}
	if _, err := svc.LoadAmrStates(context.Background()); err != nil {
		t.Fatalf("LoadAmrStates failed: %v", err)
	}

	w := get(r, "/api/markers?w=200&h=200")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data []projection.Marker `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("Expected 1 marker, got %d", len(body.Data))
	}
	if got := body.Data[0]; got.X < 19.999 || got.X > 20.001 || got.Y < 179.999 || got.Y > 180.001 {
		t.Errorf("Expected marker near (20, 180), got (%v, %v)", got.X, got.Y)
	}

	if w := get(r, "/api/markers?w=abc"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad width, got %d", w.Code)
	}
}

func TestMapImage(t *testing.T) {
	r, _ := setupRouter(t, &stubBackend{}, &stubImages{})

	w := get(r, "/map-image?t=123")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Unexpected content type %q", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != "PNGDATA" {
		t.Errorf("Unexpected body %q", w.Body.String())
	}

	r, _ = setupRouter(t, &stubBackend{}, &stubImages{err: errors.New("backend down")})
	if w := get(r, "/map-image"); w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", w.Code)
	}
}

func TestCharts(t *testing.T) {
	r, _ := setupRouter(t, &stubBackend{}, &stubImages{})

	for _, path := range []string{"/charts/classify", "/charts/success"} {
		w := get(r, path)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
			continue
		}
		if !strings.Contains(w.Body.String(), "echarts") {
			t.Errorf("%s: body does not look like an echarts page", path)
		}
	}
}

func TestIndex(t *testing.T) {
	r, svc := setupRouter(t, &stubBackend{}, &stubImages{})
	svc.RefreshMapImage()

	w := get(r, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, id := range []string{`id="events-table"`, `id="agv-path"`, `id="mission-list"`, "/map-image"} {
		if !strings.Contains(body, id) {
			t.Errorf("Page missing %s", id)
		}
	}
	if strings.Contains(body, `id="agv-legacy"`) {
		t.Error("Legacy region should not be rendered when disabled")
	}
}
