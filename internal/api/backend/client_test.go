package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestBackend(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/dashboard/map-meta", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"origin_x":"-1.5","origin_y":0,"resolution":"0.05","img_width":400,"img_height":300,"crop_x_min":10,"crop_y_min":20,"crop_w":200,"crop_h":"150"}`)
	})
	mux.HandleFunc("/api/v1/dashboard/amr_states", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items":[{"equipment_id":"AMR-01","pos_x":1.5,"pos_y":2.5,"state_code":"MOVE","battery_pct":80,"equipment":{"equipment_id":"AMR-01","equipment_name":"Picker"}}]}`)
	})
	mux.HandleFunc("/api/v1/dashboard/events_logs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "10" {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		io.WriteString(w, `{"items":[{"event_id":1,"equipment_id":"PLC-1","level":"ERR","message":"estop","created_at":"2025-11-20 10:00:00"}]}`)
	})
	mux.HandleFunc("/api/v1/dashboard/control_logs", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})
	mux.HandleFunc("/api/v1/dashboard/mission_logs", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/v1/dashboard/map-image", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") == "" {
			http.Error(w, "missing t", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("PNGDATA"))
	})
	mux.HandleFunc("/api/agv_position", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"x": 120, "y": 45`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL+"/", "api/v1/dashboard/", 5*time.Second)
}

func TestClient_GetMapMeta(t *testing.T) {
	_, c := newTestBackend(t)

	meta, err := c.GetMapMeta(context.Background())
	if err != nil {
		t.Fatalf("GetMapMeta failed: %v", err)
	}
	if meta.OriginX != -1.5 || meta.Resolution != 0.05 || meta.CropH != 150 {
		t.Errorf("Unexpected meta: %+v", meta)
	}
	if !meta.Valid() {
		t.Error("Meta should be valid")
	}
}

func TestClient_ListAmrStates(t *testing.T) {
	_, c := newTestBackend(t)

	states, err := c.ListAmrStates(context.Background())
	if err != nil {
		t.Fatalf("ListAmrStates failed: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("Expected 1 state, got %d", len(states))
	}
	s := states[0]
	if s.PosX != 1.5 || s.Equipment == nil || s.Equipment.EquipmentName != "Picker" {
		t.Errorf("Unexpected state: %+v", s)
	}
	if s.BatteryPct == nil || *s.BatteryPct != 80 || s.Speed != nil {
		t.Errorf("Optional fields decoded wrong: %+v", s)
	}
}

func TestClient_ListEventsSendsLimit(t *testing.T) {
	_, c := newTestBackend(t)

	events, err := c.ListEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Level != "ERR" {
		t.Errorf("Unexpected events: %+v", events)
	}

	if _, err := c.ListEvents(context.Background(), 3); err == nil {
		t.Error("Backend rejected limit=3, expected error")
	}
}

func TestClient_MissingItemsIsEmpty(t *testing.T) {
	_, c := newTestBackend(t)

	logs, err := c.ListControlLogs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListControlLogs failed: %v", err)
	}
	if logs == nil || len(logs) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", logs)
	}
}

func TestClient_Errors(t *testing.T) {
	_, c := newTestBackend(t)

	_, err := c.ListMissionLogs(context.Background(), 5)
	if err == nil || !strings.Contains(err.Error(), "status=500") {
		t.Errorf("Expected status error, got %v", err)
	}

	if _, err := c.GetAgvPosition(context.Background()); err == nil {
		t.Error("Malformed JSON should return error")
	}

	unreachable := NewClient("http://127.0.0.1:1", "/api/v1/dashboard", time.Second)
	if _, err := unreachable.ListAmrStates(context.Background()); err == nil {
		t.Error("Unreachable backend should return error")
	}
}

func TestClient_FetchMapImage(t *testing.T) {
	srv, c := newTestBackend(t)

	if got, want := c.MapImageURL(42), srv.URL+"/api/v1/dashboard/map-image?t=42"; got != want {
		t.Errorf("MapImageURL = %s, want %s", got, want)
	}

	body, contentType, err := c.FetchMapImage(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchMapImage failed: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != "PNGDATA" || contentType != "image/png" {
		t.Errorf("Unexpected image %q (%s)", data, contentType)
	}
}
