package projection

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/synchrobots/agvdash/internal/models"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func unitMeta() *models.MapMeta {
	return &models.MapMeta{
		OriginX:    0,
		OriginY:    0,
		Resolution: 1,
		ImgWidth:   100,
		ImgHeight:  100,
		CropXMin:   0,
		CropYMin:   0,
		CropW:      100,
		CropH:      100,
	}
}

func TestProject_EndToEnd(t *testing.T) {
	p := NewProjector(0, DefaultSpacing)

	rel, err := p.Normalize(Point{X: 10, Y: 10}, Point{}, unitMeta())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !near(rel.X, 0.1) || !near(rel.Y, 0.9) {
		t.Errorf("Expected normalized (0.1, 0.9), got (%v, %v)", rel.X, rel.Y)
	}

	got, err := p.Project(Point{X: 10, Y: 10}, Point{}, unitMeta(), Viewport{Width: 200, Height: 200})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if !near(got.X, 20) || !near(got.Y, 180) {
		t.Errorf("Expected screen (20, 180), got (%v, %v)", got.X, got.Y)
	}
}

func TestProject_ZeroRotationIsPurePipeline(t *testing.T) {
	meta := &models.MapMeta{
		OriginX:    -5,
		OriginY:    2,
		Resolution: 0.5,
		ImgHeight:  400,
		CropXMin:   30,
		CropYMin:   40,
		CropW:      200,
		CropH:      300,
	}
	vp := Viewport{Width: 640, Height: 360}
	p := NewProjector(0, DefaultSpacing)
	centroid := Point{X: 17, Y: -3}

	for _, pos := range []Point{{0, 0}, {20, 30}, {55.5, 12.25}, {-4, 100}} {
		got, err := p.Project(pos, centroid, meta, vp)
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}

		px := (pos.X-meta.OriginX)/meta.Resolution - meta.CropXMin
		py := meta.ImgHeight - (pos.Y-meta.OriginY)/meta.Resolution - meta.CropYMin
		px = math.Min(math.Max(px, 0), meta.CropW)
		py = math.Min(math.Max(py, 0), meta.CropH)
		wantX := px / meta.CropW * vp.Width
		wantY := py / meta.CropH * vp.Height

		if !near(got.X, wantX) || !near(got.Y, wantY) {
			t.Errorf("pos %v: expected (%v, %v), got (%v, %v)", pos, wantX, wantY, got.X, got.Y)
		}
	}
}

func TestProject_RotationAboutCentroid(t *testing.T) {
	meta := &models.MapMeta{Resolution: 1, ImgHeight: 100, CropW: 100, CropH: 100}
	p := NewProjector(90, DefaultSpacing)
	centroid := Point{X: 50, Y: 50}

	// (60,50) 绕 (50,50) 旋转 90° -> (50,60) -> 像素 (50, 40)
	got, err := p.Project(Point{X: 60, Y: 50}, centroid, meta, Viewport{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if !near(got.X, 50) || !near(got.Y, 40) {
		t.Errorf("Expected (50, 40), got (%v, %v)", got.X, got.Y)
	}

	// 中心点本身不受旋转影响
	got, err = p.Project(centroid, centroid, meta, Viewport{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if !near(got.X, 50) || !near(got.Y, 50) {
		t.Errorf("Centroid should stay at (50, 50), got (%v, %v)", got.X, got.Y)
	}
}

func TestProject_CropCornerAndClamp(t *testing.T) {
	meta := &models.MapMeta{
		Resolution: 1,
		ImgHeight:  100,
		CropXMin:   20,
		CropYMin:   30,
		CropW:      50,
		CropH:      40,
	}
	vp := Viewport{Width: 300, Height: 200}
	p := NewProjector(0, DefaultSpacing)

	// px = 20, py = 100 - 70 = 30 -> 裁剪区域左上角
	got, err := p.Project(Point{X: 20, Y: 70}, Point{}, meta, vp)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if !near(got.X, 0) || !near(got.Y, 0) {
		t.Errorf("Crop corner should map to (0, 0), got (%v, %v)", got.X, got.Y)
	}

	// 超出 crop_x_min+crop_w 钉在右边缘
	got, err = p.Project(Point{X: 20 + 50 + 5, Y: 70}, Point{}, meta, vp)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if !near(got.X, vp.Width) {
		t.Errorf("Overflowing x should clamp to %v, got %v", vp.Width, got.X)
	}

	// 左上方越界钉在 (0, 0)
	got, err = p.Project(Point{X: -100, Y: 500}, Point{}, meta, vp)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if !near(got.X, 0) || !near(got.Y, 0) {
		t.Errorf("Underflow should clamp to (0, 0), got (%v, %v)", got.X, got.Y)
	}
}

func TestProject_StaysInsideViewport(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vp := Viewport{Width: 480, Height: 270}

	for i := 0; i < 500; i++ {
		meta := &models.MapMeta{
			OriginX:    rng.Float64()*200 - 100,
			OriginY:    rng.Float64()*200 - 100,
			Resolution: 0.01 + rng.Float64(),
			ImgHeight:  rng.Float64() * 2000,
			CropXMin:   rng.Float64() * 500,
			CropYMin:   rng.Float64() * 500,
			CropW:      1 + rng.Float64()*1000,
			CropH:      1 + rng.Float64()*1000,
		}
		p := NewProjector(rng.Float64()*360, DefaultSpacing)
		pos := Point{X: rng.Float64()*2000 - 1000, Y: rng.Float64()*2000 - 1000}
		centroid := Point{X: rng.Float64()*200 - 100, Y: rng.Float64()*200 - 100}

		got, err := p.Project(pos, centroid, meta, vp)
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}
		if got.X < 0 || got.X > vp.Width || got.Y < 0 || got.Y > vp.Height {
			t.Fatalf("iteration %d: point (%v, %v) outside viewport", i, got.X, got.Y)
		}
	}
}

func TestProject_InvalidMeta(t *testing.T) {
	p := NewProjector(DefaultRotationDeg, DefaultSpacing)
	vp := Viewport{Width: 100, Height: 100}

	tests := []struct {
		name string
		meta *models.MapMeta
	}{
		{"nil", nil},
		{"zero resolution", &models.MapMeta{CropW: 10, CropH: 10}},
		{"zero crop_w", &models.MapMeta{Resolution: 1, CropH: 10}},
		{"NaN crop_h", &models.MapMeta{Resolution: 1, CropW: 10, CropH: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Project(Point{X: 1, Y: 1}, Point{}, tt.meta, vp); !errors.Is(err, ErrInvalidMeta) {
				t.Errorf("Expected ErrInvalidMeta, got %v", err)
			}
			markers, err := p.Layout([]models.VehicleState{{EquipmentID: "AMR-1"}}, tt.meta, vp)
			if !errors.Is(err, ErrInvalidMeta) || markers != nil {
				t.Errorf("Layout should refuse, got %v, %v", markers, err)
			}
		})
	}
}

func TestJitter(t *testing.T) {
	tests := []struct {
		index, n int
		want     float64
	}{
		{0, 1, 0},
		{0, 2, -7},
		{1, 2, 7},
		{0, 3, -14},
		{1, 3, 0},
		{2, 3, 14},
	}
	for _, tt := range tests {
		if got := Jitter(tt.index, tt.n, DefaultSpacing); !near(got, tt.want) {
			t.Errorf("Jitter(%d, %d) = %v, want %v", tt.index, tt.n, got, tt.want)
		}
	}
}

func TestCentroid(t *testing.T) {
	if c := Centroid(nil); c.X != 0 || c.Y != 0 {
		t.Errorf("Empty batch centroid should be origin, got %v", c)
	}

	c := Centroid([]models.VehicleState{
		{PosX: 0, PosY: 0},
		{PosX: 4, PosY: 2},
		{PosX: 2, PosY: 10},
	})
	if !near(c.X, 2) || !near(c.Y, 4) {
		t.Errorf("Expected (2, 4), got %v", c)
	}
}

func TestLayout(t *testing.T) {
	meta := unitMeta()
	vp := Viewport{Width: 200, Height: 200}

	t.Run("single vehicle ignores rotation", func(t *testing.T) {
		states := []models.VehicleState{{EquipmentID: "AMR-1", PosX: 10, PosY: 10}}
		markers, err := NewProjector(DefaultRotationDeg, DefaultSpacing).Layout(states, meta, vp)
		if err != nil {
			t.Fatalf("Layout failed: %v", err)
		}
		if len(markers) != 1 {
			t.Fatalf("Expected 1 marker, got %d", len(markers))
		}
		if !near(markers[0].X, 20) || !near(markers[0].Y, 180) {
			t.Errorf("Expected (20, 180), got (%v, %v)", markers[0].X, markers[0].Y)
		}
		if markers[0].Label != "AMR-1" {
			t.Errorf("Expected id label, got %q", markers[0].Label)
		}
	})

	t.Run("shared position spreads horizontally", func(t *testing.T) {
		states := []models.VehicleState{
			{EquipmentID: "AMR-1", PosX: 50, PosY: 50, Equipment: &models.Equipment{EquipmentName: "Picker"}},
			{EquipmentID: "AMR-2", PosX: 50, PosY: 50},
			{EquipmentID: "AMR-3", PosX: 50, PosY: 50},
		}
		markers, err := NewProjector(DefaultRotationDeg, DefaultSpacing).Layout(states, meta, vp)
		if err != nil {
			t.Fatalf("Layout failed: %v", err)
		}
		wantX := []float64{86, 100, 114}
		for i, m := range markers {
			if !near(m.X, wantX[i]) || !near(m.Y, 100) {
				t.Errorf("marker %d: expected (%v, 100), got (%v, %v)", i, wantX[i], m.X, m.Y)
			}
		}
		if markers[0].Label != "Picker" || markers[1].Label != "AMR-2" {
			t.Errorf("Unexpected labels: %q, %q", markers[0].Label, markers[1].Label)
		}
	})

	t.Run("centroid follows the batch", func(t *testing.T) {
		p := NewProjector(90, 0)
		a := models.VehicleState{EquipmentID: "A", PosX: 40, PosY: 50}
		b := models.VehicleState{EquipmentID: "B", PosX: 60, PosY: 50}
		c := models.VehicleState{EquipmentID: "C", PosX: 60, PosY: 70}

		pair, err := p.Layout([]models.VehicleState{a, b}, meta, vp)
		if err != nil {
			t.Fatalf("Layout failed: %v", err)
		}
		triple, err := p.Layout([]models.VehicleState{a, b, c}, meta, vp)
		if err != nil {
			t.Fatalf("Layout failed: %v", err)
		}
		if near(pair[0].X, triple[0].X) && near(pair[0].Y, triple[0].Y) {
			t.Error("Adding a vehicle should shift the rotation reference")
		}
	})
}
