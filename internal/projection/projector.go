// Package projection 将 AMR 的世界坐标投影到裁剪后的地图视口上。
//
// 投影流程：以当前批次车辆的平均位置为中心做固定角度旋转校正，
// 再换算为原图像素坐标（y 轴翻转），平移到裁剪区域内并夹紧到边界，
// 最后归一化并缩放到实际显示尺寸。同一批次的标记按序号做水平错开，
// 避免多辆车处在同一位置时完全重叠。
package projection

import (
	"errors"
	"math"

	"github.com/synchrobots/agvdash/internal/models"
)

// 默认参数
const (
	DefaultRotationDeg = 75.0
	DefaultSpacing     = 14.0 // px
)

// ErrInvalidMeta 地图标定数据缺失或不可用
var ErrInvalidMeta = errors.New("invalid map meta")

// Point 二维坐标
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport 实际显示区域尺寸（像素）
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Marker 视口中的单个车辆标记
type Marker struct {
	EquipmentID string  `json:"equipment_id"`
	Label       string  `json:"label"`
	RelX        float64 `json:"rel_x"` // 归一化坐标 [0,1]
	RelY        float64 `json:"rel_y"`
	X           float64 `json:"x"` // 屏幕坐标，已加错开偏移
	Y           float64 `json:"y"`
}

// Projector 坐标投影器
type Projector struct {
	rotationDeg float64
	cos         float64
	sin         float64
	spacing     float64
}

// NewProjector 创建投影器
func NewProjector(rotationDeg, spacing float64) *Projector {
	theta := rotationDeg * math.Pi / 180
	return &Projector{
		rotationDeg: rotationDeg,
		cos:         math.Cos(theta),
		sin:         math.Sin(theta),
		spacing:     spacing,
	}
}

// RotationDeg 旋转校正角度
func (p *Projector) RotationDeg() float64 {
	return p.rotationDeg
}

// Centroid 计算一批车辆的平均位置，空批次返回原点
func Centroid(states []models.VehicleState) Point {
	var c Point
	if len(states) == 0 {
		return c
	}
	for _, s := range states {
		c.X += s.PosX
		c.Y += s.PosY
	}
	c.X /= float64(len(states))
	c.Y /= float64(len(states))
	return c
}

// Normalize 世界坐标 -> 裁剪区域内的归一化坐标 [0,1]×[0,1]
func (p *Projector) Normalize(pos, centroid Point, meta *models.MapMeta) (Point, error) {
	if !meta.Valid() {
		return Point{}, ErrInvalidMeta
	}

	// 以中心点为原点旋转，再平移回去
	dx := pos.X - centroid.X
	dy := pos.Y - centroid.Y
	rx := dx*p.cos - dy*p.sin + centroid.X
	ry := dx*p.sin + dy*p.cos + centroid.Y

	// 原图像素坐标，图片 y 轴与世界 y 轴方向相反
	px := (rx - meta.OriginX) / meta.Resolution
	py := meta.ImgHeight - (ry-meta.OriginY)/meta.Resolution

	// 越界的车辆钉在边缘而不是隐藏
	cx := clamp(px-meta.CropXMin, 0, meta.CropW)
	cy := clamp(py-meta.CropYMin, 0, meta.CropH)

	return Point{X: cx / meta.CropW, Y: cy / meta.CropH}, nil
}

// Project 世界坐标 -> 视口屏幕坐标（不含错开偏移）
func (p *Projector) Project(pos, centroid Point, meta *models.MapMeta, vp Viewport) (Point, error) {
	rel, err := p.Normalize(pos, centroid, meta)
	if err != nil {
		return Point{}, err
	}
	return Point{X: rel.X * vp.Width, Y: rel.Y * vp.Height}, nil
}

// Jitter 第 index 个标记的水平偏移，使整批标记以原位置为中心展开
func Jitter(index, n int, spacing float64) float64 {
	return (float64(index) - float64(n-1)/2) * spacing
}

// Layout 计算整批车辆的标记位置。中心点每次按当前批次重新计算。
func (p *Projector) Layout(states []models.VehicleState, meta *models.MapMeta, vp Viewport) ([]Marker, error) {
	if !meta.Valid() {
		return nil, ErrInvalidMeta
	}

	centroid := Centroid(states)
	markers := make([]Marker, 0, len(states))
	for i, s := range states {
		rel, err := p.Normalize(Point{X: s.PosX, Y: s.PosY}, centroid, meta)
		if err != nil {
			return nil, err
		}
		markers = append(markers, Marker{
			EquipmentID: s.EquipmentID,
			Label:       markerLabel(s),
			RelX:        rel.X,
			RelY:        rel.Y,
			X:           rel.X*vp.Width + Jitter(i, len(states), p.spacing),
			Y:           rel.Y * vp.Height,
		})
	}
	return markers, nil
}

func markerLabel(s models.VehicleState) string {
	if s.Equipment != nil && s.Equipment.EquipmentName != "" {
		return s.Equipment.EquipmentName
	}
	return s.EquipmentID
}

// clamp 先下限后上限，依次判断
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}
