package render

import (
	"fmt"
	"strings"

	"github.com/synchrobots/agvdash/internal/models"
	"github.com/synchrobots/agvdash/internal/projection"
)

// Badge 带样式类的标签
type Badge struct {
	Text  string
	Class string
}

// EventRow 事件表的一行
type EventRow struct {
	Time    string
	Device  string
	Type    string
	Level   Badge
	Message string
}

// ControlRow 控制日志表的一行
type ControlRow struct {
	Time   string
	Target string
	Source string
	Result Badge
	Detail string
}

// MissionItem 任务列表条目
type MissionItem struct {
	Label  string
	Meta   string
	Status Badge
}

// StatusItem AMR 状态面板条目
type StatusItem struct {
	Dot    string // green, yellow, red
	Label  string
	Detail string
}

// MarkerNode 地图上的车辆标记
type MarkerNode struct {
	Left  float64
	Top   float64
	Label string
}

// LegacyDot 旧版单车位置圆点
type LegacyDot struct {
	X      float64
	Y      float64
	Radius float64
}

// Diameter 圆点直径
func (d LegacyDot) Diameter() float64 {
	return d.Radius * 2
}

const detailSep = " · "

// ClockTime 截取 ISO-8601 风格时间戳的 HH:MM:SS 部分（第 11~19 个字符）
func ClockTime(ts string) string {
	if len(ts) <= 11 {
		return ""
	}
	end := 19
	if len(ts) < end {
		end = len(ts)
	}
	return ts[11:end]
}

// DeviceLabel 有设备名用设备名，否则用设备 ID，都没有返回 "-"
func DeviceLabel(id string, eq *models.Equipment) string {
	if eq != nil && eq.EquipmentName != "" {
		return eq.EquipmentName
	}
	if id == "" {
		return "-"
	}
	return id
}

// LevelClass 事件级别 -> 样式类
func LevelClass(level string) string {
	switch level {
	case models.LevelErr:
		return "lvl-err"
	case models.LevelWarn:
		return "lvl-warn"
	default:
		return "lvl-info"
	}
}

// ResultClass 控制结果 -> 样式类，SUCCESS/FAIL 以外的结果按警告显示
func ResultClass(result string) string {
	switch result {
	case models.ResultSuccess:
		return "lvl-info"
	case models.ResultFail:
		return "lvl-err"
	default:
		return "lvl-warn"
	}
}

// MissionClass 任务状态 -> 样式类
func MissionClass(status string) string {
	switch status {
	case models.MissionRunning:
		return "status-running"
	case models.MissionDone:
		return "status-done"
	default:
		return "status-error"
	}
}

// StateDot AMR 状态码 -> 指示灯颜色
func StateDot(code string) string {
	switch strings.ToUpper(code) {
	case "IDLE", "WAIT":
		return "yellow"
	case "ERR", "ERROR", "ALARM":
		return "red"
	default:
		return "green"
	}
}

// FormatEvent 事件日志 -> 表格行
func FormatEvent(e models.EventLog) any {
	level := e.Level
	if level == "" {
		level = models.LevelInfo
	}
	return EventRow{
		Time:    ClockTime(e.CreatedAt),
		Device:  DeviceLabel(e.EquipmentID, e.Equipment),
		Type:    e.EquipmentType,
		Level:   Badge{Text: level, Class: LevelClass(level)},
		Message: e.Message,
	}
}

// FormatControl 控制日志 -> 表格行
func FormatControl(c models.ControlLog) any {
	source := c.Source
	if source == "" {
		source = "-"
	}
	if c.TargetType != "" {
		source = source + " / " + c.TargetType
	}

	result := c.ResultStatus
	if result == "" {
		result = models.ResultSuccess
	}

	var parts []string
	for _, p := range []string{c.ActionType, c.RequestPayload, c.ResultMessage} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return ControlRow{
		Time:   ClockTime(c.CreatedAt),
		Target: DeviceLabel(c.EquipmentID, c.Equipment),
		Source: source,
		Result: Badge{Text: result, Class: ResultClass(result)},
		Detail: strings.Join(parts, detailSep),
	}
}

// FormatMission 任务日志 -> 列表条目
func FormatMission(m models.MissionLog) any {
	label := m.EquipmentID
	if label == "" {
		label = "-"
	}
	if m.Equipment != nil && m.Equipment.EquipmentName != "" {
		label = m.Equipment.EquipmentName + detailSep + m.EquipmentID
	}

	step := m.Description
	if step == "" {
		step = "-"
	}

	status := m.Status
	if status == "" {
		status = models.LevelInfo
	}

	return MissionItem{
		Label:  label,
		Meta:   fmt.Sprintf("단계: %s / 시작: %s", step, ClockTime(m.CreatedAt)),
		Status: Badge{Text: status, Class: MissionClass(status)},
	}
}

// FormatStatus AMR 状态 -> 状态面板条目
func FormatStatus(s models.VehicleState) any {
	code := strings.ToUpper(s.StateCode)

	var parts []string
	switch code {
	case "MOVE", "RUN":
		parts = append(parts, "정상 주행")
	case "IDLE", "WAIT":
		parts = append(parts, "대기")
	case "ERR", "ERROR", "ALARM":
		parts = append(parts, "오류 / 알람")
	case "":
	default:
		parts = append(parts, code)
	}
	if s.BatteryPct != nil {
		parts = append(parts, fmt.Sprintf("배터리 %.0f%%", *s.BatteryPct))
	}
	if s.Speed != nil {
		parts = append(parts, fmt.Sprintf("속도 %.2f m/s", *s.Speed))
	}

	return StatusItem{
		Dot:    StateDot(code),
		Label:  DeviceLabel(s.EquipmentID, s.Equipment) + " 상태",
		Detail: strings.Join(parts, detailSep),
	}
}

// FormatLegacyPosition 旧版位置 -> 圆点
func FormatLegacyPosition(p models.AgvPosition) any {
	return LegacyDot{X: p.X, Y: p.Y, Radius: 15}
}

// FormatMarker 投影结果 -> 地图标记
func FormatMarker(m projection.Marker) any {
	return MarkerNode{Left: m.X, Top: m.Y, Label: m.Label}
}
