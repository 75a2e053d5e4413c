package render

import (
	"fmt"
	"html/template"
	"sort"
	"sync"
)

// 区域名，与页面元素 id 一致
const (
	RegionEvents    = "events-table"
	RegionControl   = "control-table"
	RegionMissions  = "mission-list"
	RegionAgvStatus = "agv-status-list"
	RegionAgvPath   = "agv-path"
	RegionAgvLegacy = "agv-legacy"
)

// AllRegions 全部内置区域
var AllRegions = []string{
	RegionEvents,
	RegionControl,
	RegionMissions,
	RegionAgvStatus,
	RegionAgvPath,
	RegionAgvLegacy,
}

var itemTemplates = template.Must(template.New("items").Funcs(template.FuncMap{
	"px": func(v float64) string { return fmt.Sprintf("%.2fpx", v) },
}).Parse(itemTemplatesText))

var headers = map[string]template.HTML{
	RegionEvents:  template.HTML(eventsHeader),
	RegionControl: template.HTML(controlHeader),
}

var itemTemplateNames = map[string]string{
	RegionEvents:    "event_row",
	RegionControl:   "control_row",
	RegionMissions:  "mission_item",
	RegionAgvStatus: "status_item",
	RegionAgvPath:   "agv_node",
	RegionAgvLegacy: "agv_dot",
}

// NewDashboardRegion 按名称创建内置区域
func NewDashboardRegion(name string) (*Region, error) {
	tmplName, ok := itemTemplateNames[name]
	if !ok {
		return nil, fmt.Errorf("unknown region %q", name)
	}
	return NewRegion(name, headers[name], itemTemplates.Lookup(tmplName)), nil
}

// Regions 区域注册表，未注册的区域视为页面上不存在
type Regions struct {
	mu      sync.RWMutex
	regions map[string]*Region
}

// NewRegions 创建注册表
func NewRegions() *Regions {
	return &Regions{regions: make(map[string]*Region)}
}

// Register 注册区域
func (rs *Regions) Register(r *Region) {
	rs.mu.Lock()
	rs.regions[r.Name()] = r
	rs.mu.Unlock()
}

// Get 查找区域
func (rs *Regions) Get(name string) (*Region, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	r, ok := rs.regions[name]
	return r, ok
}

// Snapshots 全部区域的当前内容，按名称排序
func (rs *Regions) Snapshots() ([]Snapshot, error) {
	rs.mu.RLock()
	names := make([]string, 0, len(rs.regions))
	for name := range rs.regions {
		names = append(names, name)
	}
	rs.mu.RUnlock()
	sort.Strings(names)

	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		r, ok := rs.Get(name)
		if !ok {
			continue
		}
		snap, err := r.Snapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}
