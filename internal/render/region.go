package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"
)

// Region 服务端维护的一个页面区域：固定表头 + 动态条目
type Region struct {
	mu      sync.RWMutex
	name    string
	header  template.HTML
	item    *template.Template
	items   []any
	version uint64
}

// Snapshot 区域渲染结果
type Snapshot struct {
	Name    string        `json:"name"`
	Version uint64        `json:"version"`
	HTML    template.HTML `json:"html"`
}

// NewRegion 创建区域，item 模板负责渲染单个条目
func NewRegion(name string, header template.HTML, item *template.Template) *Region {
	return &Region{
		name:   name,
		header: header,
		item:   item,
	}
}

// Name 区域名（同页面元素 id）
func (r *Region) Name() string {
	return r.name
}

// Clear 移除全部条目，保留表头
func (r *Region) Clear() {
	r.mu.Lock()
	r.items = nil
	r.version++
	r.mu.Unlock()
}

// Append 追加条目
func (r *Region) Append(item any) {
	r.mu.Lock()
	r.items = append(r.items, item)
	r.version++
	r.mu.Unlock()
}

// Replace 一次性替换全部条目，读者只会看到替换前或替换后的内容
func (r *Region) Replace(items []any) {
	r.mu.Lock()
	r.items = items
	r.version++
	r.mu.Unlock()
}

// Len 当前条目数
func (r *Region) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Version 每次变更递增
func (r *Region) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Items 条目副本
func (r *Region) Items() []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]any, len(r.items))
	copy(out, r.items)
	return out
}

// Snapshot 渲染区域当前内容
func (r *Region) Snapshot() (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteString(string(r.header))
	for i, item := range r.items {
		if err := r.item.Execute(&buf, item); err != nil {
			return Snapshot{}, fmt.Errorf("render %s item %d: %w", r.name, i, err)
		}
	}

	return Snapshot{
		Name:    r.name,
		Version: r.version,
		HTML:    template.HTML(buf.String()),
	}, nil
}
