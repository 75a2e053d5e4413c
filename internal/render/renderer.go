// Package render 实现按变更渲染：每个数据集合缓存上一次渲染时的序列化结果，
// 只有新数据与缓存字节不同时才清空目标区域并重建全部条目。
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Target 可渲染区域：清空（保留表头等固定内容）与追加条目
type Target interface {
	Clear()
	Append(item any)
}

// Replacer 支持整体替换的区域，重建时不会暴露中间状态
type Replacer interface {
	Replace(items []any)
}

// Renderer 持有各集合的"上次渲染"缓存，集合之间互不影响
type Renderer struct {
	mu   sync.Mutex
	last map[string][]byte
}

// NewRenderer 创建渲染器
func NewRenderer() *Renderer {
	return &Renderer{
		last: make(map[string][]byte),
	}
}

// Swap 比较 items 与集合缓存，不同则写入缓存并返回 true
func (r *Renderer) Swap(collection string, items any) (bool, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("serialize %s: %w", collection, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.last[collection]; ok && bytes.Equal(prev, data) {
		return false, nil
	}
	r.last[collection] = data
	return true, nil
}

// Last 返回集合缓存的序列化内容
func (r *Renderer) Last(collection string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.last[collection]
	return data, ok
}

// Reset 丢弃集合缓存，下一次数据必然触发渲染
func (r *Renderer) Reset(collection string) {
	r.mu.Lock()
	delete(r.last, collection)
	r.mu.Unlock()
}

// RenderIfChanged 数据有变化时重建 target，返回是否发生了渲染。
// target 为 nil 时直接返回 false，不更新缓存。
func RenderIfChanged[T any](r *Renderer, collection string, items []T, target Target, build func(T) any) (bool, error) {
	if target == nil {
		return false, nil
	}

	if items == nil {
		items = []T{}
	}

	changed, err := r.Swap(collection, items)
	if err != nil || !changed {
		return false, err
	}

	Rebuild(target, items, build)
	return true, nil
}

// Rebuild 清空 target 并按输入顺序追加全部条目。
// target 实现 Replacer 时一次性替换。
func Rebuild[T any](target Target, items []T, build func(T) any) {
	if rp, ok := target.(Replacer); ok {
		built := make([]any, 0, len(items))
		for _, item := range items {
			built = append(built, build(item))
		}
		rp.Replace(built)
		return
	}

	target.Clear()
	for _, item := range items {
		target.Append(build(item))
	}
}
