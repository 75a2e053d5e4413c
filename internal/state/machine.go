package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// 数据新鲜度状态
const (
	StateStale = "stale" // 尚未成功拉取，或最近一次拉取失败
	StateFresh = "fresh" // 最近一次拉取成功
)

// 事件常量
const (
	EventFetchOK     = "fetch_ok"
	EventFetchFailed = "fetch_failed"
)

// Freshness 集合新鲜度快照
type Freshness struct {
	Collection string    `json:"collection"`
	State      string    `json:"state"`
	Since      time.Time `json:"since"`
	LastError  string    `json:"last_error,omitempty"`
	Failures   int64     `json:"failures"`
}

// Machine 单个集合的新鲜度状态机
type Machine struct {
	mu            sync.RWMutex
	collection    string
	fsm           *fsm.FSM
	since         time.Time
	lastError     string
	failures      int64
	onStateChange func(collection, from, to string)
}

// NewMachine 创建状态机，初始为 stale
func NewMachine(collection string, onStateChange func(collection, from, to string)) *Machine {
	m := &Machine{
		collection:    collection,
		since:         time.Now(),
		onStateChange: onStateChange,
	}

	m.fsm = fsm.NewFSM(
		StateStale,
		fsm.Events{
			{Name: EventFetchOK, Src: []string{StateStale, StateFresh}, Dst: StateFresh},
			{Name: EventFetchFailed, Src: []string{StateStale, StateFresh}, Dst: StateStale},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(m.collection, e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// Current 当前状态
func (m *Machine) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// MarkFresh 拉取成功
func (m *Machine) MarkFresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastError = ""
	m.trigger(EventFetchOK)
}

// MarkStale 拉取失败
func (m *Machine) MarkStale(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	if cause != nil {
		m.lastError = cause.Error()
	}
	m.trigger(EventFetchFailed)
}

// trigger 触发事件，状态不变不算错误。其他错误记入 lastError，
// 随快照一起暴露。调用方持有锁。
func (m *Machine) trigger(event string) {
	from := m.fsm.Current()
	if err := m.fsm.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			m.lastError = fmt.Sprintf("trigger event %s: %v", event, err)
		}
		return
	}

	if m.fsm.Current() != from {
		m.since = time.Now()
	}
}

// Snapshot 获取新鲜度快照
func (m *Machine) Snapshot() Freshness {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Freshness{
		Collection: m.collection,
		State:      m.fsm.Current(),
		Since:      m.since,
		LastError:  m.lastError,
		Failures:   m.failures,
	}
}

// Manager 状态机管理器
type Manager struct {
	mu       sync.RWMutex
	machines map[string]*Machine
	onChange func(collection, from, to string)
}

// NewManager 创建管理器
func NewManager(onChange func(collection, from, to string)) *Manager {
	return &Manager{
		machines: make(map[string]*Machine),
		onChange: onChange,
	}
}

// GetOrCreate 获取或创建状态机
func (m *Manager) GetOrCreate(collection string) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if machine, ok := m.machines[collection]; ok {
		return machine
	}

	machine := NewMachine(collection, m.onChange)
	m.machines[collection] = machine
	return machine
}

// Get 获取状态机
func (m *Manager) Get(collection string) (*Machine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	machine, ok := m.machines[collection]
	return machine, ok
}

// All 全部集合的新鲜度，按集合名排序
func (m *Manager) All() []Freshness {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Freshness, 0, len(m.machines))
	for _, machine := range m.machines {
		out = append(out, machine.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out
}
