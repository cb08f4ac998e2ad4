package hotkey

import (
	"fmt"
	"sync"

	"cliprecipe/model"
)

// MemoryRegistrar 进程内注册器，不接触系统，用于测试与无图形环境
type MemoryRegistrar struct {
	mu      sync.Mutex
	handles map[string]*memoryHandle
	denied  map[string]bool
}

// NewMemoryRegistrar 创建内存注册器
func NewMemoryRegistrar() *MemoryRegistrar {
	return &MemoryRegistrar{
		handles: make(map[string]*memoryHandle),
		denied:  make(map[string]bool),
	}
}

// Deny 之后对 combo 的注册将被拒绝，模拟被其他程序占用
func (r *MemoryRegistrar) Deny(combo string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denied[combo] = true
}

// Register 实现 Registrar
func (r *MemoryRegistrar) Register(c Combination) (Handle, error) {
	key := c.String()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.denied[key] {
		return nil, fmt.Errorf("%w: %s 已被占用", model.ErrPlatformDenied, key)
	}
	h := &memoryHandle{reg: r, key: key, ch: make(chan struct{}, 1)}
	r.handles[key] = h
	return h, nil
}

// Registered 当前已注册的组合数
func (r *MemoryRegistrar) Registered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Press 模拟按下 combo，未注册时返回 false
func (r *MemoryRegistrar) Press(combo string) bool {
	key, err := Canonical(combo)
	if err != nil {
		return false
	}
	r.mu.Lock()
	h, ok := r.handles[key]
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case h.ch <- struct{}{}:
	default:
	}
	return true
}

type memoryHandle struct {
	reg *MemoryRegistrar
	key string
	ch  chan struct{}
}

func (h *memoryHandle) Keydown() <-chan struct{} { return h.ch }

func (h *memoryHandle) Unregister() error {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	if h.reg.handles[h.key] == h {
		delete(h.reg.handles, h.key)
	}
	return nil
}
