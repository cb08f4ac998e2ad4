package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cliprecipe/model"

	"go.uber.org/zap"
)

// DefaultEventBuffer 事件通道容量，满时新事件被丢弃
const DefaultEventBuffer = 16

// ErrDispatcherClosed 分发器已关闭
var ErrDispatcherClosed = errors.New("快捷键分发器已关闭")

// Event 一次放行的按键触发
type Event struct {
	Binding model.HotkeyBinding
	At      time.Time
}

// Option 分发器选项
type Option func(*Dispatcher)

// WithDebounce 设置防抖窗口
func WithDebounce(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.window = d }
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(disp *Dispatcher) { disp.now = now }
}

// WithBuffer 设置事件通道容量
func WithBuffer(n int) Option {
	return func(disp *Dispatcher) { disp.buffer = n }
}

type entry struct {
	binding  model.HotkeyBinding
	handle   Handle
	stop     chan struct{}
	lastFire time.Time
	pending  bool
}

// Dispatcher 全局快捷键分发器：维护组合到动作的绑定，
// 把系统按键经防抖后转成 Event 投递给唯一的消费者
type Dispatcher struct {
	mu       sync.Mutex
	reg      Registrar
	bindings map[string]*entry
	events   chan Event
	window   time.Duration
	buffer   int
	now      func() time.Time
	logger   *zap.Logger
	closed   bool
	wg       sync.WaitGroup
}

// NewDispatcher 创建分发器
func NewDispatcher(reg Registrar, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		reg:      reg,
		bindings: make(map[string]*entry),
		window:   DefaultDebounce,
		buffer:   DefaultEventBuffer,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.events = make(chan Event, d.buffer)
	return d
}

// Events 放行的按键事件
func (d *Dispatcher) Events() <-chan Event { return d.events }

// Register 绑定组合与动作。相同组合与相同动作重复注册视为成功；
// 组合已绑定其他动作时返回 ErrHotkeyConflict，原绑定不变
func (d *Dispatcher) Register(b model.HotkeyBinding) error {
	if !b.Action.Valid() {
		return fmt.Errorf("无效的快捷键动作: %s", b.Action)
	}
	c, err := ParseCombination(b.Combination)
	if err != nil {
		return err
	}
	key := c.String()
	b.Combination = key

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	if e, ok := d.bindings[key]; ok {
		if e.binding.Action == b.Action {
			return nil
		}
		return fmt.Errorf("%w: %s 已绑定到 %s", model.ErrHotkeyConflict, key, e.binding.Action)
	}

	h, err := d.reg.Register(c)
	if err != nil {
		return fmt.Errorf("注册快捷键 %s 失败: %w", key, err)
	}

	e := &entry{binding: b, handle: h, stop: make(chan struct{})}
	d.bindings[key] = e
	d.wg.Add(1)
	go d.listen(e)

	d.logger.Info("快捷键已注册", zap.String("combination", key), zap.Stringer("action", b.Action))
	return nil
}

// Unregister 解除绑定，未绑定时不做任何事
func (d *Dispatcher) Unregister(combination string) error {
	key, err := Canonical(combination)
	if err != nil {
		return err
	}
	d.mu.Lock()
	e, ok := d.bindings[key]
	if ok {
		delete(d.bindings, key)
	}
	d.mu.Unlock()
	if !ok {
		return nil
	}
	return d.release(e)
}

// Bindings 当前全部绑定，按组合排序
func (d *Dispatcher) Bindings() []model.HotkeyBinding {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.HotkeyBinding, 0, len(d.bindings))
	for _, e := range d.bindings {
		out = append(out, e.binding)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Combination < out[j].Combination })
	return out
}

// Done 消费者处理完一个事件后调用，之后同一组合才能再次放行
func (d *Dispatcher) Done(combination string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.bindings[combination]; ok {
		e.pending = false
	}
}

// Close 解除全部绑定并等待监听协程退出
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	entries := make([]*entry, 0, len(d.bindings))
	for k, e := range d.bindings {
		entries = append(entries, e)
		delete(d.bindings, k)
	}
	d.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := d.release(e); err != nil {
			errs = append(errs, err)
		}
	}
	d.wg.Wait()
	return errors.Join(errs...)
}

func (d *Dispatcher) release(e *entry) error {
	close(e.stop)
	if err := e.handle.Unregister(); err != nil {
		d.logger.Warn("注销快捷键失败", zap.String("combination", e.binding.Combination), zap.Error(err))
		return fmt.Errorf("注销快捷键 %s 失败: %w", e.binding.Combination, err)
	}
	d.logger.Debug("快捷键已注销", zap.String("combination", e.binding.Combination))
	return nil
}

func (d *Dispatcher) listen(e *entry) {
	defer d.wg.Done()
	for {
		select {
		case <-e.stop:
			return
		case <-e.handle.Keydown():
			d.fire(e)
		}
	}
}

func (d *Dispatcher) fire(e *entry) {
	d.mu.Lock()
	now := d.now()
	if Coalesce(e.lastFire, e.pending, now, d.window) {
		d.mu.Unlock()
		d.logger.Debug("快捷键触发被合并", zap.String("combination", e.binding.Combination))
		return
	}
	e.lastFire = now
	e.pending = true
	ev := Event{Binding: e.binding, At: now}
	d.mu.Unlock()

	select {
	case d.events <- ev:
	default:
		d.mu.Lock()
		e.pending = false
		d.mu.Unlock()
		d.logger.Warn("快捷键事件队列已满，丢弃", zap.String("combination", e.binding.Combination))
	}
}
