// Package clipboard 监听系统剪贴板的文本变化，并负责把转换结果写回。
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cliprecipe/config"
	"cliprecipe/model"

	"go.uber.org/zap"
)

// Option 监听器选项
type Option func(*Watcher)

// WithInterval 轮询间隔
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithMode 检测方式，后端不支持通知时退回轮询
func WithMode(m config.WatchMode) Option {
	return func(w *Watcher) { w.mode = m }
}

// WithTimeout 单次系统调用超时
func WithTimeout(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// Watcher 剪贴板监听器。
// 内容指纹与上一次观察到的不同即视为一次变化；
// 写回时记录自身写入的指纹，下一次检测到的变化若与之相同则不再发出
type Watcher struct {
	backend  Backend
	interval time.Duration
	mode     config.WatchMode
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu        sync.Mutex
	last      model.Fingerprint
	selfWrite model.Fingerprint
	writing   *pendingWrite // 尚未结束的写入

	changes chan model.ClipboardSnapshot
}

// NewWatcher 创建监听器
func NewWatcher(b Backend, logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		backend:  b,
		interval: config.DefaultPollInterval,
		mode:     config.WatchPoll,
		timeout:  DefaultOpTimeout,
		now:      time.Now,
		logger:   logger,
		changes:  make(chan model.ClipboardSnapshot),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Changes 检测到的文本变化。Run 在消费者取走事件前不会继续检测
func (w *Watcher) Changes() <-chan model.ClipboardSnapshot { return w.changes }

// Prime 把当前剪贴板内容记为已观察，启动时已有的内容不会触发变化
func (w *Watcher) Prime(ctx context.Context) error {
	text, isText, err := w.readOnce(ctx)
	if err != nil {
		return err
	}
	if !isText {
		return nil
	}
	w.mu.Lock()
	w.last = model.FingerprintOf(text)
	w.mu.Unlock()
	return nil
}

// PollForChange 读取一次剪贴板；没有新的文本变化时返回 nil
func (w *Watcher) PollForChange(ctx context.Context) (*model.ClipboardSnapshot, error) {
	text, isText, err := w.readOnce(ctx)
	if err != nil {
		return nil, err
	}
	if !isText {
		return nil, nil
	}

	snap := model.NewSnapshot(text, w.now())

	w.mu.Lock()
	defer w.mu.Unlock()
	if snap.Fingerprint == w.last {
		return nil, nil
	}
	w.last = snap.Fingerprint

	self := w.selfWrite
	if self != "" && self == snap.Fingerprint {
		w.selfWrite = ""
		w.logger.Debug("忽略自身写入", zap.String("fingerprint", string(self)))
		return nil, nil
	}
	// 写入还在进行时保留指纹，它落地后仍需被忽略
	if w.writing == nil {
		w.selfWrite = ""
	}
	return &snap, nil
}

// Read 读取当前文本，失败时立即重试一次；非文本内容返回 ErrNoText
func (w *Watcher) Read(ctx context.Context) (string, error) {
	text, isText, err := w.readOnce(ctx)
	if err != nil {
		w.logger.Debug("读取剪贴板失败，重试", zap.Error(err))
		text, isText, err = w.readOnce(ctx)
	}
	if err != nil {
		return "", err
	}
	if !isText {
		return "", ErrNoText
	}
	return text, nil
}

// WriteBack 写入转换结果并记录自身写入指纹。
// 写入失败时立即重试一次，仍失败则放弃，剪贴板保持原样；
// 写入超时但仍在进行时不重试，指纹保持有效，返回 ErrWritePending
func (w *Watcher) WriteBack(ctx context.Context, text string) error {
	// 上一次写入未结束前不开始新的写入
	if err := w.waitWriting(ctx); err != nil {
		return err
	}

	fp := model.FingerprintOf(text)
	w.mu.Lock()
	w.selfWrite = fp
	w.mu.Unlock()

	err := w.writeOnce(ctx, text, fp)
	if err != nil && !errors.Is(err, ErrWritePending) {
		w.logger.Warn("写回剪贴板失败，重试一次", zap.Error(err))
		err = w.writeOnce(ctx, text, fp)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrWritePending):
		w.logger.Warn("写回剪贴板超时，等待写入完成", zap.Duration("timeout", w.timeout))
		return err
	}

	w.mu.Lock()
	if w.selfWrite == fp {
		w.selfWrite = ""
	}
	w.mu.Unlock()
	return fmt.Errorf("写回剪贴板失败: %w", err)
}

// SelfWriteFingerprint 尚未被确认的自身写入指纹
func (w *Watcher) SelfWriteFingerprint() model.Fingerprint {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selfWrite
}

// Run 启动检测循环直到 ctx 取消
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Prime(ctx); err != nil {
		w.logger.Warn("读取初始剪贴板内容失败", zap.Error(err))
	}

	var notify <-chan struct{}
	if w.mode == config.WatchNotify {
		if n, ok := w.backend.(Notifier); ok {
			notify = n.Watch(ctx)
			w.logger.Info("使用系统通知检测剪贴板变化")
		} else {
			w.logger.Warn("剪贴板后端不支持通知，改用轮询")
		}
	}

	var tick <-chan time.Time
	if notify == nil {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
		w.logger.Info("开始轮询剪贴板", zap.Duration("interval", w.interval))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		case _, ok := <-notify:
			if !ok {
				return nil
			}
		}

		snap, err := w.PollForChange(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.Debug("读取剪贴板失败", zap.Error(err))
			}
			continue
		}
		if snap == nil {
			continue
		}
		w.logger.Debug("检测到文本变化", zap.Int("length", len(snap.Content)))

		select {
		case w.changes <- *snap:
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) readOnce(ctx context.Context) (string, bool, error) {
	type read struct {
		text   string
		isText bool
	}
	r, err := call(ctx, w.timeout, func() (read, error) {
		text, isText, err := w.backend.ReadText(ctx)
		return read{text, isText}, err
	})
	return r.text, r.isText, err
}

// pendingWrite 一次在后台执行的写入；detached 表示调用方已不再等待结果
type pendingWrite struct {
	done     chan struct{}
	result   chan error
	detached bool
}

// writeOnce 在后台执行一次写入，最多等待一个超时周期。
// 超时后写入仍在进行，返回 ErrWritePending；写入最终失败时由后台清除指纹
func (w *Watcher) writeOnce(ctx context.Context, text string, fp model.Fingerprint) error {
	p := &pendingWrite{done: make(chan struct{}), result: make(chan error, 1)}
	w.mu.Lock()
	w.writing = p
	w.mu.Unlock()

	wctx := context.WithoutCancel(ctx)
	go func() {
		err := w.backend.WriteText(wctx, text)
		w.mu.Lock()
		if p.detached && err != nil && w.selfWrite == fp {
			w.selfWrite = ""
			w.logger.Warn("后台写入剪贴板失败", zap.Error(err))
		}
		if w.writing == p {
			w.writing = nil
		}
		p.result <- err
		w.mu.Unlock()
		close(p.done)
	}()

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()
	select {
	case err := <-p.result:
		return err
	case <-timer.C:
	case <-ctx.Done():
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// 写入可能恰好在此时结束
	select {
	case err := <-p.result:
		return err
	default:
	}
	p.detached = true
	return fmt.Errorf("%w: 超过 %s", ErrWritePending, w.timeout)
}

// waitWriting 等待尚未结束的写入，最多一个超时周期
func (w *Watcher) waitWriting(ctx context.Context) error {
	w.mu.Lock()
	p := w.writing
	w.mu.Unlock()
	if p == nil {
		return nil
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}
	return fmt.Errorf("%w: 上一次写入尚未完成", model.ErrClipboardUnavailable)
}
