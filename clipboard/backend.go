package clipboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cliprecipe/config"
	"cliprecipe/model"

	"go.uber.org/zap"
)

// DefaultOpTimeout 单次系统剪贴板调用的最长等待时间
const DefaultOpTimeout = 2 * time.Second

var (
	// ErrNoText 剪贴板中没有文本（为空或是图片、文件等）
	ErrNoText = errors.New("剪贴板中没有文本")
	// ErrWritePending 写入超时但仍在进行，结果未知
	ErrWritePending = errors.New("剪贴板写入尚未完成")
)

// Backend 系统剪贴板的读写边界
type Backend interface {
	// ReadText isText 为 false 表示当前内容不是文本
	ReadText(ctx context.Context) (text string, isText bool, err error)
	WriteText(ctx context.Context, text string) error
}

// Notifier 能主动通知内容变化的后端
type Notifier interface {
	Watch(ctx context.Context) <-chan struct{}
}

// NewBackend 按配置选择后端；auto 优先使用原生后端，初始化失败时退回 atotto
func NewBackend(kind config.BackendKind, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch kind {
	case config.BackendNative:
		return NewNativeBackend()
	case config.BackendAtotto:
		return NewAtottoBackend()
	default:
		b, err := NewNativeBackend()
		if err == nil {
			return b, nil
		}
		logger.Warn("原生剪贴板不可用，改用 atotto", zap.Error(err))
		return NewAtottoBackend()
	}
}

// call 在限定时间内执行一次读取；超时后调用仍在后台完成，但结果被丢弃
func call[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %v", model.ErrClipboardUnavailable, ctx.Err())
	}
}
