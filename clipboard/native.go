package clipboard

import (
	"context"
	"fmt"
	"sync"

	"cliprecipe/model"

	"golang.design/x/clipboard"
)

var (
	initOnce sync.Once
	initErr  error
)

// NativeBackend 基于 golang.design/x/clipboard 的后端
type NativeBackend struct{}

// NewNativeBackend 初始化系统剪贴板，失败时返回 ErrPlatformDenied
func NewNativeBackend() (*NativeBackend, error) {
	initOnce.Do(func() { initErr = clipboard.Init() })
	if initErr != nil {
		return nil, fmt.Errorf("%w: 剪贴板初始化失败: %v", model.ErrPlatformDenied, initErr)
	}
	return &NativeBackend{}, nil
}

// ReadText 剪贴板里是图片时即使附带文本也视为非文本内容
func (NativeBackend) ReadText(ctx context.Context) (string, bool, error) {
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return "", false, nil
	}
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

// WriteText 写入后回读校验，内容不一致时报告不可用
func (NativeBackend) WriteText(ctx context.Context, text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	if got := clipboard.Read(clipboard.FmtText); string(got) != text {
		return fmt.Errorf("%w: 写入剪贴板内容不一致（写入 %d 字节，读取 %d 字节）",
			model.ErrClipboardUnavailable, len(text), len(got))
	}
	return nil
}

// Watch 使用系统通知代替轮询
func (NativeBackend) Watch(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	src := clipboard.Watch(ctx, clipboard.FmtText)
	go func() {
		defer close(out)
		for range src {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out
}
