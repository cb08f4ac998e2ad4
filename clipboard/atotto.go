package clipboard

import (
	"context"
	"fmt"

	"cliprecipe/model"

	"github.com/atotto/clipboard"
)

// AtottoBackend 基于外部命令（xclip、pbcopy 等）的后备实现
type AtottoBackend struct{}

// NewAtottoBackend 当前平台没有可用的剪贴板命令时返回 ErrPlatformDenied
func NewAtottoBackend() (*AtottoBackend, error) {
	if clipboard.Unsupported {
		return nil, fmt.Errorf("%w: 未找到可用的剪贴板工具", model.ErrPlatformDenied)
	}
	return &AtottoBackend{}, nil
}

func (AtottoBackend) ReadText(ctx context.Context) (string, bool, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", model.ErrClipboardUnavailable, err)
	}
	return text, text != "", nil
}

func (AtottoBackend) WriteText(ctx context.Context, text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", model.ErrClipboardUnavailable, err)
	}
	return nil
}
