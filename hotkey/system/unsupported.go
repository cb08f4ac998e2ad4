//go:build !((linux && hotkey_x11) || windows || darwin)

package system

import (
	"fmt"

	"cliprecipe/hotkey"
	"cliprecipe/model"
)

// Registrar 当前构建不支持全局快捷键，注册一律返回 ErrPlatformDenied
type Registrar struct{}

// NewRegistrar 创建注册器
func NewRegistrar() hotkey.Registrar { return Registrar{} }

func (Registrar) Register(c hotkey.Combination) (hotkey.Handle, error) {
	return nil, fmt.Errorf("%w: 当前构建不支持全局快捷键 %s（Linux 需使用 -tags hotkey_x11 构建）", model.ErrPlatformDenied, c)
}
