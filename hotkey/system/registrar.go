//go:build (linux && hotkey_x11) || windows || darwin

// Package system 向操作系统注册全局快捷键。
// Linux 下依赖 X11，且 golang.design/x/hotkey 在没有显示器时会在初始化阶段 panic，
// 因此只在使用 -tags hotkey_x11 构建时启用。
package system

import (
	"fmt"
	"sync"

	"cliprecipe/hotkey"
	"cliprecipe/model"

	xhotkey "golang.design/x/hotkey"
)

var osKeys = map[string]xhotkey.Key{
	"Space": xhotkey.KeySpace, "Enter": xhotkey.KeyReturn, "Tab": xhotkey.KeyTab,
	"Escape": xhotkey.KeyEscape, "Delete": xhotkey.KeyDelete,
	"Up": xhotkey.KeyUp, "Down": xhotkey.KeyDown, "Left": xhotkey.KeyLeft, "Right": xhotkey.KeyRight,

	"A": xhotkey.KeyA, "B": xhotkey.KeyB, "C": xhotkey.KeyC, "D": xhotkey.KeyD, "E": xhotkey.KeyE,
	"F": xhotkey.KeyF, "G": xhotkey.KeyG, "H": xhotkey.KeyH, "I": xhotkey.KeyI, "J": xhotkey.KeyJ,
	"K": xhotkey.KeyK, "L": xhotkey.KeyL, "M": xhotkey.KeyM, "N": xhotkey.KeyN, "O": xhotkey.KeyO,
	"P": xhotkey.KeyP, "Q": xhotkey.KeyQ, "R": xhotkey.KeyR, "S": xhotkey.KeyS, "T": xhotkey.KeyT,
	"U": xhotkey.KeyU, "V": xhotkey.KeyV, "W": xhotkey.KeyW, "X": xhotkey.KeyX, "Y": xhotkey.KeyY,
	"Z": xhotkey.KeyZ,

	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2, "3": xhotkey.Key3, "4": xhotkey.Key4,
	"5": xhotkey.Key5, "6": xhotkey.Key6, "7": xhotkey.Key7, "8": xhotkey.Key8, "9": xhotkey.Key9,

	"F1": xhotkey.KeyF1, "F2": xhotkey.KeyF2, "F3": xhotkey.KeyF3, "F4": xhotkey.KeyF4,
	"F5": xhotkey.KeyF5, "F6": xhotkey.KeyF6, "F7": xhotkey.KeyF7, "F8": xhotkey.KeyF8,
	"F9": xhotkey.KeyF9, "F10": xhotkey.KeyF10, "F11": xhotkey.KeyF11, "F12": xhotkey.KeyF12,
}

// Registrar 基于 golang.design/x/hotkey 的系统注册器
type Registrar struct{}

// NewRegistrar 创建系统注册器
func NewRegistrar() hotkey.Registrar { return Registrar{} }

// Register 注册失败（组合被其他程序占用、无权限等）统一报告为 ErrPlatformDenied
func (Registrar) Register(c hotkey.Combination) (hotkey.Handle, error) {
	key, ok := osKeys[c.Key]
	if !ok {
		return nil, fmt.Errorf("%w: 不支持的按键 %s", model.ErrInvalidCombination, c.Key)
	}
	mods := make([]xhotkey.Modifier, 0, len(c.Mods))
	for _, m := range c.Mods {
		om, ok := osModifier(m)
		if !ok {
			return nil, fmt.Errorf("%w: 当前平台不支持修饰键 %s", model.ErrPlatformDenied, m)
		}
		mods = append(mods, om)
	}

	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrPlatformDenied, c, err)
	}

	h := &osHandle{
		hk:   hk,
		out:  make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go h.forward()
	return h, nil
}

type osHandle struct {
	hk   *xhotkey.Hotkey
	out  chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (h *osHandle) Keydown() <-chan struct{} { return h.out }

func (h *osHandle) forward() {
	defer close(h.done)
	for {
		select {
		case <-h.hk.Keydown():
			select {
			case h.out <- struct{}{}:
			default:
			}
		case <-h.stop:
			return
		}
	}
}

func (h *osHandle) Unregister() error {
	var err error
	h.once.Do(func() {
		close(h.stop)
		<-h.done
		err = h.hk.Unregister()
	})
	return err
}
