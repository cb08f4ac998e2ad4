//go:build linux && hotkey_x11

package system

import (
	"cliprecipe/hotkey"

	xhotkey "golang.design/x/hotkey"
)

// X11 下 Alt 通常映射为 Mod1，Super 为 Mod4
func osModifier(m hotkey.Modifier) (xhotkey.Modifier, bool) {
	switch m {
	case hotkey.ModCtrl:
		return xhotkey.ModCtrl, true
	case hotkey.ModShift:
		return xhotkey.ModShift, true
	case hotkey.ModAlt:
		return xhotkey.Mod1, true
	case hotkey.ModSuper:
		return xhotkey.Mod4, true
	}
	return 0, false
}
