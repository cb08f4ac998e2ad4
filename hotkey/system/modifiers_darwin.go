package system

import (
	"cliprecipe/hotkey"

	xhotkey "golang.design/x/hotkey"
)

func osModifier(m hotkey.Modifier) (xhotkey.Modifier, bool) {
	switch m {
	case hotkey.ModCtrl:
		return xhotkey.ModCtrl, true
	case hotkey.ModShift:
		return xhotkey.ModShift, true
	case hotkey.ModAlt:
		return xhotkey.ModOption, true
	case hotkey.ModSuper:
		return xhotkey.ModCmd, true
	}
	return 0, false
}
