package hotkey

import (
	"fmt"
	"strings"

	"cliprecipe/model"
)

// Modifier 与平台无关的修饰键
type Modifier string

const (
	ModCtrl  Modifier = "Ctrl"
	ModAlt   Modifier = "Alt"
	ModShift Modifier = "Shift"
	ModSuper Modifier = "Super"
)

// 规范形式中修饰键的固定顺序
var modifierOrder = []Modifier{ModCtrl, ModAlt, ModShift, ModSuper}

var modifierNames = map[string]Modifier{
	"ctrl":      ModCtrl,
	"control":   ModCtrl,
	"cmdorctrl": ModCtrl,
	"alt":       ModAlt,
	"option":    ModAlt,
	"opt":       ModAlt,
	"shift":     ModShift,
	"super":     ModSuper,
	"win":       ModSuper,
	"meta":      ModSuper,
	"cmd":       ModSuper,
	"command":   ModSuper,
}

var keyNames = map[string]string{
	"space":  "Space",
	"enter":  "Enter",
	"return": "Enter",
	"tab":    "Tab",
	"esc":    "Escape",
	"escape": "Escape",
	"del":    "Delete",
	"delete": "Delete",
	"up":     "Up",
	"down":   "Down",
	"left":   "Left",
	"right":  "Right",
}

func init() {
	for c := 'A'; c <= 'Z'; c++ {
		keyNames[strings.ToLower(string(c))] = string(c)
	}
	for c := '0'; c <= '9'; c++ {
		keyNames[string(c)] = string(c)
	}
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("F%d", i)
		keyNames[strings.ToLower(name)] = name
	}
}

// Combination 解析后的按键组合
type Combination struct {
	Mods []Modifier
	Key  string
}

// String 规范形式，如 Ctrl+Shift+T
func (c Combination) String() string {
	parts := make([]string, 0, len(c.Mods)+1)
	for _, m := range c.Mods {
		parts = append(parts, string(m))
	}
	return strings.Join(append(parts, c.Key), "+")
}

// Has 是否包含修饰键 m
func (c Combination) Has(m Modifier) bool {
	for _, x := range c.Mods {
		if x == m {
			return true
		}
	}
	return false
}

// ParseCombination 解析 "ctrl+shift+t" 之类的写法，大小写与修饰键顺序不敏感。
// 必须恰好包含一个普通键和至少一个修饰键
func ParseCombination(s string) (Combination, error) {
	seen := map[Modifier]bool{}
	var key string
	for _, raw := range strings.Split(s, "+") {
		part := strings.ToLower(strings.TrimSpace(raw))
		if part == "" {
			return Combination{}, fmt.Errorf("%w: %q", model.ErrInvalidCombination, s)
		}
		if m, ok := modifierNames[part]; ok {
			seen[m] = true
			continue
		}
		k, ok := keyNames[part]
		if !ok || key != "" {
			return Combination{}, fmt.Errorf("%w: %q", model.ErrInvalidCombination, s)
		}
		key = k
	}
	if key == "" || len(seen) == 0 {
		return Combination{}, fmt.Errorf("%w: %q", model.ErrInvalidCombination, s)
	}

	c := Combination{Key: key}
	for _, m := range modifierOrder {
		if seen[m] {
			c.Mods = append(c.Mods, m)
		}
	}
	return c, nil
}

// Canonical 返回规范形式
func Canonical(s string) (string, error) {
	c, err := ParseCombination(s)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}
