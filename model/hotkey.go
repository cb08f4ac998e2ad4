package model

import "fmt"

// ActionKind 快捷键动作类型
type ActionKind string

const (
	ActionToggle        ActionKind = "toggle"
	ActionOpenQuickMenu ActionKind = "open-quick-menu"
	ActionOpenDashboard ActionKind = "open-dashboard"
	ActionApplyRecipe   ActionKind = "apply-recipe"
)

// HotkeyAction 快捷键绑定的动作，ApplyRecipe 时 RecipeID 必填
type HotkeyAction struct {
	Kind     ActionKind `json:"kind"`
	RecipeID string     `json:"recipe_id,omitempty"`
}

func (a HotkeyAction) String() string {
	if a.Kind == ActionApplyRecipe {
		return fmt.Sprintf("%s(%s)", a.Kind, a.RecipeID)
	}
	return string(a.Kind)
}

// Valid 检查动作是否合法
func (a HotkeyAction) Valid() bool {
	switch a.Kind {
	case ActionToggle, ActionOpenQuickMenu, ActionOpenDashboard:
		return true
	case ActionApplyRecipe:
		return a.RecipeID != ""
	}
	return false
}

// HotkeyBinding 按键组合与动作的绑定
type HotkeyBinding struct {
	Combination string       `json:"combination"`
	Action      HotkeyAction `json:"action"`
}
