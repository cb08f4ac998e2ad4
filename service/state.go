package service

import (
	"time"

	"cliprecipe/model"
)

// ServiceState 控制循环独占的运行状态，停止时持久化 Enabled 与 ActiveRecipeID
type ServiceState struct {
	Enabled        bool
	ActiveRecipeID string
	LastSnapshot   *model.ClipboardSnapshot
	LastSelfWrite  model.Fingerprint
}

// Status 对外暴露的状态快照
type Status struct {
	Running        bool                  `json:"running"`
	Enabled        bool                  `json:"enabled"`
	ActiveRecipeID string                `json:"active_recipe_id,omitempty"`
	ActiveRecipe   string                `json:"active_recipe,omitempty"`
	LastChange     time.Time             `json:"last_change,omitempty"`
	Hotkeys        []model.HotkeyBinding `json:"hotkeys"`
}
