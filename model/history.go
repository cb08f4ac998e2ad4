package model

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry 剪贴板历史项
type HistoryEntry struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64"`
	Content     string    `json:"content" gorm:"type:longtext"`
	Transformed string    `json:"transformed,omitempty" gorm:"type:longtext"`
	RecipeID    string    `json:"recipe_id,omitempty" gorm:"size:64"`
	RecipeName  string    `json:"recipe_name,omitempty"`
	Timestamp   time.Time `json:"timestamp" gorm:"index"`
}

// NewHistoryEntry 创建新的历史项
func NewHistoryEntry(content string) *HistoryEntry {
	return &HistoryEntry{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: time.Now(),
	}
}

// WithTransform 记录转换结果与所用配方
func (e *HistoryEntry) WithTransform(result string, recipe *Recipe) *HistoryEntry {
	e.Transformed = result
	if recipe != nil {
		e.RecipeID = recipe.ID
		e.RecipeName = recipe.Name
	}
	return e
}
