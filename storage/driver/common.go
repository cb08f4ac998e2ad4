package driver

import (
	"strings"

	"cliprecipe/model"
)

func sameContent(a, b *model.HistoryEntry) bool {
	return a.Content == b.Content && a.Transformed == b.Transformed && a.RecipeID == b.RecipeID
}

// trim 保留最新的 max 项
func trim(items []*model.HistoryEntry, max int) []*model.HistoryEntry {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}

func filter(items []*model.HistoryEntry, keyword string) []*model.HistoryEntry {
	if keyword == "" {
		return items
	}
	kw := strings.ToLower(keyword)
	var results []*model.HistoryEntry
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Content), kw) ||
			strings.Contains(strings.ToLower(item.Transformed), kw) {
			results = append(results, item)
		}
	}
	return results
}
