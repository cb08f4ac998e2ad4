package ui

import (
	"testing"

	"cliprecipe/model"

	"github.com/stretchr/testify/assert"
)

func TestFilterRecipes(t *testing.T) {
	recipes := []model.Recipe{
		{ID: "1", Name: "Plain Text", Description: "去除所有格式"},
		{ID: "2", Name: "Sort Lines", Description: "排序"},
		{ID: "3", Name: "Unique Lines", Description: "删除重复行"},
	}

	assert.Len(t, FilterRecipes(recipes, ""), 3)
	assert.Len(t, FilterRecipes(recipes, "  "), 3)

	got := FilterRecipes(recipes, "LINES")
	if assert.Len(t, got, 2) {
		assert.Equal(t, "2", got[0].ID)
		assert.Equal(t, "3", got[1].ID)
	}

	got = FilterRecipes(recipes, "格式")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "Plain Text", got[0].Name)
	}
	assert.Empty(t, FilterRecipes(recipes, "emoji"))
}
