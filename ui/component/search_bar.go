package component

import (
	"strings"

	"fyne.io/fyne/v2/widget"
)

// SearchBar 搜索框组件，输入为空白时回调空串
type SearchBar struct {
	*widget.Entry
	onSearch func(string)
}

// NewSearchBar 创建搜索框
func NewSearchBar(placeholder string, onSearch func(string)) *SearchBar {
	search := &SearchBar{
		Entry:    widget.NewEntry(),
		onSearch: onSearch,
	}

	search.SetPlaceHolder(placeholder)
	search.OnChanged = search.handleSearch
	search.OnSubmitted = search.handleSearch
	return search
}

// Keyword 当前关键字
func (s *SearchBar) Keyword() string {
	return strings.TrimSpace(s.Text)
}

func (s *SearchBar) handleSearch(string) {
	if s.onSearch != nil {
		s.onSearch(s.Keyword())
	}
}
