package component

import (
	"fmt"
	"image/color"
	"strings"
	"time"
	"unicode/utf8"

	"cliprecipe/model"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// previewLen 列表中内容的最大显示长度（字符）
const previewLen = 100

// HistoryList 历史记录列表组件
type HistoryList struct {
	*widget.List
	items    []*model.HistoryEntry
	onCopy   func(text string) // 复制回调，参数为原文或转换结果
	onDelete func(id string)
	now      func() time.Time
}

// NewHistoryList 创建历史记录列表
func NewHistoryList(
	items []*model.HistoryEntry,
	onCopy func(text string),
	onDelete func(id string),
) *HistoryList {
	list := &HistoryList{
		items:    items,
		onCopy:   onCopy,
		onDelete: onDelete,
		now:      time.Now,
	}

	list.List = widget.NewList(
		func() int {
			return len(list.items)
		},
		func() fyne.CanvasObject {
			return list.createItemWidget()
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			list.updateItemWidget(i, o)
		},
	)

	// 点击条目复制最终结果
	list.OnSelected = func(i widget.ListItemID) {
		if i >= 0 && i < len(list.items) && list.onCopy != nil {
			list.onCopy(finalText(list.items[i]))
		}
		list.Unselect(i)
	}

	return list
}

// UpdateItems 更新列表项
func (l *HistoryList) UpdateItems(items []*model.HistoryEntry) {
	snapshot := make([]*model.HistoryEntry, len(items))
	for i, e := range items {
		c := *e
		snapshot[i] = &c
	}
	fyne.Do(func() {
		l.items = snapshot
		l.UnselectAll()
		l.Refresh()
	})
}

func (l *HistoryList) createItemWidget() fyne.CanvasObject {
	content := widget.NewLabel("")
	content.Wrapping = fyne.TextWrapWord

	detail := widget.NewLabel("")
	detail.TextStyle = fyne.TextStyle{Italic: true}

	copyOriginal := widget.NewButtonWithIcon("", theme.ContentUndoIcon(), func() {})
	deleteBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {})
	copyOriginal.Importance = widget.LowImportance
	deleteBtn.Importance = widget.LowImportance

	item := container.NewBorder(
		nil, nil, nil, container.NewHBox(copyOriginal, deleteBtn),
		container.NewVBox(content, detail),
	)
	return container.NewVBox(item, canvas.NewLine(color.Gray{Y: 200}))
}

func (l *HistoryList) updateItemWidget(i int, o fyne.CanvasObject) {
	if i < 0 || i >= len(l.items) {
		return
	}
	e := l.items[i]

	box := o.(*fyne.Container)
	item := box.Objects[0].(*fyne.Container)
	main := item.Objects[0].(*fyne.Container)
	buttons := item.Objects[1].(*fyne.Container)

	content := main.Objects[0].(*widget.Label)
	detail := main.Objects[1].(*widget.Label)
	copyOriginal := buttons.Objects[0].(*widget.Button)
	deleteBtn := buttons.Objects[1].(*widget.Button)

	content.SetText(Preview(finalText(e), previewLen))
	detail.SetText(describe(e, l.now()))

	id, original := e.ID, e.Content
	copyOriginal.OnTapped = func() {
		if l.onCopy != nil {
			l.onCopy(original)
		}
	}
	if e.Transformed == "" {
		copyOriginal.Hide()
	} else {
		copyOriginal.Show()
	}
	deleteBtn.OnTapped = func() {
		if l.onDelete != nil {
			l.onDelete(id)
		}
	}
}

func finalText(e *model.HistoryEntry) string {
	if e.Transformed != "" {
		return e.Transformed
	}
	return e.Content
}

func describe(e *model.HistoryEntry, now time.Time) string {
	when := FormatAge(e.Timestamp, now)
	if e.RecipeName == "" {
		return when
	}
	return fmt.Sprintf("%s · %s", when, e.RecipeName)
}

// Preview 截断到 n 个字符并把换行显示为 ⏎
func Preview(s string, n int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ⏎ ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// FormatAge 相对时间，超过一周显示日期
func FormatAge(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		diff = 0
	}

	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%d秒前", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%d分钟前", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d小时前", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d天前", int(diff.Hours()/24))
	}
	return t.Format("2006-01-02 15:04")
}
