package component

import (
	"image/color"

	"cliprecipe/model"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// RecipeActions 配方列表上的操作回调
type RecipeActions struct {
	OnActivate func(id string) // 点击条目：设为激活配方，再次点击取消
	OnApply    func(id string) // 立即对剪贴板应用
	OnEdit     func(r model.Recipe)
	OnDelete   func(r model.Recipe)
}

// RecipeList 配方列表组件，激活的配方带勾选图标
type RecipeList struct {
	*widget.List
	recipes []model.Recipe
	active  string
	actions RecipeActions
}

// NewRecipeList 创建配方列表
func NewRecipeList(recipes []model.Recipe, active string, actions RecipeActions) *RecipeList {
	list := &RecipeList{recipes: recipes, active: active, actions: actions}
	list.List = widget.NewList(
		func() int { return len(list.recipes) },
		func() fyne.CanvasObject { return list.createItemWidget() },
		func(i widget.ListItemID, o fyne.CanvasObject) { list.updateItemWidget(i, o) },
	)
	list.OnSelected = func(i widget.ListItemID) {
		if i >= 0 && i < len(list.recipes) && list.actions.OnActivate != nil {
			id := list.recipes[i].ID
			if id == list.active {
				id = ""
			}
			list.actions.OnActivate(id)
		}
		list.Unselect(i)
	}
	return list
}

// Update 刷新配方与激活状态
func (l *RecipeList) Update(recipes []model.Recipe, active string) {
	fyne.Do(func() {
		l.recipes = recipes
		l.active = active
		l.Refresh()
	})
}

func (l *RecipeList) createItemWidget() fyne.CanvasObject {
	mark := widget.NewIcon(theme.ConfirmIcon())
	title := widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	summary := widget.NewLabel("")
	summary.Wrapping = fyne.TextWrapWord
	summary.TextStyle = fyne.TextStyle{Italic: true}

	apply := widget.NewButtonWithIcon("", theme.MediaPlayIcon(), func() {})
	edit := widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), func() {})
	del := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {})
	for _, b := range []*widget.Button{apply, edit, del} {
		b.Importance = widget.LowImportance
	}

	item := container.NewBorder(
		nil, nil, mark, container.NewHBox(apply, edit, del),
		container.NewVBox(title, summary),
	)
	return container.NewVBox(item, canvas.NewLine(color.Gray{Y: 200}))
}

func (l *RecipeList) updateItemWidget(i int, o fyne.CanvasObject) {
	if i < 0 || i >= len(l.recipes) {
		return
	}
	r := l.recipes[i]

	item := o.(*fyne.Container).Objects[0].(*fyne.Container)
	main := item.Objects[0].(*fyne.Container)
	mark := item.Objects[1].(*widget.Icon)
	buttons := item.Objects[2].(*fyne.Container)

	title := main.Objects[0].(*widget.Label)
	summary := main.Objects[1].(*widget.Label)

	title.SetText(RecipeTitle(r))
	summary.SetText(StepsSummary(r.Steps))
	if r.ID == l.active {
		mark.SetResource(theme.ConfirmIcon())
	} else {
		mark.SetResource(nil)
	}

	buttons.Objects[0].(*widget.Button).OnTapped = func() {
		if l.actions.OnApply != nil {
			l.actions.OnApply(r.ID)
		}
	}
	buttons.Objects[1].(*widget.Button).OnTapped = func() {
		if l.actions.OnEdit != nil {
			l.actions.OnEdit(r)
		}
	}
	buttons.Objects[2].(*widget.Button).OnTapped = func() {
		if l.actions.OnDelete != nil {
			l.actions.OnDelete(r)
		}
	}
}

// RecipeTitle 图标、名称与快捷键
func RecipeTitle(r model.Recipe) string {
	title := r.Name
	if r.Icon != "" {
		title = r.Icon + " " + title
	}
	if r.Hotkey != "" {
		title += "  [" + r.Hotkey + "]"
	}
	return title
}
