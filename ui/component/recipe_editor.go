package component

import (
	"strings"

	"cliprecipe/model"
	"cliprecipe/transform"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// RecipeDraft 编辑器提交的内容
type RecipeDraft struct {
	ID          string // 为空表示新建
	Name        string
	Description string
	Icon        string
	Hotkey      string
	Steps       []model.Transform
}

// ShowRecipeEditor 打开配方编辑对话框。r 为 nil 时新建
func ShowRecipeEditor(win fyne.Window, r *model.Recipe, onSave func(RecipeDraft) error) {
	name := widget.NewEntry()
	desc := widget.NewEntry()
	icon := widget.NewEntry()
	hotkey := widget.NewEntry()
	hotkey.SetPlaceHolder("例如 Ctrl+Alt+1，留空表示不绑定")
	steps := widget.NewMultiLineEntry()
	steps.SetMinRowsVisible(6)
	steps.SetPlaceHolder("每行一个步骤，例如\ntrim\ntabs_to_spaces {spaces: \"4\"}")

	title := "新建配方"
	var id string
	if r != nil {
		title = "编辑配方"
		id = r.ID
		name.SetText(r.Name)
		desc.SetText(r.Description)
		icon.SetText(r.Icon)
		hotkey.SetText(r.Hotkey)
		steps.SetText(FormatSteps(r.Steps))
	}

	// 从下拉框追加步骤
	options := make([]string, 0)
	byLabel := make(map[string]string)
	for _, k := range transform.Kinds() {
		label := k.Category + " / " + k.Name + " (" + k.ID + ")"
		options = append(options, label)
		byLabel[label] = k.ID
	}
	picker := widget.NewSelect(options, nil)
	picker.PlaceHolder = "添加步骤..."
	picker.OnChanged = func(label string) {
		kind, ok := byLabel[label]
		if !ok {
			return
		}
		text := strings.TrimRight(steps.Text, "\n")
		if text != "" {
			text += "\n"
		}
		steps.SetText(text + kind)
		picker.ClearSelected()
	}

	items := []*widget.FormItem{
		widget.NewFormItem("名称", name),
		widget.NewFormItem("描述", desc),
		widget.NewFormItem("图标", icon),
		widget.NewFormItem("快捷键", hotkey),
		widget.NewFormItem("步骤", steps),
		widget.NewFormItem("", picker),
	}

	form := dialog.NewForm(title, "保存", "取消", items, func(ok bool) {
		if !ok {
			return
		}
		parsed, err := ParseSteps(steps.Text)
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		draft := RecipeDraft{
			ID:          id,
			Name:        strings.TrimSpace(name.Text),
			Description: strings.TrimSpace(desc.Text),
			Icon:        strings.TrimSpace(icon.Text),
			Hotkey:      strings.TrimSpace(hotkey.Text),
			Steps:       parsed,
		}
		if err := onSave(draft); err != nil {
			dialog.ShowError(err, win)
		}
	}, win)
	form.Resize(fyne.NewSize(520, 460))
	form.Show()
}
