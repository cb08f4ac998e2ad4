// Package ui 基于 fyne 的控制面板、快捷菜单与托盘。
package ui

import (
	"fmt"
	"strings"

	"cliprecipe/config"
	"cliprecipe/model"
	"cliprecipe/ui/component"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Services 界面依赖的操作，由 app 包实现
type Services interface {
	Recipes() (recipes []model.Recipe, activeID string)
	SetActive(id string) error
	SaveRecipe(d component.RecipeDraft) error
	DeleteRecipe(id string) error
	ApplyRecipe(id string) (changed bool, err error)

	History(keyword string) ([]*model.HistoryEntry, error)
	DeleteHistory(id string) ([]*model.HistoryEntry, error)
	ClearHistory() error
	Copy(text string) error

	Config() *config.AppConfig
	SaveSettings(d component.SettingsDraft) error
	Enabled() bool
	Toggle() (bool, error)
	OpenConfigDir() error
}

// Dashboard 控制面板窗口
type Dashboard struct {
	fyne.Window
	svc Services

	enabled      *widget.Check
	recipeSearch *component.SearchBar
	recipeList   *component.RecipeList
	historyBar   *component.SearchBar
	historyList  *component.HistoryList
	settings     *component.SettingsPanel
	tabs         *container.AppTabs
}

// NewDashboard 创建控制面板
func NewDashboard(app fyne.App, svc Services) *Dashboard {
	win := app.NewWindow("ClipRecipe 控制面板")
	win.Resize(fyne.NewSize(640, 480))

	d := &Dashboard{Window: win, svc: svc}
	d.initUI()
	return d
}

func (d *Dashboard) initUI() {
	// 顶部开关
	d.enabled = widget.NewCheck("自动转换", nil)
	d.enabled.SetChecked(d.svc.Enabled())
	d.enabled.OnChanged = func(on bool) {
		if on == d.svc.Enabled() {
			return
		}
		now, err := d.svc.Toggle()
		if err != nil {
			dialog.ShowError(err, d.Window)
		}
		d.enabled.SetChecked(now)
	}

	// 配方
	recipes, active := d.svc.Recipes()
	d.recipeList = component.NewRecipeList(recipes, active, component.RecipeActions{
		OnActivate: func(id string) {
			d.report(d.svc.SetActive(id))
			d.RefreshRecipes()
		},
		OnApply: func(id string) {
			changed, err := d.svc.ApplyRecipe(id)
			if err != nil {
				dialog.ShowError(err, d.Window)
				return
			}
			if !changed {
				dialog.ShowInformation("应用配方", "剪贴板内容没有变化", d.Window)
			}
			d.RefreshHistory()
		},
		OnEdit: func(r model.Recipe) {
			component.ShowRecipeEditor(d.Window, &r, d.saveRecipe)
		},
		OnDelete: func(r model.Recipe) {
			dialog.ShowConfirm("删除配方", fmt.Sprintf("确定删除配方 %q 吗？", r.Name), func(ok bool) {
				if ok {
					d.report(d.svc.DeleteRecipe(r.ID))
					d.RefreshRecipes()
				}
			}, d.Window)
		},
	})
	d.recipeSearch = component.NewSearchBar("搜索配方...", func(string) { d.RefreshRecipes() })
	newBtn := widget.NewButtonWithIcon("新建配方", theme.ContentAddIcon(), func() {
		component.ShowRecipeEditor(d.Window, nil, d.saveRecipe)
	})
	recipeContent := container.NewBorder(
		container.NewBorder(nil, nil, nil, newBtn, d.recipeSearch),
		nil, nil, nil,
		d.recipeList,
	)

	// 历史记录
	d.historyList = component.NewHistoryList(nil,
		func(text string) { d.report(d.svc.Copy(text)) },
		func(id string) {
			items, err := d.svc.DeleteHistory(id)
			if err != nil {
				d.report(err)
				return
			}
			d.historyList.UpdateItems(items)
		},
	)
	d.historyBar = component.NewSearchBar("搜索历史记录...", func(string) { d.RefreshHistory() })
	clearBtn := widget.NewButtonWithIcon("清空", theme.DeleteIcon(), func() {
		dialog.ShowConfirm("清空历史", "确定清空全部历史记录吗？", func(ok bool) {
			if ok {
				d.report(d.svc.ClearHistory())
				d.RefreshHistory()
			}
		}, d.Window)
	})
	historyContent := container.NewBorder(
		container.NewBorder(nil, nil, nil, clearBtn, d.historyBar),
		nil, nil, nil,
		d.historyList,
	)

	// 设置
	d.settings = component.NewSettingsPanel(d.Window, d.svc.Config(),
		func(draft component.SettingsDraft) error {
			if err := d.svc.SaveSettings(draft); err != nil {
				return err
			}
			d.enabled.SetChecked(d.svc.Enabled())
			d.RefreshHistory()
			return nil
		},
		func() { d.report(d.svc.OpenConfigDir()) },
	)

	d.tabs = container.NewAppTabs(
		container.NewTabItemWithIcon("配方", theme.ListIcon(), recipeContent),
		container.NewTabItemWithIcon("历史记录", theme.HistoryIcon(), historyContent),
		container.NewTabItemWithIcon("设置", theme.SettingsIcon(), d.settings),
	)
	d.tabs.OnSelected = func(tab *container.TabItem) {
		if tab.Text == "历史记录" {
			d.RefreshHistory()
		}
	}

	d.SetContent(container.NewBorder(d.enabled, nil, nil, nil, d.tabs))
	d.RefreshHistory()
}

// RefreshRecipes 重新读取配方并按搜索框过滤
func (d *Dashboard) RefreshRecipes() {
	recipes, active := d.svc.Recipes()
	d.recipeList.Update(FilterRecipes(recipes, d.recipeSearch.Keyword()), active)
}

// RefreshHistory 重新读取历史记录
func (d *Dashboard) RefreshHistory() {
	items, err := d.svc.History(d.historyBar.Keyword())
	if err != nil {
		d.report(err)
		return
	}
	d.historyList.UpdateItems(items)
}

func (d *Dashboard) saveRecipe(draft component.RecipeDraft) error {
	if err := d.svc.SaveRecipe(draft); err != nil {
		return err
	}
	d.RefreshRecipes()
	return nil
}

func (d *Dashboard) report(err error) {
	if err != nil {
		fyne.Do(func() { dialog.ShowError(err, d.Window) })
	}
}

// FilterRecipes 按名称或描述过滤，关键字为空时原样返回
func FilterRecipes(recipes []model.Recipe, keyword string) []model.Recipe {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return recipes
	}
	var out []model.Recipe
	for _, r := range recipes {
		if strings.Contains(strings.ToLower(r.Name), keyword) ||
			strings.Contains(strings.ToLower(r.Description), keyword) {
			out = append(out, r)
		}
	}
	return out
}

// NewQuickMenu 快捷菜单：列出配方，点击后立即应用并关闭
func NewQuickMenu(app fyne.App, svc Services) fyne.Window {
	win := app.NewWindow("ClipRecipe")
	win.SetFixedSize(true)

	recipes, active := svc.Recipes()
	buttons := container.NewVBox()
	for _, r := range recipes {
		id := r.ID
		label := component.RecipeTitle(r)
		if id == active {
			label = "✓ " + label
		}
		btn := widget.NewButton(label, func() {
			if _, err := svc.ApplyRecipe(id); err != nil {
				dialog.ShowError(err, win)
				return
			}
			win.Close()
		})
		btn.Alignment = widget.ButtonAlignLeading
		buttons.Add(btn)
	}
	if len(recipes) == 0 {
		buttons.Add(widget.NewLabel("还没有配方，请在控制面板中创建"))
	}

	toggleLabel := "关闭自动转换"
	if !svc.Enabled() {
		toggleLabel = "开启自动转换"
	}
	toggle := widget.NewButtonWithIcon(toggleLabel, theme.MediaPauseIcon(), func() {
		if _, err := svc.Toggle(); err != nil {
			dialog.ShowError(err, win)
			return
		}
		win.Close()
	})

	win.SetContent(container.NewBorder(
		widget.NewLabelWithStyle("应用配方到剪贴板", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		toggle, nil, nil,
		container.NewVScroll(buttons),
	))
	win.Resize(fyne.NewSize(320, 360))
	win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			win.Close()
		}
	})
	win.CenterOnScreen()
	return win
}
