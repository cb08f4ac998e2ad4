package ui

import (
	"context"

	"cliprecipe/service"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"go.uber.org/zap"
)

// Tray 系统托盘菜单
type Tray struct {
	app    fyne.App
	desk   desktop.App
	svc    Services
	menu   *fyne.Menu
	logger *zap.Logger

	dashboard *Dashboard
}

// NewTray 驱动不支持托盘时返回 false
func NewTray(app fyne.App, svc Services, logger *zap.Logger) (*Tray, bool) {
	desk, ok := app.(desktop.App)
	if !ok {
		return nil, false
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tray{app: app, desk: desk, svc: svc, logger: logger}
	t.Refresh()
	return t, true
}

// Refresh 按当前状态重建菜单
func (t *Tray) Refresh() {
	toggle := fyne.NewMenuItem("自动转换", func() {
		if _, err := t.svc.Toggle(); err != nil {
			t.logger.Warn("切换失败", zap.Error(err))
		}
		t.Refresh()
	})
	toggle.Checked = t.svc.Enabled()

	recipes, active := t.svc.Recipes()
	choices := make([]*fyne.MenuItem, 0, len(recipes)+2)
	none := fyne.NewMenuItem("不使用配方", func() { t.activate("") })
	none.Checked = active == ""
	choices = append(choices, none, fyne.NewMenuItemSeparator())
	for _, r := range recipes {
		id := r.ID
		item := fyne.NewMenuItem(r.Name, func() { t.activate(id) })
		item.Checked = id == active
		choices = append(choices, item)
	}
	activeMenu := fyne.NewMenuItem("激活配方", nil)
	activeMenu.ChildMenu = fyne.NewMenu("", choices...)

	t.menu = fyne.NewMenu("ClipRecipe",
		toggle,
		activeMenu,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("快捷菜单", func() { t.Open(true) }),
		fyne.NewMenuItem("控制面板", func() { t.Open(false) }),
	)
	t.desk.SetSystemTrayMenu(t.menu)
}

// Open 在当前进程内打开面板或快捷菜单
func (t *Tray) Open(quick bool) {
	if quick {
		NewQuickMenu(t.app, t.svc).Show()
		return
	}
	if t.dashboard == nil {
		t.dashboard = NewDashboard(t.app, t.svc)
		t.dashboard.SetCloseIntercept(func() {
			t.dashboard.Hide()
			t.Refresh()
		})
	}
	t.dashboard.RefreshRecipes()
	t.dashboard.RefreshHistory()
	t.dashboard.Show()
	t.dashboard.RequestFocus()
}

func (t *Tray) activate(id string) {
	if err := t.svc.SetActive(id); err != nil {
		t.logger.Warn("激活配方失败", zap.String("recipe", id), zap.Error(err))
	}
	t.Refresh()
}

// Notify 实现 service.Notifier：打开窗口在 UI 线程执行，其余作为系统通知
func (t *Tray) Notify(_ context.Context, n service.Notification) {
	switch n.Kind {
	case service.NotifyOpenDashboard:
		fyne.Do(func() { t.Open(false) })
	case service.NotifyOpenQuickMenu:
		fyne.Do(func() { t.Open(true) })
	case service.NotifyToggled:
		fyne.Do(t.Refresh)
		t.app.SendNotification(fyne.NewNotification("ClipRecipe", n.Message))
	default:
		t.app.SendNotification(fyne.NewNotification("ClipRecipe", n.Message))
	}
}
