package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cliprecipe/config"
	"cliprecipe/model"
	"cliprecipe/recipe"
	"cliprecipe/service"
	"cliprecipe/ui"
	"cliprecipe/ui/component"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/skratchdot/open-golang/open"
	"go.uber.org/zap"
)

const appID = "io.github.cliprecipe"

// RunDashboard 打开控制面板或快捷菜单，阻塞到窗口关闭
func (a *Application) RunDashboard(ctx context.Context, quick bool) error {
	fa := fyneapp.NewWithID(appID)
	ds := newDesktopServices(ctx, a)
	if quick {
		w := ui.NewQuickMenu(fa, ds)
		w.ShowAndRun()
		return nil
	}
	ui.NewDashboard(fa, ds).ShowAndRun()
	return nil
}

// desktopServices 实现 ui.Services。
// 在服务进程内（托盘）直接调用控制器，否则经命令通道转发，服务未运行时直接读写文件
type desktopServices struct {
	ctx  context.Context
	app  *Application
	ctrl *service.Controller
}

var _ ui.Services = (*desktopServices)(nil)

func newDesktopServices(ctx context.Context, a *Application) *desktopServices {
	return &desktopServices{ctx: ctx, app: a}
}

func (d *desktopServices) Recipes() ([]model.Recipe, string) {
	// 其他进程可能修改过配方文件；托盘模式下由控制循环负责重新加载
	if d.ctrl == nil {
		if err := d.app.store.Reload(); err != nil {
			d.app.logger.Warn("重新加载配方失败", zap.Error(err))
		}
	}
	return d.app.store.List(), d.app.store.ActiveID()
}

func (d *desktopServices) SetActive(id string) error {
	return d.mutate(func(s *recipe.Store) error {
		return s.SetActive(id)
	})
}

func (d *desktopServices) SaveRecipe(draft component.RecipeDraft) error {
	if strings.TrimSpace(draft.Name) == "" {
		return errors.New("配方名称不能为空")
	}
	return d.mutate(func(s *recipe.Store) error {
		id := draft.ID
		if id == "" {
			// 新建配方
			newID, err := s.Create(draft.Name, draft.Steps)
			if err != nil {
				return err
			}
			id = newID
		} else {
			// 修改已有配方
			if err := s.Rename(id, draft.Name); err != nil {
				return err
			}
			if err := s.Update(id, draft.Steps); err != nil {
				return err
			}
		}
		if err := s.SetDetails(id, draft.Description, draft.Icon); err != nil {
			return err
		}
		return s.SetHotkey(id, draft.Hotkey)
	})
}

func (d *desktopServices) DeleteRecipe(id string) error {
	return d.mutate(func(s *recipe.Store) error {
		return s.Delete(id)
	})
}

func (d *desktopServices) ApplyRecipe(id string) (bool, error) {
	if d.ctrl != nil {
		res, err := d.ctrl.ApplyRecipe(d.ctx, id)
		return res.Changed, err
	}
	res, err := d.app.Apply(d.ctx, id)
	return res.Changed, err
}

func (d *desktopServices) History(keyword string) ([]*model.HistoryEntry, error) {
	h := d.app.history
	if h == nil {
		return nil, nil
	}
	if keyword == "" {
		return h.Load()
	}
	return h.Search(keyword)
}

func (d *desktopServices) DeleteHistory(id string) ([]*model.HistoryEntry, error) {
	if d.app.history == nil {
		return nil, nil
	}
	return d.app.history.Delete(id)
}

func (d *desktopServices) ClearHistory() error {
	if d.app.history == nil {
		return nil
	}
	return d.app.history.Clear()
}

func (d *desktopServices) Copy(text string) error {
	if d.ctrl != nil {
		return d.ctrl.Copy(d.ctx, text)
	}
	return d.app.Copy(d.ctx, text)
}

func (d *desktopServices) Config() *config.AppConfig {
	cfg, err := config.Load(d.app.paths.Config)
	if err != nil {
		d.app.logger.Warn("配置文件无法读取，使用默认配置", zap.Error(err))
	}
	return cfg
}

// SaveSettings 写入配置；历史存储设置变化时重新打开存储
func (d *desktopServices) SaveSettings(draft component.SettingsDraft) error {
	var applyErr error
	cfg, err := config.Update(d.app.paths.Config, func(cfg *config.AppConfig) {
		applyErr = draft.ApplyTo(cfg)
	})
	if applyErr != nil {
		return applyErr
	}
	if err != nil {
		return err
	}

	// enabled 由服务持有，服务运行时以服务为准
	if d.running() && cfg.Enabled != d.Enabled() {
		if _, err := d.Toggle(); err != nil {
			return err
		}
	}

	history := d.app.cfg.History
	switch {
	case cfg.History == history:
	case d.ctrl != nil:
		// 服务正在使用当前的历史存储，重启后生效
		d.app.logger.Info("历史存储设置将在服务重启后生效")
	default:
		if d.app.history != nil {
			if err := d.app.history.Close(); err != nil {
				d.app.logger.Warn("关闭历史存储失败", zap.Error(err))
			}
		}
		d.app.history = d.app.openHistory(cfg.History)
		history = cfg.History
	}
	ipc := d.app.cfg.IPCAddr
	d.app.cfg = cfg
	d.app.cfg.IPCAddr = ipc
	d.app.cfg.History = history
	return d.reload()
}

func (d *desktopServices) Enabled() bool {
	if d.ctrl != nil {
		return d.ctrl.Status().Enabled
	}
	st, err := d.app.Status(d.ctx)
	if err != nil {
		d.app.logger.Warn("读取服务状态失败", zap.Error(err))
	}
	return st.Enabled
}

// Toggle 服务未运行时直接修改配置文件，下次启动生效
func (d *desktopServices) Toggle() (bool, error) {
	if d.ctrl != nil {
		return d.ctrl.Toggle(d.ctx)
	}
	enabled, err := d.app.Toggle(d.ctx)
	if !errors.Is(err, model.ErrServiceNotRunning) {
		return enabled, err
	}
	cfg, err := config.Update(d.app.paths.Config, func(cfg *config.AppConfig) {
		cfg.Enabled = !cfg.Enabled
	})
	if err != nil {
		return false, err
	}
	return cfg.Enabled, nil
}

func (d *desktopServices) OpenConfigDir() error {
	if err := open.Start(d.app.paths.Dir); err != nil {
		return fmt.Errorf("打开配置目录失败: %w", err)
	}
	return nil
}

func (d *desktopServices) running() bool {
	if d.ctrl != nil {
		return d.ctrl.Running()
	}
	return d.app.client.Ping(d.ctx) == nil
}

// mutate 托盘模式下配方只由控制循环修改；否则直接修改并通知服务重新加载
func (d *desktopServices) mutate(fn func(*recipe.Store) error) error {
	if d.ctrl != nil {
		err := d.ctrl.UpdateRecipes(d.ctx, fn)
		if !errors.Is(err, model.ErrServiceNotRunning) {
			return err
		}
	}
	if err := fn(d.app.store); err != nil {
		return err
	}
	return d.reload()
}

func (d *desktopServices) reload() error {
	if d.ctrl != nil {
		if err := d.ctrl.Reload(d.ctx); err != nil && !errors.Is(err, model.ErrServiceNotRunning) {
			return err
		}
		return nil
	}
	d.app.notifyReload(d.ctx)
	return nil
}
