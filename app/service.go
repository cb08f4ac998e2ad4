package app

import (
	"context"
	"fmt"

	"cliprecipe/clipboard"
	"cliprecipe/config"
	"cliprecipe/hotkey"
	"cliprecipe/hotkey/system"
	"cliprecipe/service"
	"cliprecipe/ui"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServiceOptions 后台服务选项
type ServiceOptions struct {
	Tray      bool
	Registrar hotkey.Registrar // 为空时使用系统快捷键
	Notifier  service.Notifier // 为空时写日志并以子进程打开界面
}

// RunService 运行后台服务直到 ctx 取消；Tray 为 true 时在当前线程运行托盘
func (a *Application) RunService(ctx context.Context, opts ServiceOptions) error {
	if err := a.client.Ping(ctx); err == nil {
		return fmt.Errorf("%w: %s", service.ErrAlreadyRunning, a.cfg.IPCAddr)
	}
	if opts.Tray {
		return a.runWithTray(ctx, opts)
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = a.defaultNotifier()
	}
	ctrl, release, err := a.newController(opts.Registrar, notifier)
	if err != nil {
		return err
	}
	defer release()
	return a.serve(ctx, ctrl)
}

func (a *Application) runWithTray(ctx context.Context, opts ServiceOptions) error {
	fa := fyneapp.NewWithID(appID)
	ds := newDesktopServices(ctx, a)
	tray, ok := ui.NewTray(fa, ds, a.logger.Named("tray"))
	if !ok {
		a.logger.Warn("当前平台不支持系统托盘，以无界面方式运行")
		opts.Tray = false
		return a.RunService(ctx, opts)
	}

	notifier := service.Multi{service.LogNotifier{Logger: a.logger.Named("notify")}, tray}
	if opts.Notifier != nil {
		notifier = append(notifier, opts.Notifier)
	}
	ctrl, release, err := a.newController(opts.Registrar, notifier)
	if err != nil {
		return err
	}
	defer release()
	ds.ctrl = ctrl

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		err := a.serve(ctx, ctrl)
		errCh <- err
		fyne.Do(fa.Quit)
	}()

	// 托盘占用主线程，退出菜单或服务结束时返回
	fa.Run()
	cancel()
	return <-errCh
}

func (a *Application) defaultNotifier() service.Notifier {
	notifier := service.Multi{service.LogNotifier{Logger: a.logger.Named("notify")}}
	launcher, err := service.NewLauncher("", a.logger.Named("launcher"))
	if err != nil {
		a.logger.Warn("无法以子进程打开界面", zap.Error(err))
		return notifier
	}
	return append(notifier, launcher)
}

// newController 组装控制器；release 释放快捷键
func (a *Application) newController(reg hotkey.Registrar, notifier service.Notifier) (*service.Controller, func(), error) {
	if a.backend == nil {
		b, err := clipboard.NewBackend(a.cfg.ClipboardBackend, a.logger.Named("clipboard"))
		if err != nil {
			return nil, nil, err
		}
		a.backend = b
	}
	watcher := clipboard.NewWatcher(a.backend, a.logger.Named("watcher"),
		clipboard.WithInterval(a.cfg.PollInterval()),
		clipboard.WithMode(a.cfg.WatchMode),
	)

	if reg == nil {
		reg = system.NewRegistrar()
	}
	disp := hotkey.NewDispatcher(reg, a.logger.Named("hotkey"))

	cw, err := config.NewWatcher(a.paths.Dir, []string{config.ConfigFile, config.RecipesFile},
		config.DefaultWatchDebounce, a.logger.Named("config"))
	if err != nil {
		a.logger.Warn("无法监听配置目录，外部修改需手动重新加载", zap.Error(err))
		cw = nil
	}

	ctrl := service.New(service.Deps{
		Store:         a.store,
		Watcher:       watcher,
		Hotkeys:       disp,
		History:       a.history,
		Notifier:      notifier,
		ConfigWatcher: cw,
		ConfigPath:    a.paths.Config,
		Logger:        a.logger.Named("service"),
	})
	release := func() {
		if err := disp.Close(); err != nil {
			a.logger.Warn("释放快捷键失败", zap.Error(err))
		}
	}
	return ctrl, release, nil
}

// serve 控制器与命令通道一起运行，任一方出错即全部停止
func (a *Application) serve(ctx context.Context, ctrl *service.Controller) error {
	g, gctx := errgroup.WithContext(ctx)
	srv := service.NewServer(ctrl, a.logger.Named("ipc"))
	g.Go(func() error { return srv.Serve(gctx, a.cfg.IPCAddr) })
	g.Go(func() error { return ctrl.Run(gctx) })
	return g.Wait()
}
