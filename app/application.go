// Package app 组装各个组件，提供命令行、后台服务与控制面板共用的入口。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cliprecipe/clipboard"
	"cliprecipe/config"
	"cliprecipe/model"
	"cliprecipe/recipe"
	"cliprecipe/service"
	"cliprecipe/storage"
	"cliprecipe/transform"

	"go.uber.org/zap"
)

// Options 应用选项，零值使用默认配置目录与系统剪贴板
type Options struct {
	Home    string            // 配置目录，覆盖 CLIPRECIPE_HOME
	IPCAddr string            // 覆盖配置中的 ipc_addr
	Backend clipboard.Backend // 替换剪贴板后端
	Logger  *zap.Logger
}

// Application 应用程序核心
type Application struct {
	paths   config.Paths
	cfg     *config.AppConfig
	logger  *zap.Logger
	store   *recipe.Store
	history storage.Storage
	client  *service.Client

	backend clipboard.Backend
	clip    *clipboard.Watcher
}

// New 创建应用实例
func New(opts Options) (*Application, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	paths := config.PathsIn(opts.Home)
	if opts.Home == "" {
		p, err := config.DefaultPaths()
		if err != nil {
			return nil, err
		}
		paths = p
	}
	// 创建配置目录
	if err := paths.Ensure(); err != nil {
		return nil, err
	}

	// 加载配置
	cfg, err := config.Load(paths.Config)
	if err != nil {
		logger.Warn("配置文件无法读取，使用默认配置", zap.String("path", paths.Config), zap.Error(err))
	}
	if opts.IPCAddr != "" {
		cfg.IPCAddr = opts.IPCAddr
	}

	// 加载配方
	store, err := recipe.NewStore(recipe.NewFileRepository(paths), logger.Named("recipe"))
	if err != nil {
		return nil, err
	}

	// 创建应用实例
	a := &Application{
		paths:   paths,
		cfg:     cfg,
		logger:  logger,
		store:   store,
		client:  service.NewClient(cfg.IPCAddr),
		backend: opts.Backend,
	}
	// 创建历史存储
	a.history = a.openHistory(cfg.History)
	return a, nil
}

// openHistory 历史存储不可用时只记录日志，不影响其他功能
func (a *Application) openHistory(cfg config.HistoryConfig) storage.Storage {
	if !cfg.Enabled {
		return nil
	}
	s, err := storage.NewStorage(cfg, a.paths.Dir)
	if err != nil {
		a.logger.Warn("打开历史存储失败", zap.String("type", string(cfg.Type)), zap.Error(err))
		return nil
	}
	return s
}

// Close 释放资源
func (a *Application) Close() error {
	a.client.Close()
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

// Paths 配置文件路径
func (a *Application) Paths() config.Paths { return a.paths }

// Config 启动时读取的配置
func (a *Application) Config() *config.AppConfig { return a.cfg }

// Store 配方存储
func (a *Application) Store() *recipe.Store { return a.store }

// History 历史存储，未启用时为 nil
func (a *Application) History() storage.Storage { return a.history }

// Client 后台服务命令通道
func (a *Application) Client() *service.Client { return a.client }

// clipboard 延迟初始化系统剪贴板
func (a *Application) clipboard() (*clipboard.Watcher, error) {
	if a.clip != nil {
		return a.clip, nil
	}
	if a.backend == nil {
		b, err := clipboard.NewBackend(a.cfg.ClipboardBackend, a.logger.Named("clipboard"))
		if err != nil {
			return nil, err
		}
		a.backend = b
	}
	a.clip = clipboard.NewWatcher(a.backend, a.logger.Named("clipboard"))
	return a.clip, nil
}

// Apply 对当前剪贴板应用配方（按 ID 或名称查找）。
// 服务在运行时交给服务执行，避免服务把这次写入当作新的变化再转换一次
func (a *Application) Apply(ctx context.Context, nameOrID string) (service.Result, error) {
	r, err := a.store.Find(nameOrID)
	if err != nil {
		return service.Result{}, err
	}

	// 服务在运行时由服务写入
	changed, err := a.client.ApplyRecipe(ctx, r.ID)
	if err == nil {
		a.logger.Debug("已通过服务应用配方", zap.String("recipe", r.Name))
		return service.Result{Changed: changed}, nil
	}
	if !errors.Is(err, model.ErrServiceNotRunning) {
		return service.Result{}, err
	}

	// 服务未运行，在本地执行
	return a.applyLocal(ctx, r.Steps, &r)
}

// Transform 对当前剪贴板执行单个转换，与 Apply 一样优先交给服务执行
func (a *Application) Transform(ctx context.Context, kind string, params map[string]string) (service.Result, error) {
	// 先在本地校验转换类型
	k, ok := transform.Lookup(kind)
	if !ok {
		return service.Result{}, fmt.Errorf("%w: %s", model.ErrUnknownTransform, kind)
	}

	// 服务在运行时由服务写入
	changed, err := a.client.Transform(ctx, k.ID, params)
	if err == nil {
		a.logger.Debug("已通过服务执行转换", zap.String("kind", k.ID))
		return service.Result{Changed: changed}, nil
	}
	if !errors.Is(err, model.ErrServiceNotRunning) {
		return service.Result{}, err
	}

	// 服务未运行，在本地执行
	return a.applyLocal(ctx, []model.Transform{{Kind: k.ID, Params: params}}, nil)
}

func (a *Application) applyLocal(ctx context.Context, steps []model.Transform, r *model.Recipe) (service.Result, error) {
	clip, err := a.clipboard()
	if err != nil {
		return service.Result{}, err
	}
	res, err := service.ApplyOnce(ctx, clip, steps)
	if err != nil {
		return res, err
	}
	// 记录历史
	if res.Changed && a.history != nil {
		if _, err := a.history.Append(model.NewHistoryEntry(res.Input).WithTransform(res.Output, r)); err != nil {
			a.logger.Warn("保存历史失败", zap.Error(err))
		}
	}
	return res, nil
}

// Show 当前剪贴板文本
func (a *Application) Show(ctx context.Context) (string, error) {
	clip, err := a.clipboard()
	if err != nil {
		return "", err
	}
	return clip.Read(ctx)
}

// Copy 把文本写入剪贴板；服务在运行时由服务写入，避免被当作新内容再次转换
func (a *Application) Copy(ctx context.Context, text string) error {
	err := a.client.Copy(ctx, text)
	if err == nil || !errors.Is(err, model.ErrServiceNotRunning) {
		return err
	}
	// 服务未运行，直接写入剪贴板
	clip, err := a.clipboard()
	if err != nil {
		return err
	}
	if err := clip.WriteBack(ctx, text); err != nil && !errors.Is(err, clipboard.ErrWritePending) {
		return err
	}
	return nil
}

// Toggle 翻转服务的自动转换开关，服务未运行时返回 ErrServiceNotRunning
func (a *Application) Toggle(ctx context.Context) (bool, error) {
	return a.client.Toggle(ctx)
}

// Status 服务状态；服务未运行时由配置文件推出
func (a *Application) Status(ctx context.Context) (service.Status, error) {
	st, err := a.client.Status(ctx)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, model.ErrServiceNotRunning) {
		return st, err
	}

	// 服务未运行，读取配置文件
	cfg, err := config.Load(a.paths.Config)
	if err != nil {
		a.logger.Warn("配置文件无法读取，使用默认配置", zap.Error(err))
	}
	st = service.Status{
		Running:        false,
		Enabled:        cfg.Enabled,
		ActiveRecipeID: a.store.ActiveID(),
		Hotkeys:        cfg.HotkeyBindings,
	}
	if r, ok := a.store.Active(); ok {
		st.ActiveRecipe = r.Name
	}
	return st, nil
}

// ExportRecipes 导出全部配方
func (a *Application) ExportRecipes(w io.Writer) error {
	return a.store.Export(w)
}

// ImportRecipes 导入配方并通知服务重新加载
func (a *Application) ImportRecipes(ctx context.Context, r io.Reader) (int, error) {
	n, err := a.store.Import(r)
	if err != nil {
		return 0, err
	}
	a.notifyReload(ctx)
	return n, nil
}

// notifyReload 服务未运行时什么也不做，文件监听也会兜底
func (a *Application) notifyReload(ctx context.Context) {
	if err := a.client.Reload(ctx); err != nil && !errors.Is(err, model.ErrServiceNotRunning) {
		a.logger.Warn("通知服务重新加载失败", zap.Error(err))
	}
}
