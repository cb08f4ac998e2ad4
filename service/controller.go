// Package service 实现后台服务：单一控制循环依次处理剪贴板变化、快捷键与外部命令。
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cliprecipe/clipboard"
	"cliprecipe/config"
	"cliprecipe/hotkey"
	"cliprecipe/model"
	"cliprecipe/recipe"
	"cliprecipe/storage"
	"cliprecipe/transform"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning 服务已在运行
var ErrAlreadyRunning = errors.New("服务已在运行")

// Watcher 控制循环需要的剪贴板监听能力
type Watcher interface {
	Clipboard
	Run(ctx context.Context) error
	Changes() <-chan model.ClipboardSnapshot
}

// Deps 控制器依赖；History、Notifier、ConfigWatcher 可为空
type Deps struct {
	Store         *recipe.Store
	Watcher       Watcher
	Hotkeys       *hotkey.Dispatcher
	History       storage.Storage
	Notifier      Notifier
	ConfigWatcher *config.Watcher
	ConfigPath    string
	Logger        *zap.Logger
}

type commandKind int

const (
	cmdToggle commandKind = iota
	cmdReload
	cmdApply
	cmdTransform
	cmdCopy
	cmdRecipes
)

type command struct {
	kind     commandKind
	recipeID string
	step     model.Transform
	text     string
	mutate   func(*recipe.Store) error
	reply    chan commandResult
}

type commandResult struct {
	enabled bool
	result  Result
	err     error
}

// Controller 服务状态机：Stopped 与 Running(enabled)
type Controller struct {
	deps   Deps
	logger *zap.Logger

	mu      sync.RWMutex
	state   ServiceState
	running bool
	notify  bool

	cmds     chan command
	stopCh   chan struct{}
	loopDone chan struct{}
	cancel   context.CancelFunc
	group    *errgroup.Group

	// 由本控制器注册的快捷键，停止时注销
	globalCombos []string
	recipeCombos []string
}

// New 创建控制器
func New(d Deps) *Controller {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = LogNotifier{Logger: d.Logger}
	}
	return &Controller{
		deps:   d,
		logger: d.Logger,
		cmds:   make(chan command),
	}
}

// Start Stopped→Running，enabled 取自持久化配置
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.mu.Unlock()

	cfg, err := config.Load(c.deps.ConfigPath)
	if err != nil {
		c.logger.Warn("配置文件无法读取，使用默认配置", zap.Error(err))
	}
	if err := c.deps.Store.Reload(); err != nil {
		c.logger.Warn("重新加载配方失败", zap.Error(err))
	}

	c.mu.Lock()
	c.state = ServiceState{
		Enabled:        cfg.Enabled,
		ActiveRecipeID: c.deps.Store.ActiveID(),
	}
	c.notify = cfg.ShowNotifications
	c.stopCh = make(chan struct{})
	c.loopDone = make(chan struct{})
	c.running = true
	c.mu.Unlock()

	c.registerGlobal(cfg.HotkeyBindings)
	c.syncRecipeHotkeys()

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	c.cancel = cancel
	c.group = g

	g.Go(func() error { return c.deps.Watcher.Run(gctx) })
	if c.deps.ConfigWatcher != nil {
		g.Go(func() error { return c.deps.ConfigWatcher.Run(gctx) })
	}
	go c.loop(ctx)

	c.logger.Info("服务已启动", zap.Bool("enabled", cfg.Enabled), zap.String("active", c.deps.Store.ActiveID()))
	return nil
}

// Stop 等待正在处理的事件完成后停止消费，注销快捷键并持久化 enabled 与激活配方
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	close(c.stopCh)
	<-c.loopDone
	c.cancel()
	err := c.group.Wait()

	c.unregister(c.recipeCombos)
	c.unregister(c.globalCombos)
	c.recipeCombos, c.globalCombos = nil, nil

	st := c.snapshot()
	if _, perr := config.Update(c.deps.ConfigPath, func(cfg *config.AppConfig) {
		cfg.Enabled = st.Enabled
		cfg.SetActiveID(st.ActiveRecipeID)
	}); perr != nil {
		c.logger.Warn("保存服务状态失败", zap.Error(perr))
		err = errors.Join(err, perr)
	}
	c.logger.Info("服务已停止")
	return err
}

// Run 启动并阻塞到 ctx 取消，然后停止
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return c.Stop()
}

// Running 是否处于运行状态
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Status 当前状态
func (c *Controller) Status() Status {
	st := c.snapshot()
	c.mu.RLock()
	running := c.running
	c.mu.RUnlock()

	out := Status{
		Running:        running,
		Enabled:        st.Enabled,
		ActiveRecipeID: st.ActiveRecipeID,
		Hotkeys:        c.deps.Hotkeys.Bindings(),
	}
	if r, ok := c.deps.Store.Active(); ok {
		out.ActiveRecipe = r.Name
	}
	if st.LastSnapshot != nil {
		out.LastChange = st.LastSnapshot.CapturedAt
	}
	return out
}

// Toggle 翻转 enabled 并返回新值，仅在运行时有效
func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	r, err := c.send(ctx, command{kind: cmdToggle})
	return r.enabled, err
}

// Reload 重新读取配方与激活状态，并同步配方快捷键
func (c *Controller) Reload(ctx context.Context) error {
	_, err := c.send(ctx, command{kind: cmdReload})
	return err
}

// ApplyRecipe 立即对当前剪贴板应用指定配方，不受 enabled 影响
func (c *Controller) ApplyRecipe(ctx context.Context, id string) (Result, error) {
	r, err := c.send(ctx, command{kind: cmdApply, recipeID: id})
	return r.result, err
}

// Transform 立即对当前剪贴板执行单个转换，不受 enabled 影响
func (c *Controller) Transform(ctx context.Context, kind string, params map[string]string) (Result, error) {
	k, ok := transform.Lookup(kind)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", model.ErrUnknownTransform, kind)
	}
	r, err := c.send(ctx, command{kind: cmdTransform, step: model.Transform{Kind: k.ID, Params: params}})
	return r.result, err
}

// Copy 把文本写入剪贴板并记为自身写入，不会触发自动转换
func (c *Controller) Copy(ctx context.Context, text string) error {
	_, err := c.send(ctx, command{kind: cmdCopy, text: text})
	return err
}

// UpdateRecipes 在控制循环中修改配方，完成后同步激活状态与配方快捷键
func (c *Controller) UpdateRecipes(ctx context.Context, fn func(*recipe.Store) error) error {
	_, err := c.send(ctx, command{kind: cmdRecipes, mutate: fn})
	return err
}

func (c *Controller) send(ctx context.Context, cmd command) (commandResult, error) {
	c.mu.RLock()
	running := c.running
	loopDone := c.loopDone
	c.mu.RUnlock()
	if !running {
		return commandResult{}, model.ErrServiceNotRunning
	}

	cmd.reply = make(chan commandResult, 1)
	select {
	case c.cmds <- cmd:
	case <-loopDone:
		return commandResult{}, model.ErrServiceNotRunning
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r, r.err
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
}

// loop 事件处理使用与 ctx 取消无关的上下文，停止信号到来时正在进行的转换照常完成，
// 每次剪贴板调用仍受监听器超时限制
func (c *Controller) loop(ctx context.Context) {
	defer close(c.loopDone)
	hctx := context.WithoutCancel(ctx)

	var reloads <-chan struct{}
	if c.deps.ConfigWatcher != nil {
		reloads = c.deps.ConfigWatcher.Changes()
	}

	for {
		// 停止信号优先于待处理事件
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return

		case snap := <-c.deps.Watcher.Changes():
			c.handleChange(hctx, snap)

		case ev := <-c.deps.Hotkeys.Events():
			c.handleHotkey(hctx, ev)
			c.deps.Hotkeys.Done(ev.Binding.Combination)

		case cmd := <-c.cmds:
			cmd.reply <- c.handleCommand(hctx, cmd)

		case <-reloads:
			c.logger.Info("检测到配置文件变化，重新加载")
			if err := c.reload(); err != nil {
				c.logger.Warn("重新加载失败", zap.Error(err))
			}
		}
	}
}

func (c *Controller) handleChange(ctx context.Context, snap model.ClipboardSnapshot) {
	c.mu.Lock()
	c.state.LastSnapshot = &snap
	enabled := c.state.Enabled
	c.mu.Unlock()

	if !enabled {
		return
	}
	r, ok := c.deps.Store.Active()
	if !ok {
		return
	}
	c.run(ctx, r.Name, &r, func() (Result, error) {
		return transformAndWrite(ctx, c.deps.Watcher, snap.Content, r.Steps)
	})
}

func (c *Controller) handleHotkey(ctx context.Context, ev hotkey.Event) {
	action := ev.Binding.Action
	c.logger.Debug("快捷键触发", zap.String("combination", ev.Binding.Combination), zap.Stringer("action", action))

	switch action.Kind {
	case model.ActionToggle:
		c.toggle(ctx)
	case model.ActionOpenQuickMenu:
		c.deps.Notifier.Notify(ctx, Notification{Kind: NotifyOpenQuickMenu, Message: "打开快捷菜单"})
	case model.ActionOpenDashboard:
		c.deps.Notifier.Notify(ctx, Notification{Kind: NotifyOpenDashboard, Message: "打开控制面板"})
	case model.ActionApplyRecipe:
		if _, err := c.applyRecipe(ctx, action.RecipeID); err != nil {
			c.logger.Warn("快捷键应用配方失败", zap.String("recipe", action.RecipeID), zap.Error(err))
		}
	}
}

func (c *Controller) handleCommand(ctx context.Context, cmd command) commandResult {
	switch cmd.kind {
	case cmdToggle:
		return commandResult{enabled: c.toggle(ctx)}
	case cmdReload:
		return commandResult{err: c.reload()}
	case cmdApply:
		res, err := c.applyRecipe(ctx, cmd.recipeID)
		return commandResult{result: res, err: err}
	case cmdTransform:
		res, err := c.run(ctx, cmd.step.Kind, nil, func() (Result, error) {
			return ApplyOnce(ctx, c.deps.Watcher, []model.Transform{cmd.step})
		})
		return commandResult{result: res, err: err}
	case cmdCopy:
		err := c.deps.Watcher.WriteBack(ctx, cmd.text)
		if errors.Is(err, clipboard.ErrWritePending) {
			err = nil
		}
		return commandResult{err: err}
	case cmdRecipes:
		err := cmd.mutate(c.deps.Store)
		c.syncStore()
		return commandResult{err: err}
	}
	return commandResult{err: fmt.Errorf("未知命令 %d", cmd.kind)}
}

func (c *Controller) toggle(ctx context.Context) bool {
	c.mu.Lock()
	c.state.Enabled = !c.state.Enabled
	enabled := c.state.Enabled
	c.mu.Unlock()

	if _, err := config.Update(c.deps.ConfigPath, func(cfg *config.AppConfig) {
		cfg.Enabled = enabled
	}); err != nil {
		c.logger.Warn("保存启用状态失败", zap.Error(err))
	}

	msg := "自动转换已关闭"
	if enabled {
		msg = "自动转换已开启"
	}
	c.notifyUser(ctx, Notification{Kind: NotifyToggled, Message: msg})
	return enabled
}

func (c *Controller) applyRecipe(ctx context.Context, id string) (Result, error) {
	r, err := c.deps.Store.Get(id)
	if err != nil {
		return Result{}, err
	}
	return c.run(ctx, r.Name, &r, func() (Result, error) {
		return ApplyOnce(ctx, c.deps.Watcher, r.Steps)
	})
}

// run 执行一次转换并记录历史与通知；单个转换时 r 为 nil
func (c *Controller) run(ctx context.Context, name string, r *model.Recipe, fn func() (Result, error)) (Result, error) {
	res, err := fn()
	if err != nil {
		c.logger.Warn("应用配方失败，剪贴板保持原样", zap.String("recipe", name), zap.Error(err))
		return res, err
	}
	if !res.Changed {
		return res, nil
	}

	c.mu.Lock()
	c.state.LastSelfWrite = model.FingerprintOf(res.Output)
	c.mu.Unlock()

	c.logger.Info("已应用配方", zap.String("recipe", name), zap.Int("in", len(res.Input)), zap.Int("out", len(res.Output)))
	// 记录历史
	if c.deps.History != nil {
		entry := model.NewHistoryEntry(res.Input).WithTransform(res.Output, r)
		if _, err := c.deps.History.Append(entry); err != nil {
			c.logger.Warn("保存历史失败", zap.Error(err))
		}
	}
	c.notifyUser(ctx, Notification{Kind: NotifyTransformed, Message: fmt.Sprintf("已应用配方 %s", name)})
	return res, nil
}

func (c *Controller) reload() error {
	if err := c.deps.Store.Reload(); err != nil {
		return err
	}
	cfg, err := config.Load(c.deps.ConfigPath)
	if err != nil {
		c.logger.Warn("配置文件无法读取，使用默认配置", zap.Error(err))
	}

	c.mu.Lock()
	c.notify = cfg.ShowNotifications
	c.mu.Unlock()

	c.syncStore()
	return nil
}

// syncStore 配方变化后同步激活状态与配方快捷键
func (c *Controller) syncStore() {
	c.mu.Lock()
	c.state.ActiveRecipeID = c.deps.Store.ActiveID()
	c.mu.Unlock()
	c.syncRecipeHotkeys()
}

func (c *Controller) notifyUser(ctx context.Context, n Notification) {
	c.mu.RLock()
	on := c.notify
	c.mu.RUnlock()
	if on {
		c.deps.Notifier.Notify(ctx, n)
	}
}

func (c *Controller) registerGlobal(bindings []model.HotkeyBinding) {
	for _, b := range bindings {
		if err := c.deps.Hotkeys.Register(b); err != nil {
			c.logger.Warn("注册快捷键失败", zap.String("combination", b.Combination), zap.Error(err))
			continue
		}
		if combo, err := hotkey.Canonical(b.Combination); err == nil {
			c.globalCombos = append(c.globalCombos, combo)
		}
	}
}

// syncRecipeHotkeys 重新注册配方上绑定的快捷键
func (c *Controller) syncRecipeHotkeys() {
	c.unregister(c.recipeCombos)
	c.recipeCombos = nil
	for _, r := range c.deps.Store.List() {
		if r.Hotkey == "" {
			continue
		}
		b := model.HotkeyBinding{
			Combination: r.Hotkey,
			Action:      model.HotkeyAction{Kind: model.ActionApplyRecipe, RecipeID: r.ID},
		}
		if err := c.deps.Hotkeys.Register(b); err != nil {
			c.logger.Warn("注册配方快捷键失败", zap.String("recipe", r.Name), zap.String("combination", r.Hotkey), zap.Error(err))
			continue
		}
		c.recipeCombos = append(c.recipeCombos, r.Hotkey)
	}
}

func (c *Controller) unregister(combos []string) {
	for _, combo := range combos {
		if err := c.deps.Hotkeys.Unregister(combo); err != nil {
			c.logger.Warn("注销快捷键失败", zap.String("combination", combo), zap.Error(err))
		}
	}
}

func (c *Controller) snapshot() ServiceState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.state
	st.ActiveRecipeID = c.deps.Store.ActiveID()
	return st
}
