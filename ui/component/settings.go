package component

import (
	"fmt"
	"strconv"
	"strings"

	"cliprecipe/config"
	"cliprecipe/hotkey"
	"cliprecipe/model"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// SettingsDraft 设置面板提交的内容，只覆盖面板上可编辑的字段
type SettingsDraft struct {
	Enabled           bool
	ShowNotifications bool
	PollIntervalMs    string
	WatchMode         string
	Backend           string
	Hotkeys           map[model.ActionKind]string

	HistoryEnabled bool
	HistoryType    string
	MaxItems       string
	HistoryPath    string
	MySQL          config.MySQLConfig
	MySQLPort      string
}

// ApplyTo 校验并写入 cfg；失败时 cfg 保持不变
func (d SettingsDraft) ApplyTo(cfg *config.AppConfig) error {
	poll, err := strconv.Atoi(strings.TrimSpace(d.PollIntervalMs))
	if err != nil || poll <= 0 {
		return fmt.Errorf("轮询间隔必须是正整数: %q", d.PollIntervalMs)
	}
	maxItems, err := strconv.Atoi(strings.TrimSpace(d.MaxItems))
	if err != nil || maxItems <= 0 {
		return fmt.Errorf("最大历史记录数必须是正整数: %q", d.MaxItems)
	}
	port := cfg.History.MySQL.Port
	if p := strings.TrimSpace(d.MySQLPort); p != "" {
		if port, err = strconv.Atoi(p); err != nil || port <= 0 {
			return fmt.Errorf("MySQL 端口无效: %q", d.MySQLPort)
		}
	}

	// 全局快捷键按动作替换，留空表示不绑定；配方快捷键不在这里
	bindings := make([]model.HotkeyBinding, 0, len(d.Hotkeys))
	seen := make(map[string]model.ActionKind)
	for _, kind := range globalActions {
		raw := strings.TrimSpace(d.Hotkeys[kind])
		if raw == "" {
			continue
		}
		combo, err := hotkey.Canonical(raw)
		if err != nil {
			return err
		}
		if other, dup := seen[combo]; dup {
			return fmt.Errorf("%w: %s 同时绑定到 %s 和 %s", model.ErrHotkeyConflict, combo, other, kind)
		}
		seen[combo] = kind
		bindings = append(bindings, model.HotkeyBinding{Combination: combo, Action: model.HotkeyAction{Kind: kind}})
	}

	cfg.Enabled = d.Enabled
	cfg.ShowNotifications = d.ShowNotifications
	cfg.PollIntervalMs = poll
	cfg.WatchMode = config.WatchMode(d.WatchMode)
	cfg.ClipboardBackend = config.BackendKind(d.Backend)
	cfg.HotkeyBindings = bindings
	cfg.History.Enabled = d.HistoryEnabled
	cfg.History.Type = config.StorageType(d.HistoryType)
	cfg.History.MaxItems = maxItems
	cfg.History.Path = strings.TrimSpace(d.HistoryPath)
	mysql := d.MySQL
	mysql.Port = port
	cfg.History.MySQL = mysql
	return nil
}

var globalActions = []model.ActionKind{model.ActionToggle, model.ActionOpenQuickMenu, model.ActionOpenDashboard}

var actionLabels = map[model.ActionKind]string{
	model.ActionToggle:        "开关自动转换",
	model.ActionOpenQuickMenu: "打开快捷菜单",
	model.ActionOpenDashboard: "打开控制面板",
}

// SettingsPanel 设置面板组件
type SettingsPanel struct {
	*container.Scroll
	window fyne.Window

	enabled       *widget.Check
	notifications *widget.Check
	pollEntry     *widget.Entry
	watchMode     *widget.Select
	backend       *widget.Select
	hotkeys       map[model.ActionKind]*widget.Entry

	historyEnabled *widget.Check
	storageType    *widget.Select
	maxItemsEntry  *widget.Entry
	pathEntry      *widget.Entry
	mysqlHostEntry *widget.Entry
	mysqlPortEntry *widget.Entry
	mysqlUserEntry *widget.Entry
	mysqlPassEntry *widget.Entry
	mysqlDBEntry   *widget.Entry
	mysqlSettings  *fyne.Container
	fileSettings   *fyne.Container

	onSave       func(SettingsDraft) error
	onOpenFolder func()
}

// NewSettingsPanel 创建设置面板
func NewSettingsPanel(window fyne.Window, cfg *config.AppConfig, onSave func(SettingsDraft) error, onOpenFolder func()) *SettingsPanel {
	p := &SettingsPanel{
		window:       window,
		onSave:       onSave,
		onOpenFolder: onOpenFolder,
		hotkeys:      make(map[model.ActionKind]*widget.Entry),
	}

	p.enabled = widget.NewCheck("启用自动转换", nil)
	p.enabled.SetChecked(cfg.Enabled)
	p.notifications = widget.NewCheck("显示通知", nil)
	p.notifications.SetChecked(cfg.ShowNotifications)

	p.pollEntry = widget.NewEntry()
	p.pollEntry.SetText(strconv.Itoa(cfg.PollIntervalMs))
	p.watchMode = widget.NewSelect([]string{string(config.WatchPoll), string(config.WatchNotify)}, nil)
	p.watchMode.SetSelected(string(cfg.WatchMode))
	p.backend = widget.NewSelect([]string{
		string(config.BackendAuto), string(config.BackendNative), string(config.BackendAtotto),
	}, nil)
	p.backend.SetSelected(string(cfg.ClipboardBackend))

	hotkeyForm := widget.NewForm()
	for _, kind := range globalActions {
		e := widget.NewEntry()
		for _, b := range cfg.HotkeyBindings {
			if b.Action.Kind == kind {
				e.SetText(b.Combination)
			}
		}
		p.hotkeys[kind] = e
		hotkeyForm.Append(actionLabels[kind], e)
	}

	// 历史记录
	p.historyEnabled = widget.NewCheck("记录转换历史", nil)
	p.historyEnabled.SetChecked(cfg.History.Enabled)
	p.storageType = widget.NewSelect(
		[]string{string(config.StorageTypeJSON), string(config.StorageTypeSQLite), string(config.StorageTypeMySQL)},
		func(value string) { p.updateStorageSettingsVisibility(value) },
	)
	p.maxItemsEntry = widget.NewEntry()
	p.maxItemsEntry.SetText(strconv.Itoa(cfg.History.MaxItems))

	p.pathEntry = widget.NewEntry()
	p.pathEntry.SetText(cfg.History.Path)
	p.pathEntry.SetPlaceHolder("留空使用配置目录")
	browseBtn := widget.NewButton("浏览...", func() {
		dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
			if err != nil {
				dialog.ShowError(err, p.window)
				return
			}
			if dir != nil {
				p.pathEntry.SetText(dir.Path())
			}
		}, p.window)
	})
	p.fileSettings = container.NewVBox(
		widget.NewLabel("存储目录:"),
		container.NewBorder(nil, nil, nil, browseBtn, p.pathEntry),
	)

	p.mysqlHostEntry = widget.NewEntry()
	p.mysqlHostEntry.SetText(cfg.History.MySQL.Host)
	p.mysqlPortEntry = widget.NewEntry()
	p.mysqlPortEntry.SetText(strconv.Itoa(cfg.History.MySQL.Port))
	p.mysqlUserEntry = widget.NewEntry()
	p.mysqlUserEntry.SetText(cfg.History.MySQL.User)
	p.mysqlPassEntry = widget.NewPasswordEntry()
	p.mysqlPassEntry.SetText(cfg.History.MySQL.Password)
	p.mysqlDBEntry = widget.NewEntry()
	p.mysqlDBEntry.SetText(cfg.History.MySQL.Database)
	p.mysqlSettings = container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("MySQL 主机", p.mysqlHostEntry),
			widget.NewFormItem("MySQL 端口", p.mysqlPortEntry),
			widget.NewFormItem("MySQL 用户名", p.mysqlUserEntry),
			widget.NewFormItem("MySQL 密码", p.mysqlPassEntry),
			widget.NewFormItem("MySQL 数据库", p.mysqlDBEntry),
		),
	)
	p.storageType.SetSelected(string(cfg.History.Type))

	saveBtn := widget.NewButton("保存设置", p.saveSettings)
	saveBtn.Importance = widget.HighImportance
	folderBtn := widget.NewButton("打开配置目录", func() {
		if p.onOpenFolder != nil {
			p.onOpenFolder()
		}
	})

	content := container.NewVBox(
		p.enabled,
		p.notifications,
		widget.NewForm(
			widget.NewFormItem("轮询间隔(ms)", p.pollEntry),
			widget.NewFormItem("检测方式", p.watchMode),
			widget.NewFormItem("剪贴板后端", p.backend),
		),
		widget.NewSeparator(),
		widget.NewLabel("全局快捷键（重启服务后生效）:"),
		hotkeyForm,
		widget.NewSeparator(),
		p.historyEnabled,
		widget.NewForm(
			widget.NewFormItem("存储类型", p.storageType),
			widget.NewFormItem("最大历史记录数", p.maxItemsEntry),
		),
		p.fileSettings,
		p.mysqlSettings,
		widget.NewSeparator(),
		container.NewHBox(saveBtn, folderBtn),
	)

	p.updateStorageSettingsVisibility(string(cfg.History.Type))
	p.Scroll = container.NewScroll(content)
	return p
}

// Draft 当前表单内容
func (p *SettingsPanel) Draft() SettingsDraft {
	d := SettingsDraft{
		Enabled:           p.enabled.Checked,
		ShowNotifications: p.notifications.Checked,
		PollIntervalMs:    p.pollEntry.Text,
		WatchMode:         p.watchMode.Selected,
		Backend:           p.backend.Selected,
		Hotkeys:           make(map[model.ActionKind]string, len(p.hotkeys)),
		HistoryEnabled:    p.historyEnabled.Checked,
		HistoryType:       p.storageType.Selected,
		MaxItems:          p.maxItemsEntry.Text,
		HistoryPath:       p.pathEntry.Text,
		MySQL: config.MySQLConfig{
			Host:     p.mysqlHostEntry.Text,
			User:     p.mysqlUserEntry.Text,
			Password: p.mysqlPassEntry.Text,
			Database: p.mysqlDBEntry.Text,
		},
		MySQLPort: p.mysqlPortEntry.Text,
	}
	for kind, e := range p.hotkeys {
		d.Hotkeys[kind] = e.Text
	}
	return d
}

func (p *SettingsPanel) updateStorageSettingsVisibility(storageType string) {
	if p.mysqlSettings == nil || p.fileSettings == nil {
		return
	}
	if storageType == string(config.StorageTypeMySQL) {
		p.mysqlSettings.Show()
		p.fileSettings.Hide()
	} else {
		p.mysqlSettings.Hide()
		p.fileSettings.Show()
	}
}

func (p *SettingsPanel) saveSettings() {
	if p.onSave == nil {
		return
	}
	if err := p.onSave(p.Draft()); err != nil {
		dialog.ShowError(err, p.window)
		return
	}
	dialog.ShowInformation("设置已保存", "设置已写入配置文件", p.window)
}
