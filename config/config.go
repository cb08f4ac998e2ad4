package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"cliprecipe/model"
)

// WatchMode 剪贴板变化检测方式
type WatchMode string

const (
	WatchPoll   WatchMode = "poll"
	WatchNotify WatchMode = "notify"
)

// BackendKind 剪贴板后端
type BackendKind string

const (
	BackendAuto   BackendKind = "auto"
	BackendNative BackendKind = "native"
	BackendAtotto BackendKind = "atotto"
)

// StorageType 历史记录存储类型
type StorageType string

const (
	StorageTypeJSON   StorageType = "json"
	StorageTypeMySQL  StorageType = "mysql"
	StorageTypeSQLite StorageType = "sqlite"
)

const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultIPCAddr      = "127.0.0.1:9549"
	DefaultMaxHistory   = 100

	minPollInterval = 50 * time.Millisecond
)

// MySQLConfig MySQL数据库配置
type MySQLConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// HistoryConfig 历史记录配置，Path 为空时使用数据目录
type HistoryConfig struct {
	Enabled  bool        `json:"enabled"`
	Type     StorageType `json:"type"`
	MaxItems int         `json:"max_items"`
	Path     string      `json:"path,omitempty"`
	MySQL    MySQLConfig `json:"mysql"`
}

// AppConfig 应用配置
type AppConfig struct {
	Enabled           bool                  `json:"enabled"`
	ActiveRecipeID    *string               `json:"active_recipe_id"`
	HotkeyBindings    []model.HotkeyBinding `json:"hotkey_bindings"`
	PollIntervalMs    int                   `json:"poll_interval_ms"`
	WatchMode         WatchMode             `json:"watch_mode"`
	ClipboardBackend  BackendKind           `json:"clipboard_backend"`
	ShowNotifications bool                  `json:"show_notifications"`
	IPCAddr           string                `json:"ipc_addr"`
	History           HistoryConfig         `json:"history"`
}

// DefaultHotkeyBindings 默认快捷键
func DefaultHotkeyBindings() []model.HotkeyBinding {
	return []model.HotkeyBinding{
		{Combination: "Ctrl+Shift+T", Action: model.HotkeyAction{Kind: model.ActionToggle}},
		{Combination: "Ctrl+Shift+V", Action: model.HotkeyAction{Kind: model.ActionOpenQuickMenu}},
		{Combination: "Ctrl+Shift+D", Action: model.HotkeyAction{Kind: model.ActionOpenDashboard}},
	}
}

// Default 默认配置
func Default() *AppConfig {
	return &AppConfig{
		Enabled:           true,
		HotkeyBindings:    DefaultHotkeyBindings(),
		PollIntervalMs:    int(DefaultPollInterval / time.Millisecond),
		WatchMode:         WatchPoll,
		ClipboardBackend:  BackendAuto,
		ShowNotifications: true,
		IPCAddr:           DefaultIPCAddr,
		History: HistoryConfig{
			Enabled:  true,
			Type:     StorageTypeJSON,
			MaxItems: DefaultMaxHistory,
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Database: "cliprecipe",
			},
		},
	}
}

// PollInterval 轮询间隔，过小的值会被抬到下限
func (c *AppConfig) PollInterval() time.Duration {
	d := time.Duration(c.PollIntervalMs) * time.Millisecond
	if d < minPollInterval {
		return DefaultPollInterval
	}
	return d
}

// ActiveID 返回当前激活的配方 ID，未设置时为空串
func (c *AppConfig) ActiveID() string {
	if c.ActiveRecipeID == nil {
		return ""
	}
	return *c.ActiveRecipeID
}

// SetActiveID 空串表示清除
func (c *AppConfig) SetActiveID(id string) {
	if id == "" {
		c.ActiveRecipeID = nil
		return
	}
	c.ActiveRecipeID = &id
}

// normalize 把缺失或非法的字段补成默认值
func (c *AppConfig) normalize() {
	def := Default()
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = def.PollIntervalMs
	}
	switch c.WatchMode {
	case WatchPoll, WatchNotify:
	default:
		c.WatchMode = def.WatchMode
	}
	switch c.ClipboardBackend {
	case BackendAuto, BackendNative, BackendAtotto:
	default:
		c.ClipboardBackend = def.ClipboardBackend
	}
	if c.IPCAddr == "" {
		c.IPCAddr = def.IPCAddr
	}
	if c.History.MaxItems <= 0 {
		c.History.MaxItems = def.History.MaxItems
	}
	switch c.History.Type {
	case StorageTypeJSON, StorageTypeMySQL, StorageTypeSQLite:
	default:
		c.History.Type = def.History.Type
	}
	if c.HotkeyBindings == nil {
		c.HotkeyBindings = def.HotkeyBindings
	}
	if c.ActiveRecipeID != nil && *c.ActiveRecipeID == "" {
		c.ActiveRecipeID = nil
	}
}

// Load 读取配置文件。文件不存在时返回默认配置；
// 文件损坏时同样返回默认配置，并附带 ErrConfigCorrupt 供调用方记录日志
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return Default(), fmt.Errorf("%w: %s: %v", model.ErrConfigCorrupt, path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save 持锁原子写入配置
func Save(path string, cfg *AppConfig) error {
	return WithFileLock(path, DefaultLockTimeout, func() error {
		return write(path, cfg)
	})
}

// Update 持锁执行 读取-修改-写回，多个进程并发修改时后写者生效
func Update(path string, fn func(cfg *AppConfig)) (*AppConfig, error) {
	var out *AppConfig
	err := WithFileLock(path, DefaultLockTimeout, func() error {
		cfg, _ := Load(path)
		fn(cfg)
		out = cfg
		return write(path, cfg)
	})
	return out, err
}

func write(path string, cfg *AppConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("配置序列化为JSON失败: %w", err)
	}
	return WriteFileAtomic(path, data)
}
