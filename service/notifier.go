package service

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// NotificationKind 通知类型
type NotificationKind string

const (
	NotifyOpenQuickMenu NotificationKind = "open-quick-menu"
	NotifyOpenDashboard NotificationKind = "open-dashboard"
	NotifyTransformed   NotificationKind = "transformed"
	NotifyToggled       NotificationKind = "toggled"
	NotifyError         NotificationKind = "error"
)

// Notification 发给面板、托盘等外部协作方的消息
type Notification struct {
	Kind    NotificationKind
	Message string
}

// Notifier 接收通知；实现必须很快返回，不能阻塞控制循环
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// LogNotifier 把通知写入日志
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) {
	if l.Logger == nil {
		return
	}
	l.Logger.Info(n.Message, zap.String("kind", string(n.Kind)))
}

// Multi 依次转发给多个 Notifier
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// Launcher 以子进程方式打开面板（<exe> dashboard）或快捷菜单（<exe> dashboard --quick）
type Launcher struct {
	Executable string
	Logger     *zap.Logger
	// start 便于测试替换
	start func(name string, args ...string) error
}

// NewLauncher exe 为空时使用当前可执行文件
func NewLauncher(exe string, logger *zap.Logger) (*Launcher, error) {
	if exe == "" {
		p, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("获取可执行文件路径失败: %w", err)
		}
		exe = p
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{Executable: exe, Logger: logger, start: startDetached}, nil
}

func (l *Launcher) Notify(_ context.Context, n Notification) {
	var args []string
	switch n.Kind {
	case NotifyOpenDashboard:
		args = []string{"dashboard"}
	case NotifyOpenQuickMenu:
		args = []string{"dashboard", "--quick"}
	default:
		return
	}
	if err := l.start(l.Executable, args...); err != nil {
		l.Logger.Warn("启动界面失败", zap.Strings("args", args), zap.Error(err))
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
