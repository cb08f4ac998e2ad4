package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cliprecipe/app"
	"cliprecipe/model"
	"cliprecipe/transform"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.design/x/hotkey/mainthread"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4FC3F7"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a919c"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E57373"))
)

// withApp 打开应用执行 fn，结束后释放
func withApp(fn func(a *app.Application) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("关闭应用失败", zap.Error(err))
		}
	}()
	return fn(a)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runApply(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	return withApp(func(a *app.Application) error {
		res, err := a.Apply(commandContext(cmd), name)
		if err != nil {
			return err
		}
		reportResult(cmd.OutOrStdout(), res.Changed, fmt.Sprintf("已应用配方 %s", name))
		return nil
	})
}

func runTransform(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.Application) error {
		res, err := a.Transform(commandContext(cmd), args[0], transformParams)
		if err != nil {
			return err
		}
		reportResult(cmd.OutOrStdout(), res.Changed, fmt.Sprintf("已执行转换 %s", args[0]))
		return nil
	})
}

func reportResult(w io.Writer, changed bool, msg string) {
	if changed {
		fmt.Fprintln(w, onStyle.Render("✓"), msg)
		return
	}
	fmt.Fprintln(w, mutedStyle.Render("剪贴板内容没有变化"))
}

func runShow(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.Application) error {
		text, err := a.Show(commandContext(cmd))
		if err != nil {
			return err
		}
		// 原样输出，不追加换行
		_, err = io.WriteString(cmd.OutOrStdout(), text)
		return err
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.Application) error {
		w := cmd.OutOrStdout()
		active := a.Store().ActiveID()
		for _, r := range a.Store().List() {
			mark, name := "  ", r.Name
			if r.ID == active {
				mark, name = activeStyle.Render("● "), activeStyle.Render(r.Name)
			}
			line := mark + strings.TrimSpace(r.Icon+" "+name)
			if r.Hotkey != "" {
				line += "  " + mutedStyle.Render("["+r.Hotkey+"]")
			}
			fmt.Fprintln(w, line)
			fmt.Fprintln(w, "    "+mutedStyle.Render(r.ID))
			fmt.Fprintln(w, "    "+stepsLine(r.Steps))
		}
		return nil
	})
}

// stepsLine 以转换名称串起配方的各个步骤
func stepsLine(steps []model.Transform) string {
	if len(steps) == 0 {
		return mutedStyle.Render("（无步骤）")
	}
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Kind
		if k, ok := transform.Lookup(s.Kind); ok {
			names[i] = k.Name
		}
	}
	return strings.Join(names, " → ")
}

func runToggle(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.Application) error {
		enabled, err := a.Toggle(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "自动转换:", onOff(enabled))
		return nil
	})
}

func onOff(b bool) string {
	if b {
		return onStyle.Render("开启")
	}
	return offStyle.Render("关闭")
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.Application) error {
		st, err := a.Status(commandContext(cmd))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		running := offStyle.Render("未运行")
		if st.Running {
			running = onStyle.Render("运行中")
		}
		active := st.ActiveRecipe
		if active == "" {
			active = mutedStyle.Render("（无）")
		}
		fmt.Fprintln(w, headerStyle.Render("后台服务"), running)
		fmt.Fprintln(w, "自动转换:", onOff(st.Enabled))
		fmt.Fprintln(w, "当前配方:", active)
		if !st.LastChange.IsZero() {
			fmt.Fprintln(w, "最近转换:", st.LastChange.Local().Format("2006-01-02 15:04:05"))
		}
		if len(st.Hotkeys) > 0 {
			fmt.Fprintln(w, headerStyle.Render("快捷键"))
			for _, b := range st.Hotkeys {
				fmt.Fprintf(w, "  %-18s %s\n", b.Combination, mutedStyle.Render(b.Action.String()))
			}
		}
		return nil
	})
}

func runKinds(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	category := ""
	for _, k := range transform.Kinds() {
		if k.Category != category {
			category = k.Category
			fmt.Fprintln(w, headerStyle.Render(category))
		}
		line := fmt.Sprintf("  %-26s %s", k.ID, k.Name)
		if len(k.Aliases) > 0 {
			line += "  " + mutedStyle.Render(strings.Join(k.Aliases, ", "))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.Application) error {
		if len(args) == 0 || args[0] == "-" {
			return a.ExportRecipes(cmd.OutOrStdout())
		}
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("创建导出文件失败: %w", err)
		}
		if err := a.ExportRecipes(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.Application) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("打开导入文件失败: %w", err)
			}
			defer f.Close()
			r = f
		}
		n, err := a.ImportRecipes(commandContext(cmd), r)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已导入 %d 个配方\n", n)
		return nil
	})
}

// runStart 阻塞运行后台服务，收到中断信号后保存状态退出
func runStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(func(a *app.Application) error {
		logger.Info("后台服务启动", zap.String("ipc", a.Config().IPCAddr), zap.Bool("tray", startTray))
		if startTray {
			// 托盘占用主线程
			return a.RunService(ctx, app.ServiceOptions{Tray: true})
		}

		// 部分平台要求在主线程注册系统快捷键
		var err error
		mainthread.Init(func() {
			err = a.RunService(ctx, app.ServiceOptions{})
		})
		return err
	})
}

func runDashboard(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.Application) error {
		return a.RunDashboard(commandContext(cmd), dashboardQuick)
	})
}
