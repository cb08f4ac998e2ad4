// cliprecipe 剪贴板配方工具：后台自动转换剪贴板文本，也可以在命令行中单次执行。
package main

import (
	"errors"
	"fmt"
	"os"

	"cliprecipe/app"
	"cliprecipe/logging"
	"cliprecipe/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// 全局日志器
	logger *zap.Logger

	verbose bool
	home    string
	logFile string

	transformParams map[string]string
	startTray       bool
	dashboardQuick  bool
)

// openApp 每个命令各自打开一次应用，测试中替换
var openApp = func() (*app.Application, error) {
	return app.New(app.Options{Home: home, Logger: logger})
}

var rootCmd = &cobra.Command{
	Use:   "cliprecipe",
	Short: "剪贴板配方：复制时自动整理文本",
	Long: `cliprecipe 在后台监听系统剪贴板，复制文本时按当前配方依次执行转换并写回。

不带子命令时打开控制面板。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Options{Verbose: verbose, File: logFile, JSON: logFile != ""})
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runDashboard,
}

var applyCmd = &cobra.Command{
	Use:   "apply <recipe>",
	Short: "对当前剪贴板执行一次配方",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runApply,
}

var transformCmd = &cobra.Command{
	Use:     "transform <kind>",
	Short:   "对当前剪贴板执行单个转换",
	Example: "  cliprecipe transform tabs --param spaces=2\n  cliprecipe transform upper",
	Args:    cobra.ExactArgs(1),
	RunE:    runTransform,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "输出当前剪贴板文本",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全部配方",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "开关后台服务的自动转换",
	Args:  cobra.NoArgs,
	RunE:  runToggle,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看后台服务状态",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "启动后台服务",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "打开控制面板",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "列出全部转换类型",
	Args:  cobra.NoArgs,
	RunE:  runKinds,
}

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "导入导出配方",
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "把配方导出为 YAML，不指定文件时写到标准输出",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "从 YAML 文件导入配方，- 表示标准输入",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	rootCmd.PersistentFlags().StringVar(&home, "home", "", "配置目录（默认读取 CLIPRECIPE_HOME）")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "同时把日志写入文件")

	transformCmd.Flags().StringToStringVarP(&transformParams, "param", "p", nil, "转换参数，如 spaces=2")
	startCmd.Flags().BoolVar(&startTray, "tray", false, "显示系统托盘图标")
	dashboardCmd.Flags().BoolVar(&dashboardQuick, "quick", false, "只打开快捷菜单")

	recipesCmd.AddCommand(exportCmd, importCmd)
	rootCmd.AddCommand(
		applyCmd,
		transformCmd,
		showCmd,
		listCmd,
		toggleCmd,
		statusCmd,
		startCmd,
		dashboardCmd,
		kindsCmd,
		recipesCmd,
	)
}

// 退出码，每种错误固定一个
const (
	exitOK = iota
	exitGeneric
	exitRecipeNotFound
	exitHotkeyConflict
	exitPlatformDenied
	exitClipboardUnavailable
	exitServiceNotRunning
	exitUnknownTransform
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, model.ErrRecipeNotFound):
		return exitRecipeNotFound
	case errors.Is(err, model.ErrHotkeyConflict):
		return exitHotkeyConflict
	case errors.Is(err, model.ErrPlatformDenied):
		return exitPlatformDenied
	case errors.Is(err, model.ErrClipboardUnavailable):
		return exitClipboardUnavailable
	case errors.Is(err, model.ErrServiceNotRunning):
		return exitServiceNotRunning
	case errors.Is(err, model.ErrUnknownTransform):
		return exitUnknownTransform
	}
	return exitGeneric
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(exitCode(err))
	}
}
