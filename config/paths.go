package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName = "cliprecipe"

	// EnvHome 覆盖默认数据目录
	EnvHome = "CLIPRECIPE_HOME"

	ConfigFile  = "config.json"
	RecipesFile = "recipes.json"
	HistoryFile = "history.json"
)

// Paths 持久化文件位置
type Paths struct {
	Dir     string
	Config  string
	Recipes string
	History string
}

// DefaultPaths 优先使用 CLIPRECIPE_HOME，否则使用系统用户配置目录
func DefaultPaths() (Paths, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return PathsIn(home), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("获取用户配置目录失败: %w", err)
	}
	return PathsIn(filepath.Join(dir, appDirName)), nil
}

// PathsIn 以 dir 为数据目录
func PathsIn(dir string) Paths {
	return Paths{
		Dir:     dir,
		Config:  filepath.Join(dir, ConfigFile),
		Recipes: filepath.Join(dir, RecipesFile),
		History: filepath.Join(dir, HistoryFile),
	}
}

// Ensure 创建数据目录
func (p Paths) Ensure() error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}
	return nil
}
