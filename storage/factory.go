package storage

import (
	"fmt"
	"path/filepath"

	"cliprecipe/config"
	"cliprecipe/storage/driver"
)

// NewStorage 根据配置创建存储实例，dataDir 为默认数据目录
func NewStorage(cfg config.HistoryConfig, dataDir string) (Storage, error) {
	switch cfg.Type {
	case config.StorageTypeJSON:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dataDir, config.HistoryFile)
		}
		return driver.NewJSONStorage(path, cfg.MaxItems)
	case config.StorageTypeSQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dataDir, "history.db")
		}
		return driver.NewSQLiteStorage(path, cfg.MaxItems)
	case config.StorageTypeMySQL:
		return driver.NewMySQLStorage(cfg.MySQL, cfg.MaxItems)
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Type)
	}
}
