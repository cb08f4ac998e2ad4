package driver

import (
	"errors"
	"fmt"

	"cliprecipe/config"
	"cliprecipe/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MySQLStorage MySQL存储实现（使用GORM）
type MySQLStorage struct {
	db       *gorm.DB
	maxItems int
}

// NewMySQLStorage 创建MySQL存储实例
func NewMySQLStorage(cfg config.MySQLConfig, maxItems int) (*MySQLStorage, error) {
	// 构建DSN
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	// 连接数据库
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接到MySQL数据库: %w", err)
	}
	return newGormStorage(db, maxItems)
}

func newGormStorage(db *gorm.DB, maxItems int) (*MySQLStorage, error) {
	// 自动迁移表结构
	if err := db.AutoMigrate(&model.HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}
	if maxItems <= 0 {
		maxItems = config.DefaultMaxHistory
	}
	return &MySQLStorage{db: db, maxItems: maxItems}, nil
}

// Load 加载全部历史项
func (s *MySQLStorage) Load() ([]*model.HistoryEntry, error) {
	var items []*model.HistoryEntry
	result := s.db.Order("timestamp DESC").
		Limit(s.maxItems).
		Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	return items, nil
}

// Append 内容相同的旧记录只更新时间戳，之后淘汰超出上限的最旧记录
func (s *MySQLStorage) Append(entry *model.HistoryEntry) ([]*model.HistoryEntry, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.HistoryEntry
		err := tx.Where("content = ? AND transformed = ? AND recipe_id = ?",
			entry.Content, entry.Transformed, entry.RecipeID).
			First(&existing).Error

		// 已存在则只刷新时间戳
		switch {
		case err == nil:
			if err := tx.Model(&existing).Update("timestamp", entry.Timestamp).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		default:
			return err
		}

		// 淘汰超出上限的记录
		var stale []string
		if err := tx.Model(&model.HistoryEntry{}).
			Order("timestamp DESC").
			Offset(s.maxItems).
			Pluck("id", &stale).Error; err != nil {
			return err
		}
		if len(stale) > 0 {
			return tx.Where("id IN ?", stale).Delete(&model.HistoryEntry{}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Load()
}

// Delete 删除项
func (s *MySQLStorage) Delete(id string) ([]*model.HistoryEntry, error) {
	if err := s.db.Delete(&model.HistoryEntry{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return s.Load()
}

// Search 搜索项
func (s *MySQLStorage) Search(keyword string) ([]*model.HistoryEntry, error) {
	if keyword == "" {
		return s.Load()
	}
	var items []*model.HistoryEntry
	like := "%" + keyword + "%"
	result := s.db.Where("content LIKE ? OR transformed LIKE ?", like, like).
		Order("timestamp DESC").
		Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	return items, nil
}

// Clear 清空历史
func (s *MySQLStorage) Clear() error {
	return s.db.Where("1 = 1").Delete(&model.HistoryEntry{}).Error
}

// Close 关闭存储
func (s *MySQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
