package storage

import "cliprecipe/model"

// Storage 历史记录存储接口，列表一律按时间从新到旧
type Storage interface {
	// Append 添加新项，超出上限时淘汰最旧的项，返回更新后的列表
	Append(entry *model.HistoryEntry) ([]*model.HistoryEntry, error)

	// Load 加载全部历史项
	Load() ([]*model.HistoryEntry, error)

	// Delete 删除项
	Delete(id string) ([]*model.HistoryEntry, error)

	// Search 按原文或转换结果搜索，不区分大小写
	Search(keyword string) ([]*model.HistoryEntry, error)

	// Clear 清空历史
	Clear() error

	// 关闭存储
	Close() error
}
