package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"cliprecipe/config"
	"cliprecipe/model"
)

// JSONStorage JSON文件存储实现，每次修改都在文件锁内完成 读取-修改-写回
type JSONStorage struct {
	filePath string
	maxItems int
}

// NewJSONStorage 创建JSON存储实例
func NewJSONStorage(path string, maxItems int) (*JSONStorage, error) {
	if maxItems <= 0 {
		maxItems = config.DefaultMaxHistory
	}
	return &JSONStorage{filePath: path, maxItems: maxItems}, nil
}

// Load 加载全部历史项
func (s *JSONStorage) Load() ([]*model.HistoryEntry, error) {
	return s.read()
}

// Append 添加到开头；与已有项内容完全相同时移到开头而不重复保存
func (s *JSONStorage) Append(entry *model.HistoryEntry) ([]*model.HistoryEntry, error) {
	var out []*model.HistoryEntry
	err := s.mutate(func(items []*model.HistoryEntry) []*model.HistoryEntry {
		// 新项放在开头，去掉内容相同的旧项
		kept := make([]*model.HistoryEntry, 0, len(items)+1)
		kept = append(kept, entry)
		for _, item := range items {
			if sameContent(item, entry) {
				continue
			}
			kept = append(kept, item)
		}
		out = trim(kept, s.maxItems)
		return out
	})
	return out, err
}

// Delete 删除项
func (s *JSONStorage) Delete(id string) ([]*model.HistoryEntry, error) {
	var out []*model.HistoryEntry
	err := s.mutate(func(items []*model.HistoryEntry) []*model.HistoryEntry {
		for i, item := range items {
			if item.ID == id {
				items = append(items[:i], items[i+1:]...)
				break
			}
		}
		out = items
		return items
	})
	return out, err
}

// Search 搜索项
func (s *JSONStorage) Search(keyword string) ([]*model.HistoryEntry, error) {
	items, err := s.read()
	if err != nil {
		return nil, err
	}
	return filter(items, keyword), nil
}

// Clear 清空历史
func (s *JSONStorage) Clear() error {
	return s.mutate(func([]*model.HistoryEntry) []*model.HistoryEntry { return nil })
}

// Close 关闭存储
func (s *JSONStorage) Close() error {
	return nil
}

func (s *JSONStorage) read() ([]*model.HistoryEntry, error) {
	var items []*model.HistoryEntry
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return items, nil
	}
	if err != nil {
		return nil, err
	}
	// 解析JSON
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrConfigCorrupt, s.filePath, err)
	}
	// 按时间倒序
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items, nil
}

func (s *JSONStorage) mutate(fn func([]*model.HistoryEntry) []*model.HistoryEntry) error {
	return config.WithFileLock(s.filePath, config.DefaultLockTimeout, func() error {
		items, err := s.read()
		if errors.Is(err, model.ErrConfigCorrupt) {
			// 损坏的历史文件直接重建
			items, err = nil, nil
		}
		if err != nil {
			return err
		}
		items = fn(items)
		if items == nil {
			items = []*model.HistoryEntry{}
		}
		// 序列化后原子写回
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return err
		}
		return config.WriteFileAtomic(s.filePath, data)
	})
}
