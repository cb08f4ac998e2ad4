package recipe

import (
	"fmt"
	"io"
	"strings"

	"cliprecipe/hotkey"
	"cliprecipe/model"
	"cliprecipe/transform"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const exchangeVersion = 1

type exchangeFile struct {
	Version int            `yaml:"version"`
	Recipes []model.Recipe `yaml:"recipes"`
}

// Export 以 YAML 导出全部配方
func (s *Store) Export(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exchangeFile{Version: exchangeVersion, Recipes: s.List()}); err != nil {
		return fmt.Errorf("导出配方失败: %w", err)
	}
	return enc.Close()
}

// Import 读取 YAML 配方。ID 或名称与现有配方相同时更新其步骤，
// 否则作为新配方加入并分配新 ID。返回导入的数量
func (s *Store) Import(r io.Reader) (int, error) {
	var file exchangeFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return 0, fmt.Errorf("解析配方文件失败: %w", err)
	}

	incoming := make([]model.Recipe, 0, len(file.Recipes))
	for _, in := range file.Recipes {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return 0, ErrEmptyName
		}
		steps, err := transform.Canonical(in.Steps)
		if err != nil {
			return 0, fmt.Errorf("配方 %q: %w", name, err)
		}
		if in.Hotkey != "" {
			combo, err := hotkey.Canonical(in.Hotkey)
			if err != nil {
				return 0, fmt.Errorf("配方 %q: %w", name, err)
			}
			in.Hotkey = combo
		}
		in.Name = name
		in.Steps = steps
		incoming = append(incoming, in)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	next := cloneAll(s.recipes)
	for _, in := range incoming {
		i := indexOf(next, in)
		if i >= 0 {
			next[i].Steps = in.Steps
			next[i].Description = in.Description
			next[i].Icon = in.Icon
			next[i].Hotkey = in.Hotkey
			next[i].ModifiedAt = now
			continue
		}
		in.ID = uuid.NewString()
		in.CreatedAt = now
		in.ModifiedAt = now
		next = append(next, in)
	}
	if err := s.repo.SaveRecipes(next); err != nil {
		return 0, err
	}
	s.recipes = next
	s.logger.Info("配方已导入", zap.Int("count", len(incoming)))
	return len(incoming), nil
}

func indexOf(recipes []model.Recipe, in model.Recipe) int {
	for i, r := range recipes {
		if in.ID != "" && r.ID == in.ID {
			return i
		}
	}
	for i, r := range recipes {
		if strings.EqualFold(r.Name, in.Name) {
			return i
		}
	}
	return -1
}
