// Package recipe 管理配方：内置配方初始化、增删改查、当前激活配方，以及导入导出。
package recipe

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cliprecipe/hotkey"
	"cliprecipe/model"
	"cliprecipe/transform"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyName 配方名称为空
var ErrEmptyName = errors.New("配方名称不能为空")

// Store 配方存储。所有修改先写入 Repository，成功后才更新内存状态
type Store struct {
	mu      sync.RWMutex
	repo    Repository
	recipes []model.Recipe
	active  string
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore 从 repo 加载配方；从未保存过时写入内置配方
func NewStore(repo Repository, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{repo: repo, logger: logger, now: time.Now}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload 重新从 repo 读取配方和激活状态。文件损坏时使用内置配方且不覆盖原文件
func (s *Store) Reload() error {
	recipes, found, err := s.repo.LoadRecipes()
	switch {
	case err != nil:
		s.logger.Warn("配方文件无法读取，使用内置配方", zap.Error(err))
		recipes = Defaults(s.now())
	case !found:
		recipes = Defaults(s.now())
		if err := s.repo.SaveRecipes(recipes); err != nil {
			return fmt.Errorf("写入内置配方失败: %w", err)
		}
		s.logger.Info("已初始化内置配方", zap.Int("count", len(recipes)))
	}

	active, err := s.repo.LoadActive()
	if err != nil {
		s.logger.Warn("读取激活配方失败", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes = recipes
	s.active = ""
	if active != "" {
		if s.indexLocked(active) >= 0 {
			s.active = active
		} else {
			s.logger.Warn("激活的配方已不存在，忽略", zap.String("id", active))
		}
	}
	return nil
}

// List 全部配方，按保存顺序
func (s *Store) List() []model.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.recipes)
}

// Get 按 ID 获取
func (s *Store) Get(id string) (model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return model.Recipe{}, fmt.Errorf("%w: %s", model.ErrRecipeNotFound, id)
	}
	return s.recipes[i].Clone(), nil
}

// Find 先按 ID，再按名称（不区分大小写）查找
func (s *Store) Find(nameOrID string) (model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(nameOrID); i >= 0 {
		return s.recipes[i].Clone(), nil
	}
	for _, r := range s.recipes {
		if strings.EqualFold(r.Name, strings.TrimSpace(nameOrID)) {
			return r.Clone(), nil
		}
	}
	return model.Recipe{}, fmt.Errorf("%w: %s", model.ErrRecipeNotFound, nameOrID)
}

// Create 新建配方并返回生成的 ID，步骤中的未知转换会被拒绝
func (s *Store) Create(name string, steps []model.Transform) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	canon, err := transform.Canonical(steps)
	if err != nil {
		return "", err
	}
	now := s.now()
	r := model.Recipe{
		ID:         uuid.NewString(),
		Name:       name,
		Steps:      canon,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(cloneAll(s.recipes), r)
	if err := s.repo.SaveRecipes(next); err != nil {
		return "", err
	}
	s.recipes = next
	s.logger.Info("配方已创建", zap.String("id", r.ID), zap.String("name", name))
	return r.ID, nil
}

// Update 替换配方的步骤；先确认配方存在，再校验步骤
func (s *Store) Update(id string, steps []model.Transform) error {
	return s.modify(id, func(r *model.Recipe) error {
		canon, err := transform.Canonical(steps)
		if err != nil {
			return err
		}
		r.Steps = canon
		return nil
	})
}

// Rename 修改名称
func (s *Store) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return s.modify(id, func(r *model.Recipe) error {
		r.Name = name
		return nil
	})
}

// SetDetails 修改描述与图标
func (s *Store) SetDetails(id, description, icon string) error {
	return s.modify(id, func(r *model.Recipe) error {
		r.Description = description
		r.Icon = icon
		return nil
	})
}

// SetHotkey 为配方绑定快捷键，空串表示解除
func (s *Store) SetHotkey(id, combination string) error {
	canon := ""
	if combination != "" {
		c, err := hotkey.Canonical(combination)
		if err != nil {
			return err
		}
		canon = c
	}
	return s.modify(id, func(r *model.Recipe) error {
		r.Hotkey = canon
		return nil
	})
}

// Delete 删除配方；若为当前激活配方则同时清除激活状态
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", model.ErrRecipeNotFound, id)
	}
	next := cloneAll(s.recipes)
	next = append(next[:i], next[i+1:]...)
	if err := s.repo.SaveRecipes(next); err != nil {
		return err
	}
	s.recipes = next

	if s.active == id {
		if err := s.repo.SaveActive(""); err != nil {
			s.logger.Warn("清除激活配方失败", zap.Error(err))
		}
		s.active = ""
	}
	s.logger.Info("配方已删除", zap.String("id", id))
	return nil
}

// SetActive 设置激活配方，空串表示清除。未知 ID 返回 ErrRecipeNotFound 且不改变当前状态
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %s", model.ErrRecipeNotFound, id)
	}
	if err := s.repo.SaveActive(id); err != nil {
		return err
	}
	s.active = id
	return nil
}

// Active 当前激活的配方
func (s *Store) Active() (model.Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == "" {
		return model.Recipe{}, false
	}
	i := s.indexLocked(s.active)
	if i < 0 {
		return model.Recipe{}, false
	}
	return s.recipes[i].Clone(), true
}

// ActiveID 当前激活配方的 ID，未设置时为空串
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Store) modify(id string, fn func(r *model.Recipe) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", model.ErrRecipeNotFound, id)
	}
	next := cloneAll(s.recipes)
	if err := fn(&next[i]); err != nil {
		return err
	}
	next[i].ModifiedAt = s.now()
	if err := s.repo.SaveRecipes(next); err != nil {
		return err
	}
	s.recipes = next
	return nil
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range s.recipes {
		if r.ID == id {
			return i
		}
	}
	return -1
}
