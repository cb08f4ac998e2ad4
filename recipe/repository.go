package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"cliprecipe/config"
	"cliprecipe/model"
)

// Repository 配方的持久化边界
type Repository interface {
	// LoadRecipes found 为 false 表示从未保存过
	LoadRecipes() (recipes []model.Recipe, found bool, err error)
	SaveRecipes(recipes []model.Recipe) error
	// LoadActive 未设置时返回空串
	LoadActive() (string, error)
	SaveActive(id string) error
}

// FileRepository recipes.json 保存配方列表，config.json 保存激活的配方
type FileRepository struct {
	paths config.Paths
}

// NewFileRepository 创建文件存储
func NewFileRepository(paths config.Paths) *FileRepository {
	return &FileRepository{paths: paths}
}

func (r *FileRepository) LoadRecipes() ([]model.Recipe, bool, error) {
	data, err := os.ReadFile(r.paths.Recipes)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, fmt.Errorf("读取配方文件失败: %w", err)
	}
	var recipes []model.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, true, fmt.Errorf("%w: %s: %v", model.ErrConfigCorrupt, r.paths.Recipes, err)
	}
	return recipes, true, nil
}

func (r *FileRepository) SaveRecipes(recipes []model.Recipe) error {
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	data, err := json.MarshalIndent(recipes, "", "  ")
	if err != nil {
		return fmt.Errorf("配方序列化失败: %w", err)
	}
	return config.WithFileLock(r.paths.Recipes, config.DefaultLockTimeout, func() error {
		return config.WriteFileAtomic(r.paths.Recipes, data)
	})
}

func (r *FileRepository) LoadActive() (string, error) {
	cfg, err := config.Load(r.paths.Config)
	return cfg.ActiveID(), err
}

func (r *FileRepository) SaveActive(id string) error {
	_, err := config.Update(r.paths.Config, func(cfg *config.AppConfig) {
		cfg.SetActiveID(id)
	})
	return err
}

// MemoryRepository 内存存储，用于测试和临时会话
type MemoryRepository struct {
	mu      sync.Mutex
	recipes []model.Recipe
	found   bool
	active  string
	// FailSave 非空时所有保存操作返回该错误
	FailSave error
}

// NewMemoryRepository 创建内存存储，传入 nil 表示尚未保存过
func NewMemoryRepository(recipes []model.Recipe) *MemoryRepository {
	return &MemoryRepository{recipes: cloneAll(recipes), found: recipes != nil}
}

func (r *MemoryRepository) LoadRecipes() ([]model.Recipe, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.recipes), r.found, nil
}

func (r *MemoryRepository) SaveRecipes(recipes []model.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSave != nil {
		return r.FailSave
	}
	r.recipes = cloneAll(recipes)
	r.found = true
	return nil
}

func (r *MemoryRepository) LoadActive() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, nil
}

func (r *MemoryRepository) SaveActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSave != nil {
		return r.FailSave
	}
	r.active = id
	return nil
}

func cloneAll(recipes []model.Recipe) []model.Recipe {
	if recipes == nil {
		return nil
	}
	out := make([]model.Recipe, len(recipes))
	for i, r := range recipes {
		out[i] = r.Clone()
	}
	return out
}
