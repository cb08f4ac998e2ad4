package driver

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cliprecipe/config"
	"cliprecipe/model"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS history (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	transformed TEXT NOT NULL DEFAULT '',
	recipe_id TEXT NOT NULL DEFAULT '',
	recipe_name TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_ts ON history(timestamp);
`

// SQLiteStorage 基于 modernc.org/sqlite 的本地存储
type SQLiteStorage struct {
	db       *sql.DB
	maxItems int
}

// NewSQLiteStorage 打开（必要时创建）path 处的数据库
func NewSQLiteStorage(path string, maxItems int) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	// 打开数据库
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	db.SetMaxOpenConns(1)

	// 创建表结构
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	if maxItems <= 0 {
		maxItems = config.DefaultMaxHistory
	}
	return &SQLiteStorage{db: db, maxItems: maxItems}, nil
}

// Load 加载全部历史项
func (s *SQLiteStorage) Load() ([]*model.HistoryEntry, error) {
	return s.query(`SELECT id, content, transformed, recipe_id, recipe_name, timestamp
		FROM history ORDER BY timestamp DESC LIMIT ?`, s.maxItems)
}

// Append 内容相同的旧记录被替换，之后淘汰超出上限的最旧记录
func (s *SQLiteStorage) Append(entry *model.HistoryEntry) ([]*model.HistoryEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// 删除内容相同的旧记录
	if _, err := tx.Exec(`DELETE FROM history WHERE content = ? AND transformed = ? AND recipe_id = ?`,
		entry.Content, entry.Transformed, entry.RecipeID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`INSERT INTO history (id, content, transformed, recipe_id, recipe_name, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Content, entry.Transformed, entry.RecipeID, entry.RecipeName,
		entry.Timestamp.UnixNano()); err != nil {
		return nil, fmt.Errorf("保存历史失败: %w", err)
	}
	// 淘汰超出上限的记录
	if _, err := tx.Exec(`DELETE FROM history WHERE id NOT IN
		(SELECT id FROM history ORDER BY timestamp DESC LIMIT ?)`, s.maxItems); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.Load()
}

// Delete 删除项
func (s *SQLiteStorage) Delete(id string) ([]*model.HistoryEntry, error) {
	if _, err := s.db.Exec(`DELETE FROM history WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return s.Load()
}

// Search 搜索项
func (s *SQLiteStorage) Search(keyword string) ([]*model.HistoryEntry, error) {
	if keyword == "" {
		return s.Load()
	}
	like := "%" + escapeLike(strings.ToLower(keyword)) + "%"
	return s.query(`SELECT id, content, transformed, recipe_id, recipe_name, timestamp
		FROM history
		WHERE lower(content) LIKE ? ESCAPE '\' OR lower(transformed) LIKE ? ESCAPE '\'
		ORDER BY timestamp DESC`, like, like)
}

// Clear 清空历史
func (s *SQLiteStorage) Clear() error {
	_, err := s.db.Exec(`DELETE FROM history`)
	return err
}

// Close 关闭存储
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) query(q string, args ...any) ([]*model.HistoryEntry, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.HistoryEntry
	for rows.Next() {
		var (
			e  model.HistoryEntry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Content, &e.Transformed, &e.RecipeID, &e.RecipeName, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, ts)
		items = append(items, &e)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return items, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
