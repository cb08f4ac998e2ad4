package clipboard

import (
	"context"
	"sync"
)

// MemoryBackend 进程内剪贴板，用于测试与无图形环境
type MemoryBackend struct {
	mu     sync.Mutex
	text   string
	isText bool
	writes int

	// FailReads / FailWrites 为正数时，接下来相应次数的调用返回 Err
	FailReads  int
	FailWrites int
	Err        error
}

// NewMemoryBackend 创建内存剪贴板
func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

// SetText 模拟用户复制文本
func (b *MemoryBackend) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text, b.isText = text, true
}

// SetImage 模拟用户复制图片
func (b *MemoryBackend) SetImage() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text, b.isText = "", false
}

// Text 当前文本
func (b *MemoryBackend) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Writes 成功写入的次数
func (b *MemoryBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// Fail 设置接下来的读写失败次数
func (b *MemoryBackend) Fail(reads, writes int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FailReads, b.FailWrites, b.Err = reads, writes, err
}

func (b *MemoryBackend) ReadText(ctx context.Context) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailReads > 0 {
		b.FailReads--
		return "", false, b.Err
	}
	return b.text, b.isText && b.text != "", nil
}

func (b *MemoryBackend) WriteText(ctx context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWrites > 0 {
		b.FailWrites--
		return b.Err
	}
	b.text, b.isText = text, true
	b.writes++
	return nil
}
