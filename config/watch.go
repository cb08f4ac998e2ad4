package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce 合并连续写入的时间窗口
const DefaultWatchDebounce = 300 * time.Millisecond

// Watcher 监视数据目录中的指定文件，变化经防抖后通过 Changes 通知
type Watcher struct {
	fw       *fsnotify.Watcher
	dir      string
	files    map[string]struct{}
	debounce time.Duration
	changes  chan struct{}
	logger   *zap.Logger
}

// NewWatcher 监视 dir 下名为 files 的文件
func NewWatcher(dir string, files []string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	fw, err := watchDir(dir)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f] = struct{}{}
	}
	return &Watcher{
		fw:       fw,
		dir:      dir,
		files:    set,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		logger:   logger,
	}, nil
}

func watchDir(dir string) (*fsnotify.Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监视器失败: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("监视目录 %s 失败: %w", dir, err)
	}
	return fw, nil
}

// Changes 每次防抖窗口结束后最多收到一个信号
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Run 阻塞直到 ctx 取消，返回时关闭底层监视器。
// 停止后可以再次调用，会重新创建监视器；同一时间只能有一个 Run
func (w *Watcher) Run(ctx context.Context) error {
	fw := w.fw
	w.fw = nil
	if fw == nil {
		// 上一次 Run 已关闭监视器
		var err error
		if fw, err = watchDir(w.dir); err != nil {
			return err
		}
		w.logger.Debug("重新创建文件监视器", zap.String("dir", w.dir))
	}
	defer fw.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				w.logger.Warn("文件监视器已关闭，停止监听配置变化")
				return nil
			}
			if !w.interesting(ev) {
				continue
			}
			w.logger.Debug("配置文件变化", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("文件监视出错", zap.Error(err))

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) interesting(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	_, ok := w.files[filepath.Base(ev.Name)]
	return ok
}
