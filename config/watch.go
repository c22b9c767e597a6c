package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听配置文件变化，在最后一次写入 cooldown 之后重新加载并回调。
// 监听所在目录，以兼容编辑器"写临时文件再重命名"的保存方式。
type Watcher struct {
	path     string
	cooldown time.Duration
	watcher  *fsnotify.Watcher
	onUpdate func(AppConfig)
	onError  func(error)

	mu         sync.RWMutex
	lastReload time.Time
	stopChan   chan struct{}
	doneChan   chan struct{}
	stopOnce   sync.Once
}

// NewWatcher 创建配置监听器；onError 可为 nil。
func NewWatcher(path string, cooldown time.Duration, onUpdate func(AppConfig), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if cooldown <= 0 {
		cooldown = 500 * time.Millisecond
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{
		path:     filepath.Clean(path),
		cooldown: cooldown,
		watcher:  fw,
		onUpdate: onUpdate,
		onError:  onError,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start 启动监听
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config dir: %w", err)
	}
	go w.watch(ctx)
	return nil
}

// Stop 停止监听并关闭底层 watcher
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		select {
		case <-w.doneChan:
		case <-time.After(time.Second):
			// watch 协程可能未启动
		}
		err = w.watcher.Close()
	})
	return err
}

// LastReload 最后一次成功重载的时间
func (w *Watcher) LastReload() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastReload
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneChan)

	timer := time.NewTimer(w.cooldown)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			// 只处理写入和创建事件
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(w.cooldown)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onError(fmt.Errorf("watcher: %w", err))
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		w.onError(fmt.Errorf("reload %s: %w", w.path, err))
		return
	}
	w.mu.Lock()
	w.lastReload = time.Now()
	w.mu.Unlock()
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
}
