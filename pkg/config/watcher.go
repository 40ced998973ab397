package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LoadFunc 从文件构建配置
type LoadFunc[T any] func(path string) (*T, error)

// Watcher 单文件配置监听器，文件变更后重新加载并触发回调
//
// 监听的是文件所在目录，编辑器"写临时文件再 rename"的保存方式也能被捕获。
// 加载失败时保留旧配置，并通过 OnError 回调上报。
type Watcher[T any] struct {
	path     string
	load     LoadFunc[T]
	debounce time.Duration

	mu        sync.RWMutex
	current   *T
	callbacks []func(*T)
	onError   func(error)

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewWatcher 创建配置监听器，会先同步加载一次
func NewWatcher[T any](path string, load LoadFunc[T]) (*Watcher[T], error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &Watcher[T]{
		path:     filepath.Clean(path),
		load:     load,
		debounce: 200 * time.Millisecond,
		current:  cfg,
		onError:  func(error) {},
		fsw:      fsw,
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// GetConfig 获取当前配置
func (w *Watcher[T]) GetConfig() *T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange 注册配置变化回调
func (w *Watcher[T]) OnChange(callback func(*T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// OnError 注册重新加载失败回调
func (w *Watcher[T]) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Reload 立即重新加载
func (w *Watcher[T]) Reload() error {
	select {
	case <-w.done:
		return ErrWatcherClosed
	default:
	}

	cfg, err := w.load(w.path)
	if err != nil {
		w.mu.RLock()
		onError := w.onError
		w.mu.RUnlock()
		onError(err)
		return err
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := append([]func(*T){}, w.callbacks...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	return nil
}

// Stop 停止监听
func (w *Watcher[T]) Stop() {
	w.once.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
		w.wg.Wait()
	})
}

func (w *Watcher[T]) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// 合并短时间内的多次写入
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			_ = w.Reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.mu.RLock()
			onError := w.onError
			w.mu.RUnlock()
			onError(err)
		}
	}
}
