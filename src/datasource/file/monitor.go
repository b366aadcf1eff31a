// monitor.go
package file

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控数据文件，文件被写入或替换时回调
type FileMonitor struct {
	watcher *fsnotify.Watcher
	targets map[string]bool      // 监控的文件(绝对路径)
	lastMod map[string]time.Time // 每个文件最近一次回调时的修改时间
	mu      sync.Mutex
}

// NewFileMonitor 监控 paths 所在目录
// 监控目录而不是文件本身，这样原子替换(rename)也能收到事件
func NewFileMonitor(paths ...string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	m := &FileMonitor{
		watcher: watcher,
		targets: make(map[string]bool),
		lastMod: make(map[string]time.Time),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		m.targets[abs] = true
		if info, err := os.Stat(abs); err == nil {
			m.lastMod[abs] = info.ModTime()
		}
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := ensureDir(dir); err != nil {
			watcher.Close()
			return nil, err
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return m, nil
}

// Watch 阻塞直到 ctx 结束或 watcher 关闭
// handler 在本协程中顺序调用，同一时刻只会有一次重新加载
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !m.targets[name] {
				continue
			}
			if m.changed(name) {
				handler(name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) changed(name string) bool {
	info, err := os.Stat(name)
	if err != nil {
		// rename 走了旧文件，等新文件的 Create 事件
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if info.ModTime().After(m.lastMod[name]) {
		m.lastMod[name] = info.ModTime()
		return true
	}
	return false
}

// Close 停止监控
func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}

// ReplaceValidated 写临时文件，validate 通过后才改名替换 path，读取方不会看到写了一半的文件
// validate 为空时不校验
// 临时文件与 path 扩展名相同，validate 可以直接按格式读取它
func ReplaceValidated(path string, data []byte, validate func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	if err := ensureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*"+filepath.Ext(path))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if validate != nil {
		if err := validate(tmp.Name()); err != nil {
			return err
		}
	}
	return os.Rename(tmp.Name(), path)
}

// SetupSignalHandler 收到 SIGINT/SIGTERM 时取消 ctx
func SetupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Printf("\nReceived signal: %v, shutting down...\n", sig)
		cancel()
	}()
}
