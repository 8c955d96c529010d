package configwatcher

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/pkg/logger"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Reloader func(cfg *config.Config)

// Watcher 监听配置文件变更，防抖后重新加载并回调
type Watcher struct {
	path     string
	debounce time.Duration
	load     func(dir string) (*config.Config, error)
	reloader Reloader
}

func New(configFile string, reloader Reloader) *Watcher {
	return &Watcher{
		path:     configFile,
		debounce: time.Second,
		load:     config.LoadConfig,
		reloader: reloader,
	}
}

// Run 阻塞直到 ctx 取消
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}

	// 监听目录而非文件，编辑器的原子替换会让文件级监听失效
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			newCfg, err := w.load(filepath.Dir(absPath))
			if err != nil {
				logger.L().Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.L().Info("Config reloaded", zap.String("path", absPath))
			w.reloader(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.L().Error("Config watcher error", zap.Error(err))
		}
	}
}
