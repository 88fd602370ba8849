package http

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"flightprice/ml"
)

// 写入事件去抖间隔，避免半写状态下加载
const reloadDebounce = 500 * time.Millisecond

// WatchArtifact 监听模型文件变化并热加载，返回停止函数。
// 监听的是目录而不是文件本身，rename方式的原子替换也能捕获。
func WatchArtifact(path string) (func(), error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watch directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	base := filepath.Base(path)
	done := make(chan struct{})

	go func() {
		var reloadTimer *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				// 连续写入只触发最后一次
				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				reloadTimer = time.AfterFunc(reloadDebounce, func() {
					reloadArtifact(path)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("artifact watcher error", "error", err)
			case <-done:
				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				return
			}
		}
	}()

	logger.Infow("watching model artifact", "path", path)
	return func() {
		close(done)
		watcher.Close()
	}, nil
}

// reloadArtifact 加载失败时保留旧模型继续服务
func reloadArtifact(path string) {
	artifact, err := ml.LoadArtifact(path)
	if err != nil {
		logger.Warnw("model reload failed, keeping previous model", "path", path, "error", err)
		return
	}
	predictor, err := ml.NewPredictor(artifact)
	if err != nil {
		logger.Warnw("model reload failed, keeping previous model", "path", path, "error", err)
		return
	}
	SetPredictor(predictor)
	logger.Infow("model reloaded",
		"path", path,
		"model_type", artifact.ModelType,
		"run_id", artifact.RunID,
	)
}
