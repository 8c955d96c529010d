package configwatcher

import (
	"context"
	"elearning_backend/internal/config"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  mode: debug\n"), 0o644))

	got := make(chan *config.Config, 1)
	w := New(file, func(cfg *config.Config) { got <- cfg })
	w.debounce = 10 * time.Millisecond
	w.load = func(string) (*config.Config, error) {
		return &config.Config{Server: config.ServerConfig{Mode: "release"}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// 等待 watcher 注册完成后再写文件
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte("server:\n  mode: release\n"), 0o644))

	select {
	case cfg := <-got:
		assert.Equal(t, "release", cfg.Server.Mode)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}
}
