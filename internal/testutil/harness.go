// Package testutil provides the harness the system tests run pipelines
// through.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/tablegrid/internal/app"
	"github.com/vk/tablegrid/internal/engine"
	"github.com/vk/tablegrid/internal/runner"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of a pipeline run.
type HarnessResult struct {
	// Dir is the temporary directory the files were written to.
	Dir       string
	LogOutput string
	// Err is the error from building the app or from running it.
	Err    error
	App    *app.App
	Result *runner.Result
}

// RunPipeline writes files into a temporary directory and runs the pipeline
// found there, using a background context.
func RunPipeline(t *testing.T, files map[string]string, cfg app.Config, modules ...engine.Module) *HarnessResult {
	t.Helper()
	return RunPipelineWithContext(context.Background(), t, files, cfg, modules...)
}

// RunPipelineWithContext is RunPipeline with a caller-provided context.
//
// Relative PipelinePath and PersistTo values in cfg are taken relative to
// the temporary directory; an empty PipelinePath means the directory
// itself. Absolute paths are kept, so a test may point at files it wrote
// itself. The log level defaults to debug.
func RunPipelineWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, modules ...engine.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	if !filepath.IsAbs(cfg.PipelinePath) {
		cfg.PipelinePath = filepath.Join(dir, cfg.PipelinePath)
	}
	if cfg.PersistTo != "" && !filepath.IsAbs(cfg.PersistTo) {
		cfg.PersistTo = filepath.Join(dir, cfg.PersistTo)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	res := &HarnessResult{Dir: dir}
	res.App, res.Err = app.NewApp(ctx, logBuffer, appConfig, nil, modules...)
	if res.Err == nil {
		res.Result, res.Err = res.App.Run(ctx)
	}
	res.LogOutput = logBuffer.String()

	if os.Getenv("TABLEGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.LogOutput)
	}
	return res
}
