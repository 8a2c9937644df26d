package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("completion_phrases: [all done]\n"), 0o600))

	initial, err := LoadFile(path)
	require.NoError(t, err)
	provider := NewProvider(initial)

	w, err := NewWatcher(zap.NewNop().Sugar(), provider, path)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// A broken file must not replace the active rules.
	require.NoError(t, os.WriteFile(path, []byte("completion_phrases: [\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, []string{"all done"}, provider.Current().CompletionPhrases)

	require.NoError(t, os.WriteFile(path, []byte("completion_phrases: [signed off]\n"), 0o600))
	require.Eventually(t, func() bool {
		phrases := provider.Current().CompletionPhrases
		return len(phrases) == 1 && phrases[0] == "signed off"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherRelevantEvents(t *testing.T) {
	w := &Watcher{path: filepath.Join("/etc/gigflow", "rules.yaml")}

	assert.True(t, w.relevant(fsnotify.Event{Name: "/etc/gigflow/rules.yaml", Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "/etc/gigflow/rules.yaml", Op: fsnotify.Rename}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "/etc/gigflow/..data", Op: fsnotify.Create}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/etc/gigflow/rules.yaml", Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/etc/gigflow/..data", Op: fsnotify.Remove}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/etc/gigflow/other.yaml", Op: fsnotify.Write}))
}

// Mimics a config-map volume: rules.yaml -> ..data/rules.yaml, with ..data
// swapped to a new timestamped directory on every update.
func TestWatcherReloadsOnMountSwap(t *testing.T) {
	dir := t.TempDir()
	writeVersion := func(version, body string) {
		vdir := filepath.Join(dir, version)
		require.NoError(t, os.Mkdir(vdir, 0o700))
		require.NoError(t, os.WriteFile(filepath.Join(vdir, "rules.yaml"), []byte(body), 0o600))
	}
	writeVersion("..v1", "completion_phrases: [all done]\n")
	require.NoError(t, os.Symlink("..v1", filepath.Join(dir, "..data")))
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.Symlink(filepath.Join("..data", "rules.yaml"), path))

	initial, err := LoadFile(path)
	require.NoError(t, err)
	provider := NewProvider(initial)

	w, err := NewWatcher(zap.NewNop().Sugar(), provider, path)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeVersion("..v2", "completion_phrases: [signed off]\n")
	require.NoError(t, os.Symlink("..v2", filepath.Join(dir, "..data_tmp")))
	require.NoError(t, os.Rename(filepath.Join(dir, "..data_tmp"), filepath.Join(dir, "..data")))

	require.Eventually(t, func() bool {
		phrases := provider.Current().CompletionPhrases
		return len(phrases) == 1 && phrases[0] == "signed off"
	}, 5*time.Second, 20*time.Millisecond)
}
