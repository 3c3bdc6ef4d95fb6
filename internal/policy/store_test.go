package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
)

func newFileStore(t *testing.T, contents string) (*policy.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	store, err := policy.Open(context.Background(), &policy.Config{Path: path}, logger.NewNop())
	require.NoError(t, err)
	return store, path
}

func TestStore_ReloadSwapsSnapshot(t *testing.T) {
	t.Parallel()

	store, path := newFileStore(t, samplePolicy)
	before := store.Current()

	var swaps []string
	store.OnSwap(func(previous, current *policy.Snapshot) {
		swaps = append(swaps, previous.Version()+"->"+current.Version())
	})

	require.NoError(t, os.WriteFile(path, []byte("version: \"9\"\nentries:\n  themes/kadence: [kadence-navigation]\n"), 0o644))
	snap, err := store.Reload(context.Background())
	require.NoError(t, err)

	assert.Same(t, snap, store.Current())
	assert.Equal(t, "7", before.Version(), "old snapshot is untouched")
	_, ok := before.Lookup(policy.KindTheme, "astra")
	assert.True(t, ok)
	assert.Equal(t, []string{"7->9"}, swaps)
}

func TestStore_ReloadFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	store, path := newFileStore(t, samplePolicy)
	before := store.Current()

	require.NoError(t, os.WriteFile(path, []byte("entries: ["), 0o644))
	_, err := store.Reload(context.Background())
	require.Error(t, err)
	assert.Same(t, before, store.Current())
}

func TestStore_Save(t *testing.T) {
	t.Parallel()

	store, path := newFileStore(t, samplePolicy)

	snap, err := store.Save([]byte("version: \"10\"\nentries:\n  plugins/foo: [bar]\n"))
	require.NoError(t, err)
	assert.Same(t, snap, store.Current())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "plugins/foo")

	_, err = store.Save([]byte("entries:\n  nope: [bar]\n"))
	require.ErrorIs(t, err, policy.ErrInvalidKey)
	assert.Same(t, snap, store.Current())
}

func TestStore_SaveRequiresLocalFile(t *testing.T) {
	t.Parallel()

	builtIn, err := policy.Default()
	require.NoError(t, err)

	store := policy.NewStore(builtIn, &policy.Config{}, nil)
	_, err = store.Save([]byte(samplePolicy))
	require.ErrorIs(t, err, policy.ErrNotWritable)
}

func TestStore_Replace(t *testing.T) {
	t.Parallel()

	store, _ := newFileStore(t, samplePolicy)
	before := store.Current()

	next, err := policy.FromDocument(policy.Document{Entries: map[string][]string{"plugins/x": {"y"}}})
	require.NoError(t, err)

	assert.Same(t, before, store.Replace(next))
	assert.Same(t, next, store.Current())
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	store, path := newFileStore(t, samplePolicy)

	w, err := policy.NewWatcher(store, logger.NewNop())
	require.NoError(t, err)
	w.SetReloadDelay(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("version: \"11\"\nentries:\n  plugins/foo: [bar]\n"), 0o644))

	require.Eventually(t, func() bool {
		return store.Current().Version() == "11"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestNewWatcher_RequiresLocalFile(t *testing.T) {
	t.Parallel()

	builtIn, err := policy.Default()
	require.NoError(t, err)

	_, err = policy.NewWatcher(policy.NewStore(builtIn, &policy.Config{}, nil), nil)
	require.ErrorIs(t, err, policy.ErrNotWritable)
}
