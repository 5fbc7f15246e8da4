package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-fieldtree/pkg/registry"
)

func writeGroup(t *testing.T, dir, name, id string) {
	t.Helper()
	body := "groups:\n  - id: " + id + "\n    fields:\n      - key: field_" + id + "\n        name: " + id + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func groupIDs(t *testing.T, w *registry.Watcher) []string {
	t.Helper()
	groups, err := w.FieldGroups(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	writeGroup(t, dir, "a.yaml", "alpha")

	w, err := registry.NewWatcher(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, groupIDs(t, w))

	writeGroup(t, dir, "b.yaml", "beta")
	require.NoError(t, w.Reload())
	assert.Equal(t, []string{"alpha", "beta"}, groupIDs(t, w))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("groups: [{id: alpha}]"), 0o644))
	assert.Error(t, w.Reload())
	assert.Equal(t, []string{"alpha", "beta"}, groupIDs(t, w), "failed reload must keep the previous snapshot")
}

func TestWatcherSnapshotIsStable(t *testing.T) {
	dir := t.TempDir()
	writeGroup(t, dir, "a.yaml", "alpha")

	w, err := registry.NewWatcher(dir)
	require.NoError(t, err)
	snapshot := w.Snapshot()
	require.NotNil(t, snapshot)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.yaml")))
	writeGroup(t, dir, "b.yaml", "beta")
	require.NoError(t, w.Reload())
	assert.Equal(t, []string{"beta"}, groupIDs(t, w))

	fields, err := snapshot.FieldsInGroup(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Len(t, fields, 1)
	_, err = w.FieldsInGroup(context.Background(), "alpha")
	assert.ErrorIs(t, err, registry.ErrGroupNotFound)
}

func TestWatcherRunFollowsChanges(t *testing.T) {
	dir := t.TempDir()
	writeGroup(t, dir, "a.yaml", "alpha")

	w, err := registry.NewWatcher(dir, registry.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)
	writeGroup(t, dir, "b.yaml", "beta")

	assert.Eventually(t, func() bool {
		return len(groupIDs(t, w)) == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
