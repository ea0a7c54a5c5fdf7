package snapshot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/storage/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(channel edge.Channel, version edge.Version) edge.DumpRecord {
	return edge.NewDumpRecord(
		edge.ProductVersion{
			Identity: edge.NewIdentity(edge.ProductEdge, channel, edge.OSLinux, edge.ArchX64),
			Version:  version,
		},
		edge.NewArtifactSet(edge.Artifact{FileName: "a.deb", URL: "https://x/a.deb", Sha256: []byte{1, 2, 3}}),
	)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "out", "edge.json"))

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	set := &edge.DumpSet{}
	set.Add(record(edge.ChannelStable, edge.Version{130, 0, 1, 0}))
	set.Add(record(edge.ChannelBeta, edge.Version{131, 0, 1, 0}))

	require.NoError(t, store.Save(ctx, set))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, set.Len(), loaded.Len())

	for i, r := range set.Records() {
		assert.Equal(t, 0, r.Compare(loaded.Records()[i]))
	}

	b, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  {", "snapshot is indented")
}

func TestStore_LoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := snapshot.NewStore(path).Load(context.Background())

	var perr *edge.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "edge.json"))

	err := store.Update(ctx, func(existing *edge.DumpSet) (*edge.DumpSet, error) {
		assert.Equal(t, 0, existing.Len())
		existing.Add(record(edge.ChannelDev, edge.Version{132, 0, 1, 0}))

		return existing, nil
	})
	require.NoError(t, err)

	failure := errors.New("backend down")
	err = store.Update(ctx, func(existing *edge.DumpSet) (*edge.DumpSet, error) {
		assert.Equal(t, 1, existing.Len())

		return nil, failure
	})
	assert.ErrorIs(t, err, failure)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len(), "a failed update leaves the snapshot untouched")
}
