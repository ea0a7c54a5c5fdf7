package resolver

import (
	"context"
	"fmt"

	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/logctx"
	"golang.org/x/sync/errgroup"
)

// SnapshotStore persists the dump. Update holds the store exclusively while
// fn turns the existing snapshot into the one to write.
type SnapshotStore interface {
	Update(ctx context.Context, fn func(existing *edge.DumpSet) (*edge.DumpSet, error)) error
}

// Dump refreshes the snapshot held by store and returns the number of records
// written. Existing records survive unless a fresh record includes them.
func (r *Reconciler) Dump(ctx context.Context, store SnapshotStore) (int, error) {
	var written int

	err := store.Update(ctx, func(existing *edge.DumpSet) (*edge.DumpSet, error) {
		fresh, err := r.Snapshot(ctx, existing)
		if err != nil {
			return nil, err
		}

		written = fresh.Len()

		return fresh, nil
	})
	if err != nil {
		return 0, err
	}

	return written, nil
}

// Snapshot builds a fresh dump and merges existing into it. Legacy link
// records are folded into the existing side, so they only survive when no
// fresh record already covers them.
func (r *Reconciler) Snapshot(ctx context.Context, existing *edge.DumpSet) (*edge.DumpSet, error) {
	logger := logctx.LoggerFromContext(ctx)

	if existing == nil {
		existing = &edge.DumpSet{}
	}

	all, err := r.AllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var direct []edge.ProductVersion

	for _, pv := range all {
		if pv.Identity.IsWindowsDirect() {
			direct = append(direct, pv)
		}
	}

	records := make([]edge.DumpRecord, len(direct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflight)

	for i, pv := range direct {
		g.Go(func() error {
			version := pv.Version
			if !version.IsResolved() {
				v, err := r.oracle.ResolveLatest(gctx, pv.Identity)
				if err != nil {
					return err
				}

				version = v
			}

			links, err := r.directArtifacts(gctx, pv.Identity, version)
			if err != nil {
				return err
			}

			records[i] = edge.NewDumpRecord(edge.ProductVersion{Identity: pv.Identity, Version: version}, links)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fresh := &edge.DumpSet{}
	for _, rec := range records {
		fresh.Add(rec)
	}

	releases, err := r.releases(ctx)
	if err != nil {
		return nil, err
	}

	for _, rel := range releases {
		if len(rel.Artifacts) == 0 {
			continue
		}

		fresh.Add(edge.NewDumpRecord(rel.ProductVersion, edge.NewArtifactSet(rel.Artifacts...)))
	}

	urls, err := r.resolveLinks(ctx, r.legacy)
	if err != nil {
		return nil, err
	}

	for i, u := range urls {
		v, _ := edge.VersionFromURL(u)
		pv := edge.ProductVersion{Identity: r.legacy[i].Identity, Version: v}
		existing.Add(edge.NewDumpRecord(pv, edge.NewArtifactSet(edge.Artifact{FileName: edge.FileNameFromURL(u), URL: u})))
	}

	before := fresh.Len()
	fresh.Merge(existing)

	logger.Info("snapshot built", "fresh", before, "kept", fresh.Len()-before)

	return fresh, nil
}
