package resolver

import (
	"context"
	"slices"

	"github.com/italolelis/edge_downloader/internal/catalog"
	"github.com/italolelis/edge_downloader/internal/edge"
)

// Backend is the set of remote calls the resolver depends on. It is
// implemented by catalog.Client and catalog.InstrumentedClient.
type Backend interface {
	Products(ctx context.Context) ([]catalog.ProductInfo, error)
	GenerateDownloadInfo(ctx context.Context, id edge.Identity, version edge.Version) ([]catalog.DownloadInfo, error)
	BatchUpdates(ctx context.Context, ids ...edge.Identity) ([]catalog.UpdateInfo, error)
	VersionExists(ctx context.Context, id edge.Identity, version edge.Version) (bool, error)
	ResolveFwlink(ctx context.Context, linkID int) (string, error)
}

var (
	_ Backend = (*catalog.Client)(nil)
	_ Backend = (*catalog.InstrumentedClient)(nil)
)

// productSet is a sorted set of product versions.
type productSet []edge.ProductVersion

func (s *productSet) add(pv edge.ProductVersion) {
	i, found := slices.BinarySearchFunc(*s, pv, edge.ProductVersion.Compare)
	if !found {
		*s = slices.Insert(*s, i, pv)
	}
}

func (s productSet) hasIdentity(id edge.Identity) bool {
	return slices.ContainsFunc(s, func(pv edge.ProductVersion) bool {
		return pv.Identity.Equal(id)
	})
}

// addIfAbsent adds pv when its identity is new and its version is known.
func (s *productSet) addIfAbsent(pv edge.ProductVersion) {
	if pv.Version.IsResolved() && !s.hasIdentity(pv.Identity) {
		s.add(pv)
	}
}

// latest returns the highest version recorded for id.
func (s productSet) latest(id edge.Identity) (edge.Version, bool) {
	best, found := edge.Unresolved, false

	for _, pv := range s {
		if pv.Identity.Equal(id) && (!found || pv.Version.Compare(best) > 0) {
			best, found = pv.Version, true
		}
	}

	return best, found
}
