package resolver

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/italolelis/edge_downloader/internal/catalog"
	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/logctx"
	"golang.org/x/sync/errgroup"
)

// maxInflight bounds concurrent backend calls during a fan-out.
const maxInflight = 8

// Reconciler merges the catalog, the versioned file API and the legacy link
// table into product lists and artifact sets.
type Reconciler struct {
	backend Backend
	legacy  []catalog.LegacyLink
	oracle  *Oracle
	listed  *catalog.Cell[[]edge.ProductVersion]
	basic   *catalog.Cell[[]edge.ProductVersion]
}

func NewReconciler(backend Backend, legacy []catalog.LegacyLink) *Reconciler {
	r := &Reconciler{
		backend: backend,
		legacy:  legacy,
	}
	r.oracle = NewOracle(backend, r)
	r.listed = catalog.NewCell(r.buildListed)
	r.basic = catalog.NewCell(r.buildBasic)

	return r
}

// Oracle returns the version oracle sharing this reconciler's caches.
func (r *Reconciler) Oracle() *Oracle {
	return r.oracle
}

// ResolveArtifacts returns the minimal artifact set for pv. An unresolved
// version matches any version. Windows desktop identities are answered by the
// versioned file API when it has files; everything else comes from the legacy
// links and the catalog.
func (r *Reconciler) ResolveArtifacts(ctx context.Context, pv edge.ProductVersion) (*edge.ArtifactSet, error) {
	logger := logctx.LoggerFromContext(ctx).With("identity", pv.Identity.String())

	set := edge.NewArtifactSet()

	if pv.Identity.IsWindowsDirect() {
		query := pv.Identity
		if query.Product == edge.ProductEdgeWebView2 {
			query = query.WithProduct(edge.ProductEdge)
		}

		version := pv.Version
		if !version.IsResolved() {
			latest, err := r.oracle.ResolveLatest(ctx, query)
			if err != nil {
				return nil, err
			}

			version = latest
		}

		if version.IsResolved() {
			direct, err := r.directArtifacts(ctx, query, version)
			if err != nil {
				return nil, err
			}

			if direct.Len() > 0 {
				logger.Debug("resolved from versioned file api", "version", version.String(), "artifacts", direct.Len())

				return direct, nil
			}
		}
	}

	var links []catalog.LegacyLink

	for _, l := range r.legacy {
		if l.Identity.Equal(pv.Identity) {
			links = append(links, l)
		}
	}

	urls, err := r.resolveLinks(ctx, links)
	if err != nil {
		return nil, err
	}

	for _, u := range urls {
		v, _ := edge.VersionFromURL(u)
		if !pv.Version.IsResolved() || v == pv.Version {
			set.Add(edge.Artifact{FileName: edge.FileNameFromURL(u), URL: u})
		}
	}

	releases, err := r.releases(ctx)
	if err != nil {
		return nil, err
	}

	for _, rel := range releases {
		if !rel.Identity.Equal(pv.Identity) {
			continue
		}

		if pv.Version.IsResolved() && rel.Version != pv.Version {
			continue
		}

		for _, a := range rel.Artifacts {
			set.Add(a)
		}
	}

	set.Minimize()

	logger.Debug("resolved artifacts", "artifacts", set.Len())

	return set, nil
}

// CatalogProducts returns the products listed by the catalog. Enterprise
// releases are also listed as Edge. It is built once per Reconciler.
func (r *Reconciler) CatalogProducts(ctx context.Context) ([]edge.ProductVersion, error) {
	return r.listed.Get(ctx)
}

// BasicProducts returns the products observable from the catalog plus the
// default legacy links. It is built once per Reconciler.
func (r *Reconciler) BasicProducts(ctx context.Context) ([]edge.ProductVersion, error) {
	return r.basic.Get(ctx)
}

// AllProducts extends the basic list with every legacy link and a probed
// Windows Edge Canary entry per architecture. Each extra entry is added only
// when its identity is new and its version is known.
func (r *Reconciler) AllProducts(ctx context.Context) ([]edge.ProductVersion, error) {
	basic, err := r.BasicProducts(ctx)
	if err != nil {
		return nil, err
	}

	set := productSet(append([]edge.ProductVersion(nil), basic...))

	g, gctx := errgroup.WithContext(ctx)

	var legacy []edge.ProductVersion

	g.Go(func() error {
		var err error
		legacy, err = r.legacyVersions(gctx, r.legacy)

		return err
	})

	canaryArches := []edge.Arch{edge.ArchX64, edge.ArchX86, edge.ArchArm64}
	canary := make([]edge.ProductVersion, len(canaryArches))

	for i, arch := range canaryArches {
		g.Go(func() error {
			v, err := r.oracle.LatestCanary(gctx, arch)
			if err != nil {
				return fmt.Errorf("failed to probe canary for %s: %w", arch, err)
			}

			canary[i] = edge.ProductVersion{
				Identity: edge.NewIdentity(edge.ProductEdge, edge.ChannelCanary, edge.OSWindows, arch),
				Version:  v,
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, pv := range legacy {
		set.addIfAbsent(pv)
	}

	for _, pv := range canary {
		set.addIfAbsent(pv)
	}

	return set, nil
}

func (r *Reconciler) buildListed(ctx context.Context) ([]edge.ProductVersion, error) {
	releases, err := r.releases(ctx)
	if err != nil {
		return nil, err
	}

	var set productSet

	for _, rel := range releases {
		set.add(rel.ProductVersion)

		if rel.Identity.Product == edge.ProductEdgeEnterprise {
			set.add(edge.ProductVersion{Identity: rel.Identity.WithProduct(edge.ProductEdge), Version: rel.Version})
		}
	}

	return set, nil
}

func (r *Reconciler) buildBasic(ctx context.Context) ([]edge.ProductVersion, error) {
	listed, err := r.CatalogProducts(ctx)
	if err != nil {
		return nil, err
	}

	set := productSet(append([]edge.ProductVersion(nil), listed...))

	var basicLinks []catalog.LegacyLink

	for _, l := range r.legacy {
		if l.Basic {
			basicLinks = append(basicLinks, l)
		}
	}

	legacy, err := r.legacyVersions(ctx, basicLinks)
	if err != nil {
		return nil, err
	}

	for _, pv := range legacy {
		set.addIfAbsent(pv)
	}

	logctx.LoggerFromContext(ctx).Debug("basic products built", "products", len(set))

	return set, nil
}

func (r *Reconciler) releases(ctx context.Context) ([]catalog.Release, error) {
	products, err := r.backend.Products(ctx)
	if err != nil {
		return nil, err
	}

	return catalog.Releases(products)
}

// legacyVersions resolves each link to the version embedded in its target.
// Enterprise links are not followed and stay unresolved.
func (r *Reconciler) legacyVersions(ctx context.Context, links []catalog.LegacyLink) ([]edge.ProductVersion, error) {
	out := make([]edge.ProductVersion, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflight)

	for i, l := range links {
		out[i] = edge.ProductVersion{Identity: l.Identity, Version: edge.Unresolved}

		if l.Identity.Product == edge.ProductEdgeEnterprise {
			continue
		}

		g.Go(func() error {
			u, err := r.backend.ResolveFwlink(gctx, l.ID)
			if err != nil {
				return err
			}

			if v, ok := edge.VersionFromURL(u); ok {
				out[i].Version = v
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// resolveLinks follows every link, keeping link order.
func (r *Reconciler) resolveLinks(ctx context.Context, links []catalog.LegacyLink) ([]string, error) {
	urls := make([]string, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflight)

	for i, l := range links {
		g.Go(func() error {
			u, err := r.backend.ResolveFwlink(gctx, l.ID)
			if err != nil {
				return err
			}

			urls[i] = u

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return urls, nil
}

// directArtifacts asks the versioned file API for the files of id at version.
func (r *Reconciler) directArtifacts(ctx context.Context, id edge.Identity, version edge.Version) (*edge.ArtifactSet, error) {
	files, err := r.backend.GenerateDownloadInfo(ctx, id, version)
	if err != nil {
		return nil, err
	}

	set := edge.NewArtifactSet()

	for _, f := range files {
		a := edge.Artifact{FileName: f.FileID, URL: f.URL}

		if f.Hashes.Sha256 != "" {
			sum, err := base64.StdEncoding.DecodeString(f.Hashes.Sha256)
			if err != nil {
				return nil, &edge.ParseError{Field: "sha256", Value: f.Hashes.Sha256, Err: err}
			}

			a.Sha256 = sum
		}

		set.Add(a)
	}

	return set, nil
}
