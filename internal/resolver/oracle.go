package resolver

import (
	"context"
	"fmt"

	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/logctx"
)

// BasicLister yields the memoized product lists. CatalogProducts holds only
// what the catalog lists; BasicProducts adds the default legacy links.
type BasicLister interface {
	CatalogProducts(ctx context.Context) ([]edge.ProductVersion, error)
	BasicProducts(ctx context.Context) ([]edge.ProductVersion, error)
}

// Oracle resolves the latest version of an identity.
type Oracle struct {
	backend Backend
	basic   BasicLister
}

func NewOracle(backend Backend, basic BasicLister) *Oracle {
	return &Oracle{backend: backend, basic: basic}
}

// ResolveLatest returns the newest version known for id, or edge.Unresolved
// when no source knows it. The catalog listing is consulted first, so legacy
// links are only followed for identities it does not list. Windows Edge Canary
// missing from the catalog is probed.
func (o *Oracle) ResolveLatest(ctx context.Context, id edge.Identity) (edge.Version, error) {
	listed, err := o.basic.CatalogProducts(ctx)
	if err != nil {
		return edge.Unresolved, fmt.Errorf("failed to list catalog products: %w", err)
	}

	if v, ok := productSet(listed).latest(id); ok {
		return v, nil
	}

	if isWindowsCanary(id) {
		return o.LatestCanary(ctx, id.Arch)
	}

	basic, err := o.basic.BasicProducts(ctx)
	if err != nil {
		return edge.Unresolved, fmt.Errorf("failed to list basic products: %w", err)
	}

	if v, ok := productSet(basic).latest(id); ok {
		return v, nil
	}

	updates, err := o.backend.BatchUpdates(ctx, id)
	if err != nil {
		return edge.Unresolved, err
	}

	if len(updates) > 0 {
		return updates[0].ContentID.Version, nil
	}

	return edge.Unresolved, nil
}

// LatestCanary probes forward from the best known Edge Canary build until the
// versioned file API stops answering, then checks one major version ahead in
// case the build counter rolled over into a new major.
func (o *Oracle) LatestCanary(ctx context.Context, arch edge.Arch) (edge.Version, error) {
	logger := logctx.LoggerFromContext(ctx).With("arch", arch.String())

	id := edge.NewIdentity(edge.ProductEdge, edge.ChannelCanary, edge.OSWindows, arch)

	start, err := o.canaryStart(ctx, arch)
	if err != nil {
		return edge.Unresolved, err
	}

	if !start.IsResolved() {
		return edge.Unresolved, &edge.ResolutionError{Identity: id, Reason: "no canary build known to start probing from"}
	}

	next := start.WithBuild(start.Build() + 1)

	next, err = o.scan(ctx, id, next)
	if err != nil {
		return edge.Unresolved, err
	}

	candidate := next.WithBuild(next.Build() - 1)

	rollover := next.WithMajor(next.Major() + 1)

	end, err := o.scan(ctx, id, rollover)
	if err != nil {
		return edge.Unresolved, err
	}

	if end == rollover {
		logger.Debug("canary probe finished", "start", start.String(), "latest", candidate.String())

		return candidate, nil
	}

	latest := end.WithBuild(end.Build() - 1)
	logger.Debug("canary probe crossed a major version", "start", start.String(), "latest", latest.String())

	return latest, nil
}

// scan returns the first version from v upwards, by build, that does not exist.
func (o *Oracle) scan(ctx context.Context, id edge.Identity, v edge.Version) (edge.Version, error) {
	for {
		ok, err := o.backend.VersionExists(ctx, id, v)
		if err != nil {
			return edge.Unresolved, err
		}

		if !ok {
			return v, nil
		}

		v = v.WithBuild(v.Build() + 1)
	}
}

// canaryStart picks the highest Edge Canary build in the basic list, preferring
// Windows builds of the requested arch, and falls back to BatchUpdates.
func (o *Oracle) canaryStart(ctx context.Context, arch edge.Arch) (edge.Version, error) {
	basic, err := o.basic.BasicProducts(ctx)
	if err != nil {
		return edge.Unresolved, fmt.Errorf("failed to list basic products: %w", err)
	}

	sameArch, anyArch := edge.Unresolved, edge.Unresolved

	for _, pv := range basic {
		if pv.Identity.Product != edge.ProductEdge || pv.Identity.Channel == nil || *pv.Identity.Channel != edge.ChannelCanary {
			continue
		}

		if pv.Identity.OS == edge.OSWindows && pv.Identity.Arch == arch && pv.Version.Compare(sameArch) > 0 {
			sameArch = pv.Version
		}

		if pv.Version.Compare(anyArch) > 0 {
			anyArch = pv.Version
		}
	}

	if sameArch.IsResolved() {
		return sameArch, nil
	}

	if anyArch.IsResolved() {
		return anyArch, nil
	}

	updates, err := o.backend.BatchUpdates(ctx, edge.NewIdentity(edge.ProductEdge, edge.ChannelCanary, edge.OSWindows, edge.ArchX64))
	if err != nil {
		return edge.Unresolved, err
	}

	if len(updates) > 0 {
		return updates[0].ContentID.Version, nil
	}

	return edge.Unresolved, nil
}

func isWindowsCanary(id edge.Identity) bool {
	return id.Product == edge.ProductEdge && id.OS == edge.OSWindows &&
		id.Channel != nil && *id.Channel == edge.ChannelCanary
}
