package catalog

import (
	"encoding/hex"
	"strings"

	"github.com/italolelis/edge_downloader/internal/edge"
)

// Release is a catalog release mapped onto the domain model.
type Release struct {
	edge.ProductVersion
	Artifacts []edge.Artifact
}

// Identity derives the identity of a release listed under the raw product
// name. The catalog lists channels as products, so a name that is not a
// product must be a channel, and the product is inferred from the release.
func Identity(rawProduct string, r ReleaseInfo) (edge.Identity, error) {
	var id edge.Identity

	product, ok := productLookup.find(rawProduct)
	if !ok {
		channel, err := channelLookup.parse(rawProduct)
		if err != nil {
			return id, &edge.ParseError{Field: "product", Value: rawProduct, Err: err}
		}

		product = edge.ProductEdge
		if len(r.Artifacts) > 0 && r.Platform == "Windows" {
			product = edge.ProductEdgeEnterprise
		}

		id.Channel = &channel
	}

	id.Product = product
	if product == edge.ProductEdgeUpdate {
		id = id.WithChannel(edge.ChannelStable)
	}

	os, err := osLookup.parse(r.Platform)
	if err != nil {
		return id, err
	}

	arch, err := archLookup.parse(r.Architecture)
	if err != nil {
		return id, err
	}

	id.OS, id.Arch = os, arch

	return id, nil
}

// ArtifactFromCatalog converts a catalog artifact. The digest is kept only
// when it is declared as SHA256.
func ArtifactFromCatalog(a ArtifactInfo) (edge.Artifact, error) {
	out := edge.Artifact{
		FileName: edge.FileNameFromURL(a.Location),
		URL:      a.Location,
	}

	if !strings.EqualFold(a.HashAlgorithm, "SHA256") {
		return out, nil
	}

	sum, err := hex.DecodeString(a.Hash)
	if err != nil {
		return out, &edge.ParseError{Field: "hash", Value: a.Hash, Err: err}
	}

	out.Sha256 = sum

	return out, nil
}

// Releases flattens the catalog into normalized releases in catalog order.
func Releases(products []ProductInfo) ([]Release, error) {
	var out []Release

	for _, p := range products {
		for _, r := range p.Releases {
			id, err := Identity(p.Product, r)
			if err != nil {
				return nil, err
			}

			rel := Release{ProductVersion: edge.ProductVersion{Identity: id, Version: r.ProductVersion}}

			for _, a := range r.Artifacts {
				artifact, err := ArtifactFromCatalog(a)
				if err != nil {
					return nil, err
				}

				rel.Artifacts = append(rel.Artifacts, artifact)
			}

			out = append(out, rel)
		}
	}

	return out, nil
}
