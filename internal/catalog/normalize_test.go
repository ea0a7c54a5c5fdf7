package catalog

import (
	"testing"

	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	withArtifact := []ArtifactInfo{{Location: "https://x/a.msi"}}

	tests := []struct {
		name    string
		product string
		release ReleaseInfo
		want    edge.Identity
		wantErr string
	}{
		{
			name:    "channel name on windows with artifacts is enterprise",
			product: "Stable",
			release: ReleaseInfo{Platform: "Windows", Architecture: "x64", Artifacts: withArtifact},
			want:    edge.NewIdentity(edge.ProductEdgeEnterprise, edge.ChannelStable, edge.OSWindows, edge.ArchX64),
		},
		{
			name:    "channel name without artifacts is edge",
			product: "Beta",
			release: ReleaseInfo{Platform: "Windows", Architecture: "arm64"},
			want:    edge.NewIdentity(edge.ProductEdge, edge.ChannelBeta, edge.OSWindows, edge.ArchArm64),
		},
		{
			name:    "channel name elsewhere is edge",
			product: "Dev",
			release: ReleaseInfo{Platform: "Linux", Architecture: "x64", Artifacts: withArtifact},
			want:    edge.NewIdentity(edge.ProductEdge, edge.ChannelDev, edge.OSLinux, edge.ArchX64),
		},
		{
			name:    "edge update is always stable",
			product: "EdgeUpdate",
			release: ReleaseInfo{Platform: "Windows", Architecture: "x86"},
			want:    edge.NewIdentity(edge.ProductEdgeUpdate, edge.ChannelStable, edge.OSWindows, edge.ArchX86),
		},
		{
			name:    "product without channel",
			product: "EdgeWebView2",
			release: ReleaseInfo{Platform: "Windows", Architecture: "x64"},
			want:    edge.Identity{Product: edge.ProductEdgeWebView2, OS: edge.OSWindows, Arch: edge.ArchX64},
		},
		{
			name:    "unknown product",
			product: "Policy",
			release: ReleaseInfo{Platform: "Windows", Architecture: "x64"},
			wantErr: "product",
		},
		{
			name:    "unknown os",
			product: "Stable",
			release: ReleaseInfo{Platform: "Solaris", Architecture: "x64"},
			wantErr: "os",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Identity(tt.product, tt.release)
			if tt.wantErr != "" {
				var perr *edge.ParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.wantErr, perr.Field)

				return
			}

			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestArtifactFromCatalog(t *testing.T) {
	a, err := ArtifactFromCatalog(ArtifactInfo{
		Location:      "https://msedge.sf.dl.delivery.mp.microsoft.com/filestreamingservice/files/1/MicrosoftEdgeEnterpriseX64.msi",
		Hash:          "DEAD",
		HashAlgorithm: "SHA256",
	})
	require.NoError(t, err)
	assert.Equal(t, "MicrosoftEdgeEnterpriseX64.msi", a.FileName)
	assert.Equal(t, []byte{0xde, 0xad}, a.Sha256)

	a, err = ArtifactFromCatalog(ArtifactInfo{Location: "https://x/y.pkg", Hash: "abc", HashAlgorithm: "SHA1"})
	require.NoError(t, err)
	assert.Nil(t, a.Sha256)

	_, err = ArtifactFromCatalog(ArtifactInfo{Location: "https://x/y.pkg", Hash: "zz", HashAlgorithm: "SHA256"})
	assert.Error(t, err)
}

func TestReleases(t *testing.T) {
	products := []ProductInfo{
		{Product: "Stable", Releases: []ReleaseInfo{
			{Platform: "Windows", Architecture: "x64", ProductVersion: edge.Version{130, 0, 2849, 56},
				Artifacts: []ArtifactInfo{{Location: "https://x/MicrosoftEdgeEnterpriseX64.msi"}}},
			{Platform: "MacOS", Architecture: "universal", ProductVersion: edge.Version{130, 0, 2849, 56}},
		}},
	}

	releases, err := Releases(products)
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, edge.ProductEdgeEnterprise, releases[0].Identity.Product)
	assert.Len(t, releases[0].Artifacts, 1)
	assert.Equal(t, edge.OSMacOS, releases[1].Identity.OS)
}

func TestLookup(t *testing.T) {
	v, ok := archLookup.find("ARM64")
	assert.True(t, ok)
	assert.Equal(t, edge.ArchArm64, v)

	v, ok = archLookup.find("linux-arm64-build")
	assert.True(t, ok, "longest contained name wins")
	assert.Equal(t, edge.ArchArm64, v)

	_, ok = archLookup.find("sparc")
	assert.False(t, ok)

	ft, err := fileTypeLookup.parse("msix")
	require.NoError(t, err)
	assert.Equal(t, edge.FileTypeMsix, ft)
}
