package resolver_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/italolelis/edge_downloader/internal/catalog"
	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu sync.Mutex

	products []catalog.ProductInfo
	// files keyed by identity string and version
	files    map[string][]catalog.DownloadInfo
	existing map[string]bool
	updates  map[string]edge.Version
	fwlinks  map[int]string

	existsCalls int
	filesCalls  int
	err         error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		files:    map[string][]catalog.DownloadInfo{},
		existing: map[string]bool{},
		updates:  map[string]edge.Version{},
		fwlinks:  map[int]string{},
	}
}

func key(id edge.Identity, v edge.Version) string {
	return id.String() + "@" + v.String()
}

func (f *fakeBackend) Products(context.Context) ([]catalog.ProductInfo, error) {
	return f.products, f.err
}

func (f *fakeBackend) GenerateDownloadInfo(_ context.Context, id edge.Identity, v edge.Version) ([]catalog.DownloadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.filesCalls++

	return f.files[key(id, v)], nil
}

func (f *fakeBackend) BatchUpdates(_ context.Context, ids ...edge.Identity) ([]catalog.UpdateInfo, error) {
	var out []catalog.UpdateInfo

	for _, id := range ids {
		if v, ok := f.updates[id.String()]; ok {
			var u catalog.UpdateInfo
			u.ContentID.Name = id.String()
			u.ContentID.Version = v
			out = append(out, u)
		}
	}

	return out, nil
}

func (f *fakeBackend) VersionExists(_ context.Context, id edge.Identity, v edge.Version) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.existsCalls++

	return f.existing[key(id, v)], nil
}

func (f *fakeBackend) ResolveFwlink(_ context.Context, id int) (string, error) {
	u, ok := f.fwlinks[id]
	if !ok {
		return "", &edge.TransportError{Operation: "fwlink_redirect", StatusCode: 404}
	}

	return u, nil
}

func (f *fakeBackend) addBuilds(id edge.Identity, major, from, to int) {
	for b := from; b <= to; b++ {
		f.existing[key(id, edge.Version{major, 0, b, 0})] = true
	}
}

func file(name string, sum byte) catalog.DownloadInfo {
	d := catalog.DownloadInfo{FileID: name, URL: "https://dl.example/" + name}
	d.Hashes.Sha256 = base64.StdEncoding.EncodeToString([]byte(strings.Repeat(string(rune(sum)), 32)))

	return d
}

var (
	canaryX64   = edge.NewIdentity(edge.ProductEdge, edge.ChannelCanary, edge.OSWindows, edge.ArchX64)
	canaryX86   = edge.NewIdentity(edge.ProductEdge, edge.ChannelCanary, edge.OSWindows, edge.ArchX86)
	canaryArm64 = edge.NewIdentity(edge.ProductEdge, edge.ChannelCanary, edge.OSWindows, edge.ArchArm64)
	stableWin   = edge.NewIdentity(edge.ProductEdge, edge.ChannelStable, edge.OSWindows, edge.ArchX64)
	stableMac   = edge.NewIdentity(edge.ProductEdge, edge.ChannelStable, edge.OSMacOS, edge.ArchUniversal)
	stableLinux = edge.NewIdentity(edge.ProductEdge, edge.ChannelStable, edge.OSLinux, edge.ArchX64)
)

func canaryCatalog(v string) []catalog.ProductInfo {
	version, _ := edge.ParseVersion(v)

	return []catalog.ProductInfo{{
		Product: "Canary",
		Releases: []catalog.ReleaseInfo{
			{Platform: "Windows", Architecture: "x64", ProductVersion: version},
		},
	}}
}

func TestOracle_LatestCanary(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeBackend)
		want  edge.Version
	}{
		{
			name: "probes builds forward",
			setup: func(f *fakeBackend) {
				f.addBuilds(canaryX64, 10, 100, 104)
			},
			want: edge.Version{10, 0, 104, 0},
		},
		{
			name: "follows a major rollover",
			setup: func(f *fakeBackend) {
				f.addBuilds(canaryX64, 10, 100, 102)
				f.addBuilds(canaryX64, 11, 103, 104)
			},
			want: edge.Version{11, 0, 104, 0},
		},
		{
			name:  "start is latest when nothing newer exists",
			setup: func(*fakeBackend) {},
			want:  edge.Version{10, 0, 100, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeBackend()
			f.products = canaryCatalog("10.0.100.0")
			tt.setup(f)

			r := resolver.NewReconciler(f, nil)

			got, err := r.Oracle().LatestCanary(context.Background(), edge.ArchX64)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOracle_LatestCanaryFallsBackToBatchUpdates(t *testing.T) {
	f := newFakeBackend()
	f.updates[canaryX64.String()] = edge.Version{20, 0, 5, 0}
	f.addBuilds(canaryArm64, 20, 5, 7)

	r := resolver.NewReconciler(f, nil)

	got, err := r.Oracle().LatestCanary(context.Background(), edge.ArchArm64)
	require.NoError(t, err)
	assert.Equal(t, edge.Version{20, 0, 7, 0}, got)
}

func TestOracle_LatestCanaryWithoutStart(t *testing.T) {
	r := resolver.NewReconciler(newFakeBackend(), nil)

	_, err := r.Oracle().LatestCanary(context.Background(), edge.ArchX64)

	var rerr *edge.ResolutionError
	assert.ErrorAs(t, err, &rerr)
}

func TestOracle_ResolveLatest(t *testing.T) {
	f := newFakeBackend()
	f.products = []catalog.ProductInfo{{
		Product: "Stable",
		Releases: []catalog.ReleaseInfo{
			{Platform: "MacOS", Architecture: "universal", ProductVersion: edge.Version{130, 0, 1, 0}},
			{Platform: "MacOS", Architecture: "universal", ProductVersion: edge.Version{131, 0, 2, 0}},
		},
	}}
	f.updates[stableLinux.String()] = edge.Version{129, 0, 3, 0}

	oracle := resolver.NewReconciler(f, nil).Oracle()

	v, err := oracle.ResolveLatest(context.Background(), stableMac)
	require.NoError(t, err)
	assert.Equal(t, edge.Version{131, 0, 2, 0}, v, "highest matching catalog version")

	v, err = oracle.ResolveLatest(context.Background(), stableLinux)
	require.NoError(t, err)
	assert.Equal(t, edge.Version{129, 0, 3, 0}, v)

	v, err = oracle.ResolveLatest(context.Background(), edge.NewIdentity(edge.ProductEdge, edge.ChannelDev, edge.OSAndroid, edge.ArchArm))
	require.NoError(t, err)
	assert.False(t, v.IsResolved())
}

func TestOracle_ResolveLatestWindowsCanary(t *testing.T) {
	tests := []struct {
		name       string
		id         edge.Identity
		want       edge.Version
		wantProbes bool
	}{
		{
			name: "listed in the catalog",
			id:   canaryX64,
			want: edge.Version{10, 0, 100, 0},
		},
		{
			name:       "missing from the catalog is probed",
			id:         canaryArm64,
			want:       edge.Version{10, 0, 103, 0},
			wantProbes: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeBackend()
			f.products = canaryCatalog("10.0.100.0")
			f.addBuilds(canaryX64, 10, 101, 104)
			f.addBuilds(canaryArm64, 10, 101, 103)

			got, err := resolver.NewReconciler(f, nil).Oracle().ResolveLatest(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			if tt.wantProbes {
				assert.Positive(t, f.existsCalls)
			} else {
				assert.Zero(t, f.existsCalls)
			}
		})
	}
}

func TestReconciler_ResolveArtifactsIgnoresBrokenLegacyLinks(t *testing.T) {
	f := newFakeBackend()
	v := edge.Version{130, 0, 2849, 56}
	f.products = []catalog.ProductInfo{{
		Product: "Stable",
		Releases: []catalog.ReleaseInfo{{
			Platform: "Windows", Architecture: "x64", ProductVersion: v,
			Artifacts: []catalog.ArtifactInfo{{Location: "https://x/MicrosoftEdgeEnterpriseX64.msi"}},
		}},
	}}
	f.files[key(stableWin, v)] = []catalog.DownloadInfo{file("MicrosoftEdge_X64_130.0.2849.56.exe", 'a')}

	// no fwlink is registered, so following it fails
	legacy := []catalog.LegacyLink{{ID: 50, Identity: stableLinux, FileType: edge.FileTypeDeb, Basic: true}}

	r := resolver.NewReconciler(f, legacy)

	set, err := r.ResolveArtifacts(context.Background(), edge.ProductVersion{Identity: stableWin})
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "MicrosoftEdge_X64_130.0.2849.56.exe", set.Items()[0].FileName)

	_, err = r.BasicProducts(context.Background())

	var terr *edge.TransportError
	assert.ErrorAs(t, err, &terr, "the basic list still needs every default link")
}

func TestReconciler_ResolveArtifactsWindowsDirect(t *testing.T) {
	f := newFakeBackend()
	v := edge.Version{130, 0, 2849, 56}
	f.files[key(stableWin, v)] = []catalog.DownloadInfo{
		file("MicrosoftEdge_X64_130.0.2849.56.exe", 'a'),
		file("MicrosoftEdge_X64_130.0.2849.56_129.0.2792.89.exe", 'b'),
	}

	r := resolver.NewReconciler(f, nil)

	set, err := r.ResolveArtifacts(context.Background(), edge.ProductVersion{Identity: stableWin, Version: v})
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	for _, a := range set.Items() {
		assert.Len(t, a.Sha256, 32)
	}

	webview := edge.NewIdentity(edge.ProductEdgeWebView2, edge.ChannelStable, edge.OSWindows, edge.ArchX64)

	set, err = r.ResolveArtifacts(context.Background(), edge.ProductVersion{Identity: webview, Version: v})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len(), "webview2 shares the edge installer files")
}

func TestReconciler_ResolveArtifactsMergesSources(t *testing.T) {
	f := newFakeBackend()
	v := edge.Version{131, 0, 2903, 51}
	pkg := "https://msedge.sf.dl.delivery.mp.microsoft.com/filestreamingservice/files/abc/MicrosoftEdge-131.0.2903.51.pkg"
	f.fwlinks[1] = pkg
	f.fwlinks[2] = "https://msedge.sf.dl.delivery.mp.microsoft.com/filestreamingservice/files/def/MicrosoftEdge-130.0.1.0.pkg"
	f.products = []catalog.ProductInfo{{
		Product: "Stable",
		Releases: []catalog.ReleaseInfo{{
			Platform: "MacOS", Architecture: "universal", ProductVersion: v,
			Artifacts: []catalog.ArtifactInfo{{
				Location:      pkg,
				Hash:          strings.Repeat("ab", 32),
				HashAlgorithm: "SHA256",
			}},
		}},
	}}

	legacy := []catalog.LegacyLink{
		{ID: 1, Identity: stableMac, FileType: edge.FileTypePkg},
		{ID: 2, Identity: stableMac, FileType: edge.FileTypePkg},
	}

	r := resolver.NewReconciler(f, legacy)

	set, err := r.ResolveArtifacts(context.Background(), edge.ProductVersion{Identity: stableMac, Version: v})
	require.NoError(t, err)
	require.Equal(t, 1, set.Len(), "the digest-bearing catalog artifact subsumes the bare legacy one")
	assert.NotNil(t, set.Items()[0].Sha256)
	assert.Equal(t, pkg, set.Items()[0].URL)

	set, err = r.ResolveArtifacts(context.Background(), edge.ProductVersion{Identity: stableMac})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len(), "an unresolved version matches any version")
}

func TestReconciler_Products(t *testing.T) {
	f := newFakeBackend()
	f.products = []catalog.ProductInfo{{
		Product: "Stable",
		Releases: []catalog.ReleaseInfo{{
			Platform: "Windows", Architecture: "x64", ProductVersion: edge.Version{130, 0, 2849, 56},
			Artifacts: []catalog.ArtifactInfo{{Location: "https://x/MicrosoftEdgeEnterpriseX64.msi"}},
		}},
	}, {
		Product: "Canary",
		Releases: []catalog.ReleaseInfo{{
			Platform: "MacOS", Architecture: "universal", ProductVersion: edge.Version{132, 0, 10, 0},
		}},
	}}

	f.fwlinks[10] = "https://x/files/MicrosoftEdge_132.0.20.0_amd64.deb"
	f.fwlinks[11] = "https://x/files/microsoft-edge-stable-132.0.20.0-1.x86_64.rpm"
	f.fwlinks[12] = "https://x/files/no-version-here.pkg"

	linuxRpm := edge.NewIdentity(edge.ProductEdge, edge.ChannelStable, edge.OSLinux, edge.ArchX64)
	legacy := []catalog.LegacyLink{
		{ID: 10, Identity: stableLinux, FileType: edge.FileTypeDeb, Basic: true},
		{ID: 11, Identity: linuxRpm, FileType: edge.FileTypeRpm},
		{ID: 12, Identity: edge.NewIdentity(edge.ProductEdge, edge.ChannelDev, edge.OSMacOS, edge.ArchUniversal), FileType: edge.FileTypePkg, Basic: true},
		{ID: 13, Identity: edge.NewIdentity(edge.ProductEdgeEnterprise, edge.ChannelStable, edge.OSWindows, edge.ArchArm64), FileType: edge.FileTypeMsi, Basic: true},
	}

	for _, id := range []edge.Identity{canaryX64, canaryX86, canaryArm64} {
		f.addBuilds(id, 132, 11, 12)
	}

	r := resolver.NewReconciler(f, legacy)

	basic, err := r.BasicProducts(context.Background())
	require.NoError(t, err)

	ids := func(pvs []edge.ProductVersion) []string {
		var out []string
		for _, pv := range pvs {
			out = append(out, pv.Identity.String()+"@"+pv.Version.String())
		}

		return out
	}

	assert.ElementsMatch(t, []string{
		"msedgeenterprise-stable-win-x64@130.0.2849.56",
		"msedge-stable-win-x64@130.0.2849.56",
		"msedge-canary-macos-universal@132.0.10.0",
		"msedge-stable-linux-x64@132.0.20.0",
	}, ids(basic))

	all, err := r.AllProducts(context.Background())
	require.NoError(t, err)
	assert.Subset(t, ids(all), ids(basic))
	assert.Contains(t, ids(all), "msedge-canary-win-x64@132.0.12.0")
	assert.Contains(t, ids(all), "msedge-canary-win-x86@132.0.12.0")
	assert.Contains(t, ids(all), "msedge-canary-win-arm64@132.0.12.0")
	assert.Len(t, all, len(basic)+3, "rpm shares the deb identity, unversioned links are skipped")
}

func TestReconciler_AllProductsFailsWholly(t *testing.T) {
	f := newFakeBackend()
	f.products = canaryCatalog("10.0.1.0")

	legacy := []catalog.LegacyLink{{ID: 99, Identity: stableLinux, FileType: edge.FileTypeDeb}}

	r := resolver.NewReconciler(f, legacy)

	_, err := r.AllProducts(context.Background())

	var terr *edge.TransportError
	assert.ErrorAs(t, err, &terr)
}

func TestReconciler_BasicProductsIsMemoized(t *testing.T) {
	f := newFakeBackend()
	f.err = errors.New("catalog down")

	r := resolver.NewReconciler(f, nil)

	_, err := r.BasicProducts(context.Background())
	require.Error(t, err)

	f.err = nil
	f.products = canaryCatalog("10.0.1.0")

	first, err := r.BasicProducts(context.Background())
	require.NoError(t, err)

	f.products = nil

	second, err := r.BasicProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type memoryStore struct {
	set *edge.DumpSet
}

func (m *memoryStore) Update(_ context.Context, fn func(*edge.DumpSet) (*edge.DumpSet, error)) error {
	next, err := fn(m.set)
	if err != nil {
		return err
	}

	m.set = next

	return nil
}

func TestReconciler_Dump(t *testing.T) {
	f := newFakeBackend()
	v := edge.Version{130, 0, 2849, 56}
	f.products = []catalog.ProductInfo{{
		Product: "Stable",
		Releases: []catalog.ReleaseInfo{{
			Platform: "MacOS", Architecture: "universal", ProductVersion: v,
			Artifacts: []catalog.ArtifactInfo{{Location: "https://x/MicrosoftEdge-130.0.2849.56.pkg", Hash: strings.Repeat("cd", 32), HashAlgorithm: "SHA256"}},
		}},
	}}
	f.files[key(stableWin, v)] = []catalog.DownloadInfo{file("MicrosoftEdge_X64_130.0.2849.56.exe", 'a')}
	f.fwlinks[5] = "https://x/MicrosoftEdge-130.0.2849.56.pkg"
	f.fwlinks[6] = "https://x/MicrosoftEdge_132.0.1.0_amd64.deb"

	f.updates[canaryX64.String()] = edge.Version{132, 0, 1, 0}
	f.products = append(f.products, catalog.ProductInfo{
		Product: "Stable",
		Releases: []catalog.ReleaseInfo{{
			Platform: "Windows", Architecture: "x64", ProductVersion: v,
		}},
	})

	legacy := []catalog.LegacyLink{
		{ID: 5, Identity: stableMac, FileType: edge.FileTypePkg},
		{ID: 6, Identity: stableLinux, FileType: edge.FileTypeDeb},
	}

	old := edge.NewDumpRecord(
		edge.ProductVersion{Identity: stableLinux, Version: edge.Version{120, 0, 1, 0}},
		edge.NewArtifactSet(edge.Artifact{FileName: "old.deb", URL: "https://x/old.deb"}),
	)
	store := &memoryStore{set: &edge.DumpSet{}}
	store.set.Add(old)

	r := resolver.NewReconciler(f, legacy)

	n, err := r.Dump(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, store.set.Len(), n)

	records := store.set.Records()

	var haveOld, haveWin, haveMacBare, haveDeb bool

	for _, rec := range records {
		switch {
		case rec.Identity.Equal(old.Identity) && rec.Version == old.Version:
			haveOld = true
		case rec.Identity.Equal(stableWin) && rec.Version == v:
			haveWin = rec.Links.Len() == 1
		case rec.Identity.Equal(stableMac) && rec.Links.Len() == 1 && rec.Links.Items()[0].Sha256 == nil:
			haveMacBare = true
		case rec.Identity.Equal(stableLinux) && rec.Version == (edge.Version{132, 0, 1, 0}):
			haveDeb = true
		}
	}

	assert.True(t, haveOld, "records of the previous snapshot are kept")
	assert.True(t, haveWin)
	assert.False(t, haveMacBare, "the catalog record with digests supersedes the bare legacy record")
	assert.True(t, haveDeb)
}
