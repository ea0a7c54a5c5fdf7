package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"130.0.2849.56", Version{130, 0, 2849, 56}, false},
		{" 1.2.3.4 ", Version{1, 2, 3, 4}, false},
		{"0.0.0.0", Unresolved, false},
		{"1.2.3", Unresolved, true},
		{"1.2.3.x", Unresolved, true},
		{"1.2.3.-4", Unresolved, true},
		{"+5.0.0.0", Unresolved, true},
		{"1.2.3.+4", Unresolved, true},
		{"1..3.4", Unresolved, true},
		{"1.2.3.4 5", Unresolved, true},
		{"99999999999999999999.0.0.0", Unresolved, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if tt.wantErr {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "version", perr.Field)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionFromURL(t *testing.T) {
	v, ok := VersionFromURL("https://msedge.sf.dl.delivery.mp.microsoft.com/filestreamingservice/files/abc/MicrosoftEdge-131.0.2903.51.pkg")
	assert.True(t, ok)
	assert.Equal(t, Version{131, 0, 2903, 51}, v)

	_, ok = VersionFromURL("https://example.test/latest/MicrosoftEdge.apk")
	assert.False(t, ok)
}

func TestVersion_Compare(t *testing.T) {
	assert.Negative(t, Version{10, 0, 100, 0}.Compare(Version{10, 0, 101, 0}))
	assert.Negative(t, Version{10, 9, 999, 9}.Compare(Version{11, 0, 0, 0}))
	assert.Positive(t, Version{1, 0, 0, 1}.Compare(Version{1, 0, 0, 0}))
	assert.Zero(t, Version{1, 2, 3, 4}.Compare(Version{1, 2, 3, 4}))
	assert.False(t, Unresolved.IsResolved())
	assert.True(t, Version{0, 0, 0, 1}.IsResolved())
}

func TestVersion_Text(t *testing.T) {
	v := Version{140, 0, 3436, 0}

	b, err := v.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "140.0.3436.0", string(b))

	var back Version
	require.NoError(t, back.UnmarshalText(b))
	assert.Equal(t, v, back)
	assert.Equal(t, Version{140, 0, 3437, 0}, v.WithBuild(3437))
	assert.Equal(t, Version{141, 0, 3436, 0}, v.WithMajor(141))
}
