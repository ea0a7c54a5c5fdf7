package edge

import (
	"bytes"
	"encoding/json"
	"path"
	"slices"
	"strings"
)

// Artifact is one downloadable file. Sha256 is nil when the source does not
// publish a digest.
type Artifact struct {
	FileName string `json:"FileName"`
	URL      string `json:"Url"`
	Sha256   []byte `json:"Sha256"`
}

// FileNameFromURL returns the last path segment of a download URL.
func FileNameFromURL(u string) string {
	return u[strings.LastIndex(u, "/")+1:]
}

// FileType reports the file type from the extension, false when it is not
// one of the known types.
func (a Artifact) FileType() (FileType, bool) {
	ext := strings.TrimPrefix(path.Ext(a.FileName), ".")
	if ext == "" {
		return 0, false
	}

	ft, err := ParseFileType(ext)
	if err != nil {
		return 0, false
	}

	return ft, true
}

// Equal requires the same name and URL, and either no digest on both sides or
// the same digest.
func (a Artifact) Equal(other Artifact) bool {
	if a.FileName != other.FileName || a.URL != other.URL {
		return false
	}

	if a.Sha256 == nil || other.Sha256 == nil {
		return a.Sha256 == nil && other.Sha256 == nil
	}

	return bytes.Equal(a.Sha256, other.Sha256)
}

// Includes reports whether a describes other at least as completely: same name
// and URL, and other either has no digest or carries the same one.
func (a Artifact) Includes(other Artifact) bool {
	if a.FileName != other.FileName || a.URL != other.URL {
		return false
	}

	return other.Sha256 == nil || (a.Sha256 != nil && bytes.Equal(a.Sha256, other.Sha256))
}

// Compare orders by file name, URL, then digest. A missing digest sorts first.
func (a Artifact) Compare(other Artifact) int {
	if c := strings.Compare(a.FileName, other.FileName); c != 0 {
		return c
	}

	if c := strings.Compare(a.URL, other.URL); c != 0 {
		return c
	}

	switch {
	case a.Sha256 == nil && other.Sha256 == nil:
		return 0
	case a.Sha256 == nil:
		return -1
	case other.Sha256 == nil:
		return 1
	}

	return bytes.Compare(a.Sha256, other.Sha256)
}

// ArtifactSet is a sorted, duplicate free collection of artifacts.
type ArtifactSet struct {
	items []Artifact
}

// NewArtifactSet builds a set from the given artifacts.
func NewArtifactSet(artifacts ...Artifact) *ArtifactSet {
	s := &ArtifactSet{}
	for _, a := range artifacts {
		s.Add(a)
	}

	return s
}

// Add inserts a keeping the set ordered. It reports false if an equal
// artifact was already present.
func (s *ArtifactSet) Add(a Artifact) bool {
	i, found := slices.BinarySearchFunc(s.items, a, Artifact.Compare)
	if found {
		return false
	}

	s.items = slices.Insert(s.items, i, a)

	return true
}

// Len returns the number of artifacts.
func (s *ArtifactSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.items)
}

// Items returns the artifacts in order.
func (s *ArtifactSet) Items() []Artifact {
	if s == nil {
		return nil
	}

	return slices.Clone(s.items)
}

// RemoveIf drops every artifact matching fn.
func (s *ArtifactSet) RemoveIf(fn func(Artifact) bool) {
	s.items = slices.DeleteFunc(s.items, fn)
}

// Minimize drops every artifact that is included by a different artifact in
// the set, so a digest-bearing record absorbs its partial twin.
func (s *ArtifactSet) Minimize() {
	all := slices.Clone(s.items)
	s.items = slices.DeleteFunc(s.items, func(a Artifact) bool {
		for _, other := range all {
			if !other.Equal(a) && other.Includes(a) {
				return true
			}
		}

		return false
	})
}

// IncludesAll reports whether every artifact of other is included by some
// artifact here.
func (s *ArtifactSet) IncludesAll(other *ArtifactSet) bool {
	for _, o := range other.Items() {
		if !slices.ContainsFunc(s.Items(), func(a Artifact) bool { return a.Includes(o) }) {
			return false
		}
	}

	return true
}

// Equal reports whether both sets hold the same artifacts.
func (s *ArtifactSet) Equal(other *ArtifactSet) bool {
	return slices.EqualFunc(s.Items(), other.Items(), Artifact.Equal)
}

// Compare orders sets by size first, then element-wise.
func (s *ArtifactSet) Compare(other *ArtifactSet) int {
	if c := s.Len() - other.Len(); c != 0 {
		if c < 0 {
			return -1
		}

		return 1
	}

	return slices.CompareFunc(s.Items(), other.Items(), Artifact.Compare)
}

func (s *ArtifactSet) MarshalJSON() ([]byte, error) {
	if s.Len() == 0 {
		return []byte("[]"), nil
	}

	return json.Marshal(s.Items())
}

func (s *ArtifactSet) UnmarshalJSON(b []byte) error {
	var items []Artifact
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}

	s.items = nil
	for _, a := range items {
		s.Add(a)
	}

	return nil
}
