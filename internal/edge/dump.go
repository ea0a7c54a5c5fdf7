package edge

import (
	"cmp"
	"encoding/json"
	"slices"
)

// DumpRecord is one persisted snapshot entry: an identity at a version with
// the artifacts known for it.
type DumpRecord struct {
	Identity Identity
	Version  Version
	Links    *ArtifactSet
}

// NewDumpRecord builds a record. An absent channel is stored as Stable.
func NewDumpRecord(pv ProductVersion, links *ArtifactSet) DumpRecord {
	if links == nil {
		links = NewArtifactSet()
	}

	return DumpRecord{
		Identity: pv.Identity.WithChannel(pv.Identity.ChannelOrStable()),
		Version:  pv.Version,
		Links:    links,
	}
}

// Includes reports whether r makes other redundant. Identity and version must
// match; desktop Windows records of non-enterprise products always win, every
// other record must cover each of other's links.
func (r DumpRecord) Includes(other DumpRecord) bool {
	if !r.Identity.Equal(other.Identity) || r.Version != other.Version {
		return false
	}

	if r.Identity.IsWindowsDirect() {
		return true
	}

	return r.Links.IncludesAll(other.Links)
}

// Compare orders records by product, OS, channel, arch, version, then links.
func (r DumpRecord) Compare(other DumpRecord) int {
	a, b := r.Identity, other.Identity

	if c := cmp.Compare(a.Product, b.Product); c != 0 {
		return c
	}

	if c := cmp.Compare(a.OS, b.OS); c != 0 {
		return c
	}

	if c := cmp.Compare(a.ChannelOrStable(), b.ChannelOrStable()); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Arch, b.Arch); c != 0 {
		return c
	}

	if c := r.Version.Compare(other.Version); c != 0 {
		return c
	}

	return r.Links.Compare(other.Links)
}

type dumpRecordJSON struct {
	Product Product      `json:"Product"`
	Channel Channel      `json:"Channel"`
	OS      OS           `json:"OS"`
	Arch    Arch         `json:"Arch"`
	Version Version      `json:"Version"`
	Links   *ArtifactSet `json:"Links"`
}

func (r DumpRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(dumpRecordJSON{
		Product: r.Identity.Product,
		Channel: r.Identity.ChannelOrStable(),
		OS:      r.Identity.OS,
		Arch:    r.Identity.Arch,
		Version: r.Version,
		Links:   r.Links,
	})
}

func (r *DumpRecord) UnmarshalJSON(b []byte) error {
	aux := dumpRecordJSON{Links: NewArtifactSet()}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	r.Identity = NewIdentity(aux.Product, aux.Channel, aux.OS, aux.Arch)
	r.Version = aux.Version
	r.Links = aux.Links

	return nil
}

// DumpSet is an ordered collection of records without exact duplicates.
type DumpSet struct {
	records []DumpRecord
}

// Add inserts r, reporting false when an identical record already exists.
func (s *DumpSet) Add(r DumpRecord) bool {
	i, found := slices.BinarySearchFunc(s.records, r, DumpRecord.Compare)
	if found {
		return false
	}

	s.records = slices.Insert(s.records, i, r)

	return true
}

// Len returns the number of records.
func (s *DumpSet) Len() int {
	return len(s.records)
}

// Records returns the records in order.
func (s *DumpSet) Records() []DumpRecord {
	return slices.Clone(s.records)
}

// IncludedBy reports whether some record of s includes r.
func (s *DumpSet) IncludedBy(r DumpRecord) bool {
	return slices.ContainsFunc(s.records, func(have DumpRecord) bool {
		return have.Includes(r)
	})
}

// Merge adds every record of older that no record in s already includes.
// Records are never removed, only superseded.
func (s *DumpSet) Merge(older *DumpSet) {
	for _, r := range older.Records() {
		if !s.IncludedBy(r) {
			s.Add(r)
		}
	}
}

func (s *DumpSet) MarshalJSON() ([]byte, error) {
	if len(s.records) == 0 {
		return []byte("[]"), nil
	}

	return json.Marshal(s.records)
}

func (s *DumpSet) UnmarshalJSON(b []byte) error {
	var records []DumpRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return err
	}

	s.records = nil
	for _, r := range records {
		s.Add(r)
	}

	return nil
}
