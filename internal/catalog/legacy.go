package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/italolelis/edge_downloader/internal/edge"
	"gopkg.in/yaml.v3"
)

//go:embed legacy.yaml
var legacyTable []byte

// LegacyLink is a numeric redirect id that resolves to a direct download URL
// for one identity and file type.
type LegacyLink struct {
	ID       int
	Name     string
	Identity edge.Identity
	FileType edge.FileType
	// Basic links are part of the default product listing.
	Basic bool
}

type legacyEntry struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	Product  string `yaml:"product"`
	Channel  string `yaml:"channel"`
	OS       string `yaml:"os"`
	Arch     string `yaml:"arch"`
	FileType string `yaml:"file_type"`
	Basic    bool   `yaml:"basic"`
}

var loadLegacy = sync.OnceValues(func() ([]LegacyLink, error) {
	return ParseLegacyTable(legacyTable)
})

// LegacyLinks returns the embedded legacy link table.
func LegacyLinks() ([]LegacyLink, error) {
	return loadLegacy()
}

// ParseLegacyTable decodes a YAML legacy link table.
func ParseLegacyTable(data []byte) ([]LegacyLink, error) {
	var entries []legacyEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode legacy link table: %w", err)
	}

	links := make([]LegacyLink, 0, len(entries))
	seen := make(map[int]struct{}, len(entries))

	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("duplicate legacy link id %d", e.ID)
		}

		seen[e.ID] = struct{}{}

		link, err := e.toLink()
		if err != nil {
			return nil, fmt.Errorf("legacy link %d (%s): %w", e.ID, e.Name, err)
		}

		links = append(links, link)
	}

	return links, nil
}

func (e legacyEntry) toLink() (LegacyLink, error) {
	product, err := productLookup.parse(e.Product)
	if err != nil {
		return LegacyLink{}, err
	}

	channel, err := channelLookup.parse(e.Channel)
	if err != nil {
		return LegacyLink{}, err
	}

	os, err := osLookup.parse(e.OS)
	if err != nil {
		return LegacyLink{}, err
	}

	arch, err := archLookup.parse(e.Arch)
	if err != nil {
		return LegacyLink{}, err
	}

	fileType, err := fileTypeLookup.parse(e.FileType)
	if err != nil {
		return LegacyLink{}, err
	}

	return LegacyLink{
		ID:       e.ID,
		Name:     e.Name,
		Identity: edge.NewIdentity(product, channel, os, arch),
		FileType: fileType,
		Basic:    e.Basic,
	}, nil
}
