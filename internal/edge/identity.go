package edge

import (
	"cmp"
	"strings"
)

// Identity selects one distribution variant. A nil Channel means the backend
// did not report one.
type Identity struct {
	Product Product
	Channel *Channel
	OS      OS
	Arch    Arch
}

// NewIdentity builds an identity with a present channel.
func NewIdentity(product Product, channel Channel, os OS, arch Arch) Identity {
	return Identity{Product: product, Channel: &channel, OS: os, Arch: arch}
}

// WithChannel returns a copy of the identity with the channel replaced.
func (id Identity) WithChannel(channel Channel) Identity {
	id.Channel = &channel
	return id
}

// WithProduct returns a copy of the identity with the product replaced.
func (id Identity) WithProduct(product Product) Identity {
	id.Product = product
	return id
}

// ChannelOrStable returns the channel, defaulting to Stable when absent.
func (id Identity) ChannelOrStable() Channel {
	if id.Channel == nil {
		return ChannelStable
	}

	return *id.Channel
}

// Equal reports whether both identities name the same variant.
func (id Identity) Equal(other Identity) bool {
	return id.Compare(other) == 0
}

// Compare orders identities by product, channel, OS and arch. An absent
// channel sorts before any present one.
func (id Identity) Compare(other Identity) int {
	if c := cmp.Compare(id.Product, other.Product); c != 0 {
		return c
	}

	switch {
	case id.Channel != nil && other.Channel != nil:
		if c := cmp.Compare(*id.Channel, *other.Channel); c != 0 {
			return c
		}
	case id.Channel != nil:
		return 1
	case other.Channel != nil:
		return -1
	}

	if c := cmp.Compare(id.OS, other.OS); c != 0 {
		return c
	}

	return cmp.Compare(id.Arch, other.Arch)
}

// IsWindowsDirect reports whether the versioned file API is authoritative for
// this identity.
func (id Identity) IsWindowsDirect() bool {
	return id.OS.IsDesktopWindows() && id.Product != ProductEdgeEnterprise
}

// String renders the backend name, e.g. msedge-stable-win-x64.
func (id Identity) String() string {
	os := strings.ToLower(id.OS.String())
	if os == "windows" {
		os = "win"
	}

	channel := ""
	if id.Channel != nil {
		channel = strings.ToLower(id.Channel.String())
	}

	return "ms" + strings.ToLower(id.Product.String()) + "-" + channel + "-" + os + "-" + strings.ToLower(id.Arch.String())
}

// ProductVersion is an identity at a version. The zero Version means unresolved.
type ProductVersion struct {
	Identity Identity
	Version  Version
}

func (p ProductVersion) Compare(other ProductVersion) int {
	if c := p.Identity.Compare(other.Identity); c != 0 {
		return c
	}

	return p.Version.Compare(other.Version)
}
