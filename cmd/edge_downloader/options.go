package main

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/italolelis/edge_downloader/internal/edge"
)

// identityOptions are the raw --product/--channel/--os/--arch/--type/--version
// flag values. Empty means the default.
type identityOptions struct {
	product  string
	channel  string
	os       string
	arch     string
	fileType string
	version  string
}

// target is a validated download request.
type target struct {
	Identity edge.Identity
	Version  edge.Version
	FileType edge.FileType
}

func (o identityOptions) resolve() (target, error) {
	var (
		arch     *edge.Arch
		fileType *edge.FileType
		version  = edge.Unresolved
		product  = edge.ProductEdge
		channel  = edge.ChannelStable
		os       = edge.OSWindows
		err      error
	)

	if o.product != "" {
		if product, err = edge.ParseProduct(o.product); err != nil {
			return target{}, fmt.Errorf("invalid product %q, valid options are: %s", o.product, names(edge.Products()))
		}
	}

	if o.channel != "" {
		if channel, err = edge.ParseChannel(o.channel); err != nil {
			return target{}, fmt.Errorf("invalid channel %q, valid options are: %s", o.channel, names(edge.Channels()))
		}
	}

	if o.os != "" {
		if os, err = edge.ParseOS(o.os); err != nil {
			return target{}, fmt.Errorf("invalid OS %q, valid options are: %s", o.os, names(edge.OSes()))
		}
	}

	if o.arch != "" {
		a, err := edge.ParseArch(o.arch)
		if err != nil {
			return target{}, fmt.Errorf("invalid architecture %q, valid options are: %s", o.arch, names(edge.Arches()))
		}

		arch = &a
	}

	if o.fileType != "" {
		f, err := edge.ParseFileType(o.fileType)
		if err != nil {
			return target{}, fmt.Errorf("invalid file type %q, valid options are: %s", o.fileType, names(edge.FileTypes()))
		}

		fileType = &f
	}

	if o.version != "" {
		if version, err = edge.ParseVersion(o.version); err != nil {
			return target{}, fmt.Errorf("invalid version %q, expected Major.Minor.Build.Revision", o.version)
		}
	}

	c := &constraints{product: product, channel: channel, os: os, arch: arch, fileType: fileType}
	if err := c.check(); err != nil {
		return target{}, err
	}

	return target{
		Identity: edge.NewIdentity(product, channel, os, *c.arch),
		Version:  version,
		FileType: *c.fileType,
	}, nil
}

// constraints fills the per product and per OS defaults, then rejects the
// combinations the backends never publish.
type constraints struct {
	product  edge.Product
	channel  edge.Channel
	os       edge.OS
	arch     *edge.Arch
	fileType *edge.FileType
}

func (c *constraints) check() error {
	if err := c.checkProduct(); err != nil {
		return err
	}

	return c.checkOS()
}

func (c *constraints) checkProduct() error {
	switch c.product {
	case edge.ProductEdgeEnterprise:
		c.defaultFileType(edge.FileTypeMsi)

		if c.os != edge.OSWindows {
			return c.invalid("OS", c.os, c.product, edge.OSWindows)
		}

		if c.channel == edge.ChannelCanary {
			return c.invalid("channel", c.channel, c.product, edge.ChannelStable, edge.ChannelBeta, edge.ChannelDev)
		}

		if *c.fileType != edge.FileTypeMsi {
			return c.invalid("file type", *c.fileType, c.product, edge.FileTypeMsi)
		}
	case edge.ProductEdgeWebView2:
		switch c.os {
		case edge.OSWindows:
			c.defaultFileType(edge.FileTypeExe)

			if *c.fileType != edge.FileTypeExe {
				return c.invalid("file type", *c.fileType, c.product, edge.FileTypeExe)
			}
		case edge.OSWCOS:
			c.defaultFileType(edge.FileTypeMsix)
		default:
			return c.invalid("OS", c.os, c.product, edge.OSWindows, edge.OSWCOS)
		}
	case edge.ProductEdgeUpdate:
		c.defaultFileType(edge.FileTypeExe)
		c.defaultArch(edge.ArchX86)

		if !c.os.IsDesktopWindows() {
			return c.invalid("OS", c.os, c.product, edge.OSWindows, edge.OSWin7And8)
		}

		if c.channel != edge.ChannelStable {
			return c.invalid("channel", c.channel, c.product, edge.ChannelStable)
		}

		if *c.arch != edge.ArchX86 {
			return c.invalid("architecture", *c.arch, c.product, edge.ArchX86)
		}

		if *c.fileType != edge.FileTypeExe {
			return c.invalid("file type", *c.fileType, c.product, edge.FileTypeExe)
		}
	}

	return nil
}

func (c *constraints) checkOS() error {
	switch c.os {
	case edge.OSWindows:
		c.defaultFileType(edge.FileTypeExe)
		c.defaultArch(edge.ArchX64)

		if *c.arch == edge.ArchArm || *c.arch == edge.ArchUniversal {
			return c.invalid("architecture", *c.arch, c.os, edge.ArchX86, edge.ArchX64, edge.ArchArm64)
		}
	case edge.OSWin7And8:
		c.defaultFileType(edge.FileTypeExe)
		c.defaultArch(edge.ArchX64)

		if *c.arch != edge.ArchX86 && *c.arch != edge.ArchX64 {
			return c.invalid("architecture", *c.arch, c.os, edge.ArchX86, edge.ArchX64)
		}

		if *c.fileType != edge.FileTypeExe {
			return c.invalid("file type", *c.fileType, c.os, edge.FileTypeExe)
		}
	case edge.OSWCOS:
		c.defaultFileType(edge.FileTypeMsix)
		c.defaultArch(edge.ArchArm64)

		if *c.arch != edge.ArchArm64 {
			return c.invalid("architecture", *c.arch, c.os, edge.ArchArm64)
		}

		if *c.fileType != edge.FileTypeMsix {
			return c.invalid("file type", *c.fileType, c.os, edge.FileTypeMsix)
		}
	case edge.OSiOS:
		return fmt.Errorf("unsupported OS %q", c.os)
	case edge.OSAndroid:
		c.defaultFileType(edge.FileTypeApk)
		c.defaultArch(edge.ArchArm64)

		if *c.arch != edge.ArchArm && *c.arch != edge.ArchArm64 {
			return c.invalid("architecture", *c.arch, c.os, edge.ArchArm, edge.ArchArm64)
		}

		if *c.fileType != edge.FileTypeApk {
			return c.invalid("file type", *c.fileType, c.os, edge.FileTypeApk)
		}
	case edge.OSLinux:
		c.defaultFileType(edge.FileTypeDeb)
		c.defaultArch(edge.ArchX64)

		if *c.arch != edge.ArchX64 {
			return c.invalid("architecture", *c.arch, c.os, edge.ArchX64)
		}

		if c.channel == edge.ChannelCanary {
			return c.invalid("channel", c.channel, c.os, edge.ChannelStable, edge.ChannelBeta, edge.ChannelDev)
		}

		if *c.fileType != edge.FileTypeDeb && *c.fileType != edge.FileTypeRpm {
			return c.invalid("file type", *c.fileType, c.os, edge.FileTypeDeb, edge.FileTypeRpm)
		}
	case edge.OSMacOS:
		c.defaultFileType(edge.FileTypePkg)
		c.defaultArch(edge.ArchUniversal)

		if *c.arch != edge.ArchUniversal {
			return c.invalid("architecture", *c.arch, c.os, edge.ArchUniversal)
		}

		if *c.fileType != edge.FileTypePkg && *c.fileType != edge.FileTypeDmg {
			return c.invalid("file type", *c.fileType, c.os, edge.FileTypePkg, edge.FileTypeDmg)
		}
	}

	return nil
}

func (c *constraints) defaultArch(a edge.Arch) {
	if c.arch == nil {
		c.arch = &a
	}
}

func (c *constraints) defaultFileType(f edge.FileType) {
	if c.fileType == nil {
		c.fileType = &f
	}
}

func (c *constraints) invalid(field string, got, scope fmt.Stringer, valid ...fmt.Stringer) error {
	return fmt.Errorf("invalid %s %q for %s, valid options are: %s", field, got, scope, names(valid))
}

func names[T fmt.Stringer](values []T) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}

	return strings.Join(out, ", ")
}

var deltaPattern = regexp.MustCompile(`\d{1,5}\.\d{1,5}\.\d{1,5}\.\d{1,5}_\d{1,5}\.\d{1,5}\.\d{1,5}\.\d{1,5}`)

// recommended marks which of the candidates a plain download fetches: the
// only candidate, the full installers when delta packages are mixed in, the
// global dmg, and the store build Microsoft links for the Android arch.
func recommended(candidates []edge.Artifact, arch edge.Arch) []bool {
	hasDelta := slices.ContainsFunc(candidates, func(a edge.Artifact) bool {
		return deltaPattern.MatchString(a.FileName)
	})

	marks := make([]bool, len(candidates))

	for i, a := range candidates {
		ft, _ := a.FileType()

		switch {
		case len(candidates) == 1:
			marks[i] = true
		case hasDelta && !deltaPattern.MatchString(a.FileName):
			marks[i] = true
		case ft == edge.FileTypeDmg && !strings.Contains(a.FileName, "_cn"):
			marks[i] = true
		case ft == edge.FileTypeApk && arch == edge.ArchArm64 && strings.Contains(a.FileName, "Apkpure"):
			marks[i] = true
		case ft == edge.FileTypeApk && arch == edge.ArchArm && strings.Contains(a.FileName, "Tencent"):
			marks[i] = true
		}
	}

	return marks
}
