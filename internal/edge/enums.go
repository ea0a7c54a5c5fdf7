package edge

import (
	"fmt"
	"strings"
)

type Product int

const (
	ProductEdge Product = iota
	ProductEdgeEnterprise
	ProductEdgeWebView2
	ProductEdgeUpdate
)

var productNames = []string{"Edge", "EdgeEnterprise", "EdgeWebView2", "EdgeUpdate"}

type Channel int

const (
	ChannelStable Channel = iota
	ChannelBeta
	ChannelDev
	ChannelCanary
)

var channelNames = []string{"Stable", "Beta", "Dev", "Canary"}

type OS int

const (
	OSAndroid OS = iota
	OSiOS
	OSLinux
	OSMacOS
	OSWCOS
	OSWindows
	OSWin7And8
)

var osNames = []string{"Android", "iOS", "Linux", "MacOS", "WCOS", "Windows", "Win7And8"}

type Arch int

const (
	ArchX86 Arch = iota
	ArchX64
	ArchArm
	ArchArm64
	// ArchUniversal is used for macOS universal binaries.
	ArchUniversal
)

var archNames = []string{"X86", "X64", "Arm", "Arm64", "Universal"}

type FileType int

const (
	FileTypeExe FileType = iota
	FileTypeMsi
	FileTypeDeb
	FileTypeRpm
	FileTypePkg
	FileTypeDmg
	FileTypeApk
	FileTypeMsix
)

var fileTypeNames = []string{"Exe", "Msi", "Deb", "Rpm", "Pkg", "Dmg", "Apk", "Msix"}

func (p Product) String() string  { return enumName(productNames, int(p)) }
func (c Channel) String() string  { return enumName(channelNames, int(c)) }
func (o OS) String() string       { return enumName(osNames, int(o)) }
func (a Arch) String() string     { return enumName(archNames, int(a)) }
func (f FileType) String() string { return enumName(fileTypeNames, int(f)) }

// Products returns every product in declaration order.
func Products() []Product { return enumValues[Product](productNames) }

// Channels returns every channel in declaration order.
func Channels() []Channel { return enumValues[Channel](channelNames) }

// OSes returns every operating system in declaration order.
func OSes() []OS { return enumValues[OS](osNames) }

// Arches returns every architecture in declaration order.
func Arches() []Arch { return enumValues[Arch](archNames) }

// FileTypes returns every file type in declaration order.
func FileTypes() []FileType { return enumValues[FileType](fileTypeNames) }

// ParseProduct parses a product name case-insensitively.
func ParseProduct(s string) (Product, error) {
	i, err := parseEnum("product", productNames, s)
	return Product(i), err
}

// ParseChannel parses a channel name case-insensitively.
func ParseChannel(s string) (Channel, error) {
	i, err := parseEnum("channel", channelNames, s)
	return Channel(i), err
}

// ParseOS parses an operating system name case-insensitively.
func ParseOS(s string) (OS, error) {
	i, err := parseEnum("os", osNames, s)
	return OS(i), err
}

// ParseArch parses an architecture name case-insensitively.
func ParseArch(s string) (Arch, error) {
	i, err := parseEnum("arch", archNames, s)
	return Arch(i), err
}

// ParseFileType parses a file type name case-insensitively.
func ParseFileType(s string) (FileType, error) {
	i, err := parseEnum("file type", fileTypeNames, s)
	return FileType(i), err
}

func (p Product) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
func (c Channel) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (o OS) MarshalText() ([]byte, error)      { return []byte(o.String()), nil }
func (a Arch) MarshalText() ([]byte, error)    { return []byte(a.String()), nil }
func (f FileType) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (p *Product) UnmarshalText(b []byte) error {
	v, err := ParseProduct(string(b))
	*p = v
	return err
}

func (c *Channel) UnmarshalText(b []byte) error {
	v, err := ParseChannel(string(b))
	*c = v
	return err
}

func (o *OS) UnmarshalText(b []byte) error {
	v, err := ParseOS(string(b))
	*o = v
	return err
}

func (a *Arch) UnmarshalText(b []byte) error {
	v, err := ParseArch(string(b))
	*a = v
	return err
}

func (f *FileType) UnmarshalText(b []byte) error {
	v, err := ParseFileType(string(b))
	*f = v
	return err
}

// IsDesktopWindows reports whether the OS is one of the desktop Windows variants.
func (o OS) IsDesktopWindows() bool {
	return o == OSWindows || o == OSWin7And8
}

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("Unknown(%d)", i)
	}

	return names[i]
}

func enumValues[T ~int](names []string) []T {
	values := make([]T, len(names))
	for i := range names {
		values[i] = T(i)
	}

	return values
}

func parseEnum(field string, names []string, s string) (int, error) {
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return i, nil
		}
	}

	return 0, &ParseError{Field: field, Value: s}
}
