package catalog

import (
	"strings"

	"github.com/italolelis/edge_downloader/internal/edge"
)

type lookupEntry[T any] struct {
	name  string
	value T
}

// lookup maps backend strings onto enum values: an exact case-insensitive
// match wins, otherwise the longest entry name contained in the input.
type lookup[T any] struct {
	field   string
	entries []lookupEntry[T]
}

type enum interface {
	~int
	String() string
}

func newLookup[T enum](field string, values []T) lookup[T] {
	l := lookup[T]{field: field}
	for _, v := range values {
		l.entries = append(l.entries, lookupEntry[T]{name: v.String(), value: v})
	}

	return l
}

func (l lookup[T]) find(raw string) (T, bool) {
	var zero T

	for _, e := range l.entries {
		if strings.EqualFold(e.name, raw) {
			return e.value, true
		}
	}

	lower := strings.ToLower(raw)
	best := -1

	for i, e := range l.entries {
		if strings.Contains(lower, strings.ToLower(e.name)) && (best < 0 || len(e.name) > len(l.entries[best].name)) {
			best = i
		}
	}

	if best < 0 {
		return zero, false
	}

	return l.entries[best].value, true
}

func (l lookup[T]) parse(raw string) (T, error) {
	v, ok := l.find(raw)
	if !ok {
		return v, &edge.ParseError{Field: l.field, Value: raw}
	}

	return v, nil
}

var (
	productLookup  = newLookup("product", edge.Products())
	channelLookup  = newLookup("channel", edge.Channels())
	osLookup       = newLookup("os", edge.OSes())
	archLookup     = newLookup("arch", edge.Arches())
	fileTypeLookup = newLookup("file type", edge.FileTypes())
)
