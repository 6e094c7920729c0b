// Package strings provides pooled string building utilities used on the
// hot paths of extraction pipelines. Builders are recycled through
// size-classed pools to avoid per-request allocations when constructing
// URLs, query filters and log-friendly messages.
package strings

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// BuilderSize selects the pool bucket for a builder.
type BuilderSize int

const (
	// Small covers the common case: URLs, filter clauses, short messages.
	Small BuilderSize = iota
	// Medium covers API response fragments and longer composed strings.
	Medium
	// Large covers bulk payload assembly.
	Large
)

var (
	smallPool = sync.Pool{New: func() interface{} {
		b := &strings.Builder{}
		b.Grow(256)
		return b
	}}
	mediumPool = sync.Pool{New: func() interface{} {
		b := &strings.Builder{}
		b.Grow(4096)
		return b
	}}
	largePool = sync.Pool{New: func() interface{} {
		b := &strings.Builder{}
		b.Grow(65536)
		return b
	}}
)

// GetBuilder returns a pooled builder of the requested size class.
func GetBuilder(size BuilderSize) *strings.Builder {
	var b *strings.Builder
	switch size {
	case Medium:
		b = mediumPool.Get().(*strings.Builder)
	case Large:
		b = largePool.Get().(*strings.Builder)
	default:
		b = smallPool.Get().(*strings.Builder)
	}
	b.Reset()
	return b
}

// PutBuilder returns a builder to its pool.
func PutBuilder(b *strings.Builder, size BuilderSize) {
	switch size {
	case Medium:
		mediumPool.Put(b)
	case Large:
		largePool.Put(b)
	default:
		smallPool.Put(b)
	}
}

// Clone returns a copy of s detached from any pooled backing storage.
func Clone(s string) string {
	return strings.Clone(s)
}

// Concat joins the given strings with a pooled builder.
func Concat(parts ...string) string {
	b := GetBuilder(Small)
	defer PutBuilder(b, Small)
	for _, p := range parts {
		b.WriteString(p)
	}
	return Clone(b.String())
}

// Sprintf is a pooled variant of fmt.Sprintf.
func Sprintf(format string, args ...interface{}) string {
	b := GetBuilder(Small)
	defer PutBuilder(b, Small)
	fmt.Fprintf(b, format, args...)
	return Clone(b.String())
}

// JoinPooled joins elems with sep using a pooled builder.
func JoinPooled(elems []string, sep string) string {
	if len(elems) == 0 {
		return ""
	}
	b := GetBuilder(Small)
	defer PutBuilder(b, Small)
	for i, e := range elems {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(e)
	}
	return Clone(b.String())
}

// URLBuilder assembles request URLs with encoded query parameters over a
// pooled builder. Callers must Close it to return the builder to the pool.
type URLBuilder struct {
	builder   *strings.Builder
	hasParams bool
}

// NewURLBuilder creates a URL builder seeded with baseURL.
func NewURLBuilder(baseURL string) *URLBuilder {
	b := GetBuilder(Small)
	b.WriteString(baseURL)
	return &URLBuilder{
		builder:   b,
		hasParams: strings.Contains(baseURL, "?"),
	}
}

// AddPath appends path segments, escaping each one.
func (ub *URLBuilder) AddPath(segments ...string) *URLBuilder {
	for _, segment := range segments {
		if segment != "" {
			ub.builder.WriteByte('/')
			ub.builder.WriteString(escape(segment, false))
		}
	}
	return ub
}

// AddParam appends an encoded query parameter.
func (ub *URLBuilder) AddParam(key, value string) *URLBuilder {
	if ub.hasParams {
		ub.builder.WriteByte('&')
	} else {
		ub.builder.WriteByte('?')
		ub.hasParams = true
	}
	ub.builder.WriteString(escape(key, true))
	ub.builder.WriteByte('=')
	ub.builder.WriteString(escape(value, true))
	return ub
}

// AddParamInt appends an integer query parameter.
func (ub *URLBuilder) AddParamInt(key string, value int) *URLBuilder {
	return ub.AddParam(key, strconv.Itoa(value))
}

// String returns the built URL.
func (ub *URLBuilder) String() string {
	return Clone(ub.builder.String())
}

// Close releases the underlying builder back to the pool.
func (ub *URLBuilder) Close() {
	if ub.builder != nil {
		PutBuilder(ub.builder, Small)
		ub.builder = nil
	}
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes s for use in a URL. Query mode additionally
// encodes '/' and encodes spaces as %20 (not '+', which some ERP query
// parsers reject inside quoted filter literals).
func escape(s string, query bool) string {
	needed := false
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i], query) {
			needed = true
			break
		}
	}
	if !needed {
		return s
	}

	b := GetBuilder(Small)
	defer PutBuilder(b, Small)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c, query) {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		} else {
			b.WriteByte(c)
		}
	}
	return Clone(b.String())
}

func shouldEscape(c byte, query bool) bool {
	if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
		return false
	}
	switch c {
	case '-', '_', '.', '~':
		return false
	case '/':
		return query
	}
	return true
}
