package cache

import (
	"github.com/matzehuels/visstudy/pkg/study"
)

// keyVersion is bumped whenever the spec or page layout changes so stale
// entries are never served.
const keyVersion = 1

// Keyer derives cache keys for generated artifacts.
type Keyer interface {
	// SpecKey identifies the chart spec of r.
	SpecKey(r study.Request) string
	// PageKey identifies the rendered page of r.
	PageKey(r study.Request, opts PageKeyOpts) string
}

// PageKeyOpts are rendering options that change page bytes.
type PageKeyOpts struct {
	Minify bool `json:"minify"`
}

// DefaultKeyer hashes every request field that influences the output. The
// seed only affects datasets and is excluded.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) SpecKey(r study.Request) string {
	r.Seed = 0
	return hashKey("spec", keyVersion, r)
}

func (DefaultKeyer) PageKey(r study.Request, opts PageKeyOpts) string {
	r.Seed = 0
	return hashKey("page", keyVersion, r, opts)
}

// ScopedKeyer prefixes every key, so several deployments can share one
// Redis database.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (the default keyer when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) SpecKey(r study.Request) string {
	return k.prefix + k.inner.SpecKey(r)
}

func (k *ScopedKeyer) PageKey(r study.Request, opts PageKeyOpts) string {
	return k.prefix + k.inner.PageKey(r, opts)
}
