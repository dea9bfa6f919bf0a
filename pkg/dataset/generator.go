package dataset

import (
	"iter"
	"math/rand/v2"

	"github.com/matzehuels/visstudy/pkg/study"
)

// Generator produces uniformly distributed rows.
//
// A Generator is not safe for concurrent use; give each goroutine its own.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed. A zero seed draws a
// random seed from the runtime source, so output differs between runs.
func NewGenerator(seed uint64) *Generator {
	if seed == 0 {
		return &Generator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Rows yields exactly r.NumPoints rows. Categories are drawn uniformly from
// category_0 … category_{NumCategories-1}; x, y and every attribute are
// independent and uniform in [0, 1).
//
// Rows are produced lazily so large datasets never have to be held in memory.
func (g *Generator) Rows(r study.Request) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for range r.NumPoints {
			row := Row{
				Category: CategoryName(g.rng.IntN(r.NumCategories)),
				X:        g.rng.Float64(),
				Y:        g.rng.Float64(),
			}
			if r.NumAttributes > 0 {
				row.Attrs = make([]float64, r.NumAttributes)
				for i := range row.Attrs {
					row.Attrs[i] = g.rng.Float64()
				}
			}
			if !yield(row) {
				return
			}
		}
	}
}
