package weights

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TableUV initializes every cell of a table of action values
// independently, with values drawn from a univariate distribution
type TableUV struct {
	distuv.Rander
}

// NewTableUV creates and returns a new TableUV
func NewTableUV(rand distuv.Rander) TableUV {
	if rand == nil {
		panic("rand cannot be nil")
	}
	return TableUV{rand}
}

// NewUniform returns a TableUV which draws each cell from U[min, max)
// using a source seeded with seed
func NewUniform(min, max float64, seed uint64) TableUV {
	return NewTableUV(distuv.Uniform{
		Min: min,
		Max: max,
		Src: rand.NewSource(seed),
	})
}

// Initialize fills weights in row-major order using values drawn from
// the underlying distribution
func (t TableUV) Initialize(weights *mat.Dense) {
	if weights == nil {
		return
	}

	r, c := weights.Dims()
	for i := 0; i < r; i++ {
		row := weights.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = t.Rand()
		}
	}
}

// ConstantUV implements the distuv.Rander interface so that constant
// initialization can be accomplished through TableUV
type ConstantUV float64

// NewZeroUV returns a ConstantUV which always draws 0
func NewZeroUV() ConstantUV {
	return ConstantUV(0)
}

// Rand returns the constant value
func (c ConstantUV) Rand() float64 {
	return float64(c)
}
