// Package bucketizer implements functionality for discretizing
// continuous vectors onto a finite grid of buckets
package bucketizer

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/qcartpole/utils/intutils"
)

// Bucketizer maps continuous vectors to discrete grid cells. Each
// dimension d of the space is split by bins[d] evenly spaced edges
// spanning [lower[d], upper[d]], where the first and last edges equal
// the bounds. The bucket of a value along dimension d is the position
// of the first edge strictly greater than the value, minus one:
//
//	edges:   e0      e1      e2  ...  eN-1
//	bucket:  0  |  0   |  1   |  ...  | N-1
//
// Values below the lowest edge fall into bucket 0 and values at or
// above the highest edge fall into bucket bins[d]-1. Bucket indices are
// clamped at both ends, so every index is always within the grid.
//
// The grid cell of a vector can be represented either as a tuple of
// per-dimension bucket indices or as a single flat offset into a
// row-major array with one row per grid cell.
type Bucketizer struct {
	edges   [][]float64
	bins    []int
	strides []int
	len     int
}

// New creates and returns a new Bucketizer. The lower and upper
// arguments are the bounds on each dimension between which edges will
// be placed, and the bins argument determines how many edges (and so
// buckets) are placed along each dimension. All three must have the
// same length, and each dimension must have at least one bin.
func New(lower, upper mat.Vector, bins []int) (*Bucketizer, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("new: at least one dimension is required")
	}
	if lower.Len() != len(bins) {
		return nil, fmt.Errorf("new: lower bounds have %v dimensions but "+
			"bins have %v", lower.Len(), len(bins))
	}
	if upper.Len() != len(bins) {
		return nil, fmt.Errorf("new: upper bounds have %v dimensions but "+
			"bins have %v", upper.Len(), len(bins))
	}

	edges := make([][]float64, len(bins))
	for d, n := range bins {
		if n < 1 {
			return nil, fmt.Errorf("new: dimension %v must have at least "+
				"one bin, have %v", d, n)
		}

		min, max := lower.AtVec(d), upper.AtVec(d)
		if min > max {
			return nil, fmt.Errorf("new: dimension %v lower bound %v "+
				"exceeds upper bound %v", d, min, max)
		}

		edges[d] = make([]float64, n)
		if n == 1 {
			edges[d][0] = min
		} else {
			floats.Span(edges[d], min, max)
		}
	}

	// Row-major strides, the last dimension varies fastest
	strides := make([]int, len(bins))
	length := 1
	for d := len(bins) - 1; d >= 0; d-- {
		strides[d] = length
		length *= bins[d]
	}

	b := make([]int, len(bins))
	copy(b, bins)

	return &Bucketizer{
		edges:   edges,
		bins:    b,
		strides: strides,
		len:     length,
	}, nil
}

// Bucket returns the bucket index of value along dimension dim
func (b *Bucketizer) Bucket(dim int, value float64) int {
	edges := b.edges[dim]

	// Position of the first edge strictly greater than value
	pos := sort.Search(len(edges), func(i int) bool {
		return edges[i] > value
	})

	return intutils.Clip(pos-1, 0, b.bins[dim]-1)
}

// Index returns the per-dimension bucket indices of v. Index panics
// if v does not have the same number of dimensions as the Bucketizer.
func (b *Bucketizer) Index(v mat.Vector) []int {
	if v.Len() != len(b.bins) {
		panic(fmt.Sprintf("index: vector has %v dimensions, expected %v",
			v.Len(), len(b.bins)))
	}

	index := make([]int, len(b.bins))
	for d := range index {
		index[d] = b.Bucket(d, v.AtVec(d))
	}
	return index
}

// Offset returns the flat row-major offset of a tuple of bucket
// indices
func (b *Bucketizer) Offset(index []int) int {
	if len(index) != len(b.bins) {
		panic(fmt.Sprintf("offset: index has %v dimensions, expected %v",
			len(index), len(b.bins)))
	}

	offset := 0
	for d, i := range index {
		offset += i * b.strides[d]
	}
	return offset
}

// Encode returns the flat offset of the grid cell containing v
func (b *Bucketizer) Encode(v mat.Vector) int {
	return b.Offset(b.Index(v))
}

// Len returns the total number of grid cells
func (b *Bucketizer) Len() int {
	return b.len
}

// Dims returns the number of dimensions of the discretized space
func (b *Bucketizer) Dims() int {
	return len(b.bins)
}

// Bins returns the number of buckets along each dimension
func (b *Bucketizer) Bins() []int {
	bins := make([]int, len(b.bins))
	copy(bins, b.bins)
	return bins
}

// Edges returns the bucket edges along dimension dim
func (b *Bucketizer) Edges(dim int) []float64 {
	edges := make([]float64, len(b.edges[dim]))
	copy(edges, b.edges[dim])
	return edges
}
