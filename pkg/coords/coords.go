// Package coords provides read-only views over per-cell embedding
// coordinates (PCA or similar reduced dimensions).
//
// Single-cell embedding matrices get large, so next to the float64
// gonum-backed view there is a packed float16 view that halves memory at a
// precision cost that is irrelevant for distance ranking.
package coords

import (
	"math"

	"github.com/x448/float16"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a read-only row-accessible coordinate matrix.
// Row ids are the same vertex ids used by the graph and neighbourhoods.
type Matrix interface {
	// Dims returns the number of rows (cells) and columns (dimensions).
	Dims() (rows, cols int)
	// Row copies row i into dst and returns it. If dst is nil or too short
	// a new slice is allocated (gonum's mat.Row contract).
	Row(dst []float64, i int) []float64
}

// Dense wraps a gonum dense matrix.
type Dense struct {
	m *mat.Dense
}

// NewDense returns a Matrix view over m. The matrix is not copied.
func NewDense(m *mat.Dense) *Dense {
	return &Dense{m: m}
}

// FromRows builds a Dense from row slices. All rows must share a length.
func FromRows(rows [][]float64) *Dense {
	if len(rows) == 0 {
		return &Dense{m: &mat.Dense{}}
	}
	r, c := len(rows), len(rows[0])
	m := mat.NewDense(r, c, nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return &Dense{m: m}
}

func (d *Dense) Dims() (int, int) {
	if d.m.IsEmpty() {
		return 0, 0
	}
	return d.m.Dims()
}

func (d *Dense) Row(dst []float64, i int) []float64 {
	return mat.Row(dst, i, d.m)
}

// Float16 stores coordinates as packed IEEE half-precision words.
// Rows decode on access; callers that loop over rows should reuse dst.
type Float16 struct {
	bits []uint16
	rows int
	cols int
}

// PackFloat16 converts row slices into the packed representation.
// Values outside the float16 range saturate to +/-Inf, which is acceptable
// for embedding coordinates (they live near the origin).
func PackFloat16(rows [][]float64) *Float16 {
	if len(rows) == 0 {
		return &Float16{}
	}
	r, c := len(rows), len(rows[0])
	f := &Float16{bits: make([]uint16, r*c), rows: r, cols: c}
	for i, row := range rows {
		for j, v := range row {
			f.bits[i*c+j] = float16.Fromfloat32(float32(v)).Bits()
		}
	}
	return f
}

func (f *Float16) Dims() (int, int) {
	return f.rows, f.cols
}

func (f *Float16) Row(dst []float64, i int) []float64 {
	if cap(dst) < f.cols {
		dst = make([]float64, f.cols)
	}
	dst = dst[:f.cols]
	off := i * f.cols
	for j := 0; j < f.cols; j++ {
		dst[j] = float64(float16.Frombits(f.bits[off+j]).Float32())
	}
	return dst
}

// Euclidean returns the Euclidean distance between two coordinate rows.
// The slices must have the same length; this is the callers' invariant
// since both come out of the same matrix.
func Euclidean(x, y []float64) float64 {
	var sum float64
	for i := range x {
		d := x[i] - y[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
