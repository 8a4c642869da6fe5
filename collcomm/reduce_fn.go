package collcomm

// FlopTime is the amount of time it takes to perform a
// single floating-point operation.
const FlopTime = 1e-9

// A ReduceFn folds vectors into an accumulator and
// returns the accumulator.
type ReduceFn func(c Comm, acc []float64, vecs ...[]float64) []float64

// Sum is a ReduceFn that adds every vector into acc
// element-wise.
//
// The work is charged to c at FlopTime per addition.
func Sum(c Comm, acc []float64, vecs ...[]float64) []float64 {
	for _, v := range vecs {
		if len(v) != len(acc) {
			panic("mismatching lengths")
		}
	}
	for _, v := range vecs {
		for i, x := range v {
			acc[i] += x
		}
	}

	c.Compute(FlopTime * float64(len(vecs)*len(acc)))

	return acc
}
