// Package math32 provides float32 vector kernels shared by the clustering
// and codec layers. This is an internal package.
package math32

// Dot calculates the dot product of two vectors.
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}

	return ret
}

// SquaredL2 calculates the squared L2 distance between two vectors.
func SquaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		distance += (a[i] - b[i]) * (a[i] - b[i])
	}

	return distance
}

// Axpy adds alpha*x to y in place.
func Axpy(alpha float32, x, y []float32) {
	for i := range x {
		y[i] += alpha * x[i]
	}
}

// Scale multiplies all elements of a by scalar in place.
func Scale(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}
