package quantization

import (
	"github.com/innerNULL/pqcodec/internal/kmeans"
	"github.com/innerNULL/pqcodec/internal/math32"
)

// Encode quantizes a vector into its code, one byte per subspace.
func (pq *ProductQuantizer) Encode(vec []float32) ([]byte, error) {
	if !pq.trained {
		return nil, ErrNotTrained
	}
	if len(vec) != pq.dim {
		return nil, &ErrDimensionMismatch{Expected: pq.dim, Actual: len(vec)}
	}

	code := make([]byte, pq.numSubspaces)
	pq.encodeInto(vec, code)
	return code, nil
}

// EncodeBatch quantizes n vectors stored densely in vecs, returning their
// codes densely packed at stride NumSubspaces.
func (pq *ProductQuantizer) EncodeBatch(vecs []float32, n int) ([]byte, error) {
	if !pq.trained {
		return nil, ErrNotTrained
	}
	if len(vecs) != n*pq.dim {
		return nil, &ErrDimensionMismatch{Expected: n * pq.dim, Actual: len(vecs)}
	}

	codes := make([]byte, n*pq.numSubspaces)
	for i := 0; i < n; i++ {
		pq.encodeInto(vecs[i*pq.dim:(i+1)*pq.dim], codes[i*pq.numSubspaces:(i+1)*pq.numSubspaces])
	}
	return codes, nil
}

func (pq *ProductQuantizer) encodeInto(vec []float32, code []byte) {
	for m := 0; m < pq.numSubspaces; m++ {
		d := pq.width(m)
		sub := vec[m*pq.subspaceDim : m*pq.subspaceDim+d]
		idx, _ := kmeans.Assign(sub, pq.block(m), d)
		code[m] = byte(idx)
	}
}

// Decode reconstructs the approximate vector a code stands for.
func (pq *ProductQuantizer) Decode(code []byte) ([]float32, error) {
	if !pq.trained {
		return nil, ErrNotTrained
	}
	if len(code) != pq.numSubspaces {
		return nil, &ErrDimensionMismatch{Expected: pq.numSubspaces, Actual: len(code)}
	}

	out := make([]float32, pq.dim)
	for m := 0; m < pq.numSubspaces; m++ {
		c := pq.centroid(m, int(code[m]))
		copy(out[m*pq.subspaceDim:m*pq.subspaceDim+len(c)], c)
	}
	return out, nil
}

// DotCode computes alpha times the dot product of x with the vector encoded
// at index t in codes, without reconstructing it.
func (pq *ProductQuantizer) DotCode(x []float32, codes []byte, t int, alpha float32) (float32, error) {
	code, err := pq.codeAt(codes, t)
	if err != nil {
		return 0, err
	}
	if len(x) != pq.dim {
		return 0, &ErrDimensionMismatch{Expected: pq.dim, Actual: len(x)}
	}

	var res float32
	for m := 0; m < pq.numSubspaces; m++ {
		c := pq.centroid(m, int(code[m]))
		res += math32.Dot(x[m*pq.subspaceDim:m*pq.subspaceDim+len(c)], c)
	}
	return res * alpha, nil
}

// AddCode adds alpha times the vector encoded at index t in codes into x in
// place, subspace by subspace.
func (pq *ProductQuantizer) AddCode(x []float32, codes []byte, t int, alpha float32) error {
	code, err := pq.codeAt(codes, t)
	if err != nil {
		return err
	}
	if len(x) != pq.dim {
		return &ErrDimensionMismatch{Expected: pq.dim, Actual: len(x)}
	}

	for m := 0; m < pq.numSubspaces; m++ {
		c := pq.centroid(m, int(code[m]))
		math32.Axpy(alpha, c, x[m*pq.subspaceDim:m*pq.subspaceDim+len(c)])
	}
	return nil
}

// codeAt slices the t-th code out of a dense codes buffer.
func (pq *ProductQuantizer) codeAt(codes []byte, t int) ([]byte, error) {
	if !pq.trained {
		return nil, ErrNotTrained
	}
	if t < 0 || (t+1)*pq.numSubspaces > len(codes) {
		return nil, ErrCodeOutOfRange
	}
	return codes[t*pq.numSubspaces : (t+1)*pq.numSubspaces], nil
}
