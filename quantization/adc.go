package quantization

import "github.com/innerNULL/pqcodec/internal/math32"

// ComputeAsymmetricDistance computes the squared L2 distance between a
// full-precision query and a single code, centroid by centroid.
func (pq *ProductQuantizer) ComputeAsymmetricDistance(query []float32, code []byte) (float32, error) {
	if !pq.trained {
		return 0, ErrNotTrained
	}
	if len(query) != pq.dim {
		return 0, &ErrDimensionMismatch{Expected: pq.dim, Actual: len(query)}
	}
	if len(code) != pq.numSubspaces {
		return 0, &ErrDimensionMismatch{Expected: pq.numSubspaces, Actual: len(code)}
	}

	var distance float32
	for m := 0; m < pq.numSubspaces; m++ {
		c := pq.centroid(m, int(code[m]))
		distance += math32.SquaredL2(query[m*pq.subspaceDim:m*pq.subspaceDim+len(c)], c)
	}
	return distance, nil
}

// BuildDistanceTable precomputes squared distances from a query to every
// centroid. The table is NumSubspaces x NumCentroids, row-major:
// table[m*NumCentroids+k] is the distance from query subspace m to centroid k.
func (pq *ProductQuantizer) BuildDistanceTable(query []float32) ([]float32, error) {
	if !pq.trained {
		return nil, ErrNotTrained
	}
	if len(query) != pq.dim {
		return nil, &ErrDimensionMismatch{Expected: pq.dim, Actual: len(query)}
	}

	table := make([]float32, pq.numSubspaces*NumCentroids)
	for m := 0; m < pq.numSubspaces; m++ {
		d := pq.width(m)
		sub := query[m*pq.subspaceDim : m*pq.subspaceDim+d]
		row := table[m*NumCentroids : (m+1)*NumCentroids]
		for k := 0; k < NumCentroids; k++ {
			row[k] = math32.SquaredL2(sub, pq.centroid(m, k))
		}
	}
	return table, nil
}

// ADCDistance sums table rows selected by a code, giving the same result as
// ComputeAsymmetricDistance against the query the table was built from.
func (pq *ProductQuantizer) ADCDistance(table []float32, code []byte) (float32, error) {
	if len(table) != pq.numSubspaces*NumCentroids {
		return 0, &ErrDimensionMismatch{Expected: pq.numSubspaces * NumCentroids, Actual: len(table)}
	}
	if len(code) != pq.numSubspaces {
		return 0, &ErrDimensionMismatch{Expected: pq.numSubspaces, Actual: len(code)}
	}

	var distance float32
	for m := 0; m < pq.numSubspaces; m++ {
		distance += table[m*NumCentroids+int(code[m])]
	}
	return distance, nil
}
