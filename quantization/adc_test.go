package quantization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceTableMatchesDirectADC(t *testing.T) {
	pq, vecs := trainedQuantizer(t, 10, 4) // widths 4,4,2

	const n = 30
	codes, err := pq.EncodeBatch(vecs[:n*10], n)
	require.NoError(t, err)

	query := randomVectors(31, 1, 10)
	table, err := pq.BuildDistanceTable(query)
	require.NoError(t, err)
	require.Len(t, table, pq.NumSubspaces()*NumCentroids)

	for i := 0; i < n; i++ {
		code := codes[i*pq.NumSubspaces() : (i+1)*pq.NumSubspaces()]

		direct, err := pq.ComputeAsymmetricDistance(query, code)
		require.NoError(t, err)

		viaTable, err := pq.ADCDistance(table, code)
		require.NoError(t, err)

		assert.InDelta(t, direct, viaTable, 1e-4, "code %d", i)
	}
}

func TestADCDistanceAgainstDecoded(t *testing.T) {
	pq, vecs := trainedQuantizer(t, 6, 3)

	code, err := pq.Encode(vecs[:6])
	require.NoError(t, err)

	rec, err := pq.Decode(code)
	require.NoError(t, err)

	query := randomVectors(37, 1, 6)
	var want float32
	for j := range query {
		diff := query[j] - rec[j]
		want += diff * diff
	}

	got, err := pq.ComputeAsymmetricDistance(query, code)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-4)
}

func TestADCValidation(t *testing.T) {
	fresh, err := New(4, 2)
	require.NoError(t, err)

	_, err = fresh.BuildDistanceTable(make([]float32, 4))
	assert.ErrorIs(t, err, ErrNotTrained)

	_, err = fresh.ComputeAsymmetricDistance(make([]float32, 4), make([]byte, 2))
	assert.ErrorIs(t, err, ErrNotTrained)

	pq, _ := trainedQuantizer(t, 4, 2)

	_, err = pq.BuildDistanceTable(make([]float32, 5))
	var dm *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)

	table, err := pq.BuildDistanceTable(make([]float32, 4))
	require.NoError(t, err)

	_, err = pq.ADCDistance(table[:10], make([]byte, 2))
	assert.ErrorAs(t, err, &dm)

	_, err = pq.ADCDistance(table, make([]byte, 3))
	assert.ErrorAs(t, err, &dm)
}
