package quantization

import (
	"errors"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/innerNULL/pqcodec/internal/kmeans"
)

func trainedQuantizer(t *testing.T, dim, subspaceDim int) (*ProductQuantizer, []float32) {
	t.Helper()

	const n = 400
	vecs := randomVectors(17, n, dim)

	pq, err := New(dim, subspaceDim, WithSeed(5))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := pq.Train(n, vecs); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return pq, vecs
}

func TestEncodeIdempotent(t *testing.T) {
	// Irregular shape: dim=7, dsub=3 gives widths 3,3,1.
	pq, vecs := trainedQuantizer(t, 7, 3)

	vec := vecs[:7]
	code, err := pq.Encode(vec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Re-derive each byte by scanning the stored table directly.
	for m := 0; m < pq.NumSubspaces(); m++ {
		d := pq.width(m)
		sub := vec[m*pq.SubspaceDim() : m*pq.SubspaceDim()+d]
		idx, _ := kmeans.Assign(sub, pq.block(m), d)
		if byte(idx) != code[m] {
			t.Errorf("subspace %d: re-derived %d, encoded %d", m, idx, code[m])
		}
	}

	// Repeated encodes under a fixed table are identical.
	again, err := pq.Encode(vec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	for m := range code {
		if code[m] != again[m] {
			t.Fatalf("subspace %d: code changed across calls", m)
		}
	}
}

func TestEncodeBatchStride(t *testing.T) {
	pq, vecs := trainedQuantizer(t, 6, 4)
	const n = 50

	codes, err := pq.EncodeBatch(vecs[:n*6], n)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}
	if len(codes) != n*pq.NumSubspaces() {
		t.Fatalf("codes length %d, want %d", len(codes), n*pq.NumSubspaces())
	}

	for i := 0; i < n; i++ {
		one, err := pq.Encode(vecs[i*6 : (i+1)*6])
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		got := codes[i*pq.NumSubspaces() : (i+1)*pq.NumSubspaces()]
		for m := range one {
			if got[m] != one[m] {
				t.Fatalf("vector %d subspace %d: batch %d, single %d", i, m, got[m], one[m])
			}
		}
	}
}

func TestDecodeReconstruction(t *testing.T) {
	pq, vecs := trainedQuantizer(t, 8, 2)

	vec := vecs[:8]
	code, err := pq.Encode(vec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	rec, err := pq.Decode(code)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rec) != 8 {
		t.Fatalf("Decode length %d, want 8", len(rec))
	}

	// Each subspace slice must equal the selected centroid exactly.
	for m := 0; m < pq.NumSubspaces(); m++ {
		d := pq.width(m)
		c := pq.centroid(m, int(code[m]))
		for j := 0; j < d; j++ {
			if rec[m*pq.SubspaceDim()+j] != c[j] {
				t.Errorf("subspace %d coord %d: %f != centroid %f", m, j, rec[m*pq.SubspaceDim()+j], c[j])
			}
		}
	}

	// Training data drawn from [0,1): reconstruction stays inside the hull.
	var mse float32
	for i := range vec {
		diff := vec[i] - rec[i]
		mse += diff * diff
	}
	mse /= 8
	if mse > 0.5 {
		t.Errorf("reconstruction MSE too high: %f", mse)
	}
}

func TestAddCodeAccumulates(t *testing.T) {
	pq, vecs := trainedQuantizer(t, 5, 2)

	codes, err := pq.EncodeBatch(vecs[:10*5], 10)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}

	rec, err := pq.Decode(codes[3*pq.NumSubspaces() : 4*pq.NumSubspaces()])
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	x := make([]float32, 5)
	if err := pq.AddCode(x, codes, 3, 2.5); err != nil {
		t.Fatalf("AddCode failed: %v", err)
	}

	for j := range x {
		want := 2.5 * rec[j]
		if diff := x[j] - want; diff > 1e-5 || diff < -1e-5 {
			t.Errorf("coord %d: %f, want %f", j, x[j], want)
		}
	}

	// Accumulation adds on top of existing content.
	if err := pq.AddCode(x, codes, 3, -2.5); err != nil {
		t.Fatalf("AddCode failed: %v", err)
	}
	for j := range x {
		if x[j] > 1e-5 || x[j] < -1e-5 {
			t.Errorf("coord %d: %f, want 0 after cancelling update", j, x[j])
		}
	}
}

func TestDotCodeMatchesDecodedDot(t *testing.T) {
	pq, vecs := trainedQuantizer(t, 9, 4) // widths 4,4,1

	codes, err := pq.EncodeBatch(vecs[:20*9], 20)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}

	probe := randomVectors(23, 1, 9)
	for tIdx := 0; tIdx < 20; tIdx++ {
		rec, err := pq.Decode(codes[tIdx*pq.NumSubspaces() : (tIdx+1)*pq.NumSubspaces()])
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		var want float32
		for j := range probe {
			want += probe[j] * rec[j]
		}

		got, err := pq.DotCode(probe, codes, tIdx, 1.0)
		if err != nil {
			t.Fatalf("DotCode failed: %v", err)
		}
		if diff := got - want; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("code %d: DotCode %f, decoded dot %f", tIdx, got, want)
		}
	}
}

func TestCodecErrorPaths(t *testing.T) {
	fresh, err := New(4, 2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := fresh.Encode(make([]float32, 4)); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Encode untrained: %v, want ErrNotTrained", err)
	}
	if _, err := fresh.Decode(make([]byte, 2)); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Decode untrained: %v, want ErrNotTrained", err)
	}
	if _, err := fresh.DotCode(make([]float32, 4), make([]byte, 2), 0, 1); !errors.Is(err, ErrNotTrained) {
		t.Errorf("DotCode untrained: %v, want ErrNotTrained", err)
	}

	pq, _ := trainedQuantizer(t, 4, 2)

	var dm *ErrDimensionMismatch
	if _, err := pq.Encode(make([]float32, 3)); !errors.As(err, &dm) {
		t.Errorf("Encode short vector: %v, want ErrDimensionMismatch", err)
	}

	codes, err := pq.EncodeBatch(randomVectors(9, 4, 4), 4)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}
	if _, err := pq.DotCode(make([]float32, 4), codes, 4, 1); !errors.Is(err, ErrCodeOutOfRange) {
		t.Errorf("DotCode past end: %v, want ErrCodeOutOfRange", err)
	}
	if _, err := pq.DotCode(make([]float32, 4), codes, -1, 1); !errors.Is(err, ErrCodeOutOfRange) {
		t.Errorf("DotCode negative index: %v, want ErrCodeOutOfRange", err)
	}
	if err := pq.AddCode(make([]float32, 4), codes, 9, 1); !errors.Is(err, ErrCodeOutOfRange) {
		t.Errorf("AddCode past end: %v, want ErrCodeOutOfRange", err)
	}
}

func TestConcurrentEncodeAfterTrain(t *testing.T) {
	pq, vecs := trainedQuantizer(t, 8, 4)

	want, err := pq.EncodeBatch(vecs[:50*8], 50)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}

	// Encode and code arithmetic are read-only once training completed.
	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				code, err := pq.Encode(vecs[i*8 : (i+1)*8])
				if err != nil {
					return err
				}
				for m := range code {
					if code[m] != want[i*pq.NumSubspaces()+m] {
						return errors.New("concurrent encode diverged")
					}
				}
				if _, err := pq.DotCode(vecs[:8], want, i, 1.0); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
