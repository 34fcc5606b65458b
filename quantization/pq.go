package quantization

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/innerNULL/pqcodec/internal/kmeans"
)

const (
	// NumCentroids is the codebook size per subspace. It equals the numeric
	// range of a one-byte code; changing it requires changing the code's
	// storage width as well, so it is fixed at build time.
	NumCentroids = 256

	// numIterations is the fixed EM budget per subspace. There is no
	// convergence check.
	numIterations = 25

	// splitEpsilon separates a donor/empty centroid pair after a split.
	splitEpsilon = 1e-7

	// maxTrainPoints caps how many training points are sampled per EM run.
	maxTrainPoints = NumCentroids * 256
)

// ProductQuantizer compresses vectors of a fixed dimension into one byte per
// subspace. The zero value is not usable; use New.
type ProductQuantizer struct {
	dim             int // D: full vector dimension
	numSubspaces    int // M: number of subspaces
	subspaceDim     int // width of every subspace except possibly the last
	lastSubspaceDim int // width of the final subspace

	// centroids is the flat codebook table, dim * NumCentroids float32.
	// Subspace m's block starts at m * NumCentroids * subspaceDim; within
	// it centroids are packed at the subspace's own width.
	centroids []float32

	rng     *rand.Rand
	logger  *slog.Logger
	trained bool
}

// New creates a product quantizer for vectors of dimension dim, partitioned
// into subspaces of width subspaceDim. subspaceDim does not have to divide
// dim: the final subspace absorbs the remainder.
func New(dim, subspaceDim int, opts ...Option) (*ProductQuantizer, error) {
	if dim <= 0 {
		return nil, errors.New("dim must be positive")
	}
	if subspaceDim <= 0 {
		return nil, errors.New("subspaceDim must be positive")
	}

	o := options{
		seed:   defaultSeed,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}

	numSubspaces := dim / subspaceDim
	lastSubspaceDim := dim % subspaceDim
	if lastSubspaceDim == 0 {
		lastSubspaceDim = subspaceDim
	} else {
		numSubspaces++
	}

	return &ProductQuantizer{
		dim:             dim,
		numSubspaces:    numSubspaces,
		subspaceDim:     subspaceDim,
		lastSubspaceDim: lastSubspaceDim,
		centroids:       make([]float32, dim*NumCentroids),
		rng:             rand.New(rand.NewSource(o.seed)),
		logger:          o.logger,
	}, nil
}

// width returns the coefficient count of subspace m.
func (pq *ProductQuantizer) width(m int) int {
	if m == pq.numSubspaces-1 {
		return pq.lastSubspaceDim
	}
	return pq.subspaceDim
}

// centroid returns centroid i of subspace m as a slice of the subspace's
// width. The slice aliases the codebook table and serves both reads and
// writes.
func (pq *ProductQuantizer) centroid(m, i int) []float32 {
	if m == pq.numSubspaces-1 {
		base := m*NumCentroids*pq.subspaceDim + i*pq.lastSubspaceDim
		return pq.centroids[base : base+pq.lastSubspaceDim]
	}
	base := (m*NumCentroids + i) * pq.subspaceDim
	return pq.centroids[base : base+pq.subspaceDim]
}

// block returns subspace m's whole codebook region, NumCentroids centroids
// packed contiguously at the subspace's width.
func (pq *ProductQuantizer) block(m int) []float32 {
	base := m * NumCentroids * pq.subspaceDim
	return pq.centroids[base : base+NumCentroids*pq.width(m)]
}

// Train learns the per-subspace codebooks from n vectors of length dim,
// stored densely in vectors. It fails with ErrInsufficientData when n is
// smaller than NumCentroids.
//
// Train overwrites all codebooks; a failed Train leaves them unspecified and
// the quantizer must be retrained or reloaded before use.
func (pq *ProductQuantizer) Train(n int, vectors []float32) error {
	if len(vectors) != n*pq.dim {
		return &ErrDimensionMismatch{Expected: n * pq.dim, Actual: len(vectors)}
	}
	if n < NumCentroids {
		return fmt.Errorf("%w: need at least %d points, got %d", ErrInsufficientData, NumCentroids, n)
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	np := n
	if np > maxTrainPoints {
		np = maxTrainPoints
	}
	scratch := make([]float32, np*pq.subspaceDim)

	trainer := &kmeans.Trainer{
		K:          NumCentroids,
		Iterations: numIterations,
		Epsilon:    splitEpsilon,
		Rng:        pq.rng,
	}

	for m := 0; m < pq.numSubspaces; m++ {
		d := pq.width(m)

		// Resample which points feed this subspace; with no sampling cap
		// in effect the permutation is reused as-is.
		if np != n {
			pq.rng.Shuffle(n, func(i, j int) {
				perm[i], perm[j] = perm[j], perm[i]
			})
		}
		for j := 0; j < np; j++ {
			src := perm[j]*pq.dim + m*pq.subspaceDim
			copy(scratch[j*d:(j+1)*d], vectors[src:src+d])
		}

		pq.logger.Debug("training subspace codebook",
			slog.Int("subspace", m),
			slog.Int("width", d),
			slog.Int("points", np),
		)

		if err := trainer.Train(scratch[:np*d], np, d, pq.block(m)); err != nil {
			return fmt.Errorf("subspace %d: %w", m, err)
		}
	}

	pq.trained = true
	pq.logger.Info("product quantizer trained",
		slog.Int("dim", pq.dim),
		slog.Int("subspaces", pq.numSubspaces),
		slog.Int("points", n),
	)

	return nil
}

// Dimension returns the full vector dimension D.
func (pq *ProductQuantizer) Dimension() int {
	return pq.dim
}

// NumSubspaces returns the number of subspaces M, which is also the code
// length in bytes.
func (pq *ProductQuantizer) NumSubspaces() int {
	return pq.numSubspaces
}

// SubspaceDim returns the width of every subspace except possibly the last.
func (pq *ProductQuantizer) SubspaceDim() int {
	return pq.subspaceDim
}

// LastSubspaceDim returns the width of the final subspace.
func (pq *ProductQuantizer) LastSubspaceDim() int {
	return pq.lastSubspaceDim
}

// IsTrained returns whether codebooks have been trained or loaded.
func (pq *ProductQuantizer) IsTrained() bool {
	return pq.trained
}

// BytesPerVector returns the compressed size per vector in bytes.
func (pq *ProductQuantizer) BytesPerVector() int {
	return pq.numSubspaces
}

// CompressionRatio returns the theoretical compression ratio over float32
// storage.
func (pq *ProductQuantizer) CompressionRatio() float64 {
	return float64(pq.dim*4) / float64(pq.numSubspaces)
}

// Centroids returns the flat codebook table (dim * NumCentroids float32).
// The table is live; callers must not mutate it while encode or arithmetic
// operations are in flight.
func (pq *ProductQuantizer) Centroids() []float32 {
	return pq.centroids
}
