package kmeans

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/innerNULL/pqcodec/internal/math32"
)

// ErrTooFewPoints is returned when the training set has fewer points than
// the requested number of clusters.
var ErrTooFewPoints = errors.New("kmeans: fewer points than clusters")

// Assign returns the index of the centroid nearest to x among the centroids
// stored contiguously at width d, together with the squared L2 distance.
// On ties the lowest index wins.
func Assign(x, centroids []float32, d int) (int, float32) {
	best := 0
	bestDist := math32.SquaredL2(x, centroids[:d])

	k := len(centroids) / d
	for j := 1; j < k; j++ {
		dist := math32.SquaredL2(x, centroids[j*d:(j+1)*d])
		if dist < bestDist {
			best = j
			bestDist = dist
		}
	}

	return best, bestDist
}

// Trainer runs fixed-budget EM clustering over a flat point set.
//
// The random source is owned by the caller and mutated sequentially; a Trainer
// must not be shared across goroutines.
type Trainer struct {
	// K is the number of clusters to produce.
	K int
	// Iterations is the fixed EM budget. There is no convergence check.
	Iterations int
	// Epsilon is the perturbation applied when splitting a donor cluster
	// into an empty slot.
	Epsilon float32
	// Rng drives centroid seeding and donor selection.
	Rng *rand.Rand
}

// Train clusters n points of dimension d (stored flat in points) into t.K
// centroids, written flat into centroids (t.K * d float32).
func (t *Trainer) Train(points []float32, n, d int, centroids []float32) error {
	if n < t.K {
		return ErrTooFewPoints
	}

	// Seed each centroid from a distinct random point.
	perm := t.Rng.Perm(n)
	for i := 0; i < t.K; i++ {
		copy(centroids[i*d:(i+1)*d], points[perm[i]*d:(perm[i]+1)*d])
	}

	codes := make([]uint8, n)
	counts := make([]int, t.K)

	for iter := 0; iter < t.Iterations; iter++ {
		t.estep(points, centroids, codes, n, d)
		t.mstep(points, centroids, codes, counts, n, d)
	}

	return nil
}

// estep assigns every point to its nearest centroid.
func (t *Trainer) estep(points, centroids []float32, codes []uint8, n, d int) {
	for i := 0; i < n; i++ {
		idx, _ := Assign(points[i*d:(i+1)*d], centroids[:t.K*d], d)
		codes[i] = uint8(idx)
	}
}

// mstep recomputes each centroid as the mean of its assigned points, then
// reseeds any cluster left empty.
func (t *Trainer) mstep(points, centroids []float32, codes []uint8, counts []int, n, d int) {
	for i := range counts {
		counts[i] = 0
	}
	for i := range centroids[:t.K*d] {
		centroids[i] = 0
	}

	for i := 0; i < n; i++ {
		k := int(codes[i])
		counts[k]++
		math32.Axpy(1, points[i*d:(i+1)*d], centroids[k*d:(k+1)*d])
	}

	for k := 0; k < t.K; k++ {
		if counts[k] > 0 {
			math32.Scale(centroids[k*d:(k+1)*d], 1/float32(counts[k]))
		}
	}

	t.reseedEmpty(centroids, counts, d)
}

// reseedEmpty splits a donor cluster into every empty slot. Donors are drawn
// with weight count-1, so singleton and empty clusters never donate. The
// halved counts written here are bookkeeping for subsequent donor draws only;
// the next E-step recomputes true assignments.
func (t *Trainer) reseedEmpty(centroids []float32, counts []int, d int) {
	cum := make([]int, t.K)

	for k := 0; k < t.K; k++ {
		if counts[k] != 0 {
			continue
		}

		total := 0
		for m := 0; m < t.K; m++ {
			if counts[m] > 1 {
				total += counts[m] - 1
			}
			cum[m] = total
		}
		if total == 0 {
			continue
		}

		r := t.Rng.Intn(total)
		donor := sort.Search(t.K, func(m int) bool { return cum[m] > r })

		t.split(centroids, counts, donor, k, d)
	}
}

// split copies the donor centroid into the empty slot and nudges the pair
// apart with an alternating-sign epsilon, leaving their mean unchanged.
func (t *Trainer) split(centroids []float32, counts []int, donor, empty, d int) {
	src := centroids[donor*d : (donor+1)*d]
	dst := centroids[empty*d : (empty+1)*d]
	copy(dst, src)

	for j := 0; j < d; j++ {
		if j%2 == 0 {
			dst[j] += t.Epsilon
			src[j] -= t.Epsilon
		} else {
			dst[j] -= t.Epsilon
			src[j] += t.Epsilon
		}
	}

	counts[empty] = counts[donor] / 2
	counts[donor] -= counts[empty]
}
