// Package kmeans implements the EM clustering engine used to train product
// quantization codebooks.
//
// Centroids are stored flat (k * d float32) and trained with a fixed iteration
// budget: an assignment step (nearest centroid by squared L2, lowest index on
// ties) alternating with a mean-update step. Clusters left empty by an update
// are recovered by splitting a populous donor cluster in place.
package kmeans
