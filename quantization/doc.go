// Package quantization implements product quantization (PQ): lossy compression
// of float32 vectors into short byte codes, with approximate arithmetic
// performed directly on the codes.
//
// A vector of dimension D is partitioned into contiguous subspaces of width
// dsub (the final subspace may be narrower when dsub does not divide D). Each
// subspace gets its own codebook of 256 centroids trained by EM k-means, so a
// compressed vector is one byte per subspace:
//
//	pq, err := quantization.New(128, 16) // 8 subspaces
//	err = pq.Train(n, vectors)           // vectors: n*128 float32, dense
//	code, err := pq.Encode(vec)          // 128 floats → 8 bytes
//
// Approximate arithmetic avoids full reconstruction:
//
//	dot, err := pq.DotCode(probe, codes, t, 1.0) // probe · decode(codes[t])
//	err = pq.AddCode(acc, codes, t, alpha)       // acc += alpha * decode(codes[t])
//
// Trained codebooks serialize to a fixed little-endian byte format via
// Save/Load; SaveCompressed/LoadCompressed wrap the same stream in an LZ4 or
// ZSTD block for storage at rest.
//
// A ProductQuantizer owns a private sequential random source: Train and Load
// must not run concurrently with anything else on the same instance. Once
// trained, Encode, Decode and the code arithmetic are read-only and safe to
// call from multiple goroutines.
package quantization
