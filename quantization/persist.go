package quantization

import (
	"bytes"
	"fmt"
	"io"

	"github.com/innerNULL/pqcodec/persistence"
)

// Save writes the trained codebooks to w in fixed little-endian binary form:
// dim, numSubspaces, subspaceDim, lastSubspaceDim as int32, followed by
// dim * NumCentroids float32 values. NumCentroids itself is not persisted;
// writer and reader share it at build time.
func (pq *ProductQuantizer) Save(w io.Writer) error {
	if !pq.trained {
		return ErrNotTrained
	}

	bw := persistence.NewBinaryWriter(w)
	for _, v := range []int32{
		int32(pq.dim),
		int32(pq.numSubspaces),
		int32(pq.subspaceDim),
		int32(pq.lastSubspaceDim),
	} {
		if err := bw.WriteInt32(v); err != nil {
			return fmt.Errorf("write shape: %w", err)
		}
	}

	if err := bw.WriteFloat32Slice(pq.centroids); err != nil {
		return fmt.Errorf("write centroids: %w", err)
	}
	return nil
}

// Load replaces the quantizer's shape and codebooks with the stream's
// contents. The stream must have been produced by Save with the same
// NumCentroids. Shape metadata is validated before the table is read.
func (pq *ProductQuantizer) Load(r io.Reader) error {
	br := persistence.NewBinaryReader(r)

	var shape [4]int32
	for i := range shape {
		v, err := br.ReadInt32()
		if err != nil {
			return fmt.Errorf("read shape: %w", err)
		}
		shape[i] = v
	}

	dim := int(shape[0])
	numSubspaces := int(shape[1])
	subspaceDim := int(shape[2])
	lastSubspaceDim := int(shape[3])

	if dim <= 0 || numSubspaces <= 0 || subspaceDim <= 0 || lastSubspaceDim <= 0 {
		return fmt.Errorf("%w: non-positive dimension", ErrInvalidShape)
	}
	if lastSubspaceDim > subspaceDim {
		return fmt.Errorf("%w: last subspace wider than subspace width", ErrInvalidShape)
	}
	if (numSubspaces-1)*subspaceDim+lastSubspaceDim != dim {
		return fmt.Errorf("%w: subspace widths do not sum to dim", ErrInvalidShape)
	}

	centroids := make([]float32, dim*NumCentroids)
	if err := br.ReadFloat32SliceInto(centroids); err != nil {
		return fmt.Errorf("read centroids: %w", err)
	}

	pq.dim = dim
	pq.numSubspaces = numSubspaces
	pq.subspaceDim = subspaceDim
	pq.lastSubspaceDim = lastSubspaceDim
	pq.centroids = centroids
	pq.trained = true
	return nil
}

// SaveCompressed writes the Save stream wrapped in a single compressed block.
// The compression type is not recorded in the stream; reader and writer agree
// on it out of band.
func (pq *ProductQuantizer) SaveCompressed(w io.Writer, compression persistence.CompressionType) error {
	var buf bytes.Buffer
	if err := pq.Save(&buf); err != nil {
		return err
	}

	block, err := persistence.CompressBlock(buf.Bytes(), compression)
	if err != nil {
		return fmt.Errorf("compress codebooks: %w", err)
	}

	_, err = w.Write(block)
	return err
}

// LoadCompressed reads a stream written by SaveCompressed.
func (pq *ProductQuantizer) LoadCompressed(r io.Reader, compression persistence.CompressionType) error {
	block, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read block: %w", err)
	}

	data, err := persistence.DecompressBlock(block, compression)
	if err != nil {
		return fmt.Errorf("decompress codebooks: %w", err)
	}

	return pq.Load(bytes.NewReader(data))
}

// LoadFrom reads a Save stream into a fresh quantizer. The stream supplies
// the shape; constructor arguments are not needed.
func LoadFrom(r io.Reader, opts ...Option) (*ProductQuantizer, error) {
	pq, err := New(1, 1, opts...)
	if err != nil {
		return nil, err
	}
	if err := pq.Load(r); err != nil {
		return nil, err
	}
	return pq, nil
}
