package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType defines the compression algorithm used by the block container.
type CompressionType uint8

const (
	// CompressionNone stores blocks raw.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD block compression (better ratio).
	CompressionZSTD CompressionType = 2
)

var (
	// ErrBlockTooSmall is returned when a block is shorter than its header
	// or declared payload size.
	ErrBlockTooSmall = errors.New("block too small")
	// ErrBlockSizeMismatch is returned when decompression yields a different
	// size than the block header declares.
	ErrBlockSizeMismatch = errors.New("decompressed size mismatch")
	// ErrUnknownCompression is returned for an unrecognized compression type
	// tag, or a tag inconsistent with the block's framing.
	ErrUnknownCompression = errors.New("unknown compression type")
)

// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// CompressedSize == 0 means the payload is stored raw.
const blockHeaderSize = 8

// ZSTD encoder/decoder pools for efficiency.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// CompressBlock wraps data in a framed block, compressed with the given
// algorithm. Incompressible payloads (ratio > 0.9) are stored raw.
func CompressBlock(data []byte, compressionType CompressionType) ([]byte, error) {
	var compressed []byte
	var err error

	switch compressionType {
	case CompressionLZ4:
		compressed, err = compressBlockLZ4(data)
	case CompressionZSTD:
		compressed, err = compressBlockZSTD(data)
	case CompressionNone:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, compressionType)
	}

	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

func compressBlockLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}

	return compressed[:n], nil
}

func compressBlockZSTD(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

// DecompressBlock unwraps a framed block produced by CompressBlock.
func DecompressBlock(block []byte, compressionType CompressionType) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, ErrBlockTooSmall
	}

	// Sizes are compared in int so a hostile header cannot wrap the
	// arithmetic past the length check.
	uncompressedSize := int(binary.LittleEndian.Uint32(block[0:]))
	compressedSize := int(binary.LittleEndian.Uint32(block[4:]))

	if compressedSize == 0 {
		if len(block)-blockHeaderSize < uncompressedSize {
			return nil, ErrBlockTooSmall
		}
		return block[blockHeaderSize : blockHeaderSize+uncompressedSize], nil
	}

	if len(block)-blockHeaderSize < compressedSize {
		return nil, ErrBlockTooSmall
	}

	payload := block[blockHeaderSize : blockHeaderSize+compressedSize]
	result := make([]byte, uncompressedSize)

	switch compressionType {
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(payload, result[:0])
		if err != nil {
			return nil, err
		}
		if len(decoded) != uncompressedSize {
			return nil, ErrBlockSizeMismatch
		}
		return decoded, nil

	case CompressionLZ4:
		n, err := lz4.UncompressBlock(payload, result)
		if err != nil {
			return nil, err
		}
		if n != uncompressedSize {
			return nil, ErrBlockSizeMismatch
		}
		return result, nil

	default:
		// A compressed payload under CompressionNone means the tag and the
		// framing disagree; decoding it anyway would mask corruption.
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, compressionType)
	}
}
