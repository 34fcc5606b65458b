package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unsafe"
)

// ErrUnalignedAccess is returned when a payload slice is not suitably aligned
// for raw byte reinterpretation.
var ErrUnalignedAccess = errors.New("unaligned memory access detected")

// BinaryWriter writes codebook streams in little-endian binary format.
type BinaryWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder
}

// NewBinaryWriter creates a new binary writer.
func NewBinaryWriter(w io.Writer) *BinaryWriter {
	return &BinaryWriter{
		w:         w,
		byteOrder: binary.LittleEndian,
	}
}

// WriteInt32 writes a single fixed-width integer.
func (bw *BinaryWriter) WriteInt32(v int32) error {
	return binary.Write(bw.w, bw.byteOrder, v)
}

// WriteFloat32Slice writes a float32 slice as raw bytes (zero-copy).
// Safety: validates alignment before the unsafe conversion.
func (bw *BinaryWriter) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}

	if err := validateFloat32SliceAlignment(vec); err != nil {
		return err
	}

	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// BinaryReader reads codebook streams written by BinaryWriter.
type BinaryReader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
}

// NewBinaryReader creates a new binary reader.
func NewBinaryReader(r io.Reader) *BinaryReader {
	return &BinaryReader{
		r:         r,
		byteOrder: binary.LittleEndian,
	}
}

// ReadInt32 reads a single fixed-width integer.
func (br *BinaryReader) ReadInt32() (int32, error) {
	var v int32
	if err := binary.Read(br.r, br.byteOrder, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// ReadFloat32SliceInto reads exactly len(vec) float32 values into vec.
// A short stream surfaces as io.ErrUnexpectedEOF.
func (br *BinaryReader) ReadFloat32SliceInto(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}

	if err := validateFloat32SliceAlignment(vec); err != nil {
		return err
	}

	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return err
	}
	return nil
}

// validateFloat32SliceAlignment checks that a float32 slice is 4-byte aligned.
func validateFloat32SliceAlignment(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}

	ptr := uintptr(unsafe.Pointer(&vec[0]))
	if ptr%4 != 0 {
		return fmt.Errorf("%w: float32 slice at address 0x%x", ErrUnalignedAccess, ptr)
	}
	return nil
}
