// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicom

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// DataReader is a wrapper around an in-memory buffer, providing bounds checked reads of tags,
// numbers and typed arrays at arbitrary offsets in a configurable byte order.
type DataReader struct {
	buf          []byte
	order        binary.ByteOrder
	littleEndian bool
	needFlip     bool
}

// NewDataReader returns a DataReader over buf. littleEndian selects the byte order of every
// multi-byte read.
func NewDataReader(buf []byte, littleEndian bool) *DataReader {
	var order binary.ByteOrder = binary.LittleEndian
	if !littleEndian {
		order = binary.BigEndian
	}
	return &DataReader{
		buf:          buf,
		order:        order,
		littleEndian: littleEndian,
		needFlip:     littleEndian != NativeLittleEndian(),
	}
}

// NativeLittleEndian reports whether the host stores multi-byte integers least significant
// byte first.
func NativeLittleEndian() bool {
	probe := uint16(1)
	return *(*byte)(unsafe.Pointer(&probe)) == 1
}

// Len returns the size of the underlying buffer.
func (r *DataReader) Len() int {
	return len(r.buf)
}

// ByteOrder returns the byte order used by r.
func (r *DataReader) ByteOrder() binary.ByteOrder {
	return r.order
}

// IsLittleEndian reports whether r reads little endian values.
func (r *DataReader) IsLittleEndian() bool {
	return r.littleEndian
}

func (r *DataReader) check(offset, size int) error {
	if offset < 0 || size < 0 || offset > len(r.buf) || size > len(r.buf)-offset {
		return parseError(offset, fmt.Errorf("reading %d bytes from buffer of length %d: %w",
			size, len(r.buf), ErrOutOfBounds))
	}
	return nil
}

// Uint8 returns the byte at offset.
func (r *DataReader) Uint8(offset int) (uint8, error) {
	if err := r.check(offset, 1); err != nil {
		return 0, err
	}
	return r.buf[offset], nil
}

// Int8 returns the signed byte at offset.
func (r *DataReader) Int8(offset int) (int8, error) {
	v, err := r.Uint8(offset)
	return int8(v), err
}

// Uint16 returns a uint16 read at offset.
func (r *DataReader) Uint16(offset int) (uint16, error) {
	if err := r.check(offset, 2); err != nil {
		return 0, err
	}
	return r.order.Uint16(r.buf[offset:]), nil
}

// Int16 returns an int16 read at offset.
func (r *DataReader) Int16(offset int) (int16, error) {
	v, err := r.Uint16(offset)
	return int16(v), err
}

// Uint32 returns a uint32 read at offset.
func (r *DataReader) Uint32(offset int) (uint32, error) {
	if err := r.check(offset, 4); err != nil {
		return 0, err
	}
	return r.order.Uint32(r.buf[offset:]), nil
}

// Int32 returns an int32 read at offset.
func (r *DataReader) Int32(offset int) (int32, error) {
	v, err := r.Uint32(offset)
	return int32(v), err
}

// Uint64 returns a uint64 read at offset.
func (r *DataReader) Uint64(offset int) (uint64, error) {
	if err := r.check(offset, 8); err != nil {
		return 0, err
	}
	return r.order.Uint64(r.buf[offset:]), nil
}

// Int64 returns an int64 read at offset.
func (r *DataReader) Int64(offset int) (int64, error) {
	v, err := r.Uint64(offset)
	return int64(v), err
}

// Float32 returns an IEEE 754 single precision number read at offset.
func (r *DataReader) Float32(offset int) (float32, error) {
	v, err := r.Uint32(offset)
	return math.Float32frombits(v), err
}

// Float64 returns an IEEE 754 double precision number read at offset.
func (r *DataReader) Float64(offset int) (float64, error) {
	v, err := r.Uint64(offset)
	return math.Float64frombits(v), err
}

// Bytes returns the size bytes starting at offset. The returned slice shares memory with the
// buffer of r; its capacity is clipped so appending to it never overwrites the buffer.
func (r *DataReader) Bytes(offset, size int) ([]byte, error) {
	if err := r.check(offset, size); err != nil {
		return nil, err
	}
	return r.buf[offset : offset+size : offset+size], nil
}

// Hex returns the 16-bit value at offset formatted as "0xXXXX".
func (r *DataReader) Hex(offset int) (string, error) {
	v, err := r.Uint16(offset)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%04X", v), nil
}

// Tag returns the data element tag encoded at offset as a group number followed by an element
// number.
func (r *DataReader) Tag(offset int) (DataElementTag, error) {
	group, err := r.Uint16(offset)
	if err != nil {
		return 0, err
	}
	element, err := r.Uint16(offset + 2)
	if err != nil {
		return 0, err
	}
	return NewTag(group, element), nil
}

// BinaryBitArray expands size bytes of packed bits starting at offset into one byte per bit,
// 0 or 255, least significant bit first.
func (r *DataReader) BinaryBitArray(offset, size int) ([]uint8, error) {
	packed, err := r.Bytes(offset, size)
	if err != nil {
		return nil, err
	}
	data := make([]uint8, 8*len(packed))
	for i := range data {
		if packed[i/8]&(1<<(i%8)) != 0 {
			data[i] = 255
		}
	}
	return data, nil
}

// Uint8Array returns a copy of size bytes starting at offset.
func (r *DataReader) Uint8Array(offset, size int) ([]uint8, error) {
	return readArray(r, offset, size, r.Uint8)
}

// Int8Array returns size bytes starting at offset as signed bytes.
func (r *DataReader) Int8Array(offset, size int) ([]int8, error) {
	return readArray(r, offset, size, r.Int8)
}

// Uint16Array returns the size bytes starting at offset as uint16 values.
func (r *DataReader) Uint16Array(offset, size int) ([]uint16, error) {
	return readArray(r, offset, size, r.Uint16)
}

// Int16Array returns the size bytes starting at offset as int16 values.
func (r *DataReader) Int16Array(offset, size int) ([]int16, error) {
	return readArray(r, offset, size, r.Int16)
}

// Uint32Array returns the size bytes starting at offset as uint32 values.
func (r *DataReader) Uint32Array(offset, size int) ([]uint32, error) {
	return readArray(r, offset, size, r.Uint32)
}

// Int32Array returns the size bytes starting at offset as int32 values.
func (r *DataReader) Int32Array(offset, size int) ([]int32, error) {
	return readArray(r, offset, size, r.Int32)
}

// Uint64Array returns the size bytes starting at offset as uint64 values.
func (r *DataReader) Uint64Array(offset, size int) ([]uint64, error) {
	return readArray(r, offset, size, r.Uint64)
}

// Int64Array returns the size bytes starting at offset as int64 values.
func (r *DataReader) Int64Array(offset, size int) ([]int64, error) {
	return readArray(r, offset, size, r.Int64)
}

// Float32Array returns the size bytes starting at offset as float32 values.
func (r *DataReader) Float32Array(offset, size int) ([]float32, error) {
	return readArray(r, offset, size, r.Float32)
}

// Float64Array returns the size bytes starting at offset as float64 values.
func (r *DataReader) Float64Array(offset, size int) ([]float64, error) {
	return readArray(r, offset, size, r.Float64)
}

type number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

// readArray reads size/sizeof(T) values starting at offset. When offset is a multiple of
// sizeof(T) the bytes are copied as native values and flipped in place if the byte order of r
// is not the host order. Otherwise every value is read on its own with scalar.
func readArray[T number](r *DataReader, offset, size int, scalar func(int) (T, error)) ([]T, error) {
	if err := r.check(offset, size); err != nil {
		return nil, err
	}

	var zero T
	bpe := int(unsafe.Sizeof(zero))
	n := size / bpe
	data := make([]T, n)
	if n == 0 {
		return data, nil
	}

	if offset%bpe != 0 {
		for i := range data {
			v, err := scalar(offset + i*bpe)
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return data, nil
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), n*bpe)
	copy(raw, r.buf[offset:offset+n*bpe])
	if r.needFlip && bpe > 1 {
		flipEndianness(raw, bpe)
	}
	return data, nil
}

// flipEndianness reverses the bytes of every bpe sized word in b.
func flipEndianness(b []byte, bpe int) {
	for i := 0; i+bpe <= len(b); i += bpe {
		for j, k := i, i+bpe-1; j < k; j, k = j+1, k-1 {
			b[j], b[k] = b[k], b[j]
		}
	}
}
