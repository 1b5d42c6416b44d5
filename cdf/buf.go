package cdf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Buf is a random-access view of the bytes of a (nominally
// uncompressed) CDF file. It carries two mutable configuration flags:
// whether file offsets are 8 bytes wide, and the numeric byte order.
// Both are written during CdfReader construction and must not change
// afterwards.
type Buf struct {
	data      []byte
	bit64     bool
	bigendian bool
}

// NewBuf wraps raw file bytes. The byte order starts big-endian, which
// is what the magic numbers and the CDR are read with.
func NewBuf(data []byte) *Buf {
	return &Buf{data: data, bigendian: true}
}

// derive wraps another byte region, typically an uncompressed one,
// keeping this buffer's configuration.
func (b *Buf) derive(data []byte) *Buf {
	return &Buf{data: data, bit64: b.bit64, bigendian: b.bigendian}
}

func (b *Buf) SetBit64(bit64 bool) {
	b.bit64 = bit64
}

func (b *Buf) Bit64() bool {
	return b.bit64
}

func (b *Buf) SetEncoding(bigendian bool) {
	b.bigendian = bigendian
}

func (b *Buf) Bigendian() bool {
	return b.bigendian
}

func (b *Buf) Len() int64 {
	return int64(len(b.data))
}

func (b *Buf) order() binary.ByteOrder {
	if b.bigendian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// section bounds-checks every access.
func (b *Buf) section(offset, n int64) []byte {
	if offset < 0 || n < 0 || offset > int64(len(b.data))-n {
		fail(fmt.Sprint("read of ", n, " bytes at offset ", offset,
			" overruns buffer of ", len(b.data), " bytes"),
			ErrCorruptedFile)
	}
	return b.data[offset : offset+n]
}

// ReadByte reads one byte at the cursor and advances it.
func (b *Buf) ReadByte(ptr *int64) byte {
	c := b.section(*ptr, 1)[0]
	*ptr += 1
	return c
}

// ReadInt reads a 4-byte signed integer at the cursor and advances it.
func (b *Buf) ReadInt(ptr *int64) int32 {
	v := int32(b.order().Uint32(b.section(*ptr, 4)))
	*ptr += 4
	return v
}

// ReadLong reads an 8-byte signed integer at the cursor and advances it.
func (b *Buf) ReadLong(ptr *int64) int64 {
	v := int64(b.order().Uint64(b.section(*ptr, 8)))
	*ptr += 8
	return v
}

// ReadOffset reads a file offset at the cursor: 8 bytes when the bit64
// flag is set, otherwise 4 bytes sign-extended (sentinel links are -1
// in some writers).
func (b *Buf) ReadOffset(ptr *int64) int64 {
	if b.bit64 {
		return b.ReadLong(ptr)
	}
	return int64(b.ReadInt(ptr))
}

// ReadChars reads a fixed-width NUL-terminated ASCII region. Bytes
// after the first NUL are ignored; non-NUL bytes there are suspect and
// logged, never silently folded into the name.
func (b *Buf) ReadChars(offset int64, count int) string {
	raw := b.section(offset, int64(count))
	end := count
	for i, c := range raw {
		if c == 0 {
			end = i
			break
		}
	}
	for i := end + 1; i < count; i++ {
		if raw[i] != 0 {
			logger.Warnf("non-NUL bytes after terminator in %d-byte name field %q",
				count, string(raw[:end]))
			break
		}
	}
	return string(raw[:end])
}

// ReadBytes copies n raw bytes starting at offset.
func (b *Buf) ReadBytes(offset int64, n int64) []byte {
	ret := make([]byte, n)
	copy(ret, b.section(offset, n))
	return ret
}

// Bulk typed reads. These honour the configured byte order and are the
// back end of DataReader.

func (b *Buf) ReadDataBytes(offset int64, out []int8) {
	raw := b.section(offset, int64(len(out)))
	for i := range out {
		out[i] = int8(raw[i])
	}
}

func (b *Buf) ReadDataUBytes(offset int64, out []uint8) {
	copy(out, b.section(offset, int64(len(out))))
}

func (b *Buf) ReadDataShorts(offset int64, out []int16) {
	raw := b.section(offset, int64(len(out))*2)
	order := b.order()
	for i := range out {
		out[i] = int16(order.Uint16(raw[i*2:]))
	}
}

func (b *Buf) ReadDataUShorts(offset int64, out []uint16) {
	raw := b.section(offset, int64(len(out))*2)
	order := b.order()
	for i := range out {
		out[i] = order.Uint16(raw[i*2:])
	}
}

func (b *Buf) ReadDataInts(offset int64, out []int32) {
	raw := b.section(offset, int64(len(out))*4)
	order := b.order()
	for i := range out {
		out[i] = int32(order.Uint32(raw[i*4:]))
	}
}

func (b *Buf) ReadDataUInts(offset int64, out []uint32) {
	raw := b.section(offset, int64(len(out))*4)
	order := b.order()
	for i := range out {
		out[i] = order.Uint32(raw[i*4:])
	}
}

func (b *Buf) ReadDataLongs(offset int64, out []int64) {
	raw := b.section(offset, int64(len(out))*8)
	order := b.order()
	for i := range out {
		out[i] = int64(order.Uint64(raw[i*8:]))
	}
}

func (b *Buf) ReadDataFloats(offset int64, out []float32) {
	raw := b.section(offset, int64(len(out))*4)
	order := b.order()
	for i := range out {
		out[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
	}
}

func (b *Buf) ReadDataDoubles(offset int64, out []float64) {
	raw := b.section(offset, int64(len(out))*8)
	order := b.order()
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
	}
}
