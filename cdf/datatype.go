package cdf

import (
	"fmt"
	"reflect"
)

// DataType is CDF's catalogue of scalar primitive types. The numeric
// codes are the ones stored in VDR and AEDR records.
type DataType int32

const (
	Int1       DataType = 1
	Int2       DataType = 2
	Int4       DataType = 4
	Int8       DataType = 8
	UInt1      DataType = 11
	UInt2      DataType = 12
	UInt4      DataType = 14
	Real4      DataType = 21
	Real8      DataType = 22
	Epoch      DataType = 31
	Epoch16    DataType = 32
	TimeTT2000 DataType = 33
	Byte       DataType = 41
	Float      DataType = 44
	Double     DataType = 45
	Char       DataType = 51
	UChar      DataType = 52
)

type dataTypeInfo struct {
	name      string
	byteCount int // bytes per element (per group member)
	groupSize int // elements grouped into one item (2 for EPOCH16)
	elemType  reflect.Type
}

var dataTypeInfos = map[DataType]dataTypeInfo{
	Int1:       {"INT1", 1, 1, reflect.TypeOf(int8(0))},
	Int2:       {"INT2", 2, 1, reflect.TypeOf(int16(0))},
	Int4:       {"INT4", 4, 1, reflect.TypeOf(int32(0))},
	Int8:       {"INT8", 8, 1, reflect.TypeOf(int64(0))},
	UInt1:      {"UINT1", 1, 1, reflect.TypeOf(uint8(0))},
	UInt2:      {"UINT2", 2, 1, reflect.TypeOf(uint16(0))},
	UInt4:      {"UINT4", 4, 1, reflect.TypeOf(uint32(0))},
	Real4:      {"REAL4", 4, 1, reflect.TypeOf(float32(0))},
	Real8:      {"REAL8", 8, 1, reflect.TypeOf(float64(0))},
	Epoch:      {"EPOCH", 8, 1, reflect.TypeOf(float64(0))},
	Epoch16:    {"EPOCH16", 8, 2, reflect.TypeOf(float64(0))},
	TimeTT2000: {"TIME_TT2000", 8, 1, reflect.TypeOf(int64(0))},
	Byte:       {"BYTE", 1, 1, reflect.TypeOf(int8(0))},
	Float:      {"FLOAT", 4, 1, reflect.TypeOf(float32(0))},
	Double:     {"DOUBLE", 8, 1, reflect.TypeOf(float64(0))},
	Char:       {"CHAR", 1, 1, reflect.TypeOf("")},
	UChar:      {"UCHAR", 1, 1, reflect.TypeOf("")},
}

func getDataType(code int32) DataType {
	dt := DataType(code)
	if _, has := dataTypeInfos[dt]; !has {
		fail(fmt.Sprint("unknown data type ", code), ErrUnknownType)
	}
	return dt
}

func (dt DataType) String() string {
	if info, has := dataTypeInfos[dt]; has {
		return info.name
	}
	return fmt.Sprint("type-", int32(dt))
}

// ByteCount is the width in bytes of one stored element. Character
// types report 1; an item of a string variable occupies numElems of
// them.
func (dt DataType) ByteCount() int {
	return dataTypeInfos[dt].byteCount
}

// GroupSize is the number of raw array elements that make up one
// logical item: 2 for EPOCH16, 1 for everything else.
func (dt DataType) GroupSize() int {
	return dataTypeInfos[dt].groupSize
}

// ElementType is the Go type of one raw array element: string for the
// character types, a fixed-width numeric type otherwise.
func (dt DataType) ElementType() reflect.Type {
	return dataTypeInfos[dt].elemType
}

// IsString reports whether items of the type are fixed-length strings.
func (dt DataType) IsString() bool {
	return dt == Char || dt == UChar
}

// createArray allocates a raw value array of n elements (n already
// includes the group size; string types count items, not bytes).
func (dt DataType) createArray(n int) any {
	switch dt {
	case Int1, Byte:
		return make([]int8, n)
	case Int2:
		return make([]int16, n)
	case Int4:
		return make([]int32, n)
	case Int8, TimeTT2000:
		return make([]int64, n)
	case UInt1:
		return make([]uint8, n)
	case UInt2:
		return make([]uint16, n)
	case UInt4:
		return make([]uint32, n)
	case Real4, Float:
		return make([]float32, n)
	case Real8, Double, Epoch, Epoch16:
		return make([]float64, n)
	case Char, UChar:
		return make([]string, n)
	}
	fail(fmt.Sprint("unknown data type ", int32(dt)), ErrUnknownType)
	panic("never gets here")
}

// readArray bulk-reads the whole raw array from the buffer. numElems is
// the per-item element count, which for string types is the string
// length.
func (dt DataType) readArray(buf *Buf, offset int64, numElems int, array any) {
	switch a := array.(type) {
	case []int8:
		buf.ReadDataBytes(offset, a)
	case []int16:
		buf.ReadDataShorts(offset, a)
	case []int32:
		buf.ReadDataInts(offset, a)
	case []int64:
		buf.ReadDataLongs(offset, a)
	case []uint8:
		buf.ReadDataUBytes(offset, a)
	case []uint16:
		buf.ReadDataUShorts(offset, a)
	case []uint32:
		buf.ReadDataUInts(offset, a)
	case []float32:
		buf.ReadDataFloats(offset, a)
	case []float64:
		buf.ReadDataDoubles(offset, a)
	case []string:
		for i := range a {
			raw := buf.ReadBytes(offset+int64(i*numElems), int64(numElems))
			a[i] = string(raw)
		}
	default:
		fail(fmt.Sprintf("raw array of unexpected type %T", array),
			ErrUnknownType)
	}
}
