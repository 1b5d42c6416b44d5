package cdf

import (
	"fmt"
	"reflect"
)

// DataReader allocates and fills raw value arrays for one kind of
// stored value: nItem items of a data type, each of numElems elements.
// numElems is 1 for numeric types and the string length for character
// types.
type DataReader struct {
	dataType DataType
	numElems int
	nItem    int
}

func NewDataReader(dataType DataType, numElems int, nItem int) *DataReader {
	return &DataReader{dataType: dataType, numElems: numElems, nItem: nItem}
}

// CreateValueArray allocates the typed raw array for one record.
// Character items count as one element each (a string); EPOCH16 items
// occupy two.
func (r *DataReader) CreateValueArray() any {
	return r.dataType.createArray(r.nItem * r.elemsPerItem())
}

func (r *DataReader) elemsPerItem() int {
	if r.dataType.IsString() {
		return 1
	}
	return r.numElems * r.dataType.GroupSize()
}

// RecordSize is the stored size in bytes of one record.
func (r *DataReader) RecordSize() int64 {
	return int64(r.nItem) * int64(r.numElems) *
		int64(r.dataType.ByteCount()) * int64(r.dataType.GroupSize())
}

// ReadValue fills the raw array with one record's worth of elements
// starting at the given buffer offset.
func (r *DataReader) ReadValue(buf *Buf, offset int64, array any) {
	want := reflect.SliceOf(r.dataType.ElementType())
	if got := reflect.TypeOf(array); got != want {
		fail(fmt.Sprintf("raw array is %v, want %v for %v",
			got, want, r.dataType), ErrUnknownType)
	}
	r.dataType.readArray(buf, offset, r.numElems, array)
}
