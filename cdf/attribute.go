package cdf

import (
	"fmt"
	"reflect"
)

// GlobalAttribute is an attribute with global scope: an ordered entry
// list, g-entries followed by z-entries, with nil in sparse slots.
type GlobalAttribute struct {
	name    string
	entries []any
}

func newGlobalAttribute(name string, grEntries, zEntries []any) *GlobalAttribute {
	entries := make([]any, 0, len(grEntries)+len(zEntries))
	entries = append(entries, grEntries...)
	entries = append(entries, zEntries...)
	return &GlobalAttribute{name: name, entries: entries}
}

func (a *GlobalAttribute) Name() string {
	return a.name
}

func (a *GlobalAttribute) Entries() []any {
	return a.entries
}

// VariableAttribute is an attribute with per-variable scope; entries
// are looked up by the variable they annotate.
type VariableAttribute struct {
	name      string
	grEntries []any
	zEntries  []any
}

func newVariableAttribute(name string, grEntries, zEntries []any) *VariableAttribute {
	return &VariableAttribute{name: name, grEntries: grEntries, zEntries: zEntries}
}

func (a *VariableAttribute) Name() string {
	return a.name
}

// Entry returns the attribute's value for the given variable, or nil
// when the variable has none.
func (a *VariableAttribute) Entry(v *Variable) any {
	entries := a.grEntries
	if v.IsZVariable() {
		entries = a.zEntries
	}
	ix := v.Num()
	if ix < 0 || ix >= len(entries) {
		return nil
	}
	return entries[ix]
}

// walkEntryList follows an AEDR chain for exactly its declared count,
// placing each entry's shaped value at its declared index in an array
// of maxent slots. Slots without an entry stay nil. A chain shorter or
// longer than the declared count is a format error.
func (r *CdfReader) walkEntryList(buf *Buf, nent int32, head int64, maxent int32, zEntry bool) []any {
	if maxent < 0 {
		maxent = 0
	}
	entries := make([]any, maxent)
	off := head
	for ie := int32(0); ie < nent; ie++ {
		assert(off > 0, "AEDR list shorter than its declared count",
			ErrCorruptedFile)
		aedr := r.factory.createAEDR(buf, off, zEntry)
		assert(int(aedr.num) < len(entries),
			fmt.Sprintf("entry index %d outside declared maximum %d",
				aedr.num, maxent-1), ErrCorruptedFile)
		assert(entries[aedr.num] == nil,
			fmt.Sprint("duplicate entry index ", aedr.num), ErrCorruptedFile)
		entries[aedr.num] = readEntryValue(buf, aedr)
		off = aedr.aedrNext
	}
	assert(off <= 0, "AEDR list longer than its declared count",
		ErrCorruptedFile)
	return entries
}

// readEntryValue decodes an AEDR's inline value: numElems is the array
// length for numeric types and the string length for character types;
// a single-element value is a scalar, except for EPOCH16, whose one
// element is a pair of doubles and stays a two-element array.
func readEntryValue(buf *Buf, aedr *aedrRecord) any {
	dataType := getDataType(aedr.dataType)
	var reader *DataReader
	if dataType.IsString() {
		reader = NewDataReader(dataType, int(aedr.numElems), 1)
	} else {
		reader = NewDataReader(dataType, 1, int(aedr.numElems))
	}
	array := reader.CreateValueArray()
	reader.ReadValue(buf, aedr.valueOffset, array)
	if dataType.IsString() {
		return array.([]string)[0]
	}
	if aedr.numElems == 1 {
		if dataType.GroupSize() > 1 {
			return array
		}
		return reflect.ValueOf(array).Index(0).Interface()
	}
	return array
}
