package cdf

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/batchatco/go-thrower"
)

// Sparse-record styles (VDR sRecords field).
const (
	sRecordsNone     = 0
	sRecordsPad      = 1
	sRecordsPrevious = 2
)

// Variable realises per-record read access on top of a VDR. Structural
// state is immutable after construction; ReadShapedRecord may be called
// from multiple goroutines provided each owns its raw work array.
type Variable struct {
	vdr       *vdrRecord
	buf       *Buf
	factory   *RecordFactory
	dataType  DataType
	numElems  int
	dimSizes  []int
	dimVarys  []bool
	shaper    Shaper
	reader    *DataReader
	recBytes  int64
	padOffset int64
	compress  CdfCompression // nil unless the VDR compression flag is set

	mapOnce sync.Once
	mapErr  error
	recMap  *recordMap

	padOnce sync.Once
	padErr  error
	padArr  any
}

func newVariable(vdr *vdrRecord, info CdfInfo, buf *Buf, factory *RecordFactory) *Variable {
	v := &Variable{
		vdr:      vdr,
		buf:      buf,
		factory:  factory,
		dataType: getDataType(vdr.dataType),
		numElems: int(vdr.numElems),
	}
	if vdr.zVariable {
		v.dimSizes = intsOf(vdr.zDimSizes)
	} else {
		v.dimSizes = info.RDimSizes
	}
	ndim := len(v.dimSizes)
	varysRaw := make([]int32, ndim)
	buf.ReadDataInts(vdr.dimVarysOffset, varysRaw)
	v.dimVarys = make([]bool, ndim)
	for i, x := range varysRaw {
		v.dimVarys[i] = x != 0
	}
	v.padOffset = vdr.dimVarysOffset + int64(ndim)*4

	v.shaper = createShaper(v.dataType, v.dimSizes, v.dimVarys, info.RowMajor)
	v.reader = NewDataReader(v.dataType, v.numElems, v.shaper.RawItemCount())
	v.recBytes = v.reader.RecordSize()

	if vdr.compressed() {
		assert(vdr.cprOrSprOffset > 0,
			fmt.Sprintf("compressed variable %q has no CPR", vdr.name),
			ErrCorruptedFile)
		cpr := factory.createCPR(buf, vdr.cprOrSprOffset)
		v.compress = getCompression(cpr.cType)
	}
	return v
}

// Name returns the variable's name.
func (v *Variable) Name() string {
	return v.vdr.name
}

// Num is the variable's index within its kind (r- or z-variables count
// separately); per-variable attribute entries are looked up by it.
func (v *Variable) Num() int {
	return int(v.vdr.num)
}

// IsZVariable reports whether the variable carries its own dimension
// descriptor rather than sharing the CDF-wide one.
func (v *Variable) IsZVariable() bool {
	return v.vdr.zVariable
}

func (v *Variable) DataType() DataType {
	return v.dataType
}

func (v *Variable) Shaper() Shaper {
	return v.shaper
}

// RecordVariance reports whether the value changes across records;
// false means a single stored record serves every index.
func (v *Variable) RecordVariance() bool {
	return v.vdr.recordVariance()
}

// RecordCount is the number of declared records, maxRec+1. A variable
// with no records reports 0.
func (v *Variable) RecordCount() int64 {
	return int64(v.vdr.maxRec) + 1
}

// Summary is a one-line description for diagnostics.
func (v *Variable) Summary() string {
	kind := "r-variable"
	if v.vdr.zVariable {
		kind = "z-variable"
	}
	dims := ""
	if len(v.dimSizes) > 0 {
		parts := make([]string, len(v.dimSizes))
		for i, sz := range v.dimSizes {
			parts[i] = fmt.Sprint(sz)
			if !v.dimVarys[i] {
				parts[i] += "*"
			}
		}
		dims = " [" + strings.Join(parts, ",") + "]"
	}
	variance := ""
	if !v.RecordVariance() {
		variance = ", no record variance"
	}
	return fmt.Sprintf("%s %s%s, %d records%s",
		v.dataType, kind, dims, v.RecordCount(), variance)
}

// CreateRawValueArray allocates a work array sized for one raw record.
// Callers reading from several goroutines allocate one each.
func (v *Variable) CreateRawValueArray() any {
	return v.reader.CreateValueArray()
}

// ReadRawRecord fills work (allocated if nil) with the raw elements of
// record irec and returns it. Implicit records beyond maxRec yield the
// pad value, or the type's fill value when no pad was declared.
func (v *Variable) ReadRawRecord(irec int64, work any) (raw any, err error) {
	defer thrower.RecoverError(&err)
	return v.readRaw(irec, work), nil
}

// ReadShapedRecord reads record irec and shapes it: a scalar for
// single-item records unless preserveFixedArray holds the fixed array
// form, otherwise a flat row-major array. The work array, when given,
// keeps the read allocation-free; the returned value never aliases it.
func (v *Variable) ReadShapedRecord(irec int64, preserveFixedArray bool, work any) (value any, err error) {
	defer thrower.RecoverError(&err)
	raw := v.readRaw(irec, work)
	return v.shaper.Shape(raw, !preserveFixedArray), nil
}

func (v *Variable) readRaw(irec int64, work any) any {
	if irec < 0 || irec > math.MaxInt32 {
		fail(fmt.Sprint("record index does not fit a 32-bit signed integer: ",
			irec), ErrRecordIndex)
	}
	if work == nil {
		work = v.reader.CreateValueArray()
	}
	rec := int32(irec)
	if !v.vdr.recordVariance() {
		rec = 0
	}
	if rec > v.vdr.maxRec {
		v.fillPad(work)
		return work
	}
	blk, prev := v.recordMap().find(rec)
	switch {
	case blk != nil:
		v.readBlockRecord(blk, rec, work)
	case v.vdr.sRecords == sRecordsPrevious && prev != nil:
		v.readBlockRecord(prev, prev.last, work)
	default:
		v.fillPad(work)
	}
	return work
}

func (v *Variable) readBlockRecord(blk *recordBlock, rec int32, work any) {
	if !blk.compressed {
		v.reader.ReadValue(v.buf,
			blk.dataOffset+int64(rec-blk.first)*v.recBytes, work)
		return
	}
	bb := blk.data(v)
	v.reader.ReadValue(bb, int64(rec-blk.first)*v.recBytes, work)
}

func (v *Variable) fillPad(work any) {
	v.padOnce.Do(func() {
		defer thrower.RecoverError(&v.padErr)
		v.padArr = v.makePadRecord()
	})
	thrower.ThrowIfError(v.padErr)
	reflect.Copy(reflect.ValueOf(work), reflect.ValueOf(v.padArr))
}

// makePadRecord builds a full raw record from the VDR's inline pad
// value, or from the type's default fill value (zero, space-filled for
// character types) when none was declared.
func (v *Variable) makePadRecord() any {
	itemReader := NewDataReader(v.dataType, v.numElems, 1)
	item := itemReader.CreateValueArray()
	if v.vdr.hasPad() {
		itemReader.ReadValue(v.buf, v.padOffset, item)
	} else if v.dataType.IsString() {
		item.([]string)[0] = strings.Repeat(" ", v.numElems)
	}
	full := v.reader.CreateValueArray()
	fv := reflect.ValueOf(full)
	iv := reflect.ValueOf(item)
	ilen := iv.Len()
	for i := 0; i < fv.Len(); i++ {
		fv.Index(i).Set(iv.Index(i % ilen))
	}
	return full
}

// recordBlock is one leaf of the VXR index: a contiguous run of
// records stored in a VVR or a CVVR.
type recordBlock struct {
	first      int32
	last       int32
	dataOffset int64
	cSize      int64
	compressed bool

	once     sync.Once
	blockErr error
	blockBuf *Buf
}

// data returns the uncompressed view of a CVVR block, expanding it
// exactly once.
func (b *recordBlock) data(v *Variable) *Buf {
	b.once.Do(func() {
		defer thrower.RecoverError(&b.blockErr)
		nrec := int64(b.last-b.first) + 1
		b.blockBuf = uncompressBuf(v.compress, v.buf,
			b.dataOffset, b.cSize, nrec*v.recBytes)
	})
	thrower.ThrowIfError(b.blockErr)
	return b.blockBuf
}

type recordMap struct {
	blocks []*recordBlock
}

// find locates the block containing rec, or, failing that, the nearest
// preceding block (for sparse PREVIOUS resolution).
func (m *recordMap) find(rec int32) (blk, prev *recordBlock) {
	i := sort.Search(len(m.blocks), func(i int) bool {
		return m.blocks[i].first > rec
	}) - 1
	if i < 0 {
		return nil, nil
	}
	b := m.blocks[i]
	if rec <= b.last {
		return b, nil
	}
	return nil, b
}

func (v *Variable) recordMap() *recordMap {
	v.mapOnce.Do(func() {
		defer thrower.RecoverError(&v.mapErr)
		v.recMap = v.buildRecordMap()
	})
	thrower.ThrowIfError(v.mapErr)
	return v.recMap
}

// buildRecordMap walks the VXR chain, following nested VXR subtrees,
// and flattens the leaves into a sorted block list. Offsets already
// visited fail the walk so malformed links cannot loop.
func (v *Variable) buildRecordMap() *recordMap {
	var blocks []*recordBlock
	seen := make(map[int64]bool)

	var walk func(head int64)
	walk = func(head int64) {
		off := head
		for off > 0 {
			assert(!seen[off],
				fmt.Sprintf("VXR list of variable %q loops at offset %d",
					v.vdr.name, off), ErrCorruptedFile)
			seen[off] = true
			vxr := v.factory.createVXR(v.buf, off)
			for i := int32(0); i < vxr.nUsedEntries; i++ {
				first := vxr.first[i]
				last := vxr.last[i]
				assert(first >= 0 && first <= last,
					fmt.Sprintf("bad record range [%d,%d] in VXR of variable %q",
						first, last, v.vdr.name), ErrCorruptedFile)
				target := vxr.offsets[i]
				switch recType := v.factory.recordType(v.buf, target); recType {
				case recTypeVXR:
					walk(target)
				case recTypeVVR:
					vvr := v.factory.createVVR(v.buf, target)
					blocks = append(blocks, &recordBlock{
						first:      first,
						last:       last,
						dataOffset: vvr.dataOffset,
					})
				case recTypeCVVR:
					assert(v.compress != nil,
						fmt.Sprintf("compressed block in uncompressed variable %q",
							v.vdr.name), ErrCorruptedFile)
					cvvr := v.factory.createCVVR(v.buf, target)
					blocks = append(blocks, &recordBlock{
						first:      first,
						last:       last,
						dataOffset: cvvr.dataOffset,
						cSize:      cvvr.cSize,
						compressed: true,
					})
				default:
					fail(fmt.Sprintf("VXR of variable %q points at %s record",
						v.vdr.name, recordTypeName(recType)), ErrCorruptedFile)
				}
			}
			off = vxr.vxrNext
		}
	}
	walk(v.vdr.vxrHead)

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].first < blocks[j].first
	})
	return &recordMap{blocks: blocks}
}
