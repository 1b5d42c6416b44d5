package cdf

// An in-memory CDF file builder for tests. Records are written in file
// order; forward links (list heads, next pointers) are reserved and
// patched once the target's offset is known.

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"

	"github.com/batchatco/go-native-cdf/util"
)

type fileBuilder struct {
	data  []byte
	bit64 bool
	order binary.ByteOrder
}

func newFileBuilder(bit64 bool) *fileBuilder {
	return &fileBuilder{bit64: bit64, order: binary.BigEndian}
}

func (b *fileBuilder) pos() int64 {
	return int64(len(b.data))
}

func (b *fileBuilder) nameLeng() int {
	if b.bit64 {
		return 256
	}
	return 64
}

func (b *fileBuilder) writeRaw(p []byte) {
	b.data = append(b.data, p...)
}

func (b *fileBuilder) writeInt(v int32) {
	var buf bytes.Buffer
	util.MustWrite(&buf, b.order, v)
	b.writeRaw(buf.Bytes())
}

func (b *fileBuilder) writeLong(v int64) {
	var buf bytes.Buffer
	util.MustWrite(&buf, b.order, v)
	b.writeRaw(buf.Bytes())
}

func (b *fileBuilder) writeOffset(v int64) {
	if b.bit64 {
		b.writeLong(v)
	} else {
		b.writeInt(int32(v))
	}
}

func (b *fileBuilder) writeName(s string, width int) {
	name := make([]byte, width)
	copy(name, s)
	b.writeRaw(name)
}

// reserveOffset writes a zero offset and returns its position for
// patching.
func (b *fileBuilder) reserveOffset() int64 {
	at := b.pos()
	b.writeOffset(0)
	return at
}

func (b *fileBuilder) patchOffset(at int64, v int64) {
	var buf bytes.Buffer
	if b.bit64 {
		util.MustWrite(&buf, b.order, v)
	} else {
		util.MustWrite(&buf, b.order, int32(v))
	}
	copy(b.data[at:], buf.Bytes())
}

// beginRecord reserves the record size field, writes the type tag and
// returns the record's start offset.
func (b *fileBuilder) beginRecord(recType int32) int64 {
	start := b.pos()
	b.writeOffset(0)
	b.writeInt(recType)
	return start
}

func (b *fileBuilder) endRecord(start int64) {
	b.patchOffset(start, b.pos()-start)
}

// Declarative test file description.

type testFile struct {
	bit64     bool
	preV26    bool // pre-version-2.6 magic numbers
	version   int32
	release   int32
	encoding  int32
	flags     int32 // CDR flags
	rDimSizes []int32
	rMaxRec   int32
	vars      []testVar
	attrs     []testAttr
}

type testVar struct {
	name      string
	z         bool
	dataType  DataType
	numElems  int32
	dims      []int32 // z-variable dimension sizes
	varys     []int32
	maxRec    int32
	flags     int32 // VDR flags
	sRecords  int32
	pad       []byte
	cType     int32 // per-variable compression; blocks become CVVRs
	compress  func([]byte) []byte
	blocks    []testBlock
	nestedVxr bool // point a parent VXR entry at the leaf VXR
}

type testBlock struct {
	first int32
	last  int32
	data  []byte
}

type testAttr struct {
	name  string
	scope int32
	maxGr int32
	maxZ  int32
	gr    []testEntry
	z     []testEntry
}

type testEntry struct {
	num      int32
	dataType DataType
	numElems int32
	value    []byte
}

func magicWords(bit64, compressed bool) (uint32, uint32) {
	m1 := uint32(0xcdf26002)
	if bit64 {
		m1 = 0xcdf30001
	}
	m2 := uint32(0x0000ffff)
	if compressed {
		m2 = 0xcccc0001
	}
	return m1, m2
}

func (b *fileBuilder) writeMagic(m1, m2 uint32) {
	var buf bytes.Buffer
	util.MustWriteBE(&buf, m1)
	util.MustWriteBE(&buf, m2)
	b.writeRaw(buf.Bytes())
}

func buildTestFile(cfg testFile) []byte {
	b := newFileBuilder(cfg.bit64)
	if cfg.preV26 {
		b.writeMagic(0x0000ffff, 0x0000ffff)
	} else {
		b.writeMagic(magicWords(cfg.bit64, false))
	}

	// CDR
	cdrStart := b.beginRecord(recTypeCDR)
	gdrOffsetAt := b.reserveOffset()
	b.writeInt(cfg.version)
	b.writeInt(cfg.release)
	b.writeInt(cfg.encoding)
	b.writeInt(cfg.flags)
	b.writeInt(0)  // rfuA
	b.writeInt(0)  // rfuB
	b.writeInt(0)  // increment
	b.writeInt(0)  // rfuD
	b.writeInt(-1) // rfuE
	crLeng := 1945
	if cfg.version > 2 || (cfg.version == 2 && cfg.release >= 6) {
		crLeng = 256
	}
	b.writeName("Common Data Format (CDF)", crLeng)
	b.endRecord(cdrStart)

	// GDR
	var nrVars, nzVars int32
	for _, v := range cfg.vars {
		if v.z {
			nzVars++
		} else {
			nrVars++
		}
	}
	gdrStart := b.beginRecord(recTypeGDR)
	b.patchOffset(gdrOffsetAt, gdrStart)
	rVdrHeadAt := b.reserveOffset()
	zVdrHeadAt := b.reserveOffset()
	adrHeadAt := b.reserveOffset()
	eofAt := b.reserveOffset()
	b.writeInt(nrVars)
	b.writeInt(int32(len(cfg.attrs)))
	b.writeInt(cfg.rMaxRec)
	b.writeInt(int32(len(cfg.rDimSizes)))
	b.writeInt(nzVars)
	b.writeOffset(0) // uirHead
	b.writeInt(0)    // rfuC
	b.writeInt(0)    // leapSecondLastUpdated
	b.writeInt(-1)   // rfuE
	for _, sz := range cfg.rDimSizes {
		b.writeInt(sz)
	}
	b.endRecord(gdrStart)

	// VDRs, r list then z list, chained through vdrNext.
	type varPatch struct {
		v         *testVar
		vxrHeadAt int64
		vxrTailAt int64
		cprAt     int64
	}
	var patches []varPatch
	writeList := func(z bool, headAt int64) {
		prevNextAt := int64(-1)
		num := int32(0)
		for i := range cfg.vars {
			v := &cfg.vars[i]
			if v.z != z {
				continue
			}
			recType := int32(recTypeRVDR)
			if z {
				recType = recTypeZVDR
			}
			start := b.beginRecord(recType)
			if prevNextAt < 0 {
				b.patchOffset(headAt, start)
			} else {
				b.patchOffset(prevNextAt, start)
			}
			prevNextAt = b.reserveOffset() // vdrNext
			b.writeInt(int32(v.dataType))
			b.writeInt(v.maxRec)
			vxrHeadAt := b.reserveOffset()
			vxrTailAt := b.reserveOffset()
			b.writeInt(v.flags)
			b.writeInt(v.sRecords)
			b.writeInt(0)  // rfuB
			b.writeInt(-1) // rfuC
			b.writeInt(-1) // rfuF
			b.writeInt(v.numElems)
			b.writeInt(num)
			cprAt := b.reserveOffset() // cprOrSprOffset
			b.writeInt(0)              // blockingFactor
			b.writeName(v.name, b.nameLeng())
			ndim := len(cfg.rDimSizes)
			if z {
				b.writeInt(int32(len(v.dims)))
				for _, sz := range v.dims {
					b.writeInt(sz)
				}
				ndim = len(v.dims)
			}
			for i := 0; i < ndim; i++ {
				vary := int32(-1)
				if i < len(v.varys) {
					vary = v.varys[i]
				}
				b.writeInt(vary)
			}
			if v.pad != nil {
				b.writeRaw(v.pad)
			}
			b.endRecord(start)
			patches = append(patches, varPatch{
				v: v, vxrHeadAt: vxrHeadAt, vxrTailAt: vxrTailAt, cprAt: cprAt,
			})
			num++
		}
	}
	writeList(false, rVdrHeadAt)
	writeList(true, zVdrHeadAt)

	// Data records and VXRs.
	for _, p := range patches {
		v := p.v
		if v.cType != 0 {
			cprStart := b.beginRecord(recTypeCPR)
			b.writeInt(v.cType)
			b.writeInt(0) // rfuA
			b.writeInt(1) // pCount
			b.writeInt(0)
			b.endRecord(cprStart)
			b.patchOffset(p.cprAt, cprStart)
		}
		if len(v.blocks) == 0 {
			continue
		}
		offsets := make([]int64, len(v.blocks))
		for i, blk := range v.blocks {
			if v.cType != 0 {
				start := b.beginRecord(recTypeCVVR)
				b.writeInt(0) // rfuA
				packed := v.compress(blk.data)
				b.writeOffset(int64(len(packed)))
				b.writeRaw(packed)
				b.endRecord(start)
				offsets[i] = start
			} else {
				start := b.beginRecord(recTypeVVR)
				b.writeRaw(blk.data)
				b.endRecord(start)
				offsets[i] = start
			}
		}
		vxrStart := b.beginRecord(recTypeVXR)
		b.writeOffset(0) // vxrNext
		b.writeInt(int32(len(v.blocks)))
		b.writeInt(int32(len(v.blocks)))
		for _, blk := range v.blocks {
			b.writeInt(blk.first)
		}
		for _, blk := range v.blocks {
			b.writeInt(blk.last)
		}
		for _, off := range offsets {
			b.writeOffset(off)
		}
		b.endRecord(vxrStart)
		head := vxrStart
		if v.nestedVxr {
			parentStart := b.beginRecord(recTypeVXR)
			b.writeOffset(0) // vxrNext
			b.writeInt(1)
			b.writeInt(1)
			b.writeInt(v.blocks[0].first)
			b.writeInt(v.blocks[len(v.blocks)-1].last)
			b.writeOffset(vxrStart)
			b.endRecord(parentStart)
			head = parentStart
		}
		b.patchOffset(p.vxrHeadAt, head)
		b.patchOffset(p.vxrTailAt, vxrStart)
	}

	// ADRs and their AEDR chains.
	prevAdrNextAt := int64(-1)
	for ia := range cfg.attrs {
		a := &cfg.attrs[ia]
		start := b.beginRecord(recTypeADR)
		if prevAdrNextAt < 0 {
			b.patchOffset(adrHeadAt, start)
		} else {
			b.patchOffset(prevAdrNextAt, start)
		}
		prevAdrNextAt = b.reserveOffset() // adrNext
		agrHeadAt := b.reserveOffset()
		b.writeInt(a.scope)
		b.writeInt(int32(ia))
		b.writeInt(int32(len(a.gr)))
		b.writeInt(a.maxGr)
		b.writeInt(0) // rfuA
		azHeadAt := b.reserveOffset()
		b.writeInt(int32(len(a.z)))
		b.writeInt(a.maxZ)
		b.writeInt(-1) // rfuE
		b.writeName(a.name, b.nameLeng())
		b.endRecord(start)

		writeEntries := func(entries []testEntry, headAt int64, recType int32) {
			prevNextAt := int64(-1)
			for _, e := range entries {
				estart := b.beginRecord(recType)
				if prevNextAt < 0 {
					b.patchOffset(headAt, estart)
				} else {
					b.patchOffset(prevNextAt, estart)
				}
				prevNextAt = b.reserveOffset() // aedrNext
				b.writeInt(int32(ia))          // attrNum
				b.writeInt(int32(e.dataType))
				b.writeInt(e.num)
				b.writeInt(e.numElems)
				b.writeInt(0)  // numStrings
				b.writeInt(0)  // rfuB
				b.writeInt(0)  // rfuC
				b.writeInt(-1) // rfuD
				b.writeInt(-1) // rfuE
				b.writeRaw(e.value)
				b.endRecord(estart)
			}
		}
		writeEntries(a.gr, agrHeadAt, recTypeAgrEDR)
		writeEntries(a.z, azHeadAt, recTypeAzEDR)
	}

	b.patchOffset(eofAt, b.pos())
	return b.data
}

// buildCompressedFile wraps an uncompressed file image in the
// whole-file-compressed layout: compressed-variant magic, a CCR whose
// data is the compressed image minus the 8 magic bytes, and a CPR.
func buildCompressedFile(image []byte, bit64 bool, cType int32, compress func([]byte) []byte) []byte {
	b := newFileBuilder(bit64)
	b.writeMagic(magicWords(bit64, true))

	ccrStart := b.beginRecord(recTypeCCR)
	cprOffsetAt := b.reserveOffset()
	b.writeOffset(int64(len(image)) - 8) // uSize
	b.writeInt(0)                        // rfuA
	b.writeRaw(compress(image[8:]))
	b.endRecord(ccrStart)

	cprStart := b.beginRecord(recTypeCPR)
	b.patchOffset(cprOffsetAt, cprStart)
	b.writeInt(cType)
	b.writeInt(0) // rfuA
	b.writeInt(1) // pCount
	b.writeInt(0)
	b.endRecord(cprStart)
	return b.data
}

// Raw value encoders for record and entry payloads (network order).

func be32(vals ...int32) []byte {
	var buf bytes.Buffer
	for _, v := range vals {
		util.MustWriteBE(&buf, v)
	}
	return buf.Bytes()
}

func be64f(vals ...float64) []byte {
	var buf bytes.Buffer
	for _, v := range vals {
		util.MustWriteBE(&buf, v)
	}
	return buf.Bytes()
}

func gzipCompress(data []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	util.MustWriteRaw(zw, data)
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// rleCompress encodes runs of zeros the way RLE.0 expects: a zero byte
// followed by the count of additional zeros.
func rleCompress(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); {
		if data[i] != 0 {
			out = append(out, data[i])
			i++
			continue
		}
		run := 1
		for i+run < len(data) && data[i+run] == 0 && run < 256 {
			run++
		}
		out = append(out, 0, byte(run-1))
		i += run
	}
	return out
}
