package cdf

import (
	"fmt"
)

// RecordFactory parses records out of a configured buffer. The only
// variant-specific parameter besides the buffer's own flags is the
// width of name fields (64 chars before v3, 256 from v3 on).
type RecordFactory struct {
	nameLeng int
}

func newRecordFactory(nameLeng int) *RecordFactory {
	return &RecordFactory{nameLeng: nameLeng}
}

// recordType peeks at the type tag of the record at offset without
// committing to a parse. Used to dispatch VXR leaves, which may be
// VVRs, CVVRs or nested VXRs.
func (f *RecordFactory) recordType(buf *Buf, offset int64) int32 {
	ptr := offset
	buf.ReadOffset(&ptr) // record size
	return buf.ReadInt(&ptr)
}

// header reads the common record prefix with the buffer's current
// offset width and verifies the type tag. The tag check is the chief
// defence against interpreting arbitrary bytes as a record.
func (f *RecordFactory) header(buf *Buf, offset int64, want int32) recordHeader {
	ptr := offset
	size := buf.ReadOffset(&ptr)
	recType := buf.ReadInt(&ptr)
	if recType != want {
		fail(fmt.Sprintf("unexpected record type at offset %d: %s (%d), expected %s",
			offset, recordTypeName(recType), recType, recordTypeName(want)),
			ErrCorruptedFile)
	}
	assert(size >= ptr-offset, fmt.Sprint("record size too small: ", size),
		ErrCorruptedFile)
	assert(offset+size <= buf.Len(),
		fmt.Sprint("record of ", size, " bytes at offset ", offset,
			" overruns the file"), ErrCorruptedFile)
	return recordHeader{start: offset, size: size, recType: recType, content: ptr}
}

// checkConsumed asserts the parser stayed inside the declared record
// size.
func checkConsumed(h recordHeader, ptr int64) {
	assert(ptr <= h.end(),
		fmt.Sprintf("%s record of %d bytes too small for its fields",
			recordTypeName(h.recType), h.size), ErrCorruptedFile)
}

// checkIntValue reads reserved fields: real files disagree with the
// format document on some of them, so mismatches warn rather than fail.
func checkIntValue(got int32, want int32, where string) int32 {
	if got != want {
		logger.Warnf("reserved field in %s holds %d, expected %d",
			where, got, want)
	}
	return got
}

func (f *RecordFactory) createCDR(buf *Buf, offset int64) *cdrRecord {
	h := f.header(buf, offset, recTypeCDR)
	ptr := h.content
	cdr := &cdrRecord{header: h}
	cdr.gdrOffset = buf.ReadOffset(&ptr)
	cdr.version = buf.ReadInt(&ptr)
	cdr.release = buf.ReadInt(&ptr)
	cdr.encoding = buf.ReadInt(&ptr)
	cdr.flags = buf.ReadInt(&ptr)
	checkIntValue(buf.ReadInt(&ptr), 0, "CDR")
	checkIntValue(buf.ReadInt(&ptr), 0, "CDR")
	cdr.increment = buf.ReadInt(&ptr)
	buf.ReadInt(&ptr) // rfuD; carries an identifier in newer files
	checkIntValue(buf.ReadInt(&ptr), -1, "CDR")
	crLeng := 1945
	if cdr.version > 2 || (cdr.version == 2 && cdr.release >= 6) {
		crLeng = 256
	}
	cdr.copyright = buf.ReadChars(ptr, crLeng)
	ptr += int64(crLeng)
	checkConsumed(h, ptr)
	return cdr
}

func (f *RecordFactory) createGDR(buf *Buf, offset int64) *gdrRecord {
	h := f.header(buf, offset, recTypeGDR)
	ptr := h.content
	gdr := &gdrRecord{header: h}
	gdr.rVdrHead = buf.ReadOffset(&ptr)
	gdr.zVdrHead = buf.ReadOffset(&ptr)
	gdr.adrHead = buf.ReadOffset(&ptr)
	gdr.eof = buf.ReadOffset(&ptr)
	gdr.nrVars = buf.ReadInt(&ptr)
	gdr.numAttr = buf.ReadInt(&ptr)
	gdr.rMaxRec = buf.ReadInt(&ptr)
	gdr.rNumDims = buf.ReadInt(&ptr)
	gdr.nzVars = buf.ReadInt(&ptr)
	gdr.uirHead = buf.ReadOffset(&ptr)
	checkIntValue(buf.ReadInt(&ptr), 0, "GDR")
	gdr.leapSecondLastUpdated = buf.ReadInt(&ptr)
	buf.ReadInt(&ptr) // rfuE
	assert(gdr.rNumDims >= 0 && gdr.nrVars >= 0 && gdr.nzVars >= 0 &&
		gdr.numAttr >= 0, "negative count in GDR", ErrCorruptedFile)
	gdr.rDimSizes = make([]int32, gdr.rNumDims)
	buf.ReadDataInts(ptr, gdr.rDimSizes)
	ptr += int64(gdr.rNumDims) * 4
	checkConsumed(h, ptr)
	return gdr
}

func (f *RecordFactory) createVDR(buf *Buf, offset int64, zVariable bool) *vdrRecord {
	want := int32(recTypeRVDR)
	if zVariable {
		want = recTypeZVDR
	}
	h := f.header(buf, offset, want)
	ptr := h.content
	vdr := &vdrRecord{header: h, zVariable: zVariable}
	vdr.vdrNext = buf.ReadOffset(&ptr)
	vdr.dataType = buf.ReadInt(&ptr)
	vdr.maxRec = buf.ReadInt(&ptr)
	vdr.vxrHead = buf.ReadOffset(&ptr)
	vdr.vxrTail = buf.ReadOffset(&ptr)
	vdr.flags = buf.ReadInt(&ptr)
	vdr.sRecords = buf.ReadInt(&ptr)
	checkIntValue(buf.ReadInt(&ptr), 0, "VDR")
	checkIntValue(buf.ReadInt(&ptr), -1, "VDR")
	checkIntValue(buf.ReadInt(&ptr), -1, "VDR")
	vdr.numElems = buf.ReadInt(&ptr)
	vdr.num = buf.ReadInt(&ptr)
	vdr.cprOrSprOffset = buf.ReadOffset(&ptr)
	vdr.blockingFactor = buf.ReadInt(&ptr)
	vdr.name = buf.ReadChars(ptr, f.nameLeng)
	ptr += int64(f.nameLeng)
	if zVariable {
		vdr.zNumDims = buf.ReadInt(&ptr)
		assert(vdr.zNumDims >= 0, "negative dimension count in zVDR",
			ErrCorruptedFile)
		vdr.zDimSizes = make([]int32, vdr.zNumDims)
		buf.ReadDataInts(ptr, vdr.zDimSizes)
		ptr += int64(vdr.zNumDims) * 4
	}
	assert(vdr.numElems > 0, "non-positive element count in VDR",
		ErrCorruptedFile)
	vdr.dimVarysOffset = ptr
	checkConsumed(h, ptr)
	return vdr
}

func (f *RecordFactory) createADR(buf *Buf, offset int64) *adrRecord {
	h := f.header(buf, offset, recTypeADR)
	ptr := h.content
	adr := &adrRecord{header: h}
	adr.adrNext = buf.ReadOffset(&ptr)
	adr.agrEdrHead = buf.ReadOffset(&ptr)
	adr.scope = buf.ReadInt(&ptr)
	adr.num = buf.ReadInt(&ptr)
	adr.nGrEntries = buf.ReadInt(&ptr)
	adr.maxGrEntry = buf.ReadInt(&ptr)
	checkIntValue(buf.ReadInt(&ptr), 0, "ADR")
	adr.azEdrHead = buf.ReadOffset(&ptr)
	adr.nZEntries = buf.ReadInt(&ptr)
	adr.maxZEntry = buf.ReadInt(&ptr)
	checkIntValue(buf.ReadInt(&ptr), -1, "ADR")
	adr.name = buf.ReadChars(ptr, f.nameLeng)
	ptr += int64(f.nameLeng)
	assert(adr.nGrEntries >= 0 && adr.nZEntries >= 0,
		"negative entry count in ADR", ErrCorruptedFile)
	checkConsumed(h, ptr)
	return adr
}

func (f *RecordFactory) createAEDR(buf *Buf, offset int64, zEntry bool) *aedrRecord {
	want := int32(recTypeAgrEDR)
	if zEntry {
		want = recTypeAzEDR
	}
	h := f.header(buf, offset, want)
	ptr := h.content
	aedr := &aedrRecord{header: h, zEntry: zEntry}
	aedr.aedrNext = buf.ReadOffset(&ptr)
	aedr.attrNum = buf.ReadInt(&ptr)
	aedr.dataType = buf.ReadInt(&ptr)
	aedr.num = buf.ReadInt(&ptr)
	aedr.numElems = buf.ReadInt(&ptr)
	// The next reserved slot carries NumStrings in CDF 3.5+ files.
	aedr.numStrings = buf.ReadInt(&ptr)
	buf.ReadInt(&ptr) // rfuB
	buf.ReadInt(&ptr) // rfuC
	checkIntValue(buf.ReadInt(&ptr), -1, "AEDR")
	checkIntValue(buf.ReadInt(&ptr), -1, "AEDR")
	assert(aedr.num >= 0, "negative entry index in AEDR", ErrCorruptedFile)
	assert(aedr.numElems > 0, "non-positive element count in AEDR",
		ErrCorruptedFile)
	aedr.valueOffset = ptr
	checkConsumed(h, ptr)
	return aedr
}

func (f *RecordFactory) createVXR(buf *Buf, offset int64) *vxrRecord {
	h := f.header(buf, offset, recTypeVXR)
	ptr := h.content
	vxr := &vxrRecord{header: h}
	vxr.vxrNext = buf.ReadOffset(&ptr)
	vxr.nEntries = buf.ReadInt(&ptr)
	vxr.nUsedEntries = buf.ReadInt(&ptr)
	assert(vxr.nEntries >= 0 && vxr.nUsedEntries >= 0 &&
		vxr.nUsedEntries <= vxr.nEntries,
		"inconsistent entry counts in VXR", ErrCorruptedFile)
	vxr.first = make([]int32, vxr.nEntries)
	buf.ReadDataInts(ptr, vxr.first)
	ptr += int64(vxr.nEntries) * 4
	vxr.last = make([]int32, vxr.nEntries)
	buf.ReadDataInts(ptr, vxr.last)
	ptr += int64(vxr.nEntries) * 4
	vxr.offsets = make([]int64, vxr.nEntries)
	for i := range vxr.offsets {
		vxr.offsets[i] = buf.ReadOffset(&ptr)
	}
	checkConsumed(h, ptr)
	return vxr
}

func (f *RecordFactory) createVVR(buf *Buf, offset int64) *vvrRecord {
	h := f.header(buf, offset, recTypeVVR)
	return &vvrRecord{header: h, dataOffset: h.content}
}

func (f *RecordFactory) createCVVR(buf *Buf, offset int64) *cvvrRecord {
	h := f.header(buf, offset, recTypeCVVR)
	ptr := h.content
	cvvr := &cvvrRecord{header: h}
	checkIntValue(buf.ReadInt(&ptr), 0, "CVVR")
	cvvr.cSize = buf.ReadOffset(&ptr)
	cvvr.dataOffset = ptr
	assert(cvvr.cSize >= 0 && ptr+cvvr.cSize <= h.end(),
		"compressed size overruns CVVR", ErrCorruptedFile)
	return cvvr
}

func (f *RecordFactory) createCCR(buf *Buf, offset int64) *ccrRecord {
	h := f.header(buf, offset, recTypeCCR)
	ptr := h.content
	ccr := &ccrRecord{header: h}
	ccr.cprOffset = buf.ReadOffset(&ptr)
	ccr.uSize = buf.ReadOffset(&ptr)
	checkIntValue(buf.ReadInt(&ptr), 0, "CCR")
	ccr.dataOffset = ptr
	assert(ccr.uSize >= 0, "negative uncompressed size in CCR",
		ErrCorruptedFile)
	checkConsumed(h, ptr)
	return ccr
}

func (f *RecordFactory) createCPR(buf *Buf, offset int64) *cprRecord {
	h := f.header(buf, offset, recTypeCPR)
	ptr := h.content
	cpr := &cprRecord{header: h}
	cpr.cType = buf.ReadInt(&ptr)
	checkIntValue(buf.ReadInt(&ptr), 0, "CPR")
	cpr.pCount = buf.ReadInt(&ptr)
	assert(cpr.pCount >= 0, "negative parameter count in CPR",
		ErrCorruptedFile)
	cpr.cParms = make([]int32, cpr.pCount)
	buf.ReadDataInts(ptr, cpr.cParms)
	ptr += int64(cpr.pCount) * 4
	checkConsumed(h, ptr)
	return cpr
}
