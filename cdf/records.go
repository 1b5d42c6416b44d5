package cdf

import "fmt"

// The on-disk record hierarchy. Each record is a pure decode of its
// documented fields, immutable once parsed. Fields whose interpretation
// needs information from elsewhere in the file (VDR dimension
// variances, pad values, record data) keep their content offsets for
// late reading.

// Record type tags.
const (
	recTypeCDR    = 1
	recTypeGDR    = 2
	recTypeRVDR   = 3
	recTypeADR    = 4
	recTypeAgrEDR = 5
	recTypeVXR    = 6
	recTypeVVR    = 7
	recTypeZVDR   = 8
	recTypeAzEDR  = 9
	recTypeCCR    = 10
	recTypeCPR    = 11
	recTypeSPR    = 12
	recTypeCVVR   = 13
)

var recordTypeNames = map[int32]string{
	recTypeCDR:    "CDR",
	recTypeGDR:    "GDR",
	recTypeRVDR:   "rVDR",
	recTypeADR:    "ADR",
	recTypeAgrEDR: "AgrEDR",
	recTypeVXR:    "VXR",
	recTypeVVR:    "VVR",
	recTypeZVDR:   "zVDR",
	recTypeAzEDR:  "AzEDR",
	recTypeCCR:    "CCR",
	recTypeCPR:    "CPR",
	recTypeSPR:    "SPR",
	recTypeCVVR:   "CVVR",
}

func recordTypeName(recType int32) string {
	if name, has := recordTypeNames[recType]; has {
		return name
	}
	return fmt.Sprint("record-type-", recType)
}

// recordHeader is the common prefix of every record: its size in bytes
// (offset-width wide) and its type tag.
type recordHeader struct {
	start   int64
	size    int64
	recType int32
	content int64 // offset of the first field after the header
}

func (h recordHeader) end() int64 {
	return h.start + h.size
}

// cdrRecord is the CDF Descriptor Record.
type cdrRecord struct {
	header    recordHeader
	gdrOffset int64
	version   int32
	release   int32
	encoding  int32
	flags     int32
	increment int32
	copyright string
}

// gdrRecord is the Global Descriptor Record: heads and counts of the
// variable and attribute lists, and the dimension extents shared by
// r-variables.
type gdrRecord struct {
	header                recordHeader
	rVdrHead              int64
	zVdrHead              int64
	adrHead               int64
	eof                   int64
	nrVars                int32
	numAttr               int32
	rMaxRec               int32
	rNumDims              int32
	nzVars                int32
	uirHead               int64
	leapSecondLastUpdated int32
	rDimSizes             []int32
}

// vdrRecord is an r- or z-Variable Descriptor Record. The DimVarys
// field and the optional inline pad value follow the name (and, for
// z-variables, the dimension sizes); an r-variable's DimVarys count is
// the GDR's rNumDims, unknown here, so only the region's offset is
// kept.
type vdrRecord struct {
	header         recordHeader
	zVariable      bool
	vdrNext        int64
	dataType       int32
	maxRec         int32
	vxrHead        int64
	vxrTail        int64
	flags          int32
	sRecords       int32
	numElems       int32
	num            int32
	cprOrSprOffset int64
	blockingFactor int32
	name           string
	zNumDims       int32
	zDimSizes      []int32
	dimVarysOffset int64
}

func (vdr *vdrRecord) recordVariance() bool { return hasBit(vdr.flags, 0) }
func (vdr *vdrRecord) hasPad() bool         { return hasBit(vdr.flags, 1) }
func (vdr *vdrRecord) compressed() bool     { return hasBit(vdr.flags, 2) }

// adrRecord is an Attribute Descriptor Record: one attribute with its
// g-entry and z-entry list heads.
type adrRecord struct {
	header     recordHeader
	adrNext    int64
	agrEdrHead int64
	scope      int32
	num        int32
	nGrEntries int32
	maxGrEntry int32
	azEdrHead  int64
	nZEntries  int32
	maxZEntry  int32
	name       string
}

// aedrRecord is an Attribute Entry Descriptor Record; its value bytes
// sit inline at valueOffset.
type aedrRecord struct {
	header      recordHeader
	zEntry      bool
	aedrNext    int64
	attrNum     int32
	dataType    int32
	num         int32
	numElems    int32
	numStrings  int32
	valueOffset int64
}

// vxrRecord is a Variable indeX Record: a run of [first,last] record
// ranges each pointing at a VVR, CVVR, or a nested VXR subtree.
type vxrRecord struct {
	header       recordHeader
	vxrNext      int64
	nEntries     int32
	nUsedEntries int32
	first        []int32
	last         []int32
	offsets      []int64
}

// vvrRecord is a Variable Values Record: record data follows the
// header back to back.
type vvrRecord struct {
	header     recordHeader
	dataOffset int64
}

// cvvrRecord is a Compressed Variable Values Record.
type cvvrRecord struct {
	header     recordHeader
	cSize      int64
	dataOffset int64
}

// ccrRecord is the Compressed CDF Record wrapping a
// whole-file-compressed CDF.
type ccrRecord struct {
	header     recordHeader
	cprOffset  int64
	uSize      int64
	dataOffset int64
}

// cprRecord is the Compressed Parameters Record.
type cprRecord struct {
	header recordHeader
	cType  int32
	pCount int32
	cParms []int32
}
