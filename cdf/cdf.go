// Package cdf reads the Common Data Format binary container, versions
// pre-2.6 through 3, with or without whole-file compression.
package cdf

import (
	"errors"
	"fmt"
	"os"

	"github.com/batchatco/go-native-cdf/internal"
	"github.com/batchatco/go-thrower"
)

var (
	ErrNotCDF              = errors.New("not a CDF file")
	ErrCorruptedFile       = errors.New("corrupted CDF file")
	ErrUnknownType         = errors.New("unknown data type")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	ErrUnknownCompression  = errors.New("unknown compression format")
	ErrMultiFileCdf        = errors.New("multi-file CDFs not supported")
	ErrRecordIndex         = errors.New("record index out of range")
)

var (
	logger = internal.NewLogger()
)

// SetLogLevel sets the logging level to the given level, and returns
// the old level. This is for internal debugging use. The log messages
// are not expected to make much sense to anyone but the developers.
// The lowest level is 0 (no error logs at all) and the highest level is
// 3 (errors, warnings and debug messages).
func SetLogLevel(level int) int {
	old := logger.LogLevel()
	switch level {
	case 0:
		logger.SetLogLevel(internal.LevelFatal)
	case 1:
		logger.SetLogLevel(internal.LevelError)
	case 2:
		logger.SetLogLevel(internal.LevelWarn)
	default:
		logger.SetLogLevel(internal.LevelInfo)
	}
	return int(old)
}

func fail(message string, err error) {
	logger.Error(message)
	thrower.Throw(err)
}

func assert(condition bool, message string, err error) {
	if condition {
		return
	}
	fail(message, err)
}

func hasBit(flags int32, bit uint) bool {
	return flags&(1<<bit) != 0
}

// A variant is one of the file layouts announced by the magic numbers:
// the offset width, the width of name fields and whether the records
// after the magic numbers are a single compressed block.
type cdfVariant struct {
	label      string
	bit64      bool
	nameLeng   int
	compressed bool
}

func decodeMagic(magic1, magic2 uint32) *cdfVariant {
	switch magic1 {
	case 0xcdf30001:
		switch magic2 {
		case 0x0000ffff:
			return &cdfVariant{"V3", true, 256, false}
		case 0xcccc0001:
			return &cdfVariant{"V3", true, 256, true}
		}
	case 0xcdf26002: // version 2.6/2.7
		switch magic2 {
		case 0x0000ffff:
			return &cdfVariant{"V2.6/2.7", false, 64, false}
		case 0xcccc0001:
			return &cdfVariant{"V2.6/2.7", false, 64, true}
		}
	case 0x0000ffff: // pre-version 2.6; name width believed equal to 2.6
		if magic2 == 0x0000ffff {
			return &cdfVariant{"pre-V2.6", false, 64, false}
		}
	}
	return nil
}

// IsMagic reports whether the first 8 bytes of a file decode to a known
// CDF variant.
func IsMagic(intro []byte) bool {
	if len(intro) < 8 {
		return false
	}
	m1 := uint32(intro[0])<<24 | uint32(intro[1])<<16 | uint32(intro[2])<<8 | uint32(intro[3])
	m2 := uint32(intro[4])<<24 | uint32(intro[5])<<16 | uint32(intro[6])<<8 | uint32(intro[7])
	return decodeMagic(m1, m2) != nil
}

// CdfInfo carries the file-wide facts the variables and attributes are
// interpreted against.
type CdfInfo struct {
	RowMajor              bool
	RDimSizes             []int
	Version               int32
	Release               int32
	Increment             int32
	Encoding              NumericEncoding
	HasChecksum           bool
	LeapSecondLastUpdated int32
}

// CdfReader decodes the header of a CDF buffer: it detects the format
// variant, transparently uncompresses whole-file-compressed files, and
// leaves the buffer configured for record reading.
type CdfReader struct {
	buf     *Buf
	factory *RecordFactory
	cdr     *cdrRecord
	variant *cdfVariant
}

// NewReader prepares a reader over the given buffer. The buffer's
// offset-width and byte-order flags are configured here and must not be
// altered afterwards.
func NewReader(buf *Buf) (r *CdfReader, err error) {
	defer thrower.RecoverError(&err)
	return openBuf(buf), nil
}

// Open reads the named file into memory and prepares a reader for it.
func Open(fname string) (*CdfReader, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	return NewReader(NewBuf(data))
}

func openBuf(buf *Buf) *CdfReader {
	ptr := int64(0)

	// The magic numbers are always big-endian, which is also the
	// buffer's initial byte order.
	magic1 := uint32(buf.ReadInt(&ptr))
	magic2 := uint32(buf.ReadInt(&ptr))
	offsetRec0 := ptr

	variant := decodeMagic(magic1, magic2)
	if variant == nil {
		fail(fmt.Sprintf("unrecognised magic numbers: 0x%08x, 0x%08x",
			magic1, magic2), ErrNotCDF)
	}
	logger.Infof("CDF magic number for %s, whole-file compression: %v",
		variant.label, variant.compressed)

	// Versions prior to v3 use 4-byte file offsets instead of 8-byte
	// ones. The buffer must know before any record is read.
	buf.SetBit64(variant.bit64)

	factory := newRecordFactory(variant.nameLeng)

	if variant.compressed {
		// The compressed data is the data record of the CCR. Once
		// uncompressed it reads like a whole uncompressed CDF file minus
		// the 8 magic bytes, yet file offsets recorded inside it are
		// computed as if the magic bytes were present. The compression
		// is wrapped to prepend a dummy 8-byte block so those offsets
		// stay valid.
		ccr := factory.createCCR(buf, offsetRec0)
		cpr := factory.createCPR(buf, ccr.cprOffset)
		compress := getCompression(cpr.cType)
		prepad := offsetRec0
		assert(prepad == 8, "magic number block must be 8 bytes",
			ErrCorruptedFile)
		padded := newPaddedCompression(int(prepad), compress)
		buf = uncompressBuf(padded, buf, ccr.dataOffset,
			ccr.header.end()-ccr.dataOffset, ccr.uSize+prepad)
	}

	cdr := factory.createCDR(buf, offsetRec0)

	if !hasBit(cdr.flags, 1) {
		fail("Multi-file CDFs not supported", ErrMultiFileCdf)
	}
	encoding := getEncoding(cdr.encoding)
	bigendian, pure := encoding.Bigendian()
	if !pure {
		fail(fmt.Sprint("unsupported encoding ", encoding),
			ErrUnsupportedEncoding)
	}
	buf.SetEncoding(bigendian)

	return &CdfReader{
		buf:     buf,
		factory: factory,
		cdr:     cdr,
		variant: variant,
	}
}

// Buf returns the working buffer: the uncompressed view for
// whole-file-compressed files.
func (r *CdfReader) Buf() *Buf {
	return r.buf
}

// ReadContent walks the descriptor lists and returns the catalogue of
// variables and attributes.
func (r *CdfReader) ReadContent() (content *CdfContent, err error) {
	defer thrower.RecoverError(&err)
	buf := r.buf
	cdr := r.cdr

	gdr := r.factory.createGDR(buf, cdr.gdrOffset)

	info := CdfInfo{
		RowMajor:              hasBit(cdr.flags, 0),
		RDimSizes:             intsOf(gdr.rDimSizes),
		Version:               cdr.version,
		Release:               cdr.release,
		Increment:             cdr.increment,
		Encoding:              NumericEncoding(cdr.encoding),
		HasChecksum:           hasBit(cdr.flags, 2),
		LeapSecondLastUpdated: gdr.leapSecondLastUpdated,
	}

	rvdrs := r.walkVariableList(gdr.nrVars, gdr.rVdrHead, false)
	zvdrs := r.walkVariableList(gdr.nzVars, gdr.zVdrHead, true)
	vdrs := append(rvdrs, zvdrs...)

	variables := make([]*Variable, len(vdrs))
	for i, vdr := range vdrs {
		variables[i] = newVariable(vdr, info, buf, r.factory)
	}

	adrs := r.walkAttributeList(gdr.numAttr, gdr.adrHead)

	var globalAtts []*GlobalAttribute
	var varAtts []*VariableAttribute
	for _, adr := range adrs {
		grEntries := r.walkEntryList(buf, adr.nGrEntries, adr.agrEdrHead,
			adr.maxGrEntry+1, false)
		zEntries := r.walkEntryList(buf, adr.nZEntries, adr.azEdrHead,
			adr.maxZEntry+1, true)
		if hasBit(adr.scope, 0) {
			globalAtts = append(globalAtts,
				newGlobalAttribute(adr.name, grEntries, zEntries))
		} else {
			varAtts = append(varAtts,
				newVariableAttribute(adr.name, grEntries, zEntries))
		}
	}

	return &CdfContent{
		info:               info,
		globalAttributes:   globalAtts,
		variableAttributes: varAtts,
		variables:          variables,
	}, nil
}

// OpenContent opens the named file and reads its full catalogue.
func OpenContent(fname string) (*CdfContent, error) {
	r, err := Open(fname)
	if err != nil {
		return nil, err
	}
	return r.ReadContent()
}

func (r *CdfReader) walkVariableList(nvar int32, head int64, zVariable bool) []*vdrRecord {
	vdrs := make([]*vdrRecord, 0, nvar)
	off := head
	for iv := int32(0); iv < nvar; iv++ {
		assert(off > 0, "VDR list shorter than its declared count",
			ErrCorruptedFile)
		vdr := r.factory.createVDR(r.buf, off, zVariable)
		vdrs = append(vdrs, vdr)
		off = vdr.vdrNext
	}
	return vdrs
}

func (r *CdfReader) walkAttributeList(natt int32, head int64) []*adrRecord {
	adrs := make([]*adrRecord, 0, natt)
	off := head
	for ia := int32(0); ia < natt; ia++ {
		assert(off > 0, "ADR list shorter than its declared count",
			ErrCorruptedFile)
		adr := r.factory.createADR(r.buf, off)
		adrs = append(adrs, adr)
		off = adr.adrNext
	}
	return adrs
}

func intsOf(v []int32) []int {
	ret := make([]int, len(v))
	for i, x := range v {
		ret[i] = int(x)
	}
	return ret
}

// CdfContent is the in-memory catalogue of a CDF file. It is immutable
// once returned and safe for concurrent readers.
type CdfContent struct {
	info               CdfInfo
	globalAttributes   []*GlobalAttribute
	variableAttributes []*VariableAttribute
	variables          []*Variable
}

// Info returns the file-wide facts the catalogue was read against.
func (c *CdfContent) Info() CdfInfo {
	return c.info
}

// GlobalAttributes returns the attributes with global scope, in file
// order.
func (c *CdfContent) GlobalAttributes() []*GlobalAttribute {
	return c.globalAttributes
}

// VariableAttributes returns the attributes with per-variable scope, in
// file order.
func (c *CdfContent) VariableAttributes() []*VariableAttribute {
	return c.variableAttributes
}

// Variables returns the r-variables followed by the z-variables.
func (c *CdfContent) Variables() []*Variable {
	return c.variables
}
