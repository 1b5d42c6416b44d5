package cdf

import "fmt"

// NumericEncoding is CDF's catalogue of the machine representations a
// file's values may be written in. Only encodings whose byte order is
// purely big- or little-endian can be read; the VAX and Alpha/VMS D-
// and G-float forms are neither.
type NumericEncoding int32

const (
	NetworkEncoding    NumericEncoding = 1
	SunEncoding        NumericEncoding = 2
	VaxEncoding        NumericEncoding = 3
	DecstationEncoding NumericEncoding = 4
	SgiEncoding        NumericEncoding = 5
	IbmpcEncoding      NumericEncoding = 6
	IbmrsEncoding      NumericEncoding = 7
	MacEncoding        NumericEncoding = 9
	HpEncoding         NumericEncoding = 11
	NextEncoding       NumericEncoding = 12
	AlphaOsf1Encoding  NumericEncoding = 13
	AlphaVmsDEncoding  NumericEncoding = 14
	AlphaVmsGEncoding  NumericEncoding = 15
	AlphaVmsIEncoding  NumericEncoding = 16
)

var encodingNames = map[NumericEncoding]string{
	NetworkEncoding:    "NETWORK",
	SunEncoding:        "SUN",
	VaxEncoding:        "VAX",
	DecstationEncoding: "DECSTATION",
	SgiEncoding:        "SGi",
	IbmpcEncoding:      "IBMPC",
	IbmrsEncoding:      "IBMRS",
	MacEncoding:        "MAC",
	HpEncoding:         "HP",
	NextEncoding:       "NeXT",
	AlphaOsf1Encoding:  "ALPHAOSF1",
	AlphaVmsDEncoding:  "ALPHAVMSd",
	AlphaVmsGEncoding:  "ALPHAVMSg",
	AlphaVmsIEncoding:  "ALPHAVMSi",
}

func (e NumericEncoding) String() string {
	if name, has := encodingNames[e]; has {
		return name
	}
	return fmt.Sprint("encoding-", int32(e))
}

// Bigendian reports the byte order of the encoding and whether that
// order is pure (readable by this package).
func (e NumericEncoding) Bigendian() (bigendian bool, pure bool) {
	switch e {
	case NetworkEncoding, SunEncoding, SgiEncoding, IbmrsEncoding,
		MacEncoding, HpEncoding, NextEncoding:
		return true, true
	case DecstationEncoding, IbmpcEncoding, AlphaOsf1Encoding,
		AlphaVmsIEncoding:
		return false, true
	case VaxEncoding, AlphaVmsDEncoding, AlphaVmsGEncoding:
		return false, false
	}
	return false, false
}

func getEncoding(code int32) NumericEncoding {
	e := NumericEncoding(code)
	if _, has := encodingNames[e]; !has {
		fail(fmt.Sprint("unknown numeric encoding ", code),
			ErrUnsupportedEncoding)
	}
	return e
}
