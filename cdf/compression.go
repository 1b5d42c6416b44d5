package cdf

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Compression type codes stored in CPR records and VDR cprOrSprOffset
// targets.
const (
	cTypeNone  = 0
	cTypeRLE   = 1
	cTypeHuff  = 2
	cTypeAHuff = 3
	cTypeGzip  = 5
)

// CdfCompression is one entry of the decompression registry: a
// transformer from a compressed stream to its expansion. Stream errors
// are reported through the returned reader, never thrown.
type CdfCompression interface {
	Name() string
	UncompressStream(src io.Reader) io.Reader
}

func getCompression(cType int32) CdfCompression {
	switch cType {
	case cTypeNone:
		return noneCompression{}
	case cTypeRLE:
		return rleCompression{}
	case cTypeHuff:
		return huffCompression{}
	case cTypeAHuff:
		return ahuffCompression{}
	case cTypeGzip:
		return gzipCompression{}
	}
	fail(fmt.Sprint("unknown compression format ", cType),
		ErrUnknownCompression)
	panic("never gets here")
}

// uncompressBuf expands outSize bytes of the compression's stream,
// read from srcSize bytes starting at offset in buf, into a derived
// buffer with the same configuration. Short or broken streams are
// format errors.
func uncompressBuf(c CdfCompression, buf *Buf, offset, srcSize, outSize int64) *Buf {
	src := bytes.NewReader(buf.section(offset, srcSize))
	out := make([]byte, outSize)
	if n, err := io.ReadFull(c.UncompressStream(src), out); err != nil {
		fail(fmt.Sprintf("%s decompression failed after %d of %d bytes: %v",
			c.Name(), n, outSize, err), ErrCorruptedFile)
	}
	return buf.derive(out)
}

func byteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return bufio.NewReader(r)
}

type noneCompression struct{}

func (noneCompression) Name() string { return "NONE" }

func (noneCompression) UncompressStream(src io.Reader) io.Reader {
	return src
}

// rleCompression is CDF's RLE.0: only runs of zero bytes are encoded.
// A zero byte is followed by a count of the additional zeros in the
// run, so {0, n} expands to n+1 zeros.
type rleCompression struct{}

func (rleCompression) Name() string { return "RLE" }

func (rleCompression) UncompressStream(src io.Reader) io.Reader {
	return &runLengthReader{in: byteReader(src)}
}

type runLengthReader struct {
	in   io.ByteReader
	nrep int
}

func (r *runLengthReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if r.nrep > 0 {
			p[n] = 0
			r.nrep--
			n++
			continue
		}
		b, err := r.in.ReadByte()
		if err != nil {
			if err == io.EOF && n > 0 {
				return n, nil
			}
			return n, err
		}
		if b == 0 {
			c, err := r.in.ReadByte()
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return n, err
			}
			r.nrep = int(c) + 1
			continue
		}
		p[n] = b
		n++
	}
	return n, nil
}

type huffCompression struct{}

func (huffCompression) Name() string { return "HUFF" }

func (huffCompression) UncompressStream(src io.Reader) io.Reader {
	return newHuffmanReader(src)
}

type ahuffCompression struct{}

func (ahuffCompression) Name() string { return "AHUFF" }

func (ahuffCompression) UncompressStream(src io.Reader) io.Reader {
	return newAdaptiveHuffmanReader(src)
}

type gzipCompression struct{}

func (gzipCompression) Name() string { return "GZIP" }

func (gzipCompression) UncompressStream(src io.Reader) io.Reader {
	return &lazyGzipReader{src: src}
}

// lazyGzipReader defers gzip.NewReader, which consumes the gzip header,
// until the first Read so UncompressStream itself cannot fail.
type lazyGzipReader struct {
	src io.Reader
	zr  *gzip.Reader
	err error
}

func (l *lazyGzipReader) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if l.zr == nil {
		zr, err := gzip.NewReader(l.src)
		if err != nil {
			l.err = err
			return 0, err
		}
		l.zr = zr
	}
	return l.zr.Read(p)
}

// paddedCompression prepends prepad zero bytes to the expansion of the
// inner compression. It reconciles whole-file-compressed files, whose
// internal offsets are computed as if the 8-byte magic block were
// present in the uncompressed stream even though it is not.
type paddedCompression struct {
	prepad int
	inner  CdfCompression
}

func newPaddedCompression(prepad int, inner CdfCompression) CdfCompression {
	return paddedCompression{prepad: prepad, inner: inner}
}

func (p paddedCompression) Name() string {
	return "Padded " + p.inner.Name()
}

func (p paddedCompression) UncompressStream(src io.Reader) io.Reader {
	return io.MultiReader(
		bytes.NewReader(make([]byte, p.prepad)),
		p.inner.UncompressStream(src))
}
