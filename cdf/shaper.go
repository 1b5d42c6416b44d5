package cdf

import (
	"reflect"
)

// Shaper translates the raw linear element buffer of one record into
// its logical value: a scalar when the logical element count is one,
// otherwise a flat array in row-major order. Dimensions with variance
// false are collapsed out of the logical shape.
type Shaper interface {
	// ShapeClass is the Go type of the logical value.
	ShapeClass() reflect.Type
	// DimSizes are the logical (variance-collapsed) dimension extents.
	DimSizes() []int
	// RawItemCount is the number of stored items per record.
	RawItemCount() int
	// ShapedItemCount is the number of items in the logical value.
	ShapedItemCount() int
	// Shape builds the logical value from a raw array. With logical
	// false a single-item result stays a fixed array instead of
	// unwrapping to a scalar. The raw array is never retained.
	Shape(rawValue any, logical bool) any
}

func createShaper(dataType DataType, dimSizes []int, dimVarys []bool, rowMajor bool) Shaper {
	varying := make([]int, 0, len(dimSizes))
	rawItems := 1
	for i, sz := range dimSizes {
		if dimVarys[i] {
			varying = append(varying, sz)
			rawItems *= sz
		}
	}
	group := dataType.GroupSize()
	base := shaperBase{
		dataType: dataType,
		dims:     varying,
		rawItems: rawItems,
		group:    group,
	}
	switch {
	case rawItems == 1:
		return &scalarShaper{base}
	case rowMajor || len(varying) < 2:
		return &simpleShaper{base}
	default:
		return &columnMajorShaper{base}
	}
}

type shaperBase struct {
	dataType DataType
	dims     []int
	rawItems int
	group    int
}

func (s *shaperBase) DimSizes() []int {
	return s.dims
}

func (s *shaperBase) RawItemCount() int {
	return s.rawItems
}

func (s *shaperBase) ShapedItemCount() int {
	return s.rawItems
}

func (s *shaperBase) arrayType() reflect.Type {
	return reflect.SliceOf(s.dataType.ElementType())
}

func copySlice(rawValue any) any {
	v := reflect.ValueOf(rawValue)
	out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
	reflect.Copy(out, v)
	return out.Interface()
}

// scalarShaper handles records with a single item: dimensionless
// variables and variables whose every dimension is non-varying.
type scalarShaper struct {
	shaperBase
}

func (s *scalarShaper) ShapeClass() reflect.Type {
	if s.group > 1 {
		return s.arrayType()
	}
	return s.dataType.ElementType()
}

func (s *scalarShaper) Shape(rawValue any, logical bool) any {
	if s.group > 1 || !logical {
		return copySlice(rawValue)
	}
	return reflect.ValueOf(rawValue).Index(0).Interface()
}

// simpleShaper handles multi-item records whose stored order is
// already the logical row-major order.
type simpleShaper struct {
	shaperBase
}

func (s *simpleShaper) ShapeClass() reflect.Type {
	return s.arrayType()
}

func (s *simpleShaper) Shape(rawValue any, logical bool) any {
	return copySlice(rawValue)
}

// columnMajorShaper transposes column-major storage into the row-major
// logical order.
type columnMajorShaper struct {
	shaperBase
}

func (s *columnMajorShaper) ShapeClass() reflect.Type {
	return s.arrayType()
}

func (s *columnMajorShaper) Shape(rawValue any, logical bool) any {
	v := reflect.ValueOf(rawValue)
	n := s.rawItems
	g := s.group
	out := reflect.MakeSlice(v.Type(), n*g, n*g)
	nd := len(s.dims)
	idx := make([]int, nd)
	for i := 0; i < n; i++ {
		// column-major source item for the current multi-index
		j := 0
		stride := 1
		for k := 0; k < nd; k++ {
			j += idx[k] * stride
			stride *= s.dims[k]
		}
		for e := 0; e < g; e++ {
			out.Index(i*g + e).Set(v.Index(j*g + e))
		}
		// step the multi-index in row-major order, last axis fastest
		for k := nd - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < s.dims[k] {
				break
			}
			idx[k] = 0
		}
	}
	return out.Interface()
}
