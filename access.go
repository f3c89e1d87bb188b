// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ics

import (
	"fmt"
)

// Layout describes a dataset's sample kind and per-dimension sizes, the
// output of GetLayout.
type Layout struct {
	Type  SampleType
	Sizes []int
}

// GetLayout is valid in read/update mode. It reports the sample kind,
// dimension count, and sizes.
func (ds *Dataset) GetLayout() (Layout, Result) {
	if !ds.layoutSet {
		return Layout{}, Result{Err: ErrNoLayout}
	}
	return Layout{Type: ds.imel.Type, Sizes: ds.dimSizes()}, Ok
}

// SetLayout is valid in write mode. It stores the sample kind and sizes
// and installs default order-names and labels per spec.md §3. It does not
// guard against a second call: calling it again replaces the sample kind,
// the dimensions with their metadata, and the byte-order vector.
func (ds *Dataset) SetLayout(t SampleType, sizes []int) Result {
	if len(sizes) == 0 || len(sizes) > MaxDim {
		return Result{Err: fmt.Errorf("%w: %d dimensions", ErrTooManyDims, len(sizes))}
	}
	ds.imel = newImel(t)
	ds.dims = make([]Dimension, len(sizes))
	for i, size := range sizes {
		ds.dims[i] = newDimension(i, size)
	}
	// A complex kind's byte-order vector describes one component's layout
	// (spec.md §3); the engine applies it to each of the two interleaved
	// components independently, so the default is built at component width.
	ds.order = defaultOrder(t.ComponentWidth())
	ds.layoutSet = true
	return Ok
}

// GetDataSize returns the total byte size of the sample array: width
// times the product of all dimension sizes. It never fails for a
// well-formed handle.
func (ds *Dataset) GetDataSize() int64 {
	return int64(ds.imel.Type.Width()) * ds.imageSizeElements()
}

// GetImelSize returns the width, in bytes, of one sample.
func (ds *Dataset) GetImelSize() int {
	return ds.imel.Type.Width()
}

// GetImageSize returns the total element count: the product of all
// dimension sizes.
func (ds *Dataset) GetImageSize() int64 {
	return ds.imageSizeElements()
}

func (ds *Dataset) imageSizeElements() int64 {
	var total int64 = 1
	for _, d := range ds.dims {
		total *= int64(d.Size)
	}
	return total
}

// GetData streams the whole body into buf: opens the body stream, reads
// it fully, verifies the codec's trailer (if it has one), and closes
// it. buf must be at least GetDataSize() bytes.
func (ds *Dataset) GetData(buf []byte) Result {
	size := ds.GetDataSize()
	if int64(len(buf)) < size {
		return Result{Err: ErrBufferTooSmall}
	}

	rs, err := ds.openReadCodec()
	if err != nil {
		return Result{Err: err}
	}
	data, rerr := rs.codec.readBlock(int(size))
	copy(buf, data)
	if rerr != nil {
		ds.finalizeRead()
		return Result{Err: rerr}
	}
	// A whole-array read exactly satisfies the declared size, so the
	// underlying decompressor's own EOF (and thus its trailer check) is
	// never triggered by readBlock alone; force it here.
	if verr := rs.codec.verifyComplete(); verr != nil {
		ds.finalizeRead()
		return Result{Err: verr}
	}
	if err := ds.finalizeRead(); err != nil {
		return Result{Err: err}
	}

	// Complex samples reorder per component (spec.md §3: "treated as two
	// interleaved components by the byte-order engine"), so Reorder walks
	// buf in ComponentWidth chunks rather than whole-sample chunks.
	if err := Reorder(ds.order, ds.imel.Type.ComponentWidth(), buf[:size]); err != nil {
		return Result{Err: err}
	}
	return Ok
}

// GetDataBlock lazily opens the body stream on first call and reads the
// next n bytes into buf. The caller may interleave calls to
// GetDataBlock and SkipDataBlock. Legal only for codecs that support
// partial reads (every codec but legacy LZW after its first read).
func (ds *Dataset) GetDataBlock(buf []byte, n int) Result {
	if len(buf) < n {
		return Result{Err: ErrBufferTooSmall}
	}
	rs, err := ds.openReadCodec()
	if err != nil {
		return Result{Err: err}
	}
	data, rerr := rs.codec.readBlock(n)
	copy(buf, data)
	if rerr != nil {
		return Result{Err: rerr}
	}
	if err := Reorder(ds.order, ds.imel.Type.ComponentWidth(), buf[:len(data)]); err != nil {
		return Result{Err: err}
	}
	return Ok
}

// SkipDataBlock lazily opens the body stream on first call and moves the
// read position by offset relative to whence (io.SeekStart or
// io.SeekCurrent; io.SeekEnd is rejected).
func (ds *Dataset) SkipDataBlock(offset int64, whence int) Result {
	rs, err := ds.openReadCodec()
	if err != nil {
		return Result{Err: err}
	}
	if err := rs.codec.skipBlock(offset, whence); err != nil {
		return Result{Err: err}
	}
	return Ok
}

// SetData attaches buf as the source for the pending write. A second
// attach, or an attach after SetSource, fails with ErrDuplicateData.
// SetLayout must have been called first (ErrNoLayout otherwise). A
// buffer length that disagrees with the layout's implied size is
// non-fatal (ErrFSizeConflict) and still attaches the buffer.
func (ds *Dataset) SetData(buf []byte) Result {
	return ds.setData(buf, nil, false)
}

// SetDataWithStrides is as SetData but additionally records the input
// element strides the write codec should use to gather lines out of buf.
func (ds *Dataset) SetDataWithStrides(buf []byte, strides []int64) Result {
	return ds.setData(buf, strides, true)
}

func (ds *Dataset) setData(buf []byte, strides []int64, hasStrides bool) Result {
	if !ds.layoutSet {
		return Result{Err: ErrNoLayout}
	}
	if ds.dataAttached || ds.sourceAttached {
		return Result{Err: ErrDuplicateData}
	}
	ds.dataBuf = buf
	ds.dataStrides = strides
	ds.hasStrides = hasStrides
	ds.dataAttached = true

	// Without strides the buffer must match the layout exactly; with
	// strides it must reach at least the last addressed element.
	conflict := int64(len(buf)) != ds.GetDataSize()
	if hasStrides {
		conflict = int64(len(buf)) < ds.stridedByteSpan(strides)
	}
	if conflict {
		return Result{Warning: ErrFSizeConflict}
	}
	return Ok
}

// stridedByteSpan returns the byte offset one past the last addressed
// element under strides: width * (1 + sum((size_i-1)*stride_i)).
func (ds *Dataset) stridedByteSpan(strides []int64) int64 {
	width := int64(ds.imel.Type.Width())
	var last int64
	for i, d := range ds.dims {
		if i >= len(strides) {
			break
		}
		last += int64(d.Size-1) * strides[i]
	}
	return (last + 1) * width
}

// SetSource names an external body file and its byte offset as the
// write-time source, instead of an attached in-memory buffer. Per
// spec.md §4.6, this is only a valid action for version-2 datasets.
func (ds *Dataset) SetSource(path string, offset int64) Result {
	if ds.version == 1 {
		return Result{Err: ErrNotValidAction}
	}
	if ds.dataAttached || ds.sourceAttached {
		return Result{Err: ErrDuplicateData}
	}
	ds.sourceFile = path
	ds.sourceOffset = offset
	ds.sourceAttached = true
	return Ok
}

// SetCompression records the body's compression method and level.
// "compress" is silently rewritten to "gzip" for writes (spec.md §4.4):
// the legacy LZW codec is read-only.
func (ds *Dataset) SetCompression(c CompressionType, level int) {
	if c == Compress {
		c = Gzip
	}
	ds.compression = c
	ds.level = level
}

// SetByteOrder records the dataset's declared byte-order vector. For a
// complex sample kind, order describes one real component's byte layout
// (spec.md §3); the engine applies it to each of the two interleaved
// components independently, not to the full 8- or 16-byte sample.
func (ds *Dataset) SetByteOrder(order ByteOrder) {
	ds.order = order
}

// GetByteOrder returns the dataset's declared byte-order vector.
func (ds *Dataset) GetByteOrder() ByteOrder {
	return ds.order
}

// SetPosition sets dimension i's origin and scale.
func (ds *Dataset) SetPosition(i int, origin, scale float64) Result {
	if i < 0 || i >= len(ds.dims) {
		return Result{Err: fmt.Errorf("%w: dimension index %d", ErrIllParameter, i)}
	}
	ds.dims[i].Origin = origin
	ds.dims[i].Scale = scale
	return Ok
}

// GetPosition returns dimension i's origin and scale.
func (ds *Dataset) GetPosition(i int) (origin, scale float64, res Result) {
	if i < 0 || i >= len(ds.dims) {
		return 0, 0, Result{Err: fmt.Errorf("%w: dimension index %d", ErrIllParameter, i)}
	}
	return ds.dims[i].Origin, ds.dims[i].Scale, Ok
}

// SetOrder sets dimension i's order-name and display label.
func (ds *Dataset) SetOrder(i int, order, label string) Result {
	if i < 0 || i >= len(ds.dims) {
		return Result{Err: fmt.Errorf("%w: dimension index %d", ErrIllParameter, i)}
	}
	ds.dims[i].Order = order
	ds.dims[i].Label = label
	return Ok
}

// GetOrder returns dimension i's order-name and display label.
func (ds *Dataset) GetOrder(i int) (order, label string, res Result) {
	if i < 0 || i >= len(ds.dims) {
		return "", "", Result{Err: fmt.Errorf("%w: dimension index %d", ErrIllParameter, i)}
	}
	return ds.dims[i].Order, ds.dims[i].Label, Ok
}

// SetCoordinateSystem sets the dataset's coordinate-system name.
func (ds *Dataset) SetCoordinateSystem(name string) {
	ds.coordSystem = name
}

// GetCoordinateSystem returns the dataset's coordinate-system name.
func (ds *Dataset) GetCoordinateSystem() string {
	return ds.coordSystem
}

// SetSignificantBits sets the imel's significant-bits count; it must be
// at most 8 times the sample width.
func (ds *Dataset) SetSignificantBits(n int) Result {
	if n > 8*ds.imel.Type.Width() {
		return Result{Err: fmt.Errorf("%w: %d significant bits exceeds sample width", ErrIllParameter, n)}
	}
	ds.imel.SigBits = n
	return Ok
}

// GetSignificantBits returns the imel's significant-bits count.
func (ds *Dataset) GetSignificantBits() int {
	return ds.imel.SigBits
}

// SetImelUnits sets the imel's origin, scale, and unit string.
func (ds *Dataset) SetImelUnits(origin, scale float64, unit string) {
	ds.imel.Origin = origin
	ds.imel.Scale = scale
	ds.imel.Unit = unit
}

// GetImelUnits returns the imel's origin, scale, and unit string.
func (ds *Dataset) GetImelUnits() (origin, scale float64, unit string) {
	return ds.imel.Origin, ds.imel.Scale, ds.imel.Unit
}

// SetSCILType sets the dataset's SCIL-type tag directly.
func (ds *Dataset) SetSCILType(tag string) {
	ds.scilType = tag
}

// GetSCILType returns the dataset's SCIL-type tag.
func (ds *Dataset) GetSCILType() string {
	return ds.scilType
}

// scilPrefixes maps a sample kind to its SCIL-type prefix letter.
// u32, s32, f64, and c64 have no SCIL type (refused).
var scilPrefixes = map[SampleType]string{
	Uint8:     "g",
	Sint8:     "g",
	Uint16:    "g",
	Sint16:    "g",
	Real32:    "f",
	Complex32: "c",
}

// GuessSCILType derives the SCIL tag from the dataset's sample kind and
// dimensionality, per the table in spec.md §4.6. It fails with
// ErrNoScilType for 4-or-more-dimensional images, or for 32-bit
// integer, real64, or complex64 samples.
func (ds *Dataset) GuessSCILType() (string, Result) {
	prefix, ok := scilPrefixes[ds.imel.Type]
	if !ok {
		return "", Result{Err: ErrNoScilType}
	}
	n := len(ds.dims)
	if n >= 4 {
		return "", Result{Err: ErrNoScilType}
	}
	suffix := "2d"
	if n == 3 {
		suffix = "3d"
	}
	return prefix + suffix, Ok
}

// GetDataWithStrides reads the full array into dst, scattering samples
// according to strides (one element stride per dimension). It fails
// with ErrIllParameter if dst is too small to contain the last pixel's
// byte address.
func (ds *Dataset) GetDataWithStrides(dst []byte, strides []int64) Result {
	width := ds.imel.Type.Width()
	need := ds.stridedByteSpan(strides)
	if int64(len(dst)) < need {
		return Result{Err: fmt.Errorf("%w: destination too small for strides", ErrIllParameter)}
	}

	sizes := ds.dimSizes()
	size := ds.GetDataSize()
	linear := make([]byte, size)
	if res := ds.GetData(linear); res.Failed() {
		return res
	}

	if len(sizes) == 0 {
		return Ok
	}
	dim0 := sizes[0]
	stride0 := strides[0]
	identity := identityStrides(sizes)

	walk := newLineWalker(sizes[1:], identity)
	outWalk := newLineWalker(sizes[1:], strides)
	for {
		_, srcLineOffset, ok := walk.next()
		_, dstLineOffset, ok2 := outWalk.next()
		if !ok || !ok2 {
			break
		}
		for i := 0; i < dim0; i++ {
			srcOff := (srcLineOffset + int64(i)) * int64(width)
			dstOff := (dstLineOffset + int64(i)*stride0) * int64(width)
			copy(dst[dstOff:dstOff+int64(width)], linear[srcOff:srcOff+int64(width)])
		}
	}
	return Ok
}
