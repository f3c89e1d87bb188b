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
	"io"
)

// ROI describes a rectangular, optionally sub-sampled, region of the
// N-D array, one entry per dimension.
type ROI struct {
	Offset   []int
	Size     []int
	Sampling []int
}

// DefaultROI returns the ROI covering the whole array unsampled: offset
// all-zero, size to the dimension's end, sampling all-ones (spec.md
// §4.6's documented defaults).
func (ds *Dataset) DefaultROI() ROI {
	n := len(ds.dims)
	roi := ROI{
		Offset:   make([]int, n),
		Size:     make([]int, n),
		Sampling: make([]int, n),
	}
	for i, d := range ds.dims {
		roi.Size[i] = d.Size
		roi.Sampling[i] = 1
	}
	return roi
}

// outSizes returns, per dimension, ceil(size_i/sampling_i): the number of
// samples GetROI will emit along that axis.
func (roi ROI) outSizes() []int {
	out := make([]int, len(roi.Size))
	for i, s := range roi.Size {
		out[i] = (s + roi.Sampling[i] - 1) / roi.Sampling[i]
	}
	return out
}

func (roi ROI) validate(dims []Dimension) error {
	if len(roi.Offset) != len(dims) || len(roi.Size) != len(dims) || len(roi.Sampling) != len(dims) {
		return fmt.Errorf("%w: dimension count mismatch", ErrIllegalROI)
	}
	for i, d := range dims {
		if roi.Sampling[i] < 1 {
			return fmt.Errorf("%w: sampling[%d] < 1", ErrIllegalROI, i)
		}
		if roi.Offset[i] < 0 || roi.Offset[i]+roi.Size[i] > d.Size {
			return fmt.Errorf("%w: offset/size out of range on dimension %d", ErrIllegalROI, i)
		}
	}
	return nil
}

// GetROI reads a region of interest into dst. The implementation walks
// the ROI in row-major order along the outer dimensions: for each outer
// tuple it computes the linear byte offset of the current line's start,
// issues a forward skip from the current stream position to that offset,
// reads width*size[0] raw source bytes, corrects their byte order, and
// gathers every sampling[0]-th element into dst (directly, when
// sampling[0] == 1, or via a line scratch otherwise).
//
// spec.md §9 flags that one branch of the original ROI reader referenced
// the outer loop's index variable after the loop had already exited, to
// compute the destination offset for the gathered elements — almost
// certainly a bug, since the intended offset is the *current sample's*
// index within the line, not wherever the loop counter was left. This
// implementation uses the gather loop's own local index for that
// arithmetic, which is the only interpretation consistent with "gather
// every sampling[0]-th element of the read line into the destination".
func (ds *Dataset) GetROI(roi ROI, dst []byte) Result {
	if err := roi.validate(ds.dims); err != nil {
		return Result{Err: err}
	}

	width := ds.imel.Type.Width()
	outSizes := roi.outSizes()
	expected := int64(width)
	for _, s := range outSizes {
		expected *= int64(s)
	}

	if int64(len(dst)) < expected {
		return Result{Err: ErrBufferTooSmall}
	}

	fullSizes := ds.dimSizes()
	fullStrides := identityStrides(fullSizes)
	outStrides := identityStrides(outSizes)

	rs, err := ds.openReadCodec()
	if err != nil {
		return Result{Err: err}
	}

	if len(outSizes) == 0 {
		return Ok
	}

	dim0 := roi.Size[0]
	sampling0 := roi.Sampling[0]
	outCount0 := outSizes[0]
	lineScratch := make([]byte, dim0*width)

	walk := newLineWalker(outSizes[1:], outStrides)
	for {
		tuple, outLineOffset, ok := walk.next()
		if !ok {
			break
		}

		srcElem := int64(roi.Offset[0])
		for k, t := range tuple {
			coord := roi.Offset[k+1] + t*roi.Sampling[k+1]
			srcElem += int64(coord) * fullStrides[k+1]
		}
		targetByte := srcElem * int64(width)

		if err := rs.codec.skipBlock(targetByte, io.SeekStart); err != nil {
			return Result{Err: err}
		}
		line, rerr := rs.codec.readBlock(dim0 * width)
		if rerr != nil {
			return Result{Err: rerr}
		}
		copy(lineScratch, line)
		// Complex samples reorder per component, not per whole interleaved
		// pair (spec.md §3); width stays the full sample stride for the
		// surrounding byte-offset arithmetic.
		if err := Reorder(ds.order, ds.imel.Type.ComponentWidth(), lineScratch); err != nil {
			return Result{Err: err}
		}

		dstLineStart := outLineOffset * int64(width)
		if sampling0 == 1 {
			copy(dst[dstLineStart:dstLineStart+int64(dim0*width)], lineScratch)
			continue
		}
		for i := 0; i < outCount0; i++ {
			srcOff := i * sampling0 * width
			dstOff := dstLineStart + int64(i*width)
			copy(dst[dstOff:dstOff+int64(width)], lineScratch[srcOff:srcOff+width])
		}
	}

	if err := ds.finalizeRead(); err != nil {
		return Result{Err: err}
	}
	if int64(len(dst)) > expected {
		return Result{Warning: ErrOutputNotFilled}
	}
	return Ok
}
