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

// lineWalker lexicographically visits every index tuple of the outer
// dimensions (dimension 1 upward; dimension 0 is the "line" a caller
// reads or writes in one piece) of an array whose per-dimension extents
// and strides are given. Every strided write, strided read, and ROI
// traversal in this package is a different body plugged into the same
// walker, per Design Note §9, instead of four separate nested-loop
// implementations.
type lineWalker struct {
	sizes   []int   // outer-dimension extents (sizes[0] corresponds to dimension 1)
	strides []int64 // element strides for every dimension, strides[0] is dimension 0's

	tuple []int
	done  bool
}

// newLineWalker builds a walker over the outer dimensions described by
// sizes (dimension 1 upward) using the full per-dimension element strides
// (dimension 0 upward, i.e. len(strides) == len(sizes)+1).
func newLineWalker(sizes []int, strides []int64) *lineWalker {
	w := &lineWalker{
		sizes:   sizes,
		strides: strides,
		tuple:   make([]int, len(sizes)),
	}
	for _, s := range sizes {
		if s == 0 {
			w.done = true
		}
	}
	return w
}

// next advances to the next outer tuple, returning false once every tuple
// has been visited. On the first call it reports the all-zero tuple. The
// returned offset is the element offset (not byte offset) of the line
// start for the current tuple, i.e. sum(tuple[i] * strides[i+1]).
func (w *lineWalker) next() (tuple []int, lineOffset int64, ok bool) {
	if w.done {
		return nil, 0, false
	}
	if len(w.sizes) == 0 {
		// A single-line, zero-outer-dimension array: visit the one line
		// then stop.
		w.done = true
		return nil, 0, true
	}

	offset := int64(0)
	for i, t := range w.tuple {
		offset += int64(t) * w.strides[i+1]
	}

	tuple = append([]int(nil), w.tuple...)

	// Advance the tuple, carrying, for the *next* call.
	w.advance()

	return tuple, offset, true
}

// advance steps the tuple to its successor (dimension 1 fastest, matching
// the row-major-by-dimension-0 memory order), marking the walker done once
// every tuple has been visited. It is called only by next.
func (w *lineWalker) advance() {
	for i := 0; i < len(w.tuple); i++ {
		w.tuple[i]++
		if w.tuple[i] < w.sizes[i] {
			return
		}
		w.tuple[i] = 0
	}
	w.done = true
}

// identityStrides returns the element strides of a contiguous,
// row-major-by-dimension-0 array with the given per-dimension sizes:
// strides[0] = 1, strides[i] = strides[i-1] * sizes[i-1].
func identityStrides(sizes []int) []int64 {
	strides := make([]int64, len(sizes))
	if len(sizes) == 0 {
		return strides
	}
	strides[0] = 1
	for i := 1; i < len(sizes); i++ {
		strides[i] = strides[i-1] * int64(sizes[i-1])
	}
	return strides
}
