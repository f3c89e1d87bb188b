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
	"bytes"
	"errors"
	"testing"
)

func TestGetROIFullDefaultEqualsGetData(t *testing.T) {
	// Testable Property 3 (ROI equivalence): a default (whole-array,
	// unsampled) ROI must reproduce GetData's output exactly.
	t.Parallel()
	dir := t.TempDir()
	sizes := []int{4, 3}
	payload := make([]byte, 24)
	for i := range payload {
		payload[i] = byte(i)
	}
	base := writeUncompressedDataset(t, dir, sizes, Uint16, payload)

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint16, sizes); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	roi := ds.DefaultROI()
	dst := make([]byte, ds.GetDataSize())
	if res := ds.GetROI(roi, dst); res.Failed() {
		t.Fatalf("GetROI: %v", res.Err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !bytes.Equal(dst, payload) {
		t.Errorf("GetROI(default) = %v, want %v", dst, payload)
	}
}

func TestGetROISubsamplingGathersEveryNth(t *testing.T) {
	// Seed scenario C / D: a sampled ROI along dimension 0 must gather
	// every sampling[0]-th element, using the gather loop's own index
	// (see roi.go's GetROI doc comment for the resolved Open Question).
	t.Parallel()
	dir := t.TempDir()
	sizes := []int{4, 3}
	payload := make([]byte, 24)
	for i := range payload {
		payload[i] = byte(i)
	}
	base := writeUncompressedDataset(t, dir, sizes, Uint16, payload)

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint16, sizes); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	roi := ROI{
		Offset:   []int{0, 0},
		Size:     []int{4, 3},
		Sampling: []int{2, 1},
	}
	dst := make([]byte, 2*3*2) // 2 samples along dim0, 3 along dim1, 2 bytes/sample
	if res := ds.GetROI(roi, dst); res.Failed() {
		t.Fatalf("GetROI: %v", res.Err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Elements 0,2 of each 4-element line (row-major, 2 bytes/sample).
	want := make([]byte, 0, len(dst))
	for line := 0; line < 3; line++ {
		lineStart := line * 4 * 2
		want = append(want, payload[lineStart:lineStart+2]...)
		want = append(want, payload[lineStart+4:lineStart+6]...)
	}
	if !bytes.Equal(dst, want) {
		t.Errorf("sampled GetROI = %v, want %v", dst, want)
	}
}

func TestGetROIOffsetWindow(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sizes := []int{4, 3}
	payload := make([]byte, 24)
	for i := range payload {
		payload[i] = byte(i)
	}
	base := writeUncompressedDataset(t, dir, sizes, Uint16, payload)

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint16, sizes); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	roi := ROI{
		Offset:   []int{1, 1},
		Size:     []int{2, 2},
		Sampling: []int{1, 1},
	}
	dst := make([]byte, 2*2*2)
	if res := ds.GetROI(roi, dst); res.Failed() {
		t.Fatalf("GetROI: %v", res.Err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var want []byte
	for line := 1; line <= 2; line++ {
		lineStart := line*4*2 + 1*2
		want = append(want, payload[lineStart:lineStart+4]...)
	}
	if !bytes.Equal(dst, want) {
		t.Errorf("offset GetROI = %v, want %v", dst, want)
	}
}

func TestGetROIIllegalRange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sizes := []int{4, 3}
	base := writeUncompressedDataset(t, dir, sizes, Uint16, make([]byte, 24))

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint16, sizes); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	roi := ROI{Offset: []int{0, 2}, Size: []int{4, 2}, Sampling: []int{1, 1}}
	dst := make([]byte, 24)
	if res := ds.GetROI(roi, dst); !errors.Is(res.Err, ErrIllegalROI) {
		t.Errorf("GetROI error = %v, want ErrIllegalROI", res.Err)
	}
	ds.Close()
}

func TestGetROIOutputNotFilledWarning(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sizes := []int{4, 3}
	base := writeUncompressedDataset(t, dir, sizes, Uint16, make([]byte, 24))

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint16, sizes); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	roi := ds.DefaultROI()
	dst := make([]byte, ds.GetDataSize()+8) // larger than needed
	res := ds.GetROI(roi, dst)
	if res.Failed() {
		t.Fatalf("GetROI unexpectedly failed: %v", res.Err)
	}
	if res.Warning != ErrOutputNotFilled {
		t.Errorf("Warning = %v, want ErrOutputNotFilled", res.Warning)
	}
	ds.Close()
}
