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
	"os"
	"path/filepath"
	"testing"
)

// scenarioAPayload is the literal 24-byte sequence 00 01 ... 17 shared by
// seed scenarios A, B, C, and D.
func scenarioAPayload() []byte {
	payload := make([]byte, 24)
	for i := range payload {
		payload[i] = byte(i)
	}
	return payload
}

// TestSeedScenarioA reproduces spec.md §8 scenario A: layout (u16, 2,
// [4, 3]) written uncompressed with bytes 00..17, read back identical,
// with get-image-size/get-data-size/get-imel-size matching exactly.
func TestSeedScenarioA(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	payload := scenarioAPayload()
	sizes := []int{4, 3}
	base := writeUncompressedDataset(t, dir, sizes, Uint16, payload)

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint16, sizes); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	if got, want := ds.GetImageSize(), int64(12); got != want {
		t.Errorf("GetImageSize = %d, want %d", got, want)
	}
	if got, want := ds.GetDataSize(), int64(24); got != want {
		t.Errorf("GetDataSize = %d, want %d", got, want)
	}
	if got, want := ds.GetImelSize(), 2; got != want {
		t.Errorf("GetImelSize = %d, want %d", got, want)
	}

	got := make([]byte, ds.GetDataSize())
	if res := ds.GetData(got); res.Failed() {
		t.Fatalf("GetData: %v", res.Err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("scenario A read-back = %v, want %v", got, payload)
	}
}

// TestSeedScenarioB is covered by TestGzipHeaderEnvelope and
// TestGzipRoundTripAllLevels in deflate_test.go (gzip level 6 envelope +
// identical read-back).

// TestSeedScenarioC reproduces spec.md §8 scenario C: a ROI on scenario
// A's layout with offset=[1,0], size=[2,3], sampling=[1,1] returns bytes
// at linear positions 2,3,4,5,10,11,12,13,18,19,20,21.
func TestSeedScenarioC(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	payload := scenarioAPayload()
	sizes := []int{4, 3}
	base := writeUncompressedDataset(t, dir, sizes, Uint16, payload)

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint16, sizes); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	roi := ROI{Offset: []int{1, 0}, Size: []int{2, 3}, Sampling: []int{1, 1}}
	dst := make([]byte, 2*3*2)
	if res := ds.GetROI(roi, dst); res.Failed() {
		t.Fatalf("GetROI: %v", res.Err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := []byte{2, 3, 4, 5, 10, 11, 12, 13, 18, 19, 20, 21}
	if !bytes.Equal(dst, want) {
		t.Errorf("scenario C GetROI = %v, want %v", dst, want)
	}
}

// TestSeedScenarioD reproduces spec.md §8 scenario D: a ROI on scenario
// A's layout with sampling=[2,1] (full offset/size) shrinks dimension 0
// to 2 output samples per row, beginning with bytes 0,1,4,5,8,9 (the
// first row and a half of the 3-row output).
func TestSeedScenarioD(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	payload := scenarioAPayload()
	sizes := []int{4, 3}
	base := writeUncompressedDataset(t, dir, sizes, Uint16, payload)

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint16, sizes); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	roi := ROI{Offset: []int{0, 0}, Size: []int{4, 3}, Sampling: []int{2, 1}}
	dst := make([]byte, 2*3*2)
	if res := ds.GetROI(roi, dst); res.Failed() {
		t.Fatalf("GetROI: %v", res.Err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	prefix := []byte{0, 1, 4, 5, 8, 9}
	if !bytes.Equal(dst[:len(prefix)], prefix) {
		t.Errorf("scenario D GetROI prefix = %v, want %v", dst[:len(prefix)], prefix)
	}
}

// TestSeedScenarioE reproduces spec.md §8 scenario E: opening an existing
// version-2 file in "rw" mode, changing dimension 0's order name, and
// closing must rewrite the header while leaving the body bytes at the
// recorded offset unchanged.
func TestSeedScenarioE(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scenario-e.ics")
	header := []byte("ics_version\t2\nlayout\torder\tx\ty\n")
	body := scenarioAPayload()
	if err := os.WriteFile(path, append(append([]byte(nil), header...), body...), 0o644); err != nil {
		t.Fatalf("writing initial file: %v", err)
	}

	ds, err := Create(path, "rw2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ds.embedded = true
	ds.embeddedOffset = int64(len(header))
	if res := ds.SetLayout(Uint16, []int{4, 3}); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	rewritten := []byte("ics_version\t2\nlayout\torder\trow\tcol\n")
	ds.SetHeaderWriter(func(p string, d *Dataset) (int64, error) {
		if err := os.WriteFile(p, rewritten, 0o644); err != nil {
			return 0, err
		}
		return int64(len(rewritten)), nil
	})
	if res := ds.SetOrder(0, "row", "Row"); res.Failed() {
		t.Fatalf("SetOrder: %v", res.Err)
	}

	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading updated file: %v", err)
	}
	want := append(append([]byte(nil), rewritten...), body...)
	if !bytes.Equal(got, want) {
		t.Errorf("scenario E updated file = %v, want %v", got, want)
	}
}

// TestSeedScenarioF is covered by TestGzipCRCDetection in deflate_test.go
// (a one-byte trailer mutation yields ErrCorruptedStream, never
// ErrEndOfStream).
