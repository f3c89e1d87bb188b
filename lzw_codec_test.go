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
	"compress/lzw"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// compressMagicHeader is the literal 3-byte header every real
// compress(1)/.Z file opens with: magic 0x1F 0x9D, then a flags byte —
// here 0x90, block-mode bit (0x80) set with a 16-bit max-code-width
// field (0x10) — the combination `compress` itself defaults to.
var compressMagicHeader = []byte{0x1f, 0x9d, 0x90}

// writeLZWSidecar prepends the real compress(1) file header to a body
// encoded with the standard library's MSB/8-bit compress/lzw writer (the
// same codec lzwReader decodes with), and writes the result to
// base+".ids.Z", the sibling suffix the engine probes for per spec.md
// §6. The header is the genuine 3-byte compress(1) framing lzwReader
// must now strip and validate before the code stream begins; the body
// itself still comes from this package's own encoder rather than a real
// `compress` binary (unavailable in this environment), since the
// standard library's LZW decoder implements the GIF/TIFF/PDF code-table
// variant, not ncompress's, and can only stand in for short streams that
// never grow past its 12-bit code-width ceiling regardless of what a
// real compress(1) stream's header declares (see lzw_codec.go).
func writeLZWSidecar(t *testing.T, base string, payload []byte) {
	t.Helper()
	f, err := os.Create(base + ".ids.Z")
	if err != nil {
		t.Fatalf("creating .ids.Z: %v", err)
	}
	defer f.Close()

	if _, err := f.Write(compressMagicHeader); err != nil {
		t.Fatalf("writing compress(1) header: %v", err)
	}

	w := lzw.NewWriter(f, lzw.MSB, lzwLiteralWidth)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("writing lzw payload: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing lzw writer: %v", err)
	}
}

func TestLZWReadOnlyRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	base := filepath.Join(dir, "legacy")

	payload := make([]byte, 24)
	for i := range payload {
		payload[i] = byte(i)
	}
	writeLZWSidecar(t, base, payload)

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint16, []int{4, 3}); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}
	buf := make([]byte, ds.GetDataSize())
	if res := ds.GetData(buf); res.Failed() {
		t.Fatalf("GetData: %v", res.Err)
	}
	if !bytes.Equal(buf, payload) {
		t.Errorf("round trip mismatch: got %v, want %v", buf, payload)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLZWBlockAndSeekForbidden(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	base := filepath.Join(dir, "legacy")
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	writeLZWSidecar(t, base, payload)

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint8, []int{8}); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}

	buf := make([]byte, 4)
	if res := ds.GetDataBlock(buf, 4); res.Failed() {
		t.Fatalf("first GetDataBlock: %v", res.Err)
	}
	if res := ds.GetDataBlock(buf, 4); res.Err != ErrBlockNotAllowed {
		t.Errorf("second GetDataBlock error = %v, want ErrBlockNotAllowed", res.Err)
	}
	if res := ds.SkipDataBlock(0, 0); res.Err != ErrBlockNotAllowed {
		t.Errorf("SkipDataBlock error = %v, want ErrBlockNotAllowed", res.Err)
	}
	ds.Close()
}

func TestLZWRejectsBadMagic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	base := filepath.Join(dir, "legacy")

	f, err := os.Create(base + ".ids.Z")
	if err != nil {
		t.Fatalf("creating .ids.Z: %v", err)
	}
	// Wrong magic bytes (a plain gzip header) ahead of an otherwise
	// well-formed LZW body.
	if _, err := f.Write([]byte{0x1f, 0x8b, 0x90}); err != nil {
		t.Fatalf("writing bad header: %v", err)
	}
	w := lzw.NewWriter(f, lzw.MSB, lzwLiteralWidth)
	if _, err := w.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("writing lzw payload: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing lzw writer: %v", err)
	}
	f.Close()

	ds, err := Create(base, "r1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res := ds.SetLayout(Uint8, []int{4}); res.Failed() {
		t.Fatalf("SetLayout: %v", res.Err)
	}
	buf := make([]byte, ds.GetDataSize())
	res := ds.GetData(buf)
	if res.Err == nil || !errors.Is(res.Err, ErrCorruptedStream) {
		t.Errorf("GetData error = %v, want ErrCorruptedStream", res.Err)
	}
	ds.Close()
}
