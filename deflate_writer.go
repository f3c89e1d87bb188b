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
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// gzipID1, gzipID2, gzipDeflateCM are the fixed first three bytes of the
// minimal gzip envelope spec.md §4.3 requires: no extra field, no name,
// no comment, no header CRC.
const (
	gzipID1       byte = 0x1f
	gzipID2       byte = 0x8b
	gzipDeflateCM byte = 0x08
)

// deflateScratchSize is the per-chunk input size the no-strides bulk
// path feeds to the compressor; the running CRC is updated once per
// chunk.
const deflateScratchSize = 32 * 1024

// deflateWriter streams a body through compress/flate, wrapped in the
// hand-rolled gzip envelope from spec.md §4.3: two magic bytes, method
// byte, a zero flags byte, six zero bytes (mtime/xflags/OS), then a raw
// deflate stream (no zlib header, via flate's standard raw mode), then a
// little-endian CRC-32 of the uncompressed bytes and a little-endian
// truncated-mod-2^32 length.
//
// This is the same envelope-around-raw-deflate shape as the dictzip
// writer this codec is grounded on, trimmed of the EXTRA/NAME/COMMENT
// fields dictzip uses for its own random-access chunk index (this format
// doesn't need one: ICS seeks by re-decompressing from the start, per
// §4.3's seek emulation).
type deflateWriter struct {
	w          io.Writer
	compressor *flate.Writer
	digest     hash.Hash32
	isize      int64
	headerSent bool
}

func newDeflateWriter(w io.Writer, level int) (*deflateWriter, error) {
	fw, err := flate.NewWriter(w, level)
	if err != nil {
		return nil, fmt.Errorf("%w: initializing deflate writer: %w", errICS, err)
	}
	return &deflateWriter{
		w:          w,
		compressor: fw,
		digest:     crc32.NewIEEE(),
	}, nil
}

func (z *deflateWriter) writeHeader() error {
	if z.headerSent {
		return nil
	}
	z.headerSent = true
	header := [10]byte{gzipID1, gzipID2, gzipDeflateCM, 0, 0, 0, 0, 0, 0, 0}
	if _, err := z.w.Write(header[:]); err != nil {
		return fmt.Errorf("%w: writing gzip header: %w", ErrFWriteIds, err)
	}
	return nil
}

// writeContiguous streams the whole of buf, as a single unstrided body.
func (z *deflateWriter) writeContiguous(buf []byte) error {
	if err := z.writeHeader(); err != nil {
		return err
	}
	for i := 0; i < len(buf); i += deflateScratchSize {
		j := i + deflateScratchSize
		if j > len(buf) {
			j = len(buf)
		}
		if err := z.writeChunk(buf[i:j]); err != nil {
			return err
		}
	}
	return nil
}

// writeStrided streams buf line by line: a line is gathered zero-copy
// when strides[0] == 1, or assembled into a per-line scratch otherwise.
// CRC is updated per line via writeChunk.
func (z *deflateWriter) writeStrided(buf []byte, width int, sizes []int, strides []int64) error {
	if err := z.writeHeader(); err != nil {
		return err
	}
	if len(sizes) == 0 {
		return ErrIllParameter
	}
	dim0 := sizes[0]
	stride0 := strides[0]
	lineBytes := dim0 * width
	scratch := make([]byte, lineBytes)

	walk := newLineWalker(sizes[1:], strides)
	for {
		_, lineOffset, ok := walk.next()
		if !ok {
			break
		}
		base := lineOffset * int64(width)
		var line []byte
		if stride0 == 1 {
			line = buf[base : base+int64(lineBytes)]
		} else {
			for i := 0; i < dim0; i++ {
				off := (lineOffset + int64(i)*stride0) * int64(width)
				copy(scratch[i*width:(i+1)*width], buf[off:off+int64(width)])
			}
			line = scratch
		}
		if err := z.writeChunk(line); err != nil {
			return err
		}
	}
	return nil
}

// writeChunk feeds p through the compressor and updates the running CRC.
func (z *deflateWriter) writeChunk(p []byte) error {
	n, err := z.compressor.Write(p)
	z.isize += int64(n)
	if err != nil {
		return fmt.Errorf("%w: compressing: %w", errICS, err)
	}
	if _, err := z.digest.Write(p[:n]); err != nil {
		return fmt.Errorf("%w: updating digest: %w", errICS, err)
	}
	return nil
}

// close finishes the deflate stream and writes the CRC-32/ISIZE trailer.
// It must be called exactly once, after every body byte has been
// streamed through writeContiguous or writeStrided.
func (z *deflateWriter) close() error {
	if err := z.writeHeader(); err != nil {
		return err
	}
	if err := z.compressor.Close(); err != nil {
		return fmt.Errorf("%w: closing deflate stream: %w", errICS, err)
	}
	var trailer [8]byte
	binary.LittleEndian.PutUint32(trailer[0:4], z.digest.Sum32())
	//nolint:gosec // RFC-1952 explicitly specifies ISIZE modulo 2^32.
	binary.LittleEndian.PutUint32(trailer[4:8], uint32(z.isize))
	if _, err := z.w.Write(trailer[:]); err != nil {
		return fmt.Errorf("%w: writing trailer: %w", ErrFWriteIds, err)
	}
	return nil
}
