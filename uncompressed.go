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

// maxWriteChunk bounds a single write(2)-equivalent call. Some host
// fwrite implementations misbehave on very large single writes; chunking
// is cheap and harmless even where that defect no longer exists (Design
// Note §9).
const maxWriteChunk = 1 << 30

// plainCodec implements the uncompressed body codec: contiguous or
// strided write, and block-and-seek read directly against the binary
// file.
type plainCodec struct {
	w io.Writer
	r io.ReadSeeker
}

func newPlainWriter(w io.Writer) *plainCodec {
	return &plainCodec{w: w}
}

func newPlainReader(r io.ReadSeeker) *plainCodec {
	return &plainCodec{r: r}
}

// writeContiguous writes all of buf, chunked at maxWriteChunk.
func (c *plainCodec) writeContiguous(buf []byte) error {
	for len(buf) > 0 {
		n := len(buf)
		if n > maxWriteChunk {
			n = maxWriteChunk
		}
		written, err := c.w.Write(buf[:n])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFWriteIds, err)
		}
		if written != n {
			return fmt.Errorf("%w: short write (%d of %d)", ErrFWriteIds, written, n)
		}
		buf = buf[n:]
	}
	return nil
}

// writeStrided walks the outer dimensions of sizes (dimension 1 upward)
// and, for each line along dimension 0, writes it contiguously when
// strides[0] == 1, or element-by-element otherwise.
func (c *plainCodec) writeStrided(buf []byte, width int, sizes []int, strides []int64) error {
	if len(sizes) == 0 {
		return ErrIllParameter
	}
	dim0 := sizes[0]
	stride0 := strides[0]

	walk := newLineWalker(sizes[1:], strides)
	for {
		_, lineOffset, ok := walk.next()
		if !ok {
			break
		}
		if err := c.writeLine(buf, lineOffset, width, dim0, stride0); err != nil {
			return err
		}
	}
	return nil
}

func (c *plainCodec) writeLine(buf []byte, lineOffset int64, width int, dim0 int, stride0 int64) error {
	base := lineOffset * int64(width)
	if stride0 == 1 {
		line := buf[base : base+int64(dim0*width)]
		return c.writeContiguous(line)
	}
	for i := 0; i < dim0; i++ {
		off := (lineOffset + int64(i)*stride0) * int64(width)
		elem := buf[off : off+int64(width)]
		if err := c.writeContiguous(elem); err != nil {
			return err
		}
	}
	return nil
}

// readBlock reads exactly n bytes, or fails with ErrEndOfStream.
func (c *plainCodec) readBlock(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(c.r, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return buf[:read], fmt.Errorf("%w: wanted %d bytes, got %d", ErrEndOfStream, n, read)
		}
		return buf[:read], err
	}
	return buf, nil
}

// skipBlock seeks forward or backward by offset relative to whence.
// SEEK_END is not supported (the whole point of this codec family is to
// serve codecs that may not know their own length in advance).
func (c *plainCodec) skipBlock(offset int64, whence int) error {
	if whence == io.SeekEnd {
		return fmt.Errorf("%w: SEEK_END not supported", ErrIllParameter)
	}
	_, err := c.r.Seek(offset, whence)
	return err
}
