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
	"bufio"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// deflateReader decodes the gzip envelope from spec.md §4.3. It owns an
// inflate (compress/flate) context plus a refillable input buffer
// (bufio.Reader) and a persistent CRC-32 accumulator, grounded on the
// dictzip reader this codec is adapted from.
//
// Unlike dictzip's reader, which indexes fixed-size chunks via its own
// EXTRA-field offsets table for true random access, this codec has no
// index: spec.md §4.3 seeks by re-decompressing from the start (backward
// seeks) or reading-and-discarding (forward seeks).
type deflateReader struct {
	rs    io.ReadSeeker
	start int64 // offset in rs of the gzip header (the body's first byte)
	buf   *bufio.Reader
	fr    io.ReadCloser

	digest    hash.Hash32
	uncompPos int64 // logical position in the decompressed stream
	finished  bool  // trailer has been read and verified
}

func newDeflateReader(rs io.ReadSeeker) (*deflateReader, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: locating body start: %w", errICS, err)
	}
	z := &deflateReader{rs: rs, start: start}
	if err := z.reopen(); err != nil {
		return nil, err
	}
	return z, nil
}

// reopen seeks the underlying stream to the body's start (the position
// it had when the reader was created), validates the fixed gzip header,
// and installs a fresh flate.Reader over a fresh bufio.Reader. The
// bufio.Reader is shared by reference with the flate.Reader so that bytes
// flate buffers but never consumes remain available for a later direct
// read of the trailer.
func (z *deflateReader) reopen() error {
	if z.fr != nil {
		z.fr.Close()
	}
	if _, err := z.rs.Seek(z.start, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seeking to start: %w", errICS, err)
	}

	var header [10]byte
	if _, err := io.ReadFull(z.rs, header[:]); err != nil {
		return fmt.Errorf("%w: reading gzip header: %w", ErrDecompressionProblem, err)
	}
	if header[0] != gzipID1 || header[1] != gzipID2 {
		return fmt.Errorf("%w: bad gzip magic", ErrDecompressionProblem)
	}
	if header[2] != gzipDeflateCM {
		return fmt.Errorf("%w: unsupported compression method %x", ErrDecompressionProblem, header[2])
	}

	z.buf = bufio.NewReader(z.rs)
	z.fr = flate.NewReader(z.buf)
	z.digest = crc32.NewIEEE()
	z.uncompPos = 0
	z.finished = false
	return nil
}

// readBlock reads exactly n bytes of decompressed data, or fails with
// ErrEndOfStream. Z_BUF_ERROR-equivalent short reads from flate.Reader
// (zero bytes, nil error, can legitimately happen mid-block) are treated
// as benign and retried, per Design Note §9.
func (z *deflateReader) readBlock(n int) ([]byte, error) {
	out := make([]byte, n)
	var total int
	for total < n {
		read, err := z.fr.Read(out[total:])
		if read > 0 {
			if _, herr := z.digest.Write(out[total : total+read]); herr != nil {
				return out[:total+read], fmt.Errorf("%w: updating digest: %w", errICS, herr)
			}
			total += read
			z.uncompPos += int64(read)
		}
		if err != nil {
			if err == io.EOF {
				if verr := z.verifyTrailer(); verr != nil {
					return out[:total], verr
				}
				if total == n {
					return out, nil
				}
				return out[:total], fmt.Errorf("%w: wanted %d bytes, got %d", ErrEndOfStream, n, total)
			}
			return out[:total], fmt.Errorf("%w: %w", ErrDecompressionProblem, err)
		}
		// read == 0, err == nil: benign short read, loop and retry.
	}
	return out, nil
}

// verifyTrailer reads the 8-byte CRC-32/ISIZE trailer following the
// deflate stream and checks it against the accumulated digest and byte
// count. It then rewinds the underlying stream by whatever input the
// bufio.Reader still has buffered but unconsumed, so that a subsequent
// open of the same file finds the file offset just past the trailer.
func (z *deflateReader) verifyTrailer() error {
	if z.finished {
		return nil
	}
	var trailer [8]byte
	if _, err := io.ReadFull(z.buf, trailer[:]); err != nil {
		return fmt.Errorf("%w: reading trailer: %w", ErrDecompressionProblem, err)
	}
	wantCRC := binary.LittleEndian.Uint32(trailer[0:4])
	wantLen := binary.LittleEndian.Uint32(trailer[4:8])
	//nolint:gosec // RFC-1952 explicitly specifies ISIZE modulo 2^32.
	gotLen := uint32(z.uncompPos)
	if wantCRC != z.digest.Sum32() || wantLen != gotLen {
		return ErrCorruptedStream
	}
	z.finished = true

	if buffered := z.buf.Buffered(); buffered > 0 {
		if _, err := z.rs.Seek(-int64(buffered), io.SeekCurrent); err != nil {
			return fmt.Errorf("%w: rewinding: %w", errICS, err)
		}
	}
	return nil
}

// skipBlock seeks the decompressed stream. A seek whose target lies
// before the current position (SEEK_SET, or SEEK_CUR with a negative
// offset) closes and reopens the stream then reads-and-discards up to the
// target. A seek to or past the current position, by either whence,
// reads-and-discards directly. SEEK_END is never supported: a compressed stream's length is
// not known without fully decompressing it.
func (z *deflateReader) skipBlock(offset int64, whence int) error {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = z.uncompPos + offset
	case io.SeekEnd:
		return fmt.Errorf("%w: SEEK_END not supported", ErrIllParameter)
	default:
		return fmt.Errorf("%w: unknown whence %d", ErrIllParameter, whence)
	}
	if target < 0 {
		return fmt.Errorf("%w: negative target offset", ErrIllParameter)
	}

	if target < z.uncompPos {
		if err := z.reopen(); err != nil {
			return err
		}
	}

	const discardChunk = 32 * 1024
	scratch := make([]byte, discardChunk)
	for z.uncompPos < target {
		want := target - z.uncompPos
		if want > discardChunk {
			want = discardChunk
		}
		n, err := z.fr.Read(scratch[:want])
		if n > 0 {
			if _, herr := z.digest.Write(scratch[:n]); herr != nil {
				return fmt.Errorf("%w: updating digest: %w", errICS, herr)
			}
			z.uncompPos += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				return z.verifyTrailer()
			}
			return fmt.Errorf("%w: %w", ErrDecompressionProblem, err)
		}
	}
	return nil
}

// verifyComplete forces the trailer check for a caller that has already
// read exactly the declared number of decompressed bytes (GetData's
// whole-array read) and so never observed flate.Reader's io.EOF itself.
// It issues one more zero-or-more-byte Read; a well-formed stream
// answers with (0, io.EOF), which triggers verifyTrailer. Any
// decompressed bytes coming back here mean the declared size undershot
// the real body, which is ErrFSizeConflict territory, not a trailer
// problem, so it's reported as ErrEndOfStream.
func (z *deflateReader) verifyComplete() error {
	if z.finished {
		return nil
	}
	var scratch [1]byte
	n, err := z.fr.Read(scratch[:])
	if n > 0 {
		return fmt.Errorf("%w: more data after declared body size", ErrEndOfStream)
	}
	if err == io.EOF {
		return z.verifyTrailer()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecompressionProblem, err)
	}
	// read == 0, err == nil: benign short read (Design Note §9); the
	// stream isn't actually exhausted yet, so there's nothing to verify.
	return nil
}

func (z *deflateReader) close() error {
	if z.fr != nil {
		return z.fr.Close()
	}
	return nil
}
