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
	"os"
)

// bodyReader is the read-side contract every body codec (uncompressed,
// deflate, legacy LZW) implements. get-data-block/skip-data-block are
// legal only against codecs that support partial reads; the legacy LZW
// codec serves one block read out of its single whole-stream decode and
// returns ErrBlockNotAllowed for every later block read and for every
// seek, per spec.md §4.4.
type bodyReader interface {
	readBlock(n int) ([]byte, error)
	skipBlock(offset int64, whence int) error
	close() error

	// verifyComplete is called once the caller believes it has consumed
	// the entire declared body (GetData's whole-array read). Codecs that
	// carry a trailer (gzip) use it to force the one extra Read that
	// observes the underlying decompressor's EOF and checks the CRC-32
	// and length; codecs with no trailer are a no-op.
	verifyComplete() error
}

// plainCloser adapts plainCodec to bodyReader; the uncompressed codec
// owns no resources of its own to release and has no trailer to verify.
type plainCloser struct{ *plainCodec }

func (plainCloser) close() error          { return nil }
func (plainCloser) verifyComplete() error { return nil }

// readState is non-nil precisely while a streaming read is mid-dataset
// (spec.md §3 invariants); closing the dataset while one exists finalizes
// it implicitly.
type readState struct {
	codec bodyReader
	file  *os.File // the binary body file this readState owns, if any
}

// Dataset is the ICS dataset handle: the in-memory metadata record plus
// the open-for-read/write/update state and the companion binary stream
// descriptor, per spec.md §3.
type Dataset struct {
	filename string
	mode     parsedMode
	version  int

	// layout
	imel      Imel
	dims      []Dimension
	layoutSet bool

	coordSystem string
	scilType    string
	order       ByteOrder

	compression CompressionType
	level       int

	// write-side attached source
	dataBuf        []byte
	dataStrides    []int64
	hasStrides     bool
	dataAttached   bool
	sourceAttached bool
	sourceFile     string
	sourceOffset   int64

	// version-2 embedded body offset, for read mode.
	embeddedOffset int64
	embedded       bool

	read *readState

	headerWriter HeaderWriter

	closed bool
}

// Create opens a Dataset for reading, writing, or (via "rw" mode strings)
// update. modeStr follows the grammar in spec.md §4.5. Update mode
// additionally requires the named file to already exist (spec.md:89);
// when it doesn't, the mode downgrades to plain write, since there is
// nothing to rename aside or stream a body back from.
func Create(filename, modeStr string) (*Dataset, error) {
	pm, err := parseMode(modeStr)
	if err != nil {
		return nil, err
	}
	if pm.mode == ModeUpdate {
		if _, err := os.Stat(filename); err != nil {
			pm.mode = ModeWrite
		}
	}
	ds := &Dataset{
		filename: filename,
		mode:     pm,
		version:  pm.version,
		level:    -1,
	}
	return ds, nil
}

// Mode reports the dataset's file-mode state.
func (ds *Dataset) Mode() FileMode {
	return ds.mode.mode
}

// Version reports the dataset's format version (1 or 2).
func (ds *Dataset) Version() int {
	return ds.version
}

// sidecarPath returns the companion binary file path for a version-1
// dataset. When forceName is set, the filename is used as-is (no suffix
// synthesis); otherwise a ".ids" suffix is appended.
func (ds *Dataset) sidecarPath() string {
	if ds.mode.forceName {
		return ds.filename
	}
	return ds.filename + ".ids"
}

// resolveReadBody locates the binary body for a read-mode (or
// update-mode) dataset and returns an io.ReadSeeker over it along with
// the codec that should decode it. For version 1, a missing plain .ids
// probes for ".ids.gz" and ".ids.Z" siblings (spec.md §6, external
// interface (d)). For version 2, the body is embedded in the dataset's
// own file at ds.embeddedOffset.
func (ds *Dataset) resolveReadBody() (*os.File, CompressionType, error) {
	if ds.version == 2 {
		f, err := os.Open(ds.filename)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: opening %s: %w", errICS, ds.filename, err)
		}
		if _, err := f.Seek(ds.embeddedOffset, io.SeekStart); err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("%w: seeking to body offset: %w", errICS, err)
		}
		return f, ds.compression, nil
	}

	if ds.sourceAttached {
		f, err := os.Open(ds.sourceFile)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: opening %s: %w", errICS, ds.sourceFile, err)
		}
		if _, err := f.Seek(ds.sourceOffset, io.SeekStart); err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("%w: seeking to source offset: %w", errICS, err)
		}
		return f, ds.compression, nil
	}

	plain := ds.sidecarPath()
	if f, err := os.Open(plain); err == nil {
		return f, ds.compression, nil
	}
	if f, err := os.Open(plain + ".gz"); err == nil {
		return f, Gzip, nil
	}
	if f, err := os.Open(plain + ".Z"); err == nil {
		return f, Compress, nil
	}
	return nil, 0, fmt.Errorf("%w: opening %s: %w", errICS, plain, os.ErrNotExist)
}

// openReadCodec opens the body file (if not already open) and wraps it
// in the codec matching its compression. Called lazily by get-data/
// get-data-block/get-ROI on first access.
func (ds *Dataset) openReadCodec() (*readState, error) {
	if ds.read != nil {
		return ds.read, nil
	}
	f, ctype, err := ds.resolveReadBody()
	if err != nil {
		return nil, err
	}

	var codec bodyReader
	switch ctype {
	case Uncompressed:
		codec = plainCloser{newPlainReader(f)}
	case Gzip:
		dz, err := newDeflateReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		codec = dz
	case Compress:
		codec = &lzwBlockReader{lzwReader: newLZWReader(f)}
	default:
		f.Close()
		return nil, fmt.Errorf("%w: unknown compression", errICS)
	}

	ds.read = &readState{codec: codec, file: f}
	return ds.read, nil
}

// lzwBlockReader adapts lzwReader to bodyReader. Its close is a no-op:
// the underlying file belongs to the readState and is closed by
// finalizeRead.
type lzwBlockReader struct {
	*lzwReader
	fullRead []byte
	consumed int
	started  bool
}

func (z *lzwBlockReader) readBlock(n int) ([]byte, error) {
	if !z.started {
		z.started = true
		data, err := z.readAll()
		if err != nil {
			return nil, err
		}
		z.fullRead = data
	} else if z.consumed > 0 {
		return nil, ErrBlockNotAllowed
	}
	remaining := len(z.fullRead) - z.consumed
	if n > remaining {
		out := z.fullRead[z.consumed:]
		z.consumed = len(z.fullRead)
		return out, fmt.Errorf("%w: wanted %d bytes, got %d", ErrEndOfStream, n, len(out))
	}
	out := z.fullRead[z.consumed : z.consumed+n]
	z.consumed += n
	return out, nil
}

func (z *lzwBlockReader) skipBlock(int64, int) error {
	return ErrBlockNotAllowed
}

func (z *lzwBlockReader) close() error {
	return nil
}

// verifyComplete is a no-op: the legacy LZW container carries no
// trailer, and readAll already decoded (and so validated) the entire
// stream up front.
func (z *lzwBlockReader) verifyComplete() error {
	return nil
}

// finalizeRead closes any in-flight read codec and the body file it
// opened. It is always safe to call even if no read is in flight.
func (ds *Dataset) finalizeRead() error {
	if ds.read == nil {
		return nil
	}
	err := ds.read.codec.close()
	if ds.read.file != nil {
		if cerr := ds.read.file.Close(); err == nil {
			err = cerr
		}
	}
	ds.read = nil
	return err
}

// Close tears down the dataset, flushing pending writes first. See
// spec.md §4.5 for the per-mode close behavior; the update-mode path is
// implemented in update.go.
func (ds *Dataset) Close() error {
	if ds.closed {
		return nil
	}
	ds.closed = true

	switch ds.mode.mode {
	case ModeRead:
		return ds.finalizeRead()
	case ModeWrite:
		return ds.closeWrite()
	case ModeUpdate:
		return ds.closeUpdate()
	default:
		return nil
	}
}

// closeWrite implements the write-mode close path of spec.md §4.5:
// header then body, with MissingData when there's no attached source.
func (ds *Dataset) closeWrite() error {
	if err := ds.writeHeader(ds.filename); err != nil {
		return err
	}
	if ds.sourceAttached && !ds.dataAttached {
		// An attached external source instead of an attached buffer
		// skips the body write entirely.
		return nil
	}
	if !ds.dataAttached {
		return ErrMissingData
	}
	return ds.writeBody()
}

// writeHeader is a placeholder seam for the external text-header layer:
// this package owns only the binary pipeline, so emitting the .ics text
// header is delegated. For version 2, the header must be followed
// in-place by the body at a recorded offset; HeaderWriter lets a caller
// supply that emitter.
type HeaderWriter func(path string, ds *Dataset) (bodyOffset int64, err error)

// defaultHeaderWriter is the fallback writeHeader uses when no
// per-dataset writer was installed with SetHeaderWriter. Nothing in this
// package assigns it, so without SetHeaderWriter writeHeader is a no-op
// (the caller is expected to have already written the header through the
// external layer before invoking operations that need one).
var defaultHeaderWriter HeaderWriter

// SetHeaderWriter installs the callback used to emit the .ics text
// header at Close time. The text-header grammar itself is out of scope
// for this package (spec.md §1); this hook is how the surrounding
// metadata layer plugs in.
func (ds *Dataset) SetHeaderWriter(w HeaderWriter) {
	ds.headerWriter = w
}

func (ds *Dataset) writeHeader(path string) error {
	w := ds.headerWriter
	if w == nil {
		w = defaultHeaderWriter
	}
	if w == nil {
		return nil
	}
	offset, err := w(path, ds)
	if err != nil {
		return err
	}
	ds.embeddedOffset = offset
	ds.embedded = ds.version == 2
	return nil
}

// writeBody streams ds.dataBuf to the binary destination (a sibling .ids
// for version 1, appended to the same file for version 2).
func (ds *Dataset) writeBody() error {
	var f *os.File
	var err error
	if ds.version == 2 {
		f, err = os.OpenFile(ds.filename, os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("%w: opening %s: %w", errICS, ds.filename, err)
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return fmt.Errorf("%w: seeking to end: %w", errICS, err)
		}
	} else {
		f, err = os.OpenFile(ds.sidecarPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("%w: opening %s: %w", errICS, ds.sidecarPath(), err)
		}
	}
	defer f.Close()

	return ds.streamBodyTo(f)
}

// streamBodyTo writes ds.dataBuf (contiguous or strided, per whether
// ds.hasStrides is set) through the codec selected by ds.compression.
func (ds *Dataset) streamBodyTo(f *os.File) error {
	width := ds.imel.Type.Width()
	sizes := ds.dimSizes()

	switch ds.compression {
	case Uncompressed:
		pc := newPlainWriter(f)
		if ds.hasStrides {
			return pc.writeStrided(ds.dataBuf, width, sizes, ds.dataStrides)
		}
		return pc.writeContiguous(ds.dataBuf)
	case Gzip, Compress:
		// compress is silently upgraded to gzip for writes (spec.md §4.4).
		level := ds.level
		if level < 0 {
			level = 6
		}
		dz, err := newDeflateWriter(f, level)
		if err != nil {
			return err
		}
		if ds.hasStrides {
			if err := dz.writeStrided(ds.dataBuf, width, sizes, ds.dataStrides); err != nil {
				return err
			}
		} else {
			if err := dz.writeContiguous(ds.dataBuf); err != nil {
				return err
			}
		}
		return dz.close()
	default:
		return fmt.Errorf("%w: unknown compression", errICS)
	}
}

// dimSizes returns the per-dimension element counts in order.
func (ds *Dataset) dimSizes() []int {
	sizes := make([]int, len(ds.dims))
	for i, d := range ds.dims {
		sizes[i] = d.Size
	}
	return sizes
}
