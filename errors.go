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

import "errors"

// errICS is the base error all package-specific sentinels wrap, so that
// callers can test for "any ICS error" with a single errors.Is(err, errICS).
var errICS = errors.New("ics")

// The closed set of failure kinds from spec.md §7. Two of them,
// ErrFSizeConflict and ErrOutputNotFilled, are never returned as the error
// result of an operation; they are surfaced through a Result's Warning
// field instead (see Result below), because the operation that produced
// them completed usefully and the handle remains valid.
var (
	// ErrIllParameter indicates a malformed mode string, an unrecognized
	// flag, a duplicate flag, or a buffer too small to address the last
	// requested pixel.
	ErrIllParameter = errors.New("ics: illegal parameter")

	// ErrBitsVsSizeConfl indicates a byte-order rewrite was asked to
	// operate on a region whose length is not a multiple of the sample
	// width.
	ErrBitsVsSizeConfl = errors.New("ics: bits vs. size conflict")

	// ErrFWriteIds indicates a short write to the binary body stream.
	ErrFWriteIds = errors.New("ics: writing ids data")

	// ErrEndOfStream indicates a block read could not satisfy the
	// requested length because the stream ended first.
	ErrEndOfStream = errors.New("ics: end of stream")

	// ErrCorruptedStream indicates a gzip trailer CRC-32 or length
	// mismatch.
	ErrCorruptedStream = errors.New("ics: corrupted stream")

	// ErrDecompressionProblem indicates a failure internal to the
	// deflate/LZW decompressor not covered by ErrCorruptedStream.
	ErrDecompressionProblem = errors.New("ics: decompression problem")

	// ErrBlockNotAllowed indicates a block or seek operation was
	// attempted on a codec that only supports single-shot reads (legacy
	// LZW, after its one read).
	ErrBlockNotAllowed = errors.New("ics: block operation not allowed")

	// ErrMissingData indicates a write-mode close with no attached
	// source buffer and no attached external source file.
	ErrMissingData = errors.New("ics: missing data")

	// ErrDuplicateData indicates a second attempt to attach a source
	// buffer, or an attach after set-source, during one write lifetime.
	ErrDuplicateData = errors.New("ics: duplicate data")

	// ErrNoLayout indicates an operation that requires a layout was
	// called before set-layout.
	ErrNoLayout = errors.New("ics: no layout")

	// ErrTooManyDims indicates a dimension count outside 1..MaxDim.
	ErrTooManyDims = errors.New("ics: too many dimensions")

	// ErrIllegalROI indicates an out-of-range ROI offset/size or a
	// sampling stride less than 1.
	ErrIllegalROI = errors.New("ics: illegal ROI")

	// ErrBufferTooSmall indicates the caller's buffer cannot hold the
	// requested output.
	ErrBufferTooSmall = errors.New("ics: buffer too small")

	// ErrNotValidAction indicates an operation invalid for the
	// dataset's format version or file mode, e.g. set-source on a
	// version-1 dataset.
	ErrNotValidAction = errors.New("ics: not a valid action in this mode")

	// ErrNoScilType indicates guess-SCIL-type was asked to classify a
	// sample kind/dimensionality combination with no SCIL tag.
	ErrNoScilType = errors.New("ics: no SCIL type")

	// ErrFCloseIds indicates a failure closing the binary body stream.
	ErrFCloseIds = errors.New("ics: closing ids stream")

	// ErrFSizeConflict is non-fatal: the caller's buffer length
	// disagreed with the layout's implied size when attached via
	// set-data; the buffer is attached anyway.
	ErrFSizeConflict = errors.New("ics: buffer size conflict")

	// ErrOutputNotFilled is non-fatal: get-ROI completed successfully
	// but the caller's buffer was larger than the ROI required.
	ErrOutputNotFilled = errors.New("ics: output not fully written")
)

// errorText maps each sentinel to the human-readable string returned by
// ErrorText.
var errorText = map[error]string{
	ErrIllParameter:         "illegal parameter",
	ErrBitsVsSizeConfl:      "bits vs. size conflict",
	ErrFWriteIds:            "error writing IDS data",
	ErrEndOfStream:          "end of stream",
	ErrCorruptedStream:      "corrupted stream",
	ErrDecompressionProblem: "decompression problem",
	ErrBlockNotAllowed:      "block operation not allowed on this stream",
	ErrMissingData:          "missing data",
	ErrDuplicateData:        "duplicate data",
	ErrNoLayout:             "no layout set",
	ErrTooManyDims:          "too many dimensions",
	ErrIllegalROI:           "illegal region of interest",
	ErrBufferTooSmall:       "buffer too small",
	ErrNotValidAction:       "not a valid action for this dataset",
	ErrNoScilType:           "no corresponding SCIL type",
	ErrFCloseIds:            "error closing IDS data",
	ErrFSizeConflict:        "buffer size does not match layout",
	ErrOutputNotFilled:      "output buffer not completely filled",
}

// errUnknown is the fallback text for any error not in the enumeration.
const errUnknown = "unknown ICS error"

// ErrorText returns the human-readable message for an ICS error. It is a
// total function: errors outside the closed enumeration map to a generic
// fallback string rather than panicking.
func ErrorText(err error) string {
	if err == nil {
		return "no error"
	}
	for sentinel, text := range errorText {
		if errors.Is(err, sentinel) {
			return text
		}
	}
	return errUnknown
}

// Result carries the outcome of an Access API operation. Unlike a bare
// error return, Result distinguishes a hard failure (Err != nil, the
// operation did not complete) from a successful operation that still has
// something to report (Warning != nil, Err == nil): spec.md §7 calls out
// ErrFSizeConflict and ErrOutputNotFilled as exactly this kind of
// non-fatal outcome, and folding them into the same channel as a fatal
// error would force every caller to re-derive which codes are safe to
// ignore.
type Result struct {
	// Err is non-nil only when the operation aborted without completing.
	Err error

	// Warning is non-nil only when the operation completed but has a
	// caveat worth surfacing (ErrFSizeConflict, ErrOutputNotFilled).
	Warning error
}

// Ok is the zero Result: no error, no warning.
var Ok = Result{}

// Failed reports whether the operation aborted.
func (r Result) Failed() bool {
	return r.Err != nil
}
