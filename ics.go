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

// Package ics implements the core codec and access engine of the Image
// Cytometry Standard (ICS), a scientific image container used in
// microscopy and cytometry.
//
// A dataset is a pair of files: a text header (.ics) and, for version 1
// datasets, a companion binary body (.ids) carrying an N-dimensional array
// of numeric samples, optionally compressed with gzip or the legacy
// Unix compress(1) algorithm. Version 2 datasets embed the binary body in
// the .ics file itself, at a recorded byte offset.
//
// This package implements the binary pipeline only: byte-order correction,
// the uncompressed/gzip/legacy-compress codecs, strided N-D traversal, and
// the dataset lifecycle (open, access, update, close). The textual .ics
// header grammar is the responsibility of a separate metadata layer that
// is expected to drive this package through [Dataset]'s accessors.
//
// Unless otherwise noted, a [Dataset] is not safe for concurrent use by
// multiple goroutines.
package ics

const (
	// MaxDim is the maximum number of dimensions a dataset may declare.
	MaxDim = 10

	// MaxImelSize is the maximum width, in bytes, of a single sample
	// (imel). The widest registered sample kind is a 64-bit-component
	// complex number, two 8-byte floats interleaved.
	MaxImelSize = 16
)
