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

// SampleType identifies the numeric kind of one imel (image element).
type SampleType int

const (
	// Unknown is the zero value: no sample kind has been set.
	Unknown SampleType = iota

	Uint8
	Sint8
	Uint16
	Sint16
	Uint32
	Sint32
	Real32
	Real64

	// Complex32 is a pair of interleaved Real32 components.
	Complex32

	// Complex64 is a pair of interleaved Real64 components.
	Complex64
)

// sampleWidths gives the on-disk width, in bytes, of each non-Unknown
// sample kind.
var sampleWidths = map[SampleType]int{
	Uint8:     1,
	Sint8:     1,
	Uint16:    2,
	Sint16:    2,
	Uint32:    4,
	Sint32:    4,
	Real32:    4,
	Real64:    8,
	Complex32: 8,
	Complex64: 16,
}

var sampleNames = map[SampleType]string{
	Unknown:   "unknown",
	Uint8:     "uint8",
	Sint8:     "sint8",
	Uint16:    "uint16",
	Sint16:    "sint16",
	Uint32:    "uint32",
	Sint32:    "sint32",
	Real32:    "real32",
	Real64:    "real64",
	Complex32: "complex32",
	Complex64: "complex64",
}

// Width returns the on-disk size in bytes of one sample of this kind. It
// returns 0 for Unknown.
func (t SampleType) Width() int {
	return sampleWidths[t]
}

// IsComplex reports whether t is one of the complex sample kinds. A
// complex sample is two interleaved real components and is handled as
// such by the byte-order engine.
func (t SampleType) IsComplex() bool {
	return t == Complex32 || t == Complex64
}

// ComponentWidth returns the width, in bytes, of one real component of a
// complex sample kind. For non-complex kinds it equals Width.
func (t SampleType) ComponentWidth() int {
	if t.IsComplex() {
		return t.Width() / 2
	}
	return t.Width()
}

// String implements fmt.Stringer.
func (t SampleType) String() string {
	if name, ok := sampleNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether t is a recognized, non-Unknown sample kind.
func (t SampleType) Valid() bool {
	_, ok := sampleWidths[t]
	return ok
}
