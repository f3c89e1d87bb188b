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

import "fmt"

// defaultOrderNames is the canonical dimension order-name sequence;
// dimensions beyond it default to "dim_i".
var defaultOrderNames = []string{"x", "y", "z", "t", "probe"}

// defaultOrderName returns the default order-name for dimension index i
// (0-based).
func defaultOrderName(i int) string {
	if i < len(defaultOrderNames) {
		return defaultOrderNames[i]
	}
	return fmt.Sprintf("dim_%d", i)
}

// Dimension describes one axis of a dataset's N-dimensional array.
type Dimension struct {
	Size   int // element count along this axis; must be positive
	Order  string
	Label  string
	Origin float64
	Scale  float64
	Unit   string
}

// newDimension builds a Dimension with spec.md §3's default policy: order
// defaults to the canonical sequence, label defaults to the order name,
// unit defaults to "undefined".
func newDimension(index, size int) Dimension {
	order := defaultOrderName(index)
	return Dimension{
		Size:  size,
		Order: order,
		Label: order,
		Scale: 1,
		Unit:  "undefined",
	}
}

// Imel (image element) describes the dataset's sample kind and per-sample
// metadata.
type Imel struct {
	Type    SampleType
	SigBits int // significant-bits count; must be <= 8*Type.Width()
	Origin  float64
	Scale   float64
	Unit    string // defaults to "relative"
}

// newImel builds an Imel with spec.md §3's default policy: significant
// bits set to the full sample width, unit defaulting to "relative".
func newImel(t SampleType) Imel {
	return Imel{
		Type:    t,
		SigBits: 8 * t.Width(),
		Scale:   1,
		Unit:    "relative",
	}
}

// CompressionType selects the body codec.
type CompressionType int

const (
	Uncompressed CompressionType = iota
	Gzip
	Compress
)

func (c CompressionType) String() string {
	switch c {
	case Uncompressed:
		return "uncompressed"
	case Gzip:
		return "gzip"
	case Compress:
		return "compress"
	default:
		return "unknown"
	}
}
