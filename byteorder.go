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
	"unsafe"
)

// ByteOrder is a permutation of 1..width describing how the bytes of one
// sample are laid out on disk, relative to the sample's native in-memory
// representation. Entries beyond the declared width are zero.
type ByteOrder [MaxImelSize]byte

// hostByteOrder is computed once, at package initialization, by
// inspecting the low byte of the integer value 1, and is never written
// again. It is the only piece of package-level state derived from the
// host (Design Note §9).
var hostByteOrder = computeHostByteOrder()

func computeHostByteOrder() bool {
	var one uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&one))
	// Little-endian host: the low byte of 1 is stored first.
	return b[0] == 1
}

// HostLittleEndian reports whether the running host is little-endian.
func HostLittleEndian() bool {
	return hostByteOrder
}

// defaultOrder fills a canonical ByteOrder for the host and the given
// sample width: little-endian hosts get the identity permutation
// [1,2,...,width]; big-endian hosts get the reversed permutation
// [width,...,1].
func defaultOrder(width int) ByteOrder {
	var order ByteOrder
	if hostByteOrder {
		for i := 0; i < width; i++ {
			order[i] = byte(i + 1)
		}
	} else {
		for i := 0; i < width; i++ {
			order[i] = byte(width - i)
		}
	}
	return order
}

// isUnspecified reports whether order is the all-zero "unspecified"
// sentinel.
func (o ByteOrder) isUnspecified() bool {
	for _, b := range o {
		if b != 0 {
			return false
		}
	}
	return true
}

// equalWidth reports whether a and b agree on their first width entries.
func equalWidth(a, b ByteOrder, width int) bool {
	for i := 0; i < width; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Reorder rewrites buf in place so that every width-byte sample has its
// bytes in the host's native order, given that the file declared src as
// its byte-order vector.
//
// Reorder is a no-op when src equals the host's own order, or when src is
// the all-zero "unspecified" sentinel. It fails with ErrBitsVsSizeConfl if
// len(buf) is not a multiple of width. A width greater than MaxImelSize is
// clamped to MaxImelSize: that situation is an upstream invariant
// violation (no registered sample kind is that wide), and the engine
// refuses to index src out of bounds rather than propagate the violation
// into a buffer overrun.
func Reorder(src ByteOrder, width int, buf []byte) error {
	if width <= 0 {
		return nil
	}
	if width > MaxImelSize {
		width = MaxImelSize
	}
	if len(buf)%width != 0 {
		return fmt.Errorf("%w: region length %d not a multiple of width %d", ErrBitsVsSizeConfl, len(buf), width)
	}

	host := defaultOrder(width)
	if src.isUnspecified() || equalWidth(src, host, width) {
		return nil
	}

	// hostPos[k] is the 0-based position at which the host stores the
	// byte that an order vector labels k.
	var hostPos [MaxImelSize + 1]int
	for j := 0; j < width; j++ {
		hostPos[host[j]] = j
	}

	var scratch [MaxImelSize]byte
	for off := 0; off < len(buf); off += width {
		sample := buf[off : off+width]
		for i := 0; i < width; i++ {
			// src[i] labels disk byte i; it belongs where the host keeps
			// the byte with the same label.
			label := int(src[i])
			if label < 1 || label > width {
				continue
			}
			scratch[hostPos[label]] = sample[i]
		}
		copy(sample, scratch[:width])
	}
	return nil
}
