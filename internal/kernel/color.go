// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "github.com/mrjoshuak/go-openexr/half"

// PackR11G11B10 packs an RGB color into the unsigned 11/11/10-bit float
// format used by blend items: R in bits 0..10, G in 11..21, B in 22..31.
// Negative and NaN channels become zero. Larger values, infinity included,
// clamp to maxR11G11B10.
//
// The small floats share the 5-bit exponent of IEEE half precision, so each
// channel is the half encoding with the sign dropped and the mantissa
// truncated to 6 (R, G) or 5 (B) bits.
func PackR11G11B10(rgb [3]float32) uint32 {
	r := uint32(toHalf(rgb[0])>>4) & 0x7FF
	g := uint32(toHalf(rgb[1])>>4) & 0x7FF
	b := uint32(toHalf(rgb[2])>>5) & 0x3FF
	return r | g<<11 | b<<22
}

// UnpackR11G11B10 is the inverse of PackR11G11B10.
func UnpackR11G11B10(v uint32) [3]float32 {
	return [3]float32{
		half.Half(v & 0x7FF << 4).Float32(),
		half.Half(v >> 11 & 0x7FF << 4).Float32(),
		half.Half(v >> 22 & 0x3FF << 5).Float32(),
	}
}

// maxR11G11B10 is the largest finite 11-bit channel value.
const maxR11G11B10 = 65024

func toHalf(f float32) half.Half {
	if !(f > 0) {
		return 0
	}
	return half.FromFloat32(min(f, maxR11G11B10))
}
