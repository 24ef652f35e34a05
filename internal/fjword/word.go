/*
 * flip-jump - Word width constraint and per-width constants.
 *
 * Copyright 2026, Flip-Jump Interpreter Contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package fjword holds the word-width machinery used by the I/O bridge,
// the loader and cmd/fji: a single flip-jump machine's bit-addresses,
// word-addresses and word values are all the same unsigned integer
// type, sized by the image's w field.
package fjword

import "fmt"

// Word is satisfied by exactly the four word widths a flip-jump image
// header can declare. Every address and value in a given machine is
// this one type; arithmetic on it wraps exactly like the underlying
// hardware word would.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Width is the word width in bits, as declared by an image header.
type Width uint16

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Valid reports whether w is one of the four supported word widths.
func (w Width) Valid() bool {
	switch w {
	case Width8, Width16, Width32, Width64:
		return true
	default:
		return false
	}
}

func (w Width) String() string {
	return fmt.Sprintf("w%d", uint16(w))
}

// InBit returns k, the bit offset within word 3 that carries the
// machine-visible input bit: IO_IN lives at bit-address 3w+k.
// Values per spec: 4, 5, 6, 7 for w = 8, 16, 32, 64.
func InBit(w Width) uint {
	switch w {
	case Width8:
		return 4
	case Width16:
		return 5
	case Width32:
		return 6
	case Width64:
		return 7
	default:
		panic("fjword: InBit called with invalid width")
	}
}
