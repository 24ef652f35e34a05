/*
 * flip-jump - Bit-serial I/O bridge.
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

// Package iobridge adapts the flip-jump machine's bit-addressed I/O
// reserved addresses (IO_OUT0, IO_OUT1, IO_IN) onto a byte-oriented
// io.Writer/io.Reader pair, packing and unpacking bits LSB-first.
package iobridge

import (
	"bufio"
	"io"
	"log/slog"

	"flip-jump/internal/fjword"
	"flip-jump/internal/memory"
)

// Clock lets the bridge exclude I/O wait time from the engine's
// statistics, mirroring fjmReader.h pausing its timer around a byte
// read or an 8-bit output flush.
type Clock interface {
	Pause()
	Resume()
}

// nopClock is used when the caller doesn't care about excluding I/O
// time from statistics (e.g. tests).
type nopClock struct{}

func (nopClock) Pause()  {}
func (nopClock) Resume() {}

// Bridge holds the bit-packing state for one machine's input and
// output streams: an accumulating output byte plus its fill count, and
// an input byte plus its remaining unconsumed bit count.
type Bridge[W memory.Uint] struct {
	width   W
	outBit0 W // bit-address of IO_OUT0 = 2w
	outBit1 W // bit-address of IO_OUT1 = 2w+1
	inWord  W // word-address of IO_IN = 3
	inBit   uint

	out    *bufio.Writer
	in     *bufio.Reader
	clock  Clock
	logger *slog.Logger

	outCur  byte
	outSize uint

	inCur    byte
	inSize   uint
	inAtEOF  bool
	loggedEOF bool
}

// New builds a bridge for a machine whose word is width bits wide,
// given the image's parsed fjword.Width. w is the matching generic
// word value (e.g. uint32(32)), used for the bridge's address
// arithmetic; width selects the IO_IN bit offset via fjword.InBit.
func New[W memory.Uint](width fjword.Width, w W, out io.Writer, in io.Reader, clock Clock, logger *slog.Logger) *Bridge[W] {
	if clock == nil {
		clock = nopClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge[W]{
		width:   w,
		outBit0: 2 * w,
		outBit1: 2*w + 1,
		inWord:  3,
		inBit:   fjword.InBit(width),
		out:     bufio.NewWriter(out),
		in:      bufio.NewReader(in),
		clock:   clock,
		logger:  logger,
	}
}

// IsOutputBit reports whether bitAddr is IO_OUT0 or IO_OUT1.
func (b *Bridge[W]) IsOutputBit(bitAddr W) bool {
	return bitAddr == b.outBit0 || bitAddr == b.outBit1
}

// IsInputWord reports whether wa is the word containing IO_IN.
func (b *Bridge[W]) IsInputWord(wa W) bool {
	return wa == b.inWord
}

// HandleOutput processes a flip targeting IO_OUT0 or IO_OUT1: a flip
// of IO_OUT0 emits a 0 bit and a flip of IO_OUT1 emits a 1 bit. The
// "flip" is never materialized in memory for these two addresses.
func (b *Bridge[W]) HandleOutput(bitAddr W) error {
	value := bitAddr == b.outBit1
	return b.outputBit(value)
}

func (b *Bridge[W]) outputBit(value bool) error {
	if value {
		b.outCur |= 1 << b.outSize
	}
	b.outSize++
	if b.outSize == 8 {
		b.clock.Pause()
		defer b.clock.Resume()
		if err := b.out.WriteByte(b.outCur); err != nil {
			return err
		}
		if err := b.out.Flush(); err != nil {
			return err
		}
		b.outCur = 0
		b.outSize = 0
	}
	return nil
}

// Flush pushes any partially-filled output byte as-is (high bits
// zero) on shutdown, so a program that halts mid-byte still delivers
// the bits it already emitted. Not part of the machine semantics —
// purely a convenience for callers collecting output into a buffer.
func (b *Bridge[W]) Flush() error {
	if b.outSize == 0 {
		return nil
	}
	b.clock.Pause()
	defer b.clock.Resume()
	if err := b.out.WriteByte(b.outCur); err != nil {
		return err
	}
	return b.out.Flush()
}

// nextInputBit returns the next bit from the input stream, pulling a
// fresh byte on demand. Once the underlying reader reports io.EOF, all
// further bits read as zero (§7 IOExhaustion, resolved non-fatal); the
// policy is logged once.
func (b *Bridge[W]) nextInputBit() bool {
	if b.inSize == 0 {
		if b.inAtEOF {
			return false
		}
		b.clock.Pause()
		c, err := b.in.ReadByte()
		b.clock.Resume()
		if err != nil {
			b.inAtEOF = true
			if !b.loggedEOF {
				b.loggedEOF = true
				b.logger.Debug("input exhausted, reading zero bits from here on")
			}
			return false
		}
		b.inCur = c
		b.inSize = 8
	}
	bit := b.inCur&1 != 0
	b.inCur >>= 1
	b.inSize--
	return bit
}

// ApplyInput updates memory word 3's IO_IN bit to the next input bit,
// materializing the word directly if it was unmapped (per §4.3, never
// via a zero-then-flip). Call this once per read of word 3, before
// returning its value to the engine, exactly as fjmReader.h's
// read_word_check_input does.
func (b *Bridge[W]) ApplyInput(mem *memory.Memory[W]) {
	bit := b.nextInputBit()
	mem.SetBitTo(b.inWord, b.inBit, bit)
}
