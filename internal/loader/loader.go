/*
 * flip-jump - Binary image loader.
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

// Package loader parses a flip-jump binary image: a header, a segment
// table, and a data blob, producing a populated memory and the
// execution configuration the header's flags describe.
package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"flip-jump/internal/fjword"
	"flip-jump/internal/memory"
)

// Magic is the required first two bytes of a flip-jump image, little-endian.
const Magic = 0x4A46

// ZerosFillThreshold is the residual segment length, in words, above
// which the loader defers materialization into a zero-segment instead
// of writing zero words eagerly. Matches fjmReader.h's default
// zerosFillThreshold.
const ZerosFillThreshold = 1024

// Alignment codes, from file_flags bits 1-2.
const (
	alignCodeW  = 0
	alignCode2W = 1
)

// Config is the execution configuration derived from an image header.
type Config struct {
	Width     fjword.Width
	ZeroInit  bool
	Alignment uint64 // in bits: either Width or 2*Width
}

// FatalError reports a malformed image, per §7's ImageMalformed.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return "image malformed: " + e.Reason
}

func fatalf(format string, args ...any) *FatalError {
	return &FatalError{Reason: fmt.Sprintf(format, args...)}
}

type segmentRecord struct {
	segmentStart uint64
	segmentLen   uint64
	dataStart    uint64
	dataLen      uint64
}

type header struct {
	w           uint16
	fileFlags   uint64
	segmentCount uint64
}

// readHeader decodes the fixed-size header fields, up to and including
// segment_count, but not the segment table itself.
func readHeader(r io.Reader) (header, error) {
	var h header
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return h, fatalf("truncated header: %v", err)
	}
	magic := binary.LittleEndian.Uint16(buf[:])
	if magic != Magic {
		return h, fatalf("bad magic")
	}
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return h, fatalf("truncated header: %v", err)
	}
	h.w = binary.LittleEndian.Uint16(buf[:])

	var buf8 [8]byte
	if _, err := io.ReadFull(r, buf8[:]); err != nil {
		return h, fatalf("truncated header: %v", err)
	}
	h.fileFlags = binary.LittleEndian.Uint64(buf8[:])

	if _, err := io.ReadFull(r, buf8[:]); err != nil {
		return h, fatalf("truncated header: %v", err)
	}
	h.segmentCount = binary.LittleEndian.Uint64(buf8[:])
	return h, nil
}

func readSegmentTable(r io.Reader, count uint64) ([]segmentRecord, error) {
	segs := make([]segmentRecord, count)
	var buf [32]byte
	for i := range segs {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fatalf("truncated segment table: %v", err)
		}
		segs[i] = segmentRecord{
			segmentStart: binary.LittleEndian.Uint64(buf[0:8]),
			segmentLen:   binary.LittleEndian.Uint64(buf[8:16]),
			dataStart:    binary.LittleEndian.Uint64(buf[16:24]),
			dataLen:      binary.LittleEndian.Uint64(buf[24:32]),
		}
	}
	return segs, nil
}

// readDataBlob reads the remainder of r and decodes it into w-bit
// little-endian words. A trailing partial word is rejected rather
// than silently truncated.
func readDataBlob[W memory.Uint](r io.Reader, w uint16) ([]W, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fatalf("reading data blob: %v", err)
	}
	bytesPerWord := int(w) / 8
	if len(raw)%bytesPerWord != 0 {
		return nil, fatalf("data blob length %d is not a whole multiple of %d bytes", len(raw), bytesPerWord)
	}
	words := make([]W, len(raw)/bytesPerWord)
	for i := range words {
		chunk := raw[i*bytesPerWord : (i+1)*bytesPerWord]
		var v uint64
		for j := len(chunk) - 1; j >= 0; j-- {
			v = v<<8 | uint64(chunk[j])
		}
		words[i] = W(v)
	}
	return words, nil
}

// Load parses a flip-jump image from r and populates mem with its
// segments, per §4.1. The caller selects W to match the header's
// declared width (use PeekWidth to read just the header first).
func Load[W memory.Uint](r io.Reader, mem *memory.Memory[W]) (Config, error) {
	h, err := readHeader(r)
	if err != nil {
		return Config{}, err
	}
	width := fjword.Width(h.w)
	if !width.Valid() {
		return Config{}, fatalf("unsupported word width %d", h.w)
	}
	if h.fileFlags&^0x7 != 0 {
		return Config{}, fatalf("reserved file_flags bits set: %#x", h.fileFlags)
	}
	cfg := Config{Width: width, ZeroInit: h.fileFlags&0x1 != 0}
	switch (h.fileFlags >> 1) & 0x3 {
	case alignCodeW:
		cfg.Alignment = uint64(h.w)
	case alignCode2W:
		cfg.Alignment = uint64(h.w) * 2
	default:
		return Config{}, fatalf("reserved alignment code %d", (h.fileFlags>>1)&0x3)
	}

	segs, err := readSegmentTable(r, h.segmentCount)
	if err != nil {
		return Config{}, err
	}
	words, err := readDataBlob[W](r, h.w)
	if err != nil {
		return Config{}, err
	}

	mem.SetZeroInit(cfg.ZeroInit)
	for _, seg := range segs {
		if err := applySegment(mem, seg, words); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func applySegment[W memory.Uint](mem *memory.Memory[W], seg segmentRecord, words []W) error {
	if seg.dataLen > seg.segmentLen {
		return fatalf("segment at %#x: data_len %d exceeds segment_len %d", seg.segmentStart, seg.dataLen, seg.segmentLen)
	}
	if seg.dataStart+seg.dataLen > uint64(len(words)) {
		return fatalf("segment at %#x: data range [%d,%d) exceeds blob length %d", seg.segmentStart, seg.dataStart, seg.dataStart+seg.dataLen, len(words))
	}
	for i := uint64(0); i < seg.dataLen; i++ {
		mem.WriteWord(W(seg.segmentStart+i), words[seg.dataStart+i])
	}

	residualStart := seg.segmentStart + seg.dataLen
	residualLen := seg.segmentLen - seg.dataLen
	if residualLen == 0 {
		return nil
	}
	if residualLen <= ZerosFillThreshold {
		for i := uint64(0); i < residualLen; i++ {
			mem.WriteWord(W(residualStart+i), 0)
		}
		return nil
	}
	mem.AddZeroSegment(W(residualStart), W(residualStart+residualLen))
	return nil
}

// PeekWidth reads just enough of r (the first 4 bytes: magic and w) to
// determine which generic instantiation to dispatch to, and returns a
// reader that replays those bytes ahead of the rest of the stream so
// Load can still consume the full header.
func PeekWidth(r io.Reader) (fjword.Width, io.Reader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, nil, fatalf("truncated header: %v", err)
	}
	magic := binary.LittleEndian.Uint16(buf[0:2])
	if magic != Magic {
		return 0, nil, fatalf("bad magic")
	}
	w := binary.LittleEndian.Uint16(buf[2:4])
	width := fjword.Width(w)
	if !width.Valid() {
		return 0, nil, fatalf("unsupported word width %d", w)
	}
	return width, io.MultiReader(bytes.NewReader(buf[:]), r), nil
}
