/*
 * flip-jump - Sparse word-addressed memory.
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

// Package memory implements the flip-jump machine's sparse word-address
// space: a hash map from word-address to word-value, backed by a list
// of deferred zero-fill ranges for segments the loader decided were too
// large to eagerly materialize.
package memory

import "fmt"

// Uint is the set of word types a Memory can be built over. It mirrors
// fjword.Word; kept separate so this package has no dependency on the
// engine-facing width tag.
type Uint interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// ZeroRange is a half-open range [Start, End) of word-addresses whose
// materialization is deferred: the first read or flip of a word inside
// the range yields zero and removes that single word from "implicitly
// zero" into the map. The range record itself is retained afterwards,
// since other untouched words in it still need it.
type ZeroRange[W Uint] struct {
	Start, End W
}

// Memory is a sparse word-address to word-value map plus the deferred
// zero-fill ranges produced by the loader for large zero-initialized
// segments. The zero value is not ready to use; call New.
type Memory[W Uint] struct {
	width    W
	zeroInit bool
	words    map[W]W
	zeros    []ZeroRange[W]
}

// New creates an empty memory for a machine whose word is width bits
// wide. When zeroInit is set (file_flags bit 0), any unmapped word
// reads as zero unconditionally instead of requiring zero-segment
// cover.
func New[W Uint](width W, zeroInit bool) *Memory[W] {
	return &Memory[W]{
		width:    width,
		zeroInit: zeroInit,
		words:    make(map[W]W),
	}
}

// UninitializedReadError reports a read of a word that is neither
// materialized nor covered by zero_init or a zero-segment.
type UninitializedReadError struct {
	WordAddr uint64
}

func (e *UninitializedReadError) Error() string {
	return fmt.Sprintf("uninitialized read at word-address 0x%x", e.WordAddr)
}

// SetZeroInit configures the zero_init policy after construction. The
// loader calls this once it has parsed file_flags bit 0, since the
// flag itself lives past the point New must already have been called.
func (m *Memory[W]) SetZeroInit(zeroInit bool) {
	m.zeroInit = zeroInit
}

// AddZeroSegment registers a deferred zero-fill range, as produced by
// the loader for a segment's residual tail once it exceeds the fill
// threshold. Only the loader calls this.
func (m *Memory[W]) AddZeroSegment(start, end W) {
	m.zeros = append(m.zeros, ZeroRange[W]{Start: start, End: end})
}

// coveredByZeroSegment reports whether wa falls inside a still-pending
// zero range. Linear in the number of zero-segments, per §4.2.
func (m *Memory[W]) coveredByZeroSegment(wa W) bool {
	for _, z := range m.zeros {
		if z.Start <= wa && wa < z.End {
			return true
		}
	}
	return false
}

// ReadWord returns the value stored at word-address wa, materializing
// it to zero on first touch if zero_init is configured or wa falls in
// a zero-segment. Returns *UninitializedReadError otherwise.
func (m *Memory[W]) ReadWord(wa W) (W, error) {
	if v, ok := m.words[wa]; ok {
		return v, nil
	}
	if m.zeroInit || m.coveredByZeroSegment(wa) {
		m.words[wa] = 0
		return 0, nil
	}
	return 0, &UninitializedReadError{WordAddr: uint64(wa)}
}

// WriteWord unconditionally sets the word at wa, bypassing zero-segment
// and zero_init resolution. Used only by the loader.
func (m *Memory[W]) WriteWord(wa, v W) {
	m.words[wa] = v
}

// FlipBit XORs the single bit at bit-address bitAddr, materializing the
// containing word first (via ReadWord's rules) if needed, so the flip
// lands on the correct prior value rather than on an assumed zero.
func (m *Memory[W]) FlipBit(bitAddr W) error {
	wa := bitAddr / m.width
	mask := W(1) << (bitAddr % m.width)
	cur, err := m.ReadWord(wa)
	if err != nil {
		return err
	}
	m.words[wa] = cur ^ mask
	return nil
}

// SetBitTo forces the bit at bitIndex of word wa to value, materializing
// the word directly from that bit (not from zero) if it was unmapped.
// This is the I/O bridge's hook for updating word 3's IO_IN bit: per
// §4.3, an unmaterialized word 3 is materialized with next_bit<<k,
// never with a default zero that gets flipped afterwards.
func (m *Memory[W]) SetBitTo(wa W, bitIndex uint, value bool) {
	mask := W(1) << bitIndex
	if cur, ok := m.words[wa]; ok {
		if ((cur & mask) != 0) != value {
			m.words[wa] = cur ^ mask
		}
		return
	}
	var v W
	if value {
		v = mask
	}
	m.words[wa] = v
}

// Bit reports the current value of bit bitIndex of word wa, without
// materializing the word. An unmapped word reports false.
func (m *Memory[W]) Bit(wa W, bitIndex uint) bool {
	cur, ok := m.words[wa]
	if !ok {
		return false
	}
	return (cur & (W(1) << bitIndex)) != 0
}

// PeekWord returns the materialized value at wa without triggering
// zero_init or zero-segment resolution, for read-only instrumentation
// such as the console's peek command.
func (m *Memory[W]) PeekWord(wa W) (W, bool) {
	v, ok := m.words[wa]
	return v, ok
}

// ContainsWord reports whether wa is already materialized, without
// touching the zero-segment list or mutating anything. Exposed for
// tests that check which words were materialized.
func (m *Memory[W]) ContainsWord(wa W) bool {
	_, ok := m.words[wa]
	return ok
}

// ZeroSegmentCount returns how many deferred zero-ranges are still on
// record, for the "deferred zero-segment" scenario in §8.
func (m *Memory[W]) ZeroSegmentCount() int {
	return len(m.zeros)
}

// Snapshot returns a copy of every materialized word, for tests
// comparing two independently loaded memories for idempotence.
func (m *Memory[W]) Snapshot() map[W]W {
	out := make(map[W]W, len(m.words))
	for k, v := range m.words {
		out[k] = v
	}
	return out
}
