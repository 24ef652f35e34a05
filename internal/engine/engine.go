/*
 * flip-jump - Fetch-flip-jump execution engine.
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

// Package engine implements the flip-jump machine's single instruction:
// flip the bit at address F, then jump to address J.
package engine

import (
	"flip-jump/internal/iobridge"
	"flip-jump/internal/memory"
	"flip-jump/internal/stats"
)

// ErrorKind classifies why a run aborted, per the error taxonomy.
type ErrorKind int

const (
	KindUnaligned ErrorKind = iota
	KindSelfFlip
	KindNullJump
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnaligned:
		return "unaligned ip"
	case KindSelfFlip:
		return "self-flip forbidden"
	case KindNullJump:
		return "null jump"
	default:
		return "unknown engine error"
	}
}

// FatalError reports a non-recoverable engine-level condition. Memory
// and loader errors (UninitializedRead, ImageMalformed) surface as
// their own typed errors from those packages and are not wrapped here.
type FatalError struct {
	Kind ErrorKind
	IP   uint64
}

func (e *FatalError) Error() string {
	return e.Kind.String()
}

// Config holds the per-run flags §4.4 lists, independent of word
// width.
type Config struct {
	Alignment       uint64
	NoNullJump      bool
	AllowSelfModify bool
	JumpBeforeFlip  bool
	CountStats      bool
}

// Engine runs the fetch-flip-jump loop over one machine's memory and
// I/O bridge.
type Engine[W memory.Uint] struct {
	mem    *memory.Memory[W]
	bridge *iobridge.Bridge[W]
	width  W
	cfg    Config
	stats  *stats.Stats
	ip     W
}

// New builds an engine for a machine whose word is width bits wide
// (as the matching W value, e.g. uint32(32)), starting at ip 0 per §3.
// It owns its own Stats; use NewWithStats when the I/O bridge needs to
// pause/resume that same clock around blocking reads and writes.
func New[W memory.Uint](mem *memory.Memory[W], bridge *iobridge.Bridge[W], width W, cfg Config) *Engine[W] {
	return NewWithStats(mem, bridge, width, cfg, stats.New())
}

// NewWithStats is New, but takes the Stats accumulator explicitly so a
// caller can hand the same instance to iobridge.New as its Clock —
// excluding blocked I/O time from the run per §9's "Statistics timing"
// design note.
func NewWithStats[W memory.Uint](mem *memory.Memory[W], bridge *iobridge.Bridge[W], width W, cfg Config, st *stats.Stats) *Engine[W] {
	return &Engine[W]{
		mem:    mem,
		bridge: bridge,
		width:  width,
		cfg:    cfg,
		stats:  st,
	}
}

// IP returns the current instruction pointer, for the console's
// inspection interface.
func (e *Engine[W]) IP() uint64 {
	return uint64(e.ip)
}

// Stats returns the run's statistics accumulator.
func (e *Engine[W]) Stats() *stats.Stats {
	return e.stats
}

// OpCount returns the number of committed cycles so far, for the
// console's inspection interface.
func (e *Engine[W]) OpCount() uint64 {
	return e.stats.OpCount()
}

// Peek returns the materialized value at word-address wa, if any,
// without side effects. Used by the console's peek command.
func (e *Engine[W]) Peek(wa uint64) (uint64, bool) {
	v, ok := e.mem.PeekWord(W(wa))
	return uint64(v), ok
}

// Run executes cycles until a halt or a fatal error. It returns nil on
// a normal halt.
func (e *Engine[W]) Run() error {
	e.stats.Start()
	defer e.stats.Stop()
	for {
		halted, err := e.Step()
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
}

// Step executes a single fetch-flip-jump cycle, per §4.4. It returns
// (true, nil) on the cycle that detects halt, without having advanced
// ip past the self-jump target.
func (e *Engine[W]) Step() (halted bool, err error) {
	ip := e.ip

	if uint64(ip)%e.cfg.Alignment != 0 {
		return false, &FatalError{Kind: KindUnaligned, IP: uint64(ip)}
	}

	f, err := e.mem.ReadWord(ip / e.width)
	if err != nil {
		return false, err
	}

	if !e.cfg.AllowSelfModify && ip <= f && f < ip+2*e.width {
		return false, &FatalError{Kind: KindSelfFlip, IP: uint64(ip)}
	}

	flip := func() error { return e.flip(f) }
	var j W
	fetchJump := func() error {
		var ferr error
		j, ferr = e.fetchJump(ip)
		return ferr
	}

	if e.cfg.JumpBeforeFlip {
		if err := flip(); err != nil {
			return false, err
		}
		if err := fetchJump(); err != nil {
			return false, err
		}
	} else {
		if err := fetchJump(); err != nil {
			return false, err
		}
		if err := flip(); err != nil {
			return false, err
		}
	}

	selfTargeting := ip <= f && f < ip+2*e.width
	if j == ip && !selfTargeting {
		return true, nil
	}

	if e.cfg.NoNullJump && j < 2*e.width {
		return false, &FatalError{Kind: KindNullJump, IP: uint64(ip)}
	}

	e.ip = j
	if e.cfg.CountStats {
		e.stats.Count()
	}
	return false, nil
}

// flip applies a flip to bit-address f, routing IO_OUT0/IO_OUT1 to the
// bridge instead of materializing them in memory.
func (e *Engine[W]) flip(f W) error {
	if e.bridge.IsOutputBit(f) {
		return e.bridge.HandleOutput(f)
	}
	return e.mem.FlipBit(f)
}

// fetchJump reads the word at ip+w, letting the bridge intervene first
// if the read straddles IO_IN, per §4.3's "at most once per read of
// ip+w" rule.
func (e *Engine[W]) fetchJump(ip W) (W, error) {
	jAddr := ip + e.width
	wa := jAddr / e.width
	if e.bridge.IsInputWord(wa) {
		e.bridge.ApplyInput(e.mem)
	}
	return e.mem.ReadWord(wa)
}
