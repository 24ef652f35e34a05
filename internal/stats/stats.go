/*
 * flip-jump - Run statistics.
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

// Package stats tracks how many flip-jump operations an engine run
// executed and how long it took, excluding any time spent blocked on
// I/O.
package stats

import (
	"fmt"
	"time"
)

// Stats counts executed operations and accumulates wall-clock elapsed
// time, with a pause/resume pair an I/O bridge can straddle a blocking
// read or write with so that time doesn't count against the run.
type Stats struct {
	ops     uint64
	started time.Time
	elapsed time.Duration
	running bool
}

// New returns a Stats ready to have Start called on it.
func New() *Stats {
	return &Stats{}
}

// Start begins timing a run.
func (s *Stats) Start() {
	s.started = time.Now()
	s.running = true
}

// Pause stops the clock, typically just before a blocking I/O
// operation, mirroring fjmReader.h's RunStatistics::stopTimer.
func (s *Stats) Pause() {
	if !s.running {
		return
	}
	s.elapsed += time.Since(s.started)
	s.running = false
}

// Resume restarts the clock after a Pause, mirroring
// RunStatistics::startTimer.
func (s *Stats) Resume() {
	s.started = time.Now()
	s.running = true
}

// Stop finalizes the elapsed time. Safe to call once a run has
// halted.
func (s *Stats) Stop() {
	s.Pause()
}

// Count increments the executed-operation counter by one.
func (s *Stats) Count() {
	s.ops++
}

// OpCount returns the number of operations counted so far.
func (s *Stats) OpCount() uint64 {
	return s.ops
}

// Elapsed returns the accumulated non-paused duration.
func (s *Stats) Elapsed() time.Duration {
	return s.elapsed
}

// String formats the run summary the way the original interpreter
// does: elapsed seconds to four significant figures, and the op count.
func (s *Stats) String() string {
	return fmt.Sprintf("Finished after %.4gs (%d FJ ops executed).", s.elapsed.Seconds(), s.ops)
}
