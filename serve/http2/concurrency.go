/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package http2

import "sync/atomic"

// H2ConcurrencyStats tracks how many streams (and, within them, how many
// independently-relayed push tasks) an Engine is currently bridging, plus
// the high-water mark of each. An Engine owns one instance, shared by every
// connection it serves; MarkStream/MarkPush pair with their matching
// Release call via defer at the top of the goroutine they bound.
type H2ConcurrencyStats struct {
	activeStreams atomic.Int64
	peakStreams   atomic.Int64
	activePushes  atomic.Int64
	peakPushes    atomic.Int64
}

// NewH2ConcurrencyStats returns a zeroed H2ConcurrencyStats.
func NewH2ConcurrencyStats() *H2ConcurrencyStats { return &H2ConcurrencyStats{} }

// MarkStream records one more concurrently-bridged stream; the returned
// func releases it.
func (s *H2ConcurrencyStats) MarkStream() (release func()) {
	return markAndRelease(&s.activeStreams, &s.peakStreams)
}

// MarkPush records one more independently-relayed push task; the returned
// func releases it.
func (s *H2ConcurrencyStats) MarkPush() (release func()) {
	return markAndRelease(&s.activePushes, &s.peakPushes)
}

func markAndRelease(active, peak *atomic.Int64) func() {
	n := active.Add(1)
	for {
		p := peak.Load()
		if n <= p || peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() { active.Add(-1) }
}

// ActiveStreams is the current number of concurrently-bridged streams.
func (s *H2ConcurrencyStats) ActiveStreams() int64 { return s.activeStreams.Load() }

// PeakStreams is the high-water mark of ActiveStreams.
func (s *H2ConcurrencyStats) PeakStreams() int64 { return s.peakStreams.Load() }

// ActivePushes is the current number of independently-relayed push tasks.
func (s *H2ConcurrencyStats) ActivePushes() int64 { return s.activePushes.Load() }

// PeakPushes is the high-water mark of ActivePushes.
func (s *H2ConcurrencyStats) PeakPushes() int64 { return s.peakPushes.Load() }
