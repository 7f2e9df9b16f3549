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

package tenant

import (
	"sync/atomic"
	"time"
)

// Stats accumulates identification attempts/successes, a per-method-kind
// success count keyed by a stable label (mirroring stat.ServerStats'
// brief-keyed error counters), and a running average identification
// latency.
type Stats struct {
	Attempts  atomic.Int64
	Successes atomic.Int64

	totalNanos atomic.Int64

	mu           chan struct{}
	byMethodKind map[string]*atomic.Int64
}

// NewStats returns an empty Stats.
func NewStats() *Stats {
	return &Stats{mu: make(chan struct{}, 1), byMethodKind: make(map[string]*atomic.Int64)}
}

// Record registers one identification attempt: whether it matched, which
// method kind matched (ignored when matched is false), and how long the
// attempt took.
func (s *Stats) Record(matched bool, methodKind string, elapsed time.Duration) {
	s.Attempts.Add(1)
	s.totalNanos.Add(elapsed.Nanoseconds())
	if !matched {
		return
	}
	s.Successes.Add(1)

	s.mu <- struct{}{}
	defer func() { <-s.mu }()

	c, ok := s.byMethodKind[methodKind]
	if !ok {
		c = &atomic.Int64{}
		s.byMethodKind[methodKind] = c
	}
	c.Add(1)
}

// AverageDuration returns the mean identification latency across every
// recorded attempt, or zero if none have been recorded.
func (s *Stats) AverageDuration() time.Duration {
	n := s.Attempts.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(s.totalNanos.Load() / n)
}

// MethodKindCounts returns a snapshot of successes per method kind.
func (s *Stats) MethodKindCounts() map[string]int64 {
	s.mu <- struct{}{}
	defer func() { <-s.mu }()

	out := make(map[string]int64, len(s.byMethodKind))
	for k, v := range s.byMethodKind {
		out[k] = v.Load()
	}
	return out
}
