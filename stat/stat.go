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

// Package stat holds the metric label taxonomy for escapers and servers.
// Distinct counters exist per failure variant (write-failed, read-failed,
// timeout, ...) deliberately, so downstream metrics can label by variant
// rather than collapsing them into one. The package has no dependency on
// any metrics emission library: it only accumulates counters and exposes
// them, leaving a real exporter (Prometheus, statsd, ...) as an external
// collaborator.
package stat

import "sync/atomic"

// EscaperStats accumulates the per-escaper counters: request_passed and
// request_failed for a route's fallback bookkeeping, plus generic
// connection counters every variant updates.
type EscaperStats struct {
	RequestPassed  atomic.Int64
	RequestFailed  atomic.Int64
	ConnAttempted  atomic.Int64
	ConnEstablished atomic.Int64
}

func NewEscaperStats() *EscaperStats { return &EscaperStats{} }

func (s *EscaperStats) MarkPassed()      { s.RequestPassed.Add(1) }
func (s *EscaperStats) MarkFailed()      { s.RequestFailed.Add(1) }
func (s *EscaperStats) MarkAttempted()   { s.ConnAttempted.Add(1) }
func (s *EscaperStats) MarkEstablished() { s.ConnEstablished.Add(1) }

// ServerStats accumulates per-server-frontend counters: accepted
// connections, per-protocol task counts, and errors labeled by their
// Brief() taxonomy string so a downstream exporter can build one metric
// series per variant without this package knowing about the exporter.
type ServerStats struct {
	Accepted atomic.Int64
	TasksOK  atomic.Int64

	mu       chan struct{} // binary semaphore guarding errByBrief
	errByBrief map[string]*atomic.Int64
}

func NewServerStats() *ServerStats {
	return &ServerStats{mu: make(chan struct{}, 1), errByBrief: make(map[string]*atomic.Int64)}
}

func (s *ServerStats) MarkAccepted() { s.Accepted.Add(1) }
func (s *ServerStats) MarkTaskOK()   { s.TasksOK.Add(1) }

// MarkError increments the counter for the given taxonomy brief label,
// creating it on first use.
func (s *ServerStats) MarkError(brief string) {
	s.mu <- struct{}{}
	defer func() { <-s.mu }()

	c, ok := s.errByBrief[brief]
	if !ok {
		c = &atomic.Int64{}
		s.errByBrief[brief] = c
	}
	c.Add(1)
}

// ErrorCount returns the current count for brief, 0 if never recorded.
func (s *ServerStats) ErrorCount(brief string) int64 {
	s.mu <- struct{}{}
	defer func() { <-s.mu }()

	if c, ok := s.errByBrief[brief]; ok {
		return c.Load()
	}
	return 0
}
