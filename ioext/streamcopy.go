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

// Package ioext implements stream-copy and rate-limiting primitives:
// StreamCopy drives reader -> writer through a ring buffer with a yield
// budget so one session can never starve the scheduler, and
// DatagramLimiter enforces a token-bucket rate on UDP sends/receives.
// The buffered-adapter shape follows the multiplexer model's reader/writer
// split; the yield/idle accounting is purpose-built for session transfer.
package ioext

import (
	"context"
	"io"
	"sync"
	"time"
)

const (
	// MinBufferSize is the smallest ring buffer StreamCopy will accept.
	MinBufferSize = 4 * 1024
	// DefaultBufferSize is used when Buffer is unset.
	DefaultBufferSize = 16 * 1024
	// MinYieldSize is the smallest per-poll-cycle copy budget.
	MinYieldSize = 256 * 1024
	// DefaultYieldSize is used when Yield is unset.
	DefaultYieldSize = 1024 * 1024
	// topUpThreshold avoids micro-reads: only opportunistically top up the
	// buffer when at least this many bytes are free.
	topUpThreshold = 256
)

// StreamCopy drives a single reader -> writer transfer: opportunistic
// read-ahead while a write is pending, a yield budget per copy() call so
// the caller's event loop isn't starved, and enough bookkeeping (IsIdle,
// CopiedSize) for a caller to implement its own idle-timeout policy on top.
type StreamCopy struct {
	r io.Reader
	w io.Writer

	bufSize   int
	yieldSize int64

	mu         sync.Mutex
	buf        []byte
	readAt     int
	writeAt    int
	readSize   int64
	copiedSize int64
	lastActive time.Time
	flushed    bool
	finished   bool
}

// Option configures a StreamCopy at construction time.
type Option func(*StreamCopy)

// WithBufferSize overrides the ring buffer size (clamped to MinBufferSize).
func WithBufferSize(n int) Option {
	return func(s *StreamCopy) {
		if n < MinBufferSize {
			n = MinBufferSize
		}
		s.bufSize = n
	}
}

// WithYieldSize overrides the per-cycle yield budget (clamped to MinYieldSize).
func WithYieldSize(n int64) Option {
	return func(s *StreamCopy) {
		if n < MinYieldSize {
			n = MinYieldSize
		}
		s.yieldSize = n
	}
}

// New builds a StreamCopy over r/w with the given options applied.
func New(r io.Reader, w io.Writer, opts ...Option) *StreamCopy {
	s := &StreamCopy{
		r:          r,
		w:          w,
		bufSize:    DefaultBufferSize,
		yieldSize:  DefaultYieldSize,
		lastActive: time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	s.buf = make([]byte, s.bufSize)
	return s
}

func (s *StreamCopy) free() int {
	return len(s.buf) - (s.writeAt - s.readAt)
}

func (s *StreamCopy) pending() int {
	return s.writeAt - s.readAt
}

// Run copies until ctx is done, the reader reaches EOF, or an error occurs.
// It calls Step in a loop without yielding between cycles, so the yield
// budget only bounds each Step -- callers that need cooperative scheduling
// against other work should drive Step directly.
func (s *StreamCopy) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := s.Step()
		if err != nil {
			return err
		}
		if n == 0 && s.finished {
			return s.flush()
		}
	}
}

// Step performs up to one yield-budget's worth of copying and returns the
// number of bytes copied in this call. A return of (0, nil) with Finished()
// true means the transfer is complete and the writer has been flushed.
func (s *StreamCopy) Step() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved int64

	for moved < s.yieldSize {
		if s.pending() == 0 {
			if s.finished {
				break
			}
			if err := s.fillLocked(); err != nil {
				if err == io.EOF {
					s.finished = true
					break
				}
				return moved, err
			}
			continue
		}

		n, err := s.drainLocked()
		moved += int64(n)
		s.copiedSize += int64(n)
		s.lastActive = time.Now()
		if err != nil {
			return moved, err
		}

		if s.free() >= topUpThreshold && !s.finished {
			if ferr := s.fillLocked(); ferr != nil && ferr != io.EOF {
				return moved, ferr
			} else if ferr == io.EOF {
				s.finished = true
			}
		}
	}

	if s.finished && s.pending() == 0 && !s.flushed {
		if err := s.flushLocked(); err != nil {
			return moved, err
		}
	}

	return moved, nil
}

func (s *StreamCopy) fillLocked() error {
	if s.writeAt == len(s.buf) {
		copy(s.buf, s.buf[s.readAt:s.writeAt])
		s.writeAt -= s.readAt
		s.readAt = 0
	}
	if s.writeAt == len(s.buf) {
		return nil // buffer full, nothing to fill
	}

	n, err := s.r.Read(s.buf[s.writeAt:])
	s.writeAt += n
	s.readSize += int64(n)
	if n > 0 {
		s.lastActive = time.Now()
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return io.EOF
	}
	return nil
}

func (s *StreamCopy) drainLocked() (int, error) {
	n, err := s.w.Write(s.buf[s.readAt:s.writeAt])
	s.readAt += n
	if s.readAt == s.writeAt {
		s.readAt, s.writeAt = 0, 0
	}
	return n, err
}

func (s *StreamCopy) flushLocked() error {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	s.flushed = true
	return nil
}

func (s *StreamCopy) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushed {
		return nil
	}
	return s.flushLocked()
}

// ReadSize returns total bytes read from the source so far.
func (s *StreamCopy) ReadSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSize
}

// CopiedSize returns total bytes written to the destination so far.
func (s *StreamCopy) CopiedSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copiedSize
}

// Finished reports whether the source has reached EOF and every buffered
// byte has been written and flushed.
func (s *StreamCopy) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished && s.pending() == 0 && s.flushed
}

// IsIdle reports whether no bytes have moved in at least d.
func (s *StreamCopy) IsIdle(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActive) >= d
}

// ResetActive clears the idle clock, used when a caller observes activity
// through a side channel (e.g. a keepalive frame) that didn't move bytes.
func (s *StreamCopy) ResetActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// NoCachedData reports whether the ring buffer currently holds no
// unwritten bytes.
func (s *StreamCopy) NoCachedData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending() == 0
}
