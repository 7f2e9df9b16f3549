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

package ioext

import (
	"time"

	"golang.org/x/time/rate"
)

// DatagramLimiter is a token-bucket packet rate limiter: packetsPerSec
// tokens refill continuously per second into a bucket sized
// packetsPerSec+burst, so a caller may burst up to that capacity before
// TrySend starts reporting WouldBlock.
type DatagramLimiter struct {
	limiter       *rate.Limiter
	packetsPerSec int
}

// NewDatagramLimiter builds a limiter allowing packetsPerSec packets per
// second with burst extra packets permitted atop the steady-state rate.
func NewDatagramLimiter(packetsPerSec, burst int) *DatagramLimiter {
	if packetsPerSec <= 0 {
		packetsPerSec = 1
	}
	if burst < 0 {
		burst = 0
	}
	return &DatagramLimiter{
		limiter:       rate.NewLimiter(rate.Limit(packetsPerSec), packetsPerSec+burst),
		packetsPerSec: packetsPerSec,
	}
}

// Action is the result of a TrySend call.
type Action int

const (
	// ActionSend means the caller may send immediately; the packet has
	// been charged against the bucket.
	ActionSend Action = iota
	// ActionWouldBlock means the bucket has no token available right now;
	// nothing is charged, and DelayUntil tells the caller when a token
	// becomes available.
	ActionWouldBlock
)

// TrySend attempts to charge one packet against the bucket. It returns
// ActionSend (charge applied, safe to send now) or ActionWouldBlock plus
// the instant the caller should wait until before sending.
func (d *DatagramLimiter) TrySend() (Action, time.Time) {
	r := d.limiter.Reserve()
	if !r.OK() {
		return ActionWouldBlock, time.Now().Add(time.Second)
	}

	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return ActionWouldBlock, time.Now().Add(delay)
	}
	return ActionSend, time.Time{}
}

// Allowed returns packetsPerSec, the steady-state rate (burst excluded),
// exposed for tests and stats.
func (d *DatagramLimiter) Allowed() int {
	return d.packetsPerSec
}
