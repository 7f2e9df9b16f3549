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
	"net"
	"time"
)

// LimitedUDPConn wraps a net.PacketConn, charging every outbound datagram
// against a DatagramLimiter before it is sent. WriteTo blocks (sleeping
// until the limiter's current window reopens) rather than dropping the
// packet; inbound datagrams are not rate-limited here since a listener
// has no control over when a peer sends.
type LimitedUDPConn struct {
	net.PacketConn
	limiter *DatagramLimiter
}

// NewLimitedUDPConn wraps conn, metering its WriteTo calls against limiter.
func NewLimitedUDPConn(conn net.PacketConn, limiter *DatagramLimiter) *LimitedUDPConn {
	return &LimitedUDPConn{PacketConn: conn, limiter: limiter}
}

// WriteTo sends p to addr, sleeping out any window the limiter imposes
// first.
func (c *LimitedUDPConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	for {
		action, delayUntil := c.limiter.TrySend()
		if action == ActionSend {
			return c.PacketConn.WriteTo(p, addr)
		}
		time.Sleep(time.Until(delayUntil))
	}
}
