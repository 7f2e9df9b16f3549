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

package netaddr

import (
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/nabbar/proxycore/audit"
)

// ServerTaskNotes is per-client-task bookkeeping, immutable after task
// start except for side-band stats.
type ServerTaskNotes struct {
	TaskID       uuid.UUID
	ClientAddr   net.Addr
	ServerAddr   net.Addr
	Username     string
	TenantID     string
	EgressPathID string
	StartedAt    time.Time

	// AuditContext binds this task to the active auditor's cert agent,
	// ICAP adapters, and DPI portmap, if the task was accepted on a
	// listener that has one configured. It is nil for tasks served on a
	// plain, unaudited frontend.
	AuditContext *audit.Context
}

// NewServerTaskNotes stamps a fresh task id and start time.
func NewServerTaskNotes(client, server net.Addr) ServerTaskNotes {
	return ServerTaskNotes{
		TaskID:     uuid.New(),
		ClientAddr: client,
		ServerAddr: server,
		StartedAt:  time.Now(),
	}
}

// TimingMarks records the boundary timestamps an escaper's Direct variant
// reports: resolve done, bind done, first byte.
type TimingMarks struct {
	ResolveDone time.Time
	BindDone    time.Time
	FirstByte   time.Time
}

// TCPConnectTaskNotes is populated by the escaper before it returns a
// stream; EscaperName must equal the escaper instance that produced the
// connection.
type TCPConnectTaskNotes struct {
	EscaperName string
	Attempted   []UpstreamAddr
	Connected   UpstreamAddr
	Timing      TimingMarks
}

// UDPConnectTaskNotes mirrors TCPConnectTaskNotes for UDP setup/relay paths.
type UDPConnectTaskNotes struct {
	EscaperName string
	Attempted   []UpstreamAddr
	Connected   UpstreamAddr
	Timing      TimingMarks
}
