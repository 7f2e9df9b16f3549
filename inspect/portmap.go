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

// Package inspect classifies an accepted stream's protocol from a bounded
// peek at its leading bytes, consulting a port-indexed candidate list
// before falling back to trying every known sniffer.
package inspect

import "sync"

// Protocol identifies a recognized wire protocol.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolHTTP1
	ProtocolHTTP2PriorKnowledge
	ProtocolTLSClientHello
	ProtocolSMTPBanner
	ProtocolIMAPGreeting
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTP1:
		return "http1"
	case ProtocolHTTP2PriorKnowledge:
		return "http2_prior_knowledge"
	case ProtocolTLSClientHello:
		return "tls_client_hello"
	case ProtocolSMTPBanner:
		return "smtp_banner"
	case ProtocolIMAPGreeting:
		return "imap_greeting"
	default:
		return "unknown"
	}
}

// Portmap indexes candidate protocols by TCP port, direction-agnostic: the
// caller passes whichever of (server port, client port) is appropriate for
// how the listener is configured.
type Portmap struct {
	mu       sync.RWMutex
	byPort   map[uint16][]Protocol
	fallback []Protocol
}

// defaultCandidates is tried when no explicit port entry exists, ordered
// the way real-world traffic distributions favor: TLS and HTTP/1 are by
// far the most common, banners least.
var defaultCandidates = []Protocol{
	ProtocolTLSClientHello,
	ProtocolHTTP1,
	ProtocolHTTP2PriorKnowledge,
	ProtocolSMTPBanner,
	ProtocolIMAPGreeting,
}

// NewPortmap builds a Portmap with the standard default candidate order and
// no port-specific overrides.
func NewPortmap() *Portmap {
	return &Portmap{byPort: make(map[uint16][]Protocol), fallback: defaultCandidates}
}

// SetPort overrides the candidate order tried for a specific port, e.g.
// port 25 -> [SMTPBanner], port 443 -> [TLSClientHello, HTTP2PriorKnowledge].
func (m *Portmap) SetPort(port uint16, candidates []Protocol) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPort[port] = candidates
}

// CandidatesFor returns the protocol try-order for port, falling back to
// the default order when no explicit entry exists.
func (m *Portmap) CandidatesFor(port uint16) []Protocol {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.byPort[port]; ok {
		return append([]Protocol(nil), c...)
	}
	return append([]Protocol(nil), m.fallback...)
}
