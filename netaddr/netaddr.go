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

// Package netaddr holds the core data-model value types: NodeName,
// UpstreamAddr, and the TaskNotes family. The host/address shape follows a
// network package's conventions; NodeName's interning follows the
// map-based interning pattern used for other interned identifiers.
package netaddr

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// NodeName is an interned, non-empty identifier used as the key in every
// registry in the core (escapers, servers, auditors, resolvers). Interning
// means two NodeName values built from the same string always compare
// equal and share backing storage.
type NodeName struct {
	s string
}

var (
	internMu sync.RWMutex
	interned = make(map[string]NodeName)
)

// NewNodeName interns s, returning an error if s is empty.
func NewNodeName(s string) (NodeName, error) {
	if s == "" {
		return NodeName{}, fmt.Errorf("node name must not be empty")
	}

	internMu.RLock()
	if n, ok := interned[s]; ok {
		internMu.RUnlock()
		return n, nil
	}
	internMu.RUnlock()

	internMu.Lock()
	defer internMu.Unlock()
	if n, ok := interned[s]; ok {
		return n, nil
	}

	n := NodeName{s: s}
	interned[s] = n
	return n, nil
}

func (n NodeName) String() string { return n.s }
func (n NodeName) IsZero() bool   { return n.s == "" }

// HostKind distinguishes an UpstreamAddr's host representation.
type HostKind int

const (
	HostDomain HostKind = iota
	HostIP
)

// Host is either a resolved IP or an unresolved domain name.
type Host struct {
	Kind   HostKind
	Domain string
	IP     string
}

func (h Host) String() string {
	if h.Kind == HostIP {
		return h.IP
	}
	return h.Domain
}

// UpstreamAddr is a (host, port) pair; it is only meaningful for a live
// connection when Host is non-empty.
type UpstreamAddr struct {
	Host Host
	Port uint16
}

func (u UpstreamAddr) String() string {
	return u.Host.String() + ":" + strconv.FormatUint(uint64(u.Port), 10)
}

func (u UpstreamAddr) IsEmpty() bool {
	return u.Host.Domain == "" && u.Host.IP == ""
}

// ResolveDotLocalhost applies the ".localhost" username-param mapping to
// 127.0.0.1. This lives in the routing layer, called by the Direct and
// RouteResolved escapers' target-resolution step, rather than in a generic
// resolver package.
func ResolveDotLocalhost(addr UpstreamAddr) UpstreamAddr {
	if addr.Host.Kind != HostDomain {
		return addr
	}
	if strings.HasSuffix(strings.ToLower(addr.Host.Domain), ".localhost") {
		addr.Host = Host{Kind: HostIP, IP: "127.0.0.1"}
	}
	return addr
}
