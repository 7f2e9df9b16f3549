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

// Package escaper implements the egress/routing subsystem: a registry of
// named Escaper instances (Direct, ProxyHTTP, ProxySOCKS5[s], DivertTCP,
// RouteResolved, RouteSelect), each capable of producing a ready
// TCP/TLS/UDP transport to a target upstream. Escapers are stored in a
// registry keyed by name so one escaper can depend on another by name
// without holding a strong pointer to it.
package escaper

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
)

// Escaper is the capability interface every variant implements. Methods a
// variant does not support return ErrMethodUnavailable. Every setup method
// takes the task's audit.Context last, mirroring the upstream operation's
// own (task_conf, tcp_notes, task_notes, stats, audit_ctx) signature: a nil
// ac is always valid and simply means the task is not being audited.
type Escaper interface {
	// Name returns this escaper's NodeName as registered.
	Name() string

	// DependsOn returns the names of escapers this one delegates to
	// (RouteResolved's targets, RouteSelect's candidates). Used by Registry
	// to compute reload order and to check graph acyclicity.
	DependsOn() []string

	// TCPSetupConnection produces a ready TCP stream to target.
	TCPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error)

	// TLSSetupConnection is TCPSetupConnection wrapped in a client TLS
	// handshake using cfg.
	TLSSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, cfg *tls.Config, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error)

	// UDPSetupConnection produces a ready UDP "connection" (net.PacketConn
	// dialed to target) for simple datagram relay.
	UDPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, error)

	// UDPSetupRelay is used for SOCKS5 UDP-associate semantics: it returns
	// a relay PacketConn plus the address the client should send datagrams
	// to. Only ProxySOCKS5 implements this; others (ProxySOCKS5s included)
	// return ErrMethodUnavailable.
	UDPSetupRelay(ctx context.Context, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, net.Addr, error)

	// NewHTTPForwardContext returns a per-task ForwardContext an HTTP
	// engine can reuse across every keep-alive-forwarded request on one
	// client connection, rather than re-resolving routing state per
	// request. Escapers that only ever produce a single-shot connection
	// (DivertTCP, the routing variants) delegate to whichever escaper
	// TCPSetupConnection would have picked.
	NewHTTPForwardContext(ctx context.Context, ac *audit.Context) (ForwardContext, error)
}

// Registry holds every configured escaper by name and supports
// dependency-ordered atomic reload.
type Registry struct {
	byName map[string]Escaper
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Escaper)}
}

// Get returns the escaper registered under name.
func (r *Registry) Get(name string) (Escaper, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Add registers e under its own Name(). Callers performing a reload should
// build a fresh Registry rather than mutating a live one in place: existing
// tasks complete with the old escaper instance, new tasks pick up the new
// one.
func (r *Registry) Add(e Escaper) {
	r.byName[e.Name()] = e
}

// Names returns every registered escaper name.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	return out
}

// CheckAcyclic verifies that for every escaper E, the transitive closure of
// DependsOn does not contain E. It returns the first cycle found, as a
// slice of names starting and ending at the offending escaper, or nil if
// the graph is acyclic.
func (r *Registry) CheckAcyclic() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(r.byName))
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		switch color[name] {
		case black:
			return nil
		case gray:
			// found a back-edge: build the cycle from path.
			cycle := []string{name}
			for i := len(path) - 1; i >= 0; i-- {
				cycle = append(cycle, path[i])
				if path[i] == name {
					break
				}
			}
			return cycle
		}

		color[name] = gray
		path = append(path, name)

		if e, ok := r.byName[name]; ok {
			for _, dep := range e.DependsOn() {
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}

		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	for name := range r.byName {
		if color[name] == white {
			if cyc := visit(name); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// Setup builds a fresh Registry from cfgs in dependency order: escapers
// with no remaining unresolved dependency are constructed first. It
// returns ErrGraphCycle if the configured set is not a DAG.
func Setup(cfgs map[string]Builder) (*Registry, error) {
	r := NewRegistry()
	remaining := make(map[string]Builder, len(cfgs))
	for k, v := range cfgs {
		remaining[k] = v
	}

	for len(remaining) > 0 {
		progressed := false
		for name, b := range remaining {
			ready := true
			for _, dep := range b.DependsOn() {
				if _, ok := r.Get(dep); !ok {
					if _, stillPending := remaining[dep]; stillPending {
						ready = false
						break
					}
				}
			}
			if !ready {
				continue
			}
			e, err := b.Build(r)
			if err != nil {
				return nil, err
			}
			r.Add(e)
			delete(remaining, name)
			progressed = true
		}
		if !progressed {
			return nil, ErrGraphCycle.Error(nil)
		}
	}

	return r, nil
}

// Builder constructs an Escaper given the (already-built) dependencies
// available in a Registry under construction.
type Builder interface {
	DependsOn() []string
	Build(deps *Registry) (Escaper, error)
}
