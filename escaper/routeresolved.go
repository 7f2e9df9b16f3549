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

package escaper

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
)

// RouteResolvedConfig configures the RouteResolved variant: resolve target
// to an IP, consult an LPM table, fall back to Default, then delegate.
type RouteResolvedConfig struct {
	NodeName string
	Routes   map[string]string // CIDR -> escaper name
	Default  string
	Resolver *net.Resolver
}

type routeResolved struct {
	cfg   RouteResolvedConfig
	table *LPMTable
	deps  *Registry
}

// NewRouteResolved builds the RouteResolved escaper, resolving against deps
// (the registry under construction, per Builder.Build).
func NewRouteResolved(cfg RouteResolvedConfig, deps *Registry) Escaper {
	if cfg.Resolver == nil {
		cfg.Resolver = net.DefaultResolver
	}
	return &routeResolved{cfg: cfg, table: NewLPMTable(cfg.Routes), deps: deps}
}

func (r *routeResolved) Name() string { return r.cfg.NodeName }

func (r *routeResolved) DependsOn() []string {
	names := make(map[string]struct{})
	for _, n := range r.cfg.Routes {
		names[n] = struct{}{}
	}
	if r.cfg.Default != "" {
		names[r.cfg.Default] = struct{}{}
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	return out
}

// resolveDelegate resolves target host to an IP, consults a
// longest-prefix-match IP->escaper table, falls back to a configured
// default, and invokes the chosen escaper recursively, recording
// request_passed/request_failed.
func (r *routeResolved) resolveDelegate(ctx context.Context, target netaddr.UpstreamAddr, st *stat.EscaperStats) (Escaper, error) {
	target = netaddr.ResolveDotLocalhost(target)

	var ip net.IP
	if target.Host.Kind == netaddr.HostIP {
		ip = net.ParseIP(target.Host.IP)
	} else {
		ips, err := r.cfg.Resolver.LookupIP(ctx, "ip", target.Host.Domain)
		if err != nil || len(ips) == 0 {
			if st != nil {
				st.MarkFailed()
			}
			return nil, ErrResolveFailed.Error(err)
		}
		ip = ips[0]
	}

	name, ok := r.table.Lookup(ip)
	if !ok {
		name = r.cfg.Default
	}
	if name == "" {
		if st != nil {
			st.MarkFailed()
		}
		return nil, ErrEscaperNotUsable.Error(nil)
	}

	delegate, ok := r.deps.Get(name)
	if !ok {
		if st != nil {
			st.MarkFailed()
		}
		return nil, ErrEscaperNotUsable.Error(nil)
	}

	if st != nil {
		st.MarkPassed()
	}
	return delegate, nil
}

func (r *routeResolved) TCPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
	delegate, err := r.resolveDelegate(ctx, target, st)
	if err != nil {
		return nil, err
	}
	return delegate.TCPSetupConnection(ctx, target, notes, st, ac)
}

func (r *routeResolved) TLSSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, cfg *tls.Config, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
	delegate, err := r.resolveDelegate(ctx, target, st)
	if err != nil {
		return nil, err
	}
	return delegate.TLSSetupConnection(ctx, target, cfg, notes, st, ac)
}

func (r *routeResolved) UDPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, error) {
	delegate, err := r.resolveDelegate(ctx, target, st)
	if err != nil {
		return nil, err
	}
	return delegate.UDPSetupConnection(ctx, target, notes, st, ac)
}

func (r *routeResolved) UDPSetupRelay(ctx context.Context, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, net.Addr, error) {
	return nil, nil, ErrMethodUnavailable.Error(nil)
}

// NewHTTPForwardContext returns a ForwardContext that re-invokes this
// escaper's own TCPSetupConnection per forwarded request, fixing ac for
// the lifetime of the client connection.
func (r *routeResolved) NewHTTPForwardContext(ctx context.Context, ac *audit.Context) (ForwardContext, error) {
	return newGenericForwardContext(r, ac), nil
}
