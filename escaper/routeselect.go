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

// RouteSelectConfig configures the RouteSelect variant: pick a downstream
// escaper by weighted selection, honoring a task-provided EgressPathID
// override first.
type RouteSelectConfig struct {
	NodeName   string
	Policy     PickPolicy
	Candidates []Weighted
}

type routeSelect struct {
	cfg    RouteSelectConfig
	picker *Picker
	deps   *Registry
}

func NewRouteSelect(cfg RouteSelectConfig, deps *Registry) Escaper {
	return &routeSelect{cfg: cfg, picker: NewPicker(cfg.Policy, cfg.Candidates), deps: deps}
}

func (r *routeSelect) Name() string        { return r.cfg.NodeName }
func (r *routeSelect) DependsOn() []string { return r.picker.Names() }

func (r *routeSelect) pick(target netaddr.UpstreamAddr) (Escaper, error) {
	name, ok := r.picker.Pick(target.Host.String())
	if !ok {
		return nil, ErrEscaperNotUsable.Error(nil)
	}
	delegate, ok := r.deps.Get(name)
	if !ok {
		return nil, ErrEscaperNotUsable.Error(nil)
	}
	return delegate, nil
}

// PickWithOverride honors a task-provided egress_path_id before falling
// back to weighted selection.
func (r *routeSelect) PickWithOverride(target netaddr.UpstreamAddr, egressPathID string) (Escaper, error) {
	if egressPathID != "" {
		if delegate, ok := r.deps.Get(egressPathID); ok {
			return delegate, nil
		}
	}
	return r.pick(target)
}

func (r *routeSelect) TCPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
	egress := ""
	if notes != nil {
		egress = notes.EscaperName
	}
	delegate, err := r.PickWithOverride(target, egress)
	if err != nil {
		return nil, err
	}
	return delegate.TCPSetupConnection(ctx, target, notes, st, ac)
}

func (r *routeSelect) TLSSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, cfg *tls.Config, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
	egress := ""
	if notes != nil {
		egress = notes.EscaperName
	}
	delegate, err := r.PickWithOverride(target, egress)
	if err != nil {
		return nil, err
	}
	return delegate.TLSSetupConnection(ctx, target, cfg, notes, st, ac)
}

func (r *routeSelect) UDPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, error) {
	delegate, err := r.pick(target)
	if err != nil {
		return nil, err
	}
	return delegate.UDPSetupConnection(ctx, target, notes, st, ac)
}

func (r *routeSelect) UDPSetupRelay(ctx context.Context, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, net.Addr, error) {
	return nil, nil, ErrMethodUnavailable.Error(nil)
}

// NewHTTPForwardContext returns a ForwardContext that re-invokes this
// escaper's own TCPSetupConnection per forwarded request, fixing ac for
// the lifetime of the client connection.
func (r *routeSelect) NewHTTPForwardContext(ctx context.Context, ac *audit.Context) (ForwardContext, error) {
	return newGenericForwardContext(r, ac), nil
}
