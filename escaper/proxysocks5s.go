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
	"time"

	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
)

// ProxySOCKS5sConfig configures ProxySOCKS5s: identical to ProxySOCKS5
// except the control connection to the proxy node itself is wrapped in TLS
// before the SOCKS5 greeting is sent.
type ProxySOCKS5sConfig struct {
	NodeName       string
	Policy         PickPolicy
	Candidates     []Weighted
	ProxyAddr      map[string]netaddr.UpstreamAddr
	Username       string
	Password       string
	NodeTLSConfig  *tls.Config
	ConnectTimeout time.Duration
}

type proxySOCKS5s struct {
	cfg    ProxySOCKS5sConfig
	picker *Picker
}

func NewProxySOCKS5s(cfg ProxySOCKS5sConfig) Escaper {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &proxySOCKS5s{cfg: cfg, picker: NewPicker(cfg.Policy, cfg.Candidates)}
}

func (p *proxySOCKS5s) Name() string        { return p.cfg.NodeName }
func (p *proxySOCKS5s) DependsOn() []string { return nil }

func (p *proxySOCKS5s) pickNode(key string) (netaddr.UpstreamAddr, error) {
	name, ok := p.picker.Pick(key)
	if !ok {
		return netaddr.UpstreamAddr{}, ErrEscaperNotUsable.Error(nil)
	}
	addr, ok := p.cfg.ProxyAddr[name]
	if !ok {
		return netaddr.UpstreamAddr{}, ErrEscaperNotUsable.Error(nil)
	}
	return addr, nil
}

func (p *proxySOCKS5s) connectTunnel(ctx context.Context, target netaddr.UpstreamAddr, st *stat.EscaperStats) (net.Conn, error) {
	if st != nil {
		st.MarkAttempted()
	}

	node, err := p.pickNode(target.Host.String())
	if err != nil {
		if st != nil {
			st.MarkFailed()
		}
		return nil, err
	}

	dctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	raw, err := d.DialContext(dctx, "tcp", node.String())
	if err != nil {
		if st != nil {
			st.MarkFailed()
		}
		return nil, ErrConnectFailed.Error(err)
	}

	tlsConf := p.cfg.NodeTLSConfig
	if tlsConf == nil {
		tlsConf = &tls.Config{}
	}
	tlsConn := tls.Client(raw, tlsConf)
	hctx, hcancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	err = tlsConn.HandshakeContext(hctx)
	hcancel()
	if err != nil {
		_ = raw.Close()
		if st != nil {
			st.MarkFailed()
		}
		if hctx.Err() != nil {
			return nil, ErrPeerTLSHandshakeTimeout.Error(err)
		}
		return nil, ErrPeerTLSHandshakeFailed.Error(err)
	}

	if deadline, ok := dctx.Deadline(); ok {
		_ = tlsConn.SetDeadline(deadline)
	}

	negotiator := &proxySOCKS5{cfg: ProxySOCKS5Config{Username: p.cfg.Username, Password: p.cfg.Password}}
	if err := negotiator.negotiate(tlsConn, target); err != nil {
		_ = tlsConn.Close()
		if st != nil {
			st.MarkFailed()
		}
		return nil, err
	}
	_ = tlsConn.SetDeadline(time.Time{})

	if st != nil {
		st.MarkEstablished()
	}
	return tlsConn, nil
}

func (p *proxySOCKS5s) TCPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
	conn, err := p.connectTunnel(ctx, target, st)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		notes.EscaperName = p.cfg.NodeName
		notes.Connected = target
		notes.Timing.BindDone = time.Now()
	}
	return conn, nil
}

func (p *proxySOCKS5s) TLSSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, cfg *tls.Config, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
	raw, err := p.TCPSetupConnection(ctx, target, notes, st, ac)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Client(raw, cfg)
	hctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	if err := tlsConn.HandshakeContext(hctx); err != nil {
		_ = raw.Close()
		if hctx.Err() != nil {
			return nil, ErrUpstreamTLSHandshakeTimeout.Error(err)
		}
		return nil, ErrUpstreamTLSHandshakeFailed.Error(err)
	}
	return tlsConn, nil
}

func (p *proxySOCKS5s) UDPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, error) {
	return nil, ErrMethodUnavailable.Error(nil)
}

func (p *proxySOCKS5s) UDPSetupRelay(ctx context.Context, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, net.Addr, error) {
	return nil, nil, ErrMethodUnavailable.Error(nil)
}

// NewHTTPForwardContext returns a ForwardContext that re-invokes this
// escaper's own TCPSetupConnection per forwarded request, fixing ac for
// the lifetime of the client connection.
func (p *proxySOCKS5s) NewHTTPForwardContext(ctx context.Context, ac *audit.Context) (ForwardContext, error) {
	return newGenericForwardContext(p, ac), nil
}
