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
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
)

// ProxyHTTPConfig configures the ProxyHTTP escaper: dial a set of weighted
// upstream HTTP proxy nodes and tunnel through them with CONNECT.
type ProxyHTTPConfig struct {
	NodeName       string
	Policy         PickPolicy
	Candidates     []Weighted
	ProxyAddr      map[string]netaddr.UpstreamAddr // candidate name -> proxy node address
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

type proxyHTTP struct {
	cfg    ProxyHTTPConfig
	picker *Picker
}

func NewProxyHTTP(cfg ProxyHTTPConfig) Escaper {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &proxyHTTP{cfg: cfg, picker: NewPicker(cfg.Policy, cfg.Candidates)}
}

func (p *proxyHTTP) Name() string        { return p.cfg.NodeName }
func (p *proxyHTTP) DependsOn() []string { return nil }

func (p *proxyHTTP) pickNode(key string) (netaddr.UpstreamAddr, error) {
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

// connectTunnel dials the chosen proxy node and issues an HTTP CONNECT for
// target, returning the raw connection positioned right after the 200
// response so the caller can layer TLS or forward bytes directly.
func (p *proxyHTTP) connectTunnel(ctx context.Context, target netaddr.UpstreamAddr, st *stat.EscaperStats) (net.Conn, error) {
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
	conn, err := d.DialContext(dctx, "tcp", node.String())
	if err != nil {
		if st != nil {
			st.MarkFailed()
		}
		return nil, ErrConnectFailed.Error(err)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: target.String()},
		Host:   target.String(),
		Header: make(http.Header),
	}
	if p.cfg.Username != "" {
		req.SetBasicAuth(p.cfg.Username, p.cfg.Password)
	}

	if err := req.Write(conn); err != nil {
		_ = conn.Close()
		if st != nil {
			st.MarkFailed()
		}
		return nil, ErrNegotiationWriteFailed.Error(err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		_ = conn.Close()
		if st != nil {
			st.MarkFailed()
		}
		return nil, ErrNegotiationReadFailed.Error(err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_ = conn.Close()
		if st != nil {
			st.MarkFailed()
		}
		return nil, ErrNegotiationRejected.Error(fmt.Errorf("upstream proxy returned %s", resp.Status))
	}

	if st != nil {
		st.MarkEstablished()
	}
	return conn, nil
}

func (p *proxyHTTP) TCPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
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

func (p *proxyHTTP) TLSSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, cfg *tls.Config, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
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

func (p *proxyHTTP) UDPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, error) {
	return nil, ErrMethodUnavailable.Error(nil)
}

func (p *proxyHTTP) UDPSetupRelay(ctx context.Context, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, net.Addr, error) {
	return nil, nil, ErrMethodUnavailable.Error(nil)
}

// NewHTTPForwardContext returns a ForwardContext that re-invokes this
// escaper's own TCPSetupConnection per forwarded request, fixing ac for
// the lifetime of the client connection.
func (p *proxyHTTP) NewHTTPForwardContext(ctx context.Context, ac *audit.Context) (ForwardContext, error) {
	return newGenericForwardContext(p, ac), nil
}
