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
	"github.com/nabbar/proxycore/proxyproto"
	"github.com/nabbar/proxycore/stat"
)

// DivertTCPConfig configures the DivertTCP escaper: every call opens a TCP
// connection to a single fixed mirror address, writes a Proxy Protocol v2
// header carrying the original upstream and task context as custom TLVs,
// then returns the raw connection for the caller to forward bytes over.
type DivertTCPConfig struct {
	NodeName       string
	Mirror         netaddr.UpstreamAddr
	ConnectTimeout time.Duration
}

type divertTCP struct {
	cfg DivertTCPConfig
}

func NewDivertTCP(cfg DivertTCPConfig) Escaper {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &divertTCP{cfg: cfg}
}

func (d *divertTCP) Name() string        { return d.cfg.NodeName }
func (d *divertTCP) DependsOn() []string { return nil }

func (d *divertTCP) dialMirror(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats) (net.Conn, error) {
	if st != nil {
		st.MarkAttempted()
	}

	dctx, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout)
	defer cancel()

	var dl net.Dialer
	conn, err := dl.DialContext(dctx, "tcp", d.cfg.Mirror.String())
	if err != nil {
		if st != nil {
			st.MarkFailed()
		}
		return nil, ErrConnectFailed.Error(err)
	}

	hdr := proxyproto.HeaderV2{
		Client: conn.LocalAddr(),
		Server: conn.RemoteAddr(),
		TLVs: []proxyproto.TLV{
			{Type: proxyproto.TLVOriginalUpstream, Value: []byte(target.String())},
		},
	}
	if notes != nil {
		if notes.EscaperName != "" {
			hdr.TLVs = append(hdr.TLVs, proxyproto.TLV{Type: proxyproto.TLVUserName, Value: []byte(notes.EscaperName)})
		}
	}

	if err := proxyproto.EncodeV2(conn, hdr); err != nil {
		_ = conn.Close()
		if st != nil {
			st.MarkFailed()
		}
		return nil, ErrProxyProtocolWriteFailed.Error(err)
	}

	if st != nil {
		st.MarkEstablished()
	}
	return conn, nil
}

func (d *divertTCP) TCPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
	conn, err := d.dialMirror(ctx, target, notes, st)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		notes.EscaperName = d.cfg.NodeName
		notes.Connected = d.cfg.Mirror
		notes.Timing.BindDone = time.Now()
	}
	return conn, nil
}

func (d *divertTCP) TLSSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, cfg *tls.Config, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
	raw, err := d.TCPSetupConnection(ctx, target, notes, st, ac)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Client(raw, cfg)
	hctx, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout)
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

func (d *divertTCP) UDPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, error) {
	return nil, ErrMethodUnavailable.Error(nil)
}

func (d *divertTCP) UDPSetupRelay(ctx context.Context, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, net.Addr, error) {
	return nil, nil, ErrMethodUnavailable.Error(nil)
}

// NewHTTPForwardContext returns a ForwardContext that re-invokes this
// escaper's own TCPSetupConnection per forwarded request, fixing ac for
// the lifetime of the client connection.
func (d *divertTCP) NewHTTPForwardContext(ctx context.Context, ac *audit.Context) (ForwardContext, error) {
	return newGenericForwardContext(d, ac), nil
}
