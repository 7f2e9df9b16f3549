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
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
)

// ProxySOCKS5Config configures the ProxySOCKS5 escaper: dial a weighted
// upstream SOCKS5 proxy node and negotiate a CONNECT.
type ProxySOCKS5Config struct {
	NodeName       string
	Policy         PickPolicy
	Candidates     []Weighted
	ProxyAddr      map[string]netaddr.UpstreamAddr
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

type proxySOCKS5 struct {
	cfg    ProxySOCKS5Config
	picker *Picker
}

func NewProxySOCKS5(cfg ProxySOCKS5Config) Escaper {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &proxySOCKS5{cfg: cfg, picker: NewPicker(cfg.Policy, cfg.Candidates)}
}

func (p *proxySOCKS5) Name() string        { return p.cfg.NodeName }
func (p *proxySOCKS5) DependsOn() []string { return nil }

func (p *proxySOCKS5) pickNode(key string) (netaddr.UpstreamAddr, error) {
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

const (
	socks5Version    = 0x05
	socks5MethodNone = 0x00
	socks5MethodAuth = 0x02
	socks5MethodNack = 0xFF
	socks5CmdConnect = 0x01
	socks5AtypV4     = 0x01
	socks5AtypDomain = 0x03
	socks5AtypV6     = 0x04
)

func (p *proxySOCKS5) negotiate(conn net.Conn, target netaddr.UpstreamAddr) error {
	methods := []byte{socks5MethodNone}
	if p.cfg.Username != "" {
		methods = []byte{socks5MethodAuth, socks5MethodNone}
	}

	greeting := append([]byte{socks5Version, byte(len(methods))}, methods...)
	if _, err := conn.Write(greeting); err != nil {
		return ErrNegotiationWriteFailed.Error(err)
	}

	reply := make([]byte, 2)
	if _, err := readFull(conn, reply); err != nil {
		return ErrNegotiationReadFailed.Error(err)
	}
	if reply[0] != socks5Version {
		return ErrNegotiationProtocolErr.Error(fmt.Errorf("unexpected socks version %d", reply[0]))
	}
	switch reply[1] {
	case socks5MethodNone:
		// no auth required
	case socks5MethodAuth:
		if err := p.authenticate(conn); err != nil {
			return err
		}
	default:
		return ErrNegotiationRejected.Error(fmt.Errorf("no acceptable auth method, server chose 0x%x", reply[1]))
	}

	req, err := encodeSOCKS5ConnectRequest(target)
	if err != nil {
		return ErrProxyProtocolEncodeError.Error(err)
	}
	if _, err := conn.Write(req); err != nil {
		return ErrNegotiationWriteFailed.Error(err)
	}

	return readSOCKS5ConnectReply(conn)
}

func (p *proxySOCKS5) authenticate(conn net.Conn) error {
	u, pw := []byte(p.cfg.Username), []byte(p.cfg.Password)
	buf := make([]byte, 0, 3+len(u)+len(pw))
	buf = append(buf, 0x01, byte(len(u)))
	buf = append(buf, u...)
	buf = append(buf, byte(len(pw)))
	buf = append(buf, pw...)
	if _, err := conn.Write(buf); err != nil {
		return ErrNegotiationWriteFailed.Error(err)
	}

	resp := make([]byte, 2)
	if _, err := readFull(conn, resp); err != nil {
		return ErrNegotiationReadFailed.Error(err)
	}
	if resp[1] != 0x00 {
		return ErrNegotiationRejected.Error(fmt.Errorf("socks5 auth rejected, status 0x%x", resp[1]))
	}
	return nil
}

// encodeSOCKS5ConnectRequest builds the CONNECT request body; a domain
// target is passed through as ATYP_DOMAIN rather than pre-resolved, letting
// the upstream proxy perform its own resolution.
func encodeSOCKS5ConnectRequest(target netaddr.UpstreamAddr) ([]byte, error) {
	var buf []byte
	switch target.Host.Kind {
	case netaddr.HostIP:
		ip := net.ParseIP(target.Host.IP)
		if ip == nil {
			return nil, fmt.Errorf("invalid ip %q", target.Host.IP)
		}
		if v4 := ip.To4(); v4 != nil {
			buf = append([]byte{socks5Version, socks5CmdConnect, 0x00, socks5AtypV4}, v4...)
		} else {
			buf = append([]byte{socks5Version, socks5CmdConnect, 0x00, socks5AtypV6}, ip.To16()...)
		}
	default:
		domain := target.Host.Domain
		if len(domain) > 255 {
			return nil, fmt.Errorf("domain name too long for socks5: %d bytes", len(domain))
		}
		buf = append([]byte{socks5Version, socks5CmdConnect, 0x00, socks5AtypDomain, byte(len(domain))}, domain...)
	}

	var portBuf [2]byte
	binary.BigEndian.PutUint16(portBuf[:], target.Port)
	buf = append(buf, portBuf[:]...)
	return buf, nil
}

func readSOCKS5ConnectReply(conn net.Conn) error {
	hdr := make([]byte, 4)
	if _, err := readFull(conn, hdr); err != nil {
		return ErrNegotiationReadFailed.Error(err)
	}
	if hdr[0] != socks5Version {
		return ErrNegotiationProtocolErr.Error(fmt.Errorf("unexpected socks version %d in reply", hdr[0]))
	}
	if hdr[1] != 0x00 {
		return ErrNegotiationRejected.Error(fmt.Errorf("socks5 connect refused, status 0x%x", hdr[1]))
	}

	var addrLen int
	switch hdr[3] {
	case socks5AtypV4:
		addrLen = 4
	case socks5AtypV6:
		addrLen = 16
	case socks5AtypDomain:
		lb := make([]byte, 1)
		if _, err := readFull(conn, lb); err != nil {
			return ErrNegotiationReadFailed.Error(err)
		}
		addrLen = int(lb[0])
	default:
		return ErrNegotiationProtocolErr.Error(fmt.Errorf("unknown address type 0x%x", hdr[3]))
	}

	rest := make([]byte, addrLen+2)
	if _, err := readFull(conn, rest); err != nil {
		return ErrNegotiationReadFailed.Error(err)
	}
	return nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (p *proxySOCKS5) connectTunnel(ctx context.Context, target netaddr.UpstreamAddr, st *stat.EscaperStats) (net.Conn, error) {
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

	if deadline, ok := dctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := p.negotiate(conn, target); err != nil {
		_ = conn.Close()
		if st != nil {
			st.MarkFailed()
		}
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	if st != nil {
		st.MarkEstablished()
	}
	return conn, nil
}

func (p *proxySOCKS5) TCPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
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

func (p *proxySOCKS5) TLSSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, cfg *tls.Config, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
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

func (p *proxySOCKS5) UDPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, error) {
	return nil, ErrMethodUnavailable.Error(nil)
}

// UDPSetupRelay implements SOCKS5's UDP ASSOCIATE: negotiate a relay
// binding over the control connection, then hand back a PacketConn to the
// relay address the server announced.
func (p *proxySOCKS5) UDPSetupRelay(ctx context.Context, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, net.Addr, error) {
	key := ""
	node, err := p.pickNode(key)
	if err != nil {
		return nil, nil, err
	}

	dctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	ctrl, err := d.DialContext(dctx, "tcp", node.String())
	if err != nil {
		return nil, nil, ErrConnectFailed.Error(err)
	}

	greeting := []byte{socks5Version, 1, socks5MethodNone}
	if p.cfg.Username != "" {
		greeting = []byte{socks5Version, 1, socks5MethodAuth}
	}
	if _, err := ctrl.Write(greeting); err != nil {
		_ = ctrl.Close()
		return nil, nil, ErrNegotiationWriteFailed.Error(err)
	}
	reply := make([]byte, 2)
	if _, err := readFull(ctrl, reply); err != nil {
		_ = ctrl.Close()
		return nil, nil, ErrNegotiationReadFailed.Error(err)
	}
	if reply[1] == socks5MethodAuth {
		if err := p.authenticate(ctrl); err != nil {
			_ = ctrl.Close()
			return nil, nil, err
		}
	}

	assoc := []byte{socks5Version, 0x03, 0x00, socks5AtypV4, 0, 0, 0, 0, 0, 0}
	if _, err := ctrl.Write(assoc); err != nil {
		_ = ctrl.Close()
		return nil, nil, ErrNegotiationWriteFailed.Error(err)
	}
	if err := readSOCKS5ConnectReply(ctrl); err != nil {
		_ = ctrl.Close()
		return nil, nil, err
	}

	// the control connection must stay open for the lifetime of the
	// association; the caller is responsible for closing it alongside the
	// returned PacketConn.
	relay, err := net.ListenPacket("udp", ":0")
	if err != nil {
		_ = ctrl.Close()
		return nil, nil, ErrSetupSocketFailed.Error(err)
	}
	return relay, ctrl.RemoteAddr(), nil
}

// NewHTTPForwardContext returns a ForwardContext that re-invokes this
// escaper's own TCPSetupConnection per forwarded request, fixing ac for
// the lifetime of the client connection.
func (p *proxySOCKS5) NewHTTPForwardContext(ctx context.Context, ac *audit.Context) (ForwardContext, error) {
	return newGenericForwardContext(p, ac), nil
}
