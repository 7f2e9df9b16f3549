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
	"sync"
	"time"

	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
)

// DirectConfig configures the Direct escaper variant.
type DirectConfig struct {
	NodeName       string
	Policy         PickPolicy // accepted but not applied: addresses keep resolver order
	HappyEyeballsDelay time.Duration
	ConnectTimeout time.Duration
	Resolver       *net.Resolver
}

type direct struct {
	cfg DirectConfig
}

// NewDirect builds the Direct escaper: it resolves the target host,
// applies a happy-eyeballs strategy, and tries resolved addresses in the
// order the resolver returned them.
func NewDirect(cfg DirectConfig) Escaper {
	if cfg.Resolver == nil {
		cfg.Resolver = net.DefaultResolver
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.HappyEyeballsDelay <= 0 {
		cfg.HappyEyeballsDelay = 250 * time.Millisecond
	}
	return &direct{cfg: cfg}
}

func (d *direct) Name() string        { return d.cfg.NodeName }
func (d *direct) DependsOn() []string { return nil }

func (d *direct) resolve(ctx context.Context, target netaddr.UpstreamAddr) ([]netaddr.UpstreamAddr, error) {
	target = netaddr.ResolveDotLocalhost(target)

	if target.Host.Kind == netaddr.HostIP {
		return []netaddr.UpstreamAddr{target}, nil
	}

	ips, err := d.cfg.Resolver.LookupIP(ctx, "ip", target.Host.Domain)
	if err != nil {
		return nil, ErrResolveFailed.Error(err)
	}
	if len(ips) == 0 {
		return nil, ErrResolveFailed.Error(nil)
	}

	out := make([]netaddr.UpstreamAddr, 0, len(ips))
	for _, ip := range ips {
		out = append(out, netaddr.UpstreamAddr{
			Host: netaddr.Host{Kind: netaddr.HostIP, IP: ip.String()},
			Port: target.Port,
		})
	}
	return orderAddresses(out, d.cfg.Policy), nil
}

// orderAddresses returns addrs in resolver order for every policy: the
// policy is accepted but not applied, so no PickPolicy (random,
// round-robin, rendezvous or jump-hash) reorders the candidates.
func orderAddresses(addrs []netaddr.UpstreamAddr, policy PickPolicy) []netaddr.UpstreamAddr {
	if policy == PickRandom || policy == PickRoundRobin {
		return addrs
	}
	return addrs
}

// happyEyeballsConnect races addrs with a staged delay between
// initiations: IPv6 candidates are started first (they sort before IPv4 in
// LookupIP's typical result on dual-stack systems), each subsequent
// address starts HappyEyeballsDelay after the previous if no winner yet.
// Transient per-address failures are swallowed; exhaustion surfaces
// ErrNoAddressConnected.
func happyEyeballsConnect(ctx context.Context, addrs []netaddr.UpstreamAddr, delay, timeout time.Duration) (net.Conn, netaddr.UpstreamAddr, error) {
	if len(addrs) == 0 {
		return nil, netaddr.UpstreamAddr{}, ErrNoAddressConnected.Error(nil)
	}

	type result struct {
		conn net.Conn
		addr netaddr.UpstreamAddr
		err  error
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan result, len(addrs))
	var wg sync.WaitGroup

	for i, a := range addrs {
		i, a := i, a
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i > 0 {
				select {
				case <-time.After(time.Duration(i) * delay):
				case <-ctx.Done():
					return
				}
			}
			var d net.Dialer
			c, err := d.DialContext(ctx, "tcp", a.String())
			select {
			case results <- result{conn: c, addr: a, err: err}:
			case <-ctx.Done():
				if c != nil {
					_ = c.Close()
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	var winner net.Conn
	var winnerAddr netaddr.UpstreamAddr

	for r := range results {
		if r.err != nil {
			lastErr = r.err
			continue
		}
		if winner == nil {
			winner = r.conn
			winnerAddr = r.addr
			cancel() // stop the remaining attempts
		} else {
			_ = r.conn.Close()
		}
	}

	if winner != nil {
		return winner, winnerAddr, nil
	}
	if ctx.Err() != nil {
		return nil, netaddr.UpstreamAddr{}, ErrTimeoutByRule.Error(lastErr)
	}
	return nil, netaddr.UpstreamAddr{}, ErrNoAddressConnected.Error(lastErr)
}

func (d *direct) TCPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
	if st != nil {
		st.MarkAttempted()
	}

	addrs, err := d.resolve(ctx, target)
	if err != nil {
		if st != nil {
			st.MarkFailed()
		}
		return nil, err
	}

	if notes != nil {
		notes.EscaperName = d.cfg.NodeName
		notes.Attempted = addrs
		notes.Timing.ResolveDone = time.Now()
	}

	conn, addr, err := happyEyeballsConnect(ctx, addrs, d.cfg.HappyEyeballsDelay, d.cfg.ConnectTimeout)
	if err != nil {
		if st != nil {
			st.MarkFailed()
		}
		return nil, err
	}

	if notes != nil {
		notes.Connected = addr
		notes.Timing.BindDone = time.Now()
	}
	if st != nil {
		st.MarkEstablished()
	}
	return conn, nil
}

func (d *direct) TLSSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, cfg *tls.Config, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.Conn, error) {
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

func (d *direct) UDPSetupConnection(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, error) {
	addrs, err := d.resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, ErrNoAddressConnected.Error(nil)
	}

	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, ErrSetupSocketFailed.Error(err)
	}

	if notes != nil {
		notes.EscaperName = d.cfg.NodeName
		notes.Attempted = addrs
		notes.Connected = addrs[0]
	}
	return conn, nil
}

func (d *direct) UDPSetupRelay(ctx context.Context, notes *netaddr.UDPConnectTaskNotes, st *stat.EscaperStats, ac *audit.Context) (net.PacketConn, net.Addr, error) {
	return nil, nil, ErrMethodUnavailable.Error(nil)
}

// NewHTTPForwardContext returns a ForwardContext that re-invokes this
// escaper's own TCPSetupConnection per forwarded request, fixing ac for
// the lifetime of the client connection.
func (d *direct) NewHTTPForwardContext(ctx context.Context, ac *audit.Context) (ForwardContext, error) {
	return newGenericForwardContext(d, ac), nil
}
