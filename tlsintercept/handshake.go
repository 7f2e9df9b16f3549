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

package tlsintercept

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
)

// DialUpstream opens the client-side half of an intercepted connection,
// routed through whatever escaper the caller selected for this task.
type DialUpstream func(ctx context.Context, sni string, alpn []string) (net.Conn, error)

// Config bundles what Intercept needs to re-terminate a single connection.
type Config struct {
	Agent    *AgentCache
	Ticketer *RollingTicketer[[32]byte]

	// AllowedALPN is the protocol whitelist filtered against the client's
	// offer before either handshake proceeds; a nil slice allows anything.
	AllowedALPN []string

	MinVersion uint16
	MaxVersion uint16

	// UpstreamRootCAs verifies the upstream leaf during the client-side
	// handshake; nil falls back to the system trust store.
	UpstreamRootCAs *x509.CertPool
}

// Pair is the result of a successful interception: both legs are already
// past their handshake and ready to be spliced together (typically via
// ioext.StreamCopy) or handed back to the inspector for nested protocol
// classification.
type Pair struct {
	Client   *tls.Conn
	Upstream *tls.Conn
}

// Intercept completes a server-side TLS handshake with clientConn using a
// leaf minted for sni by cfg.Agent, then dials and TLS-handshakes upstream
// via dial. Both handshakes use ctx for cancellation; a failure on either
// leg closes whichever connection already succeeded.
func Intercept(ctx context.Context, cfg Config, clientConn net.Conn, clientAddr, sni string, alpn []string, dial DialUpstream) (Pair, error) {
	offeredALPN := filterALPN(alpn, cfg.AllowedALPN)
	if len(alpn) > 0 && len(offeredALPN) == 0 {
		return Pair{}, ErrALPNNotAllowed.Error(nil)
	}

	bundle, err := cfg.Agent.Issue(ctx, IssueRequest{SNI: sni, ClientAddr: clientAddr, ALPN: offeredALPN})
	if err != nil {
		return Pair{}, err
	}

	serverCfg := &tls.Config{
		Certificates: []tls.Certificate{bundle.Leaf},
		NextProtos:   offeredALPN,
		MinVersion:   cfg.MinVersion,
		MaxVersion:   cfg.MaxVersion,
	}
	if cfg.Ticketer != nil {
		serverCfg.SetSessionTicketKeys(cfg.Ticketer.KeySet())
	}

	serverConn := tls.Server(clientConn, serverCfg)
	if err := serverConn.HandshakeContext(ctx); err != nil {
		return Pair{}, ErrServerHandshakeFailed.Error(err)
	}

	upstreamRaw, err := dial(ctx, sni, offeredALPN)
	if err != nil {
		_ = serverConn.Close()
		return Pair{}, ErrUpstreamHandshakeFailed.Error(err)
	}

	upstreamConn := tls.Client(upstreamRaw, &tls.Config{
		ServerName: sni,
		NextProtos: offeredALPN,
		MinVersion: cfg.MinVersion,
		MaxVersion: cfg.MaxVersion,
		RootCAs:    cfg.UpstreamRootCAs,
	})
	if err := upstreamConn.HandshakeContext(ctx); err != nil {
		_ = serverConn.Close()
		_ = upstreamRaw.Close()
		return Pair{}, ErrUpstreamHandshakeFailed.Error(err)
	}

	return Pair{Client: serverConn, Upstream: upstreamConn}, nil
}

// filterALPN keeps only the client's offered protocols that also appear in
// allowed, preserving the client's preference order; a nil allowed list
// passes everything through unfiltered.
func filterALPN(offered, allowed []string) []string {
	if allowed == nil {
		return offered
	}
	set := make(map[string]struct{}, len(allowed))
	for _, p := range allowed {
		set[p] = struct{}{}
	}
	out := make([]string, 0, len(offered))
	for _, p := range offered {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
