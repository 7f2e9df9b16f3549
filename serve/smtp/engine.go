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

// Package smtp implements the intercepting SMTP relay: a single upstream
// connection is dialed per client session and every command/reply pair is
// relayed line by line, with EHLO capability filtering, STARTTLS
// upgrade-in-place, and DATA/BDAT body transfer under the same
// idle/blocked-user/server-quit semantics every engine in this module
// shares.
package smtp

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/nabbar/proxycore/errs"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/serve"
	"github.com/nabbar/proxycore/stat"
)

// DialUpstream resolves and connects to the upstream SMTP server for one
// client session. Implementations typically route through an escaper.
type DialUpstream func(ctx context.Context) (net.Conn, error)

// Config configures an Engine.
type Config struct {
	// Idle bounds every DATA/BDAT body transfer; the zero value uses
	// serve.DefaultIdleQuit.
	Idle serve.IdleQuit
	// Dial produces the upstream connection for a session. Required.
	Dial DialUpstream
	// ClientTLSConfig, if set, is offered to the client on STARTTLS.
	// STARTTLS is refused (suppressed from EHLO's capability list) while
	// unset.
	ClientTLSConfig *tls.Config
	// UpstreamTLSConfig configures the TLS handshake run against the
	// upstream on STARTTLS.
	UpstreamTLSConfig *tls.Config
	// AllowDataChunking permits BDAT/CHUNKING/BINARYMIME.
	AllowDataChunking bool
	// AllowBurlData permits BURL.
	AllowBurlData bool
	// AllowOnDemandMailRelay forwards the upstream's ATRN capability; the
	// ATRN command itself is not relayed and is answered with 503.
	AllowOnDemandMailRelay bool
}

// Engine serves SMTP connections per Config.
type Engine struct {
	cfg Config
}

// New builds an Engine from cfg.
func New(cfg Config) *Engine {
	if cfg.Idle.CheckInterval <= 0 {
		cfg.Idle = serve.DefaultIdleQuit()
	}
	return &Engine{cfg: cfg}
}

// Serve dials one upstream connection and relays the client's SMTP
// session over it end to end: greeting, EHLO/HELO with capability
// filtering, zero or more STARTTLS upgrades, and one or more mail
// transactions, until QUIT, a protocol error, or ctx is done.
func (e *Engine) Serve(ctx context.Context, conn net.Conn, notes *netaddr.ServerTaskNotes, st *stat.ServerStats) error {
	upstream, err := e.cfg.Dial(ctx)
	if err != nil {
		werr := ErrUpstreamDialFailed.Error(err)
		if st != nil {
			st.MarkError(werr.Brief())
		}
		return werr
	}
	defer func() { _ = upstream.Close() }()

	s := newSession(e.cfg, conn, upstream)
	err = s.run(ctx)

	if err != nil {
		if st != nil {
			if ce, ok := err.(errs.Error); ok {
				st.MarkError(ce.Brief())
			} else {
				st.MarkError("smtp.unknown")
			}
		}
		return err
	}

	if st != nil {
		st.MarkTaskOK()
	}
	return nil
}
