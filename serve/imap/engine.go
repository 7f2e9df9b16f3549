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

// Package imap implements the intercepting IMAP relay: a single upstream
// connection is dialed per client session and every tagged command/
// response exchange is relayed line by line, assembling and forwarding
// the literal segments a command or response carries, filtering STARTTLS/
// IDLE/LITERAL+ out of CAPABILITY announcements when configured to, and
// supporting STARTTLS upgrade-in-place and the IDLE push-update mode.
package imap

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/nabbar/proxycore/errs"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/serve"
	"github.com/nabbar/proxycore/stat"
)

// DialUpstream resolves and connects to the upstream IMAP server for one
// client session. Implementations typically route through an escaper.
type DialUpstream func(ctx context.Context) (net.Conn, error)

// Config configures an Engine.
type Config struct {
	// Idle bounds every literal transfer; the zero value uses
	// serve.DefaultIdleQuit.
	Idle serve.IdleQuit
	// Dial produces the upstream connection for a session. Required.
	Dial DialUpstream
	// ClientTLSConfig, if set, is offered to the client on STARTTLS.
	ClientTLSConfig *tls.Config
	// UpstreamTLSConfig configures the TLS handshake run against the
	// upstream on STARTTLS.
	UpstreamTLSConfig *tls.Config
	// AllowPlaintextLogin permits advertising the absence of
	// LOGINDISABLED before a STARTTLS upgrade has occurred.
	AllowPlaintextLogin bool
	// AllowIdle permits advertising and honoring the IDLE extension.
	AllowIdle bool
	// AllowNonSyncLiteral permits advertising LITERAL+/LITERAL-.
	AllowNonSyncLiteral bool
	// MaxLiteralSize caps any single literal's declared size; zero means
	// unlimited.
	MaxLiteralSize int64
}

// Engine serves IMAP connections per Config.
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

// Serve dials one upstream connection and relays the client's IMAP
// session over it end to end: greeting, command/response exchanges, zero
// or more STARTTLS upgrades, and IDLE spans, until LOGOUT, a protocol
// error, or ctx is done.
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
				st.MarkError("imap.unknown")
			}
		}
		return err
	}

	if st != nil {
		st.MarkTaskOK()
	}
	return nil
}
