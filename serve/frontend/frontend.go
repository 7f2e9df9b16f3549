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

// Package frontend is the common accept path every listener funnels
// through before reaching a protocol engine: it optionally unwraps a PROXY
// protocol header to recover the real client address, classifies the
// connection's wire protocol from a bounded peek, identifies which tenant
// the connection belongs to, and dispatches to the engine registered for
// that protocol. serve/http1, serve/http2, serve/smtp, and serve/imap all
// already satisfy Handler, so none of them need to know frontend exists.
package frontend

import (
	"bufio"
	"context"
	"net"

	"github.com/nabbar/proxycore/errs"
	"github.com/nabbar/proxycore/inspect"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/proxyproto"
	"github.com/nabbar/proxycore/stat"
	"github.com/nabbar/proxycore/tenant"
)

// Handler serves one accepted, already-classified connection. The four
// protocol engines in this module all implement it with the same
// signature without importing frontend.
type Handler interface {
	Serve(ctx context.Context, conn net.Conn, notes *netaddr.ServerTaskNotes, st *stat.ServerStats) error
}

// Config wires the pieces frontend's accept path needs.
type Config struct {
	// Portmap orders the candidate protocols tried per listening port;
	// a nil Portmap uses inspect's built-in default order for every port.
	Portmap *inspect.Portmap
	// Port is this listener's local port, looked up in Portmap.
	Port uint16
	// PeekCap bounds how many leading bytes Classify may buffer before
	// giving up; zero uses a 4 KiB default.
	PeekCap int
	// Handlers maps a classified protocol to the engine that serves it.
	// A protocol with no entry causes ErrNoHandlerForProtocol.
	Handlers map[inspect.Protocol]Handler
	// TrustProxyProtocol, when set, makes Accept look for a leading PPv1
	// or PPv2 header and substitute its client/server addresses for the
	// raw socket's before tenant identification and protocol
	// classification run.
	TrustProxyProtocol bool
	// Tenants identifies which tenant a connection belongs to. Nil skips
	// identification entirely (TenantID is left blank, never denied).
	Tenants *tenant.Registry
	// RequireTenant denies any connection Tenants can't identify.
	// Ignored when Tenants is nil.
	RequireTenant bool
	// Stats, if set, is updated with accepted/error counts.
	Stats *stat.ServerStats
}

const defaultPeekCap = 4096

// Frontend is the accept-time dispatcher built from a Config.
type Frontend struct {
	cfg Config
}

// New returns a Frontend ready to Accept connections.
func New(cfg Config) *Frontend {
	if cfg.PeekCap <= 0 {
		cfg.PeekCap = defaultPeekCap
	}
	if cfg.Portmap == nil {
		cfg.Portmap = inspect.NewPortmap()
	}
	return &Frontend{cfg: cfg}
}

// Accept runs one connection through the full accept path: PROXY protocol
// unwrap, protocol classification, tenant identification, and handler
// dispatch. It returns once the dispatched handler's Serve call returns.
func (f *Frontend) Accept(ctx context.Context, conn net.Conn) error {
	if f.cfg.Stats != nil {
		f.cfg.Stats.MarkAccepted()
	}

	notes := netaddr.NewServerTaskNotes(conn.RemoteAddr(), conn.LocalAddr())
	br := bufio.NewReader(conn)

	if f.cfg.TrustProxyProtocol {
		if err := f.unwrapProxyProtocol(br, &notes); err != nil {
			return f.fail(err)
		}
	}

	decision, err := inspect.Classify(ctx, br, f.cfg.Portmap.CandidatesFor(f.cfg.Port), f.cfg.PeekCap)
	if err != nil {
		return f.fail(ErrClassifyFailed.Error(err))
	}
	if decision.Protocol == inspect.ProtocolUnknown {
		return f.fail(ErrUnrecognizedProtocol.Error())
	}

	handler, ok := f.cfg.Handlers[decision.Protocol]
	if !ok {
		return f.fail(ErrNoHandlerForProtocol.Error())
	}

	if err := f.authorizeTenant(&notes, reqContextFor(&notes)); err != nil {
		return f.fail(err)
	}

	wrapped := newPrefixConn(conn, br, decision.Peeked)

	err = handler.Serve(ctx, wrapped, &notes, f.cfg.Stats)
	if err != nil && f.cfg.Stats != nil {
		if ce, ok := err.(errs.Error); ok {
			f.cfg.Stats.MarkError(ce.Brief())
		} else {
			f.cfg.Stats.MarkError("frontend.handler_unknown_error")
		}
	}
	return err
}

func (f *Frontend) fail(err error) error {
	if f.cfg.Stats != nil {
		if ce, ok := err.(errs.Error); ok {
			f.cfg.Stats.MarkError(ce.Brief())
		}
	}
	return err
}

// unwrapProxyProtocol peeks for a PPv2 signature first (fixed 12-byte
// magic, unambiguous), then a PPv1 "PROXY " line prefix, decoding whichever
// matches and substituting notes' addresses. Neither matching leaves br
// untouched for ordinary protocol classification.
func (f *Frontend) unwrapProxyProtocol(br *bufio.Reader, notes *netaddr.ServerTaskNotes) error {
	peek, err := br.Peek(12)
	if err != nil && len(peek) == 0 {
		return nil
	}

	if len(peek) == 12 && isV2Signature(peek) {
		h, err := proxyproto.DecodeV2(br)
		if err != nil {
			return ErrProxyProtocolFailed.Error(err)
		}
		notes.ClientAddr = h.Client
		notes.ServerAddr = h.Server
		return nil
	}

	if len(peek) >= 6 && string(peek[:6]) == "PROXY " {
		h, err := proxyproto.DecodeV1(br)
		if err != nil {
			return ErrProxyProtocolFailed.Error(err)
		}
		notes.ClientAddr = h.Client
		notes.ServerAddr = h.Server
		return nil
	}

	return nil
}

var v2Sig = [12]byte{0x0D, 0x0A, 0x0D, 0x0A, 0x00, 0x0D, 0x0A, 0x51, 0x55, 0x49, 0x54, 0x0A}

func isV2Signature(b []byte) bool {
	for i, c := range v2Sig {
		if b[i] != c {
			return false
		}
	}
	return true
}

// reqContextFor builds a tenant.RequestContext from what's known at the
// raw-transport layer: only the client IP. A handler deeper in the stack
// (one with header/SNI/cert visibility) may re-identify with a richer
// context; this pass only covers IP-range and default-tenant rules.
func reqContextFor(notes *netaddr.ServerTaskNotes) tenant.RequestContext {
	var ip net.IP
	if tcp, ok := notes.ClientAddr.(*net.TCPAddr); ok {
		ip = tcp.IP
	}
	return tenant.RequestContext{ClientIP: ip}
}

// authorizeTenant identifies the tenant for ctx and stamps notes.TenantID.
// When Tenants is nil, identification is skipped entirely. When
// RequireTenant is set and nothing matches, the connection is denied.
func (f *Frontend) authorizeTenant(notes *netaddr.ServerTaskNotes, ctx tenant.RequestContext) error {
	if f.cfg.Tenants == nil {
		return nil
	}
	res, ok := f.cfg.Tenants.Identify(ctx)
	if !ok {
		if f.cfg.RequireTenant {
			return ErrTenantDenied.Error()
		}
		return nil
	}
	notes.TenantID = res.Tenant
	return nil
}
