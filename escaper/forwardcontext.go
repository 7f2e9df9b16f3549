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
	"net"

	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
)

// ForwardContext is a per-task object an HTTP engine keeps for the
// lifetime of one client connection and reuses across every
// keep-alive-forwarded request on it, instead of re-resolving the escaper
// and re-evaluating the audit decision for each request.
type ForwardContext interface {
	// Dial produces a connection to target for a single forwarded request,
	// using the escaper and audit.Context this ForwardContext was built
	// from.
	Dial(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats) (net.Conn, error)
	// Close releases any resource the ForwardContext itself holds (none,
	// for the generic implementation that every variant here uses).
	Close() error
}

// genericForwardContext is the ForwardContext every variant in this
// package builds by default: each Dial simply re-invokes the owning
// escaper's own TCPSetupConnection, fixing the audit.Context captured at
// creation. This is enough for every variant here because none of them
// hold a connection-level resource that should be reused across requests
// (ProxyHTTP/ProxySOCKS5 tunnel per-request, not per-connection); a
// variant that gains such a resource overrides NewHTTPForwardContext
// instead of using this helper.
type genericForwardContext struct {
	esc Escaper
	ac  *audit.Context
}

func newGenericForwardContext(e Escaper, ac *audit.Context) ForwardContext {
	return &genericForwardContext{esc: e, ac: ac}
}

func (g *genericForwardContext) Dial(ctx context.Context, target netaddr.UpstreamAddr, notes *netaddr.TCPConnectTaskNotes, st *stat.EscaperStats) (net.Conn, error) {
	return g.esc.TCPSetupConnection(ctx, target, notes, st, g.ac)
}

func (g *genericForwardContext) Close() error { return nil }
