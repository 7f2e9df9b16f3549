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

// Package http2 fully terminates an HTTP/2 session on the client side and
// bridges each stream onto an HTTP/1.1 upstream connection, the same way
// serve/http1 terminates a client connection and bridges onto upstream --
// re-chunking a request body of unknown length for the wire, relaying a
// response body back as plain stream frames, and optionally routing either
// side through an ICAP adapter. Server push is offered on a best-effort
// basis through the stable http.Pusher contract rather than by consuming
// any push promise the upstream itself might announce.
package http2

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"golang.org/x/net/http2"

	"github.com/nabbar/proxycore/errs"
	"github.com/nabbar/proxycore/ioext"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/serve"
	"github.com/nabbar/proxycore/stat"
)

// DialUpstream resolves and connects to the upstream a request should be
// forwarded to. Implementations typically route through an escaper.
type DialUpstream func(ctx context.Context, req *http.Request) (net.Conn, error)

// PushSource, given the request/response pair an exchange just relayed,
// returns zero or more additional resource paths the client should be
// offered as a server push -- for example a stylesheet the returned HTML
// references. A nil or empty result disables push for that exchange.
type PushSource func(req *http.Request, resp *http.Response) []string

// Config configures an Engine.
type Config struct {
	// Adapter, if set, routes every request/response pair through an ICAP
	// REQMOD/RESPMOD client before it is forwarded.
	Adapter serve.Adapter
	// Idle bounds every body transfer; the zero value uses
	// serve.DefaultIdleQuit.
	Idle serve.IdleQuit
	// Dial produces the upstream connection for a request. Required.
	Dial DialUpstream
	// PushSource, if set, is consulted after every forwarded exchange to
	// decide whether to offer the client a server push.
	PushSource PushSource
	// Server tunes the underlying golang.org/x/net/http2.Server (max
	// concurrent streams, header list size, and so on). A nil value uses
	// an unconfigured *http2.Server, i.e. the library's own defaults.
	Server *http2.Server
}

// Engine serves HTTP/2 sessions per Config.
type Engine struct {
	cfg   Config
	stats *H2ConcurrencyStats
}

// New builds an Engine from cfg.
func New(cfg Config) *Engine {
	if cfg.Idle.CheckInterval <= 0 {
		cfg.Idle = serve.DefaultIdleQuit()
	}
	if cfg.Server == nil {
		cfg.Server = &http2.Server{}
	}
	return &Engine{cfg: cfg, stats: NewH2ConcurrencyStats()}
}

// Stats exposes the Engine's concurrency counters, shared by every session
// it serves.
func (e *Engine) Stats() *H2ConcurrencyStats { return e.stats }

// pushMarkerHeader tags a synthetic pushed-stream request so serveStream
// can tell it apart from a stream the client opened itself; opts.Header
// is otherwise only ever read by the client, never forwarded upstream.
const pushMarkerHeader = "X-Proxycore-Pushed"

// Serve terminates one HTTP/2 session on conn -- already past ALPN
// negotiation, and for an intercepted session past tlsintercept's
// re-termination -- and blocks until every stream on it, and every push
// task it spawned, has finished.
func (e *Engine) Serve(ctx context.Context, conn net.Conn, notes *netaddr.ServerTaskNotes, st *stat.ServerStats) error {
	e.cfg.Server.ServeConn(conn, &http2.ServeConnOpts{
		Context: ctx,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			e.serveStream(ctx, w, r, notes, st)
		}),
	})
	return ctx.Err()
}

func (e *Engine) serveStream(ctx context.Context, w http.ResponseWriter, r *http.Request, notes *netaddr.ServerTaskNotes, st *stat.ServerStats) {
	pushed := r.Header.Get(pushMarkerHeader) != ""
	r.Header.Del(pushMarkerHeader)

	var release func()
	if pushed {
		release = e.stats.MarkPush()
	} else {
		release = e.stats.MarkStream()
	}
	defer release()

	if notes != nil {
		r.RemoteAddr = notes.ClientAddr.String()
	}

	err := e.forward(ctx, w, r, st)
	if err != nil {
		if st != nil {
			if ce, ok := err.(errs.Error); ok {
				st.MarkError(ce.Brief())
			} else {
				st.MarkError("http2.unknown")
			}
		}
		return
	}

	if st != nil {
		st.MarkTaskOK()
	}
}

func (e *Engine) forward(ctx context.Context, w http.ResponseWriter, r *http.Request, st *stat.ServerStats) error {
	if e.cfg.Adapter != nil {
		adapted, err := e.cfg.Adapter.REQMOD(ctx, r)
		if err != nil {
			return ErrInternalAdapterError.Error(err)
		}
		r = adapted
	}

	upstream, err := e.cfg.Dial(ctx, r)
	if err != nil {
		return ErrUpstreamDialFailed.Error(err)
	}
	defer upstream.Close()

	reqHeaders := serve.ForwardHeaders(r.Header, r.ContentLength)
	if err := serve.WriteRequestHead(upstream, r, reqHeaders); err != nil {
		return ErrRequestHeadSendFailed.Error(err)
	}

	if r.ContentLength != 0 && r.Body != nil {
		if err := e.transferRequestBody(ctx, r.Body, upstream, r.ContentLength); err != nil {
			return serve.TranslateTransferErr(err, ErrIdle, ErrCanceledAsUserBlocked, ErrCanceledAsServerQuit, ErrRequestBodyTransferFailed)
		}
	}
	if r.Body != nil {
		_ = r.Body.Close()
	}

	upstreamReader := bufio.NewReader(upstream)
	resp, err := http.ReadResponse(upstreamReader, r)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return ErrResponseHeadRecvTimeout.Error(err)
		}
		return ErrResponseHeadRecvFailed.Error(err)
	}

	if e.cfg.Adapter != nil {
		adapted, aerr := e.cfg.Adapter.RESPMOD(ctx, r, resp)
		if aerr != nil {
			return ErrInternalAdapterError.Error(aerr)
		}
		resp = adapted
	}

	respHeaders := serve.ForwardHeaders(resp.Header, resp.ContentLength)
	respHeaders.Del("Content-Length") // http2 frames carry their own length; END_STREAM marks the end instead
	for k, vv := range respHeaders {
		w.Header()[k] = vv
	}
	w.WriteHeader(resp.StatusCode)

	if resp.ContentLength != 0 && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotModified {
		if err := e.transferResponseBody(ctx, resp.Body, flushWriter{w}, resp.ContentLength, upstream); err != nil {
			return serve.TranslateTransferErr(err, ErrIdle, ErrCanceledAsUserBlocked, ErrCanceledAsServerQuit, ErrResponseBodyTransferFailed)
		}
	}
	_ = resp.Body.Close()

	e.maybePush(w, r, resp, st)
	return nil
}

// transferRequestBody relays the client's request body onto the upstream
// HTTP/1.1 connection, re-chunking it when contentLength is unknown since
// the wire format needs explicit framing the decoded http2 stream no
// longer carries. The source stream offers no read-deadline hook, so the
// transfer runs under RunTransfer's goroutine-based stepping strategy.
func (e *Engine) transferRequestBody(ctx context.Context, src io.Reader, dst io.Writer, contentLength int64) error {
	var sc *ioext.StreamCopy
	if contentLength >= 0 {
		sc = ioext.New(io.LimitReader(src, contentLength), dst)
	} else {
		sc = ioext.ChunkedEncodeTransfer(src, dst)
	}
	cfg := e.cfg.Idle
	return serve.RunTransfer(ctx, sc, cfg)
}

// transferResponseBody relays the upstream's response body onto the
// client's http2 stream as plain bytes; http2 framing supplies its own
// length, so no re-chunking is needed on this side. upstream is the real
// net.Conn the bytes are read from, so RunTransfer can use the
// deadline-based stepping strategy instead of spawning a goroutine.
func (e *Engine) transferResponseBody(ctx context.Context, src io.Reader, dst io.Writer, contentLength int64, upstream serve.Deadline) error {
	var sc *ioext.StreamCopy
	if contentLength >= 0 {
		sc = ioext.New(io.LimitReader(src, contentLength), dst)
	} else {
		sc = ioext.New(src, dst)
	}
	cfg := e.cfg.Idle
	cfg.Conn = upstream
	return serve.RunTransfer(ctx, sc, cfg)
}

// maybePush offers the client a server push for every target cfg.PushSource
// names. The pushed request is re-dispatched through this Engine's own
// Handler (golang.org/x/net/http2's documented http.Pusher behavior), so
// the push follows the exact same forward/adapt/relay path as a stream the
// client opened itself; pushMarkerHeader only lets serveStream count it
// under H2ConcurrencyStats' push counters instead of its stream counters.
func (e *Engine) maybePush(w http.ResponseWriter, r *http.Request, resp *http.Response, st *stat.ServerStats) {
	if e.cfg.PushSource == nil {
		return
	}
	targets := e.cfg.PushSource(r, resp)
	if len(targets) == 0 {
		return
	}

	pusher, ok := w.(http.Pusher)
	if !ok {
		if st != nil {
			st.MarkError(briefs[ErrPushUnavailable])
		}
		return
	}

	for _, target := range targets {
		opts := &http.PushOptions{Header: http.Header{pushMarkerHeader: []string{"1"}}}
		_ = pusher.Push(target, opts)
	}
}

// flushWriter adapts an http.ResponseWriter to ioext.StreamCopy's optional
// Flush() error hook, so each relayed chunk reaches the client as its own
// DATA frame instead of waiting for the handler to return.
type flushWriter struct {
	w http.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) { return f.w.Write(p) }

func (f flushWriter) Flush() error {
	if fl, ok := f.w.(http.Flusher); ok {
		fl.Flush()
	}
	return nil
}
