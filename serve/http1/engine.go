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

// Package http1 implements the forward-only and ICAP-adapted HTTP/1.1
// interception engine: terminate the client's request, optionally run it
// (and the upstream's response) through an adaptation service, and relay
// both to completion under the same idle/blocked-user/server-quit
// semantics every engine in this module shares.
package http1

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/nabbar/proxycore/errs"
	"github.com/nabbar/proxycore/ioext"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/serve"
	"github.com/nabbar/proxycore/stat"
)

// DialUpstream resolves and connects to the upstream a request should be
// forwarded to. Implementations typically route through an escaper.
type DialUpstream func(ctx context.Context, req *http.Request) (net.Conn, error)

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
}

// Engine serves HTTP/1.1 connections per Config.
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

// Serve reads one or more requests off conn (honoring HTTP/1.1
// keep-alive), forwarding each to its upstream and relaying the response
// back, until the client or upstream closes the connection, a request
// asks for Connection: close, or a transfer fails. conn's peer address
// informs notes.ClientAddr bookkeeping the caller has already stamped.
func (e *Engine) Serve(ctx context.Context, conn net.Conn, notes *netaddr.ServerTaskNotes, st *stat.ServerStats) error {
	br := bufio.NewReader(conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		req, err := http.ReadRequest(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return ErrRequestHeadRecvFailed.Error(err)
		}

		if notes != nil {
			req.RemoteAddr = notes.ClientAddr.String()
		}

		if err := e.handle(ctx, conn, req); err != nil {
			if st != nil {
				if ce, ok := err.(errs.Error); ok {
					st.MarkError(ce.Brief())
				} else {
					st.MarkError("http1.unknown")
				}
			}
			return err
		}

		if st != nil {
			st.MarkTaskOK()
		}

		if req.Close {
			return nil
		}
	}
}

func (e *Engine) handle(ctx context.Context, client net.Conn, req *http.Request) error {
	if e.cfg.Adapter != nil {
		adapted, err := e.cfg.Adapter.REQMOD(ctx, req)
		if err != nil {
			return ErrInternalAdapterError.Error(err)
		}
		req = adapted
	}

	upstream, err := e.cfg.Dial(ctx, req)
	if err != nil {
		return ErrUpstreamDialFailed.Error(err)
	}
	defer upstream.Close()

	reqHeaders := forwardHeaders(req.Header, req.ContentLength)
	if err := writeRequestHead(upstream, req, reqHeaders); err != nil {
		return ErrRequestHeadSendFailed.Error(err)
	}

	if req.ContentLength != 0 {
		if err := e.transferBody(ctx, req.Body, upstream, req.ContentLength, client); err != nil {
			return serve.TranslateTransferErr(err, ErrIdle, ErrCanceledAsUserBlocked, ErrCanceledAsServerQuit, ErrRequestBodyTransferFailed)
		}
	}
	_ = req.Body.Close()

	upstreamReader := bufio.NewReader(upstream)
	resp, err := http.ReadResponse(upstreamReader, req)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return ErrResponseHeadRecvTimeout.Error(err)
		}
		return ErrResponseHeadRecvFailed.Error(err)
	}

	if e.cfg.Adapter != nil {
		adapted, aerr := e.cfg.Adapter.RESPMOD(ctx, req, resp)
		if aerr != nil {
			return ErrInternalAdapterError.Error(aerr)
		}
		resp = adapted
	}

	respHeaders := forwardHeaders(resp.Header, resp.ContentLength)
	if err := writeResponseHead(client, resp, respHeaders); err != nil {
		return ErrResponseHeadSendFailed.Error(err)
	}

	if resp.ContentLength != 0 && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotModified {
		if err := e.transferBody(ctx, resp.Body, client, resp.ContentLength, upstream); err != nil {
			return serve.TranslateTransferErr(err, ErrIdle, ErrCanceledAsUserBlocked, ErrCanceledAsServerQuit, ErrResponseBodyTransferFailed)
		}
	}
	_ = resp.Body.Close()

	return nil
}

// transferBody relays exactly contentLength bytes (or, if negative, the
// entire reader re-chunked) from src to dst, driven by serve.RunTransfer
// so idle/blocked-user/server-quit checks apply. readDeadline is whichever
// connection src ultimately reads from -- the client for a request body,
// the upstream for a response body -- since that's the socket a stalled
// peer would be read from.
func (e *Engine) transferBody(ctx context.Context, src io.Reader, dst io.Writer, contentLength int64, readDeadline serve.Deadline) error {
	var sc *ioext.StreamCopy
	if contentLength >= 0 {
		sc = ioext.New(io.LimitReader(src, contentLength), dst)
	} else {
		sc = ioext.ChunkedEncodeTransfer(src, dst)
	}

	cfg := e.cfg.Idle
	cfg.Conn = readDeadline
	return serve.RunTransfer(ctx, sc, cfg)
}
