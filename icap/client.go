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

// Package icap is a REQMOD/RESPMOD client (RFC 3507) that lets a session
// route an HTTP request or response through an external adaptation
// service before it is forwarded. It negotiates the preview body
// (§4.5), follows the service's 100/204/206/2xx/error branches, and pools
// persistent connections the same way a keep-alive HTTP client would.
// serve.Adapter is the interface engines depend on; Client satisfies it
// without those engines importing this package.
package icap

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/textproto"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/proxycore/ioext"
	"github.com/nabbar/proxycore/serve"
)

// Config wires one REQMOD or RESPMOD ICAP service.
type Config struct {
	// Dial opens a fresh transport connection to the ICAP service.
	Dial func(ctx context.Context) (net.Conn, error)
	// Service is the ICAP request-URI, e.g.
	// "icap://filter.local:1344/reqmod".
	Service string
	// PreviewSize bounds how many leading body bytes are sent before the
	// service decides whether it needs the rest (RFC 3507 §4.5). Zero
	// disables preview negotiation: the full body is always sent.
	PreviewSize int
	// MaxIdleConns bounds how many connections are kept warm between
	// requests. Zero keeps one.
	MaxIdleConns int
	// Idle bounds the remaining-body transfer once a service asks for it
	// via 100 Continue. The zero value uses serve.DefaultIdleQuit.
	Idle serve.IdleQuit
	// Bypass, when set, forwards the original unmodified message instead
	// of failing the session outright when the ICAP exchange itself
	// fails for a transport reason (connect refused, malformed response,
	// idle timeout, 206). A service-returned error status is never
	// bypassed: that is the service's considered verdict, not a
	// transport failure.
	Bypass bool
}

// Client adapts HTTP messages through one ICAP service. It implements
// serve.Adapter.
type Client struct {
	cfg  Config
	pool *pool
}

// New returns a Client ready to use. Dial is required.
func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		pool: newPool(cfg.Dial, maxIdle(cfg.MaxIdleConns)),
	}
}

func maxIdle(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// Close releases every idle pooled connection.
func (c *Client) Close() { c.pool.closeAll() }

// part is one named, already-serialized byte range of an encapsulated
// ICAP message (RFC 3507 §4.4.1): either an HTTP request/response header
// block, or a placeholder standing in for wherever the body begins.
type part struct {
	name string
	data []byte
}

func encapsulatedHeader(parts []part, bodyKind string) string {
	var b strings.Builder
	offset := 0
	for _, p := range parts {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.name + "=" + strconv.Itoa(offset))
		offset += len(p.data)
	}
	if b.Len() > 0 {
		b.WriteString(", ")
	}
	b.WriteString(bodyKind + "=" + strconv.Itoa(offset))
	return b.String()
}

func hostOfService(service string) string {
	rest := strings.TrimPrefix(service, "icap://")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func serializeRequestHeader(req *http.Request) []byte {
	var buf bytes.Buffer
	uri := req.URL.RequestURI()
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", req.Method, uri)
	_ = req.Header.Write(&buf)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func serializeResponseHeader(resp *http.Response) []byte {
	var buf bytes.Buffer
	status := resp.Status
	if status == "" {
		status = strconv.Itoa(resp.StatusCode)
	}
	fmt.Fprintf(&buf, "HTTP/1.1 %s\r\n", status)
	_ = resp.Header.Write(&buf)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// exchangeResult is what one completed ICAP exchange produced, expressed
// generically enough for both REQMOD and RESPMOD to interpret it.
type exchangeResult struct {
	passthrough bool      // 204: forward the original message unmodified
	resp        *response // the final ICAP response (2xx or error)
	adaptedHdr  []byte    // raw adapted HTTP header bytes, if any
	adaptedBody io.ReadCloser
}

// runExchange drives one full ICAP request/response cycle for parts+body:
// writes the ICAP request (with preview negotiation if body is non-nil
// and PreviewSize > 0), follows a 100 Continue into bidirectional mode via
// errgroup, and returns once a terminal status (204/206/2xx/error) is
// reached. On success the pooled connection is either returned to the
// pool (204, nothing left to drain) or left owned by the caller so it can
// stream adaptedBody before recycling it via finish().
func (c *Client) runExchange(ctx context.Context, method string, parts []part, body io.Reader) (*exchangeResult, *pooledConn, error) {
	pc, err := c.pool.get(ctx)
	if err != nil {
		return nil, nil, err
	}

	bodyKind := "null-body"
	if body != nil {
		bodyKind = "req-body"
		if method == "RESPMOD" {
			bodyKind = "res-body"
		}
	}

	usePreview := body != nil && c.cfg.PreviewSize > 0

	if err := c.writeHeader(pc, method, parts, bodyKind, usePreview); err != nil {
		_ = pc.Close()
		return nil, nil, ErrRequestSendFailed.Error(err)
	}

	var (
		previewEOF bool
		bodyReader *bufio.Reader
	)

	if body != nil {
		bodyReader = bufio.NewReader(body)
		if usePreview {
			data, eof, err := readPreview(bodyReader, c.cfg.PreviewSize)
			if err != nil {
				_ = pc.Close()
				return nil, nil, err
			}
			previewEOF = eof
			if err := writeChunk(pc, data, eof); err != nil {
				_ = pc.Close()
				return nil, nil, ErrRequestSendFailed.Error(err)
			}
		} else {
			if err := streamRemainingBody(ctx, pc, bodyReader, c.cfg.Idle); err != nil {
				_ = pc.Close()
				return nil, nil, err
			}
		}
	}

	resp, err := readResponse(pc.br)
	if err != nil {
		_ = pc.Close()
		return nil, nil, err
	}

	if resp.StatusCode == 100 {
		if !usePreview || bodyReader == nil {
			_ = pc.Close()
			return nil, nil, ErrUnexpectedContinue.Error()
		}
		if previewEOF {
			_ = pc.Close()
			return nil, nil, ErrContinueAfterPreviewEOF.Error()
		}
		resp, err = c.continueBidirectional(ctx, pc, bodyReader)
		if err != nil {
			_ = pc.Close()
			return nil, nil, err
		}
	}

	return c.interpretFinal(pc, resp)
}

// continueBidirectional streams the remaining body after a 100 Continue,
// concurrently with reading the service's eventual final response, using
// errgroup so a service that starts answering before the body finishes
// sending doesn't deadlock the exchange.
func (c *Client) continueBidirectional(ctx context.Context, pc *pooledConn, body *bufio.Reader) (*response, error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return streamRemainingBody(gctx, pc, body, c.cfg.Idle)
	})

	var resp *response
	g.Go(func() error {
		r, err := readResponse(pc.br)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) interpretFinal(pc *pooledConn, resp *response) (*exchangeResult, *pooledConn, error) {
	switch {
	case resp.StatusCode == 204:
		pc.readerDone, pc.writerDone = true, true
		pc.keepAlive = isKeepAlive(resp.Header)
		c.pool.put(pc)
		return &exchangeResult{passthrough: true, resp: resp}, nil, nil

	case resp.StatusCode == 206:
		_ = pc.Close()
		return nil, nil, ErrNotImplemented206.Error()

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		hdr, bodyR, err := readAdapted(pc, resp)
		if err != nil {
			_ = pc.Close()
			return nil, nil, err
		}
		pc.writerDone = true
		pc.keepAlive = isKeepAlive(resp.Header)
		return &exchangeResult{resp: resp, adaptedHdr: hdr, adaptedBody: bodyR}, pc, nil

	default:
		_ = pc.Close()
		return nil, nil, ErrServiceErrorResponse.Error(statusErr(resp))
	}
}

type statusErrT struct {
	code   int
	reason string
}

func statusErr(r *response) error { return &statusErrT{code: r.StatusCode, reason: r.Reason} }

func (e *statusErrT) Error() string {
	return fmt.Sprintf("ICAP/1.0 %d %s", e.code, e.reason)
}

func isKeepAlive(h textproto.MIMEHeader) bool {
	return strings.EqualFold(h.Get("Connection"), "keep-alive")
}

// finishAdapted marks the reader side of pc as done and recycles it; the
// caller must call this once it has fully drained adaptedBody.
func (c *Client) finishAdapted(pc *pooledConn) {
	pc.readerDone = true
	c.pool.put(pc)
}

// readAdapted reads whichever adapted header block resp declared
// (req-hdr or res-hdr) and wraps the remaining encapsulated body (if any)
// in an ICAP-chunk decoder. The encapsulated body bytes are always
// chunk-encoded on the wire (RFC 3507 §4.4.2) regardless of whatever
// framing the adapted message's own headers declare, so httputil's
// chunked reader is used unconditionally rather than trusting
// Content-Length/Transfer-Encoding found inside the adapted headers.
func readAdapted(pc *pooledConn, resp *response) ([]byte, io.ReadCloser, error) {
	name := "req-hdr"
	if _, ok := resp.part("res-hdr"); ok {
		name = "res-hdr"
	}

	if _, ok := resp.part(name); !ok {
		return nil, nil, nil
	}

	hdr, err := readHeaderBlock(pc.br)
	if err != nil {
		return nil, nil, ErrResponseParseFailed.Error(err)
	}

	if !resp.hasBody() {
		return hdr, nil, nil
	}
	return hdr, io.NopCloser(httputil.NewChunkedReader(pc.br)), nil
}

// readHeaderBlock copies raw bytes up to and including the blank line
// terminating an HTTP header block, without interpreting them -- the
// caller re-parses the request/status line and headers from the result.
func readHeaderBlock(br *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		line, err := br.ReadString('\n')
		buf.WriteString(line)
		if err != nil {
			return nil, err
		}
		if line == "\r\n" || line == "\n" {
			return buf.Bytes(), nil
		}
	}
}

// writeHeader writes the ICAP request line, Host/Encapsulated headers,
// and the already-serialized header parts (req-hdr and/or res-hdr). Allow:
// 204 is only sent when preview is not in use, matching how a service
// distinguishes "may skip the body entirely" from "asked for a preview
// and will decide after seeing it" -- sending both would be redundant.
func (c *Client) writeHeader(pc *pooledConn, method string, parts []part, bodyKind string, usePreview bool) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s ICAP/1.0\r\n", method, c.cfg.Service)
	fmt.Fprintf(&buf, "Host: %s\r\n", hostOfService(c.cfg.Service))
	fmt.Fprintf(&buf, "Encapsulated: %s\r\n", encapsulatedHeader(parts, bodyKind))
	if usePreview {
		fmt.Fprintf(&buf, "Preview: %d\r\n", c.cfg.PreviewSize)
	} else {
		buf.WriteString("Allow: 204\r\n")
	}
	buf.WriteString("\r\n")
	for _, p := range parts {
		buf.Write(p.data)
	}
	_, err := pc.Write(buf.Bytes())
	return err
}

// writeChunk emits one ICAP-chunked extent (RFC 3507 §4.4.2, the same
// wire shape as HTTP/1.1 chunked transfer coding). ieof marks the
// terminating chunk of a preview that turned out to be the entire body.
func writeChunk(w io.Writer, data []byte, ieof bool) error {
	if len(data) > 0 {
		if _, err := fmt.Fprintf(w, "%x\r\n", len(data)); err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return err
		}
	}
	if ieof {
		_, err := io.WriteString(w, "0; ieof\r\n\r\n")
		return err
	}
	_, err := io.WriteString(w, "0\r\n\r\n")
	return err
}

// finishingBody wraps an adapted message's body so the pooled ICAP
// connection it streams from is only returned to the pool once the
// caller has fully read (or given up on) that body, matching how the
// connection's reader half is genuinely done only at that point.
type finishingBody struct {
	io.ReadCloser
	onClose func()
	done    bool
}

func (f *finishingBody) Close() error {
	err := f.ReadCloser.Close()
	if !f.done {
		f.done = true
		f.onClose()
	}
	return err
}

// attachFinisher arms *bodyField to recycle pc once closed, when pc is
// non-nil. A nil adapted body (null-body response) recycles pc
// immediately since there is nothing left to drain.
func attachFinisher(c *Client, pc *pooledConn, bodyField *io.ReadCloser) {
	if pc == nil {
		return
	}
	if *bodyField == nil || *bodyField == http.NoBody {
		c.finishAdapted(pc)
		return
	}
	*bodyField = &finishingBody{ReadCloser: *bodyField, onClose: func() { c.finishAdapted(pc) }}
}

// streamRemainingBody chunk-encodes whatever is left of body onto pc,
// under the same idle/blocked/quit policy every other engine's body
// transfer uses. It deliberately leaves cfg.Conn unset: pc here is the
// transfer's destination, not its source, and arming a read deadline on
// it would race against continueBidirectional's concurrent read of the
// service's final response on the same connection.
func streamRemainingBody(ctx context.Context, pc *pooledConn, body io.Reader, idle serve.IdleQuit) error {
	sc := ioext.ChunkedEncodeTransfer(body, pc)

	cfg := idle
	if cfg.CheckInterval <= 0 {
		cfg = serve.DefaultIdleQuit()
	}

	if err := serve.RunTransfer(ctx, sc, cfg); err != nil {
		return serve.TranslateTransferErr(err, ErrIdle, ErrCanceledAsUserBlocked, ErrCanceledAsServerQuit, ErrBodyTransferFailed)
	}
	return nil
}
