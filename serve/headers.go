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

package serve

import (
	"io"
	"net/http"
	"strconv"
	"strings"
)

// HopByHop lists the RFC 9110 §7.6.1 connection-specific headers that must
// never be forwarded as-is between independent connections. Shared by every
// engine that bridges two HTTP message framings (http1's two raw sockets,
// http2's stream-to-socket bridge).
var HopByHop = []string{
	"Connection", "Proxy-Connection", "Keep-Alive", "Proxy-Authenticate",
	"Proxy-Authorization", "Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// ForwardHeaders clones h, stripping hop-by-hop headers, then sets either
// Content-Length (contentLength >= 0) or Transfer-Encoding: chunked
// (contentLength < 0, unknown length) to describe the body an engine is
// about to write on the wire -- which may differ from what the original
// peer sent, since a decoded http.Request/http.Response body has already
// lost its original transfer framing.
func ForwardHeaders(h http.Header, contentLength int64) http.Header {
	out := h.Clone()
	for _, k := range HopByHop {
		out.Del(k)
	}
	out.Del("Content-Length")
	if contentLength >= 0 {
		out.Set("Content-Length", strconv.FormatInt(contentLength, 10))
	} else {
		out.Set("Transfer-Encoding", "chunked")
	}
	return out
}

// WriteRequestHead writes an HTTP/1.1 request line, Host header, h, and the
// terminating blank line to w. Used whenever an engine bridges onto an
// HTTP/1.1 upstream connection, regardless of what framing the client side
// used to arrive at req.
func WriteRequestHead(w io.Writer, req *http.Request, h http.Header) error {
	if _, err := io.WriteString(w, req.Method+" "+req.URL.RequestURI()+" HTTP/1.1\r\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "Host: "+req.Host+"\r\n"); err != nil {
		return err
	}
	if err := h.Write(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// WriteResponseHead writes an HTTP/1.1 status line, h, and the terminating
// blank line to w.
func WriteResponseHead(w io.Writer, resp *http.Response, h http.Header) error {
	status := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
	if status == "" {
		status = http.StatusText(resp.StatusCode)
	}
	if _, err := io.WriteString(w, "HTTP/1.1 "+strconv.Itoa(resp.StatusCode)+" "+status+"\r\n"); err != nil {
		return err
	}
	if err := h.Write(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
