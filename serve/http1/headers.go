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

package http1

import (
	"io"
	"net/http"

	"github.com/nabbar/proxycore/serve"
)

// forwardHeaders and the two head writers below delegate to serve's shared
// helpers; http2 bridges onto an HTTP/1.1 upstream the same way and reuses
// the same code.
func forwardHeaders(h http.Header, contentLength int64) http.Header {
	return serve.ForwardHeaders(h, contentLength)
}

func writeRequestHead(w io.Writer, req *http.Request, h http.Header) error {
	return serve.WriteRequestHead(w, req, h)
}

func writeResponseHead(w io.Writer, resp *http.Response, h http.Header) error {
	return serve.WriteResponseHead(w, resp, h)
}
