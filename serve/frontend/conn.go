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

package frontend

import (
	"bufio"
	"bytes"
	"io"
	"net"
)

// prefixConn re-presents conn to a handler after some of its leading bytes
// have already been consumed for PROXY-protocol decoding and protocol
// classification: reads are served from a prepended buffer first, then
// from br (which may still hold bytes buffered past what classification
// consumed), then from the raw connection. Everything but Read delegates
// straight to the embedded net.Conn.
type prefixConn struct {
	net.Conn
	r io.Reader
}

func newPrefixConn(conn net.Conn, br *bufio.Reader, prefix []byte) *prefixConn {
	var r io.Reader = br
	if len(prefix) > 0 {
		r = io.MultiReader(bytes.NewReader(prefix), br)
	}
	return &prefixConn{Conn: conn, r: r}
}

func (c *prefixConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
