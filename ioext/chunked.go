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

package ioext

import (
	"io"
	"net/http"
	"strconv"
)

// chunkedWriter wraps an io.Writer, encoding every Write as one HTTP
// chunked-transfer-encoding extent. It satisfies the Flush() hook
// StreamCopy calls once the source is exhausted, using that as the signal
// to emit the terminating zero-length chunk.
type chunkedWriter struct {
	w       io.Writer
	trailer func() http.Header
}

// NewChunkedWriter wraps w so every Write is emitted as one chunk. Driving
// a StreamCopy built over it (via ChunkedEncodeTransfer) automatically
// closes the chunked stream out when the copy finishes.
func NewChunkedWriter(w io.Writer) io.Writer {
	return &chunkedWriter{w: w}
}

func (c *chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := io.WriteString(c.w, strconv.FormatInt(int64(len(p)), 16)+"\r\n"); err != nil {
		return 0, err
	}
	if _, err := c.w.Write(p); err != nil {
		return 0, err
	}
	if _, err := io.WriteString(c.w, "\r\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush emits the terminating "0\r\n" chunk, followed by any trailer
// headers (RFC 9112 §7.1.2) and the final CRLF.
func (c *chunkedWriter) Flush() error {
	if _, err := io.WriteString(c.w, "0\r\n"); err != nil {
		return err
	}
	if c.trailer != nil {
		if h := c.trailer(); h != nil {
			if err := h.Write(c.w); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(c.w, "\r\n")
	return err
}

// ChunkedEncodeTransfer builds a StreamCopy that reads r and writes its
// bytes to w as HTTP chunked-transfer-encoding extents, terminating the
// stream automatically once r is exhausted and the copy is driven to
// Finished(). Used whenever a body of unknown length (no Content-Length,
// no fixed record framing) needs to cross an HTTP/1-shaped boundary -- for
// instance handing a request body on to an upstream or an ICAP service.
func ChunkedEncodeTransfer(r io.Reader, w io.Writer, opts ...Option) *StreamCopy {
	return New(r, &chunkedWriter{w: w}, opts...)
}

// H2StreamToChunked is ChunkedEncodeTransfer specialized for an HTTP/2
// stream body: HTTP/2 carries trailers as a second HEADERS frame that
// typically isn't known until the DATA stream reaches END_STREAM, so the
// trailer callback is invoked only once the copy has reached EOF, at the
// point the terminating chunk is written.
func H2StreamToChunked(r io.Reader, w io.Writer, trailer func() http.Header, opts ...Option) *StreamCopy {
	return New(r, &chunkedWriter{w: w, trailer: trailer}, opts...)
}
