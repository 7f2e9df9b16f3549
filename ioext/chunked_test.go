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

package ioext_test

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"testing"

	"github.com/nabbar/proxycore/ioext"
	"github.com/stretchr/testify/require"
)

func drive(t *testing.T, sc *ioext.StreamCopy) {
	t.Helper()
	ctx := context.Background()
	for !sc.Finished() {
		if _, err := sc.Step(); err != nil {
			require.NoError(t, err)
		}
		_ = ctx
	}
}

func TestChunkedEncodeTransferRoundTrips(t *testing.T) {
	src := strings.NewReader("hello chunked world")
	var dst bytes.Buffer

	sc := ioext.ChunkedEncodeTransfer(src, &dst)
	drive(t, sc)

	cr := httputil.NewChunkedReader(bufio.NewReader(&dst))
	got, err := readAll(cr)
	require.NoError(t, err)
	require.Equal(t, "hello chunked world", string(got))
}

func TestH2StreamToChunkedAppendsTrailer(t *testing.T) {
	src := strings.NewReader("body")
	var dst bytes.Buffer

	trailer := func() http.Header {
		h := http.Header{}
		h.Set("X-Checksum", "abc123")
		return h
	}

	sc := ioext.H2StreamToChunked(src, &dst, trailer)
	drive(t, sc)

	require.Contains(t, dst.String(), "X-Checksum: abc123")
	require.True(t, strings.HasSuffix(dst.String(), "\r\n\r\n"))
}

func readAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	b := make([]byte, 64)
	for {
		n, err := r.Read(b)
		buf.Write(b[:n])
		if err != nil {
			if err == io.EOF {
				return buf.Bytes(), nil
			}
			return buf.Bytes(), err
		}
	}
}
