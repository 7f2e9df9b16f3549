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

package icap_test

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/textproto"
	"strconv"
	"strings"
	"testing"

	"github.com/nabbar/proxycore/icap"
	"github.com/stretchr/testify/require"
)

// fakeICAPServer reads one OPTIONS-free REQMOD/RESPMOD request off conn
// (ICAP request line, headers, whatever encapsulated parts precede the
// body, then the body itself if the Encapsulated header declared one) and
// hands it to onRequest, which returns the raw bytes to write back
// verbatim as the ICAP response.
func fakeICAPServer(t *testing.T, conn net.Conn, onRequest func(method string, encapsulated string, partBytes []byte, body []byte) []byte) {
	t.Helper()
	br := bufio.NewReader(conn)
	tp := textproto.NewReader(br)

	reqLine, err := tp.ReadLine()
	require.NoError(t, err)
	fields := strings.SplitN(reqLine, " ", 3)
	require.Len(t, fields, 3)
	method := fields[0]

	hdr, err := tp.ReadMIMEHeader()
	require.NoError(t, err)

	enc := hdr.Get("Encapsulated")
	bodyOffset := lastOffset(t, enc)

	partBytes := make([]byte, bodyOffset)
	_, err = io.ReadFull(br, partBytes)
	require.NoError(t, err)

	var body []byte
	if strings.Contains(enc, "req-body=") || strings.Contains(enc, "res-body=") {
		body, err = io.ReadAll(httputil.NewChunkedReader(br))
		require.NoError(t, err)
	}

	out := onRequest(method, enc, partBytes, body)
	_, err = conn.Write(out)
	require.NoError(t, err)
}

func lastOffset(t *testing.T, encapsulated string) int {
	t.Helper()
	fields := strings.Split(encapsulated, ",")
	require.NotEmpty(t, fields)
	last := strings.TrimSpace(fields[len(fields)-1])
	kv := strings.SplitN(last, "=", 2)
	require.Len(t, kv, 2)
	n, err := strconv.Atoi(strings.TrimSpace(kv[1]))
	require.NoError(t, err)
	return n
}

func chunkEncode(data []byte) []byte {
	var b strings.Builder
	if len(data) > 0 {
		fmt.Fprintf(&b, "%x\r\n", len(data))
		b.Write(data)
		b.WriteString("\r\n")
	}
	b.WriteString("0\r\n\r\n")
	return []byte(b.String())
}

func dialPipe(conn net.Conn) func(ctx context.Context) (net.Conn, error) {
	return func(ctx context.Context) (net.Conn, error) { return conn, nil }
}

func TestREQMODPassthroughOn204(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	go fakeICAPServer(t, serverSide, func(method, enc string, _ []byte, _ []byte) []byte {
		require.Equal(t, "REQMOD", method)
		require.Contains(t, enc, "null-body=")
		return []byte("ICAP/1.0 204 No Content\r\nConnection: close\r\n\r\n")
	})

	c := icap.New(icap.Config{
		Dial:    dialPipe(clientSide),
		Service: "icap://icap.example.test:1344/reqmod",
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.test/foo", nil)
	require.NoError(t, err)

	adapted, err := c.REQMOD(context.Background(), req)
	require.NoError(t, err)
	require.Same(t, req, adapted)
}

func TestREQMODAdaptedBodyNoPreview(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	const adaptedBody = "adapted payload"

	go fakeICAPServer(t, serverSide, func(method, enc string, _ []byte, body []byte) []byte {
		require.Equal(t, "REQMOD", method)
		require.Equal(t, "original body", string(body))

		hdrBytes := []byte("GET /foo HTTP/1.1\r\nHost: example.test\r\n\r\n")
		var resp strings.Builder
		resp.WriteString("ICAP/1.0 200 OK\r\n")
		fmt.Fprintf(&resp, "Encapsulated: req-hdr=0, req-body=%d\r\n", len(hdrBytes))
		resp.WriteString("Connection: close\r\n\r\n")
		resp.Write(hdrBytes)
		resp.Write(chunkEncode([]byte(adaptedBody)))
		return []byte(resp.String())
	})

	c := icap.New(icap.Config{
		Dial:    dialPipe(clientSide),
		Service: "icap://icap.example.test:1344/reqmod",
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.test/foo", io.NopCloser(strings.NewReader("original body")))
	require.NoError(t, err)

	adapted, err := c.REQMOD(context.Background(), req)
	require.NoError(t, err)
	require.NotSame(t, req, adapted)

	got, err := io.ReadAll(adapted.Body)
	require.NoError(t, err)
	require.NoError(t, adapted.Body.Close())
	require.Equal(t, adaptedBody, string(got))
}

func TestRESPMODPassthroughOn204(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	go fakeICAPServer(t, serverSide, func(method, enc string, _ []byte, _ []byte) []byte {
		require.Equal(t, "RESPMOD", method)
		return []byte("ICAP/1.0 204 No Content\r\nConnection: close\r\n\r\n")
	})

	c := icap.New(icap.Config{
		Dial:    dialPipe(clientSide),
		Service: "icap://icap.example.test:1344/respmod",
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.test/foo", nil)
	require.NoError(t, err)
	resp := &http.Response{
		Status:     "200 OK",
		StatusCode: 200,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       http.NoBody,
		Request:    req,
	}

	adapted, err := c.RESPMOD(context.Background(), req, resp)
	require.NoError(t, err)
	require.Same(t, resp, adapted)
}

func TestREQMODBypassOnTransportFailure(t *testing.T) {
	c := icap.New(icap.Config{
		Dial: func(ctx context.Context) (net.Conn, error) {
			return nil, fmt.Errorf("connection refused")
		},
		Service: "icap://icap.example.test:1344/reqmod",
		Bypass:  true,
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.test/foo", nil)
	require.NoError(t, err)

	adapted, err := c.REQMOD(context.Background(), req)
	require.NoError(t, err)
	require.Same(t, req, adapted)
}

func TestREQMODFailsWithoutBypass(t *testing.T) {
	c := icap.New(icap.Config{
		Dial: func(ctx context.Context) (net.Conn, error) {
			return nil, fmt.Errorf("connection refused")
		},
		Service: "icap://icap.example.test:1344/reqmod",
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.test/foo", nil)
	require.NoError(t, err)

	_, err = c.REQMOD(context.Background(), req)
	require.Error(t, err)
}
