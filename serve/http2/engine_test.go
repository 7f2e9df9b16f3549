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

package http2_test

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"golang.org/x/net/http2"

	"github.com/nabbar/proxycore/netaddr"
	shttp2 "github.com/nabbar/proxycore/serve/http2"
	"github.com/stretchr/testify/require"
)

// TestEngineForwardsRequestAndResponse drives one request over an h2c
// (cleartext HTTP/2) connection into the engine, which bridges it onto a
// fake HTTP/1.1 upstream and relays the response back.
func TestEngineForwardsRequestAndResponse(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	upstreamClient, upstreamServer := net.Pipe()

	engine := shttp2.New(shttp2.Config{
		Dial: func(_ context.Context, _ *http.Request) (net.Conn, error) {
			return upstreamClient, nil
		},
	})

	notes := netaddr.NewServerTaskNotes(clientConn.RemoteAddr(), serverConn.LocalAddr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- engine.Serve(context.Background(), serverConn, &notes, nil)
	}()

	upstreamErr := make(chan error, 1)
	go func() {
		req, err := http.ReadRequest(bufio.NewReader(upstreamServer))
		if err != nil {
			upstreamErr <- err
			return
		}
		_ = req.Body.Close()
		_, err = upstreamServer.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
		upstreamErr <- err
	}()

	tr := &http2.Transport{
		AllowHTTP: true,
		DialTLS: func(_ string, _ string, _ *tls.Config) (net.Conn, error) {
			return clientConn, nil
		},
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body := make([]byte, 5)
	_, err = io.ReadFull(resp.Body, body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))
	_ = resp.Body.Close()

	require.NoError(t, <-upstreamErr)

	_ = clientConn.Close()

	select {
	case err := <-serveErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine.Serve did not return")
	}

	require.EqualValues(t, 0, engine.Stats().ActiveStreams())
}
