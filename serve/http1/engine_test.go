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

package http1_test

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/serve/http1"
	"github.com/stretchr/testify/require"
)

func TestEngineForwardsRequestAndResponse(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	upstreamClient, upstreamServer := net.Pipe()

	engine := http1.New(http1.Config{
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

	_, err := clientConn.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(clientConn), nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body := make([]byte, 5)
	_, err = resp.Body.Read(body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))

	require.NoError(t, <-upstreamErr)

	select {
	case err := <-serveErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine.Serve did not return")
	}
}
