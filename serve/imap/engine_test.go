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

package imap_test

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"testing"

	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/serve/imap"
	"github.com/stretchr/testify/require"
)

func TestEngineFiltersGreetingCapabilities(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	upstreamClient, upstreamServer := net.Pipe()

	engine := imap.New(imap.Config{
		Dial: func(_ context.Context) (net.Conn, error) {
			return upstreamClient, nil
		},
	})

	notes := netaddr.NewServerTaskNotes(clientConn.RemoteAddr(), serverConn.LocalAddr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- engine.Serve(context.Background(), serverConn, &notes, nil)
	}()

	upstreamR := textproto.NewReader(bufio.NewReader(upstreamServer))
	upstreamW := bufio.NewWriter(upstreamServer)
	_, err := upstreamW.WriteString("* OK [CAPABILITY IMAP4rev1 STARTTLS IDLE] example.test ready\r\n")
	require.NoError(t, err)
	require.NoError(t, upstreamW.Flush())

	cr := textproto.NewReader(bufio.NewReader(clientConn))
	line, err := cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "* OK [CAPABILITY IMAP4rev1 STARTTLS] example.test ready", line)

	cw := bufio.NewWriter(clientConn)
	_, err = cw.WriteString("a1 LOGOUT\r\n")
	require.NoError(t, err)
	require.NoError(t, cw.Flush())

	line, err = upstreamR.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "a1 LOGOUT", line)

	_, err = upstreamW.WriteString("* BYE closing\r\n")
	require.NoError(t, err)
	require.NoError(t, upstreamW.Flush())
	_, err = upstreamW.WriteString("a1 OK LOGOUT completed\r\n")
	require.NoError(t, err)
	require.NoError(t, upstreamW.Flush())

	line, err = cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "* BYE closing", line)
	line, err = cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "a1 OK LOGOUT completed", line)

	require.NoError(t, <-serveErr)
}
