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

package smtp_test

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"testing"

	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/serve/smtp"
	"github.com/stretchr/testify/require"
)

// fakeUpstream drives a minimal scripted SMTP server: a greeting, an EHLO
// reply advertising a capability this engine's default config suppresses,
// and a MAIL/RCPT/DATA transaction ending in QUIT.
func fakeUpstream(t *testing.T, conn net.Conn) {
	t.Helper()
	r := textproto.NewReader(bufio.NewReader(conn))
	w := bufio.NewWriter(conn)

	writeLine := func(s string) {
		_, err := w.WriteString(s + "\r\n")
		require.NoError(t, err)
		require.NoError(t, w.Flush())
	}

	writeLine("220 mx.example.test ESMTP")

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "EHLO client.example.test", line)
	writeLine("250-mx.example.test greets you")
	writeLine("250-CHUNKING")
	writeLine("250 8BITMIME")

	line, err = r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "MAIL FROM:<a@example.test>", line)
	writeLine("250 2.1.0 OK")

	line, err = r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "RCPT TO:<b@example.test>", line)
	writeLine("250 2.1.5 OK")

	line, err = r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "DATA", line)
	writeLine("354 go ahead")

	body, err := r.DotReader()
	require.NoError(t, err)
	buf := make([]byte, 512)
	n, _ := body.Read(buf)
	require.Contains(t, string(buf[:n]), "hello")
	writeLine("250 2.0.0 queued")

	line, err = r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "QUIT", line)
	writeLine("221 2.0.0 bye")
}

func TestEngineRelaysTransactionAndFiltersCapabilities(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	upstreamClient, upstreamServer := net.Pipe()

	engine := smtp.New(smtp.Config{
		Dial: func(_ context.Context) (net.Conn, error) {
			return upstreamClient, nil
		},
	})

	notes := netaddr.NewServerTaskNotes(clientConn.RemoteAddr(), serverConn.LocalAddr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- engine.Serve(context.Background(), serverConn, &notes, nil)
	}()

	go fakeUpstream(t, upstreamServer)

	cr := textproto.NewReader(bufio.NewReader(clientConn))
	cw := bufio.NewWriter(clientConn)
	send := func(s string) {
		_, err := cw.WriteString(s + "\r\n")
		require.NoError(t, err)
		require.NoError(t, cw.Flush())
	}

	line, err := cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "220 mx.example.test ESMTP", line)

	send("EHLO client.example.test")
	line, err = cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "250-mx.example.test greets you", line)
	line, err = cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "250 8BITMIME", line) // CHUNKING suppressed, 8BITMIME now terminal

	send("MAIL FROM:<a@example.test>")
	line, err = cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "250 2.1.0 OK", line)

	send("RCPT TO:<b@example.test>")
	line, err = cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "250 2.1.5 OK", line)

	send("DATA")
	line, err = cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "354 go ahead", line)

	dw := textproto.NewWriter(cw).DotWriter()
	_, err = dw.Write([]byte("hello\r\n"))
	require.NoError(t, err)
	require.NoError(t, dw.Close())

	line, err = cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "250 2.0.0 queued", line)

	send("QUIT")
	line, err = cr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "221 2.0.0 bye", line)

	require.NoError(t, <-serveErr)
}
