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

package frontend_test

import (
	"bufio"
	"context"
	"net"
	"testing"

	"github.com/nabbar/proxycore/inspect"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/serve/frontend"
	"github.com/nabbar/proxycore/stat"
	"github.com/nabbar/proxycore/tenant"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	called   chan struct{}
	gotLine  string
	gotNotes *netaddr.ServerTaskNotes
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{called: make(chan struct{})}
}

func (h *fakeHandler) Serve(_ context.Context, conn net.Conn, notes *netaddr.ServerTaskNotes, _ *stat.ServerStats) error {
	line, _ := bufio.NewReader(conn).ReadString('\n')
	h.gotLine = line
	h.gotNotes = notes
	close(h.called)
	return nil
}

func TestAcceptClassifiesAndPreservesPeekedBytes(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	h := newFakeHandler()
	f := frontend.New(frontend.Config{
		Handlers: map[inspect.Protocol]frontend.Handler{
			inspect.ProtocolHTTP1: h,
		},
	})

	go func() {
		_, _ = clientConn.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()

	acceptErr := make(chan error, 1)
	go func() { acceptErr <- f.Accept(context.Background(), serverConn) }()

	select {
	case <-h.called:
	case err := <-acceptErr:
		t.Fatalf("Accept returned before handler ran: %v", err)
	}

	require.Equal(t, "GET /hello HTTP/1.1\r\n", h.gotLine)
	require.NoError(t, <-acceptErr)
}

func TestAcceptUnwrapsProxyProtocolV1(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	h := newFakeHandler()
	f := frontend.New(frontend.Config{
		Handlers: map[inspect.Protocol]frontend.Handler{
			inspect.ProtocolSMTPBanner: h,
		},
		TrustProxyProtocol: true,
	})

	go func() {
		_, _ = clientConn.Write([]byte(
			"PROXY TCP4 203.0.113.9 203.0.113.1 56324 443\r\n" +
				"220 smtp.example.test ESMTP ready\r\n",
		))
	}()

	acceptErr := make(chan error, 1)
	go func() { acceptErr <- f.Accept(context.Background(), serverConn) }()

	select {
	case <-h.called:
	case err := <-acceptErr:
		t.Fatalf("Accept returned before handler ran: %v", err)
	}

	require.NoError(t, <-acceptErr)
	require.Equal(t, "220 smtp.example.test ESMTP ready\r\n", h.gotLine)

	tcp, ok := h.gotNotes.ClientAddr.(*net.TCPAddr)
	require.True(t, ok)
	require.Equal(t, "203.0.113.9", tcp.IP.String())
	require.Equal(t, 56324, tcp.Port)
}

func TestAcceptDeniesWhenTenantRequiredAndUnmatched(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	_, cidr, err := net.ParseCIDR("198.51.100.0/24")
	require.NoError(t, err)

	reg := tenant.New(nil, "")
	require.NoError(t, reg.AddTenant("only-tenant", []tenant.Method{
		tenant.IPRangeMethod{Pri: 1, Confidence: 1, Ranges: []*net.IPNet{cidr}},
	}, false))

	h := newFakeHandler()
	f := frontend.New(frontend.Config{
		Handlers: map[inspect.Protocol]frontend.Handler{
			inspect.ProtocolHTTP1: h,
		},
		Tenants:       reg,
		RequireTenant: true,
	})

	go func() {
		_, _ = clientConn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()

	err = f.Accept(context.Background(), serverConn)
	require.Error(t, err)

	select {
	case <-h.called:
		t.Fatal("handler should not have been invoked for a denied tenant")
	default:
	}
}
