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

package ftpconnect_test

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"strings"
	"testing"

	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/escaper"
	"github.com/nabbar/proxycore/ftpconnect"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
	"github.com/stretchr/testify/require"
)

// pipeEscaper is a stub escaper.Escaper whose TCPSetupConnection hands
// back one pre-wired end of a net.Pipe instead of dialing anything,
// standing in for a real routed connection.
type pipeEscaper struct {
	clientEnd net.Conn
}

func (p *pipeEscaper) Name() string       { return "stub" }
func (p *pipeEscaper) DependsOn() []string { return nil }

func (p *pipeEscaper) TCPSetupConnection(context.Context, netaddr.UpstreamAddr, *netaddr.TCPConnectTaskNotes, *stat.EscaperStats, *audit.Context) (net.Conn, error) {
	return p.clientEnd, nil
}
func (p *pipeEscaper) TLSSetupConnection(context.Context, netaddr.UpstreamAddr, *tls.Config, *netaddr.TCPConnectTaskNotes, *stat.EscaperStats, *audit.Context) (net.Conn, error) {
	return nil, nil
}
func (p *pipeEscaper) UDPSetupConnection(context.Context, netaddr.UpstreamAddr, *netaddr.UDPConnectTaskNotes, *stat.EscaperStats, *audit.Context) (net.PacketConn, error) {
	return nil, nil
}
func (p *pipeEscaper) UDPSetupRelay(context.Context, *netaddr.UDPConnectTaskNotes, *stat.EscaperStats, *audit.Context) (net.PacketConn, net.Addr, error) {
	return nil, nil, nil
}
func (p *pipeEscaper) NewHTTPForwardContext(context.Context, *audit.Context) (escaper.ForwardContext, error) {
	return nil, nil
}

// fakeFTPServer speaks just enough FTP control protocol to get a client
// through greeting + USER/PASS login.
func fakeFTPServer(t *testing.T, conn net.Conn) {
	t.Helper()
	w := bufio.NewWriter(conn)
	r := bufio.NewReader(conn)

	writeLine := func(s string) {
		_, err := w.WriteString(s + "\r\n")
		require.NoError(t, err)
		require.NoError(t, w.Flush())
	}

	writeLine("220 fake FTP ready")

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "USER"))
	writeLine("331 need password")

	line, err = r.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "PASS"))
	writeLine("230 logged in")
}

func TestContextDialRoutesThroughEscaperAndLogsIn(t *testing.T) {
	client, server := net.Pipe()
	go fakeFTPServer(t, server)
	defer client.Close()
	defer server.Close()

	esc := &pipeEscaper{clientEnd: client}
	fc := ftpconnect.New(esc, nil, nil)

	target := netaddr.UpstreamAddr{Host: netaddr.Host{Kind: netaddr.HostDomain, Domain: "ftp.example.test"}, Port: 21}
	conn, err := fc.Dial(context.Background(), target, nil, "alice", "s3cr3t")
	require.NoError(t, err)
	require.NotNil(t, conn)
}
