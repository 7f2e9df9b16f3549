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

package netaddr_test

import (
	"testing"

	"github.com/nabbar/proxycore/netaddr"
	"github.com/stretchr/testify/require"
)

func TestNewNodeNameRejectsEmpty(t *testing.T) {
	_, err := netaddr.NewNodeName("")
	require.Error(t, err)
}

func TestNewNodeNameInterns(t *testing.T) {
	a, err := netaddr.NewNodeName("escaper-a")
	require.NoError(t, err)

	b, err := netaddr.NewNodeName("escaper-a")
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Equal(t, "escaper-a", a.String())
}

func TestResolveDotLocalhostMapsToLoopback(t *testing.T) {
	addr := netaddr.UpstreamAddr{Host: netaddr.Host{Kind: netaddr.HostDomain, Domain: "svc.localhost"}, Port: 443}
	resolved := netaddr.ResolveDotLocalhost(addr)

	require.Equal(t, netaddr.HostIP, resolved.Host.Kind)
	require.Equal(t, "127.0.0.1", resolved.Host.IP)
}

func TestResolveDotLocalhostLeavesOthersUnchanged(t *testing.T) {
	addr := netaddr.UpstreamAddr{Host: netaddr.Host{Kind: netaddr.HostDomain, Domain: "example.test"}, Port: 443}
	resolved := netaddr.ResolveDotLocalhost(addr)

	require.Equal(t, "example.test", resolved.Host.Domain)
}
