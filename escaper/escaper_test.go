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

package escaper_test

import (
	"context"
	"crypto/tls"
	"net"
	"testing"

	"github.com/nabbar/proxycore/audit"
	"github.com/nabbar/proxycore/escaper"
	"github.com/nabbar/proxycore/netaddr"
	"github.com/nabbar/proxycore/stat"
	"github.com/stretchr/testify/require"
)

// stubEscaper is a minimal Escaper used only to exercise Registry/Setup
// dependency-ordering and acyclicity checks without any real networking.
type stubEscaper struct {
	name string
	deps []string
}

func (s *stubEscaper) Name() string        { return s.name }
func (s *stubEscaper) DependsOn() []string { return s.deps }
func (s *stubEscaper) TCPSetupConnection(context.Context, netaddr.UpstreamAddr, *netaddr.TCPConnectTaskNotes, *stat.EscaperStats, *audit.Context) (net.Conn, error) {
	return nil, nil
}
func (s *stubEscaper) TLSSetupConnection(context.Context, netaddr.UpstreamAddr, *tls.Config, *netaddr.TCPConnectTaskNotes, *stat.EscaperStats, *audit.Context) (net.Conn, error) {
	return nil, nil
}
func (s *stubEscaper) UDPSetupConnection(context.Context, netaddr.UpstreamAddr, *netaddr.UDPConnectTaskNotes, *stat.EscaperStats, *audit.Context) (net.PacketConn, error) {
	return nil, nil
}
func (s *stubEscaper) UDPSetupRelay(context.Context, *netaddr.UDPConnectTaskNotes, *stat.EscaperStats, *audit.Context) (net.PacketConn, net.Addr, error) {
	return nil, nil, nil
}
func (s *stubEscaper) NewHTTPForwardContext(context.Context, *audit.Context) (escaper.ForwardContext, error) {
	return nil, nil
}

type stubBuilder struct {
	name string
	deps []string
}

func (b *stubBuilder) DependsOn() []string { return b.deps }
func (b *stubBuilder) Build(deps *escaper.Registry) (escaper.Escaper, error) {
	return &stubEscaper{name: b.name, deps: b.deps}, nil
}

func TestRegistryCheckAcyclicDetectsCycle(t *testing.T) {
	r := escaper.NewRegistry()
	r.Add(&stubEscaper{name: "a", deps: []string{"b"}})
	r.Add(&stubEscaper{name: "b", deps: []string{"c"}})
	r.Add(&stubEscaper{name: "c", deps: []string{"a"}})

	cycle := r.CheckAcyclic()
	require.NotEmpty(t, cycle)
}

func TestRegistryCheckAcyclicAcceptsDAG(t *testing.T) {
	r := escaper.NewRegistry()
	r.Add(&stubEscaper{name: "leaf"})
	r.Add(&stubEscaper{name: "mid", deps: []string{"leaf"}})
	r.Add(&stubEscaper{name: "top", deps: []string{"mid", "leaf"}})

	require.Nil(t, r.CheckAcyclic())
}

func TestSetupBuildsInDependencyOrder(t *testing.T) {
	cfgs := map[string]escaper.Builder{
		"top":  &stubBuilder{name: "top", deps: []string{"mid"}},
		"mid":  &stubBuilder{name: "mid", deps: []string{"leaf"}},
		"leaf": &stubBuilder{name: "leaf"},
	}

	reg, err := escaper.Setup(cfgs)
	require.NoError(t, err)

	for _, name := range []string{"top", "mid", "leaf"} {
		_, ok := reg.Get(name)
		require.True(t, ok, "expected %s to be registered", name)
	}
}

func TestSetupRejectsCycle(t *testing.T) {
	cfgs := map[string]escaper.Builder{
		"a": &stubBuilder{name: "a", deps: []string{"b"}},
		"b": &stubBuilder{name: "b", deps: []string{"a"}},
	}

	_, err := escaper.Setup(cfgs)
	require.Error(t, err)
}
