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

package tenant_test

import (
	"net"
	"net/http"
	"testing"

	"github.com/nabbar/proxycore/tenant"
	"github.com/stretchr/testify/require"
)

func TestIdentifyPrefersHigherPriorityAcrossTenants(t *testing.T) {
	r := tenant.New(nil, "")

	_, cidr, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)

	require.NoError(t, r.AddTenant("low-priority-tenant", []tenant.Method{
		tenant.DomainMatchMethod{Pri: 1, Confidence: 0.5, Domain: "example.test"},
	}, false))
	require.NoError(t, r.AddTenant("high-priority-tenant", []tenant.Method{
		tenant.IPRangeMethod{Pri: 10, Confidence: 0.9, Ranges: []*net.IPNet{cidr}},
	}, false))

	res, ok := r.Identify(tenant.RequestContext{
		ClientIP: net.ParseIP("10.1.2.3"),
		SNI:      "example.test",
	})
	require.True(t, ok)
	require.Equal(t, "high-priority-tenant", res.Tenant)
	require.Equal(t, 0.9, res.Confidence)

	stats := r.Stats("high-priority-tenant")
	require.NotNil(t, stats)
	require.EqualValues(t, 1, stats.Attempts.Load())
	require.EqualValues(t, 1, stats.Successes.Load())
}

func TestIdentifyFallsBackToDefaultTenant(t *testing.T) {
	r := tenant.New(nil, "default-tenant")
	require.NoError(t, r.AddTenant("default-tenant", nil, false))

	res, ok := r.Identify(tenant.RequestContext{Headers: http.Header{}})
	require.True(t, ok)
	require.Equal(t, "default-tenant", res.Tenant)
	require.Zero(t, res.Confidence)
}

func TestIdentifyNoMatchNoDefault(t *testing.T) {
	r := tenant.New(nil, "")
	require.NoError(t, r.AddTenant("some-tenant", []tenant.Method{
		tenant.DomainMatchMethod{Pri: 1, Confidence: 0.5, Domain: "example.test"},
	}, false))

	_, ok := r.Identify(tenant.RequestContext{SNI: "other.test"})
	require.False(t, ok)
}

func TestDomainMatchWildcard(t *testing.T) {
	m := tenant.DomainMatchMethod{Pri: 1, Confidence: 1, Domain: "*.example.test"}

	conf, ok := m.Match(tenant.RequestContext{SNI: "sub.example.test"})
	require.True(t, ok)
	require.Equal(t, 1.0, conf)

	_, ok = m.Match(tenant.RequestContext{SNI: "example.test"})
	require.False(t, ok)
}
