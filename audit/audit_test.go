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

package audit_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nabbar/proxycore/audit"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct{}

func (stubAdapter) REQMOD(ctx context.Context, req *http.Request) (*http.Request, error) {
	return req, nil
}
func (stubAdapter) RESPMOD(ctx context.Context, req *http.Request, resp *http.Response) (*http.Response, error) {
	return resp, nil
}

func TestContextWithoutHandleReturnsErrors(t *testing.T) {
	h := audit.NewHandle("empty", nil, nil, nil, nil, nil, nil)
	c := h.NewContext(audit.TaskInfo{TenantID: "t1"})

	_, err := c.CertAgent()
	require.Error(t, err)
	_, err = c.REQMODAdapter()
	require.Error(t, err)
}

func TestContextExposesConfiguredAdapters(t *testing.T) {
	h := audit.NewHandle("full", nil, nil, nil, stubAdapter{}, stubAdapter{}, audit.AllowAll)
	c := h.NewContext(audit.TaskInfo{TenantID: "t1"})

	a, err := c.REQMODAdapter()
	require.NoError(t, err)
	require.NotNil(t, a)

	b, err := c.RESPMODAdapter()
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestPolicyDecisionGatesAdapterAccess(t *testing.T) {
	deny := func(audit.TaskInfo) audit.Decision { return audit.Decision{} }
	h := audit.NewHandle("gated", nil, nil, nil, stubAdapter{}, stubAdapter{}, deny)
	c := h.NewContext(audit.TaskInfo{TenantID: "t1"})

	_, err := c.REQMODAdapter()
	require.Error(t, err)
}

func TestCloseWaitsForSpawnedJobs(t *testing.T) {
	h := audit.NewHandle("jobs", nil, nil, nil, nil, nil, nil)
	c := h.NewContext(audit.TaskInfo{})

	var done atomic.Bool
	require.NoError(t, c.Spawn(func() {
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
	}))

	c.Close()
	require.True(t, done.Load())
}

func TestSpawnAfterCloseFails(t *testing.T) {
	h := audit.NewHandle("jobs", nil, nil, nil, nil, nil, nil)
	c := h.NewContext(audit.TaskInfo{})
	c.Close()

	err := c.Spawn(func() {})
	require.Error(t, err)
}
