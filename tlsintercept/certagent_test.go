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

package tlsintercept_test

import (
	"context"
	"crypto/tls"
	"testing"

	"github.com/nabbar/proxycore/tlsintercept"
	"github.com/stretchr/testify/require"
)

type countingAgent struct {
	calls int
}

func (a *countingAgent) Issue(_ context.Context, req tlsintercept.IssueRequest) (tlsintercept.Bundle, error) {
	a.calls++
	return tlsintercept.Bundle{Leaf: tls.Certificate{}, OCSP: []byte(req.SNI)}, nil
}

func TestAgentCacheReusesBundlePerSNI(t *testing.T) {
	agent := &countingAgent{}
	cache := tlsintercept.NewAgentCache(agent, 0)

	_, err := cache.Issue(context.Background(), tlsintercept.IssueRequest{SNI: "example.test"})
	require.NoError(t, err)
	_, err = cache.Issue(context.Background(), tlsintercept.IssueRequest{SNI: "example.test"})
	require.NoError(t, err)

	require.Equal(t, 1, agent.calls)
}

func TestAgentCacheIssuesSeparatelyPerSNI(t *testing.T) {
	agent := &countingAgent{}
	cache := tlsintercept.NewAgentCache(agent, 0)

	_, _ = cache.Issue(context.Background(), tlsintercept.IssueRequest{SNI: "a.test"})
	_, _ = cache.Issue(context.Background(), tlsintercept.IssueRequest{SNI: "b.test"})

	require.Equal(t, 2, agent.calls)
}

func TestAgentCacheForgetForcesReissue(t *testing.T) {
	agent := &countingAgent{}
	cache := tlsintercept.NewAgentCache(agent, 0)

	_, _ = cache.Issue(context.Background(), tlsintercept.IssueRequest{SNI: "example.test"})
	cache.Forget("example.test")
	_, _ = cache.Issue(context.Background(), tlsintercept.IssueRequest{SNI: "example.test"})

	require.Equal(t, 2, agent.calls)
}
