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

// Package tlsintercept re-terminates a TLS connection on the fly: it asks a
// certificate agent for a leaf matching the client's SNI, completes the
// server-side handshake with that leaf, and drives a parallel client-side
// handshake to the real upstream, so the two plaintext streams can be
// handed back to the inspector for nested classification.
package tlsintercept

import (
	"context"
	"crypto/tls"
	"sync"
	"time"
)

// IssueRequest carries what a certificate agent needs to mint (or look up)
// a leaf for an intercepted connection.
type IssueRequest struct {
	SNI        string
	ClientAddr string
	ALPN       []string
}

// Bundle is a leaf certificate plus its stapled OCSP response, as returned
// by a CertAgent.
type Bundle struct {
	Leaf tls.Certificate
	OCSP []byte
}

// CertAgent mints or looks up a leaf certificate for a given SNI. The
// in-memory stub implementation lives in package certagent; a production
// deployment would instead call out to an external PKI service, which is
// exactly why this core only depends on the interface.
type CertAgent interface {
	Issue(ctx context.Context, req IssueRequest) (Bundle, error)
}

// AgentCache wraps a CertAgent with a per-SNI cache so repeated connections
// to the same intercepted name don't re-issue a leaf on every handshake.
type AgentCache struct {
	agent CertAgent
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	bundle    Bundle
	expiresAt time.Time
}

// NewAgentCache wraps agent with an SNI-keyed cache; a zero ttl disables
// expiry and entries are kept until the process restarts.
func NewAgentCache(agent CertAgent, ttl time.Duration) *AgentCache {
	return &AgentCache{agent: agent, ttl: ttl, entries: make(map[string]cacheEntry)}
}

// Issue returns a cached bundle for req.SNI when one is present and not
// expired, otherwise it calls the wrapped agent and caches the result.
func (c *AgentCache) Issue(ctx context.Context, req IssueRequest) (Bundle, error) {
	if b, ok := c.lookup(req.SNI); ok {
		return b, nil
	}

	b, err := c.agent.Issue(ctx, req)
	if err != nil {
		return Bundle{}, ErrCertAgentFailed.Error(err)
	}

	c.store(req.SNI, b)
	return b, nil
}

func (c *AgentCache) lookup(sni string) (Bundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[sni]
	if !ok {
		return Bundle{}, false
	}
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		return Bundle{}, false
	}
	return e.bundle, true
}

func (c *AgentCache) store(sni string, b Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if c.ttl > 0 {
		exp = time.Now().Add(c.ttl)
	}
	c.entries[sni] = cacheEntry{bundle: b, expiresAt: exp}
}

// Forget evicts any cached bundle for sni, forcing the next Issue to call
// the wrapped agent again; used when an operator revokes an intercepted
// name's leaf out of band.
func (c *AgentCache) Forget(sni string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sni)
}
