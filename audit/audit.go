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

// Package audit binds together everything that turns a plain proxied task
// into an inspected one: the certificate agent used for TLS interception,
// the ICAP REQMOD/RESPMOD adapters content is run through, the DPI portmap
// consulted to classify a re-terminated stream, and a policy function that
// decides per task whether any of that applies at all. A Handle is the
// process-wide, rarely-changing binding; a Context is the per-task handle
// to it, created once a task starts and kept alive until every job it
// spawned against the handle's adapters has finished -- deliberately the
// opposite lifetime of the task's own goroutine, which may return long
// before a spawned ICAP exchange or push-promise adaptation completes.
package audit

import (
	"crypto/tls"
	"sync"
	"sync/atomic"

	"github.com/nabbar/proxycore/inspect"
	"github.com/nabbar/proxycore/serve"
	"github.com/nabbar/proxycore/tlsintercept"
)

// TaskInfo is the subset of a task's identity a Policy needs to decide
// whether to intercept it. It intentionally does not depend on
// netaddr.ServerTaskNotes: netaddr holds an *audit.Context field, so the
// dependency has to point this way to avoid a cycle.
type TaskInfo struct {
	TenantID   string
	Username   string
	ClientAddr string
	SNI        string
}

// Decision is what a Policy returns for a given task: whether to intercept
// the TLS connection at all, and which ICAP direction(s) to route traffic
// through once it is.
type Decision struct {
	Intercept   bool
	AdaptREQMOD bool
	AdaptRESPMOD bool
}

// Policy decides, from a task's identity, whether and how it is audited.
type Policy func(TaskInfo) Decision

// AllowAll is the default Policy: intercept and adapt everything a Handle
// is configured to support.
func AllowAll(TaskInfo) Decision {
	return Decision{Intercept: true, AdaptREQMOD: true, AdaptRESPMOD: true}
}

// Handle is the process-wide binding an auditor config produces: a
// certificate agent, a default interception TLS config, a DPI portmap, the
// REQMOD/RESPMOD adapters content is run through, and the policy deciding
// per task whether any of it applies. Any field left nil or zero disables
// that capability; a Context's accessors then return
// ErrNoAdapter/ErrNoHandle, never a nil pointer dereference.
type Handle struct {
	Name      string
	CertAgent tlsintercept.CertAgent
	TLSConfig *tls.Config
	Portmap   *inspect.Portmap
	REQMOD    serve.Adapter
	RESPMOD   serve.Adapter
	Policy    Policy
}

// NewHandle builds a Handle, defaulting Policy to AllowAll when unset.
func NewHandle(name string, certAgent tlsintercept.CertAgent, tlsCfg *tls.Config, portmap *inspect.Portmap, reqmod, respmod serve.Adapter, policy Policy) *Handle {
	if policy == nil {
		policy = AllowAll
	}
	return &Handle{
		Name:      name,
		CertAgent: certAgent,
		TLSConfig: tlsCfg,
		Portmap:   portmap,
		REQMOD:    reqmod,
		RESPMOD:   respmod,
		Policy:    policy,
	}
}

// NewContext starts a per-task Context bound to h, evaluating the policy
// for info once up front; escapers and interception engines read Decide()
// rather than re-running the policy per call.
func (h *Handle) NewContext(info TaskInfo) *Context {
	var decision Decision
	if h != nil && h.Policy != nil {
		decision = h.Policy(info)
	}
	return &Context{handle: h, info: info, decision: decision}
}

// Context is attached to every task that may be intercepted. It must
// outlive any adaptation job spawned against it: Spawn tracks each job in
// an internal WaitGroup, and Close blocks until all of them have returned
// before releasing the underlying Handle, mirroring icap's errgroup-driven
// bidirectional transfer but at the task-lifetime granularity instead of a
// single exchange.
type Context struct {
	handle   *Handle
	info     TaskInfo
	decision Decision

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Decide returns the policy decision computed when this Context was
// created.
func (c *Context) Decide() Decision {
	if c == nil {
		return Decision{}
	}
	return c.decision
}

// Info returns the task identity this Context was built from.
func (c *Context) Info() TaskInfo {
	if c == nil {
		return TaskInfo{}
	}
	return c.info
}

// CertAgent returns the bound certificate agent, if any.
func (c *Context) CertAgent() (tlsintercept.CertAgent, error) {
	if c == nil || c.handle == nil {
		return nil, ErrNoHandle.Error(nil)
	}
	if c.handle.CertAgent == nil {
		return nil, ErrNoHandle.Error(nil)
	}
	return c.handle.CertAgent, nil
}

// TLSConfig returns the bound default interception TLS config, or nil.
func (c *Context) TLSConfig() *tls.Config {
	if c == nil || c.handle == nil {
		return nil
	}
	return c.handle.TLSConfig
}

// Portmap returns the bound DPI portmap, or nil.
func (c *Context) Portmap() *inspect.Portmap {
	if c == nil || c.handle == nil {
		return nil
	}
	return c.handle.Portmap
}

// REQMODAdapter returns the bound REQMOD client if the policy decision for
// this task allows request adaptation.
func (c *Context) REQMODAdapter() (serve.Adapter, error) {
	if c == nil || c.handle == nil {
		return nil, ErrNoHandle.Error(nil)
	}
	if !c.decision.AdaptREQMOD || c.handle.REQMOD == nil {
		return nil, ErrNoAdapter.Error(nil)
	}
	return c.handle.REQMOD, nil
}

// RESPMODAdapter mirrors REQMODAdapter for the response direction.
func (c *Context) RESPMODAdapter() (serve.Adapter, error) {
	if c == nil || c.handle == nil {
		return nil, ErrNoHandle.Error(nil)
	}
	if !c.decision.AdaptRESPMOD || c.handle.RESPMOD == nil {
		return nil, ErrNoAdapter.Error(nil)
	}
	return c.handle.RESPMOD, nil
}

// Spawn runs fn in its own goroutine, tracked so Close cannot return until
// fn has. It returns ErrContextClosed once Close has been called, so a
// caller racing task teardown never leaks a goroutine Close has already
// stopped waiting for.
func (c *Context) Spawn(fn func()) error {
	if c == nil {
		return ErrNoHandle.Error(nil)
	}
	if c.closed.Load() {
		return ErrContextClosed.Error(nil)
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
	return nil
}

// Close forbids further Spawn calls and blocks until every job already
// spawned against this Context has returned. Callers that created the
// Context around a task's lifetime should defer Close, not drop the
// pointer, so a push-promise adaptation kicked off right before the task's
// main goroutine returns is not abandoned mid-exchange.
func (c *Context) Close() {
	if c == nil {
		return
	}
	c.closed.Store(true)
	c.wg.Wait()
}
