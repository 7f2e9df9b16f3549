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

// Package ctxreg gives process-wide collections (escapers, servers, auditors,
// tenants) a home that is never an ambient global: each lives in its own
// Registry with a documented init/teardown lifecycle and atomic reload.
package ctxreg

import "sync"

// Registry is a concurrency-safe name -> value map whose whole contents
// can be replaced atomically with Swap.
type Registry[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// New returns an empty Registry.
func New[V any]() *Registry[V] {
	return &Registry[V]{m: make(map[string]V)}
}

// Get returns the value stored under name, if any.
func (r *Registry[V]) Get(name string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[name]
	return v, ok
}

// Set stores v under name, replacing any previous value.
func (r *Registry[V]) Set(name string, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[name] = v
}

// Delete removes name from the registry.
func (r *Registry[V]) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, name)
}

// Names returns every currently registered name.
func (r *Registry[V]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	return out
}

// Swap atomically replaces the entire registry contents with next. Existing
// holders of values from the old map keep using them (Go maps are never
// mutated in place here); only new Get calls observe next.
func (r *Registry[V]) Swap(next map[string]V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = next
}

// Snapshot returns a shallow copy of the current contents, safe to range
// over without holding the registry lock.
func (r *Registry[V]) Snapshot() map[string]V {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]V, len(r.m))
	for k, v := range r.m {
		out[k] = v
	}
	return out
}
