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

package tenant

import (
	"github.com/nabbar/proxycore/ctxreg"
)

// entry holds one tenant's identification methods alongside its stats,
// kept together so Remove/Clear can't leave one without the other.
type entry struct {
	methods []Method
	stats   *Stats
}

// Registry holds every configured tenant's identification methods plus a
// global methods list consulted after all per-tenant methods fail, and a
// default tenant name returned when nothing matches at all.
type Registry struct {
	tenants *ctxreg.Registry[*entry]
	global  []Method
	deflt   string
}

// New returns an empty Registry. global is consulted, in priority order,
// after every per-tenant method across every tenant has been tried.
// deflt, if non-empty, is returned when nothing else matches.
func New(global []Method, deflt string) *Registry {
	return &Registry{
		tenants: ctxreg.New[*entry](),
		global:  sortByPriorityDesc(global),
		deflt:   deflt,
	}
}

// AddTenant registers methods under name, replacing any existing ones
// and resetting that tenant's stats. Returns ErrDuplicateTenant if
// replace is false and name is already registered.
func (r *Registry) AddTenant(name string, methods []Method, replace bool) error {
	if !replace {
		if _, ok := r.tenants.Get(name); ok {
			return ErrDuplicateTenant.Error()
		}
	}
	r.tenants.Set(name, &entry{methods: sortByPriorityDesc(methods), stats: NewStats()})
	return nil
}

// RemoveTenant deregisters name.
func (r *Registry) RemoveTenant(name string) {
	r.tenants.Delete(name)
}

// ClearTenant drops name's methods but keeps its stats, so a
// temporarily-unconfigured tenant's history isn't lost.
func (r *Registry) ClearTenant(name string) error {
	e, ok := r.tenants.Get(name)
	if !ok {
		return ErrUnknownTenant.Error()
	}
	e.methods = nil
	return nil
}

// ListTenants returns every registered tenant name.
func (r *Registry) ListTenants() []string {
	return r.tenants.Names()
}

// Stats returns name's identification statistics, or nil if name isn't
// registered.
func (r *Registry) Stats(name string) *Stats {
	e, ok := r.tenants.Get(name)
	if !ok {
		return nil
	}
	return e.stats
}
