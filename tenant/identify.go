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
	"fmt"
	"time"
)

// Result is the outcome of a successful identification.
type Result struct {
	Tenant     string
	Confidence float64
}

// taggedMethod pairs a per-tenant Method with the tenant it was
// configured under, so the cross-tenant priority ordering can still
// report which tenant matched.
type taggedMethod struct {
	tenant string
	method Method
}

// Identify flattens every registered tenant's methods into one list,
// tried in descending priority order across all tenants at once (the
// registry-wide highest-priority match wins, per §4.8's "try configured
// methods in descending priority" rule applied across the whole
// registry), then falls back to the global methods list, then the
// configured default tenant. Every attempt is recorded against the
// matching tenant's Stats (or, on a default-tenant fallback, that
// tenant's Stats if it's registered).
func (r *Registry) Identify(ctx RequestContext) (Result, bool) {
	start := time.Now()

	var all []taggedMethod
	for _, name := range r.tenants.Names() {
		e, ok := r.tenants.Get(name)
		if !ok {
			continue
		}
		for _, m := range e.methods {
			all = append(all, taggedMethod{tenant: name, method: m})
		}
	}
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].method.Priority() > all[j-1].method.Priority(); j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	var (
		result Result
		ok     bool
		kind   string
	)
	for _, tm := range all {
		conf, matched := tm.method.Match(ctx)
		if matched {
			result = Result{Tenant: tm.tenant, Confidence: conf}
			ok = true
			kind = methodKind(tm.method)
			break
		}
	}

	if !ok {
		for _, m := range r.global {
			conf, matched := m.Match(ctx)
			if matched {
				result = Result{Tenant: r.deflt, Confidence: conf}
				ok = true
				kind = methodKind(m)
				break
			}
		}
	}

	if !ok && r.deflt != "" {
		result = Result{Tenant: r.deflt, Confidence: 0}
		ok = true
		kind = "default"
	}

	if e, found := r.tenants.Get(result.Tenant); found {
		e.stats.Record(ok, kind, time.Since(start))
	}

	return result, ok
}

func methodKind(m Method) string {
	return fmt.Sprintf("%T", m)
}
