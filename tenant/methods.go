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

// Package tenant identifies which configured tenant a request belongs to,
// trying a priority-ordered list of identification methods (IP range, SSO
// header, domain match, query param, certificate subject/issuer) per
// tenant, falling back to a global methods list and then a default
// tenant.
package tenant

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// RequestContext carries everything an identification Method might match
// against. Callers populate only the fields relevant to the protocol at
// hand; the zero value of an unset field simply never matches.
type RequestContext struct {
	ClientIP    net.IP
	Headers     http.Header
	SNI         string
	Query       url.Values
	CertSubject string
	CertIssuer  string
}

// Method identifies one request-matching rule. Priority orders methods
// within a tenant's list (and within the global list); higher values are
// tried first. Confidence is returned in [0,1] on a match.
type Method interface {
	Priority() int
	Match(ctx RequestContext) (confidence float64, ok bool)
}

// IPRangeMethod matches when ctx.ClientIP falls within any configured
// CIDR.
type IPRangeMethod struct {
	Pri        int
	Confidence float64
	Ranges     []*net.IPNet
}

func (m IPRangeMethod) Priority() int { return m.Pri }

func (m IPRangeMethod) Match(ctx RequestContext) (float64, bool) {
	if ctx.ClientIP == nil {
		return 0, false
	}
	for _, n := range m.Ranges {
		if n.Contains(ctx.ClientIP) {
			return m.Confidence, true
		}
	}
	return 0, false
}

// SSOHeaderMethod matches when an HTTP header equals an expected value,
// optionally case-insensitively.
type SSOHeaderMethod struct {
	Pri           int
	Confidence    float64
	HeaderName    string
	ExpectedValue string
	CaseSensitive bool
}

func (m SSOHeaderMethod) Priority() int { return m.Pri }

func (m SSOHeaderMethod) Match(ctx RequestContext) (float64, bool) {
	if ctx.Headers == nil {
		return 0, false
	}
	v := ctx.Headers.Get(m.HeaderName)
	if v == "" {
		return 0, false
	}
	if m.CaseSensitive {
		if v == m.ExpectedValue {
			return m.Confidence, true
		}
		return 0, false
	}
	if strings.EqualFold(v, m.ExpectedValue) {
		return m.Confidence, true
	}
	return 0, false
}

// DomainMatchMethod matches ctx.SNI against an exact domain or a
// single-level wildcard ("*.example.com").
type DomainMatchMethod struct {
	Pri        int
	Confidence float64
	Domain     string
}

func (m DomainMatchMethod) Priority() int { return m.Pri }

func (m DomainMatchMethod) Match(ctx RequestContext) (float64, bool) {
	if ctx.SNI == "" {
		return 0, false
	}
	if strings.EqualFold(ctx.SNI, m.Domain) {
		return m.Confidence, true
	}
	if strings.HasPrefix(m.Domain, "*.") {
		suffix := m.Domain[1:] // ".example.com"
		if strings.HasSuffix(strings.ToLower(ctx.SNI), strings.ToLower(suffix)) &&
			len(ctx.SNI) > len(suffix) {
			return m.Confidence, true
		}
	}
	return 0, false
}

// QueryParamMethod matches when a query parameter equals an expected
// value.
type QueryParamMethod struct {
	Pri           int
	Confidence    float64
	ParamName     string
	ExpectedValue string
}

func (m QueryParamMethod) Priority() int { return m.Pri }

func (m QueryParamMethod) Match(ctx RequestContext) (float64, bool) {
	if ctx.Query == nil {
		return 0, false
	}
	if ctx.Query.Get(m.ParamName) == m.ExpectedValue {
		return m.Confidence, true
	}
	return 0, false
}

// CertSubjectMethod matches a client certificate's subject and/or issuer
// common name. A field left blank is not checked.
type CertSubjectMethod struct {
	Pri             int
	Confidence      float64
	ExpectedSubject string
	ExpectedIssuer  string
}

func (m CertSubjectMethod) Priority() int { return m.Pri }

func (m CertSubjectMethod) Match(ctx RequestContext) (float64, bool) {
	if m.ExpectedSubject != "" && ctx.CertSubject != m.ExpectedSubject {
		return 0, false
	}
	if m.ExpectedIssuer != "" && ctx.CertIssuer != m.ExpectedIssuer {
		return 0, false
	}
	if m.ExpectedSubject == "" && m.ExpectedIssuer == "" {
		return 0, false
	}
	return m.Confidence, true
}

// sortByPriorityDesc returns methods ordered by descending Priority, a
// stable copy that never mutates the caller's slice.
func sortByPriorityDesc(methods []Method) []Method {
	out := make([]Method, len(methods))
	copy(out, methods)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority() > out[j-1].Priority(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
