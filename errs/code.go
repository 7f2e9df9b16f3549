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

package errs

import (
	"strconv"
	"strings"
	"sync"
)

// CodeError is a package-scoped numeric error code, grouped by subsystem
// through the Min* offsets below. Alongside the message it also carries
// Brief, a stable short label suitable for metrics tagging.
type CodeError uint16

// UnknownError is the zero value, used when no specific code applies.
const UnknownError CodeError = 0

// Subsystem offsets. Each owning package registers its own block of
// constants starting at one of these bases, partitioning the error space
// by package.
const (
	MinEscaper CodeError = (iota + 1) * 1000
	MinInspect
	MinTLSIntercept
	MinServeHTTP1
	MinServeHTTP2
	MinServeSMTP
	MinServeIMAP
	MinServeFrontend
	MinICAP
	MinKeyless
	MinIOExt
	MinTenant
	MinAudit
	MinConfig
	MinProxyProto
	MinFTPConnect

	MinAvailable = 20000
)

// messageFn renders a CodeError into a human message; briefFn renders the
// same code into the stable dotted label used for metrics and logs.
type messageFn func(CodeError) string
type briefFn func(CodeError) string

var (
	registryMu sync.RWMutex
	messages   = make(map[CodeError]messageFn)
	briefs     = make(map[CodeError]briefFn)
)

// RegisterTaxonomy associates a subsystem's base code with the functions
// that render its messages and brief labels. Each owning package calls this
// once from an init() func.
func RegisterTaxonomy(base CodeError, msg messageFn, brief briefFn) {
	registryMu.Lock()
	defer registryMu.Unlock()
	messages[base] = msg
	briefs[base] = brief
}

func baseOf(c CodeError) CodeError {
	return (c / 1000) * 1000
}

// Message returns the registered human-readable message for the code, or a
// generic fallback when no subsystem claimed it.
func (c CodeError) Message() string {
	if c == UnknownError {
		return "unknown error"
	}

	registryMu.RLock()
	fn, ok := messages[baseOf(c)]
	registryMu.RUnlock()

	if !ok {
		return "unregistered error code " + strconv.Itoa(int(c))
	}

	if m := fn(c); m != "" {
		return m
	}

	return "unregistered error code " + strconv.Itoa(int(c))
}

// Brief returns the stable short label used for metric tags, e.g.
// "tcp_connect.resolve_failed". Never changes across releases: downstream
// dashboards key on it.
func (c CodeError) Brief() string {
	if c == UnknownError {
		return "unknown"
	}

	registryMu.RLock()
	fn, ok := briefs[baseOf(c)]
	registryMu.RUnlock()

	if !ok || fn == nil {
		return strings.ToLower(c.Message())
	}

	if b := fn(c); b != "" {
		return b
	}

	return strings.ToLower(c.Message())
}

// Uint16 returns the raw numeric value.
func (c CodeError) Uint16() uint16 {
	return uint16(c)
}

// Error builds a new Error value carrying this code, its registered
// message, and any parent errors.
func (c CodeError) Error(parents ...error) Error {
	return New(c, c.Message(), parents...)
}
