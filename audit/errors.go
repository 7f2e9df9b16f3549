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

package audit

import "github.com/nabbar/proxycore/errs"

const (
	ErrContextClosed errs.CodeError = errs.MinAudit + iota
	ErrNoHandle
	ErrNoAdapter
)

var messages = map[errs.CodeError]string{
	ErrContextClosed: "audit context is closed: no further jobs may be spawned against it",
	ErrNoHandle:      "no audit handle is attached to this context",
	ErrNoAdapter:     "the attached audit handle has no ICAP adapter configured for this direction",
}

var briefs = map[errs.CodeError]string{
	ErrContextClosed: "audit.context_closed",
	ErrNoHandle:      "audit.no_handle",
	ErrNoAdapter:     "audit.no_adapter",
}

func init() {
	errs.RegisterTaxonomy(errs.MinAudit,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
