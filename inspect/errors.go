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

package inspect

import "github.com/nabbar/proxycore/errs"

const (
	ErrPeekCapExceeded errs.CodeError = errs.MinInspect + iota
	ErrPeekReadFailed
	ErrNoProtocolMatched
)

var messages = map[errs.CodeError]string{
	ErrPeekCapExceeded:   "peek exceeded the configured cap before any protocol matched",
	ErrPeekReadFailed:    "failed to read from the connection while peeking",
	ErrNoProtocolMatched: "no candidate protocol parser recognized the stream",
}

var briefs = map[errs.CodeError]string{
	ErrPeekCapExceeded:   "inspect.peek_cap_exceeded",
	ErrPeekReadFailed:    "inspect.peek_read_failed",
	ErrNoProtocolMatched: "inspect.no_protocol_matched",
}

func init() {
	errs.RegisterTaxonomy(errs.MinInspect,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
