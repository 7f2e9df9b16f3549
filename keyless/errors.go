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

package keyless

import "github.com/nabbar/proxycore/errs"

const (
	ErrQueueClosed errs.CodeError = errs.MinKeyless + iota
	ErrWriteFailed
	ErrDecodeFailed
	ErrRequestTimeout
	ErrTransportClosed
)

var messages = map[errs.CodeError]string{
	ErrQueueClosed:     "the request queue is closed: no further requests may be enqueued",
	ErrWriteFailed:     "failed to write a request onto the multiplexed transport",
	ErrDecodeFailed:    "failed to decode a response from the multiplexed transport",
	ErrRequestTimeout:  "no response arrived for this request within request_timeout",
	ErrTransportClosed: "the transport was shut down before a response arrived",
}

var briefs = map[errs.CodeError]string{
	ErrQueueClosed:     "keyless.queue_closed",
	ErrWriteFailed:     "keyless.write_failed",
	ErrDecodeFailed:    "keyless.decode_failed",
	ErrRequestTimeout:  "keyless.request_timeout",
	ErrTransportClosed: "keyless.transport_closed",
}

func init() {
	errs.RegisterTaxonomy(errs.MinKeyless,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
