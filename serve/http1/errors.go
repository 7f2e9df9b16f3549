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

package http1

import "github.com/nabbar/proxycore/errs"

const (
	ErrRequestHeadRecvFailed errs.CodeError = errs.MinServeHTTP1 + iota
	ErrUpstreamDialFailed
	ErrRequestHeadSendFailed
	ErrResponseHeadRecvFailed
	ErrResponseHeadRecvTimeout
	ErrResponseHeadSendFailed
	ErrRequestBodyTransferFailed
	ErrResponseBodyTransferFailed
	ErrInternalAdapterError
	ErrCanceledAsUserBlocked
	ErrCanceledAsServerQuit
	ErrIdle
)

var messages = map[errs.CodeError]string{
	ErrRequestHeadRecvFailed:      "failed to read the client's request headers",
	ErrUpstreamDialFailed:         "failed to establish the upstream connection",
	ErrRequestHeadSendFailed:      "failed to send the request headers to the upstream",
	ErrResponseHeadRecvFailed:     "failed to read the upstream's response headers",
	ErrResponseHeadRecvTimeout:    "timed out waiting for the upstream's response headers",
	ErrResponseHeadSendFailed:     "failed to send the response headers to the client",
	ErrRequestBodyTransferFailed:  "failed to relay the request body to the upstream",
	ErrResponseBodyTransferFailed: "failed to relay the response body to the client",
	ErrInternalAdapterError:       "the configured ICAP adapter failed",
	ErrCanceledAsUserBlocked:      "canceled: the requesting user is blocked",
	ErrCanceledAsServerQuit:       "canceled: the server is shutting down",
	ErrIdle:                       "the transfer made no progress for too long",
}

var briefs = map[errs.CodeError]string{
	ErrRequestHeadRecvFailed:      "http1.request_head_recv_failed",
	ErrUpstreamDialFailed:         "http1.upstream_dial_failed",
	ErrRequestHeadSendFailed:      "http1.request_head_send_failed",
	ErrResponseHeadRecvFailed:     "http1.response_head_recv_failed",
	ErrResponseHeadRecvTimeout:    "http1.response_head_recv_timeout",
	ErrResponseHeadSendFailed:     "http1.response_head_send_failed",
	ErrRequestBodyTransferFailed:  "http1.request_body_transfer_failed",
	ErrResponseBodyTransferFailed: "http1.response_body_transfer_failed",
	ErrInternalAdapterError:       "http1.internal_adapter_error",
	ErrCanceledAsUserBlocked:      "http1.canceled_as_user_blocked",
	ErrCanceledAsServerQuit:       "http1.canceled_as_server_quit",
	ErrIdle:                       "http1.idle",
}

func init() {
	errs.RegisterTaxonomy(errs.MinServeHTTP1,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
