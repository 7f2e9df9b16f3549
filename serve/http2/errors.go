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

package http2

import "github.com/nabbar/proxycore/errs"

const (
	ErrUpstreamDialFailed errs.CodeError = errs.MinServeHTTP2 + iota
	ErrRequestHeadSendFailed
	ErrRequestBodyTransferFailed
	ErrResponseHeadRecvFailed
	ErrResponseHeadRecvTimeout
	ErrResponseHeadSendFailed
	ErrResponseBodyTransferFailed
	ErrInternalAdapterError
	ErrCanceledAsUserBlocked
	ErrCanceledAsServerQuit
	ErrIdle
	ErrPushUnavailable
)

var messages = map[errs.CodeError]string{
	ErrUpstreamDialFailed:         "failed to establish the upstream connection",
	ErrRequestHeadSendFailed:      "failed to send the request headers to the upstream",
	ErrRequestBodyTransferFailed:  "failed to relay the request body to the upstream",
	ErrResponseHeadRecvFailed:     "failed to read the upstream's response headers",
	ErrResponseHeadRecvTimeout:    "timed out waiting for the upstream's response headers",
	ErrResponseHeadSendFailed:     "failed to send the response headers to the client",
	ErrResponseBodyTransferFailed: "failed to relay the response body to the client",
	ErrInternalAdapterError:       "the configured ICAP adapter failed",
	ErrCanceledAsUserBlocked:      "canceled: the requesting user is blocked",
	ErrCanceledAsServerQuit:       "canceled: the server is shutting down",
	ErrIdle:                       "the transfer made no progress for too long",
	ErrPushUnavailable:            "the client connection does not support server push",
}

var briefs = map[errs.CodeError]string{
	ErrUpstreamDialFailed:         "http2.upstream_dial_failed",
	ErrRequestHeadSendFailed:      "http2.request_head_send_failed",
	ErrRequestBodyTransferFailed:  "http2.request_body_transfer_failed",
	ErrResponseHeadRecvFailed:     "http2.response_head_recv_failed",
	ErrResponseHeadRecvTimeout:    "http2.response_head_recv_timeout",
	ErrResponseHeadSendFailed:     "http2.response_head_send_failed",
	ErrResponseBodyTransferFailed: "http2.response_body_transfer_failed",
	ErrInternalAdapterError:       "http2.internal_adapter_error",
	ErrCanceledAsUserBlocked:      "http2.canceled_as_user_blocked",
	ErrCanceledAsServerQuit:       "http2.canceled_as_server_quit",
	ErrIdle:                       "http2.idle",
	ErrPushUnavailable:            "http2.push_unavailable",
}

func init() {
	errs.RegisterTaxonomy(errs.MinServeHTTP2,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
