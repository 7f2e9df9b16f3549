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

package icap

import "github.com/nabbar/proxycore/errs"

// These mirror the typed reasons a REQMOD/RESPMOD exchange can fail for,
// each carrying the raw ICAP status code and reason string via its parent
// error rather than a separate field, consistent with how every other
// taxonomy in this module wraps a lower-level cause.
const (
	ErrConnectFailed errs.CodeError = errs.MinICAP + iota
	ErrRequestSendFailed
	ErrResponseParseFailed
	ErrPreviewReadFailed
	ErrBodyTransferFailed
	ErrNoBodyFound
	ErrUnknownResponse
	ErrInvalidResponse
	ErrContinueAfterPreviewEOF
	ErrUnexpectedContinue
	ErrNotImplemented206
	ErrServiceErrorResponse
	ErrCanceledAsUserBlocked
	ErrCanceledAsServerQuit
	ErrIdle
)

var messages = map[errs.CodeError]string{
	ErrConnectFailed:           "failed to connect to the ICAP service",
	ErrRequestSendFailed:       "failed to send the ICAP request",
	ErrResponseParseFailed:     "failed to parse the ICAP response",
	ErrPreviewReadFailed:       "failed to read preview body data",
	ErrBodyTransferFailed:      "failed to transfer the remaining body to the ICAP service",
	ErrNoBodyFound:             "the ICAP response declared a body section that was not present",
	ErrUnknownResponse:         "the ICAP service returned an unrecognized status code",
	ErrInvalidResponse:         "the ICAP response was malformed",
	ErrContinueAfterPreviewEOF: "ICAP service sent 100 Continue after the preview already reached EOF",
	ErrUnexpectedContinue:      "ICAP service sent 100 Continue outside of preview negotiation",
	ErrNotImplemented206:       "206 partial-content ICAP responses are not supported",
	ErrServiceErrorResponse:    "the ICAP service returned an error status",
	ErrCanceledAsUserBlocked:   "canceled: the requesting user is blocked",
	ErrCanceledAsServerQuit:    "canceled: the server is shutting down",
	ErrIdle:                    "the transfer made no progress for too long",
}

var briefs = map[errs.CodeError]string{
	ErrConnectFailed:           "icap.connect_failed",
	ErrRequestSendFailed:       "icap.request_send_failed",
	ErrResponseParseFailed:     "icap.response_parse_failed",
	ErrPreviewReadFailed:       "icap.preview_read_failed",
	ErrBodyTransferFailed:      "icap.body_transfer_failed",
	ErrNoBodyFound:             "icap.no_body_found",
	ErrUnknownResponse:         "icap.unknown_response",
	ErrInvalidResponse:         "icap.invalid_response",
	ErrContinueAfterPreviewEOF: "icap.continue_after_preview_eof",
	ErrUnexpectedContinue:      "icap.unexpected_continue",
	ErrNotImplemented206:       "icap.not_implemented_206",
	ErrServiceErrorResponse:    "icap.service_error_response",
	ErrCanceledAsUserBlocked:   "icap.canceled_as_user_blocked",
	ErrCanceledAsServerQuit:    "icap.canceled_as_server_quit",
	ErrIdle:                    "icap.idle",
}

func init() {
	errs.RegisterTaxonomy(errs.MinICAP,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
