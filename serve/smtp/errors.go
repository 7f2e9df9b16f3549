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

package smtp

import "github.com/nabbar/proxycore/errs"

const (
	ErrUpstreamDialFailed errs.CodeError = errs.MinServeSMTP + iota
	ErrGreetingRelayFailed
	ErrCommandRelayFailed
	ErrResponseRelayFailed
	ErrStartTLSFailed
	ErrDataTransferFailed
	ErrBdatTransferFailed
	ErrUpstreamAppUnavailable
	ErrCanceledAsUserBlocked
	ErrCanceledAsServerQuit
	ErrIdle
)

var messages = map[errs.CodeError]string{
	ErrUpstreamDialFailed:     "failed to establish the upstream connection",
	ErrGreetingRelayFailed:    "failed to relay the upstream's greeting",
	ErrCommandRelayFailed:     "failed to relay a command to the upstream",
	ErrResponseRelayFailed:    "failed to relay the upstream's response",
	ErrStartTLSFailed:         "the STARTTLS upgrade failed",
	ErrDataTransferFailed:     "failed to relay the DATA body",
	ErrBdatTransferFailed:     "failed to relay a BDAT chunk",
	ErrUpstreamAppUnavailable: "upstream replied 421 service not available",
	ErrCanceledAsUserBlocked:  "canceled: the requesting user is blocked",
	ErrCanceledAsServerQuit:   "canceled: the server is shutting down",
	ErrIdle:                   "the transfer made no progress for too long",
}

var briefs = map[errs.CodeError]string{
	ErrUpstreamDialFailed:     "smtp.upstream_dial_failed",
	ErrGreetingRelayFailed:    "smtp.greeting_relay_failed",
	ErrCommandRelayFailed:     "smtp.command_relay_failed",
	ErrResponseRelayFailed:    "smtp.response_relay_failed",
	ErrStartTLSFailed:         "smtp.starttls_failed",
	ErrDataTransferFailed:     "smtp.data_transfer_failed",
	ErrBdatTransferFailed:     "smtp.bdat_transfer_failed",
	ErrUpstreamAppUnavailable: "smtp.upstream_app_unavailable",
	ErrCanceledAsUserBlocked:  "smtp.canceled_as_user_blocked",
	ErrCanceledAsServerQuit:   "smtp.canceled_as_server_quit",
	ErrIdle:                   "smtp.idle",
}

func init() {
	errs.RegisterTaxonomy(errs.MinServeSMTP,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
