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

package imap

import "github.com/nabbar/proxycore/errs"

const (
	ErrUpstreamDialFailed errs.CodeError = errs.MinServeIMAP + iota
	ErrGreetingRelayFailed
	ErrCommandRelayFailed
	ErrResponseRelayFailed
	ErrLiteralTransferFailed
	ErrLiteralTooLarge
	ErrStartTLSFailed
	ErrCanceledAsUserBlocked
	ErrCanceledAsServerQuit
	ErrIdle
)

var messages = map[errs.CodeError]string{
	ErrUpstreamDialFailed:    "failed to establish the upstream connection",
	ErrGreetingRelayFailed:   "failed to relay the upstream's greeting",
	ErrCommandRelayFailed:    "failed to relay a command to the upstream",
	ErrResponseRelayFailed:   "failed to relay the upstream's response",
	ErrLiteralTransferFailed: "failed to relay a literal's raw bytes",
	ErrLiteralTooLarge:       "a literal exceeded the configured size limit",
	ErrStartTLSFailed:        "the STARTTLS upgrade failed",
	ErrCanceledAsUserBlocked: "canceled: the requesting user is blocked",
	ErrCanceledAsServerQuit:  "canceled: the server is shutting down",
	ErrIdle:                  "the transfer made no progress for too long",
}

var briefs = map[errs.CodeError]string{
	ErrUpstreamDialFailed:    "imap.upstream_dial_failed",
	ErrGreetingRelayFailed:   "imap.greeting_relay_failed",
	ErrCommandRelayFailed:    "imap.command_relay_failed",
	ErrResponseRelayFailed:   "imap.response_relay_failed",
	ErrLiteralTransferFailed: "imap.literal_transfer_failed",
	ErrLiteralTooLarge:       "imap.literal_too_large",
	ErrStartTLSFailed:        "imap.starttls_failed",
	ErrCanceledAsUserBlocked: "imap.canceled_as_user_blocked",
	ErrCanceledAsServerQuit:  "imap.canceled_as_server_quit",
	ErrIdle:                  "imap.idle",
}

func init() {
	errs.RegisterTaxonomy(errs.MinServeIMAP,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
