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

package tlsintercept

import "github.com/nabbar/proxycore/errs"

const (
	ErrCertAgentFailed errs.CodeError = errs.MinTLSIntercept + iota
	ErrServerHandshakeFailed
	ErrUpstreamHandshakeFailed
	ErrALPNNotAllowed
	ErrTicketerKeyMissing
)

var messages = map[errs.CodeError]string{
	ErrCertAgentFailed:       "certificate agent failed to issue a leaf for the requested SNI",
	ErrServerHandshakeFailed: "TLS handshake with the client failed",
	ErrUpstreamHandshakeFailed: "TLS handshake with the upstream failed",
	ErrALPNNotAllowed:        "none of the client's offered ALPN protocols are allowed by policy",
	ErrTicketerKeyMissing:    "no ticket key registered under the requested name",
}

var briefs = map[errs.CodeError]string{
	ErrCertAgentFailed:         "tlsintercept.cert_agent_failed",
	ErrServerHandshakeFailed:   "tlsintercept.server_handshake_failed",
	ErrUpstreamHandshakeFailed: "tlsintercept.upstream_handshake_failed",
	ErrALPNNotAllowed:          "tlsintercept.alpn_not_allowed",
	ErrTicketerKeyMissing:      "tlsintercept.ticketer_key_missing",
}

func init() {
	errs.RegisterTaxonomy(errs.MinTLSIntercept,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
