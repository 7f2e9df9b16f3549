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

package escaper

import "github.com/nabbar/proxycore/errs"

// TcpConnectError taxonomy: every failure mode below is a distinct
// CodeError with its own Brief() label so downstream metrics never
// collapse two different failure modes into one series.
const (
	ErrMethodUnavailable errs.CodeError = errs.MinEscaper + iota
	ErrEscaperNotUsable
	ErrResolveFailed
	ErrSetupSocketFailed
	ErrConnectFailed
	ErrTimeoutByRule
	ErrNoAddressConnected
	ErrForbiddenAddressFamily
	ErrForbiddenRemoteAddress
	ErrProxyProtocolEncodeError
	ErrProxyProtocolWriteFailed
	ErrNegotiationReadFailed
	ErrNegotiationWriteFailed
	ErrNegotiationRejected
	ErrNegotiationPeerTimeout
	ErrNegotiationProtocolErr
	ErrInternalServerError
	ErrInternalTLSClientError
	ErrPeerTLSHandshakeTimeout
	ErrPeerTLSHandshakeFailed
	ErrUpstreamTLSHandshakeTimeout
	ErrUpstreamTLSHandshakeFailed
	ErrGraphCycle
)

var messages = map[errs.CodeError]string{
	ErrMethodUnavailable:           "method not supported by this escaper",
	ErrEscaperNotUsable:            "escaper is not usable",
	ErrResolveFailed:               "failed to resolve target host",
	ErrSetupSocketFailed:           "failed to set up local socket",
	ErrConnectFailed:               "failed to connect to remote address",
	ErrTimeoutByRule:               "connection attempt exceeded configured timeout",
	ErrNoAddressConnected:          "no candidate address could be connected",
	ErrForbiddenAddressFamily:      "target address family is forbidden by policy",
	ErrForbiddenRemoteAddress:      "target address is forbidden by policy",
	ErrProxyProtocolEncodeError:    "failed to encode proxy protocol header",
	ErrProxyProtocolWriteFailed:    "failed to write proxy protocol header",
	ErrNegotiationReadFailed:       "failed to read proxy negotiation reply",
	ErrNegotiationWriteFailed:      "failed to write proxy negotiation request",
	ErrNegotiationRejected:         "upstream proxy rejected the negotiation",
	ErrNegotiationPeerTimeout:      "proxy negotiation timed out",
	ErrNegotiationProtocolErr:      "proxy negotiation protocol error",
	ErrInternalServerError:         "internal error while setting up connection",
	ErrInternalTLSClientError:      "internal TLS client configuration error",
	ErrPeerTLSHandshakeTimeout:     "client-facing TLS handshake timed out",
	ErrPeerTLSHandshakeFailed:      "client-facing TLS handshake failed",
	ErrUpstreamTLSHandshakeTimeout: "upstream TLS handshake timed out",
	ErrUpstreamTLSHandshakeFailed:  "upstream TLS handshake failed",
	ErrGraphCycle:                  "escaper dependency graph contains a cycle",
}

var briefs = map[errs.CodeError]string{
	ErrMethodUnavailable:           "tcp_connect.method_unavailable",
	ErrEscaperNotUsable:            "tcp_connect.escaper_not_usable",
	ErrResolveFailed:               "tcp_connect.resolve_failed",
	ErrSetupSocketFailed:           "tcp_connect.setup_socket_failed",
	ErrConnectFailed:               "tcp_connect.connect_failed",
	ErrTimeoutByRule:               "tcp_connect.timeout_by_rule",
	ErrNoAddressConnected:          "tcp_connect.no_address_connected",
	ErrForbiddenAddressFamily:      "tcp_connect.forbidden_address_family",
	ErrForbiddenRemoteAddress:      "tcp_connect.forbidden_remote_address",
	ErrProxyProtocolEncodeError:    "tcp_connect.proxy_protocol_encode_error",
	ErrProxyProtocolWriteFailed:    "tcp_connect.proxy_protocol_write_failed",
	ErrNegotiationReadFailed:       "tcp_connect.negotiation_read_failed",
	ErrNegotiationWriteFailed:      "tcp_connect.negotiation_write_failed",
	ErrNegotiationRejected:         "tcp_connect.negotiation_rejected",
	ErrNegotiationPeerTimeout:      "tcp_connect.negotiation_peer_timeout",
	ErrNegotiationProtocolErr:      "tcp_connect.negotiation_protocol_err",
	ErrInternalServerError:         "tcp_connect.internal_server_error",
	ErrInternalTLSClientError:      "tcp_connect.internal_tls_client_error",
	ErrPeerTLSHandshakeTimeout:     "tcp_connect.peer_tls_handshake_timeout",
	ErrPeerTLSHandshakeFailed:      "tcp_connect.peer_tls_handshake_failed",
	ErrUpstreamTLSHandshakeTimeout: "tcp_connect.upstream_tls_handshake_timeout",
	ErrUpstreamTLSHandshakeFailed:  "tcp_connect.upstream_tls_handshake_failed",
	ErrGraphCycle:                  "escaper.graph_cycle",
}

func init() {
	errs.RegisterTaxonomy(errs.MinEscaper,
		func(c errs.CodeError) string { return messages[c] },
		func(c errs.CodeError) string { return briefs[c] },
	)
}
