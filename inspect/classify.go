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

import (
	"bytes"
	"context"
	"io"
)

const http2Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// Decision is the outcome of Classify: which protocol matched (if any) and
// the exact bytes peeked, which the caller must prepend to anything it
// reads next since the underlying connection has already consumed them.
type Decision struct {
	Protocol Protocol
	Peeked   []byte
}

// Classify reads from r up to cap bytes, trying each of candidates after
// every read in order, until one recognizes the buffered prefix or the cap
// is reached without a match.
func Classify(ctx context.Context, r io.Reader, candidates []Protocol, cap int) (Decision, error) {
	buf := make([]byte, 0, cap)
	chunk := make([]byte, 512)

	for {
		for _, c := range candidates {
			if sniff(c, buf) {
				return Decision{Protocol: c, Peeked: buf}, nil
			}
		}

		if len(buf) >= cap {
			return Decision{Peeked: buf}, ErrPeekCapExceeded.Error(nil)
		}

		select {
		case <-ctx.Done():
			return Decision{Peeked: buf}, ctx.Err()
		default:
		}

		room := cap - len(buf)
		if room > len(chunk) {
			room = len(chunk)
		}
		n, err := r.Read(chunk[:room])
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if n == 0 {
				return Decision{Peeked: buf}, ErrPeekReadFailed.Error(err)
			}
		}
	}
}

func sniff(p Protocol, buf []byte) bool {
	switch p {
	case ProtocolHTTP2PriorKnowledge:
		return isHTTP2PriorKnowledge(buf)
	case ProtocolTLSClientHello:
		return isTLSClientHello(buf)
	case ProtocolHTTP1:
		return isHTTP1(buf)
	case ProtocolSMTPBanner:
		return isSMTPBanner(buf)
	case ProtocolIMAPGreeting:
		return isIMAPGreeting(buf)
	default:
		return false
	}
}

func isHTTP2PriorKnowledge(buf []byte) bool {
	if len(buf) < len(http2Preface) {
		return false
	}
	return bytes.HasPrefix(buf, []byte(http2Preface))
}

// isTLSClientHello recognizes a TLS record header: content type 0x16
// (handshake) and a legacy version in the TLS 1.x range, once at least the
// 5 header bytes are buffered; the record length field is not inspected,
// and nothing past the record header is decoded.
func isTLSClientHello(buf []byte) bool {
	if len(buf) < 5 {
		return false
	}
	if buf[0] != 0x16 {
		return false
	}
	if buf[1] != 0x03 {
		return false
	}
	if buf[2] > 0x04 {
		return false
	}
	return true
}

var http1Methods = [][]byte{
	[]byte("GET "), []byte("POST "), []byte("PUT "), []byte("HEAD "),
	[]byte("DELETE "), []byte("OPTIONS "), []byte("PATCH "), []byte("TRACE "),
	[]byte("CONNECT "),
}

func isHTTP1(buf []byte) bool {
	for _, m := range http1Methods {
		if len(buf) >= len(m) && bytes.Equal(buf[:len(m)], m) {
			return true
		}
		if len(buf) < len(m) && bytes.HasPrefix(m, buf) {
			return false // ambiguous: need more bytes, not a confirmed match
		}
	}
	return false
}

// isSMTPBanner recognizes the "220 " status line an SMTP server itself
// would send; this core impersonates that server, so the sniffer looks at
// what the real upstream said when probed, or a client's "EHLO"/"HELO"
// opener when this core is acting as the listener.
func isSMTPBanner(buf []byte) bool {
	if len(buf) >= 4 && bytes.Equal(buf[:4], []byte("220 ")) {
		return true
	}
	if len(buf) >= 5 && (bytes.Equal(buf[:5], []byte("EHLO ")) || bytes.Equal(buf[:5], []byte("HELO "))) {
		return true
	}
	return false
}

// isIMAPGreeting recognizes the untagged "* OK" greeting line.
func isIMAPGreeting(buf []byte) bool {
	return len(buf) >= 4 && bytes.Equal(buf[:4], []byte("* OK"))
}
