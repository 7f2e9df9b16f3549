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

package quicpeek

import "errors"

const (
	handshakeTypeClientHello = 0x01

	extensionServerName           = 0x0000
	extensionALPN                 = 0x0010
	serverNameTypeHostName  uint8 = 0x00
)

var (
	errTruncatedHandshake = errors.New("quicpeek: truncated TLS handshake message")
	errNotClientHello     = errors.New("quicpeek: decrypted CRYPTO frame is not a ClientHello")
)

// parseClientHello walks a TLS 1.3 ClientHello handshake message (the raw
// bytes QUIC's CRYPTO frame carries, with no record-layer framing) far
// enough to pull the server_name and application_layer_protocol_negotiation
// extensions, ignoring everything else.
func parseClientHello(msg []byte) (ClientHelloInfo, error) {
	r := &byteReader{b: msg}

	msgType, err := r.u8()
	if err != nil {
		return ClientHelloInfo{}, err
	}
	if msgType != handshakeTypeClientHello {
		return ClientHelloInfo{}, errNotClientHello
	}
	length, err := r.u24()
	if err != nil {
		return ClientHelloInfo{}, err
	}
	body, err := r.bytes(int(length))
	if err != nil {
		return ClientHelloInfo{}, err
	}

	br := &byteReader{b: body}

	if _, err := br.bytes(2); err != nil { // legacy_version
		return ClientHelloInfo{}, err
	}
	if _, err := br.bytes(32); err != nil { // random
		return ClientHelloInfo{}, err
	}
	sessionIDLen, err := br.u8()
	if err != nil {
		return ClientHelloInfo{}, err
	}
	if _, err := br.bytes(int(sessionIDLen)); err != nil {
		return ClientHelloInfo{}, err
	}
	cipherSuitesLen, err := br.u16()
	if err != nil {
		return ClientHelloInfo{}, err
	}
	if _, err := br.bytes(int(cipherSuitesLen)); err != nil {
		return ClientHelloInfo{}, err
	}
	compressionLen, err := br.u8()
	if err != nil {
		return ClientHelloInfo{}, err
	}
	if _, err := br.bytes(int(compressionLen)); err != nil {
		return ClientHelloInfo{}, err
	}

	if br.remaining() == 0 {
		// no extensions: legal for plain TLS 1.2 but not for a QUIC
		// ClientHello, which always carries at least supported_versions.
		return ClientHelloInfo{}, nil
	}

	extTotalLen, err := br.u16()
	if err != nil {
		return ClientHelloInfo{}, err
	}
	extBytes, err := br.bytes(int(extTotalLen))
	if err != nil {
		return ClientHelloInfo{}, err
	}

	info := ClientHelloInfo{}
	er := &byteReader{b: extBytes}
	for er.remaining() > 0 {
		extType, err := er.u16()
		if err != nil {
			return info, err
		}
		extLen, err := er.u16()
		if err != nil {
			return info, err
		}
		extData, err := er.bytes(int(extLen))
		if err != nil {
			return info, err
		}

		switch extType {
		case extensionServerName:
			name, err := parseServerNameList(extData)
			if err == nil && name != "" {
				info.ServerName = name
			}
		case extensionALPN:
			protos, err := parseALPNList(extData)
			if err == nil {
				info.ALPN = protos
			}
		}
	}

	return info, nil
}

func parseServerNameList(data []byte) (string, error) {
	r := &byteReader{b: data}
	listLen, err := r.u16()
	if err != nil {
		return "", err
	}
	list, err := r.bytes(int(listLen))
	if err != nil {
		return "", err
	}
	lr := &byteReader{b: list}
	for lr.remaining() > 0 {
		nameType, err := lr.u8()
		if err != nil {
			return "", err
		}
		nameLen, err := lr.u16()
		if err != nil {
			return "", err
		}
		name, err := lr.bytes(int(nameLen))
		if err != nil {
			return "", err
		}
		if nameType == serverNameTypeHostName {
			return string(name), nil
		}
	}
	return "", nil
}

func parseALPNList(data []byte) ([]string, error) {
	r := &byteReader{b: data}
	listLen, err := r.u16()
	if err != nil {
		return nil, err
	}
	list, err := r.bytes(int(listLen))
	if err != nil {
		return nil, err
	}
	lr := &byteReader{b: list}
	var protos []string
	for lr.remaining() > 0 {
		n, err := lr.u8()
		if err != nil {
			return nil, err
		}
		p, err := lr.bytes(int(n))
		if err != nil {
			return nil, err
		}
		protos = append(protos, string(p))
	}
	return protos, nil
}

// byteReader is a minimal big-endian cursor over a fixed byte slice, used
// throughout this file instead of bytes.Reader so length fields are
// validated against what's actually left rather than panicking on a
// malformed or truncated handshake message.
type byteReader struct {
	b   []byte
	off int
}

func (r *byteReader) remaining() int { return len(r.b) - r.off }

func (r *byteReader) u8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, errTruncatedHandshake
	}
	v := r.b[r.off]
	r.off++
	return v, nil
}

func (r *byteReader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, errTruncatedHandshake
	}
	v := uint16(r.b[r.off])<<8 | uint16(r.b[r.off+1])
	r.off += 2
	return v, nil
}

func (r *byteReader) u24() (uint32, error) {
	if r.remaining() < 3 {
		return 0, errTruncatedHandshake
	}
	v := uint32(r.b[r.off])<<16 | uint32(r.b[r.off+1])<<8 | uint32(r.b[r.off+2])
	r.off += 3
	return v, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, errTruncatedHandshake
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v, nil
}
