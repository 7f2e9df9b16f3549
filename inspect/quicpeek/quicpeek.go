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

// Package quicpeek recovers the SNI and ALPN offer from a QUIC Initial
// packet's ClientHello without running a QUIC connection: it removes
// header protection and decrypts the Initial-level AEAD using the public,
// version-specific Initial salt (every QUIC Initial packet is protected
// with the same not-actually-secret keys, derived from the connection ID
// alone), then picks the ClientHello out of the resulting CRYPTO frame.
//
// Only a ClientHello that fits in one Initial packet is recovered; a
// ClientHello fragmented across multiple Initial packets (uncommon, seen
// with very large client certificate-backed configurations) is reported as
// incomplete rather than reassembled.
package quicpeek

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/hkdf"
)

// quicV1InitialSalt is the salt used to derive QUIC v1 (RFC 9001) Initial
// secrets from a connection ID. It is published in the RFC, not a secret.
var quicV1InitialSalt = []byte{
	0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0x83,
	0x4f, 0xd4, 0x5f, 0xfa, 0xfd, 0xda, 0xdd, 0xa6,
	0xf0, 0xfc, 0xce, 0x9e,
}

// ClientHelloInfo is the subset of a recovered ClientHello this core acts
// on for inspection and routing decisions.
type ClientHelloInfo struct {
	ServerName string
	ALPN       []string
}

var (
	errPacketTooShort   = errors.New("quicpeek: packet too short for a long header")
	errNotInitialPacket = errors.New("quicpeek: not a QUIC Initial packet")
	errSampleOutOfRange = errors.New("quicpeek: header protection sample out of range")
	errAEADOpenFailed   = errors.New("quicpeek: initial AEAD decryption failed")
	errIncompleteHello  = errors.New("quicpeek: ClientHello not fully contained in this packet")
	errNoCryptoFrame    = errors.New("quicpeek: no CRYPTO frame found in decrypted payload")
)

// RecoverClientHello attempts to recover SNI/ALPN from a single UDP
// datagram believed to carry a QUIC v1 Initial packet.
func RecoverClientHello(datagram []byte) (ClientHelloInfo, error) {
	pkt, err := parseLongHeader(datagram)
	if err != nil {
		return ClientHelloInfo{}, err
	}

	secrets, err := deriveInitialSecrets(pkt.destConnID)
	if err != nil {
		return ClientHelloInfo{}, err
	}

	plain, err := unprotectAndDecrypt(datagram, pkt, secrets)
	if err != nil {
		return ClientHelloInfo{}, err
	}

	hello, err := extractCryptoFrame(plain)
	if err != nil {
		return ClientHelloInfo{}, err
	}

	return parseClientHello(hello)
}

type longHeaderPacket struct {
	payloadOff int // offset of the (still header-protected) packet number field
	payloadEnd int // end of the packet (start of next packet, or len(datagram))
	destConnID []byte
}

// parseLongHeader parses enough of a QUIC long header to locate the
// destination connection ID and the (not yet decoded) packet number /
// payload region, without removing header protection yet.
func parseLongHeader(d []byte) (longHeaderPacket, error) {
	if len(d) < 7 {
		return longHeaderPacket{}, errPacketTooShort
	}
	if d[0]&0xC0 != 0xC0 {
		return longHeaderPacket{}, errNotInitialPacket
	}
	// QUIC v1 Initial packets carry packet type 0b00 in bits 4-5 of the
	// first byte. Only the long-header form/fixed bits and the version are
	// checked here; the packet type bits are not, so another long-header
	// packet type is rejected only later, when AEAD opening fails.
	version := binary.BigEndian.Uint32(d[1:5])
	if version != 1 {
		return longHeaderPacket{}, errNotInitialPacket
	}

	off := 5
	dcilLen := int(d[off])
	off++
	if off+dcilLen > len(d) {
		return longHeaderPacket{}, errPacketTooShort
	}
	dcid := append([]byte(nil), d[off:off+dcilLen]...)
	off += dcilLen

	if off >= len(d) {
		return longHeaderPacket{}, errPacketTooShort
	}
	scilLen := int(d[off])
	off++
	off += scilLen
	if off > len(d) {
		return longHeaderPacket{}, errPacketTooShort
	}

	tokenLen, n, err := readVarint(d[off:])
	if err != nil {
		return longHeaderPacket{}, err
	}
	off += n + int(tokenLen)
	if off > len(d) {
		return longHeaderPacket{}, errPacketTooShort
	}

	length, n, err := readVarint(d[off:])
	if err != nil {
		return longHeaderPacket{}, err
	}
	off += n
	if off > len(d) {
		return longHeaderPacket{}, errPacketTooShort
	}

	payloadEnd := off + int(length)
	if payloadEnd > len(d) {
		payloadEnd = len(d)
	}

	return longHeaderPacket{
		payloadOff: off,
		payloadEnd: payloadEnd,
		destConnID: dcid,
	}, nil
}

func readVarint(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, errPacketTooShort
	}
	prefix := b[0] >> 6
	length := 1 << prefix
	if len(b) < length {
		return 0, 0, errPacketTooShort
	}
	v := uint64(b[0] & 0x3F)
	for i := 1; i < length; i++ {
		v = (v << 8) | uint64(b[i])
	}
	return v, length, nil
}

type initialSecrets struct {
	clientKey []byte
	clientIV  []byte
	clientHP  []byte
}

func deriveInitialSecrets(destConnID []byte) (initialSecrets, error) {
	initialSecret := hkdf.Extract(sha256.New, destConnID, quicV1InitialSalt)
	clientSecret := hkdfExpandLabel(initialSecret, "client in", 32)

	return initialSecrets{
		clientKey: hkdfExpandLabel(clientSecret, "quic key", 16),
		clientIV:  hkdfExpandLabel(clientSecret, "quic iv", 12),
		clientHP:  hkdfExpandLabel(clientSecret, "quic hp", 16),
	}, nil
}

// hkdfExpandLabel implements TLS 1.3's HKDF-Expand-Label (RFC 8446 §7.1)
// with the "tls13 " prefix QUIC reuses verbatim (RFC 9001 §5.1), empty
// context, for the fixed output lengths QUIC's Initial keys need.
func hkdfExpandLabel(secret []byte, label string, length int) []byte {
	full := "tls13 " + label
	hkdfLabel := make([]byte, 0, 2+1+len(full)+1)
	hkdfLabel = append(hkdfLabel, byte(length>>8), byte(length))
	hkdfLabel = append(hkdfLabel, byte(len(full)))
	hkdfLabel = append(hkdfLabel, full...)
	hkdfLabel = append(hkdfLabel, 0x00) // empty context

	out := make([]byte, length)
	r := hkdf.Expand(sha256.New, secret, hkdfLabel)
	_, _ = r.Read(out)
	return out
}

// unprotectAndDecrypt removes header protection from the packet number
// field, reconstructs the full header, and AEAD-decrypts the payload.
func unprotectAndDecrypt(d []byte, pkt longHeaderPacket, s initialSecrets) ([]byte, error) {
	block, err := aes.NewCipher(s.clientHP)
	if err != nil {
		return nil, err
	}

	sampleOff := pkt.payloadOff + 4
	if sampleOff+16 > len(d) {
		return nil, errSampleOutOfRange
	}
	sample := d[sampleOff : sampleOff+16]

	mask := make([]byte, 16)
	block.Encrypt(mask, sample)

	header := append([]byte(nil), d[:pkt.payloadOff]...)
	header[0] ^= mask[0] & 0x0F // long header: protect low 4 bits

	pnLen := int(header[0]&0x03) + 1
	pnBytes := make([]byte, pnLen)
	for i := 0; i < pnLen; i++ {
		pnBytes[i] = d[pkt.payloadOff+i] ^ mask[1+i]
	}
	header = append(header, pnBytes...)

	var packetNumber uint64
	for _, b := range pnBytes {
		packetNumber = (packetNumber << 8) | uint64(b)
	}

	cipherStart := pkt.payloadOff + pnLen
	if cipherStart > pkt.payloadEnd {
		return nil, errPacketTooShort
	}
	ciphertext := d[cipherStart:pkt.payloadEnd]

	nonce := make([]byte, len(s.clientIV))
	copy(nonce, s.clientIV)
	for i := 0; i < 8; i++ {
		shift := uint(8 * i)
		nonce[len(nonce)-1-i] ^= byte(packetNumber >> shift)
	}

	aead, err := newAESGCM(s.clientKey)
	if err != nil {
		return nil, err
	}

	plain, err := aead.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, errAEADOpenFailed
	}
	return plain, nil
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

const frameTypeCrypto = 0x06

// extractCryptoFrame scans decrypted Initial payload frames for a single
// CRYPTO frame starting at offset 0 and returns its data, which for an
// Initial packet's first CRYPTO frame is the start of the ClientHello.
func extractCryptoFrame(payload []byte) ([]byte, error) {
	off := 0
	for off < len(payload) {
		frameType := payload[off]
		off++

		switch {
		case frameType == 0x00: // PADDING
			continue
		case frameType == 0x01: // PING
			continue
		case frameType == frameTypeCrypto:
			cryptoOffset, n, err := readVarint(payload[off:])
			if err != nil {
				return nil, err
			}
			off += n
			length, n, err := readVarint(payload[off:])
			if err != nil {
				return nil, err
			}
			off += n
			if off+int(length) > len(payload) {
				return nil, errIncompleteHello
			}
			if cryptoOffset != 0 {
				// a later fragment of a multi-packet CRYPTO stream; not
				// reassembled by this peek.
				off += int(length)
				continue
			}
			return payload[off : off+int(length)], nil
		default:
			// any other frame type ends the scan: Initial packets from a
			// well-behaved client only carry PADDING/PING/CRYPTO/ACK before
			// the handshake completes, and ACK frames are not relevant here.
			return nil, errNoCryptoFrame
		}
	}
	return nil, errNoCryptoFrame
}
