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

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// quicVarint encodes v as a QUIC variable-length integer (RFC 9000 §16).
func quicVarint(v uint64) []byte {
	switch {
	case v <= 63:
		return []byte{byte(v)}
	case v <= 16383:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(v))
		b[0] |= 0x40
		return b
	case v <= 1073741823:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v))
		b[0] |= 0x80
		return b
	default:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v)
		b[0] |= 0xC0
		return b
	}
}

// buildClientHello assembles a minimal TLS 1.3 ClientHello body carrying
// only the server_name extension, in the exact field order parseClientHello
// expects.
func buildClientHello(serverName string) []byte {
	var body []byte
	body = append(body, 0x03, 0x03)               // legacy_version
	body = append(body, make([]byte, 32)...)      // random
	body = append(body, 0x00)                     // session_id length
	body = append(body, 0x00, 0x02, 0x13, 0x01)   // cipher_suites
	body = append(body, 0x01, 0x00)               // compression_methods

	name := []byte(serverName)
	var nameEntry []byte
	nameEntry = append(nameEntry, 0x00) // host_name
	nameEntry = append(nameEntry, byte(len(name)>>8), byte(len(name)))
	nameEntry = append(nameEntry, name...)

	var sniList []byte
	sniList = append(sniList, byte(len(nameEntry)>>8), byte(len(nameEntry)))
	sniList = append(sniList, nameEntry...)

	var sniExt []byte
	sniExt = append(sniExt, 0x00, 0x00) // extension type: server_name
	sniExt = append(sniExt, byte(len(sniList)>>8), byte(len(sniList)))
	sniExt = append(sniExt, sniList...)

	body = append(body, byte(len(sniExt)>>8), byte(len(sniExt)))
	body = append(body, sniExt...)

	msg := []byte{0x01} // ClientHello
	msg = append(msg, byte(len(body)>>16), byte(len(body)>>8), byte(len(body)))
	msg = append(msg, body...)
	return msg
}

// buildInitialDatagram encrypts and header-protects a synthetic QUIC v1
// Initial packet carrying a single CRYPTO frame, using the same Initial
// secret derivation RecoverClientHello uses, so this test exercises framing,
// header protection removal, and AEAD decryption independently of trusting
// any single hardcoded wire capture.
func buildInitialDatagram(t *testing.T, dcid []byte, clientHello []byte) []byte {
	t.Helper()

	secrets, err := deriveInitialSecrets(dcid)
	require.NoError(t, err)

	cryptoFrame := []byte{0x06}
	cryptoFrame = append(cryptoFrame, quicVarint(0)...)
	cryptoFrame = append(cryptoFrame, quicVarint(uint64(len(clientHello)))...)
	cryptoFrame = append(cryptoFrame, clientHello...)

	plaintext := cryptoFrame

	var header []byte
	header = append(header, 0xC0) // long header, Initial, pn length - 1 = 0
	header = append(header, 0x00, 0x00, 0x00, 0x01)
	header = append(header, byte(len(dcid)))
	header = append(header, dcid...)
	header = append(header, 0x00) // empty source connection id
	header = append(header, quicVarint(0)...)

	payloadLen := 1 + len(plaintext) + 16 // packet number + ciphertext + AEAD tag
	header = append(header, quicVarint(uint64(payloadLen))...)

	payloadOff := len(header)
	header = append(header, 0x00) // packet number, value 0

	block, err := aes.NewCipher(secrets.clientKey)
	require.NoError(t, err)
	aead, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := make([]byte, len(secrets.clientIV))
	copy(nonce, secrets.clientIV)

	ciphertext := aead.Seal(nil, nonce, plaintext, header)

	datagram := append(append([]byte{}, header...), ciphertext...)

	hpBlock, err := aes.NewCipher(secrets.clientHP)
	require.NoError(t, err)
	sampleOff := payloadOff + 4
	mask := make([]byte, 16)
	hpBlock.Encrypt(mask, datagram[sampleOff:sampleOff+16])

	datagram[0] ^= mask[0] & 0x0F
	datagram[payloadOff] ^= mask[1]

	return datagram
}

func TestRecoverClientHelloExtractsServerName(t *testing.T) {
	dcid := []byte{0x83, 0x94, 0xc8, 0xf0, 0x3e, 0x51, 0x57, 0x08}
	hello := buildClientHello("example.com")
	datagram := buildInitialDatagram(t, dcid, hello)

	info, err := RecoverClientHello(datagram)
	require.NoError(t, err)
	require.Equal(t, "example.com", info.ServerName)
}

func TestRecoverClientHelloRejectsShortGarbage(t *testing.T) {
	_, err := RecoverClientHello([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestRecoverClientHelloRejectsNonInitialPacket(t *testing.T) {
	// short header (0x40 has the long-header bit clear)
	_, err := RecoverClientHello(append([]byte{0x40}, make([]byte, 32)...))
	require.Error(t, err)
}
