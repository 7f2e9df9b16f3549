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

// Package proxyproto implements Proxy Protocol v1 (ingress reader) and v2
// (reader/writer), including custom divert-egress TLVs carrying the
// original upstream, TLS name, user name, and task id. Built from the
// HAProxy PROXY protocol wire format and exercised by escaper/diverttcp.
package proxyproto

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

var v2Signature = [12]byte{0x0D, 0x0A, 0x0D, 0x0A, 0x00, 0x0D, 0x0A, 0x51, 0x55, 0x49, 0x54, 0x0A}

// TLVType identifies a PPv2 TLV. The custom TLVs used by divert-tcp start
// at 0xE0 (PP2_TYPE_MIN_CUSTOM per the HAProxy spec).
type TLVType byte

const (
	TLVOriginalUpstream TLVType = 0xE0
	TLVTLSName          TLVType = 0xE1
	TLVUserName         TLVType = 0xE2
	TLVTaskID           TLVType = 0xE3
)

// TLV is a single type-length-value extension.
type TLV struct {
	Type  TLVType
	Value []byte
}

// HeaderV2 is a decoded/encoded PPv2 header.
type HeaderV2 struct {
	Client net.Addr
	Server net.Addr
	TLVs   []TLV
}

const (
	verCmdV2    = 0x21 // version 2, PROXY command
	protoTCPv4  = 0x11
	protoTCPv6  = 0x21
	addrFamUnix = 0x31
)

// EncodeV2 writes h as a binary PPv2 header to w.
func EncodeV2(w io.Writer, h HeaderV2) error {
	caddr, cport, cv4 := splitAddr(h.Client)
	saddr, sport, sv4 := splitAddr(h.Server)

	var body bytes.Buffer
	var famByte byte

	if cv4 && sv4 {
		famByte = protoTCPv4
		body.Write(caddr.To4())
		body.Write(saddr.To4())
	} else {
		famByte = protoTCPv6
		body.Write(caddr.To16())
		body.Write(saddr.To16())
	}
	_ = binary.Write(&body, binary.BigEndian, cport)
	_ = binary.Write(&body, binary.BigEndian, sport)

	for _, t := range h.TLVs {
		body.WriteByte(byte(t.Type))
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(t.Value)))
		body.Write(lenBuf[:])
		body.Write(t.Value)
	}

	if _, err := w.Write(v2Signature[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{verCmdV2, famByte}); err != nil {
		return err
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(body.Len()))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

func splitAddr(a net.Addr) (net.IP, uint16, bool) {
	tcp, ok := a.(*net.TCPAddr)
	if !ok {
		return net.IPv4zero, 0, true
	}
	ip4 := tcp.IP.To4()
	return tcp.IP, uint16(tcp.Port), ip4 != nil
}

// DecodeV2 reads and validates a PPv2 header from r.
func DecodeV2(r *bufio.Reader) (HeaderV2, error) {
	sig := make([]byte, 12)
	if _, err := io.ReadFull(r, sig); err != nil {
		return HeaderV2{}, err
	}
	if !bytes.Equal(sig, v2Signature[:]) {
		return HeaderV2{}, fmt.Errorf("proxyproto: bad v2 signature")
	}

	verCmd, err := r.ReadByte()
	if err != nil {
		return HeaderV2{}, err
	}
	if verCmd>>4 != 2 {
		return HeaderV2{}, fmt.Errorf("proxyproto: unsupported version %d", verCmd>>4)
	}

	famByte, err := r.ReadByte()
	if err != nil {
		return HeaderV2{}, err
	}

	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return HeaderV2{}, err
	}
	total := int(binary.BigEndian.Uint16(lenBuf[:]))

	body := make([]byte, total)
	if _, err := io.ReadFull(r, body); err != nil {
		return HeaderV2{}, err
	}

	var addrLen int
	switch famByte {
	case protoTCPv4:
		addrLen = 4
	case protoTCPv6:
		addrLen = 16
	case addrFamUnix:
		return HeaderV2{}, fmt.Errorf("proxyproto: unix sockets not supported")
	default:
		return HeaderV2{}, fmt.Errorf("proxyproto: unknown address family 0x%x", famByte)
	}

	off := 0
	cip := net.IP(body[off : off+addrLen])
	off += addrLen
	sip := net.IP(body[off : off+addrLen])
	off += addrLen
	cport := binary.BigEndian.Uint16(body[off : off+2])
	off += 2
	sport := binary.BigEndian.Uint16(body[off : off+2])
	off += 2

	h := HeaderV2{
		Client: &net.TCPAddr{IP: cip, Port: int(cport)},
		Server: &net.TCPAddr{IP: sip, Port: int(sport)},
	}

	for off < len(body) {
		if off+3 > len(body) {
			return HeaderV2{}, fmt.Errorf("proxyproto: truncated TLV header")
		}
		typ := TLVType(body[off])
		l := int(binary.BigEndian.Uint16(body[off+1 : off+3]))
		off += 3
		if off+l > len(body) {
			return HeaderV2{}, fmt.Errorf("proxyproto: truncated TLV value")
		}
		val := make([]byte, l)
		copy(val, body[off:off+l])
		off += l
		h.TLVs = append(h.TLVs, TLV{Type: typ, Value: val})
	}

	return h, nil
}
