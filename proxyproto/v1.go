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

package proxyproto

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// HeaderV1 is a decoded PPv1 ("PROXY TCP4 ...\r\n") header.
type HeaderV1 struct {
	Client net.Addr
	Server net.Addr
}

// DecodeV1 reads a single CRLF-terminated PPv1 line from r.
func DecodeV1(r *bufio.Reader) (HeaderV1, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return HeaderV1{}, err
	}
	line = strings.TrimRight(line, "\r\n")

	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "PROXY" {
		return HeaderV1{}, fmt.Errorf("proxyproto: malformed v1 header %q", line)
	}

	if fields[1] == "UNKNOWN" {
		return HeaderV1{}, nil
	}

	if len(fields) != 6 {
		return HeaderV1{}, fmt.Errorf("proxyproto: malformed v1 header %q", line)
	}

	cport, err := strconv.Atoi(fields[4])
	if err != nil {
		return HeaderV1{}, err
	}
	sport, err := strconv.Atoi(fields[5])
	if err != nil {
		return HeaderV1{}, err
	}

	return HeaderV1{
		Client: &net.TCPAddr{IP: net.ParseIP(fields[2]), Port: cport},
		Server: &net.TCPAddr{IP: net.ParseIP(fields[3]), Port: sport},
	}, nil
}
