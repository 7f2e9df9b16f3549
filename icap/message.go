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

package icap

import (
	"bufio"
	"net/textproto"
	"strconv"
	"strings"
)

// response is one parsed ICAP status line plus headers (RFC 3507 §4.3/4.4).
// It never holds the body: the caller streams that separately once it
// knows, from Encapsulated, which parts (if any) follow.
type response struct {
	StatusCode int
	Reason     string
	Header     textproto.MIMEHeader
	parts      []encapsulatedPart
}

// encapsulatedPart is one "name=offset" pair from the Encapsulated header,
// in the order it was declared. The offset is relative to the start of
// the encapsulated section (byte 0 right after the ICAP headers' blank
// line), matching RFC 3507 §4.4.1.
type encapsulatedPart struct {
	Name   string
	Offset int
}

func (r *response) part(name string) (encapsulatedPart, bool) {
	for _, p := range r.parts {
		if p.Name == name {
			return p, true
		}
	}
	return encapsulatedPart{}, false
}

// hasBody reports whether the Encapsulated header declared a req-body or
// res-body part (as opposed to terminating with null-body).
func (r *response) hasBody() bool {
	_, reqBody := r.part("req-body")
	_, resBody := r.part("res-body")
	return reqBody || resBody
}

// readResponse parses one ICAP status line and header block from br. The
// caller is responsible for whatever follows (an encapsulated body, or
// nothing for 204/100).
func readResponse(br *bufio.Reader) (*response, error) {
	tp := textproto.NewReader(br)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, ErrResponseParseFailed.Error(err)
	}

	code, reason, err := parseStatusLine(line)
	if err != nil {
		return nil, ErrInvalidResponse.Error(err)
	}

	hdr, err := tp.ReadMIMEHeader()
	if err != nil && len(hdr) == 0 {
		return nil, ErrResponseParseFailed.Error(err)
	}

	parts, err := parseEncapsulated(hdr.Get("Encapsulated"))
	if err != nil {
		return nil, ErrInvalidResponse.Error(err)
	}

	return &response{StatusCode: code, Reason: reason, Header: hdr, parts: parts}, nil
}

// parseStatusLine splits "ICAP/1.0 200 OK" into its status code and reason
// phrase.
func parseStatusLine(line string) (int, string, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 {
		return 0, "", errInvalidStatusLine(line)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, "", errInvalidStatusLine(line)
	}
	reason := ""
	if len(fields) == 3 {
		reason = fields[2]
	}
	return code, reason, nil
}

type errInvalidStatusLine string

func (e errInvalidStatusLine) Error() string { return "invalid ICAP status line: " + string(e) }

// parseEncapsulated parses the Encapsulated header's comma-separated
// "name=offset" pairs, preserving declaration order since that order is
// what fixes each part's byte boundaries relative to its neighbours.
func parseEncapsulated(v string) ([]encapsulatedPart, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}

	fields := strings.Split(v, ",")
	parts := make([]encapsulatedPart, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			return nil, errInvalidStatusLine("encapsulated field " + f)
		}
		name := strings.TrimSpace(kv[0])
		offset, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, errInvalidStatusLine("encapsulated offset " + f)
		}
		parts = append(parts, encapsulatedPart{Name: name, Offset: offset})
	}
	return parts, nil
}
