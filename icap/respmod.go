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
	"bytes"
	"context"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// RESPMOD sends req and resp to the configured ICAP service and returns
// whatever it decided the response should become: resp unchanged (204 or
// a transport failure under Bypass), or a new *http.Response built from
// the service's adapted header and body. As with REQMOD, the returned
// response's Body owns the underlying ICAP connection until drained or
// closed.
func (c *Client) RESPMOD(ctx context.Context, req *http.Request, resp *http.Response) (*http.Response, error) {
	parts := []part{
		{name: "req-hdr", data: serializeRequestHeader(req)},
		{name: "res-hdr", data: serializeResponseHeader(resp)},
	}

	var body io.Reader
	if resp.Body != nil && resp.Body != http.NoBody {
		body = resp.Body
	}

	result, pc, err := c.runExchange(ctx, "RESPMOD", parts, body)
	if err != nil {
		if c.cfg.Bypass && bypassable(err) {
			return resp, nil
		}
		return nil, err
	}

	if result.passthrough {
		return resp, nil
	}

	adapted, err := parseAdaptedResponse(result.adaptedHdr, result.adaptedBody, resp)
	if err != nil {
		if pc != nil {
			_ = pc.Close()
		}
		return nil, err
	}

	attachFinisher(c, pc, &adapted.Body)
	return adapted, nil
}

// parseAdaptedResponse rebuilds a response from an ICAP-adapted res-hdr
// block. A nil hdrBytes keeps orig's status/headers and only swaps the
// body.
func parseAdaptedResponse(hdrBytes []byte, body io.ReadCloser, orig *http.Response) (*http.Response, error) {
	resp := &http.Response{
		Status:     orig.Status,
		StatusCode: orig.StatusCode,
		Proto:      orig.Proto,
		ProtoMajor: orig.ProtoMajor,
		ProtoMinor: orig.ProtoMinor,
		Header:     orig.Header.Clone(),
		Request:    orig.Request,
	}

	if hdrBytes != nil {
		tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(hdrBytes)))

		line, err := tp.ReadLine()
		if err != nil {
			return nil, ErrResponseParseFailed.Error(err)
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			return nil, ErrInvalidResponse.Error()
		}
		code, cerr := strconv.Atoi(fields[1])
		if cerr != nil {
			return nil, ErrInvalidResponse.Error(cerr)
		}

		hdr, err := tp.ReadMIMEHeader()
		if err != nil && len(hdr) == 0 {
			return nil, ErrResponseParseFailed.Error(err)
		}

		resp.StatusCode = code
		if len(fields) == 3 {
			resp.Status = fields[1] + " " + fields[2]
		} else {
			resp.Status = fields[1]
		}
		resp.Header = http.Header(hdr)
	}

	if body != nil {
		resp.Body = body
		resp.ContentLength = -1
	} else {
		resp.Body = http.NoBody
		resp.ContentLength = 0
	}
	return resp, nil
}
